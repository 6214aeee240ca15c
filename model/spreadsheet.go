// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package model binds a spreadsheet to declared inputs and outputs and
// builds the computation model compiled by the later stages: a tree of
// sections owning the cell models whose expressions reference each other.
package model

import (
	"fmt"
	"strings"

	"github.com/xuri/formula/expr"
)

// Cell is the content of a spreadsheet cell: a formula, or a constant value
// of type float64, string, bool, time.Time or decimal.Decimal.
type Cell struct {
	Formula string
	Value   interface{}
}

// IsBlank reports whether the cell has neither a formula nor a value.
func (c Cell) IsBlank() bool { return c.Formula == "" && c.Value == nil }

// Area is a rectangular range of cells on one sheet. Coordinates are
// 1-based and inclusive.
type Area struct {
	Sheet        string
	Col, Row     int
	ToCol, ToRow int
}

// Rows returns the number of rows of a.
func (a Area) Rows() int { return a.ToRow - a.Row + 1 }

// Cols returns the number of columns of a.
func (a Area) Cols() int { return a.ToCol - a.Col + 1 }

// IsCell reports whether a is a single cell.
func (a Area) IsCell() bool { return a.Col == a.ToCol && a.Row == a.ToRow }

// Contains reports whether the cell at col and row of sheet lies in a.
func (a Area) Contains(sheet string, col, row int) bool {
	return sheet == a.Sheet && col >= a.Col && col <= a.ToCol && row >= a.Row && row <= a.ToRow
}

// Covers reports whether b lies completely in a.
func (a Area) Covers(b Area) bool {
	return a.Contains(b.Sheet, b.Col, b.Row) && a.Contains(b.Sheet, b.ToCol, b.ToRow)
}

// Overlaps reports whether a and b share at least one cell.
func (a Area) Overlaps(b Area) bool {
	return a.Sheet == b.Sheet && a.Col <= b.ToCol && b.Col <= a.ToCol && a.Row <= b.ToRow && b.Row <= a.ToRow
}

func (a Area) String() string {
	ref := &expr.Ref{Sheet: a.Sheet, Col: a.Col, Row: a.Row}
	if !a.IsCell() {
		ref.ToCol, ref.ToRow = a.ToCol, a.ToRow
	}
	return ref.String()
}

// ParseArea parses an A1 cell or range locator such as "Sheet1!B2" or
// "'My Sheet'!A2:C9". The sheet defaults to defaultSheet.
func ParseArea(locator, defaultSheet string) (Area, error) {
	sheet, local := expr.SplitSheet(strings.TrimSpace(locator))
	if sheet == "" {
		sheet = defaultSheet
	}
	from, to, isRange := strings.Cut(local, ":")
	col, row, err := expr.CellNameToCoordinates(from)
	if err != nil {
		return Area{}, err
	}
	a := Area{Sheet: sheet, Col: col, Row: row, ToCol: col, ToRow: row}
	if !isRange {
		return a, nil
	}
	if col, row, err = expr.CellNameToCoordinates(to); err != nil {
		return Area{}, err
	}
	a.Col, a.ToCol = min(a.Col, col), max(a.Col, col)
	a.Row, a.ToRow = min(a.Row, row), max(a.Row, row)
	return a, nil
}

// Spreadsheet is the read-only view of a workbook the model builder
// compiles.
type Spreadsheet interface {
	// Cell returns the content of the cell at col and row of sheet and
	// false if the cell is blank or the sheet does not exist.
	Cell(sheet string, col, row int) (Cell, bool)
	// Sheets returns the sheet names in workbook order.
	Sheets() []string
	// DefinedName returns the area a workbook-level name refers to.
	DefinedName(name string) (Area, bool)
}

type cellKey struct {
	col, row int
}

// Workbook is an in-memory Spreadsheet.
type Workbook struct {
	sheets []string
	cells  map[string]map[cellKey]Cell
	names  map[string]Area
}

// NewWorkbook creates a workbook with the given sheets, or with a single
// sheet named Sheet1.
func NewWorkbook(sheets ...string) *Workbook {
	if len(sheets) == 0 {
		sheets = []string{"Sheet1"}
	}
	wb := &Workbook{cells: map[string]map[cellKey]Cell{}, names: map[string]Area{}}
	for _, sheet := range sheets {
		wb.NewSheet(sheet)
	}
	return wb
}

// NewSheet appends a sheet unless it exists.
func (wb *Workbook) NewSheet(sheet string) {
	if _, ok := wb.cells[sheet]; ok {
		return
	}
	wb.sheets = append(wb.sheets, sheet)
	wb.cells[sheet] = map[cellKey]Cell{}
}

func (wb *Workbook) key(sheet, cell string) (map[string]map[cellKey]Cell, cellKey, error) {
	if _, ok := wb.cells[sheet]; !ok {
		return nil, cellKey{}, fmt.Errorf("sheet %s does not exist", sheet)
	}
	col, row, err := expr.CellNameToCoordinates(cell)
	if err != nil {
		return nil, cellKey{}, err
	}
	return wb.cells, cellKey{col, row}, nil
}

// SetFormula sets the formula of a cell. A leading equals sign is optional.
func (wb *Workbook) SetFormula(sheet, cell, formula string) error {
	cells, k, err := wb.key(sheet, cell)
	if err != nil {
		return err
	}
	cells[sheet][k] = Cell{Formula: strings.TrimPrefix(formula, "=")}
	return nil
}

// SetValue sets the constant value of a cell. A nil value clears it.
func (wb *Workbook) SetValue(sheet, cell string, value interface{}) error {
	cells, k, err := wb.key(sheet, cell)
	if err != nil {
		return err
	}
	if value == nil {
		delete(cells[sheet], k)
		return nil
	}
	cells[sheet][k] = Cell{Value: value}
	return nil
}

// DefineName binds name to a cell or range locator. Names are case
// insensitive.
func (wb *Workbook) DefineName(name, ref string) error {
	a, err := ParseArea(ref, wb.sheets[0])
	if err != nil {
		return err
	}
	if _, ok := wb.cells[a.Sheet]; !ok {
		return fmt.Errorf("sheet %s does not exist", a.Sheet)
	}
	wb.names[strings.ToUpper(name)] = a
	return nil
}

// Cell implements Spreadsheet.
func (wb *Workbook) Cell(sheet string, col, row int) (Cell, bool) {
	c, ok := wb.cells[sheet][cellKey{col, row}]
	return c, ok && !c.IsBlank()
}

// Sheets implements Spreadsheet.
func (wb *Workbook) Sheets() []string { return append([]string(nil), wb.sheets...) }

// DefinedName implements Spreadsheet.
func (wb *Workbook) DefinedName(name string) (Area, bool) {
	a, ok := wb.names[strings.ToUpper(name)]
	return a, ok
}
