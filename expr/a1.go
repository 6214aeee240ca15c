// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const (
	// MaxColumns is the number of columns of a worksheet.
	MaxColumns = 16384
	// TotalRows is the number of rows of a worksheet.
	TotalRows = 1048576
)

var (
	// ErrColumnNumber defined the error message on receive an invalid column
	// number.
	ErrColumnNumber = fmt.Errorf("the column number must be greater than or equal to %d and less than or equal to %d", 1, MaxColumns)
	// ErrMaxRows defined the error message on receive a row number exceeds
	// maximum limit.
	ErrMaxRows = errors.New("row number exceeds maximum limit")
)

func newInvalidCellNameError(cell string) error {
	return fmt.Errorf("cannot convert cell %q to coordinates: invalid cell name %q", cell, cell)
}

func newInvalidColumnNameError(col string) error {
	return fmt.Errorf("invalid column name %q", col)
}

// SplitCellName splits cell name to column name and row number.
//
// Example:
//
//	expr.SplitCellName("AK74") // return "AK", 74, nil
func SplitCellName(cell string) (string, int, error) {
	alpha := func(r rune) bool {
		return ('A' <= r && r <= 'Z') || ('a' <= r && r <= 'z') || (r == '$')
	}
	if strings.IndexFunc(cell, alpha) == 0 {
		i := strings.LastIndexFunc(cell, alpha)
		if i >= 0 && i < len(cell)-1 {
			col, rowStr := strings.ReplaceAll(cell[:i+1], "$", ""), cell[i+1:]
			if row, err := strconv.Atoi(rowStr); err == nil && row > 0 {
				return col, row, nil
			}
		}
	}
	return "", -1, newInvalidCellNameError(cell)
}

// ColumnNameToNumber provides a function to convert Excel sheet column name
// (case-insensitive) to int. The function returns an error if column name
// incorrect.
//
// Example:
//
//	expr.ColumnNameToNumber("AK") // returns 37, nil
func ColumnNameToNumber(name string) (int, error) {
	if len(name) == 0 {
		return -1, newInvalidColumnNameError(name)
	}
	col := 0
	multi := 1
	for i := len(name) - 1; i >= 0; i-- {
		r := name[i]
		if r >= 'A' && r <= 'Z' {
			col += int(r-'A'+1) * multi
		} else if r >= 'a' && r <= 'z' {
			col += int(r-'a'+1) * multi
		} else {
			return -1, newInvalidColumnNameError(name)
		}
		multi *= 26
		if col > MaxColumns {
			return -1, ErrColumnNumber
		}
	}
	return col, nil
}

// ColumnNumberToName provides a function to convert the integer to Excel
// sheet column title.
//
// Example:
//
//	expr.ColumnNumberToName(37) // returns "AK", nil
func ColumnNumberToName(num int) (string, error) {
	if num < 1 || num > MaxColumns {
		return "", ErrColumnNumber
	}
	var col string
	for num > 0 {
		col = string(rune((num-1)%26+65)) + col
		num = (num - 1) / 26
	}
	return col, nil
}

// CellNameToCoordinates converts alphanumeric cell name to [X, Y]
// coordinates or returns an error.
//
// Example:
//
//	expr.CellNameToCoordinates("A1") // returns 1, 1, nil
//	expr.CellNameToCoordinates("Z3") // returns 26, 3, nil
func CellNameToCoordinates(cell string) (int, int, error) {
	colName, row, err := SplitCellName(cell)
	if err != nil {
		return -1, -1, newInvalidCellNameError(cell)
	}
	if row > TotalRows {
		return -1, -1, ErrMaxRows
	}
	col, err := ColumnNameToNumber(colName)
	return col, row, err
}

// CoordinatesToCellName converts [X, Y] coordinates to alpha-numeric cell
// name or returns an error.
//
// Example:
//
//	expr.CoordinatesToCellName(1, 1) // returns "A1", nil
func CoordinatesToCellName(col, row int) (string, error) {
	if col < 1 || row < 1 {
		return "", fmt.Errorf("invalid cell reference [%d, %d]", col, row)
	}
	if row > TotalRows {
		return "", ErrMaxRows
	}
	colName, err := ColumnNumberToName(col)
	return colName + strconv.Itoa(row), err
}

// SplitSheet splits a qualified reference such as 'My Sheet'!A1 into the
// unquoted sheet name and the local part. The sheet is empty for
// unqualified references.
func SplitSheet(ref string) (sheet, local string) {
	i := strings.LastIndex(ref, "!")
	if i < 0 {
		return "", ref
	}
	sheet = ref[:i]
	if len(sheet) >= 2 && sheet[0] == '\'' && sheet[len(sheet)-1] == '\'' {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	return sheet, ref[i+1:]
}

// QuoteSheet quotes a sheet name for use in a qualified reference when it
// contains anything but letters, digits and underscores.
func QuoteSheet(sheet string) string {
	if strings.IndexFunc(sheet, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) < 0 {
		return sheet
	}
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// String formats the reference in A1 notation.
func (r *Ref) String() string {
	if r.Name != "" {
		return r.Name
	}
	local, _ := CoordinatesToCellName(r.Col, r.Row)
	if r.IsRange() {
		to, _ := CoordinatesToCellName(r.ToCol, r.ToRow)
		local += ":" + to
	}
	if r.Sheet == "" {
		return local
	}
	return QuoteSheet(r.Sheet) + "!" + local
}
