package model

import (
	"strings"

	"github.com/xuri/formula/expr"
	"github.com/xuri/formula/numeric"
)

// Model is a bound computation model.
type Model struct {
	Type numeric.Type
	Root *Section
	// Cells lists every cell model in creation order.
	Cells []*CellModel
	// Levels groups the formula cells by dependency level. Level 0 cells
	// depend on no other formula cell.
	Levels [][]*CellModel
}

// Section is a region of bound cells. The root section is the workbook;
// every other section repeats once per record of its inputs.
type Section struct {
	Name   string
	Parent *Section
	// Area is the region in the sheet and Template its first record. Both
	// are zero for the root section.
	Area     Area
	Template Area
	Inputs   []*CellModel
	Outputs  []*Output
	Sections []*Section
	Cells    []*CellModel
}

// Output is a declared output of a section.
type Output struct {
	Name string
	Cell *CellModel
	Kind ValueKind
}

// IsRoot reports whether s is the workbook section.
func (s *Section) IsRoot() bool { return s.Parent == nil }

// Path returns the slash separated names from the root to s.
func (s *Section) Path() string {
	var names []string
	for p := s; !p.IsRoot(); p = p.Parent {
		names = append([]string{p.Name}, names...)
	}
	return strings.Join(names, "/")
}

// Section returns the direct sub-section called name.
func (s *Section) Section(name string) *Section {
	for _, c := range s.Sections {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Output returns the output called name.
func (s *Section) Output(name string) *Output {
	for _, o := range s.Outputs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Depth returns the number of ancestors of s.
func (s *Section) Depth() int {
	d := 0
	for p := s.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// CellModel is a cell bound into a section. Input cells have no
// expression; every other cell has exactly one.
type CellModel struct {
	Section  *Section
	Sheet    string
	Col, Row int
	// Formula is the source text of formula cells.
	Formula string
	Expr    *expr.Node
	// Input is the input name of input cells.
	Input     string
	InputKind ValueKind
}

// Address implements expr.Target.
func (c *CellModel) Address() string {
	return (&expr.Ref{Sheet: c.Sheet, Col: c.Col, Row: c.Row}).String()
}

func (c *CellModel) String() string { return c.Address() }

// IsInput reports whether the cell is supplied by the caller.
func (c *CellModel) IsInput() bool { return c.Input != "" }

// Type returns the data type of the cell's value.
func (c *CellModel) Type() expr.DataType {
	if c.IsInput() {
		if c.InputKind == KindString {
			return expr.String
		}
		return expr.Numeric
	}
	if c.Expr == nil {
		return expr.Unknown
	}
	return c.Expr.Type
}

// IsConstant reports whether the cell's value is known at compile time.
func (c *CellModel) IsConstant() bool { return !c.IsInput() && c.Expr.IsConstant() }

// Walk calls fn for s and its sub-sections in depth-first order.
func Walk(s *Section, fn func(*Section)) {
	fn(s)
	for _, c := range s.Sections {
		Walk(c, fn)
	}
}
