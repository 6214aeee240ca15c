package parser

import (
	"fmt"

	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/expr"
)

// References builds the nodes of reference constructs. The parser calls it
// for every cell, name and range operand it encounters.
type References interface {
	// CellA1 returns the node for an A1 cell reference. The sheet is empty
	// for unqualified references.
	CellA1(sheet, cell string, pos int) (*expr.Node, error)
	// Named returns the node for a defined name of a cell or range.
	Named(name string, pos int) (*expr.Node, error)
	// Range returns the node for the range spanned by two cell nodes.
	Range(from, to *expr.Node) (*expr.Node, error)
	// RangeUnion returns the node for the union of two references.
	RangeUnion(parts []*expr.Node) (*expr.Node, error)
	// RangeIntersection returns the node for the intersection of two
	// references.
	RangeIntersection(parts []*expr.Node) (*expr.Node, error)
	// ShapedRange returns the node for a range whose row and column
	// structure is significant, such as the array of INDEX.
	ShapedRange(n *expr.Node) (*expr.Node, error)
}

// Unsupported is the configuration without reference support. Every range
// construct fails with errs.ErrRangesNotSupported and every cell reference
// with errs.ErrReferencesNotSupported.
type Unsupported struct{}

// CellA1 implements References.
func (Unsupported) CellA1(string, string, int) (*expr.Node, error) {
	return nil, errs.ErrReferencesNotSupported
}

// Named implements References.
func (Unsupported) Named(string, int) (*expr.Node, error) {
	return nil, errs.ErrReferencesNotSupported
}

// Range implements References.
func (Unsupported) Range(*expr.Node, *expr.Node) (*expr.Node, error) {
	return nil, errs.ErrRangesNotSupported
}

// RangeUnion implements References.
func (Unsupported) RangeUnion([]*expr.Node) (*expr.Node, error) {
	return nil, errs.ErrRangesNotSupported
}

// RangeIntersection implements References.
func (Unsupported) RangeIntersection([]*expr.Node) (*expr.Node, error) {
	return nil, errs.ErrRangesNotSupported
}

// ShapedRange implements References.
func (Unsupported) ShapedRange(*expr.Node) (*expr.Node, error) {
	return nil, errs.ErrRangesNotSupported
}

// A1 produces unresolved CellRef and RangeRef nodes for the model builder.
type A1 struct {
	// IsRange reports whether a defined name denotes a multi-cell area.
	// Names are cells when it is nil.
	IsRange func(name string) bool
}

// CellA1 implements References.
func (A1) CellA1(sheet, cell string, pos int) (*expr.Node, error) {
	col, row, err := expr.CellNameToCoordinates(cell)
	if err != nil {
		return nil, err
	}
	return &expr.Node{Kind: expr.KindCellRef, Ref: &expr.Ref{Sheet: sheet, Col: col, Row: row}, Pos: pos}, nil
}

// Named implements References.
func (r A1) Named(name string, pos int) (*expr.Node, error) {
	kind := expr.KindCellRef
	if r.IsRange != nil && r.IsRange(name) {
		kind = expr.KindRangeRef
	}
	return &expr.Node{Kind: kind, Ref: &expr.Ref{Name: name}, Pos: pos}, nil
}

// Range implements References.
func (A1) Range(from, to *expr.Node) (*expr.Node, error) {
	if from.Kind != expr.KindCellRef || to.Kind != expr.KindCellRef || from.Ref.Name != "" || to.Ref.Name != "" {
		return nil, fmt.Errorf("range bounds %s and %s must be cells", from, to)
	}
	sheet := from.Ref.Sheet
	if to.Ref.Sheet != "" && to.Ref.Sheet != sheet {
		return nil, fmt.Errorf("range %s:%s spans several sheets", from, to)
	}
	ref := &expr.Ref{
		Sheet: sheet,
		Col:   min(from.Ref.Col, to.Ref.Col), Row: min(from.Ref.Row, to.Ref.Row),
		ToCol: max(from.Ref.Col, to.Ref.Col), ToRow: max(from.Ref.Row, to.Ref.Row),
	}
	return &expr.Node{Kind: expr.KindRangeRef, Ref: ref, Pos: from.Pos}, nil
}

// RangeUnion implements References.
func (A1) RangeUnion(parts []*expr.Node) (*expr.Node, error) {
	return composite(expr.OpUnion, parts), nil
}

// RangeIntersection implements References.
func (A1) RangeIntersection(parts []*expr.Node) (*expr.Node, error) {
	return composite(expr.OpIntersect, parts), nil
}

// ShapedRange implements References.
func (A1) ShapedRange(n *expr.Node) (*expr.Node, error) { return n, nil }

// composite flattens nested composites of the same operator.
func composite(op expr.Op, parts []*expr.Node) *expr.Node {
	n := &expr.Node{Kind: expr.KindRangeRef, Op: op, Pos: parts[0].Pos}
	for _, p := range parts {
		if p.Kind == expr.KindRangeRef && p.Ref == nil && p.Op == op {
			n.Args = append(n.Args, p.Args...)
			continue
		}
		n.Args = append(n.Args, p)
	}
	return n
}
