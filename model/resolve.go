package model

import (
	"fmt"
	"slices"

	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/expr"
)

// resolver turns the raw tree of one formula into a bound tree: references
// become cell, array and sub-section nodes and aggregates become folds.
// Raw nodes are never modified.
type resolver struct {
	b    *Builder
	cell *CellModel
	text string
}

func (r *resolver) errorf(pos int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if pos >= 0 {
		msg += fmt.Sprintf(" in expression %s; error location indicated by <<?.", errs.Mark(r.text, pos))
	}
	return &errs.BindingError{Message: msg}
}

func (r *resolver) node(n *expr.Node) (*expr.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case expr.KindConstant, expr.KindLetVar, expr.KindCell, expr.KindSubSection:
		return n, nil
	case expr.KindCellRef:
		return r.cellRef(n)
	case expr.KindRangeRef:
		return r.rangeRef(n)
	case expr.KindFunction:
		return r.function(n)
	case expr.KindOperator:
		args, err := r.nodes(n.Args)
		if err != nil {
			return nil, err
		}
		for _, a := range args {
			if a.Kind == expr.KindSubstitution {
				return nil, r.errorf(n.Pos, "Range union used as operand of %s", n.Op)
			}
		}
		out := expr.Operator(n.Op, args...)
		out.Pos = n.Pos
		return out, nil
	case expr.KindArray:
		args, err := r.nodes(n.Args)
		if err != nil {
			return nil, err
		}
		out := expr.Array(n.Array, args)
		out.Pos = n.Pos
		return out, nil
	case expr.KindLet:
		args, err := r.nodes(n.Args)
		if err != nil {
			return nil, err
		}
		out := expr.Let(n.Name, args[0], args[1])
		out.Pos = n.Pos
		return out, nil
	case expr.KindFold:
		return r.fold(n)
	case expr.KindSubstitution:
		args, err := r.nodes(n.Args)
		if err != nil {
			return nil, err
		}
		return expr.Substitution(args...), nil
	}
	errs.Internalf("cannot resolve %s node", n.Kind)
	return nil, nil
}

func (r *resolver) nodes(in []*expr.Node) ([]*expr.Node, error) {
	out := make([]*expr.Node, len(in))
	for i, a := range in {
		n, err := r.node(a)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (r *resolver) function(n *expr.Node) (*expr.Node, error) {
	if _, known := expr.Lookup(n.Name); known && !r.b.lib.Supports(n.Name) {
		pos := n.Pos + len(n.Name) + 1
		return nil, &errs.UnsupportedExpressionError{
			Function:   n.Name,
			Expression: errs.Mark(r.text, pos),
			Pos:        pos,
			Message:    fmt.Sprintf("Function %s is not supported for %s engines.", n.Name, r.b.ctx.Type().Kind()),
		}
	}
	args, err := r.nodes(n.Args)
	if err != nil {
		return nil, err
	}
	args = expr.Splice(args)
	if fold, ok := expr.NewAggregate(r.b.ctx.Type(), n.Name, args); ok {
		fold.Pos = n.Pos
		return fold, nil
	}
	out := expr.Call(n.Name, args...)
	out.Pos = n.Pos
	return out, nil
}

func (r *resolver) fold(n *expr.Node) (*expr.Node, error) {
	args, err := r.nodes(n.Args)
	if err != nil {
		return nil, err
	}
	out := n.ShallowCopy()
	out.Args = expr.Splice(args)
	f := out.Fold
	for _, body := range []**expr.Node{&f.Init, &f.Step, &f.Into, &f.WhenEmpty} {
		if *body, err = r.node(*body); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *resolver) sheetOf(ref *expr.Ref, pos int) (string, error) {
	sheet := ref.Sheet
	if sheet == "" {
		sheet = r.cell.Sheet
	}
	if !slices.Contains(r.b.sheet.Sheets(), sheet) {
		return "", r.errorf(pos, "Sheet %s does not exist", sheet)
	}
	return sheet, nil
}

func (r *resolver) named(name string, pos int) (Area, error) {
	a, ok := r.b.sheet.DefinedName(name)
	if !ok {
		return Area{}, r.errorf(pos, "Name %s is not defined", name)
	}
	return a, nil
}

func (r *resolver) cellRef(n *expr.Node) (*expr.Node, error) {
	if n.Ref.Name != "" {
		a, err := r.named(n.Ref.Name, n.Pos)
		if err != nil {
			return nil, err
		}
		if !a.IsCell() {
			return r.area(a, n.Pos)
		}
		return r.cellNode(a.Sheet, a.Col, a.Row, n.Pos)
	}
	sheet, err := r.sheetOf(n.Ref, n.Pos)
	if err != nil {
		return nil, err
	}
	return r.cellNode(sheet, n.Ref.Col, n.Ref.Row, n.Pos)
}

func (r *resolver) cellNode(sheet string, col, row, pos int) (*expr.Node, error) {
	c, err := r.b.cell(r.cell.Section, sheet, col, row)
	if err != nil {
		return nil, err
	}
	out := expr.Cell(c, c.Type())
	out.Pos = pos
	return out, nil
}

// areaOf returns the area of a raw range or cell reference.
func (r *resolver) areaOf(n *expr.Node) (Area, error) {
	if n.Ref == nil {
		return Area{}, r.errorf(n.Pos, "Nested range composition is not supported")
	}
	if n.Ref.Name != "" {
		return r.named(n.Ref.Name, n.Pos)
	}
	sheet, err := r.sheetOf(n.Ref, n.Pos)
	if err != nil {
		return Area{}, err
	}
	a := Area{Sheet: sheet, Col: n.Ref.Col, Row: n.Ref.Row, ToCol: n.Ref.ToCol, ToRow: n.Ref.ToRow}
	if !n.Ref.IsRange() {
		a.ToCol, a.ToRow = a.Col, a.Row
	}
	return a, nil
}

func (r *resolver) rangeRef(n *expr.Node) (*expr.Node, error) {
	if n.Ref != nil {
		a, err := r.areaOf(n)
		if err != nil {
			return nil, err
		}
		return r.area(a, n.Pos)
	}
	if n.Op == expr.OpUnion {
		parts, err := r.nodes(n.Args)
		if err != nil {
			return nil, err
		}
		return expr.Substitution(parts...), nil
	}
	a, err := r.areaOf(n.Args[0])
	if err != nil {
		return nil, err
	}
	for _, part := range n.Args[1:] {
		b, err := r.areaOf(part)
		if err != nil {
			return nil, err
		}
		if !a.Overlaps(b) {
			return nil, r.errorf(n.Pos, "Intersection of %s and %s is empty", a, b)
		}
		a.Col, a.ToCol = max(a.Col, b.Col), min(a.ToCol, b.ToCol)
		a.Row, a.ToRow = max(a.Row, b.Row), min(a.ToRow, b.ToRow)
	}
	if a.IsCell() {
		return r.cellNode(a.Sheet, a.Col, a.Row, n.Pos)
	}
	return r.area(a, n.Pos)
}

// area resolves a range. A range covering whole columns of a repeating
// section becomes one sub-section node per column; any other range becomes
// an array of its cells.
func (r *resolver) area(a Area, pos int) (*expr.Node, error) {
	s := r.cell.Section
	for ; !s.IsRoot() && !s.Template.Covers(a); s = s.Parent {
		if s.Area.Overlaps(a) {
			return nil, r.errorf(pos, "Range %s partially overlaps section %s", a, s.Name)
		}
	}
	for _, c := range s.Sections {
		if !c.Area.Overlaps(a) {
			continue
		}
		if a.Row != c.Area.Row || a.ToRow != c.Area.ToRow || a.Col < c.Area.Col || a.ToCol > c.Area.ToCol || c.Template.Rows() != 1 {
			return nil, r.errorf(pos, "Range %s is not aligned with section %s at %s", a, c.Name, c.Area)
		}
		cols := make([]*expr.Node, 0, a.Cols())
		for col := a.Col; col <= a.ToCol; col++ {
			cm, err := r.b.cell(c, a.Sheet, col, c.Area.Row)
			if err != nil {
				return nil, err
			}
			sub := expr.SubSection(cm, cm.Type())
			sub.Pos = pos
			cols = append(cols, sub)
		}
		if len(cols) == 1 {
			return cols[0], nil
		}
		return expr.Substitution(cols...), nil
	}
	elements := make([]*expr.Node, 0, a.Rows()*a.Cols())
	for row := a.Row; row <= a.ToRow; row++ {
		for col := a.Col; col <= a.ToCol; col++ {
			n, err := r.cellNode(a.Sheet, col, row, pos)
			if err != nil {
				return nil, err
			}
			elements = append(elements, n)
		}
	}
	out := expr.Array(expr.NewArrayDescriptor(a.Rows(), a.Cols()), elements)
	out.Pos = pos
	return out, nil
}
