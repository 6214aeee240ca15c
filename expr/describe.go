package expr

import (
	"strconv"
	"strings"

	"github.com/xuri/formula/numeric"
)

// String describes n in formula notation. Scaled constants print their
// raw integer; use Describe to print them in a representation.
func (n *Node) String() string { return Describe(n, nil) }

// Describe prints the tree rooted at n in formula notation, formatting
// numeric constants with t when it is not nil.
func Describe(n *Node, t numeric.Type) string {
	var sb strings.Builder
	(&describer{sb: &sb, t: t}).node(n, 0)
	return sb.String()
}

type describer struct {
	sb *strings.Builder
	t  numeric.Type
}

func (d *describer) node(n *Node, outer int) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindConstant:
		d.constant(n.Value)
	case KindOperator:
		d.operator(n, outer)
	case KindFunction:
		d.call(n.Name, n.Args)
	case KindArray:
		d.array(n)
	case KindLet:
		d.call("LET", []*Node{LetVar(n.Name, Unknown), n.Arg(0), n.Arg(1)})
	case KindLetVar:
		d.sb.WriteString(n.Name)
	case KindFold:
		d.fold(n)
	case KindSubstitution:
		d.list(n.Args)
	case KindCellRef, KindRangeRef:
		if n.Ref != nil {
			d.sb.WriteString(n.Ref.String())
			return
		}
		for i, a := range n.Args {
			if i > 0 {
				d.sb.WriteString(n.Op.String())
			}
			d.node(a, OpIntersect.Precedence())
		}
	case KindCell:
		d.sb.WriteString(n.Target.Address())
	case KindSubSection:
		d.sb.WriteString("SECTION(" + n.Target.Address() + ")")
	}
}

func (d *describer) constant(v numeric.Value) {
	switch v.Type {
	case numeric.TypeNumber:
		d.number(v.Num)
	case numeric.TypeString:
		d.sb.WriteString(`"` + strings.ReplaceAll(v.Str, `"`, `""`) + `"`)
	case numeric.TypeArray:
		d.sb.WriteByte('{')
		for i, e := range v.Array {
			if i > 0 {
				if v.Cols > 0 && i%v.Cols == 0 {
					d.sb.WriteByte(';')
				} else {
					d.sb.WriteByte(',')
				}
			}
			d.constant(e)
		}
		d.sb.WriteByte('}')
	}
}

func (d *describer) number(n numeric.Number) {
	if d.t != nil {
		d.sb.WriteString(d.t.Format(n))
		return
	}
	switch v := n.(type) {
	case numeric.Double:
		d.sb.WriteString(numeric.Double64.Format(v))
	case numeric.Decimal:
		d.sb.WriteString(v.String())
	case numeric.Scaled:
		d.sb.WriteString(strconv.FormatInt(int64(v), 10))
	}
}

func (d *describer) operator(n *Node, outer int) {
	p := n.Op.Precedence()
	paren := p < outer
	if paren {
		d.sb.WriteByte('(')
	}
	switch n.Op {
	case OpNeg:
		d.sb.WriteByte('-')
		d.node(n.Arg(0), p)
	case OpPercent:
		d.node(n.Arg(0), p)
		d.sb.WriteByte('%')
	default:
		d.node(n.Arg(0), p)
		d.sb.WriteString(n.Op.String())
		d.node(n.Arg(1), p+1)
	}
	if paren {
		d.sb.WriteByte(')')
	}
}

func (d *describer) call(name string, args []*Node) {
	d.sb.WriteString(name)
	d.sb.WriteByte('(')
	d.list(args)
	d.sb.WriteByte(')')
}

func (d *describer) list(args []*Node) {
	for i, a := range args {
		if i > 0 {
			d.sb.WriteByte(',')
		}
		d.node(a, 0)
	}
}

func (d *describer) array(n *Node) {
	d.sb.WriteByte('{')
	cols := 0
	if n.Array != nil {
		cols = n.Array.Cols
	}
	for i, a := range n.Args {
		if i > 0 {
			if cols > 0 && i%cols == 0 {
				d.sb.WriteByte(';')
			} else {
				d.sb.WriteByte(',')
			}
		}
		d.node(a, 0)
	}
	d.sb.WriteByte('}')
}

// fold prints REDUCE(init,elements,LAMBDA(acc,elt,step)), followed by the
// optional parts as named clauses.
func (d *describer) fold(n *Node) {
	f := n.Fold
	d.sb.WriteString("REDUCE(")
	if f.Init != nil {
		d.node(f.Init, 0)
	}
	d.sb.WriteByte(',')
	if len(n.Args) > 1 {
		d.sb.WriteByte('(')
	}
	d.list(n.Args)
	if len(n.Args) > 1 {
		d.sb.WriteByte(')')
	}
	d.sb.WriteString(",LAMBDA(" + f.Acc + "," + f.Elt)
	if f.Idx != "" {
		d.sb.WriteString("," + f.Idx)
	}
	d.sb.WriteByte(',')
	d.node(f.Step, 0)
	d.sb.WriteByte(')')
	if f.Into != nil {
		d.sb.WriteString(",INTO(" + f.Acc)
		if f.Count != "" {
			d.sb.WriteString("," + f.Count)
		}
		d.sb.WriteByte(',')
		d.node(f.Into, 0)
		d.sb.WriteByte(')')
	}
	if f.WhenEmpty != nil {
		d.sb.WriteString(",EMPTY(")
		d.node(f.WhenEmpty, 0)
		d.sb.WriteByte(')')
	}
	d.sb.WriteByte(')')
}
