package codegen

import (
	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/expr"
	"github.com/xuri/formula/model"
	"github.com/xuri/formula/numeric"
)

// eval is a lowered expression.
type eval func(fr *frame) numeric.Value

// frame holds the let and fold variables of one run of a unit.
type frame struct {
	in   *Instance
	vars []numeric.Value
}

// unit is a lowered body with its own frame layout: a cell expression, or
// the step or into body of a fold. Fold bodies receive their parameters in
// the first slots, followed by the captured outer variables.
type unit struct {
	size int
	body eval
}

func (u *unit) run(in *Instance) numeric.Value {
	return u.body(&frame{in: in, vars: make([]numeric.Value, u.size)})
}

type compiler struct {
	lib      *numeric.Library
	cells    map[*model.CellModel]*cellCode
	sections map[*model.Section]*sectionCode
	refs     map[*model.CellModel]int
}

func (c *compiler) cell(cc *cellCode) {
	cm := cc.cell
	if cm.IsInput() {
		name, kind := cm.Input, cm.InputKind
		cc.unit = &unit{body: func(fr *frame) numeric.Value { return fr.in.input(name, kind) }}
		return
	}
	u := &unitCompiler{c: c, sec: c.sections[cm.Section]}
	body := u.node(cm.Expr)
	cc.unit = &unit{size: u.size, body: body}
}

// unitCompiler lowers the nodes of one unit. The let dictionary maps the
// visible names to frame slots.
type unitCompiler struct {
	c    *compiler
	sec  *sectionCode
	lets expr.LetDictionary
	size int
}

func (u *unitCompiler) alloc() int {
	u.size++
	return u.size - 1
}

func constantEval(v numeric.Value) eval { return func(*frame) numeric.Value { return v } }

func (u *unitCompiler) node(n *expr.Node) eval {
	if n == nil {
		return constantEval(numeric.Empty)
	}
	switch n.Kind {
	case expr.KindConstant:
		return constantEval(n.Value)
	case expr.KindLetVar:
		e, ok := u.lets.Find(n.Name)
		if !ok {
			errs.Internalf("unbound name %s", n.Name)
		}
		slot := e.Value.(int)
		return func(fr *frame) numeric.Value { return fr.vars[slot] }
	case expr.KindCell:
		return u.cellRef(n)
	case expr.KindSubSection:
		return u.subSection(n)
	case expr.KindOperator:
		return u.operator(n)
	case expr.KindFunction:
		return u.function(n)
	case expr.KindArray:
		return u.array(n)
	case expr.KindLet:
		value := u.node(n.Args[0])
		slot := u.alloc()
		u.lets.Let(n.Name, n.Args[0].Type, slot)
		body := u.node(n.Args[1])
		u.lets.Unlet(n.Name)
		return func(fr *frame) numeric.Value {
			fr.vars[slot] = value(fr)
			return body(fr)
		}
	case expr.KindFold:
		return u.fold(n)
	}
	errs.Internalf("cannot lower %s node %s", n.Kind, n)
	return nil
}

func (u *unitCompiler) nodes(args []*expr.Node) []eval {
	out := make([]eval, len(args))
	for i, a := range args {
		out[i] = u.node(a)
	}
	return out
}

// up returns the number of parent steps from the instance running the unit
// to the instance of s.
func (u *unitCompiler) up(s *sectionCode) int {
	up := u.sec.depth - s.depth
	for p := u.sec; p != s; p = p.parent {
		if p == nil {
			errs.Internalf("section %s is not an ancestor of %s", s.section.Path(), u.sec.section.Path())
		}
	}
	return up
}

func (u *unitCompiler) cellRef(n *expr.Node) eval {
	target := u.c.cells[n.Target.(*model.CellModel)]
	up := u.up(u.c.sections[target.cell.Section])
	return func(fr *frame) numeric.Value { return fr.in.ancestor(up).value(target) }
}

// subSection lowers the view of a template cell across the records of its
// section to a single column array.
func (u *unitCompiler) subSection(n *expr.Node) eval {
	target := u.c.cells[n.Target.(*model.CellModel)]
	child := u.c.sections[target.cell.Section]
	if child.parent == nil {
		errs.Internalf("sub-section reference to workbook cell %s", target.cell.Address())
	}
	up := u.up(child.parent)
	return func(fr *frame) numeric.Value {
		rows := fr.in.ancestor(up).records(child)
		values := make([]numeric.Value, len(rows))
		for i, r := range rows {
			values[i] = r.value(target)
		}
		return numeric.Array(len(values), 1, values)
	}
}

func (u *unitCompiler) operator(n *expr.Node) eval {
	lib, op := u.c.lib, n.Op
	args := u.nodes(n.Args)
	if len(args) == 1 {
		a := args[0]
		return func(fr *frame) numeric.Value { return op.Apply(lib, a(fr)) }
	}
	a, b := args[0], args[1]
	return func(fr *frame) numeric.Value { return op.Apply(lib, a(fr), b(fr)) }
}

func (u *unitCompiler) function(n *expr.Node) eval {
	lib := u.c.lib
	t := lib.Type()
	args := expr.TrimOmitted(n.Args)
	switch n.Name {
	case "IF":
		cond := u.node(args[0])
		branches := [2]eval{}
		for i := range branches {
			switch {
			case i+1 >= len(args):
				branches[i] = constantEval(numeric.Num(t.FromBool(false)))
			case args[i+1] == nil:
				branches[i] = constantEval(numeric.Num(t.Zero()))
			default:
				branches[i] = u.node(args[i+1])
			}
		}
		return func(fr *frame) numeric.Value {
			if lib.Bool(cond(fr)) {
				return branches[0](fr)
			}
			return branches[1](fr)
		}
	case "CHOOSE":
		index := u.node(args[0])
		alts := u.nodes(args)
		return func(fr *frame) numeric.Value {
			i := lib.Int(index(fr))
			if i < 1 || i >= len(alts) {
				return numeric.Num(t.Err())
			}
			return alts[i](fr)
		}
	}
	fn, ok := lib.Func(n.Name)
	if !ok {
		errs.Internalf("function %s has no implementation for %s", n.Name, t)
	}
	evals := u.nodes(args)
	return func(fr *frame) numeric.Value {
		values := make([]numeric.Value, len(evals))
		for i, e := range evals {
			values[i] = e(fr)
		}
		return fn(lib, values)
	}
}

// array lowers an array with non-constant elements. The constant elements
// are kept in a shared template that every evaluation copies; arrays that
// do not depend on let or fold variables are memoized per instance.
func (u *unitCompiler) array(n *expr.Node) eval {
	template := make([]numeric.Value, len(n.Args))
	var slots []int
	var evals []eval
	for i, a := range n.Args {
		if a.IsConstant() {
			template[i] = a.Value
			continue
		}
		slots = append(slots, i)
		evals = append(evals, u.node(a))
	}
	rows, cols := n.Array.Rows, n.Array.Cols*n.Array.Sheets
	build := func(fr *frame) numeric.Value {
		values := append([]numeric.Value(nil), template...)
		for i, at := range slots {
			values[at] = evals[i](fr)
		}
		return numeric.Array(rows, cols, values)
	}
	if len(freeVars(n)) > 0 {
		return build
	}
	memo := u.sec.alloc()
	return func(fr *frame) numeric.Value {
		return fr.in.memo(memo, func() numeric.Value { return build(fr) })
	}
}

// body lowers a fold body to its own unit. The parameters take the first
// slots, one per entry of params, and the free variables of the body the
// following ones; outer holds the slots of the free variables in the
// enclosing frame.
func (u *unitCompiler) body(n *expr.Node, params ...string) (body *unit, outer []int) {
	if n == nil {
		return nil, nil
	}
	sub := &unitCompiler{c: u.c, sec: u.sec}
	for _, p := range params {
		slot := sub.alloc()
		if p != "" {
			sub.lets.Let(p, expr.Unknown, slot)
		}
	}
	for _, name := range freeVars(n, params...) {
		e, ok := u.lets.Find(name)
		if !ok {
			errs.Internalf("unbound name %s in fold body", name)
		}
		outer = append(outer, e.Value.(int))
		sub.lets.Let(name, e.Type, sub.alloc())
	}
	b := sub.node(n)
	return &unit{size: sub.size, body: b}, outer
}

// enter returns the frame of a run of body with the captured variables
// copied from fr after the first params slots.
func (u *unit) enter(fr *frame, outer []int, params int) *frame {
	vars := make([]numeric.Value, u.size)
	for i, slot := range outer {
		vars[params+i] = fr.vars[slot]
	}
	return &frame{in: fr.in, vars: vars}
}

func (u *unitCompiler) fold(n *expr.Node) eval {
	lib := u.c.lib
	t := lib.Type()
	f := n.Fold
	elements := u.nodes(n.Args)
	var init, whenEmpty eval
	if f.Init != nil {
		init = u.node(f.Init)
	}
	if f.WhenEmpty != nil {
		whenEmpty = u.node(f.WhenEmpty)
	}
	step, stepOuter := u.body(f.Step, f.Acc, f.Elt, f.Idx)
	into, intoOuter := u.body(f.Into, f.Acc, f.Count)
	numericOnly := f.NumericOnly

	return func(fr *frame) numeric.Value {
		values := make([]numeric.Value, len(elements))
		for i, e := range elements {
			values[i] = e(fr)
		}
		elts := lib.FoldElements(values, numericOnly)
		if len(elts) == 0 && whenEmpty != nil {
			return whenEmpty(fr)
		}
		acc, start := numeric.Empty, 0
		switch {
		case init != nil:
			acc = init(fr)
		case len(elts) > 0:
			acc, start = elts[0], 1
		}
		if start < len(elts) {
			sf := step.enter(fr, stepOuter, 3)
			for i := start; i < len(elts); i++ {
				sf.vars[0], sf.vars[1] = acc, elts[i]
				sf.vars[2] = numeric.Num(t.FromInt(int64(i + 1)))
				acc = step.body(sf)
			}
		}
		if into == nil {
			return acc
		}
		inf := into.enter(fr, intoOuter, 2)
		inf.vars[0], inf.vars[1] = acc, numeric.Num(t.FromInt(int64(len(elts))))
		return into.body(inf)
	}
}
