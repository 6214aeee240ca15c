package consteval

import (
	"github.com/xuri/formula/expr"
	"github.com/xuri/formula/numeric"
)

func (f *folder) function(n *expr.Node) *expr.Node {
	src := n
	if trimmed := expr.TrimOmitted(n.Args); len(trimmed) != len(n.Args) {
		n = n.ShallowCopy()
		n.Args = trimmed
	}
	switch n.Name {
	case "IF":
		if out, ok := f.ifNode(n); ok {
			return out
		}
	case "CHOOSE":
		if out, ok := f.choose(n); ok {
			return out
		}
	case "INDEX":
		if out, ok := f.index(n); ok {
			return out
		}
	}
	args, all := f.nodes(n.Args)
	if all && !expr.IsVolatile(n.Name) {
		return constant(f.lib.Call(n.Name, values(args)))
	}
	out := rebuilt(n, args)
	if out == n {
		return src
	}
	return out
}

// ifNode selects the branch of an IF with a constant condition.
func (f *folder) ifNode(n *expr.Node) (*expr.Node, bool) {
	cond := f.node(n.Arg(0))
	if cond == nil || !cond.IsConstant() {
		return nil, false
	}
	branch := 2
	if f.lib.Bool(cond.Value) {
		branch = 1
	}
	if branch >= len(n.Args) {
		return constant(numeric.Num(f.t.FromBool(false))), true
	}
	if n.Args[branch] == nil {
		return constant(numeric.Num(f.t.Zero())), true
	}
	return f.node(n.Args[branch]), true
}

// choose selects the alternative of a CHOOSE with a constant index.
func (f *folder) choose(n *expr.Node) (*expr.Node, bool) {
	index := f.node(n.Arg(0))
	if index == nil || !index.IsConstant() {
		return nil, false
	}
	i := f.lib.Int(index.Value)
	if i < 1 || i >= len(n.Args) {
		return constant(numeric.Num(f.t.Err())), true
	}
	if n.Args[i] == nil {
		return constant(numeric.Empty), true
	}
	return f.node(n.Args[i]), true
}

// index selects the element of an INDEX over an array node with constant
// row and column, whether or not the other elements are constant.
func (f *folder) index(n *expr.Node) (*expr.Node, bool) {
	array := f.node(n.Arg(0))
	if array == nil || array.Kind != expr.KindArray || array.Array.Sheets != 1 {
		return nil, false
	}
	pos := make([]int, 2)
	for i := 1; i <= 2; i++ {
		a := f.node(n.Arg(i))
		if a == nil {
			continue
		}
		if !a.IsConstant() {
			return nil, false
		}
		if !a.Value.IsEmpty() {
			pos[i-1] = f.lib.Int(a.Value)
		}
	}
	at, ok := numeric.IndexPosition(array.Array.Rows, array.Array.Cols, pos[0], pos[1])
	if !ok {
		return constant(numeric.Num(f.t.Err())), true
	}
	return array.Args[at], true
}

// fold folds the elements and bodies of a reduction. A reduction over
// constant elements is evaluated; a rearrangeable and reducible one without
// index and count pre-reduces its constant elements into the initial value.
func (f *folder) fold(n *expr.Node) *expr.Node {
	args, all := f.nodes(n.Args)
	fd := n.Fold
	init := f.node(fd.Init)
	whenEmpty := f.node(fd.WhenEmpty)
	initConst := init == nil || init.IsConstant()

	if all && initConst && (whenEmpty == nil || whenEmpty.IsConstant()) {
		if v, ok := f.reduce(fd, init, whenEmpty, f.lib.FoldElements(values(args), fd.NumericOnly)); ok {
			return constant(v)
		}
	}

	out := n.ShallowCopy()
	out.Args = args
	folded := out.Fold
	folded.Init, folded.WhenEmpty = init, whenEmpty

	if !all && initConst && fd.MayRearrange && fd.MayReduce && fd.Idx == "" && fd.Count == "" {
		var constants, rest []*expr.Node
		for _, a := range args {
			if a != nil && a.IsConstant() {
				constants = append(constants, a)
			} else {
				rest = append(rest, a)
			}
		}
		elts := f.lib.FoldElements(values(constants), fd.NumericOnly)
		if len(elts) > 0 {
			if acc, ok := f.reduce(&expr.Fold{Acc: fd.Acc, Elt: fd.Elt, Init: init, Step: fd.Step}, init, nil, elts); ok {
				folded.Init = constant(acc)
				folded.WhenEmpty = nil
				out.Args = rest
			}
		}
	}

	f.let(fd.Acc, nil)
	f.let(fd.Elt, nil)
	f.let(fd.Idx, nil)
	f.let(fd.Count, nil)
	folded.Step = f.node(fd.Step)
	folded.Into = f.node(fd.Into)
	f.unlet(4)

	if same(n.Args, out.Args) && folded.Init == fd.Init && folded.WhenEmpty == fd.WhenEmpty &&
		folded.Step == fd.Step && folded.Into == fd.Into {
		return n
	}
	return out
}

// reduce evaluates a reduction over constant element values. It fails if
// the step or into body does not fold to a constant.
func (f *folder) reduce(fd *expr.Fold, init, whenEmpty *expr.Node, elts []numeric.Value) (numeric.Value, bool) {
	if len(elts) == 0 && whenEmpty != nil {
		return whenEmpty.Value, true
	}
	var acc numeric.Value
	start := 0
	switch {
	case init != nil:
		acc = init.Value
	case len(elts) > 0:
		acc, start = elts[0], 1
	}
	for i := start; i < len(elts); i++ {
		f.let(fd.Acc, constant(acc))
		f.let(fd.Elt, constant(elts[i]))
		f.let(fd.Idx, constant(numeric.Num(f.t.FromInt(int64(i+1)))))
		step := f.node(fd.Step)
		f.unlet(3)
		if !step.IsConstant() {
			return numeric.Empty, false
		}
		acc = step.Value
	}
	if fd.Into == nil {
		return acc, true
	}
	f.let(fd.Acc, constant(acc))
	f.let(fd.Count, constant(numeric.Num(f.t.FromInt(int64(len(elts))))))
	into := f.node(fd.Into)
	f.unlet(2)
	if !into.IsConstant() {
		return numeric.Empty, false
	}
	return into.Value, true
}
