// Package consteval partially evaluates bound models. Every node gets a
// shadow that is evaluated bottom-up: nodes over constant operands become
// literals, other nodes keep their non-constant operands and receive the
// constant ones as literal leaves. Subtrees that do not change are returned
// as is, so callers can detect unchanged parts by identity.
package consteval

import (
	"log/slog"

	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/expr"
	"github.com/xuri/formula/model"
	"github.com/xuri/formula/numeric"
)

// Options configures Fold.
type Options struct {
	// OnConstantCell is called for every formula cell whose expression
	// folds to a constant.
	OnConstantCell func(cell *model.CellModel, value numeric.Value)
	Logger         *slog.Logger
}

type folder struct {
	lib  *numeric.Library
	t    numeric.Type
	opts Options

	scope  []entry
	cells  map[*model.CellModel]*model.CellModel
	done   map[*model.CellModel]bool
	active map[*model.CellModel]bool
}

// entry binds a let or fold name. A nil value shadows outer bindings of
// the name with an unknown value.
type entry struct {
	name  string
	value *expr.Node
}

func newFolder(ctx *numeric.Context, opts Options) *folder {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &folder{lib: numeric.NewLibrary(ctx), t: ctx.Type(), opts: opts}
}

// Expr folds a single expression. Cell references are not followed.
func Expr(n *expr.Node, ctx *numeric.Context) *expr.Node {
	return newFolder(ctx, Options{}).node(n)
}

// Fold returns the folded copy of m. The sections and cell models of m are
// copied and left unchanged; references to cells whose value is constant
// are replaced by the value.
func Fold(m *model.Model, ctx *numeric.Context, opts Options) *model.Model {
	f := newFolder(ctx, opts)
	f.cells = make(map[*model.CellModel]*model.CellModel, len(m.Cells))
	f.done = map[*model.CellModel]bool{}
	f.active = map[*model.CellModel]bool{}

	out := &model.Model{Type: m.Type}
	out.Root = f.section(m.Root, nil)
	for _, c := range m.Cells {
		out.Cells = append(out.Cells, f.cells[c])
	}
	for _, c := range m.Cells {
		f.cell(c)
	}
	for _, level := range m.Levels {
		folded := make([]*model.CellModel, 0, len(level))
		for _, c := range level {
			folded = append(folded, f.cells[c])
		}
		out.Levels = append(out.Levels, folded)
	}
	return out
}

// section copies the section tree and allocates the copies of its cells.
func (f *folder) section(s, parent *model.Section) *model.Section {
	c := &model.Section{Name: s.Name, Parent: parent, Area: s.Area, Template: s.Template}
	for _, cell := range s.Cells {
		copied := *cell
		copied.Section = c
		copied.Expr = nil
		f.cells[cell] = &copied
		c.Cells = append(c.Cells, &copied)
	}
	for _, in := range s.Inputs {
		c.Inputs = append(c.Inputs, f.cells[in])
	}
	for _, out := range s.Outputs {
		c.Outputs = append(c.Outputs, &model.Output{Name: out.Name, Cell: f.cells[out.Cell], Kind: out.Kind})
	}
	for _, sub := range s.Sections {
		c.Sections = append(c.Sections, f.section(sub, c))
	}
	return c
}

// cell folds the expression of the source cell c into its copy.
func (f *folder) cell(c *model.CellModel) *model.CellModel {
	folded := f.cells[c]
	if folded == nil {
		errs.Internalf("cell %s is not part of the model", c.Address())
	}
	if f.done[c] || c.IsInput() {
		return folded
	}
	if f.active[c] {
		errs.Internalf("circular reference through %s after binding", c.Address())
	}
	f.active[c] = true
	scope := f.scope
	f.scope = nil
	folded.Expr = f.node(c.Expr)
	f.scope = scope
	delete(f.active, c)
	f.done[c] = true

	if c.Formula != "" && folded.Expr.IsConstant() {
		f.opts.Logger.Debug("constant cell", "cell", c.Address(), "formula", c.Formula)
		if f.opts.OnConstantCell != nil {
			f.opts.OnConstantCell(folded, folded.Expr.Value)
		}
	}
	return folded
}

func (f *folder) let(name string, value *expr.Node) { f.scope = append(f.scope, entry{name, value}) }

func (f *folder) unlet(n int) { f.scope = f.scope[:len(f.scope)-n] }

func (f *folder) lookup(name string) (*expr.Node, bool) {
	for i := len(f.scope) - 1; i >= 0; i-- {
		if f.scope[i].name == name {
			return f.scope[i].value, true
		}
	}
	return nil, false
}

func constant(v numeric.Value) *expr.Node { return expr.Constant(v) }

// node returns the shadow of n.
func (f *folder) node(n *expr.Node) *expr.Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case expr.KindConstant:
		return n
	case expr.KindLetVar:
		if v, ok := f.lookup(n.Name); ok && v != nil {
			return v
		}
		return n
	case expr.KindCell:
		return f.cellRef(n)
	case expr.KindSubSection:
		if f.cells == nil {
			return n
		}
		target := f.cell(n.Target.(*model.CellModel))
		out := expr.SubSection(target, n.Type)
		out.Pos = n.Pos
		return out
	case expr.KindOperator:
		args, all := f.nodes(n.Args)
		if all {
			return constant(n.Op.Apply(f.lib, values(args)...))
		}
		return rebuilt(n, args)
	case expr.KindFunction:
		return f.function(n)
	case expr.KindArray:
		args, all := f.nodes(n.Args)
		if all {
			return constant(numeric.Array(n.Array.Rows, n.Array.Cols*n.Array.Sheets, values(args)))
		}
		return rebuilt(n, args)
	case expr.KindLet:
		return f.letNode(n)
	case expr.KindFold:
		return f.fold(n)
	case expr.KindSubstitution:
		args, _ := f.nodes(n.Args)
		return rebuilt(n, args)
	}
	return n
}

func (f *folder) cellRef(n *expr.Node) *expr.Node {
	if f.cells == nil {
		return n
	}
	target := f.cell(n.Target.(*model.CellModel))
	if target.IsConstant() {
		return target.Expr
	}
	out := expr.Cell(target, n.Type)
	out.Pos = n.Pos
	return out
}

// nodes folds args and reports whether every result is constant. Omitted
// arguments count as constant.
func (f *folder) nodes(args []*expr.Node) ([]*expr.Node, bool) {
	out := make([]*expr.Node, len(args))
	all := true
	for i, a := range args {
		out[i] = f.node(a)
		if out[i] != nil && !out[i].IsConstant() {
			all = false
		}
	}
	return out, all
}

// values returns the values of constant nodes, Empty for omitted ones.
func values(nodes []*expr.Node) []numeric.Value {
	out := make([]numeric.Value, len(nodes))
	for i, n := range nodes {
		if n != nil {
			out[i] = n.Value
		}
	}
	return out
}

// rebuilt returns n if args are its own arguments, and a copy of n over args
// otherwise.
func rebuilt(n *expr.Node, args []*expr.Node) *expr.Node {
	if same(n.Args, args) {
		return n
	}
	c := n.ShallowCopy()
	c.Args = args
	return c
}

func same(a, b []*expr.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (f *folder) letNode(n *expr.Node) *expr.Node {
	value := f.node(n.Args[0])
	if value.IsConstant() {
		f.let(n.Name, value)
		body := f.node(n.Args[1])
		f.unlet(1)
		return body
	}
	f.let(n.Name, nil)
	body := f.node(n.Args[1])
	f.unlet(1)
	return rebuilt(n, []*expr.Node{value, body})
}
