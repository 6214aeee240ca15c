// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package expr defines the expression tree shared by the parser, the model
// builder, the constant folder and the code generator.
//
// A Node is a tagged variant: Kind selects which of the payload fields are
// meaningful. Every node owns its ordered argument list, and node identity
// is significant: stages that rewrite a tree return the very same pointer
// for subtrees they leave unchanged.
package expr

import (
	"fmt"

	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/numeric"
)

// Kind selects the variant of a Node.
type Kind byte

// Node kinds.
const (
	// KindConstant is a literal value.
	KindConstant Kind = iota
	// KindOperator applies Op to one or two arguments.
	KindOperator
	// KindFunction calls the function Name with a variable argument list.
	// Trailing arguments may be omitted.
	KindFunction
	// KindArray is an array of Array.Count() element arguments in row
	// major order.
	KindArray
	// KindLet binds Name to Args[0] while evaluating Args[1].
	KindLet
	// KindLetVar reads the innermost binding of Name.
	KindLetVar
	// KindFold reduces its element arguments as described by Fold.
	KindFold
	// KindSubstitution is replaced by its arguments in the argument list
	// of its parent.
	KindSubstitution
	// KindCellRef is an unresolved cell reference produced by the parser.
	KindCellRef
	// KindRangeRef is an unresolved range reference produced by the
	// parser. A composite range combines its arguments with Op.
	KindRangeRef
	// KindCell is a reference to a bound cell.
	KindCell
	// KindSubSection is the array of the values of one template cell
	// across all rows of a repeating section.
	KindSubSection
)

var kindNames = [...]string{
	KindConstant:     "constant",
	KindOperator:     "operator",
	KindFunction:     "function",
	KindArray:        "array",
	KindLet:          "let",
	KindLetVar:       "letvar",
	KindFold:         "fold",
	KindSubstitution: "substitution",
	KindCellRef:      "cellref",
	KindRangeRef:     "rangeref",
	KindCell:         "cell",
	KindSubSection:   "subsection",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// DataType is the static type of an expression.
type DataType byte

// Data types. Booleans and dates are numeric.
const (
	Unknown DataType = iota
	Numeric
	String
)

func (t DataType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case String:
		return "string"
	}
	return "unknown"
}

// Ref is the payload of an unresolved reference. Columns and rows are
// 1-based; ToCol and ToRow are zero for single cells.
type Ref struct {
	Sheet        string
	Name         string
	Col, Row     int
	ToCol, ToRow int
}

// IsRange reports whether r spans more than a single position.
func (r *Ref) IsRange() bool { return r.ToCol != 0 || r.ToRow != 0 }

// Target is a bound cell referenced by KindCell and KindSubSection nodes.
type Target interface {
	// Address returns the qualified A1 address of the cell.
	Address() string
}

// Fold describes a reduction. The step body sees the accumulator as Acc,
// the current element as Elt and, if set, its 1-based position as Idx. The
// into body sees the final accumulator as Acc and, if set, the number of
// elements as Count.
type Fold struct {
	Acc, Elt   string
	Idx, Count string

	// Init is the initial accumulator. If nil, the first element seeds the
	// accumulator and the step starts at the second element.
	Init *Node
	Step *Node
	// Into computes the result from the final accumulator. If nil, the
	// result is the accumulator.
	Into *Node
	// WhenEmpty is the result for an empty element list. If nil, an empty
	// list yields Init, or an empty value if Init is nil too.
	WhenEmpty *Node

	// NumericOnly drops text and blank elements of arrays and sections
	// before reducing.
	NumericOnly bool
	// MayRearrange allows reordering the elements.
	MayRearrange bool
	// MayReduce allows reducing subsets of the elements independently.
	MayReduce bool
}

// Node is an expression tree node.
type Node struct {
	Kind Kind
	Op   Op
	// Name is the function name of KindFunction and the bound name of
	// KindLet and KindLetVar.
	Name  string
	Value numeric.Value
	Args  []*Node

	Array  *ArrayDescriptor
	Fold   *Fold
	Ref    *Ref
	Target Target

	// Pos is the byte offset of the node in its formula text, or -1.
	Pos  int
	Type DataType
}

// Constant returns a literal node.
func Constant(v numeric.Value) *Node {
	n := &Node{Kind: KindConstant, Value: v, Pos: -1}
	switch v.Type {
	case numeric.TypeNumber:
		n.Type = Numeric
	case numeric.TypeString:
		n.Type = String
	case numeric.TypeEmpty:
		n.Type = Numeric
	}
	return n
}

// Operator returns an operator node.
func Operator(op Op, args ...*Node) *Node {
	n := &Node{Kind: KindOperator, Op: op, Args: args, Pos: -1, Type: Numeric}
	if op == OpConcat {
		n.Type = String
	}
	return n
}

// Call returns a function node. The result type is taken from the
// function registry.
func Call(name string, args ...*Node) *Node {
	n := &Node{Kind: KindFunction, Name: name, Args: args, Pos: -1}
	n.Type = resultType(name, args)
	return n
}

// Array returns an array node over elements in row major order.
func Array(desc *ArrayDescriptor, elements []*Node) *Node {
	return &Node{Kind: KindArray, Array: desc, Args: elements, Pos: -1, Type: Unknown}
}

// Let returns a node binding name to value in body.
func Let(name string, value, body *Node) *Node {
	return &Node{Kind: KindLet, Name: name, Args: []*Node{value, body}, Pos: -1, Type: body.Type}
}

// LetVar returns a reference to the let or fold binding name.
func LetVar(name string, typ DataType) *Node {
	return &Node{Kind: KindLetVar, Name: name, Pos: -1, Type: typ}
}

// NewFold returns a fold node over elements.
func NewFold(f *Fold, elements ...*Node) *Node {
	n := &Node{Kind: KindFold, Fold: f, Args: elements, Pos: -1, Type: Numeric}
	switch {
	case f.Into != nil:
		n.Type = f.Into.Type
	case f.Step != nil:
		n.Type = f.Step.Type
	}
	return n
}

// Substitution returns a node spliced into its parent's argument list.
func Substitution(args ...*Node) *Node {
	return &Node{Kind: KindSubstitution, Args: args, Pos: -1}
}

// Cell returns a reference to a bound cell.
func Cell(t Target, typ DataType) *Node {
	return &Node{Kind: KindCell, Target: t, Pos: -1, Type: typ}
}

// SubSection returns the aggregate view of the template cell t across the
// rows of its section.
func SubSection(t Target, typ DataType) *Node {
	return &Node{Kind: KindSubSection, Target: t, Pos: -1, Type: typ}
}

// IsConstant reports whether n is a literal.
func (n *Node) IsConstant() bool { return n != nil && n.Kind == KindConstant }

// Arg returns the i-th argument or nil if it is omitted.
func (n *Node) Arg(i int) *Node {
	if i < len(n.Args) {
		return n.Args[i]
	}
	return nil
}

// ShallowCopy returns a copy of n sharing its children.
func (n *Node) ShallowCopy() *Node {
	c := *n
	c.Args = append([]*Node(nil), n.Args...)
	if n.Fold != nil {
		f := *n.Fold
		c.Fold = &f
	}
	return &c
}

// Clone returns a deep copy of the tree rooted at n. Bound targets and
// array descriptors are shared.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := n.ShallowCopy()
	for i, a := range c.Args {
		c.Args[i] = a.Clone()
	}
	if c.Fold != nil {
		c.Fold.Init = c.Fold.Init.Clone()
		c.Fold.Step = c.Fold.Step.Clone()
		c.Fold.Into = c.Fold.Into.Clone()
		c.Fold.WhenEmpty = c.Fold.WhenEmpty.Clone()
	}
	return c
}

// Children returns the argument nodes followed by the non-nil fold bodies.
func (n *Node) Children() []*Node {
	if n.Fold == nil {
		return n.Args
	}
	out := append([]*Node(nil), n.Args...)
	for _, b := range []*Node{n.Fold.Init, n.Fold.Step, n.Fold.Into, n.Fold.WhenEmpty} {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

// Walk calls fn for n and, while fn returns true, for its descendants in
// depth-first order.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Splice returns args with every substitution node replaced by its own
// arguments, recursively.
func Splice(args []*Node) []*Node {
	spliced := false
	for _, a := range args {
		if a != nil && a.Kind == KindSubstitution {
			spliced = true
			break
		}
	}
	if !spliced {
		return args
	}
	out := make([]*Node, 0, len(args))
	for _, a := range args {
		if a != nil && a.Kind == KindSubstitution {
			out = append(out, Splice(a.Args)...)
			continue
		}
		out = append(out, a)
	}
	return out
}

// Validate checks the arity contract of every node of the tree. Violations
// are reported as an *errs.InternalError.
func (n *Node) Validate() error {
	var err error
	Walk(n, func(c *Node) bool {
		if err == nil {
			err = c.validate()
		}
		return err == nil
	})
	return err
}

func (n *Node) validate() error {
	fail := func(format string, args ...interface{}) error {
		return &errs.InternalError{Message: n.Kind.String() + " " + fmt.Sprintf(format, args...)}
	}
	switch n.Kind {
	case KindConstant, KindLetVar, KindCellRef, KindCell, KindSubSection:
		if len(n.Args) != 0 {
			return fail("has %d arguments, want none", len(n.Args))
		}
	case KindOperator:
		if want := n.Op.Arity(); len(n.Args) != want {
			return fail("%s has %d arguments, want %d", n.Op, len(n.Args), want)
		}
	case KindFunction:
		if info, ok := Lookup(n.Name); ok && !info.accepts(len(n.Args)) {
			return fail("%s has %d arguments, want %s", n.Name, len(n.Args), info.arity())
		}
	case KindLet:
		if len(n.Args) != 2 || n.Name == "" {
			return fail("%q has %d arguments, want 2", n.Name, len(n.Args))
		}
	case KindArray:
		if n.Array == nil || len(n.Args) != n.Array.Count() {
			return fail("has %d elements, descriptor %v", len(n.Args), n.Array)
		}
	case KindFold:
		if n.Fold == nil || n.Fold.Step == nil || n.Fold.Acc == "" || n.Fold.Elt == "" {
			return fail("is incomplete")
		}
	case KindRangeRef:
		if n.Ref == nil && len(n.Args) < 2 {
			return fail("has %d parts, want 2 or more", len(n.Args))
		}
	}
	for _, a := range n.Args {
		if a == nil && n.Kind != KindFunction {
			return fail("has an omitted argument")
		}
	}
	return nil
}
