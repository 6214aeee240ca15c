// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package parser turns formula text into expression trees. Formulas are
// tokenized with the efp tokenizer and the tree is assembled bottom-up on
// an explicit node stack.
package parser

import (
	"fmt"
	"strings"

	"github.com/xuri/efp"
	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/expr"
	"github.com/xuri/formula/numeric"
)

// Formula is a parsed formula.
type Formula struct {
	// Text is the formula without the leading equals sign.
	Text string
	Root *expr.Node
	// Unsupported lists the calls of unknown functions in source order.
	// The tree still contains their nodes.
	Unsupported []*errs.UnsupportedExpressionError
}

// Parser holds the state of one parse. Use Parse for one-off parsing.
type Parser struct {
	typ  numeric.Type
	refs References

	text   string
	tokens []token
	at     int

	nodes []*expr.Node
	marks []int
	scope expr.LetDictionary
	folds []*foldDef

	unsupported []*errs.UnsupportedExpressionError
}

// foldDef collects the parts of a fold while its production is parsed.
type foldDef struct {
	name string
	fold *expr.Fold
}

// New returns a parser producing constants in the representation t and
// reference nodes through refs. A nil refs is Unsupported.
func New(t numeric.Type, refs References) *Parser {
	if refs == nil {
		refs = Unsupported{}
	}
	return &Parser{typ: t, refs: refs}
}

// Parse parses formula with a new parser.
func Parse(formula string, t numeric.Type, refs References) (*Formula, error) {
	return New(t, refs).Parse(formula)
}

// Parse parses one formula. A leading equals sign is optional.
func (p *Parser) Parse(formula string) (*Formula, error) {
	text := strings.TrimPrefix(strings.TrimSpace(formula), "=")
	p.text, p.at = text, 0
	p.nodes, p.marks, p.folds, p.unsupported = nil, nil, nil, nil
	p.scope, p.tokens = expr.LetDictionary{}, nil
	if strings.TrimSpace(text) == "" {
		return nil, errs.NewSyntaxError("Empty expression", text, 0)
	}
	ps := efp.ExcelParser()
	p.tokens = locate(text, ps.Parse(text))
	if err := p.expression(0); err != nil {
		return nil, err
	}
	if t, ok := p.peek(); ok {
		return nil, p.unexpected(t)
	}
	if len(p.nodes) != 1 || len(p.marks) != 0 || len(p.folds) != 0 || p.scope.Len() != 0 {
		errs.Internalf("parser stack not balanced after %q: %d nodes, %d marks", text, len(p.nodes), len(p.marks))
	}
	return &Formula{Text: text, Root: p.popNode(), Unsupported: p.unsupported}, nil
}

func (p *Parser) pushNode(n *expr.Node) { p.nodes = append(p.nodes, n) }

func (p *Parser) popNode() *expr.Node {
	n := len(p.nodes)
	if n == 0 {
		errs.Internalf("pop from empty node stack")
	}
	top := p.nodes[n-1]
	p.nodes = p.nodes[:n-1]
	return top
}

// popNodes removes the last n nodes and returns them in push order.
func (p *Parser) popNodes(n int) []*expr.Node {
	have := len(p.nodes)
	if n > have {
		errs.Internalf("pop of %d nodes from a stack of %d", n, have)
	}
	popped := append([]*expr.Node(nil), p.nodes[have-n:]...)
	p.nodes = p.nodes[:have-n]
	return popped
}

func (p *Parser) mark() { p.marks = append(p.marks, len(p.nodes)) }

// popMarkedNodes removes and returns the nodes pushed since the matching
// mark.
func (p *Parser) popMarkedNodes() []*expr.Node {
	n := len(p.marks)
	if n == 0 {
		errs.Internalf("pop of marked nodes without mark")
	}
	at := p.marks[n-1]
	p.marks = p.marks[:n-1]
	return p.popNodes(len(p.nodes) - at)
}

// expression parses binary operators binding at least as tight as minPrec.
func (p *Parser) expression(minPrec int) error {
	if err := p.unary(); err != nil {
		return err
	}
	for {
		t, ok := p.peek()
		if !ok || t.TType != efp.TokenTypeOperatorInfix {
			return nil
		}
		op, ok := infix(t)
		if !ok || op == expr.OpUnion || op == expr.OpIntersect {
			return nil
		}
		if op.Precedence() < minPrec {
			return nil
		}
		p.next()
		if err := p.expression(op.Precedence() + 1); err != nil {
			return err
		}
		args := p.popNodes(2)
		n := expr.Operator(op, args...)
		n.Pos = t.pos
		p.pushNode(n)
	}
}

func (p *Parser) unary() error {
	t, ok := p.peek()
	if !ok {
		return p.endOfInput()
	}
	if t.TType == efp.TokenTypeOperatorPrefix {
		p.next()
		if err := p.unary(); err != nil {
			return err
		}
		if t.TValue == "-" {
			n := expr.Operator(expr.OpNeg, p.popNode())
			n.Pos = t.pos
			p.pushNode(n)
		}
		return nil
	}
	if err := p.reference(); err != nil {
		return err
	}
	for {
		t, ok := p.peek()
		if !ok || t.TType != efp.TokenTypeOperatorPostfix || t.TValue != "%" {
			return nil
		}
		p.next()
		n := expr.Operator(expr.OpPercent, p.popNode())
		n.Pos = t.pos
		p.pushNode(n)
	}
}

// reference parses a primary followed by range intersections and unions.
func (p *Parser) reference() error {
	if err := p.primary(); err != nil {
		return err
	}
	for {
		t, ok := p.peek()
		if !ok || t.TType != efp.TokenTypeOperatorInfix {
			return nil
		}
		op, ok := infix(t)
		if !ok || (op != expr.OpUnion && op != expr.OpIntersect) {
			return nil
		}
		p.next()
		if err := p.primary(); err != nil {
			return err
		}
		parts := p.popNodes(2)
		var n *expr.Node
		var err error
		if op == expr.OpUnion {
			n, err = p.refs.RangeUnion(parts)
		} else {
			n, err = p.refs.RangeIntersection(parts)
		}
		if err != nil {
			return p.wrap(err, t.pos)
		}
		p.pushNode(n)
	}
}

func (p *Parser) primary() error {
	t, ok := p.next()
	if !ok {
		return p.endOfInput()
	}
	switch t.TType {
	case efp.TokenTypeOperand:
		return p.operand(t)
	case efp.TokenTypeFunction:
		if t.TSubType != efp.TokenSubTypeStart {
			return p.unexpected(t)
		}
		switch name := strings.TrimPrefix(strings.ToUpper(t.TValue), "_XLFN."); name {
		case "ARRAY":
			return p.array(t)
		case "LET":
			return p.let(t)
		case "REDUCE":
			return p.reduce(t)
		default:
			return p.call(name, t)
		}
	case efp.TokenTypeSubexpression:
		if t.TSubType != efp.TokenSubTypeStart {
			return p.unexpected(t)
		}
		if err := p.expression(0); err != nil {
			return err
		}
		return p.expect(efp.TokenTypeSubexpression, efp.TokenSubTypeStop)
	}
	return p.unexpected(t)
}

func (p *Parser) operand(t token) error {
	var n *expr.Node
	switch t.TSubType {
	case efp.TokenSubTypeNumber:
		v, ok := p.typ.Parse(t.TValue)
		if !ok {
			return errs.NewSyntaxError(fmt.Sprintf("Invalid number %s", t.TValue), p.text, t.pos)
		}
		n = expr.Constant(numeric.Num(v))
	case efp.TokenSubTypeText:
		n = expr.Constant(numeric.Str(t.TValue))
	case efp.TokenSubTypeLogical:
		n = expr.Constant(numeric.Num(p.typ.FromBool(strings.EqualFold(t.TValue, "TRUE"))))
	case efp.TokenSubTypeError:
		n = expr.Constant(numeric.Num(p.typ.Err()))
	case efp.TokenSubTypeRange:
		return p.rangeOperand(t)
	default:
		return p.unexpected(t)
	}
	n.Pos = t.pos
	p.pushNode(n)
	return nil
}

// rangeOperand resolves let names and hands everything else to the
// reference extension points.
func (p *Parser) rangeOperand(t token) error {
	if e, ok := p.scope.Find(strings.ToUpper(t.TValue)); ok {
		n := expr.LetVar(e.Name, e.Type)
		n.Pos = t.pos
		p.pushNode(n)
		return nil
	}
	fromText, toText, isRange := strings.Cut(t.TValue, ":")
	sheet, from := expr.SplitSheet(fromText)
	if !isRange {
		n, err := p.cellOrName(sheet, from, t.pos)
		if err != nil {
			return p.wrap(err, t.pos)
		}
		p.pushNode(n)
		return nil
	}
	a, err := p.cellOrName(sheet, from, t.pos)
	if err != nil {
		return p.wrap(err, t.pos)
	}
	toSheet, to := expr.SplitSheet(toText)
	if toSheet != "" {
		sheet = toSheet
	}
	b, err := p.cellOrName(sheet, to, t.pos+len(fromText)+1)
	if err != nil {
		return p.wrap(err, t.pos)
	}
	n, err := p.refs.Range(a, b)
	if err != nil {
		return p.wrap(err, t.pos)
	}
	p.pushNode(n)
	return nil
}

func (p *Parser) cellOrName(sheet, local string, pos int) (*expr.Node, error) {
	if _, _, err := expr.SplitCellName(local); err == nil || sheet != "" {
		return p.refs.CellA1(sheet, local, pos)
	}
	return p.refs.Named(local, pos)
}

// arguments parses a parenthesized argument list after the opening token
// has been consumed, pushing nil for omitted arguments.
func (p *Parser) arguments() ([]*expr.Node, error) {
	p.mark()
	if t, ok := p.peek(); ok && t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop {
		p.next()
		return p.popMarkedNodes(), nil
	}
	for {
		t, ok := p.peek()
		if !ok {
			return nil, p.endOfInput()
		}
		if t.TType == efp.TokenTypeArgument || (t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop) {
			p.pushNode(nil)
		} else if err := p.expression(0); err != nil {
			return nil, err
		}
		t, ok = p.next()
		switch {
		case !ok:
			return nil, p.endOfInput()
		case t.TType == efp.TokenTypeArgument:
			continue
		case t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop:
			return p.popMarkedNodes(), nil
		}
		return nil, p.unexpected(t)
	}
}

func (p *Parser) call(name string, t token) error {
	args, err := p.arguments()
	if err != nil {
		return err
	}
	argPos := t.pos + len(t.TValue) + 1
	info, known := expr.Lookup(name)
	if !known {
		p.unsupported = append(p.unsupported, errs.NewUnsupportedFunction(name, p.text, argPos))
	} else if !info.Accepts(len(args)) {
		return errs.NewSyntaxError(fmt.Sprintf("Function %s expects %s arguments, got %d", name, info.Arity(), len(args)), p.text, argPos)
	}
	if shaped := shapedArg(name); shaped >= 0 && shaped < len(args) && args[shaped] != nil && args[shaped].Kind == expr.KindRangeRef {
		if args[shaped], err = p.refs.ShapedRange(args[shaped]); err != nil {
			return p.wrap(err, argPos)
		}
	}
	n := expr.Call(name, args...)
	n.Pos = t.pos
	p.pushNode(n)
	return nil
}

// shapedArg returns the position of the argument of a lookup function
// whose rows and columns are significant, or -1.
func shapedArg(name string) int {
	switch name {
	case "INDEX":
		return 0
	case "MATCH":
		return 1
	}
	return -1
}

func (p *Parser) array(start token) error {
	p.mark()
	var rows, cols int
	for {
		if err := p.expect(efp.TokenTypeFunction, efp.TokenSubTypeStart); err != nil {
			return err
		}
		p.mark()
		if _, err := p.arrayRow(); err != nil {
			return err
		}
		row := p.popMarkedNodes()
		if rows == 0 {
			cols = len(row)
		} else if len(row) != cols {
			return errs.NewSyntaxError("Array rows differ in length", p.text, start.pos)
		}
		for _, n := range row {
			p.pushNode(n)
		}
		rows++
		t, ok := p.next()
		switch {
		case !ok:
			return p.endOfInput()
		case t.TType == efp.TokenTypeArgument:
			continue
		case t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop:
			n := expr.Array(expr.NewArrayDescriptor(rows, cols), p.popMarkedNodes())
			n.Pos = start.pos
			p.pushNode(n)
			return nil
		}
		return p.unexpected(t)
	}
}

// arrayRow parses the elements of one array row up to its closing token.
func (p *Parser) arrayRow() (int, error) {
	count := 0
	for {
		if err := p.expression(0); err != nil {
			return count, err
		}
		count++
		t, ok := p.next()
		switch {
		case !ok:
			return count, p.endOfInput()
		case t.TType == efp.TokenTypeArgument:
			continue
		case t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop:
			return count, nil
		}
		return count, p.unexpected(t)
	}
}

// let parses LET(name1, value1, [name2, value2, ...] body).
func (p *Parser) let(start token) error {
	var names []string
	for {
		name, err := p.name()
		if err != nil {
			return err
		}
		if err = p.expect(efp.TokenTypeArgument, ""); err != nil {
			return err
		}
		if err = p.expression(0); err != nil {
			return err
		}
		if err = p.expect(efp.TokenTypeArgument, ""); err != nil {
			return err
		}
		value := p.popNode()
		p.scope.Let(name, value.Type, nil)
		p.pushNode(value)
		names = append(names, name)
		if !p.atNameArgument() {
			break
		}
	}
	if err := p.expression(0); err != nil {
		return err
	}
	if err := p.expect(efp.TokenTypeFunction, efp.TokenSubTypeStop); err != nil {
		return err
	}
	body := p.popNode()
	for i := len(names) - 1; i >= 0; i-- {
		p.scope.Unlet(names[i])
		n := expr.Let(names[i], p.popNode(), body)
		n.Pos = start.pos
		body = n
	}
	p.pushNode(body)
	return nil
}

// atNameArgument reports whether the next tokens are a plain name followed
// by an argument separator.
func (p *Parser) atNameArgument() bool {
	if p.at+1 >= len(p.tokens) {
		return false
	}
	t, sep := p.tokens[p.at], p.tokens[p.at+1]
	return t.TType == efp.TokenTypeOperand && t.TSubType == efp.TokenSubTypeRange &&
		isName(t.TValue) && sep.TType == efp.TokenTypeArgument
}

// reduce parses REDUCE(init, elements, LAMBDA(acc, elt, [idx,] step)).
func (p *Parser) reduce(start token) error {
	p.makeNewFoldDef("REDUCE")
	def := p.folds[len(p.folds)-1]
	if t, ok := p.peek(); ok && t.TType == efp.TokenTypeArgument {
		p.pushNode(nil)
	} else if err := p.expression(0); err != nil {
		return err
	}
	if err := p.expect(efp.TokenTypeArgument, ""); err != nil {
		return err
	}
	if err := p.expression(0); err != nil {
		return err
	}
	if err := p.expect(efp.TokenTypeArgument, ""); err != nil {
		return err
	}
	lambda, ok := p.next()
	if !ok {
		return p.endOfInput()
	}
	if lambda.TType != efp.TokenTypeFunction || lambda.TSubType != efp.TokenSubTypeStart || !strings.EqualFold(lambda.TValue, "LAMBDA") {
		return errs.NewSyntaxError("REDUCE expects a LAMBDA", p.text, lambda.pos)
	}
	var params []string
	for p.atNameArgument() {
		name, _ := p.name()
		p.next()
		params = append(params, name)
	}
	if len(params) < 2 || len(params) > 3 {
		return errs.NewSyntaxError("LAMBDA of REDUCE expects an accumulator, an element and an optional index", p.text, lambda.pos)
	}
	def.fold.Acc, def.fold.Elt = params[0], params[1]
	if len(params) == 3 {
		def.fold.Idx = params[2]
	}
	p.scope.Mark()
	for _, name := range params {
		p.scope.Let(name, expr.Unknown, nil)
	}
	if err := p.expression(0); err != nil {
		return err
	}
	p.scope.PopMarked()
	if err := p.expect(efp.TokenTypeFunction, efp.TokenSubTypeStop); err != nil {
		return err
	}
	if err := p.expect(efp.TokenTypeFunction, efp.TokenSubTypeStop); err != nil {
		return err
	}
	def.fold.Step = p.popNode()
	parts := p.popNodes(2)
	def.fold.Init = parts[0]
	n := p.finalizeLastFoldDef("REDUCE", parts[1])
	n.Pos = start.pos
	p.pushNode(n)
	return nil
}

func (p *Parser) makeNewFoldDef(name string) {
	p.folds = append(p.folds, &foldDef{name: name, fold: &expr.Fold{}})
}

func (p *Parser) finalizeLastFoldDef(name string, elements ...*expr.Node) *expr.Node {
	n := len(p.folds)
	if n == 0 || p.folds[n-1].name != name {
		errs.Internalf("fold definition %s closed without being opened", name)
	}
	def := p.folds[n-1]
	p.folds = p.folds[:n-1]
	return expr.NewFold(def.fold, elements...)
}

func (p *Parser) name() (string, error) {
	t, ok := p.next()
	if !ok {
		return "", p.endOfInput()
	}
	if t.TType != efp.TokenTypeOperand || t.TSubType != efp.TokenSubTypeRange || !isName(t.TValue) {
		return "", errs.NewSyntaxError(fmt.Sprintf("Expected a name, found %s", t.TValue), p.text, t.pos)
	}
	return strings.ToUpper(t.TValue), nil
}

// isName reports whether s can name a let binding: a letter or underscore
// followed by letters, digits, underscores and periods, and not a cell.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
		if i == 0 && !letter {
			return false
		}
		if !letter && r != '.' && (r < '0' || r > '9') {
			return false
		}
	}
	_, _, err := expr.CellNameToCoordinates(s)
	return err != nil
}

func infix(t token) (expr.Op, bool) {
	switch t.TSubType {
	case efp.TokenSubTypeIntersection:
		return expr.OpIntersect, true
	case efp.TokenSubTypeUnion:
		return expr.OpUnion, true
	}
	return expr.InfixOp(t.TValue)
}

func (p *Parser) expect(typ, subType string) error {
	t, ok := p.next()
	if !ok {
		return p.endOfInput()
	}
	if t.TType != typ || (subType != "" && t.TSubType != subType) {
		return p.unexpected(t)
	}
	return nil
}

func (p *Parser) peek() (token, bool) {
	if p.at < len(p.tokens) {
		return p.tokens[p.at], true
	}
	return token{}, false
}

func (p *Parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.at++
	}
	return t, ok
}

func (p *Parser) unexpected(t token) error {
	what := t.TValue
	if what == "" {
		what = strings.ToLower(t.TType + " " + t.TSubType)
	}
	return errs.NewSyntaxError(fmt.Sprintf("Unexpected %s", strings.TrimSpace(what)), p.text, t.pos)
}

func (p *Parser) endOfInput() error {
	return errs.NewSyntaxError("Unexpected end of expression", p.text, len(p.text))
}

// wrap attaches the position marker to an error of a reference extension
// point, keeping it matchable with errors.Is.
func (p *Parser) wrap(err error, pos int) error {
	return fmt.Errorf("%w in expression %s", err, errs.Mark(p.text, pos))
}
