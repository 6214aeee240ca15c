// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package errs defines the error taxonomy shared by all compilation stages.
// Every error a compilation can report is one of SyntaxError,
// UnsupportedExpressionError, TypeError, BindingError or InternalError, and
// carries a location trail that is extended while the error travels from
// the failing expression up to the declared output referencing it.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRangesNotSupported is returned by parser configurations without
	// range support for any range construct.
	ErrRangesNotSupported = errors.New("ranges are not supported")
	// ErrReferencesNotSupported is returned by parser configurations without
	// cell reference support.
	ErrReferencesNotSupported = errors.New("cell references are not supported")
	// ErrResetUnsupported is returned by Reset on instances of engines
	// compiled without re-evaluation support.
	ErrResetUnsupported = errors.New("engine does not support reset")
	// ErrCircularReference is wrapped by the binding error reported for a
	// self-referential formula graph.
	ErrCircularReference = errors.New("circular reference")
	// ErrUnknownOutput is returned by instance accessors for names that were
	// not bound as outputs.
	ErrUnknownOutput = errors.New("unknown output")
)

// Location is the trail of cells from the failing expression up to the
// declared output.
type Location struct {
	Trail []string
}

// addCell appends a cell to the trail. The first cell is the one containing
// the failing expression, every later one is a referrer.
func (l *Location) addCell(cell string) {
	if len(l.Trail) == 0 {
		l.Trail = append(l.Trail, "Cell containing expression is "+cell+".")
		return
	}
	l.Trail = append(l.Trail, "Referenced by cell "+cell+".")
}

func (l *Location) format(msg string) string {
	if len(l.Trail) == 0 {
		return msg
	}
	return msg + "\n" + strings.Join(l.Trail, "\n")
}

func (l *Location) location() *Location { return l }

type locatable interface {
	error
	location() *Location
}

// WithCell records that err surfaced while compiling the given cell and
// returns err. Errors outside the taxonomy are wrapped as a BindingError so
// they can carry the trail.
func WithCell(err error, cell string) error {
	if err == nil {
		return nil
	}
	var l locatable
	if !errors.As(err, &l) {
		be := &BindingError{Message: err.Error(), Err: err}
		be.addCell(cell)
		return be
	}
	l.location().addCell(cell)
	return err
}

// SyntaxError reports malformed formula text.
type SyntaxError struct {
	Location
	Message    string
	Expression string
	Pos        int
}

// NewSyntaxError creates a syntax error for the formula text with a marker
// at the byte offset pos.
func NewSyntaxError(msg, formula string, pos int) *SyntaxError {
	return &SyntaxError{Message: msg, Expression: Mark(formula, pos), Pos: pos}
}

func (e *SyntaxError) Error() string {
	msg := e.Message
	if e.Expression != "" {
		msg = fmt.Sprintf("%s in expression %s; error location indicated by <<?.", e.Message, e.Expression)
	}
	return e.format(msg)
}

// UnsupportedExpressionError reports a function or construct without an
// implementation for the active target. It is raised at compile time only.
type UnsupportedExpressionError struct {
	Location
	Function   string
	Expression string
	Pos        int
	Message    string
}

// NewUnsupportedFunction reports an unknown function name at the byte
// offset pos of formula.
func NewUnsupportedFunction(name, formula string, pos int) *UnsupportedExpressionError {
	return &UnsupportedExpressionError{Function: name, Expression: Mark(formula, pos), Pos: pos}
}

func (e *UnsupportedExpressionError) Error() string {
	if e.Message != "" {
		return e.format(e.Message)
	}
	return e.format(fmt.Sprintf("Unsupported function %s encountered in expression %s; error location indicated by <<?.",
		e.Function, e.Expression))
}

// TypeError reports an operand or data type mismatch.
type TypeError struct {
	Location
	Message string
}

func (e *TypeError) Error() string { return e.format(e.Message) }

// BindingError reports a declared input, output or section that does not
// match the spreadsheet.
type BindingError struct {
	Location
	Message string
	Err     error
}

// NewBindingError formats a binding error message.
func NewBindingError(format string, args ...interface{}) *BindingError {
	return &BindingError{Message: fmt.Sprintf(format, args...)}
}

func (e *BindingError) Error() string { return e.format(e.Message) }

func (e *BindingError) Unwrap() error { return e.Err }

// InternalError reports a violated compiler invariant. It is raised as a
// panic value and never recovered by the compiler.
type InternalError struct {
	Location
	Message string
}

// Internalf panics with an InternalError.
func Internalf(format string, args ...interface{}) {
	panic(&InternalError{Message: fmt.Sprintf(format, args...)})
}

func (e *InternalError) Error() string { return e.format("internal compiler error: " + e.Message) }

// Mark inserts the " <<? " position marker into formula before byte pos.
func Mark(formula string, pos int) string {
	if pos < 0 {
		return formula
	}
	if pos > len(formula) {
		pos = len(formula)
	}
	return formula[:pos] + " <<? " + strings.TrimLeft(formula[pos:], " ")
}
