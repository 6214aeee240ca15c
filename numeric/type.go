// Copyright 2016 - 2025 The excelize Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package numeric implements the interchangeable numeric representations of
// compiled engines (double, decimal and scaled integer) together with the
// spreadsheet-compatible runtime function library evaluated over them.
package numeric

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies a numeric representation.
type Kind uint8

// Numeric representations.
const (
	KindDouble Kind = iota
	KindDecimal
	KindScaled
)

func (k Kind) String() string {
	switch k {
	case KindDouble:
		return "double"
	case KindDecimal:
		return "big decimal"
	case KindScaled:
		return "scaled long"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Number is a value in the representation of a Type: Double, Decimal or
// Scaled. Mixing numbers of different types is an internal error.
type Number interface {
	isNumber()
}

// Double is a number of the double representation.
type Double float64

// Decimal is a number of the decimal representation.
type Decimal struct {
	decimal.Decimal
}

// Scaled is a number of the scaled integer representation: the unscaled
// value, to be multiplied by 10^-scale of its Type.
type Scaled int64

func (Double) isNumber() {}
func (Decimal) isNumber() {}
func (Scaled) isNumber() {}

// Type is the arithmetic contract every representation implements.
type Type interface {
	Kind() Kind
	// Scale returns the fixed number of fractional digits, or -1 when the
	// representation has no fixed scale.
	Scale() int
	String() string

	Zero() Number
	One() Number
	// Err is the numeric error sentinel returned by undefined operations.
	Err() Number
	IsErr(n Number) bool

	FromInt(v int64) Number
	FromFloat(v float64) Number
	FromDecimal(v decimal.Decimal) Number
	FromScaled(v int64, scale int) Number
	FromBool(v bool) Number
	ToFloat(n Number) float64
	ToInt(n Number) int
	ToDecimal(n Number) decimal.Decimal
	ToScaled(n Number, scale int) int64
	ToBool(n Number) bool
	// Format converts n to text the way a spreadsheet converts numbers in
	// string context: no trailing zeros, "0" for zero.
	Format(n Number) string
	// Parse reads a plain number literal.
	Parse(s string) (Number, bool)

	Add(a, b Number) Number
	Sub(a, b Number) Number
	Mul(a, b Number) Number
	Div(a, b Number) Number
	Pow(a, b Number) Number
	Mod(a, b Number) Number
	Neg(a Number) Number
	Abs(a Number) Number
	Cmp(a, b Number) int

	// Round rounds half away from zero to digits fractional digits;
	// negative digits round to tens, hundreds and so on.
	Round(a Number, digits int) Number
	// RoundUp rounds away from zero.
	RoundUp(a Number, digits int) Number
	// RoundDown rounds toward zero, which is TRUNC.
	RoundDown(a Number, digits int) Number
	// Floor rounds toward negative infinity to an integer, which is INT.
	Floor(a Number) Number
}

// ParseType selects a representation from its textual name: "double",
// "decimal", "decimal:N" or "scaled:N".
func ParseType(s string) (Type, error) {
	name, arg, hasArg := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	scale := -1
	if hasArg {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric type scale %q: %w", arg, err)
		}
		scale = n
	}
	switch name {
	case "double", "":
		if hasArg {
			return nil, fmt.Errorf("numeric type double does not take a scale")
		}
		return Double64, nil
	case "decimal", "bigdecimal":
		return NewDecimal(scale), nil
	case "scaled", "long":
		if !hasArg {
			scale = 0
		}
		return NewScaled(scale)
	}
	return nil, fmt.Errorf("unknown numeric type %q", s)
}
