package numeric

import "strings"

// Add returns a + b.
func (l *Library) Add(a, b Value) Value { return Num(l.t.Add(l.Number(a), l.Number(b))) }

// Sub returns a - b.
func (l *Library) Sub(a, b Value) Value { return Num(l.t.Sub(l.Number(a), l.Number(b))) }

// Mul returns a * b.
func (l *Library) Mul(a, b Value) Value { return Num(l.t.Mul(l.Number(a), l.Number(b))) }

// Div returns a / b, or the error sentinel for b == 0.
func (l *Library) Div(a, b Value) Value { return Num(l.t.Div(l.Number(a), l.Number(b))) }

// Pow returns a ^ b.
func (l *Library) Pow(a, b Value) Value { return Num(l.t.Pow(l.Number(a), l.Number(b))) }

// Neg returns -a.
func (l *Library) Neg(a Value) Value { return Num(l.t.Neg(l.Number(a))) }

// Percent returns a / 100.
func (l *Library) Percent(a Value) Value {
	return Num(l.t.Div(l.Number(a), l.t.FromInt(100)))
}

// Concat returns the concatenation of the texts of a and b.
func (l *Library) Concat(a, b Value) Value { return Str(l.Text(a) + l.Text(b)) }

// Compare orders a and b like spreadsheet comparison operators: numbers
// before text, text compared case-insensitively, blanks equal to zero or
// to the empty string depending on the other operand.
func (l *Library) Compare(a, b Value) int {
	if a.Type == TypeArray {
		a = first(a)
	}
	if b.Type == TypeArray {
		b = first(b)
	}
	switch {
	case a.IsEmpty() && b.IsEmpty():
		return 0
	case a.IsEmpty():
		if b.Type == TypeString {
			a = Str("")
		} else {
			a = Num(l.t.Zero())
		}
	case b.IsEmpty():
		if a.Type == TypeString {
			b = Str("")
		} else {
			b = Num(l.t.Zero())
		}
	}
	switch {
	case a.Type == TypeNumber && b.Type == TypeNumber:
		return l.t.Cmp(a.Num, b.Num)
	case a.Type == TypeNumber:
		return -1
	case b.Type == TypeNumber:
		return 1
	}
	return strings.Compare(l.lower(a.Str), l.lower(b.Str))
}

// Equal reports a = b.
func (l *Library) Equal(a, b Value) Value { return l.boolean(l.Compare(a, b) == 0) }

// NotEqual reports a <> b.
func (l *Library) NotEqual(a, b Value) Value { return l.boolean(l.Compare(a, b) != 0) }

// Less reports a < b.
func (l *Library) Less(a, b Value) Value { return l.boolean(l.Compare(a, b) < 0) }

// LessEqual reports a <= b.
func (l *Library) LessEqual(a, b Value) Value { return l.boolean(l.Compare(a, b) <= 0) }

// Greater reports a > b.
func (l *Library) Greater(a, b Value) Value { return l.boolean(l.Compare(a, b) > 0) }

// GreaterEqual reports a >= b.
func (l *Library) GreaterEqual(a, b Value) Value { return l.boolean(l.Compare(a, b) >= 0) }

func first(v Value) Value {
	if len(v.Array) == 0 {
		return Empty
	}
	return v.Array[0]
}
