package numeric

// ValueType is the kind of a runtime value.
type ValueType byte

// Runtime value kinds.
const (
	TypeEmpty ValueType = iota
	TypeNumber
	TypeString
	TypeArray
)

// Value is a runtime value of a compiled formula: a number in the engine's
// representation, a string, a rows × cols array of values, or empty for blank
// cells and omitted arguments. Booleans are numbers.
type Value struct {
	Type  ValueType
	Num   Number
	Str   string
	Array []Value
	Rows  int
	Cols  int
}

// Empty is the blank value.
var Empty = Value{}

// Num wraps a number.
func Num(n Number) Value { return Value{Type: TypeNumber, Num: n} }

// Str wraps a string.
func Str(s string) Value { return Value{Type: TypeString, Str: s} }

// Array wraps the elements of a rows × cols array in row-major order.
func Array(rows, cols int, elts []Value) Value {
	return Value{Type: TypeArray, Array: elts, Rows: rows, Cols: cols}
}

// IsEmpty reports whether v is blank.
func (v Value) IsEmpty() bool { return v.Type == TypeEmpty }

// Flatten appends the scalar values of v to dst, expanding arrays.
func (v Value) Flatten(dst []Value) []Value {
	if v.Type != TypeArray {
		return append(dst, v)
	}
	for _, e := range v.Array {
		dst = e.Flatten(dst)
	}
	return dst
}
