package numeric

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Func implements a spreadsheet function over evaluated arguments. Omitted
// arguments are Empty; trailing omitted arguments may be missing.
type Func func(l *Library, args []Value) Value

type funcDef struct {
	fn Func
	// without lists the representations lacking an implementation.
	without []Kind
}

// Library evaluates spreadsheet functions and operators for one context.
// It holds no mutable state and may be shared by concurrent instances.
type Library struct {
	ctx *Context
	t   Type
}

// NewLibrary returns the function library for ctx.
func NewLibrary(ctx *Context) *Library {
	return &Library{ctx: ctx, t: ctx.Type()}
}

// Context returns the numeric context.
func (l *Library) Context() *Context { return l.ctx }

// Type returns the numeric representation.
func (l *Library) Type() Type { return l.t }

// Func returns the implementation of the named function for the library's
// representation.
func (l *Library) Func(name string) (Func, bool) {
	def, ok := functions[strings.ToUpper(name)]
	if !ok || def.fn == nil {
		return nil, false
	}
	for _, k := range def.without {
		if k == l.t.Kind() {
			return nil, false
		}
	}
	return def.fn, true
}

// Supports reports whether the named function has an implementation for
// the library's representation.
func (l *Library) Supports(name string) bool {
	_, ok := l.Func(name)
	return ok
}

// Call evaluates the named function, returning the error sentinel for
// functions without implementation.
func (l *Library) Call(name string, args []Value) Value {
	fn, ok := l.Func(name)
	if !ok {
		return Num(l.t.Err())
	}
	return fn(l, args)
}

// Known reports whether name is a function of the library, implemented or
// not.
func Known(name string) bool {
	_, ok := functions[strings.ToUpper(name)]
	return ok
}

// Names returns the sorted names of all known functions.
func Names() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Number coerces v to a number: text is parsed, blanks are zero and arrays
// yield their first element.
func (l *Library) Number(v Value) Number {
	switch v.Type {
	case TypeNumber:
		return v.Num
	case TypeString:
		if n, ok := l.ParseNumber(v.Str); ok {
			return n
		}
		return l.t.Err()
	case TypeArray:
		if len(v.Array) > 0 {
			return l.Number(v.Array[0])
		}
	}
	return l.t.Zero()
}

// Text coerces v to a string.
func (l *Library) Text(v Value) string {
	switch v.Type {
	case TypeNumber:
		return l.t.Format(v.Num)
	case TypeString:
		return v.Str
	case TypeArray:
		if len(v.Array) > 0 {
			return l.Text(v.Array[0])
		}
	}
	return ""
}

// Float coerces v to float64.
func (l *Library) Float(v Value) float64 { return l.t.ToFloat(l.Number(v)) }

// Int coerces v to an int, truncating.
func (l *Library) Int(v Value) int { return l.t.ToInt(l.Number(v)) }

// Bool coerces v to a boolean.
func (l *Library) Bool(v Value) bool {
	if v.Type == TypeString {
		switch strings.ToUpper(v.Str) {
		case "TRUE":
			return true
		case "FALSE", "":
			return false
		}
	}
	return l.t.ToBool(l.Number(v))
}

// num wraps a float result in the library's representation.
func (l *Library) num(f float64) Value { return Num(l.t.FromFloat(f)) }

func (l *Library) boolean(b bool) Value { return Num(l.t.FromBool(b)) }

func (l *Library) err() Value { return Num(l.t.Err()) }

// ParseNumber parses text the way VALUE does: surrounding blanks, a leading
// sign, grouping separators, a percent suffix and the locale's decimal
// separator are accepted.
func (l *Library) ParseNumber(s string) (Number, bool) {
	text := strings.TrimSpace(s)
	if text == "" {
		return nil, false
	}
	group, point := separators(l.ctx.locale)
	text = strings.ReplaceAll(text, string(group), "")
	if point != '.' {
		text = strings.ReplaceAll(text, string(point), ".")
	}
	percent := strings.HasSuffix(text, "%")
	if percent {
		text = strings.TrimSpace(strings.TrimSuffix(text, "%"))
	}
	n, ok := l.t.Parse(text)
	if !ok {
		return nil, false
	}
	if percent {
		n = l.t.Div(n, l.t.FromInt(100))
	}
	return n, true
}

// arg returns args[i] or Empty if omitted.
func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Empty
}

// tail returns the arguments from position i on.
func tail(args []Value, i int) []Value {
	if i >= len(args) {
		return nil
	}
	return args[i:]
}

// numArg returns args[i] as a float, or def if omitted.
func (l *Library) numArg(args []Value, i int, def float64) float64 {
	if a := arg(args, i); !a.IsEmpty() {
		return l.Float(a)
	}
	return def
}

// flatten expands array arguments.
func flatten(args []Value) []Value {
	var out []Value
	for _, a := range args {
		out = a.Flatten(out)
	}
	return out
}

// FoldElements flattens the element values of a reduction. With
// numericOnly, text and blanks inside arrays are skipped, scalar blanks are
// skipped and scalar text is converted to a number, or skipped if it is not
// numeric.
func (l *Library) FoldElements(args []Value, numericOnly bool) []Value {
	out := make([]Value, 0, len(args))
	for _, a := range args {
		if a.Type == TypeArray {
			for _, e := range a.Flatten(nil) {
				if !numericOnly || e.Type == TypeNumber {
					out = append(out, e)
				}
			}
			continue
		}
		switch {
		case !numericOnly:
			out = append(out, a)
		case a.Type == TypeString:
			if n, ok := l.ParseNumber(a.Str); ok {
				out = append(out, Num(n))
			}
		case a.Type == TypeNumber:
			out = append(out, a)
		}
	}
	return out
}

func (l *Library) lower(s string) string { return cases.Lower(l.ctx.locale).String(s) }

func (l *Library) upper(s string) string { return cases.Upper(l.ctx.locale).String(s) }

// lowerRunes lower-cases s one rune at a time. index holds, for every byte
// of the folded text, the position of the rune of s it was folded from.
func (l *Library) lowerRunes(s string) (folded string, index []int) {
	caser := cases.Lower(l.ctx.locale)
	var sb strings.Builder
	i := 0
	for _, r := range s {
		f := caser.String(string(r))
		sb.WriteString(f)
		for range len(f) {
			index = append(index, i)
		}
		i++
	}
	return sb.String(), index
}

var functions = map[string]funcDef{}

func register(name string, fn Func, without ...Kind) {
	functions[name] = funcDef{fn: fn, without: without}
}

// registerUnimplemented declares a function the parser accepts but no
// representation implements.
func registerUnimplemented(names ...string) {
	for _, name := range names {
		functions[name] = funcDef{}
	}
}

func init() {
	registerMath()
	registerLogic()
	registerLookup()
	registerText()
	registerDate()
	registerFinancial()
	registerUnimplemented("ASC", "JIS")
}
