package expr

import (
	"strconv"
	"strings"

	"github.com/xuri/formula/numeric"
)

// FuncInfo is the static description of a spreadsheet function.
type FuncInfo struct {
	Name string
	// MinArgs and MaxArgs bound the argument count; MaxArgs is -1 for
	// variadic functions.
	MinArgs, MaxArgs int
	// Result is the result type, or Unknown if it depends on the
	// arguments.
	Result DataType
	// Volatile functions depend on the environment and are never
	// constant.
	Volatile bool
	// Selector functions pick one of their arguments by a leading index.
	Selector bool
}

func (f FuncInfo) accepts(n int) bool {
	return n >= f.MinArgs && (f.MaxArgs < 0 || n <= f.MaxArgs)
}

func (f FuncInfo) arity() string {
	switch {
	case f.MaxArgs < 0:
		return "at least " + strconv.Itoa(f.MinArgs)
	case f.MinArgs == f.MaxArgs:
		return strconv.Itoa(f.MinArgs)
	}
	return strconv.Itoa(f.MinArgs) + " to " + strconv.Itoa(f.MaxArgs)
}

// Accepts reports whether n arguments satisfy the arity of the function.
func (f FuncInfo) Accepts(n int) bool { return f.accepts(n) }

// Arity describes the accepted argument count.
func (f FuncInfo) Arity() string { return f.arity() }

var registry = map[string]FuncInfo{}

func def(result DataType, min, max int, names ...string) {
	for _, name := range names {
		registry[name] = FuncInfo{Name: name, MinArgs: min, MaxArgs: max, Result: result}
	}
}

func init() {
	def(Numeric, 0, 0, "PI", "TRUE", "FALSE", "NOW", "TODAY")
	def(Numeric, 1, 1, "ABS", "ACOS", "ASIN", "ATAN", "COS", "SIN", "TAN", "DEGREES", "RADIANS", "EXP",
		"LN", "LOG10", "SQRT", "INT", "EVEN", "ODD", "SIGN", "FACT", "NOT", "ISNUMBER", "ISTEXT", "ISBLANK",
		"N", "LEN", "VALUE", "YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND")
	def(Numeric, 2, 2, "ATAN2", "POWER", "MOD", "EXACT", "ROUNDUP", "ROUNDDOWN", "ROUND")
	def(Numeric, 1, 2, "LOG", "TRUNC", "IRR", "WEEKDAY")
	def(Numeric, 1, -1, "SUM", "SUMSQ", "PRODUCT", "MIN", "MAX", "COUNT", "AVERAGE", "AND", "OR")
	def(Numeric, 2, -1, "NPV")
	def(Numeric, 2, 3, "FIND", "SEARCH", "MATCH")
	def(Numeric, 3, 3, "DATE", "TIME", "SLN")
	def(Numeric, 3, 5, "PMT", "PV", "FV", "NPER")
	def(Numeric, 3, 6, "RATE")
	def(Numeric, 4, 4, "SYD")
	def(Numeric, 4, 5, "DB", "DDB")
	def(String, 1, 1, "UPPER", "LOWER", "PROPER", "TRIM", "ASC", "JIS")
	def(String, 1, 2, "LEFT", "RIGHT")
	def(String, 2, 2, "REPT", "TEXT")
	def(String, 3, 3, "MID")
	def(String, 3, 4, "SUBSTITUTE")
	def(String, 4, 4, "REPLACE")
	def(String, 1, -1, "CONCATENATE")
	def(Unknown, 1, 3, "IF")
	def(Unknown, 2, 3, "INDEX")
	def(Unknown, 2, -1, "CHOOSE")
	for _, name := range []string{"NOW", "TODAY"} {
		f := registry[name]
		f.Volatile = true
		registry[name] = f
	}
	for _, name := range []string{"INDEX", "CHOOSE"} {
		f := registry[name]
		f.Selector = true
		registry[name] = f
	}
}

// Lookup returns the description of the named function.
func Lookup(name string) (FuncInfo, bool) {
	f, ok := registry[strings.ToUpper(name)]
	return f, ok
}

// IsVolatile reports whether the named function depends on the
// environment.
func IsVolatile(name string) bool {
	f, ok := registry[name]
	return ok && f.Volatile
}

func resultType(name string, args []*Node) DataType {
	f, ok := registry[name]
	if !ok {
		return Unknown
	}
	if f.Result != Unknown {
		return f.Result
	}
	if (name != "IF" && name != "CHOOSE") || len(args) < 2 {
		return Unknown
	}
	return common(args[1:])
}

// common returns the type shared by all nodes, or Unknown.
func common(nodes []*Node) DataType {
	t := Unknown
	for i, n := range nodes {
		nt := Numeric
		if n != nil {
			nt = n.Type
		}
		if i == 0 {
			t = nt
		} else if nt != t {
			return Unknown
		}
	}
	return t
}

// Aggregate names the functions that the model builder rewrites to folds.
func Aggregate(name string) bool {
	_, ok := aggregates[name]
	return ok
}

// Names of the bindings of the aggregate folds.
const (
	aggAcc   = "acc"
	aggElt   = "xi"
	aggCount = "n"
)

var aggregates = map[string]func(t numeric.Type) *Fold{
	"SUM": func(t numeric.Type) *Fold {
		return reducer(Constant(numeric.Num(t.Zero())), Operator(OpAdd, acc(), elt()))
	},
	"PRODUCT": func(t numeric.Type) *Fold {
		return reducer(Constant(numeric.Num(t.One())), Operator(OpMul, acc(), elt()))
	},
	"SUMSQ": func(t numeric.Type) *Fold {
		return reducer(Constant(numeric.Num(t.Zero())), Operator(OpAdd, acc(), Operator(OpMul, elt(), elt())))
	},
	"COUNT": func(t numeric.Type) *Fold {
		return reducer(Constant(numeric.Num(t.Zero())), Operator(OpAdd, acc(), Constant(numeric.Num(t.One()))))
	},
	"MIN": func(t numeric.Type) *Fold {
		f := reducer(nil, Call("MIN", acc(), elt()))
		f.WhenEmpty = Constant(numeric.Num(t.Zero()))
		return f
	},
	"MAX": func(t numeric.Type) *Fold {
		f := reducer(nil, Call("MAX", acc(), elt()))
		f.WhenEmpty = Constant(numeric.Num(t.Zero()))
		return f
	},
	"AVERAGE": func(t numeric.Type) *Fold {
		f := reducer(Constant(numeric.Num(t.Zero())), Operator(OpAdd, acc(), elt()))
		f.Count = aggCount
		f.Into = Operator(OpDiv, acc(), LetVar(aggCount, Numeric))
		return f
	},
}

func acc() *Node { return LetVar(aggAcc, Numeric) }
func elt() *Node { return LetVar(aggElt, Numeric) }

func reducer(init, step *Node) *Fold {
	return &Fold{
		Acc: aggAcc, Elt: aggElt, Init: init, Step: step,
		NumericOnly: true, MayRearrange: true, MayReduce: true,
	}
}

// NewAggregate returns the fold computing the aggregate function name over
// args in the representation t. Substitution arguments are spliced.
func NewAggregate(t numeric.Type, name string, args []*Node) (*Node, bool) {
	mk, ok := aggregates[name]
	if !ok {
		return nil, false
	}
	n := NewFold(mk(t), Splice(args)...)
	n.Type = Numeric
	return n, true
}
