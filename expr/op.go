package expr

// Op is an operator of KindOperator nodes and of composite range
// references.
type Op byte

// Operators.
const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
	OpNeg
	OpPercent
	OpConcat
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpUnion
	OpIntersect
)

type opInfo struct {
	symbol     string
	arity      int
	precedence int
}

var ops = [...]opInfo{
	OpNone:      {"", 0, 0},
	OpEq:        {"=", 2, 1},
	OpNe:        {"<>", 2, 1},
	OpLt:        {"<", 2, 1},
	OpLe:        {"<=", 2, 1},
	OpGt:        {">", 2, 1},
	OpGe:        {">=", 2, 1},
	OpConcat:    {"&", 2, 2},
	OpAdd:       {"+", 2, 3},
	OpSub:       {"-", 2, 3},
	OpMul:       {"*", 2, 4},
	OpDiv:       {"/", 2, 4},
	OpPow:       {"^", 2, 5},
	OpPercent:   {"%", 1, 6},
	OpNeg:       {"-", 1, 7},
	OpUnion:     {",", 2, 8},
	OpIntersect: {" ", 2, 9},
}

// Arity returns the number of operands.
func (o Op) Arity() int { return ops[o].arity }

// Precedence returns the binding strength; higher binds tighter.
func (o Op) Precedence() int { return ops[o].precedence }

func (o Op) String() string { return ops[o].symbol }

// InfixOp returns the binary operator written as symbol.
func InfixOp(symbol string) (Op, bool) {
	for op, info := range ops {
		if info.arity == 2 && info.symbol == symbol {
			return Op(op), true
		}
	}
	return OpNone, false
}

// IsComparison reports whether o compares its operands.
func (o Op) IsComparison() bool { return o >= OpEq && o <= OpGe }
