package expr

import (
	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/numeric"
)

// Apply evaluates the operator o over evaluated operands.
func (o Op) Apply(l *numeric.Library, args ...numeric.Value) numeric.Value {
	if len(args) != o.Arity() {
		errs.Internalf("operator %s applied to %d operands", o, len(args))
	}
	switch o {
	case OpAdd:
		return l.Add(args[0], args[1])
	case OpSub:
		return l.Sub(args[0], args[1])
	case OpMul:
		return l.Mul(args[0], args[1])
	case OpDiv:
		return l.Div(args[0], args[1])
	case OpPow:
		return l.Pow(args[0], args[1])
	case OpNeg:
		return l.Neg(args[0])
	case OpPercent:
		return l.Percent(args[0])
	case OpConcat:
		return l.Concat(args[0], args[1])
	case OpEq:
		return l.Equal(args[0], args[1])
	case OpNe:
		return l.NotEqual(args[0], args[1])
	case OpLt:
		return l.Less(args[0], args[1])
	case OpLe:
		return l.LessEqual(args[0], args[1])
	case OpGt:
		return l.Greater(args[0], args[1])
	case OpGe:
		return l.GreaterEqual(args[0], args[1])
	}
	errs.Internalf("operator %s cannot be evaluated", o)
	return numeric.Empty
}

// TrimOmitted returns args without trailing omitted arguments.
func TrimOmitted(args []*Node) []*Node {
	n := len(args)
	for n > 0 && args[n-1] == nil {
		n--
	}
	return args[:n]
}
