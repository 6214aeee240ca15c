package numeric

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// unlimitedPrecision is the number of fractional digits kept by divisions
// of the decimal representation without a fixed scale.
const unlimitedPrecision = 34

type decimalType struct {
	scale int
}

// NewDecimal returns the decimal representation with the given scale. A
// negative scale keeps all digits of exact operations and rounds quotients
// to 34 fractional digits.
func NewDecimal(scale int) Type {
	if scale < 0 {
		scale = -1
	}
	return decimalType{scale: scale}
}

func dec(n Number) decimal.Decimal { return n.(Decimal).Decimal }

func (t decimalType) fix(v decimal.Decimal) Number {
	if t.scale >= 0 {
		v = v.Round(int32(t.scale))
	}
	return Decimal{v}
}

func (decimalType) Kind() Kind { return KindDecimal }
func (t decimalType) Scale() int { return t.scale }

func (t decimalType) String() string {
	if t.scale < 0 {
		return "decimal"
	}
	return "decimal:" + strconv.Itoa(t.scale)
}

func (decimalType) Zero() Number { return Decimal{decimal.Zero} }
func (decimalType) One() Number { return Decimal{decimal.NewFromInt(1)} }

// Err is zero: decimals have no NaN.
func (decimalType) Err() Number { return Decimal{decimal.Zero} }

func (decimalType) IsErr(Number) bool { return false }

func (decimalType) FromInt(v int64) Number { return Decimal{decimal.NewFromInt(v)} }

func (t decimalType) FromFloat(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return t.Err()
	}
	return t.fix(decimal.NewFromFloat(v))
}

func (t decimalType) FromDecimal(v decimal.Decimal) Number { return t.fix(v) }

func (t decimalType) FromScaled(v int64, scale int) Number {
	return t.fix(decimal.New(v, int32(-scale)))
}

func (decimalType) FromBool(v bool) Number {
	if v {
		return Decimal{decimal.NewFromInt(1)}
	}
	return Decimal{decimal.Zero}
}

func (decimalType) ToFloat(n Number) float64 {
	f, _ := dec(n).Float64()
	return f
}

func (decimalType) ToInt(n Number) int { return int(dec(n).IntPart()) }

func (decimalType) ToDecimal(n Number) decimal.Decimal { return dec(n) }

func (decimalType) ToScaled(n Number, scale int) int64 {
	return dec(n).Shift(int32(scale)).Round(0).IntPart()
}

func (decimalType) ToBool(n Number) bool { return !dec(n).IsZero() }

func (decimalType) Format(n Number) string {
	v := dec(n)
	if v.IsZero() {
		return "0"
	}
	return v.String()
}

func (t decimalType) Parse(s string) (Number, bool) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}
	return t.fix(v), true
}

func (t decimalType) Add(a, b Number) Number { return t.fix(dec(a).Add(dec(b))) }
func (t decimalType) Sub(a, b Number) Number { return t.fix(dec(a).Sub(dec(b))) }
func (t decimalType) Mul(a, b Number) Number { return t.fix(dec(a).Mul(dec(b))) }

func (t decimalType) Div(a, b Number) Number {
	if dec(b).IsZero() {
		return t.Err()
	}
	precision := int32(unlimitedPrecision)
	if t.scale >= 0 {
		precision = int32(t.scale)
	}
	return Decimal{dec(a).DivRound(dec(b), precision)}
}

// Pow multiplies exactly for integral exponents and falls back to floating
// point otherwise.
func (t decimalType) Pow(a, b Number) Number {
	base, exp := dec(a), dec(b)
	if exp.Equal(exp.Truncate(0)) && exp.Abs().LessThanOrEqual(decimal.NewFromInt(1024)) {
		n := exp.IntPart()
		r := decimal.NewFromInt(1)
		for i := int64(0); i < abs64(n); i++ {
			r = r.Mul(base)
		}
		if n < 0 {
			if r.IsZero() {
				return t.Err()
			}
			return t.Div(t.One(), Decimal{r})
		}
		return t.fix(r)
	}
	bf, _ := base.Float64()
	ef, _ := exp.Float64()
	return t.FromFloat(math.Pow(bf, ef))
}

func (t decimalType) Mod(a, b Number) Number {
	n, dv := dec(a), dec(b)
	if dv.IsZero() {
		return t.Err()
	}
	r := n.Mod(dv)
	if !r.IsZero() && r.Sign() != dv.Sign() {
		r = r.Add(dv)
	}
	return t.fix(r)
}

func (decimalType) Neg(a Number) Number { return Decimal{dec(a).Neg()} }
func (decimalType) Abs(a Number) Number { return Decimal{dec(a).Abs()} }
func (decimalType) Cmp(a, b Number) int { return dec(a).Cmp(dec(b)) }

func (decimalType) Round(a Number, digits int) Number {
	return Decimal{dec(a).Round(int32(digits))}
}

func (decimalType) RoundUp(a Number, digits int) Number {
	return Decimal{dec(a).RoundUp(int32(digits))}
}

func (decimalType) RoundDown(a Number, digits int) Number {
	return Decimal{dec(a).RoundDown(int32(digits))}
}

func (decimalType) Floor(a Number) Number { return Decimal{dec(a).Floor()} }

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
