package numeric

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxScale is the largest scale supported by the scaled representation.
const MaxScale = 18

type scaledType struct {
	scale int
	one   int64
}

// NewScaled returns the scaled integer representation storing numbers as
// int64 multiples of 10^-scale.
func NewScaled(scale int) (Type, error) {
	if scale < 0 || scale > MaxScale {
		return nil, fmt.Errorf("scale %d is out of range [0, %d]", scale, MaxScale)
	}
	return scaledType{scale: scale, one: pow10[scale]}, nil
}

func sc(n Number) int64 { return int64(n.(Scaled)) }

func (scaledType) Kind() Kind { return KindScaled }
func (t scaledType) Scale() int { return t.scale }
func (t scaledType) String() string { return "scaled:" + strconv.Itoa(t.scale) }

func (scaledType) Zero() Number { return Scaled(0) }
func (t scaledType) One() Number { return Scaled(t.one) }

// Err is zero: scaled integers have no NaN.
func (scaledType) Err() Number { return Scaled(0) }

func (scaledType) IsErr(Number) bool { return false }

func (t scaledType) FromInt(v int64) Number { return Scaled(v * t.one) }

func (t scaledType) FromFloat(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Scaled(0)
	}
	return Scaled(int64(math.Round(v * float64(t.one))))
}

func (t scaledType) FromDecimal(v decimal.Decimal) Number {
	return Scaled(v.Shift(int32(t.scale)).Round(0).IntPart())
}

func (t scaledType) FromScaled(v int64, scale int) Number {
	return t.FromDecimal(decimal.New(v, int32(-scale)))
}

func (t scaledType) FromBool(v bool) Number {
	if v {
		return Scaled(t.one)
	}
	return Scaled(0)
}

func (t scaledType) ToFloat(n Number) float64 {
	v := sc(n)
	if v == 0 {
		return 0
	}
	return float64(v) / float64(t.one)
}

func (t scaledType) ToInt(n Number) int { return int(sc(n) / t.one) }

func (t scaledType) ToDecimal(n Number) decimal.Decimal { return decimal.New(sc(n), int32(-t.scale)) }

func (t scaledType) ToScaled(n Number, scale int) int64 {
	return t.ToDecimal(n).Shift(int32(scale)).Round(0).IntPart()
}

func (scaledType) ToBool(n Number) bool { return sc(n) != 0 }

func (t scaledType) Format(n Number) string {
	if sc(n) == 0 {
		return "0"
	}
	return t.ToDecimal(n).String()
}

func (t scaledType) Parse(s string) (Number, bool) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}
	return t.FromDecimal(v), true
}

func (scaledType) Add(a, b Number) Number { return Scaled(sc(a) + sc(b)) }
func (scaledType) Sub(a, b Number) Number { return Scaled(sc(a) - sc(b)) }

func (t scaledType) Mul(a, b Number) Number {
	r := new(big.Int).Mul(big.NewInt(sc(a)), big.NewInt(sc(b)))
	return t.narrow(r.Quo(r, big.NewInt(t.one)))
}

// narrow returns r as a scaled number, or the error value if r leaves the
// int64 range.
func (t scaledType) narrow(r *big.Int) Number {
	if !r.IsInt64() {
		return t.Err()
	}
	return Scaled(r.Int64())
}

func (t scaledType) Div(a, b Number) Number {
	if sc(b) == 0 {
		return Scaled(0)
	}
	r := new(big.Int).Mul(big.NewInt(sc(a)), big.NewInt(t.one))
	return t.narrow(r.Quo(r, big.NewInt(sc(b))))
}

func (t scaledType) Pow(a, b Number) Number {
	r := math.Pow(t.ToFloat(a), t.ToFloat(b))
	return t.FromFloat(r)
}

func (scaledType) Mod(a, b Number) Number {
	n, dv := sc(a), sc(b)
	if dv == 0 {
		return Scaled(0)
	}
	r := n % dv
	if r != 0 && (r < 0) != (dv < 0) {
		r += dv
	}
	return Scaled(r)
}

func (scaledType) Neg(a Number) Number { return Scaled(-sc(a)) }
func (scaledType) Abs(a Number) Number { return Scaled(abs64(sc(a))) }

func (scaledType) Cmp(a, b Number) int {
	x, y := sc(a), sc(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// shift returns the factor dropping the digits beyond digits fractional
// places, or 0 if no digit needs to be dropped.
func (t scaledType) shift(digits int) int64 {
	at := t.scale - digits
	if at <= 0 {
		return 0
	}
	if at > MaxScale {
		at = MaxScale
	}
	return pow10[at]
}

func (t scaledType) Round(a Number, digits int) Number {
	v, f := sc(a), t.shift(digits)
	if v == 0 || f == 0 {
		return a
	}
	half := f / 2
	if v >= 0 {
		return Scaled((v + half) / f * f)
	}
	return Scaled((v - half) / f * f)
}

func (t scaledType) RoundUp(a Number, digits int) Number {
	v, f := sc(a), t.shift(digits)
	if f == 0 {
		return a
	}
	r := v / f * f
	if r != v {
		if v < 0 {
			r -= f
		} else {
			r += f
		}
	}
	return Scaled(r)
}

func (t scaledType) RoundDown(a Number, digits int) Number {
	v, f := sc(a), t.shift(digits)
	if f == 0 {
		return a
	}
	return Scaled(v / f * f)
}

func (t scaledType) Floor(a Number) Number {
	v := sc(a)
	r := v / t.one * t.one
	if r != v && v < 0 {
		r -= t.one
	}
	return Scaled(r)
}
