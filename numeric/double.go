package numeric

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Double64 is the double representation.
var Double64 Type = doubleType{}

type doubleType struct{}

func d(n Number) float64 { return float64(n.(Double)) }

func (doubleType) Kind() Kind { return KindDouble }
func (doubleType) Scale() int { return -1 }
func (doubleType) String() string { return "double" }
func (doubleType) Zero() Number { return Double(0) }
func (doubleType) One() Number { return Double(1) }
func (doubleType) Err() Number { return Double(math.NaN()) }

func (doubleType) IsErr(n Number) bool { return math.IsNaN(d(n)) }

func (doubleType) FromInt(v int64) Number { return Double(v) }
func (doubleType) FromFloat(v float64) Number { return Double(v) }

func (doubleType) FromDecimal(v decimal.Decimal) Number {
	f, _ := v.Float64()
	return Double(f)
}

func (doubleType) FromScaled(v int64, scale int) Number {
	return Double(float64(v) / float64(pow10[scale]))
}

func (doubleType) FromBool(v bool) Number {
	if v {
		return Double(1)
	}
	return Double(0)
}

func (doubleType) ToFloat(n Number) float64 { return d(n) }

func (doubleType) ToInt(n Number) int {
	v := d(n)
	if math.IsNaN(v) {
		return 0
	}
	return int(v)
}

func (doubleType) ToDecimal(n Number) decimal.Decimal {
	v := d(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func (doubleType) ToScaled(n Number, scale int) int64 {
	return int64(math.Round(d(n) * float64(pow10[scale])))
}

func (doubleType) ToBool(n Number) bool { return d(n) != 0 }

func (doubleType) Format(n Number) string {
	v := d(n)
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return "#NUM!"
	case v == 0:
		return "0"
	case math.Abs(v) >= 1e21:
		return strconv.FormatFloat(v, 'E', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (doubleType) Parse(s string) (Number, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, false
	}
	return Double(v), true
}

func (doubleType) Add(a, b Number) Number { return Double(d(a) + d(b)) }
func (doubleType) Sub(a, b Number) Number { return Double(d(a) - d(b)) }
func (doubleType) Mul(a, b Number) Number { return Double(d(a) * d(b)) }

func (doubleType) Div(a, b Number) Number {
	if d(b) == 0 {
		return Double(math.NaN())
	}
	return Double(d(a) / d(b))
}

func (doubleType) Pow(a, b Number) Number {
	r := math.Pow(d(a), d(b))
	if math.IsInf(r, 0) {
		return Double(math.NaN())
	}
	return Double(r)
}

func (doubleType) Mod(a, b Number) Number {
	n, dv := d(a), d(b)
	if dv == 0 {
		return Double(math.NaN())
	}
	r := math.Mod(n, dv)
	if r != 0 && math.Signbit(r) != math.Signbit(dv) {
		return Double(r + dv)
	}
	return Double(r)
}

func (doubleType) Neg(a Number) Number { return Double(-d(a)) }
func (doubleType) Abs(a Number) Number { return Double(math.Abs(d(a))) }

func (doubleType) Cmp(a, b Number) int {
	x, y := d(a), d(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func (doubleType) Round(a Number, digits int) Number { return Double(roundFloat(d(a), digits)) }

func (doubleType) RoundUp(a Number, digits int) Number {
	v, shift := d(a), math.Pow(10, float64(digits))
	if v < 0 {
		return Double(math.Floor(v*shift) / shift)
	}
	return Double(math.Ceil(v*shift) / shift)
}

func (doubleType) RoundDown(a Number, digits int) Number { return Double(truncFloat(d(a), digits)) }

func (doubleType) Floor(a Number) Number { return Double(math.Floor(d(a))) }

// roundFloat rounds half away from zero.
func roundFloat(v float64, digits int) float64 {
	shift := math.Pow(10, float64(digits))
	if v < 0 {
		return math.Ceil(v*shift-0.5) / shift
	}
	return math.Floor(v*shift+0.5) / shift
}

func truncFloat(v float64, digits int) float64 {
	shift := math.Pow(10, float64(digits))
	if v < 0 {
		return math.Ceil(v*shift) / shift
	}
	return math.Floor(v*shift) / shift
}

var pow10 = [...]int64{
	1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000,
	10000000000, 100000000000, 1000000000000, 10000000000000, 100000000000000,
	1000000000000000, 10000000000000000, 100000000000000000, 1000000000000000000,
}
