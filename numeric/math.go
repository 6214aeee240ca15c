package numeric

import "math"

var factorials = [...]int64{1, 1, 2, 6, 24, 120, 720, 5040, 40320, 362880, 3628800, 39916800, 479001600}

func registerMath() {
	register("ABS", func(l *Library, args []Value) Value { return Num(l.t.Abs(l.Number(arg(args, 0)))) })
	register("ACOS", func(l *Library, args []Value) Value {
		a := l.Float(arg(args, 0))
		if a < -1 || a > 1 {
			return l.err()
		}
		return l.num(math.Acos(a))
	})
	register("ASIN", func(l *Library, args []Value) Value {
		a := l.Float(arg(args, 0))
		if a < -1 || a > 1 {
			return l.err()
		}
		return l.num(math.Asin(a))
	})
	register("ATAN", floatFunc(math.Atan))
	register("ATAN2", func(l *Library, args []Value) Value {
		x, y := l.Float(arg(args, 0)), l.Float(arg(args, 1))
		if x == 0 && y == 0 {
			return l.err()
		}
		return l.num(math.Atan2(y, x))
	})
	register("COS", floatFunc(math.Cos))
	register("SIN", floatFunc(math.Sin))
	register("TAN", floatFunc(math.Tan))
	register("PI", func(l *Library, _ []Value) Value { return l.num(math.Pi) })
	register("DEGREES", floatFunc(func(v float64) float64 { return v * 180 / math.Pi }))
	register("RADIANS", floatFunc(func(v float64) float64 { return v * math.Pi / 180 }))
	register("EXP", floatFunc(math.Exp))
	register("LN", floatFunc(math.Log))
	register("LOG10", floatFunc(math.Log10))
	register("LOG", func(l *Library, args []Value) Value {
		lnN := math.Log(l.Float(arg(args, 0)))
		lnX := math.Log(l.numArg(args, 1, 10))
		if invalid(lnN) || invalid(lnX) || lnX == 0 {
			return l.err()
		}
		return l.num(lnN / lnX)
	})
	register("SQRT", func(l *Library, args []Value) Value {
		n := l.Float(arg(args, 0))
		if n < 0 {
			return l.err()
		}
		return l.num(math.Sqrt(n))
	})
	register("POWER", func(l *Library, args []Value) Value { return l.Pow(arg(args, 0), arg(args, 1)) })
	register("MOD", func(l *Library, args []Value) Value {
		return Num(l.t.Mod(l.Number(arg(args, 0)), l.Number(arg(args, 1))))
	})
	register("INT", func(l *Library, args []Value) Value { return Num(l.t.Floor(l.Number(arg(args, 0)))) })
	register("ROUND", roundFunc(Type.Round))
	register("ROUNDUP", roundFunc(Type.RoundUp))
	register("ROUNDDOWN", roundFunc(Type.RoundDown))
	register("TRUNC", roundFunc(Type.RoundDown))
	register("EVEN", floatFunc(func(v float64) float64 {
		if v < 0 {
			return math.Floor(v/2) * 2
		}
		return math.Ceil(v/2) * 2
	}))
	register("ODD", floatFunc(func(v float64) float64 {
		if v < 0 {
			return math.Floor((v-1)/2)*2 + 1
		}
		return math.Ceil((v+1)/2)*2 - 1
	}))
	register("SIGN", func(l *Library, args []Value) Value {
		return Num(l.t.FromInt(int64(l.t.Cmp(l.Number(arg(args, 0)), l.t.Zero()))))
	})
	register("FACT", func(l *Library, args []Value) Value {
		a := l.Float(arg(args, 0))
		if a < 0 {
			return l.err()
		}
		n := int(a)
		if n < len(factorials) {
			return Num(l.t.FromInt(factorials[n]))
		}
		r := 1.0
		for ; n > 1; n-- {
			r *= float64(n)
		}
		return l.num(r)
	})

	register("SUM", func(l *Library, args []Value) Value {
		sum := l.t.Zero()
		for _, n := range l.numbers(args) {
			sum = l.t.Add(sum, n)
		}
		return Num(sum)
	})
	register("SUMSQ", func(l *Library, args []Value) Value {
		sum := l.t.Zero()
		for _, n := range l.numbers(args) {
			sum = l.t.Add(sum, l.t.Mul(n, n))
		}
		return Num(sum)
	})
	register("PRODUCT", func(l *Library, args []Value) Value {
		nums := l.numbers(args)
		if len(nums) == 0 {
			return Num(l.t.Zero())
		}
		p := l.t.One()
		for _, n := range nums {
			p = l.t.Mul(p, n)
		}
		return Num(p)
	})
	register("MIN", func(l *Library, args []Value) Value { return Num(l.extreme(args, -1)) })
	register("MAX", func(l *Library, args []Value) Value { return Num(l.extreme(args, 1)) })
	register("COUNT", func(l *Library, args []Value) Value {
		return Num(l.t.FromInt(int64(len(l.numbers(args)))))
	})
	register("AVERAGE", func(l *Library, args []Value) Value {
		nums := l.numbers(args)
		if len(nums) == 0 {
			return l.err()
		}
		sum := l.t.Zero()
		for _, n := range nums {
			sum = l.t.Add(sum, n)
		}
		return Num(l.t.Div(sum, l.t.FromInt(int64(len(nums)))))
	})
}

func invalid(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }

// floatFunc lifts a float64 function, mapping undefined results to the
// error sentinel.
func floatFunc(fn func(float64) float64) Func {
	return func(l *Library, args []Value) Value {
		r := fn(l.Float(arg(args, 0)))
		if invalid(r) {
			return l.err()
		}
		return l.num(r)
	}
}

func roundFunc(fn func(Type, Number, int) Number) Func {
	return func(l *Library, args []Value) Value {
		digits := 0
		if a := arg(args, 1); !a.IsEmpty() {
			digits = l.Int(a)
		}
		return Num(fn(l.t, l.Number(arg(args, 0)), digits))
	}
}

// numbers collects the numeric arguments. Direct scalar arguments are
// coerced, text and blanks inside arrays are skipped.
func (l *Library) numbers(args []Value) []Number {
	var out []Number
	for _, a := range args {
		switch a.Type {
		case TypeArray:
			for _, e := range a.Flatten(nil) {
				if e.Type == TypeNumber {
					out = append(out, e.Num)
				}
			}
		case TypeEmpty:
		case TypeString:
			if n, ok := l.ParseNumber(a.Str); ok {
				out = append(out, n)
			}
		default:
			out = append(out, l.Number(a))
		}
	}
	return out
}

func (l *Library) extreme(args []Value, sign int) Number {
	nums := l.numbers(args)
	if len(nums) == 0 {
		return l.t.Zero()
	}
	r := nums[0]
	for _, n := range nums[1:] {
		if l.t.Cmp(n, r)*sign > 0 {
			r = n
		}
	}
	return r
}
