package numeric

import "math"

// Iteration budgets of the financial solvers. They are part of the
// compatibility contract with spreadsheet results.
const (
	excelEpsilon = 0.0000001
	irrMaxIter   = 20
	rateMaxIter  = 50
)

func registerFinancial() {
	register("NPV", func(l *Library, args []Value) Value {
		rate := l.Float(arg(args, 0))
		var npv float64
		for i, n := range l.numbers(tail(args, 1)) {
			npv += l.t.ToFloat(n) / math.Pow(1+rate, float64(i+1))
		}
		return l.num(npv)
	})
	register("IRR", func(l *Library, args []Value) Value {
		var values []float64
		for _, n := range l.numbers([]Value{arg(args, 0)}) {
			values = append(values, l.t.ToFloat(n))
		}
		r := IRR(values, l.numArg(args, 1, 0.1))
		if math.IsNaN(r) {
			return l.err()
		}
		return l.num(r)
	}, KindScaled)
	register("RATE", func(l *Library, args []Value) Value {
		r, ok := Rate(l.Float(arg(args, 0)), l.Float(arg(args, 1)), l.Float(arg(args, 2)),
			l.numArg(args, 3, 0), l.numArg(args, 4, 0), l.numArg(args, 5, 0.1))
		if !ok {
			return l.err()
		}
		return l.num(r)
	}, KindScaled)
	register("PMT", func(l *Library, args []Value) Value {
		return l.num(PMT(l.Float(arg(args, 0)), l.Float(arg(args, 1)), l.Float(arg(args, 2)),
			l.numArg(args, 3, 0), l.numArg(args, 4, 0)))
	})
	register("PV", func(l *Library, args []Value) Value {
		return l.num(PV(l.Float(arg(args, 0)), l.Float(arg(args, 1)), l.Float(arg(args, 2)),
			l.numArg(args, 3, 0), l.numArg(args, 4, 0)))
	})
	register("FV", func(l *Library, args []Value) Value {
		return l.num(FV(l.Float(arg(args, 0)), l.Float(arg(args, 1)), l.Float(arg(args, 2)),
			l.numArg(args, 3, 0), l.numArg(args, 4, 0)))
	})
	register("NPER", func(l *Library, args []Value) Value {
		r := NPER(l.Float(arg(args, 0)), l.Float(arg(args, 1)), l.Float(arg(args, 2)),
			l.numArg(args, 3, 0), l.numArg(args, 4, 0))
		if invalid(r) {
			return l.err()
		}
		return l.num(r)
	})
	register("DB", func(l *Library, args []Value) Value {
		return l.num(DB(l.Float(arg(args, 0)), l.Float(arg(args, 1)), l.Float(arg(args, 2)),
			l.Float(arg(args, 3)), l.numArg(args, 4, 12)))
	})
	register("DDB", func(l *Library, args []Value) Value {
		return l.num(DDB(l.Float(arg(args, 0)), l.Float(arg(args, 1)), l.Float(arg(args, 2)),
			l.Float(arg(args, 3)), l.numArg(args, 4, 2)))
	})
	register("SLN", func(l *Library, args []Value) Value {
		life := l.Float(arg(args, 2))
		if life == 0 {
			return l.err()
		}
		return l.num((l.Float(arg(args, 0)) - l.Float(arg(args, 1))) / life)
	})
	register("SYD", func(l *Library, args []Value) Value {
		cost, salvage, life, per := l.Float(arg(args, 0)), l.Float(arg(args, 1)), l.Float(arg(args, 2)), l.Float(arg(args, 3))
		if life <= 0 || per <= 0 || per > life {
			return l.err()
		}
		return l.num((cost - salvage) * (life - per + 1) * 2 / (life * (life + 1)))
	})
}

// IRR returns the internal rate of return of the cash flows, found by
// Newton's method, or NaN if it does not converge within 20 iterations.
func IRR(values []float64, guess float64) float64 {
	x := guess
	for iter := 0; iter < irrMaxIter; iter++ {
		x1 := 1.0 + x
		var fx, dfx float64
		for i, v := range values {
			fx += v / math.Pow(x1, float64(i))
			dfx += -float64(i) * v / math.Pow(x1, float64(i+1))
		}
		nx := x - fx/dfx
		if math.Abs(nx-x) <= excelEpsilon {
			if guess == 0 && math.Abs(nx) <= excelEpsilon {
				return 0
			}
			return nx
		}
		x = nx
	}
	return math.NaN()
}

// Rate returns the interest rate per period of an annuity. It reports false
// if the iteration does not converge within 50 steps.
func Rate(nper, pmt, pv, fv, typ, guess float64) (float64, bool) {
	due := typ != 0
	eps, rate0 := 1.0, guess
	for count := 0; eps > excelEpsilon && count < rateMaxIter; count++ {
		var rate1 float64
		if rate0 == 0 {
			a := pmt * nper
			b := a - pmt
			if due {
				b = a + pmt
			}
			rate1 = rate0 - (pv+fv+a)/(nper*(pv+b/2))
		} else {
			a := 1 + rate0
			b := math.Pow(a, nper-1)
			c := b * a
			dd := pmt
			if due {
				dd = pmt * (1 + rate0)
			}
			e := rate0 * nper * b
			f := c - 1
			g := rate0 * pv
			rate1 = rate0 * (1 - (g*c+dd*f+rate0*fv)/(g*e-pmt*f+dd*e))
		}
		eps = math.Abs(rate1 - rate0)
		rate0 = rate1
	}
	if eps >= excelEpsilon || math.IsNaN(eps) {
		return 0, false
	}
	return rate0, true
}

// PMT returns the periodic payment of an annuity.
func PMT(rate, nper, pv, fv, typ float64) float64 {
	if rate == 0 {
		return -(pv + fv) / nper
	}
	a := math.Pow(1+rate, nper)
	b := pv / (1 - 1/a)
	c := fv / (a - 1)
	dd := -(b + c) * rate
	if typ > 0 {
		return dd / (1 + rate)
	}
	return dd
}

// PV returns the present value of an annuity.
func PV(rate, nper, pmt, fv, typ float64) float64 {
	if rate == 0 {
		return -fv - pmt*nper
	}
	k := -fv * math.Pow(1+rate, -nper)
	if typ > 0 {
		return k + pmt*(math.Pow(1+rate, -nper+1)-1)/rate - pmt
	}
	return k + pmt*(math.Pow(1+rate, -nper)-1)/rate
}

// FV returns the future value of an annuity.
func FV(rate, nper, pmt, pv, typ float64) float64 {
	if rate == 0 {
		return -(pv + pmt*nper)
	}
	a := math.Pow(1+rate, nper)
	return -(pv*a + pmt*(1+rate*typ)*(a-1)/rate)
}

// NPER returns the number of periods of an annuity.
func NPER(rate, pmt, pv, fv, typ float64) float64 {
	if rate == 0 {
		return -(pv + fv) / pmt
	}
	num := pmt*(1+rate*typ) - fv*rate
	den := pv*rate + pmt*(1+rate*typ)
	return math.Log(num/den) / math.Log(1+rate)
}

// DB returns the fixed-declining balance depreciation for a period.
func DB(cost, salvage, life, period, month float64) float64 {
	month = math.Floor(month)
	rate := roundFloat(1-math.Pow(salvage/cost, 1/life), 3)
	first := cost * rate * month / 12
	depreciation := first
	if int(period) > 1 {
		total := first
		maxPeriod := int(period)
		if life <= period {
			maxPeriod = int(life)
		}
		for i := 2; i <= maxPeriod; i++ {
			depreciation = (cost - total) * rate
			total += depreciation
		}
		if period > life {
			depreciation = (cost - total) * rate * (12 - month) / 12
		}
	}
	return depreciation
}

// DDB returns the double-declining balance depreciation for a period.
func DDB(cost, salvage, life, period, factor float64) float64 {
	var remaining float64
	k := 1 - factor/life
	if k <= 0 {
		k = 0
		if period == 1 {
			remaining = cost
		}
	} else {
		remaining = cost * math.Pow(k, period-1)
	}
	newCost := cost * math.Pow(k, period)
	if newCost < salvage {
		newCost = salvage
	}
	depreciation := remaining - newCost
	if depreciation < 0 {
		depreciation = 0
	}
	return depreciation
}
