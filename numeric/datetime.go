package numeric

import (
	"math"
	"time"
)

func registerDate() {
	register("DATE", func(l *Library, args []Value) Value {
		y, m, dd := l.Int(arg(args, 0)), l.Int(arg(args, 1)), l.Int(arg(args, 2))
		if y < 1900 {
			y += 1900
		}
		t := time.Date(y, time.Month(m), dd, 0, 0, 0, 0, time.UTC)
		return l.num(math.Round(DateToNum(t, time.UTC)))
	})
	register("TIME", func(l *Library, args []Value) Value {
		secs := l.Float(arg(args, 0))*3600 + l.Float(arg(args, 1))*60 + l.Float(arg(args, 2))
		if secs < 0 {
			return l.err()
		}
		v := secs / secsPerDay
		return l.num(v - math.Floor(v))
	})
	register("YEAR", dateFunc(func(t time.Time) int { return t.Year() }))
	register("MONTH", dateFunc(func(t time.Time) int { return int(t.Month()) }))
	register("DAY", dateFunc(func(t time.Time) int { return t.Day() }))
	register("HOUR", dateFunc(func(t time.Time) int { return t.Hour() }))
	register("MINUTE", dateFunc(func(t time.Time) int { return t.Minute() }))
	register("SECOND", dateFunc(func(t time.Time) int { return t.Second() }))
	register("WEEKDAY", func(l *Library, args []Value) Value {
		wd := int(serialDate(l.Float(arg(args, 0))).Weekday())
		switch int(l.numArg(args, 1, 1)) {
		case 1:
			return Num(l.t.FromInt(int64(wd + 1)))
		case 2:
			return Num(l.t.FromInt(int64((wd+6)%7 + 1)))
		case 3:
			return Num(l.t.FromInt(int64((wd + 6) % 7)))
		}
		return l.err()
	})
	register("NOW", func(l *Library, _ []Value) Value { return Num(l.ctx.DateToNumber(l.ctx.Now())) })
	register("TODAY", func(l *Library, _ []Value) Value {
		now := l.ctx.Now().In(l.ctx.loc)
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, l.ctx.loc)
		return Num(l.ctx.DateToNumber(midnight))
	})
}

func dateFunc(part func(time.Time) int) Func {
	return func(l *Library, args []Value) Value {
		v := l.Float(arg(args, 0))
		if v < 0 {
			return l.err()
		}
		return Num(l.t.FromInt(int64(part(serialDate(v)))))
	}
}
