package numeric

import (
	"math"
	"time"
)

// Constants of the 1900 date system. Serial day 60 is the non-existent
// 29 February 1900; serials below NonLeapDay are shifted by one day.
const (
	NonLeapDay    = 61
	UTCOffsetDays = 25569

	secsPerDay = 24 * 60 * 60
	msPerDay   = secsPerDay * 1000
)

// DateToNum converts t to a date serial number. The wall clock of t in loc
// is what the serial represents.
func DateToNum(t time.Time, loc *time.Location) float64 {
	w := t.In(loc)
	utc := time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), time.UTC)
	return utcDateToNum(utc.UnixMilli())
}

func utcDateToNum(ms int64) float64 {
	isTime := ms >= 0 && ms < msPerDay
	v := float64(ms)/msPerDay + UTCOffsetDays
	if !isTime && v < NonLeapDay {
		v--
	}
	if isTime {
		v -= math.Trunc(v)
	}
	return v
}

// DateFromNum converts a date serial number to the time with that wall
// clock in loc, rounded to whole seconds.
func DateFromNum(v float64, loc *time.Location) time.Time {
	isTime := math.Abs(v) < 1
	if !isTime && v < NonLeapDay {
		v++
	}
	ms := int64(math.Round((v-UTCOffsetDays)*secsPerDay)) * 1000
	w := time.UnixMilli(ms).UTC()
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, loc)
}

// DateToNumber converts t in the context's zone and representation.
func (c *Context) DateToNumber(t time.Time) Number {
	return c.typ.FromFloat(DateToNum(t, c.loc))
}

// DateFromNumber converts a serial of the context's representation to a
// time in the context's zone.
func (c *Context) DateFromNumber(n Number) time.Time {
	return DateFromNum(c.typ.ToFloat(n), c.loc)
}

// serialDate returns the calendar components of a serial number.
func serialDate(v float64) time.Time { return DateFromNum(v, time.UTC) }
