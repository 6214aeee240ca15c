package numeric

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func allTypes(t *testing.T) []Type {
	scaled, err := NewScaled(4)
	require.NoError(t, err)
	return []Type{Double64, NewDecimal(2), NewDecimal(-1), scaled}
}

func TestParseType(t *testing.T) {
	for _, c := range []struct {
		text  string
		kind  Kind
		scale int
	}{
		{"double", KindDouble, -1},
		{"decimal", KindDecimal, -1},
		{"decimal:8", KindDecimal, 8},
		{"scaled:4", KindScaled, 4},
		{"SCALED", KindScaled, 0},
	} {
		typ, err := ParseType(c.text)
		require.NoError(t, err, c.text)
		assert.Equal(t, c.kind, typ.Kind(), c.text)
		assert.Equal(t, c.scale, typ.Scale(), c.text)
	}
	_, err := ParseType("scaled:19")
	assert.Error(t, err)
	_, err = ParseType("double:2")
	assert.Error(t, err)
	_, err = ParseType("complex")
	assert.Error(t, err)
}

func TestArithmetic(t *testing.T) {
	for _, typ := range allTypes(t) {
		t.Run(typ.String(), func(t *testing.T) {
			two, three := typ.FromInt(2), typ.FromInt(3)
			assert.Equal(t, 7.0, typ.ToFloat(typ.Add(typ.One(), typ.Mul(two, three))))
			assert.Equal(t, 1.5, typ.ToFloat(typ.Div(three, two)))
			assert.Equal(t, 8.0, typ.ToFloat(typ.Pow(two, three)))
			assert.Equal(t, 1.0, typ.ToFloat(typ.Mod(typ.FromInt(-5), three)))
			assert.Equal(t, -1.0, typ.ToFloat(typ.Mod(typ.FromInt(5), typ.FromInt(-3))))
			assert.Equal(t, -1, typ.Cmp(two, three))
			assert.Equal(t, 0, typ.Cmp(typ.FromFloat(1.5), typ.Div(three, two)))
			assert.Equal(t, "1.5", typ.Format(typ.FromFloat(1.5)))
			assert.Equal(t, "0", typ.Format(typ.Zero()))
			assert.True(t, typ.ToBool(typ.FromBool(true)))
			assert.Equal(t, 2.0, typ.ToFloat(typ.Floor(typ.FromFloat(2.75))))
			assert.Equal(t, -3.0, typ.ToFloat(typ.Floor(typ.FromFloat(-2.25))))
		})
	}
}

func TestScaledOverflow(t *testing.T) {
	scaled, err := NewScaled(4)
	require.NoError(t, err)
	large := scaled.FromInt(1e9)
	assert.Equal(t, Scaled(0), scaled.Mul(large, large))
	assert.Equal(t, Scaled(0), scaled.Div(scaled.FromInt(1e14), scaled.FromFloat(0.0001)))
	assert.Equal(t, 1e12, scaled.ToFloat(scaled.Mul(large, scaled.FromInt(1000))))
	assert.Equal(t, 1e13, scaled.ToFloat(scaled.Div(large, scaled.FromFloat(0.0001))))
}

func TestNumericOnlyText(t *testing.T) {
	lib := NewLibrary(NewContext(Double64))
	args := []Value{Str("abc"), Str(" 2 "), Empty, Num(Double(3))}
	assert.Equal(t, []Value{Num(Double(2)), Num(Double(3))}, lib.FoldElements(args, true))
	assert.Len(t, lib.FoldElements(args, false), 4)
	assert.Equal(t, Double(2), lib.Call("COUNT", args).Num)
	assert.Equal(t, Double(5), lib.Call("SUM", args).Num)
	assert.Equal(t, Double(0), lib.Call("COUNT", []Value{Str("abc")}).Num)
}

func TestRound(t *testing.T) {
	for _, typ := range allTypes(t) {
		t.Run(typ.String(), func(t *testing.T) {
			for _, c := range []struct {
				fn     func(Type, Number, int) Number
				v      float64
				digits int
				want   float64
			}{
				{Type.Round, 2.5, 0, 3},
				{Type.Round, -2.5, 0, -3},
				{Type.Round, 1.25, 1, 1.3},
				{Type.Round, 1.24, 1, 1.2},
				{Type.Round, 1250, -2, 1300},
				{Type.RoundUp, 1.21, 1, 1.3},
				{Type.RoundUp, -1.21, 1, -1.3},
				{Type.RoundDown, 1.29, 1, 1.2},
				{Type.RoundDown, -1.29, 1, -1.2},
			} {
				got := typ.ToFloat(c.fn(typ, typ.FromFloat(c.v), c.digits))
				assert.InDelta(t, c.want, got, 1e-9, "%v digits %d", c.v, c.digits)
			}
		})
	}
}

func TestConversions(t *testing.T) {
	scaled, err := NewScaled(3)
	require.NoError(t, err)
	n := scaled.FromDecimal(decimal.RequireFromString("12.3456"))
	assert.Equal(t, Scaled(12346), n)
	assert.Equal(t, int64(1235), scaled.ToScaled(n, 2))
	assert.Equal(t, "12.346", scaled.Format(n))
	assert.Equal(t, 12.346, Double64.ToFloat(Double64.FromScaled(12346, 3)))
	assert.True(t, NewDecimal(2).ToDecimal(NewDecimal(2).FromScaled(12346, 3)).Equal(decimal.RequireFromString("12.35")))
	assert.Equal(t, 12, scaled.ToInt(n))
}

func TestErrorSentinels(t *testing.T) {
	for _, typ := range allTypes(t) {
		lib := NewLibrary(NewContext(typ))
		for _, c := range []struct {
			name string
			args []Value
		}{
			{"ACOS", []Value{Num(typ.FromInt(2))}},
			{"ASIN", []Value{Num(typ.FromInt(-2))}},
			{"LN", []Value{Num(typ.Zero())}},
			{"LOG", []Value{Num(typ.FromInt(-1))}},
			{"LOG10", []Value{Num(typ.Zero())}},
			{"SQRT", []Value{Num(typ.FromInt(-4))}},
			{"FACT", []Value{Num(typ.FromInt(-1))}},
			{"MOD", []Value{Num(typ.One()), Num(typ.Zero())}},
		} {
			got := lib.Call(c.name, c.args)
			require.Equal(t, TypeNumber, got.Type, c.name)
			if typ.Kind() == KindDouble {
				assert.True(t, math.IsNaN(typ.ToFloat(got.Num)), "%s on %s", c.name, typ)
			} else {
				assert.Equal(t, 0.0, typ.ToFloat(got.Num), "%s on %s", c.name, typ)
			}
		}
		assert.Equal(t, typ.Kind() == KindDouble, typ.IsErr(typ.Div(typ.One(), typ.Zero())))
	}
}

func TestDateConversion(t *testing.T) {
	assert.Equal(t, time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC), DateFromNum(61, time.UTC))
	assert.Equal(t, time.Date(1900, time.February, 28, 0, 0, 0, 0, time.UTC), DateFromNum(59, time.UTC))
	assert.Equal(t, time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC), DateFromNum(1, time.UTC))
	assert.Equal(t, 61.0, DateToNum(time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, 25570.0, DateToNum(time.Date(1970, time.January, 2, 0, 0, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, 0.5, DateToNum(time.Date(1970, time.January, 1, 12, 0, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, 12, DateFromNum(0.5, time.UTC).Hour())
	// Midnight of 1 January 1970 reads as a pure time of day.
	assert.Equal(t, 0.0, DateToNum(time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC), DateFromNum(0, time.UTC))

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		berlin = time.FixedZone("CET", 3600)
	}
	for _, loc := range []*time.Location{time.UTC, berlin} {
		for d := time.Date(1900, time.March, 1, 0, 0, 0, 0, loc); d.Year() < 2100; d = d.AddDate(0, 0, 397) {
			stamp := d.Add(13*time.Hour + 7*time.Minute + 11*time.Second)
			require.True(t, stamp.Equal(DateFromNum(DateToNum(stamp, loc), loc)), "%v", stamp)
		}
	}

	ctx := NewContext(NewDecimal(6))
	n := ctx.DateToNumber(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), ctx.DateFromNumber(n))
}

func TestDateFunctions(t *testing.T) {
	lib := NewLibrary(NewContext(Double64, WithClock(func() time.Time {
		return time.Date(2024, time.May, 17, 15, 30, 10, 500, time.UTC)
	})))
	num := func(f float64) Value { return Num(Double(f)) }
	serial := lib.Call("DATE", []Value{num(2024), num(5), num(17)})
	assert.Equal(t, Double(45429), serial.Num)
	assert.Equal(t, Double(2024), lib.Call("YEAR", []Value{serial}).Num)
	assert.Equal(t, Double(5), lib.Call("MONTH", []Value{serial}).Num)
	assert.Equal(t, Double(17), lib.Call("DAY", []Value{serial}).Num)
	assert.Equal(t, Double(6), lib.Call("WEEKDAY", []Value{serial}).Num)
	assert.Equal(t, Double(45429), lib.Call("TODAY", nil).Num)
	now := lib.Call("NOW", nil)
	assert.Equal(t, Double(15), lib.Call("HOUR", []Value{now}).Num)
	assert.Equal(t, Double(30), lib.Call("MINUTE", []Value{now}).Num)
	assert.Equal(t, Double(10), lib.Call("SECOND", []Value{now}).Num)
	assert.Equal(t, Double(0.5), lib.Call("TIME", []Value{num(12), num(0), num(0)}).Num)
}

func TestSearchAndFind(t *testing.T) {
	lib := NewLibrary(NewContext(Double64))
	assert.Equal(t, 1, lib.Search("a*c", "ABC", 1))
	assert.Equal(t, 1, lib.Search("a~*c", "a*c", 1))
	assert.Equal(t, 0, lib.Search("a~*c", "abc", 1))
	assert.Equal(t, 2, lib.Search("b?d", "abcd", 1))
	assert.Equal(t, 3, lib.Search("(x)", "ab(X)", 1))
	assert.Equal(t, 4, lib.Search("a", "abca", 2))
	assert.Equal(t, 0, lib.Search("a", "", 1))
	assert.Equal(t, 1, lib.Search("", "abc", 1))
	assert.Equal(t, 0, lib.Search("a", "abc", 5))
	assert.Equal(t, 2, lib.Search("ö", "Zöe", 1))
	assert.Equal(t, 3, lib.Search("B", "aİb", 1))
	assert.Equal(t, 3, lib.Search("x", "İİx", 1))
	assert.Equal(t, 2, lib.Search("i*", "aİb", 1))
	assert.Equal(t, 4, lib.Search("b", "İaİb", 2))

	assert.Equal(t, 0, Find("a", "ABC", 1))
	assert.Equal(t, 2, Find("B", "ABC", 1))
	assert.Equal(t, 1, Find("", "ABC", 1))
	assert.Equal(t, 0, Find("A", "", 1))
	assert.Equal(t, 0, Find("*", "abc", 1))
	assert.Equal(t, 4, Find("A", "ABCA", 2))
}

func TestTextFunctions(t *testing.T) {
	lib := NewLibrary(NewContext(Double64))
	str := func(name string, args ...Value) string { return lib.Call(name, args).Str }
	n := func(f float64) Value { return Num(Double(f)) }
	assert.Equal(t, "bc", str("MID", Str("abcd"), n(2), n(2)))
	assert.Equal(t, "", str("MID", Str("abcd"), n(0), n(2)))
	assert.Equal(t, "ab", str("LEFT", Str("abcd"), n(2)))
	assert.Equal(t, "a", str("LEFT", Str("abcd")))
	assert.Equal(t, "cd", str("RIGHT", Str("abcd"), n(2)))
	assert.Equal(t, "a b c", str("TRIM", Str("  a   b c ")))
	assert.Equal(t, "xbxb", str("SUBSTITUTE", Str("abab"), Str("a"), Str("x")))
	assert.Equal(t, "abxb", str("SUBSTITUTE", Str("abab"), Str("a"), Str("x"), n(2)))
	assert.Equal(t, "aXYd", str("REPLACE", Str("abcd"), n(2), n(2), Str("XY")))
	assert.Equal(t, "abXY", str("REPLACE", Str("abcd"), n(3), n(5), Str("XY")))
	assert.Equal(t, "Hello World-Wide", str("PROPER", Str("hELLO wORLD-wide")))
	assert.Equal(t, "ABC", str("UPPER", Str("abc")))
	assert.Equal(t, "ababab", str("REPT", Str("ab"), n(3)))
	assert.Equal(t, "a1.5", str("CONCATENATE", Str("a"), n(1.5)))
	assert.Equal(t, Double(3), lib.Call("LEN", []Value{Str("äbc")}).Num)
	assert.Equal(t, Double(1), lib.Call("EXACT", []Value{Str("a"), Str("a")}).Num)
	assert.Equal(t, Double(0), lib.Call("EXACT", []Value{Str("a"), Str("A")}).Num)
	assert.Equal(t, Double(0.25), lib.Call("VALUE", []Value{Str(" 25% ")}).Num)
	assert.Equal(t, Double(1234.5), lib.Call("VALUE", []Value{Str("1,234.5")}).Num)
	assert.Equal(t, "3.14", str("TEXT", n(3.14159), Str("0.00")))
	assert.Equal(t, "25%", str("TEXT", n(0.25), Str("0%")))

	german := NewLibrary(NewContext(Double64, WithLocale(language.German)))
	assert.Equal(t, Double(1234.5), german.Call("VALUE", []Value{Str("1.234,5")}).Num)
}

func TestLookupFunctions(t *testing.T) {
	lib := NewLibrary(NewContext(Double64))
	n := func(f float64) Value { return Num(Double(f)) }
	arr := Array(2, 2, []Value{n(1), n(2), n(3), n(4)})
	assert.Equal(t, n(3), lib.Index(arr, 2, 1))
	assert.Equal(t, n(2), lib.Index(Array(1, 2, []Value{n(1), n(2)}), 2, 0))
	assert.True(t, math.IsNaN(float64(lib.Index(arr, 3, 1).Num.(Double))))
	assert.Equal(t, Str("b"), lib.Call("CHOOSE", []Value{n(2), Str("a"), Str("b")}))
	list := Array(1, 4, []Value{n(10), n(20), n(30), n(40)})
	assert.Equal(t, n(2), lib.Call("MATCH", []Value{n(25), list}))
	assert.Equal(t, n(3), lib.Call("MATCH", []Value{n(30), list, n(0)}))
	assert.Equal(t, n(1), lib.Call("AND", []Value{n(1), Empty, n(2)}))
	assert.Equal(t, n(0), lib.Call("OR", []Value{n(0), Empty}))
	assert.Equal(t, n(0), lib.Call("IF", []Value{n(0), n(1)}))
}

func TestMathFunctions(t *testing.T) {
	for _, typ := range allTypes(t) {
		lib := NewLibrary(NewContext(typ))
		f := func(name string, args ...float64) float64 {
			vals := make([]Value, len(args))
			for i, a := range args {
				vals[i] = Num(typ.FromFloat(a))
			}
			return typ.ToFloat(lib.Call(name, vals).Num)
		}
		assert.Equal(t, 4.0, f("EVEN", 3), typ.String())
		assert.Equal(t, -4.0, f("EVEN", -3), typ.String())
		assert.Equal(t, 5.0, f("ODD", 4), typ.String())
		assert.Equal(t, -5.0, f("ODD", -4), typ.String())
		assert.Equal(t, 120.0, f("FACT", 5), typ.String())
		assert.Equal(t, 1.5, f("ABS", -1.5), typ.String())
		assert.Equal(t, -1.0, f("SIGN", -7), typ.String())
		assert.Equal(t, 2.0, f("MIN", 3, 2, 5), typ.String())
		assert.Equal(t, 5.0, f("MAX", 3, 2, 5), typ.String())
		assert.Equal(t, 10.0, f("SUM", 3, 2, 5), typ.String())
		assert.InDelta(t, 3.0, f("LOG", 8, 2), 1e-4, typ.String())
	}
}

func TestFinancialFunctions(t *testing.T) {
	r := IRR([]float64{-100, 39, 59, 55, 20}, 0.1)
	assert.InDelta(t, 0.2809484, r, 1e-6)
	assert.Equal(t, 0.0, IRR([]float64{-100, 100}, 0))
	assert.True(t, math.IsNaN(IRR([]float64{100, 100}, 0.1)))

	rate, ok := Rate(10, -200, 1000, 0, 0, 0.1)
	require.True(t, ok)
	assert.InDelta(t, 0.151, rate, 1e-3)
	assert.InDelta(t, 1000, PV(rate, 10, -200, 0, 0), 1e-3)

	assert.InDelta(t, -1037.03, PMT(0.08/12, 10, 10000, 0, 0), 1e-2)
	assert.InDelta(t, -59777.15, PV(0.08/12, 240, 500, 0, 0), 1e-2)
	assert.InDelta(t, 186.0833333, DB(1000000, 100000, 6, 1, 7)/1000, 1e-6)
	assert.InDelta(t, 1.3150685, DDB(2400, 300, 10*365, 1, 2), 1e-6)

	scaled, err := NewScaled(4)
	require.NoError(t, err)
	assert.False(t, NewLibrary(NewContext(scaled)).Supports("IRR"))
	assert.True(t, NewLibrary(NewContext(Double64)).Supports("IRR"))
	assert.False(t, NewLibrary(NewContext(Double64)).Supports("ASC"))
	assert.True(t, Known("ASC"))
	assert.False(t, Known("INFO"))
}
