package codegen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/formula/consteval"
	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/expr"
	"github.com/xuri/formula/model"
	"github.com/xuri/formula/numeric"
)

func workbook(t *testing.T, cells map[string]interface{}) *model.Workbook {
	t.Helper()
	wb := model.NewWorkbook()
	for cell, v := range cells {
		if f, ok := v.(string); ok && len(f) > 0 && f[0] == '=' {
			require.NoError(t, wb.SetFormula("Sheet1", cell, f))
			continue
		}
		require.NoError(t, wb.SetValue("Sheet1", cell, v))
	}
	return wb
}

func output(name, cell string) model.OutputBinding {
	return model.OutputBinding{Name: name, Cell: cell, Kind: model.KindNumber}
}

func input(name, cell string) model.InputBinding {
	return model.InputBinding{Name: name, Cell: cell, Kind: model.KindNumber}
}

type compileOptions struct {
	typ  numeric.Type
	fold bool
	opts Options
}

func compile(t *testing.T, wb *model.Workbook, binding *model.Binding, co compileOptions) *Engine {
	t.Helper()
	if co.typ == nil {
		co.typ = numeric.Double64
	}
	ctx := numeric.NewContext(co.typ)
	m, err := model.Build(wb, binding, ctx, model.Options{})
	require.NoError(t, err)
	if co.fold {
		m = consteval.Fold(m, ctx, consteval.Options{})
	}
	e, err := Compile(m, ctx, co.opts)
	require.NoError(t, err)
	return e
}

// countingInputs records how often each input is read.
type countingInputs struct {
	values map[string]interface{}
	reads  map[string]int
}

func newCountingInputs(values map[string]interface{}) *countingInputs {
	return &countingInputs{values: values, reads: map[string]int{}}
}

func (c *countingInputs) Value(name string) interface{} {
	c.reads[name]++
	return c.values[name]
}

func (c *countingInputs) Section(string) []Inputs { return nil }

type failingInputs struct{ t *testing.T }

func (f failingInputs) Value(name string) interface{} {
	f.t.Errorf("input %s read", name)
	return "garbage"
}

func (f failingInputs) Section(name string) []Inputs {
	f.t.Errorf("section %s read", name)
	return nil
}

func TestCompileArithmetic(t *testing.T) {
	scaled, err := numeric.NewScaled(4)
	require.NoError(t, err)
	wb := workbook(t, map[string]interface{}{
		"A1": "=1+2*3",
		"A2": "=A3*(A4-1)/4",
	})
	binding := &model.Binding{
		Inputs:  []model.InputBinding{input("x", "A3"), input("y", "A4")},
		Outputs: []model.OutputBinding{output("const", "A1"), output("calc", "A2")},
	}
	for _, typ := range []numeric.Type{numeric.Double64, numeric.NewDecimal(2), scaled} {
		t.Run(typ.String(), func(t *testing.T) {
			for _, fold := range []bool{false, true} {
				e := compile(t, wb, binding, compileOptions{typ: typ, fold: fold})
				assert.Equal(t, []string{"const", "calc"}, e.Outputs())
				assert.Equal(t, typ, e.Type())
				in := e.NewInstance(MapInputs{Values: map[string]interface{}{"x": 6, "y": 3.0}})
				v, err := in.Float("const")
				require.NoError(t, err)
				assert.Equal(t, 7.0, v)
				v, err = in.Float("calc")
				require.NoError(t, err)
				assert.Equal(t, 3.0, v)
			}
		})
	}
}

func TestCompileMemoization(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"B2": "=B1+1",
		"B3": "=B2*B2+B1",
	})
	e := compile(t, wb, &model.Binding{
		Inputs:  []model.InputBinding{input("x", "B1")},
		Outputs: []model.OutputBinding{output("y", "B3")},
	}, compileOptions{})

	inputs := newCountingInputs(map[string]interface{}{"x": 3})
	in := e.NewInstance(inputs)
	for i := 0; i < 3; i++ {
		v, err := in.Float("y")
		require.NoError(t, err)
		assert.Equal(t, 19.0, v)
	}
	assert.Equal(t, map[string]int{"x": 1}, inputs.reads)

	other := newCountingInputs(map[string]interface{}{"x": 1})
	v, err := e.NewInstance(other).Float("y")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, 1, other.reads["x"])
}

func TestCompileConstantOutput(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"A1": "=SUM(1,2)*B2",
		"B2": 2.0,
		"C1": "=B1*2",
	})
	e := compile(t, wb, &model.Binding{
		Inputs:  []model.InputBinding{input("x", "B1")},
		Outputs: []model.OutputBinding{output("y", "A1"), output("z", "C1")},
	}, compileOptions{fold: true})

	v, err := e.NewInstance(failingInputs{t}).Float("y")
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)
	v, err = e.NewInstance(nil).Float("y")
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)

	v, err = e.NewInstance(nil).Float("z")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestCompileLazyConditionals(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"A1": "=IF(B1>0,B2,B3)",
		"A2": "=CHOOSE(B1,B2,B3)",
		"A3": "=IF(B1>5,B2)",
	})
	e := compile(t, wb, &model.Binding{
		Inputs:  []model.InputBinding{input("c", "B1"), input("p", "B2"), input("q", "B3")},
		Outputs: []model.OutputBinding{output("if", "A1"), output("choose", "A2"), output("false", "A3")},
	}, compileOptions{fold: true})

	inputs := newCountingInputs(map[string]interface{}{"c": 1, "p": 10, "q": 20})
	in := e.NewInstance(inputs)
	v, err := in.Float("if")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
	v, err = in.Float("choose")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
	assert.Zero(t, inputs.reads["q"])

	b, err := in.Bool("false")
	require.NoError(t, err)
	assert.False(t, b)

	in = e.NewInstance(MapInputs{Values: map[string]interface{}{"c": 7, "p": 10, "q": 20}})
	v, err = in.Float("choose")
	require.NoError(t, err)
	assert.True(t, e.Type().IsErr(numeric.Double(v)))
}

func sectionBook(t *testing.T) (*model.Workbook, *model.Binding) {
	t.Helper()
	wb := workbook(t, map[string]interface{}{
		"D2": "=B2*C2*(1+$F$1)",
		"E1": "=SUM(D2:D4)",
		"E2": "=AVERAGE(B2:C4)",
		"E3": "=COUNT(B2:B4)+F1",
	})
	return wb, &model.Binding{
		Inputs: []model.InputBinding{input("tax", "F1")},
		Outputs: []model.OutputBinding{
			output("total", "E1"),
			output("mean", "E2"),
			output("count", "E3"),
		},
		Sections: []model.SectionBinding{{
			Name:    "items",
			Range:   "B2:D4",
			Inputs:  []model.InputBinding{input("price", "B2"), input("qty", "C2")},
			Outputs: []model.OutputBinding{output("amount", "D2")},
		}},
	}
}

func items(tax float64, rows ...[2]float64) MapInputs {
	in := MapInputs{Values: map[string]interface{}{"tax": tax}, Sections: map[string][]MapInputs{}}
	for _, r := range rows {
		in.Sections["items"] = append(in.Sections["items"], MapInputs{
			Values: map[string]interface{}{"price": r[0], "qty": r[1]},
		})
	}
	return in
}

func TestCompileSections(t *testing.T) {
	wb, binding := sectionBook(t)
	for _, fold := range []bool{false, true} {
		e := compile(t, wb, binding, compileOptions{fold: fold})
		in := e.NewInstance(items(0.1, [2]float64{10, 2}, [2]float64{5, 1}))

		v, err := in.Float("total")
		require.NoError(t, err)
		assert.InDelta(t, 27.5, v, 1e-9)
		v, err = in.Float("mean")
		require.NoError(t, err)
		assert.InDelta(t, 4.5, v, 1e-9)
		v, err = in.Float("count")
		require.NoError(t, err)
		assert.InDelta(t, 2.1, v, 1e-9)

		rows, err := in.Section("items")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"amount"}, rows[1].Outputs())
		v, err = rows[1].Float("amount")
		require.NoError(t, err)
		assert.InDelta(t, 5.5, v, 1e-9)
		again, err := in.Section("items")
		require.NoError(t, err)
		assert.Same(t, rows[0], again[0])

		empty := e.NewInstance(items(0.1))
		v, err = empty.Float("total")
		require.NoError(t, err)
		assert.Equal(t, 0.0, v)

		_, err = in.Section("missing")
		assert.True(t, errors.Is(err, errs.ErrUnknownOutput))
	}
}

func TestCompileNestedSections(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"A2": "=SUM(C2:C2)*$E$1",
		"B1": "=SUM(A2:A5)",
	})
	e := compile(t, wb, &model.Binding{
		Inputs:  []model.InputBinding{input("k", "E1")},
		Outputs: []model.OutputBinding{output("sum", "B1")},
		Sections: []model.SectionBinding{{
			Name:    "outer",
			Range:   "A2:C5",
			Outputs: []model.OutputBinding{output("inner", "A2")},
			Sections: []model.SectionBinding{{
				Name:   "inner",
				Range:  "C2:C2",
				Inputs: []model.InputBinding{input("v", "C2")},
			}},
		}},
	}, compileOptions{fold: true})

	record := func(values ...float64) MapInputs {
		var rows []MapInputs
		for _, v := range values {
			rows = append(rows, MapInputs{Values: map[string]interface{}{"v": v}})
		}
		return MapInputs{Sections: map[string][]MapInputs{"inner": rows}}
	}
	in := e.NewInstance(MapInputs{
		Values:   map[string]interface{}{"k": 2},
		Sections: map[string][]MapInputs{"outer": {record(1, 2), record(3)}},
	})
	v, err := in.Float("sum")
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)

	outer, err := in.Section("outer")
	require.NoError(t, err)
	v, err = outer[1].Float("inner")
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)
}

func TestCompileClosures(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"A1": "=LET(K,B1,REDUCE(0,{1,2,3},LAMBDA(a,x,a+x*K)))",
		"A2": "=LET(K,B1,REDUCE(,{4,5,6},LAMBDA(a,x,i,LET(K,i,a+K))))",
		"A3": "=LET(K,B1,LET(M,K*2,M+K))",
	})
	e := compile(t, wb, &model.Binding{
		Inputs: []model.InputBinding{input("k", "B1")},
		Outputs: []model.OutputBinding{
			output("captured", "A1"),
			output("shadowed", "A2"),
			output("nested", "A3"),
		},
	}, compileOptions{fold: true})
	in := e.NewInstance(MapInputs{Values: map[string]interface{}{"k": 2}})
	for name, want := range map[string]float64{"captured": 12, "shadowed": 9, "nested": 6} {
		v, err := in.Float(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, v, name)
	}
}

func TestFreeVars(t *testing.T) {
	v := func(name string) *expr.Node { return expr.LetVar(name, expr.Numeric) }
	add := func(a, b *expr.Node) *expr.Node { return expr.Operator(expr.OpAdd, a, b) }

	assert.Equal(t, []string{"K", "M"}, freeVars(add(v("K"), add(v("M"), v("K")))))
	assert.Empty(t, freeVars(expr.Let("K", v("X"), v("K")), "X"))
	assert.Equal(t, []string{"X"}, freeVars(expr.Let("K", v("X"), add(v("K"), v("X")))))
	assert.Equal(t, []string{"K"}, freeVars(expr.Let("K", v("K"), v("K"))))
	assert.Equal(t, []string{"ACC"}, freeVars(add(v("ACC"), v("XI")), "", "XI"))

	fold := expr.NewFold(&expr.Fold{
		Acc: "A", Elt: "K",
		Step: add(v("A"), add(v("K"), v("J"))),
		Into: add(v("A"), v("K")),
	}, v("K"))
	assert.Equal(t, []string{"K", "J"}, freeVars(fold))
	assert.Equal(t, []string{"J"}, freeVars(fold, "K"))
}

func TestCompileReset(t *testing.T) {
	wb := workbook(t, map[string]interface{}{"A1": "=B1*2"})
	binding := &model.Binding{
		Inputs:  []model.InputBinding{input("x", "B1")},
		Outputs: []model.OutputBinding{output("y", "A1")},
	}
	values := map[string]interface{}{"x": 1}

	in := compile(t, wb, binding, compileOptions{}).NewInstance(MapInputs{Values: values})
	assert.True(t, errors.Is(in.Reset(), errs.ErrResetUnsupported))

	in = compile(t, wb, binding, compileOptions{opts: Options{Resettable: true}}).NewInstance(MapInputs{Values: values})
	v, err := in.Float("y")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	values["x"] = 5
	v, _ = in.Float("y")
	assert.Equal(t, 2.0, v)
	require.NoError(t, in.Reset())
	v, _ = in.Float("y")
	assert.Equal(t, 10.0, v)
}

func TestCompileAccessors(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"A1": "=DATE(2024,1,15)+B1",
		"A2": `="n="&B1`,
		"A3": "=B1>1",
	})
	e := compile(t, wb, &model.Binding{
		Inputs: []model.InputBinding{input("x", "B1")},
		Outputs: []model.OutputBinding{
			{Name: "date", Cell: "A1", Kind: model.KindTime},
			{Name: "text", Cell: "A2", Kind: model.KindString},
			{Name: "flag", Cell: "A3", Kind: model.KindBool},
		},
	}, compileOptions{fold: true})
	in := e.NewInstance(MapInputs{Values: map[string]interface{}{"x": "2"}})

	d, err := in.Time("date")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-17", d.Format(time.DateOnly))
	s, err := in.String("text")
	require.NoError(t, err)
	assert.Equal(t, "n=2", s)
	b, err := in.Bool("flag")
	require.NoError(t, err)
	assert.True(t, b)
	n, err := in.Number("flag")
	require.NoError(t, err)
	assert.Equal(t, numeric.Double(1), n)

	_, err = in.Get("missing")
	var be *errs.BindingError
	require.True(t, errors.As(err, &be))
	assert.True(t, errors.Is(err, errs.ErrUnknownOutput))
	assert.Equal(t, "Output missing is not bound.", err.Error())
}

func TestCompileInputConversion(t *testing.T) {
	wb := workbook(t, map[string]interface{}{"A1": "=B1+B2+B3"})
	e := compile(t, wb, &model.Binding{
		Inputs: []model.InputBinding{
			input("a", "B1"),
			{Name: "b", Cell: "B2", Kind: model.KindBool},
			{Name: "c", Cell: "B3", Kind: model.KindTime},
		},
		Outputs: []model.OutputBinding{output("y", "A1")},
	}, compileOptions{})

	day := time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)
	v, err := e.NewInstance(MapInputs{Values: map[string]interface{}{"a": int64(3), "b": true, "c": day}}).Float("y")
	require.NoError(t, err)
	assert.Equal(t, 65.0, v)

	v, err = e.NewInstance(MapInputs{Values: map[string]interface{}{"a": struct{}{}}}).Float("y")
	require.NoError(t, err)
	assert.True(t, e.Type().IsErr(numeric.Double(v)))
}

func TestEvaluateBatch(t *testing.T) {
	wb := workbook(t, map[string]interface{}{"A1": "=B1*B1"})
	e := compile(t, wb, &model.Binding{
		Inputs:  []model.InputBinding{input("x", "B1")},
		Outputs: []model.OutputBinding{output("y", "A1")},
	}, compileOptions{fold: true})

	var inputs []Inputs
	for i := 0; i < 50; i++ {
		inputs = append(inputs, MapInputs{Values: map[string]interface{}{"x": i}})
	}
	rows, err := EvaluateBatch(context.Background(), e, inputs, []string{"y"}, 4)
	require.NoError(t, err)
	require.Len(t, rows, len(inputs))
	for i, row := range rows {
		assert.Equal(t, numeric.Num(numeric.Double(float64(i*i))), row[0], i)
	}

	rows, err = EvaluateBatch(context.Background(), e, nil, []string{"y"}, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = EvaluateBatch(context.Background(), e, inputs, []string{"nope"}, 0)
	assert.True(t, errors.Is(err, errs.ErrUnknownOutput))
	_, err = EvaluateBatch(context.Background(), e, []Inputs{failingInputs{t}}, []string{"y", "nope"}, 1)
	assert.True(t, errors.Is(err, errs.ErrUnknownOutput))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = EvaluateBatch(ctx, e, inputs, []string{"y"}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
