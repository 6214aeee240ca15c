package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/expr"
	"github.com/xuri/formula/numeric"
)

var ctx = numeric.NewContext(numeric.Double64)

func workbook(t *testing.T, cells map[string]interface{}) *Workbook {
	t.Helper()
	wb := NewWorkbook()
	for cell, v := range cells {
		if f, ok := v.(string); ok && len(f) > 0 && f[0] == '=' {
			require.NoError(t, wb.SetFormula("Sheet1", cell, f))
			continue
		}
		require.NoError(t, wb.SetValue("Sheet1", cell, v))
	}
	return wb
}

func output(name, cell string) OutputBinding {
	return OutputBinding{Name: name, Cell: cell, Kind: KindNumber}
}

func TestWorkbook(t *testing.T) {
	wb := NewWorkbook("Data", "Report")
	assert.Equal(t, []string{"Data", "Report"}, wb.Sheets())
	require.NoError(t, wb.SetFormula("Data", "B2", "=A1+1"))
	require.NoError(t, wb.SetValue("Report", "A1", 2.5))
	assert.Error(t, wb.SetValue("Missing", "A1", 1))
	assert.Error(t, wb.SetValue("Data", "1A", 1))

	c, ok := wb.Cell("Data", 2, 2)
	require.True(t, ok)
	assert.Equal(t, "A1+1", c.Formula)
	_, ok = wb.Cell("Data", 3, 3)
	assert.False(t, ok)

	require.NoError(t, wb.SetValue("Report", "A1", nil))
	_, ok = wb.Cell("Report", 1, 1)
	assert.False(t, ok)

	require.NoError(t, wb.DefineName("Rate", "Report!$C$3"))
	a, ok := wb.DefinedName("RATE")
	require.True(t, ok)
	assert.Equal(t, Area{Sheet: "Report", Col: 3, Row: 3, ToCol: 3, ToRow: 3}, a)
	assert.Error(t, wb.DefineName("x", "Nope!A1"))
}

func TestParseArea(t *testing.T) {
	a, err := ParseArea("'My Sheet'!C9:A2", "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, Area{Sheet: "My Sheet", Col: 1, Row: 2, ToCol: 3, ToRow: 9}, a)
	assert.Equal(t, 8, a.Rows())
	assert.Equal(t, 3, a.Cols())
	assert.Equal(t, "'My Sheet'!A2:C9", a.String())
	assert.True(t, a.Covers(Area{Sheet: "My Sheet", Col: 2, Row: 3, ToCol: 3, ToRow: 9}))
	assert.False(t, a.Overlaps(Area{Sheet: "Sheet1", Col: 1, Row: 2, ToCol: 1, ToRow: 2}))

	a, err = ParseArea("B2", "Sheet1")
	require.NoError(t, err)
	assert.True(t, a.IsCell())
	assert.Equal(t, "Sheet1!B2", a.String())

	_, err = ParseArea("B", "Sheet1")
	assert.Error(t, err)
}

func TestBuildCells(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"A1": 1.0,
		"A2": "=A1*2",
		"A3": "=SUM(A1:A2)+B9",
		"A4": "=A2+A3",
	})
	m, err := Build(wb, &Binding{
		Inputs:  []InputBinding{{Name: "x", Cell: "A1"}},
		Outputs: []OutputBinding{output("y", "A4")},
	}, ctx, Options{})
	require.NoError(t, err)

	root := m.Root
	require.Len(t, root.Outputs, 1)
	require.Len(t, root.Inputs, 1)
	assert.Equal(t, "x", root.Inputs[0].Input)

	a4 := root.Outputs[0].Cell
	assert.Equal(t, "Sheet1!A4", a4.Address())
	assert.Equal(t, "Sheet1!A2+Sheet1!A3", a4.Expr.String())
	a2 := a4.Expr.Args[0].Target.(*CellModel)
	assert.Equal(t, "Sheet1!A1*2", a2.Expr.String())

	sum := a4.Expr.Args[1].Target.(*CellModel).Expr.Args[0]
	require.Equal(t, expr.KindFold, sum.Kind)
	require.Len(t, sum.Args, 1)
	assert.Equal(t, expr.KindArray, sum.Args[0].Kind)
	assert.Equal(t, expr.NewArrayDescriptor(2, 1), sum.Args[0].Array)

	b9 := a4.Expr.Args[1].Target.(*CellModel).Expr.Args[1].Target.(*CellModel)
	assert.True(t, b9.IsConstant())
	assert.True(t, b9.Expr.Value.IsEmpty())

	require.Len(t, m.Levels, 3)
	assert.Equal(t, []*CellModel{a2}, m.Levels[0])
	assert.Equal(t, []*CellModel{a4}, m.Levels[2])
}

func TestBuildNames(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"A1": "=SUM(prices)*rate",
		"B5": 2.0,
		"B6": 3.0,
		"F1": 0.5,
	})
	require.NoError(t, wb.DefineName("prices", "B5:B6"))
	require.NoError(t, wb.DefineName("rate", "F1"))
	m, err := Build(wb, &Binding{Outputs: []OutputBinding{output("y", "A1")}}, ctx, Options{})
	require.NoError(t, err)
	root := m.Root.Outputs[0].Cell.Expr
	assert.Equal(t, expr.KindArray, root.Args[0].Args[0].Kind)
	assert.Equal(t, "Sheet1!F1", root.Args[1].String())

	wb = workbook(t, map[string]interface{}{"A1": "=missing+1"})
	_, err = Build(wb, &Binding{Outputs: []OutputBinding{output("y", "A1")}}, ctx, Options{})
	var be *errs.BindingError
	require.True(t, errors.As(err, &be))
	assert.Contains(t, err.Error(), "Name missing is not defined")
}

func TestBuildUnsupportedFunction(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"A1": "=1+INFO(B1)",
		"A2": "=A1*2",
	})
	_, err := Build(wb, &Binding{Outputs: []OutputBinding{output("y", "A2")}}, ctx, Options{})
	var ue *errs.UnsupportedExpressionError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "Unsupported function INFO encountered in expression 1+INFO( <<? B1); error location indicated by <<?.\n"+
		"Cell containing expression is Sheet1!A1.\n"+
		"Referenced by cell Sheet1!A2.", err.Error())

	wb = workbook(t, map[string]interface{}{"A1": `=ASC("a")`})
	_, err = Build(wb, &Binding{Outputs: []OutputBinding{{Name: "y", Cell: "A1", Kind: KindString}}}, ctx, Options{})
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "Function ASC is not supported for double engines.\nCell containing expression is Sheet1!A1.", err.Error())

	scaled, err := numeric.NewScaled(4)
	require.NoError(t, err)
	wb = workbook(t, map[string]interface{}{"A1": "=IRR({-100,60,60})"})
	_, err = Build(wb, &Binding{Outputs: []OutputBinding{output("y", "A1")}}, numeric.NewContext(scaled), Options{})
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "IRR", ue.Function)
}

func TestBuildErrors(t *testing.T) {
	for _, c := range []struct {
		name    string
		cells   map[string]interface{}
		binding Binding
		check   func(t *testing.T, err error)
	}{
		{
			name:    "circular",
			cells:   map[string]interface{}{"A1": "=A2+1", "A2": "=A1+1"},
			binding: Binding{Outputs: []OutputBinding{output("y", "A1")}},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errs.ErrCircularReference))
				assert.Contains(t, err.Error(), "Sheet1!A1, Sheet1!A2")
			},
		},
		{
			name:    "self reference",
			cells:   map[string]interface{}{"A1": "=A1+1"},
			binding: Binding{Outputs: []OutputBinding{output("y", "A1")}},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errs.ErrCircularReference))
			},
		},
		{
			name:    "output without formula",
			cells:   map[string]interface{}{"A1": 1.0},
			binding: Binding{Outputs: []OutputBinding{output("y", "B7")}},
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "Output y: cell Sheet1!B7 has no formula or value.")
			},
		},
		{
			name:    "missing sheet",
			cells:   map[string]interface{}{"A1": 1.0},
			binding: Binding{Outputs: []OutputBinding{output("y", "Other!A1")}},
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "Output y: sheet Other does not exist.")
			},
		},
		{
			name:    "text output declared number",
			cells:   map[string]interface{}{"A1": `="a"&"b"`},
			binding: Binding{Outputs: []OutputBinding{output("y", "A1")}},
			check: func(t *testing.T, err error) {
				var te *errs.TypeError
				assert.True(t, errors.As(err, &te))
			},
		},
		{
			name:  "factory arity",
			cells: map[string]interface{}{"A1": "=B1"},
			binding: Binding{
				Inputs:  []InputBinding{{Name: "b", Cell: "B1"}},
				Outputs: []OutputBinding{output("y", "A1")},
				Factory: &FactorySignature{Outputs: []ValueKind{KindNumber}},
			},
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "Factory takes 0 inputs but 1 are bound.")
			},
		},
		{
			name:  "factory kinds",
			cells: map[string]interface{}{"A1": "=B1"},
			binding: Binding{
				Inputs:  []InputBinding{{Name: "b", Cell: "B1"}},
				Outputs: []OutputBinding{output("y", "A1")},
				Factory: &FactorySignature{Inputs: []ValueKind{KindString}, Outputs: []ValueKind{KindNumber}},
			},
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "Factory input 1 is string but input b is bound as number.")
			},
		},
		{
			name:  "duplicate input",
			cells: map[string]interface{}{"A1": "=B1"},
			binding: Binding{
				Inputs:  []InputBinding{{Name: "b", Cell: "B1"}, {Name: "b", Cell: "B2"}},
				Outputs: []OutputBinding{output("y", "A1")},
			},
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "Input b is declared twice.")
			},
		},
		{
			name:    "syntax",
			cells:   map[string]interface{}{"A1": "=1+"},
			binding: Binding{Outputs: []OutputBinding{output("y", "A1")}},
			check: func(t *testing.T, err error) {
				var se *errs.SyntaxError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, []string{"Cell containing expression is Sheet1!A1."}, se.Trail)
			},
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			m, err := Build(workbook(t, c.cells), &c.binding, ctx, Options{})
			require.Error(t, err)
			assert.Nil(t, m)
			c.check(t, err)
		})
	}
}

func sectionBook(t *testing.T) (*Workbook, *Binding) {
	t.Helper()
	wb := workbook(t, map[string]interface{}{
		"B2": 10.0, "C2": 1.0, "D2": "=B2*C2*(1+$F$1)",
		"B3": 20.0, "C3": 2.0, "D3": "=B3*C3*(1+$F$1)",
		"B4": 30.0, "C4": 3.0, "D4": "=B4*C4*(1+$F$1)",
		"F1": 0.1,
		"E1": "=SUM(D2:D4)",
		"E2": "=AVERAGE(B2:C4)",
	})
	return wb, &Binding{
		Inputs: []InputBinding{{Name: "tax", Cell: "F1"}},
		Outputs: []OutputBinding{
			output("total", "E1"),
			output("mean", "E2"),
		},
		Sections: []SectionBinding{{
			Name:    "items",
			Range:   "B2:D4",
			Inputs:  []InputBinding{{Name: "price", Cell: "B2"}, {Name: "qty", Cell: "C2"}},
			Outputs: []OutputBinding{output("amount", "D2")},
		}},
	}
}

func TestBuildSections(t *testing.T) {
	wb, binding := sectionBook(t)
	m, err := Build(wb, binding, ctx, Options{})
	require.NoError(t, err)

	items := m.Root.Section("items")
	require.NotNil(t, items)
	assert.Equal(t, "items", items.Path())
	assert.Equal(t, 1, items.Depth())
	assert.Equal(t, Area{Sheet: "Sheet1", Col: 2, Row: 2, ToCol: 4, ToRow: 2}, items.Template)
	require.Len(t, items.Inputs, 2)

	amount := items.Output("amount").Cell
	assert.Same(t, items, amount.Section)
	tax := amount.Expr.Args[1].Args[1].Target.(*CellModel)
	assert.Same(t, m.Root, tax.Section)
	assert.Equal(t, "tax", tax.Input)

	total := m.Root.Output("total").Cell.Expr
	require.Equal(t, expr.KindFold, total.Kind)
	require.Len(t, total.Args, 1)
	assert.Equal(t, expr.KindSubSection, total.Args[0].Kind)
	assert.Same(t, amount, total.Args[0].Target)

	mean := m.Root.Output("mean").Cell.Expr
	require.Len(t, mean.Args, 2)
	assert.Equal(t, expr.KindSubSection, mean.Args[0].Kind)
	assert.Equal(t, "Sheet1!C2", mean.Args[1].Target.Address())

	for _, c := range []struct {
		formula, message string
	}{
		{"=D2*2", "Cell Sheet1!D2 lies in repeating section items and can only be referenced by an aggregating range."},
		{"=SUM(D2:D3)", "Range Sheet1!D2:D3 is not aligned with section items"},
		{"=SUM(A1:B9)", "is not aligned with section items"},
	} {
		wb, binding := sectionBook(t)
		require.NoError(t, wb.SetFormula("Sheet1", "E1", c.formula))
		_, err := Build(wb, binding, ctx, Options{})
		require.Error(t, err, c.formula)
		assert.Contains(t, err.Error(), c.message)
		assert.Contains(t, err.Error(), "Cell containing expression is Sheet1!E1.")
	}

	wb, binding = sectionBook(t)
	require.NoError(t, wb.SetFormula("Sheet1", "D2", "=B3*C2"))
	_, err = Build(wb, binding, ctx, Options{})
	assert.ErrorContains(t, err, "Cell Sheet1!B3 lies in section items outside its first record.")

	wb, binding = sectionBook(t)
	binding.Sections = append(binding.Sections, SectionBinding{Name: "other", Range: "C3:C9"})
	_, err = Build(wb, binding, ctx, Options{})
	assert.EqualError(t, err, "Sections items and other overlap.")
}

func TestBuildNestedSections(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"A2": "=SUM(C2:C2)",
		"B1": "=SUM(A2:A5)",
	})
	m, err := Build(wb, &Binding{
		Outputs: []OutputBinding{output("sum", "B1")},
		Sections: []SectionBinding{{
			Name:    "outer",
			Range:   "A2:C5",
			Outputs: []OutputBinding{output("inner", "A2")},
			Sections: []SectionBinding{{
				Name:   "inner",
				Range:  "C2:C2",
				Inputs: []InputBinding{{Name: "v", Cell: "C2"}},
			}},
		}},
	}, ctx, Options{})
	require.NoError(t, err)
	inner := m.Root.Section("outer").Section("inner")
	require.NotNil(t, inner)
	assert.Equal(t, "outer/inner", inner.Path())
	a2 := m.Root.Section("outer").Output("inner").Cell
	assert.Equal(t, expr.KindSubSection, a2.Expr.Args[0].Kind)

	_, err = Build(wb, &Binding{
		Sections: []SectionBinding{{
			Name:     "outer",
			Range:    "A2:C5",
			Sections: []SectionBinding{{Name: "inner", Range: "C2:C3"}},
		}},
	}, ctx, Options{})
	assert.ErrorContains(t, err, "must lie in the first record")
}

func TestParseCache(t *testing.T) {
	wb := workbook(t, map[string]interface{}{
		"A1": "=B1+1", "A2": "=B1+1", "A3": "=B1+1",
		"A4": "=A1+A2+A3",
	})
	b := NewBuilder(wb, ctx, Options{})
	m, err := b.Build(&Binding{Outputs: []OutputBinding{output("y", "A4")}})
	require.NoError(t, err)
	assert.Equal(t, 2, b.cache.Hits())
	assert.Equal(t, 2, b.cache.Len())
	sum := m.Root.Outputs[0].Cell.Expr.Args[0]
	assert.NotSame(t, sum.Args[0].Target, sum.Args[1].Target)

	cache := newParseCache(1)
	assert.False(t, cache.Store("Sheet1", "1", nil))
	assert.True(t, cache.Store("Sheet1", "2", nil))
	_, ok := cache.Load("Sheet1", "1")
	assert.False(t, ok)
	_, ok = cache.Load("Sheet2", "2")
	assert.False(t, ok)
	_, ok = cache.Load("Sheet1", "2")
	assert.True(t, ok)

	disabled := newParseCache(-1)
	disabled.Store("Sheet1", "1", nil)
	assert.Equal(t, 0, disabled.Len())
}

func TestBindingSnapshot(t *testing.T) {
	wb := workbook(t, map[string]interface{}{"A1": "=B1*2"})
	binding := &Binding{
		Inputs:  []InputBinding{{Name: "b", Cell: "B1"}},
		Outputs: []OutputBinding{output("y", "A1")},
	}
	m, err := Build(wb, binding, ctx, Options{})
	require.NoError(t, err)
	binding.Outputs[0].Name = "changed"
	assert.NotNil(t, m.Root.Output("y"))
}
