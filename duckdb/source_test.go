package duckdb

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/formula"
	"github.com/xuri/formula/codegen"
	"github.com/xuri/formula/model"
)

func newSource(t *testing.T) *Source {
	t.Helper()
	s, err := NewSource(DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	require.NoError(t, s.LoadRows("Items", []string{"id", "price", "qty", "name"}, [][]interface{}{
		{int64(1), 10.0, int64(2), "pen"},
		{int64(2), 5.0, int64(1), "ink"},
		{int64(3), 2.5, int64(4), nil},
	}))
	return s
}

func orderEngine(t *testing.T) *codegen.Engine {
	t.Helper()
	wb := model.NewWorkbook()
	require.NoError(t, wb.SetFormula("Sheet1", "D2", "=B2*C2*(1+$F$1)"))
	require.NoError(t, wb.SetFormula("Sheet1", "E1", "=SUM(D2:D4)"))
	e, err := formula.Compile(wb, &model.Binding{
		Inputs:  []model.InputBinding{{Name: "tax", Cell: "F1"}},
		Outputs: []model.OutputBinding{{Name: "total", Cell: "E1"}},
		Sections: []model.SectionBinding{{
			Name:  "items",
			Range: "B2:D4",
			Inputs: []model.InputBinding{
				{Name: "price", Cell: "B2"},
				{Name: "qty", Cell: "C2"},
			},
			Outputs: []model.OutputBinding{{Name: "amount", Cell: "D2"}},
		}},
	})
	require.NoError(t, err)
	return e
}

func TestLoadRows(t *testing.T) {
	s := newSource(t)
	info, ok := s.Table("Items")
	require.True(t, ok)
	assert.Equal(t, "items", info.TableName)
	assert.Equal(t, 3, info.RowCount)
	require.Len(t, info.ColumnInfo, 4)
	assert.Equal(t, "id", info.ColumnInfo[0].Name)
	assert.Equal(t, "BIGINT", info.ColumnInfo[0].DataType)
	assert.Equal(t, "DOUBLE", info.ColumnInfo[1].DataType)
	assert.Equal(t, "VARCHAR", info.ColumnInfo[3].DataType)
	assert.Equal(t, 3, info.ColumnInfo[3].ColIndex)

	_, ok = s.Table("missing")
	assert.False(t, ok)
}

func TestMaterialize(t *testing.T) {
	s := newSource(t)
	s.SetValue("tax", 0.1)
	s.BindSection("items", "SELECT price, qty, name FROM items ORDER BY id")

	in, err := s.Materialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.1, in.Values["tax"])
	require.Len(t, in.Sections["items"], 3)
	assert.Equal(t, 10.0, in.Sections["items"][0].Values["price"])
	assert.Equal(t, int64(2), in.Sections["items"][0].Values["qty"])
	assert.Equal(t, "ink", in.Sections["items"][1].Values["name"])
	assert.Nil(t, in.Sections["items"][2].Values["name"])

	v, err := orderEngine(t).NewInstance(in).Float("total")
	require.NoError(t, err)
	assert.InDelta(t, 38.5, v, 1e-9)
}

func TestMaterializeDecimal(t *testing.T) {
	s := newSource(t)
	s.SetValue("tax", 0)
	s.BindSection("items", "SELECT CAST(price AS DECIMAL(10, 2)) AS price, qty FROM items WHERE id <= $1 ORDER BY id", int64(2))

	in, err := s.Materialize(context.Background())
	require.NoError(t, err)
	require.Len(t, in.Sections["items"], 2)
	price, ok := in.Sections["items"][1].Values["price"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(5).Equal(price))

	v, err := orderEngine(t).NewInstance(in).Float("total")
	require.NoError(t, err)
	assert.InDelta(t, 25.0, v, 1e-9)
}

func TestBindSectionReplacesQuery(t *testing.T) {
	s := newSource(t)
	s.BindSection("items", "SELECT price, qty FROM items")
	s.BindSection("items", "SELECT price, qty FROM items WHERE id = 3")

	in, err := s.Materialize(context.Background())
	require.NoError(t, err)
	require.Len(t, in.Sections["items"], 1)
	assert.Equal(t, 2.5, in.Sections["items"][0].Values["price"])

	rows, err := orderEngine(t).NewInstance(in).Section("items")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, err := rows[0].Float("amount")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, v, 1e-9)
}

func TestMaterializeErrors(t *testing.T) {
	s := newSource(t)
	s.BindSection("items", "SELECT price FROM missing")
	_, err := s.Materialize(context.Background())
	assert.ErrorContains(t, err, "failed to query section items")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.BindSection("items", "SELECT price FROM items")
	_, err = s.Materialize(ctx)
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "order_items", sanitizeName("Order Items", "t_"))
	assert.Equal(t, "t_2024", sanitizeName("2024", "t_"))
	assert.Equal(t, "c_1st", sanitizeName("1st", "c_"))
	assert.Equal(t, "", sanitizeName("", "t_"))
}
