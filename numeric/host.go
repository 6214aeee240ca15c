package numeric

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// FromHost converts a Go value to a runtime value of the context's
// representation. Supported are nil, Value, Number of the context's type,
// bool, string, time.Time, decimal.Decimal and all integer and float types.
func (c *Context) FromHost(v interface{}) (Value, error) {
	t := c.typ
	switch x := v.(type) {
	case nil:
		return Empty, nil
	case Value:
		return x, nil
	case Number:
		return Num(x), nil
	case bool:
		return Num(t.FromBool(x)), nil
	case string:
		return Str(x), nil
	case time.Time:
		return Num(c.DateToNumber(x)), nil
	case decimal.Decimal:
		return Num(t.FromDecimal(x)), nil
	case *decimal.Decimal:
		if x == nil {
			return Empty, nil
		}
		return Num(t.FromDecimal(*x)), nil
	case float64:
		return Num(t.FromFloat(x)), nil
	case float32:
		return Num(t.FromFloat(float64(x))), nil
	case int:
		return Num(t.FromInt(int64(x))), nil
	case int8:
		return Num(t.FromInt(int64(x))), nil
	case int16:
		return Num(t.FromInt(int64(x))), nil
	case int32:
		return Num(t.FromInt(int64(x))), nil
	case int64:
		return Num(t.FromInt(x)), nil
	case uint:
		return Num(t.FromInt(int64(x))), nil
	case uint8:
		return Num(t.FromInt(int64(x))), nil
	case uint16:
		return Num(t.FromInt(int64(x))), nil
	case uint32:
		return Num(t.FromInt(int64(x))), nil
	case uint64:
		return Num(t.FromDecimal(decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0))), nil
	}
	return Empty, fmt.Errorf("unsupported host value %v of type %T", v, v)
}
