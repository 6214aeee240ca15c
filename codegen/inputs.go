package codegen

import (
	"github.com/xuri/formula/model"
	"github.com/xuri/formula/numeric"
)

// Inputs supplies the input values of one instance. Section returns one
// Inputs per record of the named sub-section.
type Inputs interface {
	Value(name string) interface{}
	Section(name string) []Inputs
}

// MapInputs is an Inputs backed by maps.
type MapInputs struct {
	Values   map[string]interface{}
	Sections map[string][]MapInputs
}

// Value implements Inputs.
func (m MapInputs) Value(name string) interface{} { return m.Values[name] }

// Section implements Inputs.
func (m MapInputs) Section(name string) []Inputs {
	rows := m.Sections[name]
	out := make([]Inputs, len(rows))
	for i := range rows {
		out[i] = rows[i]
	}
	return out
}

// convert reads a host value as an input of the declared kind. Values that
// cannot be converted yield the error sentinel.
func (e *Engine) convert(name string, v interface{}, kind model.ValueKind) numeric.Value {
	val, err := e.ctx.FromHost(v)
	if err != nil {
		e.logger.Debug("invalid input value", "input", name, "error", err)
		return numeric.Num(e.ctx.Type().Err())
	}
	if val.IsEmpty() || val.Type == numeric.TypeArray {
		return val
	}
	switch kind {
	case model.KindString:
		if val.Type != numeric.TypeString {
			return numeric.Str(e.lib.Text(val))
		}
	case model.KindBool:
		return numeric.Num(e.ctx.Type().FromBool(e.lib.Bool(val)))
	default:
		if val.Type == numeric.TypeString {
			return numeric.Num(e.lib.Number(val))
		}
	}
	return val
}
