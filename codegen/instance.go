package codegen

import (
	"fmt"
	"time"

	"github.com/xuri/formula/errs"
	"github.com/xuri/formula/model"
	"github.com/xuri/formula/numeric"
)

// Instance evaluates the outputs of one section over one set of inputs.
// Instances of the workbook section are created by Engine.NewInstance and
// those of sub-sections by Section, one per record. An instance is not
// safe for concurrent use.
type Instance struct {
	eng    *Engine
	sec    *sectionCode
	parent *Instance
	inputs Inputs

	values []numeric.Value
	set    []bool
	rows   [][]*Instance
	loaded []bool
}

func newInstance(e *Engine, sec *sectionCode, parent *Instance, inputs Inputs) *Instance {
	return &Instance{
		eng: e, sec: sec, parent: parent, inputs: inputs,
		values: make([]numeric.Value, sec.slots),
		set:    make([]bool, sec.slots),
		rows:   make([][]*Instance, len(sec.order)),
		loaded: make([]bool, len(sec.order)),
	}
}

func (in *Instance) ancestor(up int) *Instance {
	for ; up > 0; up-- {
		in = in.parent
	}
	return in
}

func (in *Instance) memo(slot int, fn func() numeric.Value) numeric.Value {
	if in.set[slot] {
		return in.values[slot]
	}
	v := fn()
	in.values[slot], in.set[slot] = v, true
	return v
}

func (in *Instance) value(c *cellCode) numeric.Value {
	if c.slot < 0 {
		return c.unit.run(in)
	}
	return in.memo(c.slot, func() numeric.Value { return c.unit.run(in) })
}

func (in *Instance) input(name string, kind model.ValueKind) numeric.Value {
	if in.inputs == nil {
		return numeric.Empty
	}
	return in.eng.convert(name, in.inputs.Value(name), kind)
}

// records returns the instances of the records of the sub-section s,
// creating them on first use.
func (in *Instance) records(s *sectionCode) []*Instance {
	if in.loaded[s.index] {
		return in.rows[s.index]
	}
	var rows []*Instance
	if in.inputs != nil {
		for _, r := range in.inputs.Section(s.section.Name) {
			rows = append(rows, newInstance(in.eng, s, in, r))
		}
	}
	in.rows[s.index], in.loaded[s.index] = rows, true
	return rows
}

func (in *Instance) output(name string) (*outputCode, error) {
	o, ok := in.sec.outputs[name]
	if !ok {
		return nil, &errs.BindingError{Message: fmt.Sprintf("Output %s is not bound.", name), Err: errs.ErrUnknownOutput}
	}
	return o, nil
}

// Outputs returns the names of the outputs of the instance's section.
func (in *Instance) Outputs() []string { return append([]string(nil), in.sec.names...) }

// Get returns the value of the named output. Output names are resolved
// when they are read, so an unbound name fails here with an error wrapping
// errs.ErrUnknownOutput; EvaluateBatch checks its output names before any
// evaluation starts.
func (in *Instance) Get(name string) (numeric.Value, error) {
	o, err := in.output(name)
	if err != nil {
		return numeric.Empty, err
	}
	return in.value(o.cell), nil
}

// Number returns the named output as a number of the engine's
// representation.
func (in *Instance) Number(name string) (numeric.Number, error) {
	v, err := in.Get(name)
	if err != nil {
		return nil, err
	}
	return in.eng.lib.Number(v), nil
}

// Float returns the named output as a float64.
func (in *Instance) Float(name string) (float64, error) {
	v, err := in.Get(name)
	if err != nil {
		return 0, err
	}
	return in.eng.lib.Float(v), nil
}

// String returns the named output as text.
func (in *Instance) String(name string) (string, error) {
	v, err := in.Get(name)
	if err != nil {
		return "", err
	}
	return in.eng.lib.Text(v), nil
}

// Bool returns the named output as a boolean.
func (in *Instance) Bool(name string) (bool, error) {
	v, err := in.Get(name)
	if err != nil {
		return false, err
	}
	return in.eng.lib.Bool(v), nil
}

// Time returns the named output read as a date serial number in the
// engine's time zone.
func (in *Instance) Time(name string) (time.Time, error) {
	v, err := in.Get(name)
	if err != nil {
		return time.Time{}, err
	}
	return in.eng.ctx.DateFromNumber(in.eng.lib.Number(v)), nil
}

// Section returns one instance per record of the named sub-section.
func (in *Instance) Section(name string) ([]*Instance, error) {
	s, ok := in.sec.subs[name]
	if !ok {
		return nil, &errs.BindingError{Message: fmt.Sprintf("Section %s is not bound.", name), Err: errs.ErrUnknownOutput}
	}
	return in.records(s), nil
}

// Reset discards the memoized values of the instance and of its section
// instances, so that the next access reads the inputs again. It fails with
// errs.ErrResetUnsupported unless the engine was compiled resettable.
func (in *Instance) Reset() error {
	if !in.eng.resettable {
		return errs.ErrResetUnsupported
	}
	in.reset()
	return nil
}

func (in *Instance) reset() {
	clear(in.set)
	for _, rows := range in.rows {
		for _, r := range rows {
			r.reset()
		}
	}
}
