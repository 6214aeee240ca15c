package model

import "strconv"

// ValueKind is the declared kind of an input or output value.
type ValueKind uint8

// Value kinds.
const (
	KindNumber ValueKind = iota
	KindString
	KindBool
	KindTime
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// InputBinding declares a cell whose value is supplied by the caller.
type InputBinding struct {
	Name string
	// Cell is the A1 locator, such as "Sheet1!B2". The sheet defaults to
	// the first sheet of the workbook.
	Cell string
	Kind ValueKind
}

// OutputBinding declares a cell whose value the engine computes.
type OutputBinding struct {
	Name string
	Cell string
	Kind ValueKind
}

// SectionBinding declares a repeating region. Range spans the whole region
// as laid out in the sheet; its first Height rows are the template that is
// replicated once per record of the section's inputs. The other rows only
// delimit the region for aggregating references such as SUM(B2:B9).
type SectionBinding struct {
	Name  string
	Range string
	// Height is the number of rows per record. Zero means one.
	Height   int
	Inputs   []InputBinding
	Outputs  []OutputBinding
	Sections []SectionBinding
}

// FactorySignature is the shape of the host factory the engine is bound to:
// the kinds of its inputs and outputs in declaration order.
type FactorySignature struct {
	Inputs  []ValueKind
	Outputs []ValueKind
}

// Binding maps spreadsheet cells to the inputs and outputs of an engine.
type Binding struct {
	Inputs   []InputBinding
	Outputs  []OutputBinding
	Sections []SectionBinding
	Factory  *FactorySignature
}
