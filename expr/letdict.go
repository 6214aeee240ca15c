package expr

import "github.com/xuri/formula/errs"

// LetEntry is one binding of a LetDictionary. Value is stage specific: the
// parser stores nothing, the constant folder stores constant values and
// the code generator stores frame slots.
type LetEntry struct {
	Name  string
	Type  DataType
	Value interface{}
}

// LetDictionary is the stack of lexical bindings visible at a point of a
// tree walk. Bindings must be removed in the reverse order of their
// creation; violations panic with an *errs.InternalError.
type LetDictionary struct {
	entries []LetEntry
	marks   []int
}

// Let pushes a binding.
func (d *LetDictionary) Let(name string, typ DataType, value interface{}) {
	d.entries = append(d.entries, LetEntry{Name: name, Type: typ, Value: value})
}

// Unlet pops the most recent binding, which must be for name.
func (d *LetDictionary) Unlet(name string) {
	n := len(d.entries)
	if n == 0 {
		errs.Internalf("unlet of %q without matching let", name)
	}
	if top := d.entries[n-1].Name; top != name {
		errs.Internalf("unlet of %q does not match innermost let of %q", name, top)
	}
	d.entries = d.entries[:n-1]
}

// Find returns the innermost binding of name.
func (d *LetDictionary) Find(name string) (LetEntry, bool) {
	for i := len(d.entries) - 1; i >= 0; i-- {
		if d.entries[i].Name == name {
			return d.entries[i], true
		}
	}
	return LetEntry{}, false
}

// Mark opens a group of bindings removed together by PopMarked.
func (d *LetDictionary) Mark() { d.marks = append(d.marks, len(d.entries)) }

// PopMarked removes and returns the bindings pushed since the matching
// Mark, in push order.
func (d *LetDictionary) PopMarked() []LetEntry {
	n := len(d.marks)
	if n == 0 {
		errs.Internalf("pop of let group without mark")
	}
	at := d.marks[n-1]
	d.marks = d.marks[:n-1]
	if at > len(d.entries) {
		errs.Internalf("let group mark %d beyond %d bindings", at, len(d.entries))
	}
	popped := append([]LetEntry(nil), d.entries[at:]...)
	d.entries = d.entries[:at]
	return popped
}

// Len returns the number of bindings.
func (d *LetDictionary) Len() int { return len(d.entries) }
