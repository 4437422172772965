package ot

// Each lookup under construction is identified by a label. There are two
// kinds of lookups:
//
//  1. Named: named by the font editor in the feature file, e.g.
//     "lookup ZERO {...} ZERO;"
//  2. Anonymous: all other lookups, automatically generated by the compiler
//     for sub-lookups implied by contextual rules.
//
// Both kinds can be referred to later on, when sharing them; e.g. specified
// explicitly by "lookup ZERO;" or implicitly by "language DEU;" when the
// default lookups are replayed. Such lookup references are stored as the
// original lookup's label with bit 15 set.
//
// Labels are internal to the compiler; the serialized tables use lookup
// indices into the LookupList instead (see otl.Table.LookupIndex).

// Label identifies a lookup under construction.
type Label uint16

const (
	NamedLabelBeg Label = 0
	NamedLabelEnd Label = 0x1FFF
	AnonLabelBeg  Label = NamedLabelEnd + 1
	AnonLabelEnd  Label = 0x7FFE

	LabelUndef Label = 0xFFFF

	// RefLabelBit marks a label as a reference to a previously defined lookup.
	RefLabelBit Label = 1 << 15
)

// IsRefLab returns true if label l references a previously defined lookup.
func (l Label) IsRefLab() bool {
	return l != LabelUndef && l&RefLabelBit != 0
}

// IsNamedLab returns true if l (ignoring the reference bit) identifies a
// lookup named in the feature file.
func (l Label) IsNamedLab() bool {
	return l&^RefLabelBit <= NamedLabelEnd
}

// IsAnonLab returns true if l (ignoring the reference bit) identifies a
// compiler-generated lookup.
func (l Label) IsAnonLab() bool {
	base := l &^ RefLabelBit
	return base >= AnonLabelBeg && base <= AnonLabelEnd
}

// AsRef returns l with the reference bit set.
func (l Label) AsRef() Label {
	return l | RefLabelBit
}

// Base returns l with the reference bit cleared.
func (l Label) Base() Label {
	return l &^ RefLabelBit
}
