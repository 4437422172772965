package otl

import (
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
)

// Refs resolves the symbolic references a subtable holds (coverage and
// class IDs, lookup labels) into final byte offsets and lookup indices.
// It is handed to Subtable.Write by the layout pass; offsets are relative
// to the start of the subtable being written.
type Refs interface {
	CoverageOffset(id CoverageID) uint16
	ClassOffset(id ClassID) uint16
	LookupIndex(label ot.Label) uint16
}

// Subtable is one compiled lookup subtable. Implementations live in
// packages gsub and gpos, one per lookup kind and format.
type Subtable interface {
	// Size returns the exact byte size of the subtable body, excluding
	// coverage and class tables.
	Size() uint32
	// Write serializes the body. Offsets to coverage/class tables and
	// lookup indices are obtained through refs.
	Write(w *ot.Writer, refs Refs)
	// Coverages lists the coverage tables the body references, in
	// reference order.
	Coverages() []CoverageID
	// Classes lists the class-definition tables the body references.
	Classes() []ClassID
}

// SequenceLookupRecord is a (sequence index, lookup) action of a contextual
// subtable. Until the layout pass has assigned lookup indices, the lookup is
// identified by its label; Table.resolveLookupRecords rewrites it.
type SequenceLookupRecord struct {
	SequenceIndex uint16
	Label         ot.Label
}

// LookupRecordCarrier is implemented by contextual subtables that hold
// SequenceLookupRecords needing label resolution.
type LookupRecordCarrier interface {
	LookupRecords() []*SequenceLookupRecord
}

// SubtableRecord registers one compiled subtable (or a lookup reference)
// with the backbone.
type SubtableRecord struct {
	Script, Language, Feature ot.Tag
	LookupType                ot.LayoutTableLookupType // wrapped type when extension-wrapped
	LookupFlag                ot.LayoutTableLookupFlag
	MarkSetIndex              uint16
	Label                     ot.Label
	UseExtension              bool
	IsFeatParam               bool
	Sub                       Subtable // nil for pure references (Label.IsRefLab())

	// assigned by the layout pass
	offset    uint32 // absolute offset of the subtable (or extension record) in the table
	bodyOff   uint32 // absolute offset of the body for extension-wrapped subtables
	lookupInx int    // index of the owning lookup in the LookupList, -1 for refs
}

// Table is the backbone of one GSUB or GPOS table under construction. The
// coverage and class builders are shared by all non-extension subtables of
// the table; a compile is one logical transaction, there is no concurrent
// mutation.
type Table struct {
	TableTag ot.Tag
	Coverage *CoverageBuilder
	ClassDef *ClassBuilder

	records []*SubtableRecord
	rep     *feat.Reporter

	lookups    []*lookupBox
	labelToLkp map[ot.Label]int

	layout tableLayout
}

// lookupBox groups the consecutive subtable records of one lookup.
type lookupBox struct {
	lookupType   ot.LayoutTableLookupType
	lookupFlag   ot.LayoutTableLookupFlag
	markSetIndex uint16
	label        ot.Label
	useExtension bool
	records      []*SubtableRecord
	used         bool // referenced from a feature or a contextual rule

	offset uint32 // absolute offset of the Lookup table
}

// New creates the backbone for one layout table (GSUB or GPOS).
func New(tag ot.Tag, rep *feat.Reporter) *Table {
	return &Table{
		TableTag: tag,
		Coverage: NewCoverageBuilder(),
		ClassDef: NewClassBuilder(),
		rep:      rep,
	}
}

// AddSubtable registers a compiled subtable. Records arrive in authoring
// order; consecutive records with the same label form one lookup.
func (t *Table) AddSubtable(rec *SubtableRecord) {
	t.records = append(t.records, rec)
}

// Records returns the registered subtable records in authoring order.
func (t *Table) Records() []*SubtableRecord {
	return t.records
}

// IsEmpty returns true if no subtables were registered.
func (t *Table) IsEmpty() bool {
	return len(t.records) == 0
}

// LookupIndexOf resolves a label (reference bit ignored) to its index into
// the LookupList. Valid after Fill.
func (t *Table) LookupIndexOf(label ot.Label) (uint16, bool) {
	inx, ok := t.labelToLkp[label.Base()]
	if !ok {
		return 0, false
	}
	t.lookups[inx].used = true
	return uint16(inx), true
}
