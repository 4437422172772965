package otl

import (
	"sort"
	"strconv"
	"strings"

	"github.com/npillmayer/otfeat/ot"
)

// ClassID identifies a class-definition table within one layout table under
// construction.
type ClassID int

// ClassUndef is returned for an empty class definition.
const ClassUndef ClassID = -1

// classDef is one class-definition table: a mapping GID → class value.
// Class 0 is implicit for unlisted glyphs.
type classDef struct {
	assign map[ot.GlyphIndex]uint16
}

// ClassBuilder accumulates class-definition tables, deduplicating identical
// assignments. Authored classes receive class values 1..N in the order they
// are added; class 0 is the implicit "everything else" class.
type ClassBuilder struct {
	defs    []classDef
	byKey   map[string]ClassID
	pending map[ot.GlyphIndex]uint16
	next    uint16
}

// NewClassBuilder returns an empty builder.
func NewClassBuilder() *ClassBuilder {
	return &ClassBuilder{byKey: make(map[string]ClassID)}
}

// Begin starts accumulation of a new class definition.
func (cb *ClassBuilder) Begin() {
	cb.pending = make(map[ot.GlyphIndex]uint16)
	cb.next = 1
}

// AddClass assigns the next class value (1-based) to all glyphs of the
// slice and returns the value assigned.
func (cb *ClassBuilder) AddClass(glyphs []ot.GlyphIndex) uint16 {
	cls := cb.next
	cb.next++
	for _, g := range glyphs {
		cb.pending[g] = cls
	}
	return cls
}

// AddGlyph assigns an explicit class value to one glyph.
func (cb *ClassBuilder) AddGlyph(gid ot.GlyphIndex, cls uint16) {
	cb.pending[gid] = cls
}

// End closes the class definition under construction and returns its ID.
// Identical assignments share an ID.
func (cb *ClassBuilder) End() ClassID {
	if len(cb.pending) == 0 {
		return ClassUndef
	}
	def := classDef{assign: cb.pending}
	cb.pending = nil
	key := classKey(def.assign)
	if id, ok := cb.byKey[key]; ok {
		return id
	}
	id := ClassID(len(cb.defs))
	cb.defs = append(cb.defs, def)
	cb.byKey[key] = id
	tracer().Debugf("class definition %d covers %d glyphs", id, len(def.assign))
	return id
}

func classKey(assign map[ot.GlyphIndex]uint16) string {
	gids := sortedClassGlyphs(assign)
	var sb strings.Builder
	for _, g := range gids {
		sb.WriteString(strconv.Itoa(int(g)))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(int(assign[g])))
		sb.WriteByte(' ')
	}
	return sb.String()
}

func sortedClassGlyphs(assign map[ot.GlyphIndex]uint16) []ot.GlyphIndex {
	gids := make([]ot.GlyphIndex, 0, len(assign))
	for g := range assign {
		gids = append(gids, g)
	}
	sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })
	return gids
}

// Count returns the number of distinct class-definition tables.
func (cb *ClassBuilder) Count() int {
	return len(cb.defs)
}

// Size returns the serialized byte size of class definition id.
func (cb *ClassBuilder) Size(id ClassID) uint32 {
	if id < 0 || int(id) >= len(cb.defs) {
		return 0
	}
	return classDefSize(cb.defs[id].assign)
}

// classRange is a run of consecutive glyphs sharing one class value.
type classRange struct {
	first, last ot.GlyphIndex
	cls         uint16
}

func classRanges(assign map[ot.GlyphIndex]uint16) []classRange {
	gids := sortedClassGlyphs(assign)
	var ranges []classRange
	for _, g := range gids {
		cls := assign[g]
		if n := len(ranges); n > 0 && ranges[n-1].last+1 == g && ranges[n-1].cls == cls {
			ranges[n-1].last = g
			continue
		}
		ranges = append(ranges, classRange{first: g, last: g, cls: cls})
	}
	return ranges
}

func classDefSize(assign map[ot.GlyphIndex]uint16) uint32 {
	gids := sortedClassGlyphs(assign)
	span := int(gids[len(gids)-1]) - int(gids[0]) + 1
	fmt1 := uint32(6 + 2*span)
	fmt2 := uint32(4 + 6*len(classRanges(assign)))
	if fmt2 < fmt1 {
		return fmt2
	}
	return fmt1
}

// writeClassDef serializes one class-definition table, choosing format 1
// (contiguous value array) or format 2 (range records) by encoded size.
func writeClassDef(w *ot.Writer, assign map[ot.GlyphIndex]uint16) {
	gids := sortedClassGlyphs(assign)
	ranges := classRanges(assign)
	span := int(gids[len(gids)-1]) - int(gids[0]) + 1
	if uint32(4+6*len(ranges)) < uint32(6+2*span) {
		w.U16(2)
		w.U16(uint16(len(ranges)))
		for _, r := range ranges {
			w.Glyph(r.first)
			w.Glyph(r.last)
			w.U16(r.cls)
		}
		return
	}
	w.U16(1)
	w.Glyph(gids[0])
	w.U16(uint16(span))
	for g := gids[0]; ; g++ {
		w.U16(assign[g]) // zero for gaps
		if g == gids[len(gids)-1] {
			break
		}
	}
}

// WriteClassDefTable serializes a stand-alone class-definition table from a
// glyph-to-class assignment. Auxiliary tables (GDEF) use this outside the
// shared class section.
func WriteClassDefTable(w *ot.Writer, assign map[ot.GlyphIndex]uint16) {
	writeClassDef(w, assign)
}

// ClassDefTableSize returns the serialized size of a stand-alone
// class-definition table.
func ClassDefTableSize(assign map[ot.GlyphIndex]uint16) uint32 {
	if len(assign) == 0 {
		return 0
	}
	return classDefSize(assign)
}
