package otl

import (
	"sort"
	"strconv"
	"strings"

	"github.com/npillmayer/otfeat/ot"
)

// CoverageID identifies a coverage table within one layout table under
// construction. Identical glyph sets share one ID.
type CoverageID int

// CoverageUndef is returned for an empty coverage.
const CoverageUndef CoverageID = -1

// coverageSet is one coverage table: a sorted set of glyphs.
type coverageSet struct {
	glyphs []ot.GlyphIndex // sorted, unique
}

// CoverageBuilder accumulates coverage tables. Builders are
// content-addressed: ending a coverage whose glyph set equals an earlier one
// returns the earlier ID, so that identical coverages share storage.
type CoverageBuilder struct {
	sets    []coverageSet
	byKey   map[string]CoverageID
	pending []ot.GlyphIndex
}

// NewCoverageBuilder returns an empty builder.
func NewCoverageBuilder() *CoverageBuilder {
	return &CoverageBuilder{byKey: make(map[string]CoverageID)}
}

// Begin starts accumulation of a new coverage table.
func (cb *CoverageBuilder) Begin() {
	cb.pending = cb.pending[:0]
}

// AddGlyph adds one glyph to the coverage under construction.
func (cb *CoverageBuilder) AddGlyph(gid ot.GlyphIndex) {
	cb.pending = append(cb.pending, gid)
}

// End closes the coverage under construction, sorts and dedups its glyph
// set, and returns its ID.
func (cb *CoverageBuilder) End() CoverageID {
	if len(cb.pending) == 0 {
		return CoverageUndef
	}
	glyphs := append([]ot.GlyphIndex(nil), cb.pending...)
	sort.Slice(glyphs, func(i, j int) bool { return glyphs[i] < glyphs[j] })
	out := glyphs[:0]
	for i, g := range glyphs {
		if i > 0 && g == glyphs[i-1] {
			continue
		}
		out = append(out, g)
	}
	glyphs = out
	key := coverageKey(glyphs)
	if id, ok := cb.byKey[key]; ok {
		return id
	}
	id := CoverageID(len(cb.sets))
	cb.sets = append(cb.sets, coverageSet{glyphs: glyphs})
	cb.byKey[key] = id
	tracer().Debugf("coverage %d has %d glyphs", id, len(glyphs))
	return id
}

func coverageKey(glyphs []ot.GlyphIndex) string {
	var sb strings.Builder
	for _, g := range glyphs {
		sb.WriteString(strconv.Itoa(int(g)))
		sb.WriteByte(' ')
	}
	return sb.String()
}

// Glyphs returns the sorted glyph set of a coverage.
func (cb *CoverageBuilder) Glyphs(id CoverageID) []ot.GlyphIndex {
	if id < 0 || int(id) >= len(cb.sets) {
		return nil
	}
	return cb.sets[id].glyphs
}

// Count returns the number of distinct coverage tables.
func (cb *CoverageBuilder) Count() int {
	return len(cb.sets)
}

// Size returns the serialized byte size of coverage id.
func (cb *CoverageBuilder) Size(id CoverageID) uint32 {
	if id < 0 || int(id) >= len(cb.sets) {
		return 0
	}
	return coverageSize(cb.sets[id].glyphs)
}

// glyphRanges groups a sorted glyph set into runs of consecutive indices.
func glyphRanges(glyphs []ot.GlyphIndex) [][2]ot.GlyphIndex {
	var ranges [][2]ot.GlyphIndex
	for _, g := range glyphs {
		if n := len(ranges); n > 0 && ranges[n-1][1]+1 == g {
			ranges[n-1][1] = g
			continue
		}
		ranges = append(ranges, [2]ot.GlyphIndex{g, g})
	}
	return ranges
}

// coverageSize returns the smaller of the format 1 and format 2 encodings.
func coverageSize(glyphs []ot.GlyphIndex) uint32 {
	fmt1 := uint32(4 + 2*len(glyphs))
	fmt2 := uint32(4 + 6*len(glyphRanges(glyphs)))
	if fmt2 < fmt1 {
		return fmt2
	}
	return fmt1
}

// writeCoverage serializes one coverage table, choosing format 1 (glyph
// list) or format 2 (range list) by encoded size.
func writeCoverage(w *ot.Writer, glyphs []ot.GlyphIndex) {
	ranges := glyphRanges(glyphs)
	if uint32(4+6*len(ranges)) < uint32(4+2*len(glyphs)) {
		w.U16(2)
		w.U16(uint16(len(ranges)))
		index := uint16(0)
		for _, r := range ranges {
			w.Glyph(r[0])
			w.Glyph(r[1])
			w.U16(index)
			index += uint16(r[1]-r[0]) + 1
		}
		return
	}
	w.U16(1)
	w.U16(uint16(len(glyphs)))
	for _, g := range glyphs {
		w.Glyph(g)
	}
}

// WriteCoverageTable serializes a stand-alone coverage table from a sorted
// glyph set. Auxiliary tables (GDEF mark glyph sets) use this outside the
// shared coverage section.
func WriteCoverageTable(w *ot.Writer, glyphs []ot.GlyphIndex) {
	writeCoverage(w, glyphs)
}

// CoverageTableSize returns the serialized size of a stand-alone coverage
// table.
func CoverageTableSize(glyphs []ot.GlyphIndex) uint32 {
	return coverageSize(glyphs)
}
