package auxtab

import (
	"fmt"
	"sort"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// GDEF glyph class values.
const (
	GlyphClassSimple    uint16 = 1
	GlyphClassLigature  uint16 = 2
	GlyphClassMark      uint16 = 3
	GlyphClassComponent uint16 = 4
)

// CaretValue is one ligature caret position, either an X coordinate or a
// contour point index.
type CaretValue struct {
	ByPoint bool
	Value   int16
}

// GDEF accumulates glyph definition data and serializes the GDEF table.
type GDEF struct {
	rep *feat.Reporter

	glyphClasses  map[ot.GlyphIndex]uint16
	classesSet    bool
	attachClasses [][]ot.GlyphIndex // mark attachment classes, 1-based at write time
	ligCarets     map[ot.GlyphIndex][]CaretValue
	caretOrder    []ot.GlyphIndex
	markSets      [][]ot.GlyphIndex
}

// NewGDEF returns an empty GDEF accumulator.
func NewGDEF(rep *feat.Reporter) *GDEF {
	return &GDEF{
		rep:       rep,
		ligCarets: make(map[ot.GlyphIndex][]CaretValue),
	}
}

// SetGlyphClasses records the authored GlyphClassDef. It may be set only
// once.
func (g *GDEF) SetGlyphClasses(simple, ligature, mark, component []ot.GlyphIndex) error {
	if g.classesSet {
		return fmt.Errorf("GDEF GlyphClassDef is specified more than once")
	}
	g.classesSet = true
	g.glyphClasses = make(map[ot.GlyphIndex]uint16)
	assign := func(gids []ot.GlyphIndex, cls uint16) {
		for _, gid := range gids {
			if prev, dup := g.glyphClasses[gid]; dup && prev != cls {
				g.rep.Warnf("glyph %d is in more than one GDEF glyph class; keeping class %d", gid, prev)
				continue
			}
			g.glyphClasses[gid] = cls
		}
	}
	assign(simple, GlyphClassSimple)
	assign(ligature, GlyphClassLigature)
	assign(mark, GlyphClassMark)
	assign(component, GlyphClassComponent)
	return nil
}

// HasGlyphClasses returns true once glyph classes were authored.
func (g *GDEF) HasGlyphClasses() bool {
	return g.classesSet
}

// SynthesizeGlyphClasses builds a default GlyphClassDef by scanning
// mark-class participation when none was authored and the table is needed
// anyway.
func (g *GDEF) SynthesizeGlyphClasses(markGlyphs []ot.GlyphIndex) {
	if g.classesSet || len(markGlyphs) == 0 {
		return
	}
	tracer().Infof("synthesizing GDEF glyph classes from %d mark glyphs", len(markGlyphs))
	g.glyphClasses = make(map[ot.GlyphIndex]uint16)
	for _, gid := range markGlyphs {
		g.glyphClasses[gid] = GlyphClassMark
	}
}

// AddAttachClass registers a mark attachment class for `lookupflag
// MarkAttachmentType @C` and returns its 1-based class index. Identical
// glyph sets share an index. At most 255 classes fit the flag byte.
func (g *GDEF) AddAttachClass(glyphs []ot.GlyphIndex) (uint16, error) {
	set := sortedUnique(glyphs)
	for i, prev := range g.attachClasses {
		if equalGlyphs(prev, set) {
			return uint16(i + 1), nil
		}
	}
	if len(g.attachClasses) >= 255 {
		return 0, fmt.Errorf("more than 255 mark attachment classes")
	}
	g.attachClasses = append(g.attachClasses, set)
	return uint16(len(g.attachClasses)), nil
}

// AddMarkSet registers a mark filtering set for `lookupflag
// UseMarkFilteringSet @C` and returns its 0-based set index. Identical
// glyph sets share an index.
func (g *GDEF) AddMarkSet(glyphs []ot.GlyphIndex) uint16 {
	set := sortedUnique(glyphs)
	for i, prev := range g.markSets {
		if equalGlyphs(prev, set) {
			return uint16(i)
		}
	}
	g.markSets = append(g.markSets, set)
	return uint16(len(g.markSets) - 1)
}

// AddLigCarets records the caret positions of one ligature glyph.
func (g *GDEF) AddLigCarets(gid ot.GlyphIndex, carets []CaretValue) {
	if _, dup := g.ligCarets[gid]; dup {
		g.rep.Errorf("duplicate LigatureCaret entry for glyph %d", gid)
		return
	}
	g.ligCarets[gid] = carets
	g.caretOrder = append(g.caretOrder, gid)
}

// IsEmpty returns true if nothing was recorded.
func (g *GDEF) IsEmpty() bool {
	return !g.classesSet && len(g.glyphClasses) == 0 && len(g.attachClasses) == 0 &&
		len(g.ligCarets) == 0 && len(g.markSets) == 0
}

func sortedUnique(glyphs []ot.GlyphIndex) []ot.GlyphIndex {
	set := append([]ot.GlyphIndex(nil), glyphs...)
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	out := set[:0]
	for i, gid := range set {
		if i > 0 && gid == set[i-1] {
			continue
		}
		out = append(out, gid)
	}
	return out
}

func equalGlyphs(a, b []ot.GlyphIndex) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Write serializes the GDEF table. Version 1.2 is used when mark glyph
// sets are present, 1.0 otherwise.
func (g *GDEF) Write() ([]byte, error) {
	hasMarkSets := len(g.markSets) > 0
	headerSize := uint32(12)
	if hasMarkSets {
		headerSize = 14
	}

	// attachment classes merge into one ClassDef table
	attach := make(map[ot.GlyphIndex]uint16)
	for i, set := range g.attachClasses {
		for _, gid := range set {
			if prev, dup := attach[gid]; dup && prev != uint16(i+1) {
				g.rep.Warnf("glyph %d is in more than one mark attachment class; keeping class %d",
					gid, prev)
				continue
			}
			attach[gid] = uint16(i + 1)
		}
	}

	off := headerSize
	glyphClassOff := uint32(0)
	if len(g.glyphClasses) > 0 {
		glyphClassOff = off
		off += otl.ClassDefTableSize(g.glyphClasses)
	}
	ligCaretOff := uint32(0)
	var caretGIDs []ot.GlyphIndex
	if len(g.ligCarets) > 0 {
		ligCaretOff = off
		caretGIDs = append(caretGIDs, g.caretOrder...)
		sort.Slice(caretGIDs, func(i, j int) bool { return caretGIDs[i] < caretGIDs[j] })
		off += g.ligCaretListSize(caretGIDs)
	}
	attachClassOff := uint32(0)
	if len(attach) > 0 {
		attachClassOff = off
		off += otl.ClassDefTableSize(attach)
	}
	markSetsOff := uint32(0)
	if hasMarkSets {
		markSetsOff = off
	}

	if err := ot.CheckOffset(off, "GDEF subtable", "glyph definitions"); err != nil {
		return nil, g.rep.Fatalf("%v", err)
	}

	w := ot.NewWriter(int(off))
	if hasMarkSets {
		w.U32(0x00010002)
	} else {
		w.U32(0x00010000)
	}
	w.U16(uint16(glyphClassOff))
	w.U16(0) // attachment point list: not authored in feature files
	w.U16(uint16(ligCaretOff))
	w.U16(uint16(attachClassOff))
	if hasMarkSets {
		w.U16(uint16(markSetsOff))
	}

	if glyphClassOff != 0 {
		otl.WriteClassDefTable(w, g.glyphClasses)
	}
	if ligCaretOff != 0 {
		g.writeLigCaretList(w, caretGIDs)
	}
	if attachClassOff != 0 {
		otl.WriteClassDefTable(w, attach)
	}
	if hasMarkSets {
		g.writeMarkSets(w)
	}
	return w.Bytes(), nil
}

func (g *GDEF) ligCaretListSize(gids []ot.GlyphIndex) uint32 {
	sz := uint32(4 + 2*len(gids)) // coverage offset, count, LigGlyph offsets
	sz += otl.CoverageTableSize(gids)
	for _, gid := range gids {
		sz += uint32(2 + 2*len(g.ligCarets[gid])) // LigGlyph
		sz += uint32(4 * len(g.ligCarets[gid]))   // caret values
	}
	return sz
}

func (g *GDEF) writeLigCaretList(w *ot.Writer, gids []ot.GlyphIndex) {
	// LigGlyph tables follow the offset array, the coverage comes last.
	ligOff := uint32(4 + 2*len(gids))
	ligSizes := make([]uint32, len(gids))
	for i, gid := range gids {
		ligSizes[i] = uint32(2 + 6*len(g.ligCarets[gid]))
	}
	covOff := ligOff
	for _, sz := range ligSizes {
		covOff += sz
	}
	w.U16(uint16(covOff))
	w.U16(uint16(len(gids)))
	for i := range gids {
		w.U16(uint16(ligOff))
		ligOff += ligSizes[i]
	}
	for _, gid := range gids {
		carets := g.ligCarets[gid]
		w.U16(uint16(len(carets)))
		// caret value tables directly after the offset array
		cvOff := uint32(2 + 2*len(carets))
		for range carets {
			w.U16(uint16(cvOff))
			cvOff += 4
		}
		for _, cv := range carets {
			if cv.ByPoint {
				w.U16(2)
				w.U16(uint16(cv.Value))
			} else {
				w.U16(1)
				w.I16(cv.Value)
			}
		}
	}
	otl.WriteCoverageTable(w, gids)
}

func (g *GDEF) writeMarkSets(w *ot.Writer) {
	w.U16(1) // format
	w.U16(uint16(len(g.markSets)))
	off := uint32(4 + 4*len(g.markSets))
	for _, set := range g.markSets {
		w.U32(off)
		off += otl.CoverageTableSize(set)
	}
	for _, set := range g.markSets {
		otl.WriteCoverageTable(w, set)
	}
}
