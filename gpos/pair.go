package gpos

import (
	"sort"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Pair adjustment, GPOS lookup type 2.
//
// A lookup in which any rule pairs a multi-glyph class (and is not
// enumerated) compiles to the class-matrix format 2, and all of its rules,
// glyph pairs included, enter the matrix. Other lookups enumerate to
// specific glyph pairs in format 1.

// --- Format 1: specific pairs ----------------------------------------------

type pairValue struct {
	second ot.GlyphIndex
	v1, v2 feat.MetricsInfo
}

type pairSet struct {
	first ot.GlyphIndex
	pairs []pairValue
}

type pairPosFormat1 struct {
	coverage otl.CoverageID
	vf1, vf2 ValueFormat
	sets     []pairSet
}

func (s *pairPosFormat1) pairValueSize() uint32 {
	return 2 + s.vf1.Size() + s.vf2.Size()
}

func (s *pairPosFormat1) Size() uint32 {
	sz := uint32(10 + 2*len(s.sets))
	for i := range s.sets {
		sz += 2 + uint32(len(s.sets[i].pairs))*s.pairValueSize()
	}
	return sz
}

func (s *pairPosFormat1) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(1)
	w.U16(refs.CoverageOffset(s.coverage))
	w.U16(uint16(s.vf1))
	w.U16(uint16(s.vf2))
	w.U16(uint16(len(s.sets)))
	off := uint32(10 + 2*len(s.sets))
	for i := range s.sets {
		w.U16(uint16(off))
		off += 2 + uint32(len(s.sets[i].pairs))*s.pairValueSize()
	}
	for i := range s.sets {
		set := &s.sets[i]
		w.U16(uint16(len(set.pairs)))
		for j := range set.pairs {
			w.Glyph(set.pairs[j].second)
			writeValueRecord(w, s.vf1, set.pairs[j].v1)
			writeValueRecord(w, s.vf2, set.pairs[j].v2)
		}
	}
}

func (s *pairPosFormat1) Coverages() []otl.CoverageID { return []otl.CoverageID{s.coverage} }
func (s *pairPosFormat1) Classes() []otl.ClassID      { return nil }

// --- Format 2: class matrix ------------------------------------------------

type pairPosFormat2 struct {
	coverage otl.CoverageID
	vf1, vf2 ValueFormat
	classDef1, classDef2 otl.ClassID
	class1Count, class2Count uint16
	matrix   [][]pairCell // [class1][class2]
}

type pairCell struct {
	v1, v2 feat.MetricsInfo
}

func (s *pairPosFormat2) Size() uint32 {
	cell := s.vf1.Size() + s.vf2.Size()
	return 16 + uint32(s.class1Count)*uint32(s.class2Count)*cell
}

func (s *pairPosFormat2) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(2)
	w.U16(refs.CoverageOffset(s.coverage))
	w.U16(uint16(s.vf1))
	w.U16(uint16(s.vf2))
	w.U16(refs.ClassOffset(s.classDef1))
	w.U16(refs.ClassOffset(s.classDef2))
	w.U16(s.class1Count)
	w.U16(s.class2Count)
	for c1 := uint16(0); c1 < s.class1Count; c1++ {
		for c2 := uint16(0); c2 < s.class2Count; c2++ {
			cell := s.matrix[c1][c2]
			writeValueRecord(w, s.vf1, cell.v1)
			writeValueRecord(w, s.vf2, cell.v2)
		}
	}
}

func (s *pairPosFormat2) Coverages() []otl.CoverageID { return []otl.CoverageID{s.coverage} }
func (s *pairPosFormat2) Classes() []otl.ClassID {
	return []otl.ClassID{s.classDef1, s.classDef2}
}

// fillPair dispatches on rule shape: a single class pair makes the whole
// lookup a matrix, otherwise all pairs enumerate.
func (g *GPOS) fillPair(si *SubtableInfo) error {
	if len(si.Rules) == 0 {
		return nil
	}
	classPairs := false
	for i := range si.Rules {
		targ := si.Rules[i].Targ
		if targ.PatternLen() != 2 {
			g.rep.Errorf("pair positioning in %s requires exactly two positions", g.idText)
			return nil
		}
		if !targ.Enumerate &&
			(targ.Classes[0].IsMultiClass() || targ.Classes[1].IsMultiClass()) {
			classPairs = true
		}
	}
	g.bumpContext(2)
	if classPairs {
		return g.fillPairClasses(si)
	}
	return g.fillPairGlyphs(si)
}

// fillPairGlyphs enumerates all rules to specific glyph pairs (format 1).
func (g *GPOS) fillPairGlyphs(si *SubtableInfo) error {
	type key struct {
		first, second ot.GlyphIndex
	}
	type entry struct {
		key    key
		v1, v2 feat.MetricsInfo
	}
	seen := make(map[key]int)
	var entries []entry
	var vf1, vf2 ValueFormat

	for i := range si.Rules {
		rule := &si.Rules[i]
		cr1, cr2 := &rule.Targ.Classes[0], &rule.Targ.Classes[1]
		for _, g1 := range cr1.Glyphs {
			for _, g2 := range cr2.Glyphs {
				k := key{g1.GID, g2.GID}
				if at, dup := seen[k]; dup {
					if entries[at].v1.Equal(cr1.Metrics) && entries[at].v2.Equal(cr2.Metrics) {
						g.rep.Notef("Removing duplicate pair positioning in %s: glyphs %d %d",
							g.idText, k.first, k.second)
					} else {
						g.rep.Warnf("Pair positioning has conflicting statements in %s; "+
							"choosing the first value: glyphs %d %d", g.idText, k.first, k.second)
					}
					continue
				}
				seen[k] = len(entries)
				entries = append(entries, entry{key: k, v1: cr1.Metrics, v2: cr2.Metrics})
				vf1 |= valueFormatOf(cr1.Metrics)
				vf2 |= valueFormatOf(cr2.Metrics)
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].key.first != entries[j].key.first {
			return entries[i].key.first < entries[j].key.first
		}
		return entries[i].key.second < entries[j].key.second
	})

	sub := &pairPosFormat1{vf1: vf1, vf2: vf2}
	g.otl.Coverage.Begin()
	for i := range entries {
		e := &entries[i]
		if len(sub.sets) == 0 || sub.sets[len(sub.sets)-1].first != e.key.first {
			g.otl.Coverage.AddGlyph(e.key.first)
			sub.sets = append(sub.sets, pairSet{first: e.key.first})
		}
		set := &sub.sets[len(sub.sets)-1]
		set.pairs = append(set.pairs, pairValue{second: e.key.second, v1: e.v1, v2: e.v2})
	}
	sub.coverage = g.otl.Coverage.End()
	g.otl.AddSubtable(g.newRecord(si, sub))
	return nil
}

// fillPairClasses builds the class matrix (format 2). Class 1 of each side
// is assigned in rule order; class 0 holds everything else.
func (g *GPOS) fillPairClasses(si *SubtableInfo) error {
	type classKey string
	classOf := func(cr *feat.ClassRec) classKey {
		gids := make([]ot.GlyphIndex, len(cr.Glyphs))
		for i, gr := range cr.Glyphs {
			gids[i] = gr.GID
		}
		sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })
		b := make([]byte, 0, len(gids)*2)
		for _, gid := range gids {
			b = append(b, byte(gid>>8), byte(gid))
		}
		return classKey(b)
	}

	side1 := make(map[classKey]uint16)
	side2 := make(map[classKey]uint16)
	var glyphs1 [][]ot.GlyphIndex
	var glyphs2 [][]ot.GlyphIndex
	classIndex := func(m map[classKey]uint16, store *[][]ot.GlyphIndex, cr *feat.ClassRec) uint16 {
		k := classOf(cr)
		if inx, ok := m[k]; ok {
			return inx
		}
		inx := uint16(len(m) + 1)
		m[k] = inx
		gids := make([]ot.GlyphIndex, len(cr.Glyphs))
		for i, gr := range cr.Glyphs {
			gids[i] = gr.GID
		}
		*store = append(*store, gids)
		return inx
	}

	type cellKey struct{ c1, c2 uint16 }
	cells := make(map[cellKey]pairCell)
	var vf1, vf2 ValueFormat
	for i := range si.Rules {
		rule := &si.Rules[i]
		cr1, cr2 := &rule.Targ.Classes[0], &rule.Targ.Classes[1]
		c1 := classIndex(side1, &glyphs1, cr1)
		c2 := classIndex(side2, &glyphs2, cr2)
		k := cellKey{c1, c2}
		if prev, dup := cells[k]; dup {
			if prev.v1.Equal(cr1.Metrics) && prev.v2.Equal(cr2.Metrics) {
				g.rep.Notef("Removing duplicate pair positioning in %s", g.idText)
			} else {
				g.rep.Warnf("Class pair positioning has conflicting statements in %s; "+
					"choosing the first value", g.idText)
			}
			continue
		}
		cells[k] = pairCell{v1: cr1.Metrics, v2: cr2.Metrics}
		vf1 |= valueFormatOf(cr1.Metrics)
		vf2 |= valueFormatOf(cr2.Metrics)
	}

	// Coverage spans every first-side glyph.
	g.otl.Coverage.Begin()
	for _, gids := range glyphs1 {
		for _, gid := range gids {
			g.otl.Coverage.AddGlyph(gid)
		}
	}
	cov := g.otl.Coverage.End()

	g.otl.ClassDef.Begin()
	for _, gids := range glyphs1 {
		g.otl.ClassDef.AddClass(gids)
	}
	cd1 := g.otl.ClassDef.End()
	g.otl.ClassDef.Begin()
	for _, gids := range glyphs2 {
		g.otl.ClassDef.AddClass(gids)
	}
	cd2 := g.otl.ClassDef.End()

	sub := &pairPosFormat2{
		coverage:    cov,
		vf1:         vf1,
		vf2:         vf2,
		classDef1:   cd1,
		classDef2:   cd2,
		class1Count: uint16(len(glyphs1) + 1),
		class2Count: uint16(len(glyphs2) + 1),
	}
	sub.matrix = make([][]pairCell, sub.class1Count)
	for c1 := range sub.matrix {
		sub.matrix[c1] = make([]pairCell, sub.class2Count)
	}
	for k, cell := range cells {
		sub.matrix[k.c1][k.c2] = cell
	}
	if err := ot.CheckOffset(sub.Size(), "lookup subtable", "class pair positioning"); err != nil {
		return g.rep.Fatalf("In %s %v", g.idText, err)
	}
	g.otl.AddSubtable(g.newRecord(si, sub))
	return nil
}
