package gsub

import (
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Single substitution, GSUB lookup type 1.
//
// Format 1 applies when every (target, replacement) pair shares the same
// glyph-index delta; it stores the delta and a coverage table. Format 2
// stores a parallel replacement array instead.

type singleSubstFormat1 struct {
	coverage     otl.CoverageID
	deltaGlyphID int16
}

func (s *singleSubstFormat1) Size() uint32 {
	return 6 // format, coverage offset, delta
}

func (s *singleSubstFormat1) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(1)
	w.U16(refs.CoverageOffset(s.coverage))
	w.I16(s.deltaGlyphID)
}

func (s *singleSubstFormat1) Coverages() []otl.CoverageID {
	return []otl.CoverageID{s.coverage}
}

func (s *singleSubstFormat1) Classes() []otl.ClassID {
	return nil
}

type singleSubstFormat2 struct {
	coverage otl.CoverageID
	gids     []ot.GlyphIndex // replacement glyphs, parallel to coverage order
}

func (s *singleSubstFormat2) Size() uint32 {
	return uint32(6 + 2*len(s.gids))
}

func (s *singleSubstFormat2) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(2)
	w.U16(refs.CoverageOffset(s.coverage))
	w.U16(uint16(len(s.gids)))
	for _, g := range s.gids {
		w.Glyph(g)
	}
}

func (s *singleSubstFormat2) Coverages() []otl.CoverageID {
	return []otl.CoverageID{s.coverage}
}

func (s *singleSubstFormat2) Classes() []otl.ClassID {
	return nil
}

// fillSingleCoverage builds the coverage over the accumulated target glyphs.
func (g *GSUB) fillSingleCoverage(si *SubtableInfo) otl.CoverageID {
	g.otl.Coverage.Begin()
	it := si.Singles.Iterator()
	for it.Next() {
		g.otl.Coverage.AddGlyph(ot.GlyphIndex(it.Key().(uint16)))
	}
	return g.otl.Coverage.End()
}

var vrt2 = ot.T("vrt2")

// fillSingle determines the subtable format and registers the compiled
// subtable.
func (g *GSUB) fillSingle(si *SubtableInfo) error {
	if si.Singles.Size() == 0 {
		return nil
	}
	g.bumpContext(1)

	if si.Feature == vrt2 {
		// Seed vertical advances for the substituted glyphs: the vertical
		// advance of each replacement becomes the negated horizontal
		// advance of its target, unless a vmtx override has set it already.
		it := si.Singles.Iterator()
		for it.Next() {
			t := ot.GlyphIndex(it.Key().(uint16))
			r := ot.GlyphIndex(it.Value().(uint16))
			g.inv.SetVerticalAdvance(r, -g.inv.HorizontalAdvance(t))
		}
	}

	constantDelta := true
	var delta int32
	first := true
	it := si.Singles.Iterator()
	for it.Next() {
		d := int32(it.Value().(uint16)) - int32(it.Key().(uint16))
		if first {
			delta = d
			first = false
		} else if d != delta {
			constantDelta = false
			break
		}
	}

	cov := g.fillSingleCoverage(si)
	if constantDelta {
		g.otl.AddSubtable(g.newRecord(si, &singleSubstFormat1{
			coverage:     cov,
			deltaGlyphID: int16(delta),
		}))
		return nil
	}
	sub := &singleSubstFormat2{coverage: cov}
	it = si.Singles.Iterator()
	for it.Next() {
		sub.gids = append(sub.gids, ot.GlyphIndex(it.Value().(uint16)))
	}
	g.otl.AddSubtable(g.newRecord(si, sub))
	return nil
}
