package gpos

import (
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Single adjustment, GPOS lookup type 1.
//
// Format 1 applies when every covered glyph shares one value record;
// format 2 stores per-glyph value records in coverage order.

type singlePosFormat1 struct {
	coverage otl.CoverageID
	format   ValueFormat
	value    feat.MetricsInfo
}

func (s *singlePosFormat1) Size() uint32 {
	return 6 + s.format.Size()
}

func (s *singlePosFormat1) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(1)
	w.U16(refs.CoverageOffset(s.coverage))
	w.U16(uint16(s.format))
	writeValueRecord(w, s.format, s.value)
}

func (s *singlePosFormat1) Coverages() []otl.CoverageID { return []otl.CoverageID{s.coverage} }
func (s *singlePosFormat1) Classes() []otl.ClassID      { return nil }

type singlePosFormat2 struct {
	coverage otl.CoverageID
	format   ValueFormat
	values   []feat.MetricsInfo // parallel to coverage order
}

func (s *singlePosFormat2) Size() uint32 {
	return uint32(8) + uint32(len(s.values))*s.format.Size()
}

func (s *singlePosFormat2) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(2)
	w.U16(refs.CoverageOffset(s.coverage))
	w.U16(uint16(s.format))
	w.U16(uint16(len(s.values)))
	for _, v := range s.values {
		writeValueRecord(w, s.format, v)
	}
}

func (s *singlePosFormat2) Coverages() []otl.CoverageID { return []otl.CoverageID{s.coverage} }
func (s *singlePosFormat2) Classes() []otl.ClassID      { return nil }

// singleEntry pairs one glyph with its value record.
type singleEntry struct {
	gid ot.GlyphIndex
	mi  feat.MetricsInfo
}

// collectSingles flattens the accumulated rules into (glyph, value) pairs,
// rejecting duplicate targets with conflicting records.
func (g *GPOS) collectSingles(si *SubtableInfo) ([]singleEntry, error) {
	seen := make(map[ot.GlyphIndex]feat.MetricsInfo)
	var entries []singleEntry
	for i := range si.Rules {
		rule := &si.Rules[i]
		cr := &rule.Targ.Classes[0]
		for _, gr := range cr.Glyphs {
			if prev, dup := seen[gr.GID]; dup {
				if prev.Equal(cr.Metrics) {
					g.rep.Notef("Removing duplicate single positioning in %s: glyph %d",
						g.idText, gr.GID)
					continue
				}
				g.rep.Errorf("Duplicate single positioning with conflicting values in %s: glyph %d",
					g.idText, gr.GID)
				continue
			}
			seen[gr.GID] = cr.Metrics
			entries = append(entries, singleEntry{gid: gr.GID, mi: cr.Metrics})
		}
	}
	return entries, nil
}

func (g *GPOS) fillSingle(si *SubtableInfo) error {
	entries, err := g.collectSingles(si)
	if err != nil || len(entries) == 0 {
		return err
	}
	g.bumpContext(1)

	// The union of all per-glyph formats keeps the records rectangular.
	var vf ValueFormat
	uniform := true
	for i := range entries {
		vf |= valueFormatOf(entries[i].mi)
		if i > 0 && !entries[i].mi.Equal(entries[0].mi) {
			uniform = false
		}
	}

	g.otl.Coverage.Begin()
	for i := range entries {
		g.otl.Coverage.AddGlyph(entries[i].gid)
	}
	cov := g.otl.Coverage.End()

	if uniform {
		g.otl.AddSubtable(g.newRecord(si, &singlePosFormat1{
			coverage: cov,
			format:   vf,
			value:    entries[0].mi,
		}))
		return nil
	}
	// Coverage order is GID order; sort the values to stay parallel.
	sub := &singlePosFormat2{coverage: cov, format: vf}
	byGID := make(map[ot.GlyphIndex]feat.MetricsInfo, len(entries))
	for i := range entries {
		byGID[entries[i].gid] = entries[i].mi
	}
	for _, gid := range g.otl.Coverage.Glyphs(cov) {
		sub.values = append(sub.values, byGID[gid])
	}
	g.otl.AddSubtable(g.newRecord(si, sub))
	return nil
}
