package gpos

import (
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Contextual positioning (lookup type 7, format 3) and chained contextual
// positioning (lookup type 8, format 3). Both share the chain machinery:
// coverage per position, PosLookupRecords pointing either at explicitly
// referenced lookups or at an anonymous single/pair adjustment synthesized
// from inline value records.

type contextPos struct {
	chained    bool
	backtracks []otl.CoverageID
	inputs     []otl.CoverageID
	lookaheads []otl.CoverageID
	records    []*otl.SequenceLookupRecord
}

func (s *contextPos) Size() uint32 {
	if s.chained {
		return uint32(10 + 2*(len(s.backtracks)+len(s.inputs)+len(s.lookaheads)) + 4*len(s.records))
	}
	return uint32(6 + 2*len(s.inputs) + 4*len(s.records))
}

func (s *contextPos) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(3)
	if s.chained {
		w.U16(uint16(len(s.backtracks)))
		for i := len(s.backtracks) - 1; i >= 0; i-- {
			w.U16(refs.CoverageOffset(s.backtracks[i]))
		}
		w.U16(uint16(len(s.inputs)))
		for _, c := range s.inputs {
			w.U16(refs.CoverageOffset(c))
		}
		w.U16(uint16(len(s.lookaheads)))
		for _, c := range s.lookaheads {
			w.U16(refs.CoverageOffset(c))
		}
		w.U16(uint16(len(s.records)))
		for _, slr := range s.records {
			w.U16(slr.SequenceIndex)
			w.U16(refs.LookupIndex(slr.Label))
		}
		return
	}
	w.U16(uint16(len(s.inputs)))
	w.U16(uint16(len(s.records)))
	for _, c := range s.inputs {
		w.U16(refs.CoverageOffset(c))
	}
	for _, slr := range s.records {
		w.U16(slr.SequenceIndex)
		w.U16(refs.LookupIndex(slr.Label))
	}
}

func (s *contextPos) Coverages() []otl.CoverageID {
	ids := make([]otl.CoverageID, 0, len(s.backtracks)+len(s.inputs)+len(s.lookaheads))
	ids = append(ids, s.backtracks...)
	ids = append(ids, s.inputs...)
	ids = append(ids, s.lookaheads...)
	return ids
}

func (s *contextPos) Classes() []otl.ClassID { return nil }

func (s *contextPos) LookupRecords() []*otl.SequenceLookupRecord {
	return s.records
}

// setCoverages builds one coverage table per pattern position.
func (g *GPOS) setCoverages(classes []*feat.ClassRec) []otl.CoverageID {
	var covs []otl.CoverageID
	for _, cr := range classes {
		g.otl.Coverage.Begin()
		for _, gr := range cr.Glyphs {
			g.otl.Coverage.AddGlyph(gr.GID)
		}
		covs = append(covs, g.otl.Coverage.End())
	}
	return covs
}

type contextParts struct {
	back, input, look []*feat.ClassRec
	marked            []*feat.ClassRec
	markedAt          int
}

func partitionContext(targ *feat.GPat) contextParts {
	parts := contextParts{markedAt: -1}
	for i := range targ.Classes {
		cr := &targ.Classes[i]
		switch {
		case cr.Backtrack:
			parts.back = append(parts.back, cr)
		case cr.Input:
			if cr.Marked {
				if parts.markedAt < 0 {
					parts.markedAt = len(parts.input)
				}
				parts.marked = append(parts.marked, cr)
			}
			parts.input = append(parts.input, cr)
		case cr.Lookahead:
			parts.look = append(parts.look, cr)
		}
	}
	return parts
}

// fillChain compiles each accumulated contextual rule into one subtable.
func (g *GPOS) fillChain(si *SubtableInfo) error {
	chained := si.LkpType == ot.GPosLookupTypeChainedContextPos
	for i := range si.Rules {
		rule := &si.Rules[i]
		parts := partitionContext(rule.Targ)
		sub := &contextPos{
			chained:    chained,
			backtracks: g.setCoverages(parts.back),
			inputs:     g.setCoverages(parts.input),
			lookaheads: g.setCoverages(parts.look),
		}

		// Marked positions with inline metrics spawn an anonymous
		// adjustment lookup; attached labels are referenced directly.
		inputInx := 0
		var markedWithValues []*feat.ClassRec
		markedValuesAt := -1
		for k := range rule.Targ.Classes {
			cr := &rule.Targ.Classes[k]
			if !cr.Input {
				continue
			}
			if cr.Marked {
				for _, label := range cr.LookupLabels {
					sub.records = append(sub.records, &otl.SequenceLookupRecord{
						SequenceIndex: uint16(inputInx),
						Label:         label,
					})
				}
				if cr.Metrics.IsSet() {
					if markedValuesAt < 0 {
						markedValuesAt = inputInx
					}
					markedWithValues = append(markedWithValues, cr)
				}
			}
			inputInx++
		}
		if len(markedWithValues) > 0 {
			label, err := g.addAnonRule(si, markedWithValues)
			if err != nil {
				return err
			}
			sub.records = append(sub.records, &otl.SequenceLookupRecord{
				SequenceIndex: uint16(markedValuesAt),
				Label:         label,
			})
		}

		g.bumpContext(len(parts.input) + len(parts.look))
		g.otl.AddSubtable(g.newRecord(si, sub))
	}
	return nil
}

// --- Anonymous sub-lookups -------------------------------------------------

// addAnonRule registers the inline adjustment of a contextual rule as a
// rule of an anonymous stand-alone lookup and returns that lookup's label.
func (g *GPOS) addAnonRule(curSI *SubtableInfo, marked []*feat.ClassRec) (ot.Label, error) {
	lkpType := ot.GPosLookupTypeSingle
	if len(marked) == 2 {
		lkpType = ot.GPosLookupTypePair
	} else if len(marked) > 2 {
		return ot.LabelUndef, g.rep.Fatalf("inline positioning in %s supports at most two marked positions",
			g.idText)
	}

	targ := &feat.GPat{}
	for _, cr := range marked {
		cp := cr.Copy()
		cp.Marked, cp.Input = false, false
		cp.LookupLabels = nil
		targ.AddClass(cp)
	}
	rule := PosRule{Targ: targ}

	if n := len(g.anonSubtables); n > 0 {
		si := g.anonSubtables[n-1]
		if si.LkpType == lkpType && si.LkpFlag == curSI.LkpFlag &&
			si.MarkSetIndex == curSI.MarkSetIndex && si.ParentFeatTag == g.nw.Feature &&
			g.canMergeAnon(si, &rule) {
			si.Rules = append(si.Rules, rule)
			return si.Label, nil
		}
	}

	asi := &SubtableInfo{
		Script:        curSI.Script,
		Language:      curSI.Language,
		LkpType:       lkpType,
		LkpFlag:       curSI.LkpFlag,
		MarkSetIndex:  curSI.MarkSetIndex,
		Label:         g.nextAnonLabel(),
		ParentFeatTag: g.nw.Feature,
		UseExtension:  curSI.UseExtension,
	}
	asi.Rules = append(asi.Rules, rule)
	g.anonSubtables = append(g.anonSubtables, asi)
	return asi.Label, nil
}

// canMergeAnon reports whether the rule can join the accumulator without
// remapping an already-positioned glyph to a different value.
func (g *GPOS) canMergeAnon(si *SubtableInfo, rule *PosRule) bool {
	for i := range si.Rules {
		prev := &si.Rules[i]
		for k := range prev.Targ.Classes {
			if k >= len(rule.Targ.Classes) {
				break
			}
			pcr, ncr := &prev.Targ.Classes[k], &rule.Targ.Classes[k]
			if !pcr.Metrics.Equal(ncr.Metrics) {
				for _, pg := range pcr.Glyphs {
					if ncr.GlyphInClass(pg.GID) {
						return false
					}
				}
			}
		}
	}
	return true
}

// CreateAnonLookups compiles the deferred anonymous accumulators.
func (g *GPOS) CreateAnonLookups() error {
	for _, si := range g.anonSubtables {
		si.Script, si.Language, si.Feature = ot.TagUndef, ot.TagUndef, ot.TagUndef
		g.idText = "feature '" + si.ParentFeatTag.String() + "'"
		if err := g.LookupEnd(si); err != nil {
			return err
		}
		g.FeatureEnd()
	}
	return nil
}
