package gsub

import (
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Chaining contextual substitution (lookup type 6, format 3) and reverse
// chaining substitution (lookup type 8, format 1).
//
// Every chain rule compiles to its own subtable. A rule with an inline
// replacement ("sub A B' C by D") gets an anonymous stand-alone lookup
// synthesized for the replacement; a rule with explicit per-position
// lookups ("sub A B' lookup LK C") emits one lookup record per attached
// label. Backtrack coverages are written in reverse textual order, per
// OpenType 1.5.

type chainSubst struct {
	backtracks []otl.CoverageID
	inputs     []otl.CoverageID
	lookaheads []otl.CoverageID
	records    []*otl.SequenceLookupRecord
}

func chain3Size(nBack, nInput, nLook, nSubst int) uint32 {
	return uint32(10 + 2*(nBack+nInput+nLook) + 4*nSubst)
}

func (s *chainSubst) Size() uint32 {
	return chain3Size(len(s.backtracks), len(s.inputs), len(s.lookaheads), len(s.records))
}

func (s *chainSubst) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(3)
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
}

func (s *chainSubst) Coverages() []otl.CoverageID {
	ids := make([]otl.CoverageID, 0, len(s.backtracks)+len(s.inputs)+len(s.lookaheads))
	ids = append(ids, s.backtracks...)
	ids = append(ids, s.inputs...)
	ids = append(ids, s.lookaheads...)
	return ids
}

func (s *chainSubst) Classes() []otl.ClassID {
	return nil
}

func (s *chainSubst) LookupRecords() []*otl.SequenceLookupRecord {
	return s.records
}

// setCoverages builds one coverage table per pattern position.
func (g *GSUB) setCoverages(classes []*feat.ClassRec) []otl.CoverageID {
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

// partitionContext splits the positions of a contextual pattern into the
// backtrack, input, and lookahead regions and collects the marked
// positions (always a subsequence of input).
type contextParts struct {
	back, input, look []*feat.ClassRec
	marked            []*feat.ClassRec
	markedAt          int // input index of the first marked position
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

// fillChain compiles each accumulated chain rule into one subtable.
func (g *GSUB) fillChain(si *SubtableInfo) error {
	for i := range si.Rules {
		rule := &si.Rules[i]
		parts := partitionContext(rule.Targ)

		sub := &chainSubst{
			backtracks: g.setCoverages(parts.back),
			inputs:     g.setCoverages(parts.input),
			lookaheads: g.setCoverages(parts.look),
		}

		if rule.Repl != nil {
			// Inline replacement: synthesize an anonymous lookup and point
			// one record at it.
			label, err := g.addAnonRule(si, parts.marked, rule.Repl)
			if err != nil {
				return err
			}
			sub.records = append(sub.records, &otl.SequenceLookupRecord{
				SequenceIndex: uint16(parts.markedAt),
				Label:         label,
			})
		} else {
			// Direct lookup references attached to marked positions.
			inputInx := 0
			for i := range rule.Targ.Classes {
				cr := &rule.Targ.Classes[i]
				if !cr.Input {
					continue
				}
				for _, label := range cr.LookupLabels {
					sub.records = append(sub.records, &otl.SequenceLookupRecord{
						SequenceIndex: uint16(inputInx),
						Label:         label,
					})
				}
				inputInx++
			}
		}

		g.bumpContext(len(parts.input) + len(parts.look))
		g.otl.AddSubtable(g.newRecord(si, sub))
	}
	return nil
}

// --- Anonymous sub-lookups -------------------------------------------------

// addAnonRule registers the replacement of a chain rule as a rule of an
// anonymous stand-alone lookup and returns that lookup's label. The rule is
// appended to the most recent anonymous accumulator when lookup type, flags,
// mark-set index, and parent feature all match and the rule does not
// conflict; otherwise a fresh accumulator with a fresh label starts.
func (g *GSUB) addAnonRule(curSI *SubtableInfo, marked []*feat.ClassRec, repl *feat.GPat) (ot.Label, error) {
	var lkpType ot.LayoutTableLookupType
	if len(marked) == 1 {
		if repl.PatternLen() > 1 {
			lkpType = ot.GSubLookupTypeMultiple
		} else {
			lkpType = ot.GSubLookupTypeSingle
		}
	} else {
		lkpType = ot.GSubLookupTypeLigature
	}

	targCp := &feat.GPat{}
	for _, cr := range marked {
		cp := cr.Copy()
		cp.Marked, cp.Input = false, false
		targCp.AddClass(cp)
	}
	replCp := repl.Copy()

	if n := len(g.anonSubtables); n > 0 {
		si := g.anonSubtables[n-1]
		if si.LkpType == lkpType && si.LkpFlag == curSI.LkpFlag &&
			si.MarkSetIndex == curSI.MarkSetIndex && si.ParentFeatTag == g.nw.Feature {
			switch lkpType {
			case ot.GSubLookupTypeSingle:
				if g.addSingleToAnonSubtbl(si, targCp, replCp) {
					return si.Label, nil
				}
			case ot.GSubLookupTypeLigature:
				if g.addLigatureToAnonSubtbl(si, targCp, replCp) {
					return si.Label, nil
				}
			}
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
		Singles:       newSingles(),
	}
	if err := g.addSubstRule(asi, targCp, replCp); err != nil {
		return ot.LabelUndef, err
	}
	g.anonSubtables = append(g.anonSubtables, asi)
	return asi.Label, nil
}

// addSingleToAnonSubtbl tries to merge a single substitution into an
// existing anonymous accumulator. It fails when a target glyph is already
// mapped to a different replacement.
func (g *GSUB) addSingleToAnonSubtbl(si *SubtableInfo, targ, repl *feat.GPat) bool {
	tcr, rcr := &targ.Classes[0], &repl.Classes[0]
	needed := make(map[uint16]uint16)
	ri := 0
	for _, tg := range tcr.Glyphs {
		rg := rcr.Glyphs[ri]
		if prev, found := si.Singles.Get(uint16(tg.GID)); found {
			if prev.(uint16) != uint16(rg.GID) {
				return false
			}
		} else {
			needed[uint16(tg.GID)] = uint16(rg.GID)
		}
		if ri+1 < len(rcr.Glyphs) {
			ri++
		}
	}
	for t, r := range needed {
		si.Singles.Put(t, r)
	}
	return true
}

// addLigatureToAnonSubtbl tries to merge a ligature substitution into an
// existing anonymous accumulator. It fails when an enumerated target
// sequence collides with an existing rule: same sequence with a different
// replacement, or one sequence a prefix of the other.
func (g *GSUB) addLigatureToAnonSubtbl(si *SubtableInfo, targ, repl *feat.GPat) bool {
	classes := make([]*feat.ClassRec, len(targ.Classes))
	for i := range targ.Classes {
		classes[i] = &targ.Classes[i]
	}
	replGID := repl.Classes[0].Glyphs[0].GID

	type seq struct {
		gids  []ot.GlyphIndex
		found bool
	}
	var seqs []seq
	iter := feat.NewCrossProduct(classes)
	var gids []ot.GlyphIndex
	for iter.Next(&gids) {
		seqs = append(seqs, seq{gids: append([]ot.GlyphIndex(nil), gids...)})
	}

	for si2 := range seqs {
		s := &seqs[si2]
		for ri := range si.Rules {
			rule := &si.Rules[ri]
			if s.gids[0] != rule.Targ.Classes[0].Glyphs[0].GID {
				continue
			}
			k := 1
			for k < len(s.gids) && k < len(rule.Targ.Classes) &&
				s.gids[k] == rule.Targ.Classes[k].Glyphs[0].GID {
				k++
			}
			switch {
			case k == len(s.gids) && k == len(rule.Targ.Classes):
				// identical targets
				if replGID == rule.Repl.Classes[0].Glyphs[0].GID {
					s.found = true
					continue
				}
				return false
			case k == len(s.gids) || k == len(rule.Targ.Classes):
				// one is a prefix of the other
				return false
			}
		}
	}

	for _, s := range seqs {
		if s.found {
			continue
		}
		pat := &feat.GPat{}
		for _, gid := range s.gids {
			pat.AddClass(feat.ClassRecFromGlyph(gid))
		}
		si.Rules = append(si.Rules, SubstRule{
			Targ:   pat,
			Repl:   feat.PatFromGlyph(replGID),
			Length: len(s.gids),
		})
	}
	return true
}

// CreateAnonLookups compiles the deferred anonymous accumulators. They are
// parked under undefined tags so that they sort to the end of the subtable
// array and stay out of the FeatureList.
func (g *GSUB) CreateAnonLookups() error {
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
