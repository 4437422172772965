package otfeat

import (
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/gpos"
	"github.com/npillmayer/otfeat/ot"
)

// Rule emission. Every substitution or positioning statement funnels
// through prepRule, which closes the current lookup accumulator when the
// table or lookup type changes, then validates and appends the rule.

// closeCurrentLookup ends the open lookup accumulator, if any, running the
// kind-specific compiler. The closed lookup is remembered for
// languagesystem replay and, when authored under a default language,
// for DFLT replay.
func (fc *FeatCtx) closeCurrentLookup() error {
	if fc.prev.label == ot.LabelUndef {
		return nil
	}
	var err error
	switch fc.prev.tbl {
	case ot.TagGSUB:
		err = fc.gsub.LookupEnd(nil)
		fc.gsub.FeatureEnd()
	case ot.TagGPOS:
		err = fc.gpos.LookupEnd(nil)
		fc.gpos.FeatureEnd()
	}
	fc.prevClosed = fc.prev
	isParam := fc.prev.tbl == ot.TagGSUB &&
		(fc.prev.lkpType == ot.GSubLookupTypeFeatureNameParam ||
			fc.prev.lkpType == ot.GSubLookupTypeCVParam ||
			fc.prev.lkpType == ot.GSubLookupTypeSizeParam)
	if !fc.prev.label.IsRefLab() && !isParam && fc.prev.feature != ot.TagStandAlone &&
		fc.prev.feature != ot.TagUndef {
		fc.noteFeatureLkp(fc.prev)
		if fc.prev.language == ot.DfltLang() {
			fc.dfltLkps = append(fc.dfltLkps, fc.prev)
		}
	}
	fc.prev = newState()
	return err
}

func (fc *FeatCtx) noteFeatureLkp(st state) {
	for _, have := range fc.featureLkps {
		if have.label == st.label {
			return
		}
	}
	fc.featureLkps = append(fc.featureLkps, st)
}

// openNewLookup begins a lookup accumulator under the current state. Named
// lookups keep their authored label; everything else gets the next
// anonymous label.
func (fc *FeatCtx) openNewLookup() error {
	useExt := false
	if fc.currNamedLkp != ot.LabelUndef {
		fc.curr.label = fc.currNamedLkp
		if nl := fc.lab2NamedLkp(fc.currNamedLkp); nl != nil {
			useExt = nl.useExtension
		}
	} else {
		fc.curr.label = fc.nextAnonLabel()
		if fc.curr.feature == aaltTag && fc.aalt.useExtension {
			useExt = true
		}
	}
	switch fc.curr.tbl {
	case ot.TagGSUB:
		fc.gsub.FeatureBegin(fc.curr.script, fc.curr.language, fc.curr.feature)
		fc.gsub.LookupBegin(fc.curr.lkpType, fc.curr.lkpFlag, fc.curr.label, useExt, fc.curr.markSetIndex)
	case ot.TagGPOS:
		fc.gpos.FeatureBegin(fc.curr.script, fc.curr.language, fc.curr.feature)
		fc.gpos.LookupBegin(fc.curr.lkpType, fc.curr.lkpFlag, fc.curr.label, useExt, fc.curr.markSetIndex)
	}
	fc.prev = fc.curr
	fc.endOfNamedLkpOrRef = false
	fc.pushIDText()
	return nil
}

// prepRule switches the accumulator to (newTbl, newLkpType), closing and
// re-opening lookups as necessary.
func (fc *FeatCtx) prepRule(newTbl ot.Tag, newLkpType ot.LayoutTableLookupType, targ, repl *feat.GPat) error {
	fc.curr.tbl = newTbl
	fc.curr.lkpType = newLkpType
	fc.seenTblTags[newTbl] = true
	if fc.endOfNamedLkpOrRef || !fc.curr.equals(&fc.prev) {
		if err := fc.closeCurrentLookup(); err != nil {
			return err
		}
		if err := fc.openNewLookup(); err != nil {
			return err
		}
	}
	return nil
}

// --- Substitutions ---------------------------------------------------------

// Sub handles a substitution statement of the given kind. For contextual
// kinds the pattern's marked positions partition it into backtrack, input,
// and lookahead.
func (fc *FeatCtx) Sub(targ, repl *feat.GPat, kind ot.LayoutTableLookupType) error {
	if fc.rep.HadError() {
		return nil
	}
	switch kind {
	case ot.GSubLookupTypeSingle:
		if !fc.validateGSUBSingle(targ, repl) {
			return nil
		}
	case ot.GSubLookupTypeMultiple:
		if !fc.validateGSUBMultiple(targ, repl) {
			return nil
		}
	case ot.GSubLookupTypeAlternate:
		if !fc.validateGSUBAlternate(targ, repl) {
			return nil
		}
	case ot.GSubLookupTypeLigature:
		if !fc.validateGSUBLigature(targ, repl) {
			return nil
		}
	case ot.GSubLookupTypeChainingContext:
		fc.assignContextRoles(targ)
		if !fc.validateGSUBChain(targ, repl) {
			return nil
		}
	case ot.GSubLookupTypeReverseChaining:
		fc.assignContextRoles(targ)
		if !fc.validateGSUBReverseChain(targ, repl) {
			return nil
		}
	}

	// The aalt machinery records every single and alternate substitution;
	// the fold after compilation filters by the referenced features. Rules
	// written directly inside the aalt block are deferred entirely.
	if kind == ot.GSubLookupTypeSingle || kind == ot.GSubLookupTypeAlternate {
		fc.aaltStoreRuleInfo(targ, repl)
	}
	if fc.aalt.active {
		if kind != ot.GSubLookupTypeSingle && kind != ot.GSubLookupTypeAlternate {
			fc.rep.Errorf("feature 'aalt' allows only single and alternate substitutions")
		}
		return nil
	}

	if err := fc.prepRule(ot.TagGSUB, kind, targ, repl); err != nil {
		return err
	}
	return fc.gsub.RuleAdd(targ, repl)
}

// IgnoreSub handles an `ignore sub` statement: a chain-context rule with
// no replacement.
func (fc *FeatCtx) IgnoreSub(targ *feat.GPat) error {
	if fc.rep.HadError() {
		return nil
	}
	targ.IgnoreClause = true
	fc.assignContextRoles(targ)
	if err := fc.prepRule(ot.TagGSUB, ot.GSubLookupTypeChainingContext, targ, nil); err != nil {
		return err
	}
	return fc.gsub.RuleAdd(targ, nil)
}

// assignContextRoles partitions a contextual pattern left-to-right into
// backtrack, input, and lookahead. Marked positions are input; unmarked
// positions before the first mark are backtrack, after the last mark
// lookahead. A pattern without marks becomes all input (ignore clauses).
func (fc *FeatCtx) assignContextRoles(targ *feat.GPat) {
	first, last := -1, -1
	for i := range targ.Classes {
		if targ.Classes[i].Marked {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		for i := range targ.Classes {
			targ.Classes[i].Input = true
		}
		return
	}
	targ.HasMarked = true
	for i := range targ.Classes {
		cr := &targ.Classes[i]
		cr.Backtrack, cr.Input, cr.Lookahead = false, false, false
		switch {
		case i < first:
			cr.Backtrack = true
		case i <= last:
			cr.Input = true
		default:
			cr.Lookahead = true
		}
	}
}

// --- GSUB validation -------------------------------------------------------

func (fc *FeatCtx) compareGlyphClassCount(targ, repl *feat.ClassRec) bool {
	if repl.ClassSize() == 1 || targ.ClassSize() == repl.ClassSize() {
		return true
	}
	fc.rep.Errorf("target class has %d glyphs but replacement class has %d (%s)",
		targ.ClassSize(), repl.ClassSize(), fc.msgPrefix())
	return false
}

func (fc *FeatCtx) validateGSUBSingle(targ, repl *feat.GPat) bool {
	if targ.PatternLen() != 1 || targ.HasMarked {
		fc.rep.Errorf("single substitution takes a single glyph or glyph class (%s)", fc.msgPrefix())
		return false
	}
	if repl == nil || repl.PatternLen() != 1 {
		fc.rep.Errorf("single substitution requires a single replacement (%s)", fc.msgPrefix())
		return false
	}
	if targ.IsGlyph() && repl.Classes[0].IsMultiClass() {
		fc.rep.Errorf("cannot replace a single glyph by a glyph class (%s)", fc.msgPrefix())
		return false
	}
	return fc.compareGlyphClassCount(&targ.Classes[0], &repl.Classes[0])
}

func (fc *FeatCtx) validateGSUBMultiple(targ, repl *feat.GPat) bool {
	if !targ.IsUnmarkedGlyph() {
		fc.rep.Errorf("multiple substitution target must be a single glyph (%s)", fc.msgPrefix())
		return false
	}
	if repl == nil || repl.PatternLen() < 1 {
		fc.rep.Errorf("multiple substitution requires a replacement sequence (%s)", fc.msgPrefix())
		return false
	}
	for i := range repl.Classes {
		if repl.Classes[i].IsMultiClass() {
			fc.rep.Errorf("multiple substitution replacement must be glyphs, not classes (%s)",
				fc.msgPrefix())
			return false
		}
	}
	return true
}

func (fc *FeatCtx) validateGSUBAlternate(targ, repl *feat.GPat) bool {
	if !targ.IsUnmarkedGlyph() {
		fc.rep.Errorf("alternate substitution target must be a single glyph (%s)", fc.msgPrefix())
		return false
	}
	if repl == nil || repl.PatternLen() != 1 || !repl.Classes[0].IsClass() {
		fc.rep.Errorf("alternate substitution requires a glyph class of alternates (%s)", fc.msgPrefix())
		return false
	}
	return true
}

func (fc *FeatCtx) validateGSUBLigature(targ, repl *feat.GPat) bool {
	if targ.PatternLen() < 2 || targ.HasMarked {
		fc.rep.Errorf("ligature substitution takes a sequence of two or more glyphs (%s)", fc.msgPrefix())
		return false
	}
	if repl == nil || !repl.IsGlyph() {
		fc.rep.Errorf("ligature substitution replacement must be a single glyph (%s)", fc.msgPrefix())
		return false
	}
	return true
}

func (fc *FeatCtx) validateGSUBChain(targ, repl *feat.GPat) bool {
	nMarked := 0
	inInput := false
	contiguous := true
	for i := range targ.Classes {
		cr := &targ.Classes[i]
		if cr.Marked {
			if nMarked > 0 && !inInput {
				contiguous = false
			}
			inInput = true
			nMarked++
		} else if inInput {
			inInput = false
		}
	}
	if !contiguous {
		fc.rep.Errorf("marked positions must be contiguous (%s)", fc.msgPrefix())
		return false
	}
	if repl == nil {
		// direct lookup references; the pattern needs a lookup reference
		// or at least one marked position
		if !targ.LookupNode && nMarked == 0 {
			fc.rep.Errorf("contextual substitution requires marked glyphs or lookup references (%s)",
				fc.msgPrefix())
			return false
		}
		return true
	}
	if nMarked == 0 {
		fc.rep.Errorf("contextual substitution with a replacement requires marked glyphs (%s)",
			fc.msgPrefix())
		return false
	}
	if nMarked == 1 {
		// single or multiple behind the context
		var marked *feat.ClassRec
		for i := range targ.Classes {
			if targ.Classes[i].Marked {
				marked = &targ.Classes[i]
			}
		}
		if repl.PatternLen() == 1 {
			return fc.compareGlyphClassCount(marked, &repl.Classes[0])
		}
		for i := range repl.Classes {
			if repl.Classes[i].IsMultiClass() {
				fc.rep.Errorf("replacement sequence must be glyphs, not classes (%s)", fc.msgPrefix())
				return false
			}
		}
		return true
	}
	// several marked positions form a ligature target
	if !repl.IsGlyph() {
		fc.rep.Errorf("replacing a glyph sequence requires a single replacement glyph (%s)",
			fc.msgPrefix())
		return false
	}
	return true
}

func (fc *FeatCtx) validateGSUBReverseChain(targ, repl *feat.GPat) bool {
	nInput := 0
	var input *feat.ClassRec
	for i := range targ.Classes {
		cr := &targ.Classes[i]
		if cr.Input {
			nInput++
			input = cr
		}
		if cr.HasLookups() {
			fc.rep.Errorf("reverse chain substitution cannot reference lookups (%s)", fc.msgPrefix())
			return false
		}
	}
	if nInput != 1 {
		fc.rep.Errorf("reverse chain substitution must have exactly one input position (%s)",
			fc.msgPrefix())
		return false
	}
	if repl == nil {
		return true // ignore clause
	}
	if repl.PatternLen() != 1 {
		fc.rep.Errorf("reverse chain substitution requires a single replacement position (%s)",
			fc.msgPrefix())
		return false
	}
	return fc.compareGlyphClassCount(input, &repl.Classes[0])
}

// --- Positions -------------------------------------------------------------

// Pos handles a positioning statement of the given kind. Anchor-based
// kinds pass the collected anchors; mark-class references are resolved
// against the registry and frozen.
func (fc *FeatCtx) Pos(targ *feat.GPat, kind ot.LayoutTableLookupType, enumerate bool,
	anchors []feat.AnchorMarkInfo) error {
	if fc.rep.HadError() {
		return nil
	}
	if enumerate {
		targ.Enumerate = true
	}
	switch kind {
	case ot.GPosLookupTypeContextPos, ot.GPosLookupTypeChainedContextPos:
		fc.assignContextRoles(targ)
		if !fc.validateGPOSChain(targ, kind) {
			return nil
		}
	case ot.GPosLookupTypeSingle:
		if targ.PatternLen() != 1 || !targ.Classes[0].Metrics.IsSet() {
			fc.rep.Errorf("single positioning takes one glyph or class with a value record (%s)",
				fc.msgPrefix())
			return nil
		}
	case ot.GPosLookupTypePair:
		if targ.PatternLen() != 2 {
			fc.rep.Errorf("pair positioning takes exactly two positions (%s)", fc.msgPrefix())
			return nil
		}
	}

	if err := fc.prepRule(ot.TagGPOS, kind, targ, nil); err != nil {
		return err
	}

	// Resolve mark-class references: assign per-lookup class indices and
	// freeze the classes against further glyph additions.
	for i := range anchors {
		if anchors[i].MarkClassName == "" {
			continue
		}
		name := anchors[i].MarkClassName
		mc, ok := fc.reg.MarkClassRef(name)
		if !ok {
			fc.rep.Errorf("mark class @%s not defined (%s)", name, fc.msgPrefix())
			return nil
		}
		fc.reg.FreezeMarkClass(name)
		anchors[i].MarkClassIndex = int32(fc.gpos.Accum().MarkClassIndex(name, mc.Rec))
	}
	fc.gpos.RuleAdd(gpos.PosRule{Targ: targ, Anchors: anchors})
	return nil
}

// IgnorePos handles an `ignore pos` statement.
func (fc *FeatCtx) IgnorePos(targ *feat.GPat) error {
	if fc.rep.HadError() {
		return nil
	}
	targ.IgnoreClause = true
	fc.assignContextRoles(targ)
	if err := fc.prepRule(ot.TagGPOS, ot.GPosLookupTypeChainedContextPos, targ, nil); err != nil {
		return err
	}
	fc.gpos.RuleAdd(gpos.PosRule{Targ: targ})
	return nil
}

// validateGPOSChain checks a contextual positioning pattern.
func (fc *FeatCtx) validateGPOSChain(targ *feat.GPat, kind ot.LayoutTableLookupType) bool {
	nMarked := 0
	nWithValues := 0
	nWithLookups := 0
	for i := range targ.Classes {
		cr := &targ.Classes[i]
		if cr.Marked {
			nMarked++
			if cr.Metrics.IsSet() {
				nWithValues++
			}
			if cr.HasLookups() {
				nWithLookups++
			}
		} else {
			if cr.Metrics.IsSet() {
				fc.rep.Errorf("value records are only allowed on marked positions (%s)", fc.msgPrefix())
				return false
			}
			if cr.HasLookups() {
				fc.rep.Errorf("lookup references are only allowed on marked positions (%s)",
					fc.msgPrefix())
				return false
			}
		}
	}
	if targ.IgnoreClause {
		return true
	}
	if nMarked == 0 {
		fc.rep.Errorf("contextual positioning requires marked glyphs (%s)", fc.msgPrefix())
		return false
	}
	if nWithValues == 0 && nWithLookups == 0 {
		fc.rep.Errorf("contextual positioning requires a value record or lookup reference (%s)",
			fc.msgPrefix())
		return false
	}
	if nWithValues > 2 {
		fc.rep.Errorf("inline positioning supports at most two valued positions (%s)", fc.msgPrefix())
		return false
	}
	return true
}
