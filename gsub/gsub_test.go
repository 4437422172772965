package gsub

import (
	"testing"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/internal/glyphtest"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func newTestGSUB(t *testing.T) (*GSUB, *feat.Reporter) {
	t.Helper()
	rep := &feat.Reporter{}
	inv := glyphtest.NewLatin()
	nextAnon := func() func() ot.Label {
		next := ot.AnonLabelBeg
		return func() ot.Label {
			l := next
			next++
			return l
		}
	}()
	g := New(rep, inv, otl.New(ot.TagGSUB, rep), nextAnon, func(uint16) bool { return true })
	g.FeatureBegin(ot.DFLT, ot.DfltLang(), ot.T("test"))
	return g, rep
}

func glyphPat(gids ...ot.GlyphIndex) *feat.GPat {
	pat := &feat.GPat{}
	for _, gid := range gids {
		pat.AddClass(feat.ClassRecFromGlyph(gid))
	}
	return pat
}

func classPat(gids ...ot.GlyphIndex) *feat.GPat {
	cr := feat.ClassRec{GClass: true}
	for _, gid := range gids {
		cr.Glyphs = append(cr.Glyphs, feat.GlyphRec{GID: gid})
	}
	return feat.PatFromClass(cr)
}

// --- Single substitution ---------------------------------------------------

func TestSingleConstantDeltaUsesFormat1(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gsub")
	defer teardown()
	//
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeSingle, 0, 0x2000, false, 0)
	// sub [A B C] by [b c d] with a constant GID delta
	if err := g.RuleAdd(classPat(1, 2, 3), classPat(11, 12, 13)); err != nil {
		t.Fatalf("RuleAdd failed: %v", err)
	}
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	recs := g.Backbone().Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 subtable record, have %d", len(recs))
	}
	sub, ok := recs[0].Sub.(*singleSubstFormat1)
	if !ok {
		t.Fatalf("expected SingleSubst format 1, have %T", recs[0].Sub)
	}
	if sub.deltaGlyphID != 10 {
		t.Errorf("expected delta 10, have %d", sub.deltaGlyphID)
	}
	if len(g.Backbone().Coverage.Glyphs(sub.coverage)) != 3 {
		t.Errorf("expected coverage over 3 glyphs")
	}
}

func TestSingleMixedDeltaFallsToFormat2(t *testing.T) {
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeSingle, 0, 0x2000, false, 0)
	g.RuleAdd(glyphPat(1), glyphPat(11))
	g.RuleAdd(glyphPat(2), glyphPat(20))
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	recs := g.Backbone().Records()
	sub, ok := recs[0].Sub.(*singleSubstFormat2)
	if !ok {
		t.Fatalf("expected SingleSubst format 2, have %T", recs[0].Sub)
	}
	if len(sub.gids) != 2 || sub.gids[0] != 11 || sub.gids[1] != 20 {
		t.Errorf("expected substitutes [11 20] in coverage order, have %v", sub.gids)
	}
}

func TestSingleDuplicateTargetSameReplIsDropped(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gsub")
	defer teardown()
	//
	g, rep := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeSingle, 0, 0x2000, false, 0)
	g.RuleAdd(glyphPat(1), glyphPat(11))
	if err := g.RuleAdd(glyphPat(1), glyphPat(11)); err != nil {
		t.Fatalf("expected duplicate with same replacement to be a note, have %v", err)
	}
	if rep.HadError() {
		t.Errorf("expected no error state for a deduplicated rule")
	}
	if err := g.RuleAdd(glyphPat(1), glyphPat(12)); err == nil {
		t.Errorf("expected duplicate with different replacement to be fatal")
	}
}

func TestSingleVrt2SeedsVerticalAdvances(t *testing.T) {
	rep := &feat.Reporter{}
	inv := glyphtest.NewLatin()
	g := New(rep, inv, otl.New(ot.TagGSUB, rep), func() ot.Label { return 0x2000 },
		func(uint16) bool { return true })
	g.FeatureBegin(ot.DFLT, ot.DfltLang(), ot.T("vrt2"))
	g.LookupBegin(ot.GSubLookupTypeSingle, 0, 0x2000, false, 0)
	targ, repl := glyphtest.GID(inv, "A"), glyphtest.GID(inv, "B")
	g.RuleAdd(glyphPat(targ), glyphPat(repl))
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	if !inv.HasVerticalAdvance(repl) {
		t.Fatalf("expected vrt2 to seed the replacement's vertical advance")
	}
	if inv.VerticalAdvance(repl) != -inv.HorizontalAdvance(targ) {
		t.Errorf("expected vAdv = -hAdv(targ), have %d", inv.VerticalAdvance(repl))
	}
}

// --- Multiple / Alternate --------------------------------------------------

func TestMultipleSubtableSplitsAtOverflowingRule(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gsub")
	defer teardown()
	//
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeMultiple, 0, 0x2000, false, 0)
	// Each rule: target glyph i -> sequence of 15 glyphs. Rule cost in the
	// accumulated subtable is 4 (offset+count via header growth) + 2*15
	// bytes; ~1900 rules push the size past 0xFFFF.
	const nRules = 1930
	for i := 0; i < nRules; i++ {
		repl := &feat.GPat{}
		for k := 0; k < 15; k++ {
			repl.AddClass(feat.ClassRecFromGlyph(ot.GlyphIndex(5000 + k)))
		}
		g.RuleAdd(glyphPat(ot.GlyphIndex(100+i)), repl)
	}
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	recs := g.Backbone().Records()
	if len(recs) != 2 {
		t.Fatalf("expected the lookup to split into 2 subtables, have %d", len(recs))
	}
	first := recs[0].Sub.(*multipleSubst)
	second := recs[1].Sub.(*multipleSubst)
	if len(first.sequences)+len(second.sequences) != nRules {
		t.Errorf("expected %d rules across both subtables, have %d",
			nRules, len(first.sequences)+len(second.sequences))
	}
	// the first subtable must stay within the 16-bit budget, and moving
	// the first rule of the second subtable back would overflow it
	if first.Size() > 0xFFFF {
		t.Errorf("first subtable exceeds 0xFFFF: %d", first.Size())
	}
	overflow := first.Size() + 4 + 2*uint32(len(second.sequences[0].gids))
	if overflow <= 0xFFFF {
		t.Errorf("expected the boundary rule to be the overflowing one")
	}
}

func TestAlternateKeepsChoiceOrder(t *testing.T) {
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeAlternate, 0, 0x2000, false, 0)
	g.RuleAdd(glyphPat(1), classPat(30, 10, 20))
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	sub := g.Backbone().Records()[0].Sub.(*multipleSubst)
	gids := sub.sequences[0].gids
	if len(gids) != 3 || gids[0] != 30 || gids[1] != 10 || gids[2] != 20 {
		t.Errorf("expected authoring order [30 10 20], have %v", gids)
	}
}

// --- Ligature --------------------------------------------------------------

func TestLigatureCrossProductAndSort(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gsub")
	defer teardown()
	//
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeLigature, 0, 0x2000, false, 0)
	// sub [14 26] 17 by 29 (GIDs) → two enumerated rules
	targ := &feat.GPat{}
	targ.AddClass(feat.ClassRec{Glyphs: []feat.GlyphRec{{GID: 14}, {GID: 26}}})
	targ.AddClass(feat.ClassRecFromGlyph(17))
	g.RuleAdd(targ, glyphPat(29))
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	sub := g.Backbone().Records()[0].Sub.(*ligatureSubst)
	if len(sub.sets) != 2 {
		t.Fatalf("expected 2 ligature sets (one per first glyph), have %d", len(sub.sets))
	}
	// sorted by first-glyph GID: 14 before 26
	if sub.sets[0].ligatures[0].components[0] != 17 {
		t.Errorf("expected component [17] in first set")
	}
	if sub.sets[0].ligatures[0].ligGlyph != 29 || sub.sets[1].ligatures[0].ligGlyph != 29 {
		t.Errorf("expected both enumerated rules to produce ligature 29")
	}
}

func TestLigatureLongestFirstWithinSet(t *testing.T) {
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeLigature, 0, 0x2000, false, 0)
	g.RuleAdd(glyphPat(14, 17), glyphPat(26))       // 14 17 -> 26
	g.RuleAdd(glyphPat(14, 14, 17), glyphPat(28))   // 14 14 17 -> 28
	g.RuleAdd(glyphPat(14, 14), glyphPat(27))       // 14 14 -> 27
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	sub := g.Backbone().Records()[0].Sub.(*ligatureSubst)
	if len(sub.sets) != 1 {
		t.Fatalf("expected one ligature set for first glyph 14, have %d", len(sub.sets))
	}
	ligs := sub.sets[0].ligatures
	if len(ligs) != 3 {
		t.Fatalf("expected 3 ligatures, have %d", len(ligs))
	}
	if len(ligs[0].components) != 2 { // longest pattern first
		t.Errorf("expected the 3-glyph pattern first, have %d components", len(ligs[0].components))
	}
	if ligs[0].ligGlyph != 28 {
		t.Errorf("expected ligature glyph 28 first, have glyph %d", ligs[0].ligGlyph)
	}
}

func TestLigatureDuplicateDifferentReplacementIsFatal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gsub")
	defer teardown()
	//
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeLigature, 0, 0x2000, false, 0)
	g.RuleAdd(glyphPat(14, 17), glyphPat(26))
	g.RuleAdd(glyphPat(14, 17), glyphPat(27))
	if err := g.LookupEnd(nil); err == nil {
		t.Errorf("expected duplicate pattern with different replacement to be fatal")
	}
}

// --- Chain context ---------------------------------------------------------

func chainPat(back, input, look []ot.GlyphIndex) *feat.GPat {
	pat := &feat.GPat{}
	for _, gid := range back {
		cr := feat.ClassRecFromGlyph(gid)
		cr.Backtrack = true
		pat.AddClass(cr)
	}
	for _, gid := range input {
		cr := feat.ClassRecFromGlyph(gid)
		cr.Input = true
		cr.Marked = true
		pat.AddClass(cr)
	}
	for _, gid := range look {
		cr := feat.ClassRecFromGlyph(gid)
		cr.Lookahead = true
		pat.AddClass(cr)
	}
	pat.HasMarked = len(input) > 0
	return pat
}

func TestChainInlineReplacementSynthesizesAnonLookup(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gsub")
	defer teardown()
	//
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeChainingContext, ot.LOOKUP_FLAG_IGNORE_MARKS, 0x2000, false, 0)
	// sub A B' C by D
	g.RuleAdd(chainPat([]ot.GlyphIndex{1}, []ot.GlyphIndex{2}, []ot.GlyphIndex{3}), glyphPat(4))
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	recs := g.Backbone().Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 chain subtable, have %d", len(recs))
	}
	chain := recs[0].Sub.(*chainSubst)
	if len(chain.backtracks) != 1 || len(chain.inputs) != 1 || len(chain.lookaheads) != 1 {
		t.Fatalf("expected 1/1/1 context coverages")
	}
	if len(chain.records) != 1 || chain.records[0].SequenceIndex != 0 {
		t.Fatalf("expected one lookup record at input index 0")
	}
	if len(g.anonSubtables) != 1 {
		t.Fatalf("expected one anonymous accumulator, have %d", len(g.anonSubtables))
	}
	anon := g.anonSubtables[0]
	if anon.LkpType != ot.GSubLookupTypeSingle {
		t.Errorf("expected anonymous Single lookup, have %s", anon.LkpType.GSubString())
	}
	if anon.LkpFlag != ot.LOOKUP_FLAG_IGNORE_MARKS {
		t.Errorf("expected anonymous lookup to inherit the lookup flag")
	}
	if anon.ParentFeatTag != ot.T("test") {
		t.Errorf("expected parent feature tag 'test', have '%s'", anon.ParentFeatTag)
	}
	if repl, ok := anon.Singles.Get(uint16(2)); !ok || repl.(uint16) != 4 {
		t.Errorf("expected anonymous rule 2 -> 4")
	}
	if chain.records[0].Label != anon.Label {
		t.Errorf("expected the chain record to reference the anonymous label")
	}
}

func TestChainAnonMergesCompatibleRules(t *testing.T) {
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeChainingContext, 0, 0x2000, false, 0)
	g.RuleAdd(chainPat([]ot.GlyphIndex{1}, []ot.GlyphIndex{2}, nil), glyphPat(4))
	g.RuleAdd(chainPat([]ot.GlyphIndex{1}, []ot.GlyphIndex{3}, nil), glyphPat(5))
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	if len(g.anonSubtables) != 1 {
		t.Fatalf("expected compatible rules to merge into one anonymous lookup, have %d",
			len(g.anonSubtables))
	}
	// conflicting mapping for glyph 2 forces a second accumulator
	g.LookupBegin(ot.GSubLookupTypeChainingContext, 0, 0x2001, false, 0)
	g.RuleAdd(chainPat(nil, []ot.GlyphIndex{2}, nil), glyphPat(9))
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	if len(g.anonSubtables) != 2 {
		t.Fatalf("expected a conflicting rule to start a new anonymous lookup, have %d",
			len(g.anonSubtables))
	}
}

func TestChainDirectLookupReferences(t *testing.T) {
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeChainingContext, 0, 0x2000, false, 0)
	pat := chainPat([]ot.GlyphIndex{1}, []ot.GlyphIndex{2, 3}, nil)
	pat.Classes[1].LookupLabels = []ot.Label{0x0001}
	pat.Classes[2].LookupLabels = []ot.Label{0x0002}
	pat.LookupNode = true
	g.RuleAdd(pat, nil)
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	chain := g.Backbone().Records()[0].Sub.(*chainSubst)
	if len(chain.records) != 2 {
		t.Fatalf("expected 2 lookup records, have %d", len(chain.records))
	}
	if chain.records[0].SequenceIndex != 0 || chain.records[1].SequenceIndex != 1 {
		t.Errorf("expected sequence indices 0 and 1, have %d and %d",
			chain.records[0].SequenceIndex, chain.records[1].SequenceIndex)
	}
}

// --- Reverse chain ---------------------------------------------------------

func TestReverseChainKeepsSubstitutesAligned(t *testing.T) {
	g, _ := newTestGSUB(t)
	g.LookupBegin(ot.GSubLookupTypeReverseChaining, 0, 0x2000, false, 0)
	pat := &feat.GPat{}
	cr := feat.ClassRec{Glyphs: []feat.GlyphRec{{GID: 9}, {GID: 3}, {GID: 6}}, Input: true, Marked: true}
	pat.AddClass(cr)
	look := feat.ClassRecFromGlyph(40)
	look.Lookahead = true
	pat.AddClass(look)
	pat.HasMarked = true
	g.RuleAdd(pat, classPat(19, 13, 16))
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	sub := g.Backbone().Records()[0].Sub.(*reverseSubst)
	cov := g.Backbone().Coverage.Glyphs(sub.inputCoverage)
	if len(cov) != 3 || cov[0] != 3 || cov[1] != 6 || cov[2] != 9 {
		t.Fatalf("expected input coverage sorted by GID, have %v", cov)
	}
	// substitutes must follow the sorted input order: 3->13, 6->16, 9->19
	if sub.substitutes[0] != 13 || sub.substitutes[1] != 16 || sub.substitutes[2] != 19 {
		t.Errorf("expected substitutes [13 16 19], have %v", sub.substitutes)
	}
}

// --- Feature parameters ----------------------------------------------------

func TestFeatureNameParamOnlyInStylisticSets(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gsub")
	defer teardown()
	//
	g, _ := newTestGSUB(t)
	g.FeatureBegin(ot.DFLT, ot.DfltLang(), ot.T("ss03"))
	g.LookupBegin(ot.GSubLookupTypeFeatureNameParam, 0, 0x2000, false, 0)
	g.AddFeatureNameParam(256)
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("expected featureNames in ss03 to succeed, have %v", err)
	}
	rec := g.Backbone().Records()[0]
	if !rec.IsFeatParam {
		t.Errorf("expected a feature-parameter record")
	}

	g2, _ := newTestGSUB(t)
	g2.FeatureBegin(ot.DFLT, ot.DfltLang(), ot.T("liga"))
	g2.LookupBegin(ot.GSubLookupTypeFeatureNameParam, 0, 0x2000, false, 0)
	g2.AddFeatureNameParam(256)
	if err := g2.LookupEnd(nil); err == nil {
		t.Errorf("expected featureNames outside ss## to be fatal")
	}
}

func TestFeatureNameParamRequiresWindowsDefault(t *testing.T) {
	rep := &feat.Reporter{}
	g := New(rep, glyphtest.NewLatin(), otl.New(ot.TagGSUB, rep),
		func() ot.Label { return 0x2000 }, func(uint16) bool { return false })
	g.FeatureBegin(ot.DFLT, ot.DfltLang(), ot.T("ss01"))
	g.LookupBegin(ot.GSubLookupTypeFeatureNameParam, 0, 0x2000, false, 0)
	g.AddFeatureNameParam(256)
	if err := g.LookupEnd(nil); err == nil {
		t.Errorf("expected missing Windows default name to be fatal")
	}
}
