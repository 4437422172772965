package gpos

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func newTestGPOS(t *testing.T) (*GPOS, *feat.Reporter) {
	t.Helper()
	rep := &feat.Reporter{}
	next := ot.AnonLabelBeg
	g := New(rep, otl.New(ot.TagGPOS, rep), func() ot.Label {
		l := next
		next++
		return l
	})
	g.FeatureBegin(ot.DFLT, ot.DfltLang(), ot.T("kern"))
	return g, rep
}

func posPat(metrics []int16, gids ...ot.GlyphIndex) *feat.GPat {
	cr := feat.ClassRec{Metrics: feat.MetricsInfo{Metrics: metrics}}
	for _, gid := range gids {
		cr.Glyphs = append(cr.Glyphs, feat.GlyphRec{GID: gid})
	}
	if len(gids) > 1 {
		cr.GClass = true
	}
	return feat.PatFromClass(cr)
}

func TestValueFormats(t *testing.T) {
	if vf := valueFormatOf(feat.MetricsInfo{Metrics: []int16{-50}}); vf != ValueXAdvance {
		t.Errorf("expected a single metric to mean x advance, have %#x", vf)
	}
	vf := valueFormatOf(feat.MetricsInfo{Metrics: []int16{1, 2, 3, 4}})
	if vf != ValueXPlacement|ValueYPlacement|ValueXAdvance|ValueYAdvance {
		t.Errorf("expected full format for 4 metrics, have %#x", vf)
	}
	// zero-valued fields are dropped from longer records
	vf = valueFormatOf(feat.MetricsInfo{Metrics: []int16{0, 0, -30, 0}})
	if vf != ValueXAdvance {
		t.Errorf("expected only x advance, have %#x", vf)
	}
	if vf.Size() != 2 {
		t.Errorf("expected 2 bytes per record, have %d", vf.Size())
	}
}

func TestSinglePosUniformValueUsesFormat1(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gpos")
	defer teardown()
	//
	g, _ := newTestGPOS(t)
	g.LookupBegin(ot.GPosLookupTypeSingle, 0, 0x2000, false, 0)
	g.RuleAdd(PosRule{Targ: posPat([]int16{-40}, 3, 5, 9)})
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	sub, ok := g.Backbone().Records()[0].Sub.(*singlePosFormat1)
	if !ok {
		t.Fatalf("expected SinglePos format 1, have %T", g.Backbone().Records()[0].Sub)
	}
	if sub.value.XAdvance() != -40 {
		t.Errorf("expected shared x advance -40, have %d", sub.value.XAdvance())
	}
}

func TestSinglePosMixedValuesUseFormat2(t *testing.T) {
	g, _ := newTestGPOS(t)
	g.LookupBegin(ot.GPosLookupTypeSingle, 0, 0x2000, false, 0)
	g.RuleAdd(PosRule{Targ: posPat([]int16{-40}, 9)})
	g.RuleAdd(PosRule{Targ: posPat([]int16{-20}, 3)})
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	sub, ok := g.Backbone().Records()[0].Sub.(*singlePosFormat2)
	if !ok {
		t.Fatalf("expected SinglePos format 2")
	}
	// values parallel to GID-sorted coverage: glyph 3 first
	want := []int16{-20, -40}
	for i, mi := range sub.values {
		if mi.XAdvance() != want[i] {
			t.Errorf("value %d: expected %d, have %d", i, want[i], mi.XAdvance())
		}
	}
}

func TestPairPosGlyphsFormat1Sorted(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gpos")
	defer teardown()
	//
	g, _ := newTestGPOS(t)
	g.LookupBegin(ot.GPosLookupTypePair, 0, 0x2000, false, 0)
	pat := &feat.GPat{}
	pat.AddClass(feat.ClassRec{Glyphs: []feat.GlyphRec{{GID: 9}}, Metrics: feat.MetricsInfo{Metrics: []int16{-30}}})
	pat.AddClass(feat.ClassRec{Glyphs: []feat.GlyphRec{{GID: 4}}})
	g.RuleAdd(PosRule{Targ: pat})
	pat2 := &feat.GPat{}
	pat2.AddClass(feat.ClassRec{Glyphs: []feat.GlyphRec{{GID: 2}}, Metrics: feat.MetricsInfo{Metrics: []int16{-10}}})
	pat2.AddClass(feat.ClassRec{Glyphs: []feat.GlyphRec{{GID: 7}}})
	g.RuleAdd(PosRule{Targ: pat2})
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	sub, ok := g.Backbone().Records()[0].Sub.(*pairPosFormat1)
	if !ok {
		t.Fatalf("expected PairPos format 1")
	}
	if len(sub.sets) != 2 || sub.sets[0].first != 2 || sub.sets[1].first != 9 {
		t.Fatalf("expected pair sets sorted by first glyph [2 9]")
	}
	if sub.vf2 != 0 {
		t.Errorf("expected empty second value format, have %#x", sub.vf2)
	}
}

func TestPairPosClassesFormat2(t *testing.T) {
	g, _ := newTestGPOS(t)
	g.LookupBegin(ot.GPosLookupTypePair, 0, 0x2000, false, 0)
	pat := &feat.GPat{}
	pat.AddClass(feat.ClassRec{
		Glyphs:  []feat.GlyphRec{{GID: 10}, {GID: 11}},
		GClass:  true,
		Metrics: feat.MetricsInfo{Metrics: []int16{-25}},
	})
	pat.AddClass(feat.ClassRec{Glyphs: []feat.GlyphRec{{GID: 20}, {GID: 21}}, GClass: true})
	g.RuleAdd(PosRule{Targ: pat})
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	sub, ok := g.Backbone().Records()[0].Sub.(*pairPosFormat2)
	if !ok {
		t.Fatalf("expected PairPos format 2 for class pairs")
	}
	if sub.class1Count != 2 || sub.class2Count != 2 {
		t.Errorf("expected 2x2 class matrix (incl. class 0), have %dx%d",
			sub.class1Count, sub.class2Count)
	}
	if got := sub.matrix[1][1].v1.XAdvance(); got != -25 {
		t.Errorf("expected cell [1][1] to hold -25, have %d", got)
	}
	if diff := cmp.Diff(sub.matrix[0][0], pairCell{}, cmp.AllowUnexported(pairCell{}, feat.MetricsInfo{})); diff != "" {
		t.Errorf("expected empty class-0 cell, diff:\n%s", diff)
	}
}

func TestCursiveAttachment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gpos")
	defer teardown()
	//
	g, _ := newTestGPOS(t)
	g.LookupBegin(ot.GPosLookupTypeCursive, 0, 0x2000, false, 0)
	entry := feat.AnchorMarkInfo{Format: 1, X: 10, Y: 0}
	exit := feat.AnchorMarkInfo{Format: 1, X: 500, Y: 0}
	g.RuleAdd(PosRule{Targ: posPat(nil, 6, 4), Anchors: []feat.AnchorMarkInfo{entry, exit}})
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	sub, ok := g.Backbone().Records()[0].Sub.(*cursivePos)
	if !ok {
		t.Fatalf("expected CursivePos subtable")
	}
	if len(sub.records) != 2 || sub.records[0].gid != 4 {
		t.Fatalf("expected 2 entry/exit records sorted by GID")
	}
	// identical anchors shared across records
	if sub.records[0].entry != sub.records[1].entry {
		t.Errorf("expected shared entry anchors")
	}
	// size must cover header, records, and the two pooled anchors
	want := uint32(6+4*2) + 12
	if sub.Size() != want {
		t.Errorf("expected size %d, have %d", want, sub.Size())
	}
}

func TestMarkToBaseClassIndices(t *testing.T) {
	g, _ := newTestGPOS(t)
	g.LookupBegin(ot.GPosLookupTypeMarkToBase, 0, 0x2000, false, 0)
	si := g.Accum()
	topClass := feat.ClassRec{Glyphs: []feat.GlyphRec{
		{GID: 30, Anchor: feat.AnchorMarkInfo{Format: 1, X: 1, Y: 2}},
		{GID: 31, Anchor: feat.AnchorMarkInfo{Format: 1, X: 3, Y: 4}},
	}}
	botClass := feat.ClassRec{Glyphs: []feat.GlyphRec{
		{GID: 32, Anchor: feat.AnchorMarkInfo{Format: 1, X: 5, Y: 6}},
	}}
	topInx := si.MarkClassIndex("TOP", topClass)
	botInx := si.MarkClassIndex("BOTTOM", botClass)
	if topInx != 0 || botInx != 1 {
		t.Fatalf("expected mark class indices 0 and 1, have %d and %d", topInx, botInx)
	}
	if si.MarkClassIndex("TOP", topClass) != 0 {
		t.Fatalf("expected repeated reference to reuse the index")
	}
	base := posPat(nil, 1, 2)
	anchors := []feat.AnchorMarkInfo{
		{Format: 1, X: 100, Y: 600, MarkClassIndex: int32(topInx)},
		{Format: 1, X: 100, Y: -10, MarkClassIndex: int32(botInx)},
	}
	g.RuleAdd(PosRule{Targ: base, Anchors: anchors})
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	sub, ok := g.Backbone().Records()[0].Sub.(*markBasePos)
	if !ok {
		t.Fatalf("expected MarkBasePos subtable")
	}
	if sub.classCount != 2 {
		t.Errorf("expected 2 mark classes, have %d", sub.classCount)
	}
	if len(sub.marks.classes) != 3 {
		t.Errorf("expected 3 covered mark glyphs, have %d", len(sub.marks.classes))
	}
	if len(sub.bases) != 2 {
		t.Errorf("expected 2 base records, have %d", len(sub.bases))
	}
	for _, base := range sub.bases {
		if len(base) != 2 || base[0] < 0 || base[1] < 0 {
			t.Errorf("expected anchors for both classes on every base, have %v", base)
		}
	}
}

func TestContextPosInlineValueSynthesizesAnonLookup(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.gpos")
	defer teardown()
	//
	g, _ := newTestGPOS(t)
	g.LookupBegin(ot.GPosLookupTypeChainedContextPos, 0, 0x2000, false, 0)
	pat := &feat.GPat{}
	back := feat.ClassRecFromGlyph(1)
	back.Backtrack = true
	pat.AddClass(back)
	marked := feat.ClassRecFromGlyph(2)
	marked.Input = true
	marked.Marked = true
	marked.Metrics = feat.MetricsInfo{Metrics: []int16{-60}}
	pat.AddClass(marked)
	pat.HasMarked = true
	g.RuleAdd(PosRule{Targ: pat})
	if err := g.LookupEnd(nil); err != nil {
		t.Fatalf("LookupEnd failed: %v", err)
	}
	if len(g.anonSubtables) != 1 {
		t.Fatalf("expected one anonymous adjustment lookup, have %d", len(g.anonSubtables))
	}
	anon := g.anonSubtables[0]
	if anon.LkpType != ot.GPosLookupTypeSingle {
		t.Errorf("expected anonymous Single adjustment, have %s", anon.LkpType.GPosString())
	}
	sub := g.Backbone().Records()[0].Sub.(*contextPos)
	if len(sub.records) != 1 || sub.records[0].SequenceIndex != 0 {
		t.Errorf("expected one record at input index 0")
	}
	if sub.records[0].Label != anon.Label {
		t.Errorf("expected record to reference the anonymous label")
	}
}
