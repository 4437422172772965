package feat

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestRegistryNamespaces(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.feat")
	defer teardown()
	//
	reg := NewRegistry()
	reg.DefineGlyphClass("UC", ClassRec{Glyphs: []GlyphRec{{GID: 1}, {GID: 2}}})
	cr, ok := reg.GlyphClass("UC")
	if !ok || cr.ClassSize() != 2 || !cr.GClass {
		t.Fatalf("expected glyph class UC with 2 glyphs")
	}
	// glyph classes may be reassigned
	reg.DefineGlyphClass("UC", ClassRec{Glyphs: []GlyphRec{{GID: 9}}})
	cr, _ = reg.GlyphClass("UC")
	if cr.ClassSize() != 1 {
		t.Errorf("expected reassignment to overwrite the class")
	}

	if err := reg.DefineAnchor("TOP", AnchorDef{X: 100, Y: 200}); err != nil {
		t.Fatalf("anchor definition failed: %v", err)
	}
	if err := reg.DefineAnchor("TOP", AnchorDef{}); err == nil {
		t.Errorf("expected duplicate anchor name to fail")
	}

	if err := reg.DefineValueRecord("KERN", MetricsInfo{Metrics: []int16{-50}}); err != nil {
		t.Fatalf("value record definition failed: %v", err)
	}
	if err := reg.DefineValueRecord("KERN", MetricsInfo{}); err == nil {
		t.Errorf("expected duplicate value record name to fail")
	}
}

func TestMarkClassesAccumulate(t *testing.T) {
	reg := NewRegistry()
	anchor := AnchorMarkInfo{Format: 1, X: 1, Y: 2}
	if err := reg.AddMarkClassGlyphs("TOP_MARKS", []GlyphRec{{GID: 30, Anchor: anchor}}); err != nil {
		t.Fatalf("mark class creation failed: %v", err)
	}
	if err := reg.AddMarkClassGlyphs("TOP_MARKS", []GlyphRec{{GID: 31, Anchor: anchor}}); err != nil {
		t.Fatalf("mark class accumulation failed: %v", err)
	}
	mc, ok := reg.MarkClassRef("TOP_MARKS")
	if !ok || mc.Rec.ClassSize() != 2 {
		t.Fatalf("expected mark class with 2 glyphs")
	}
	// frozen after first use in a position rule
	reg.FreezeMarkClass("TOP_MARKS")
	if err := reg.AddMarkClassGlyphs("TOP_MARKS", []GlyphRec{{GID: 32}}); err == nil {
		t.Errorf("expected frozen mark class to reject new glyphs")
	}
}

func TestReporterSeverities(t *testing.T) {
	var rep Reporter
	rep.SetPos(SourcePos{File: "f.fea", Line: 3, Col: 7})
	rep.Notef("just a note")
	rep.Warnf("a warning")
	if rep.HadError() {
		t.Fatalf("notes and warnings must not set the error state")
	}
	rep.Errorf("an error")
	if !rep.HadError() {
		t.Fatalf("expected error state after Errorf")
	}
	err := rep.Fatalf("fatal: %d", 42)
	if err == nil {
		t.Fatalf("expected Fatalf to return an error")
	}
	diags := rep.Diagnostics()
	if len(diags) != 4 {
		t.Fatalf("expected 4 diagnostics, have %d", len(diags))
	}
	if diags[0].Severity != SeverityNote || diags[3].Severity != SeverityFatal {
		t.Errorf("unexpected severities: %v", diags)
	}
	if diags[2].Pos.Line != 3 {
		t.Errorf("expected diagnostics to carry the source position")
	}
}
