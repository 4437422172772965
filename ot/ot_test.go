package ot

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestTags(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.ot")
	defer teardown()
	//
	tag := Tag(0x6c696761)
	if tag.String() != "liga" {
		t.Errorf("expected tag 0x6c696761 to be 'liga', is %s", tag.String())
	}
	tag = MakeTag([]byte("liga"))
	if tag.String() != "liga" {
		t.Errorf("expected tag MakeTag(liga) to be 'liga', is %s", tag.String())
	}
	tag = T("liga")
	if tag.String() != "liga" {
		t.Errorf("expected tag T(liga) to be 'liga', is %s", tag.String())
	}
	if T("kern") == T("liga") {
		t.Errorf("expected distinct tags for distinct strings")
	}
}

func TestTagValidity(t *testing.T) {
	if !T("ss01").IsValid() {
		t.Errorf("expected tag 'ss01' to be valid")
	}
	if TagUndef.IsValid() {
		t.Errorf("expected TagUndef to be invalid")
	}
	if TagStandAlone.IsValid() {
		t.Errorf("expected TagStandAlone to be invalid")
	}
}

func TestLabelRanges(t *testing.T) {
	if !Label(0).IsNamedLab() {
		t.Errorf("expected label 0 to be a named label")
	}
	if !Label(0x2000).IsAnonLab() {
		t.Errorf("expected label 0x2000 to be an anonymous label")
	}
	if Label(0x2000).IsNamedLab() {
		t.Errorf("expected label 0x2000 not to be a named label")
	}
	ref := Label(0x17).AsRef()
	if !ref.IsRefLab() {
		t.Errorf("expected reference bit to be set")
	}
	if !ref.IsNamedLab() {
		t.Errorf("expected reference to a named label to stay named")
	}
	if ref.Base() != 0x17 {
		t.Errorf("expected base label 0x17, have %#x", ref.Base())
	}
	if LabelUndef.IsRefLab() {
		t.Errorf("expected LAB_UNDEF not to count as a reference")
	}
}

func TestFixedConversion(t *testing.T) {
	if FixedFromFloat(1.0) != 0x10000 {
		t.Errorf("expected 1.0 to be 0x10000, have %#x", FixedFromFloat(1.0))
	}
	x := FixedFromFloat(2.5)
	if x.Float() != 2.5 {
		t.Errorf("expected round-trip of 2.5, have %f", x.Float())
	}
}

func TestWriter(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.ot")
	defer teardown()
	//
	w := NewWriter(16)
	w.U16(0x0102)
	w.U32(0x03040506)
	w.I16(-2)
	w.Tag(T("GSUB"))
	if w.Pos() != 12 {
		t.Fatalf("expected writer position 12, have %d", w.Pos())
	}
	b := w.Bytes()
	expect := []byte{1, 2, 3, 4, 5, 6, 0xFF, 0xFE, 'G', 'S', 'U', 'B'}
	for i, e := range expect {
		if b[i] != e {
			t.Errorf("byte %d: expected %#x, have %#x", i, e, b[i])
		}
	}
	w.PatchU16(0, 0xBEEF)
	if w.Bytes()[0] != 0xBE || w.Bytes()[1] != 0xEF {
		t.Errorf("expected PatchU16 to overwrite bytes 0..1")
	}
}

func TestCheckOffset(t *testing.T) {
	if err := CheckOffset(0xFFFF, "coverage table", "single substitution"); err != nil {
		t.Errorf("expected 0xFFFF to fit, have %v", err)
	}
	if err := CheckOffset(0x10000, "coverage table", "single substitution"); err == nil {
		t.Errorf("expected 0x10000 to overflow")
	}
}
