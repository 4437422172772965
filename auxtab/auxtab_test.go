package auxtab

import (
	"encoding/binary"
	"testing"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func u16At(b []byte, at int) uint16 {
	return binary.BigEndian.Uint16(b[at : at+2])
}

func TestGDEFGlyphClassesAndWrite(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.auxtab")
	defer teardown()
	//
	rep := &feat.Reporter{}
	g := NewGDEF(rep)
	err := g.SetGlyphClasses(
		[]ot.GlyphIndex{1, 2, 3}, // simple
		[]ot.GlyphIndex{26},      // ligature
		[]ot.GlyphIndex{30, 31},  // mark
		nil,                      // component
	)
	if err != nil {
		t.Fatalf("SetGlyphClasses failed: %v", err)
	}
	if err = g.SetGlyphClasses(nil, nil, nil, nil); err == nil {
		t.Errorf("expected second GlyphClassDef to fail")
	}
	b, err := g.Write()
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// version 1.0 without mark sets
	if binary.BigEndian.Uint32(b[0:4]) != 0x00010000 {
		t.Errorf("expected GDEF version 1.0")
	}
	classOff := int(u16At(b, 4))
	if classOff == 0 {
		t.Fatalf("expected a GlyphClassDef offset")
	}
	if u16At(b, 6) != 0 {
		t.Errorf("expected no attachment point list")
	}
}

func TestGDEFMarkSetsBumpVersion(t *testing.T) {
	rep := &feat.Reporter{}
	g := NewGDEF(rep)
	inx0 := g.AddMarkSet([]ot.GlyphIndex{30, 31})
	inx1 := g.AddMarkSet([]ot.GlyphIndex{31, 30})
	if inx0 != 0 || inx1 != 0 {
		t.Errorf("expected identical mark sets to share index 0, have %d and %d", inx0, inx1)
	}
	inx2 := g.AddMarkSet([]ot.GlyphIndex{32})
	if inx2 != 1 {
		t.Errorf("expected next distinct set to get index 1, have %d", inx2)
	}
	b, err := g.Write()
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if binary.BigEndian.Uint32(b[0:4]) != 0x00010002 {
		t.Errorf("expected GDEF version 1.2 with mark sets")
	}
}

func TestGDEFAttachClassesDedup(t *testing.T) {
	rep := &feat.Reporter{}
	g := NewGDEF(rep)
	c1, err := g.AddAttachClass([]ot.GlyphIndex{5, 6})
	if err != nil || c1 != 1 {
		t.Fatalf("expected first attach class to get index 1, have %d (%v)", c1, err)
	}
	c2, _ := g.AddAttachClass([]ot.GlyphIndex{6, 5})
	if c2 != 1 {
		t.Errorf("expected identical glyph set to share class 1, have %d", c2)
	}
	c3, _ := g.AddAttachClass([]ot.GlyphIndex{9})
	if c3 != 2 {
		t.Errorf("expected next class index 2, have %d", c3)
	}
}

func TestGDEFSynthesizedClasses(t *testing.T) {
	rep := &feat.Reporter{}
	g := NewGDEF(rep)
	g.SynthesizeGlyphClasses([]ot.GlyphIndex{30, 31})
	if g.IsEmpty() {
		t.Errorf("expected synthesized classes to populate GDEF")
	}
}

func TestBASEWrite(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.auxtab")
	defer teardown()
	//
	rep := &feat.Reporter{}
	b := NewBASE(rep)
	tags := []ot.Tag{ot.T("ideo"), ot.T("romn")}
	if err := b.SetAxisTags(false, tags); err != nil {
		t.Fatalf("SetAxisTags failed: %v", err)
	}
	if err := b.AddScript(false, ot.T("latn"), ot.T("romn"), []int16{-120, 0}); err != nil {
		t.Fatalf("AddScript failed: %v", err)
	}
	if err := b.AddScript(false, ot.T("hani"), ot.T("ideo"), []int16{-120, 0}); err != nil {
		t.Fatalf("AddScript failed: %v", err)
	}
	if err := b.AddScript(false, ot.T("grek"), ot.T("dflt"), []int16{0, 0}); err == nil {
		t.Errorf("expected unknown default baseline tag to fail")
	}
	buf, err := b.Write()
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if binary.BigEndian.Uint32(buf[0:4]) != 0x00010000 {
		t.Errorf("expected BASE version 1.0")
	}
	horizOff := int(u16At(buf, 4))
	if horizOff != 8 {
		t.Fatalf("expected horizontal axis at 8, have %d", horizOff)
	}
	if u16At(buf, 6) != 0 {
		t.Errorf("expected no vertical axis")
	}
	tagListOff := horizOff + int(u16At(buf, horizOff))
	if u16At(buf, tagListOff) != 2 {
		t.Errorf("expected 2 baseline tags")
	}
	if string(buf[tagListOff+2:tagListOff+6]) != "ideo" {
		t.Errorf("expected first baseline tag 'ideo'")
	}
}

func TestSTATWrite(t *testing.T) {
	rep := &feat.Reporter{}
	s := NewSTAT(rep)
	if err := s.AddDesignAxis(DesignAxis{Tag: ot.T("wght"), NameID: 256, Ordering: 0}); err != nil {
		t.Fatalf("AddDesignAxis failed: %v", err)
	}
	if err := s.AddDesignAxis(DesignAxis{Tag: ot.T("wght")}); err == nil {
		t.Errorf("expected duplicate axis to fail")
	}
	err := s.AddAxisValue(AxisValue{
		Format:   1,
		NameID:   257,
		Flags:    StatElidableAxisValueName,
		AxisTags: []ot.Tag{ot.T("wght")},
		Values:   []ot.Fixed{ot.FixedFromFloat(400)},
	})
	if err != nil {
		t.Fatalf("AddAxisValue failed: %v", err)
	}
	if err = s.SetElidedFallbackName(300); err != nil {
		t.Fatalf("SetElidedFallbackName failed: %v", err)
	}
	if err = s.SetElidedFallbackName(301); err == nil {
		t.Errorf("expected conflicting elided fallback to fail")
	}
	b, err := s.Write()
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if u16At(b, 0) != 1 || u16At(b, 2) != 1 {
		t.Errorf("expected STAT version 1.1")
	}
	if u16At(b, 4) != 8 {
		t.Errorf("expected designAxisSize 8")
	}
	if u16At(b, 6) != 1 {
		t.Errorf("expected 1 design axis")
	}
	if u16At(b, 18) != 300 {
		t.Errorf("expected elided fallback name 300, have %d", u16At(b, 18))
	}
	// axis record at offset 20
	if string(b[20:24]) != "wght" {
		t.Errorf("expected axis tag wght")
	}
}

func TestNameWindowsDefault(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.auxtab")
	defer teardown()
	//
	rep := &feat.Reporter{}
	n := NewName(rep)
	n.AddRow(-1, -1, -1, 256, "Fancy Alternates")
	if !n.HasWindowsDefault(256) {
		t.Errorf("expected default platform to be the Windows default")
	}
	if n.HasWindowsDefault(257) {
		t.Errorf("expected no record for name id 257")
	}
	n.AddRow(int(PlatformMac), -1, -1, 256, "Fancy Alternates")
	if id := n.NextUserNameID(); id != 257 {
		t.Errorf("expected next free name id 257, have %d", id)
	}
	// duplicate with identical value is dropped silently
	n.AddRow(-1, -1, -1, 256, "Fancy Alternates")
	if len(n.Rows()) != 2 {
		t.Errorf("expected 2 rows after dedup, have %d", len(n.Rows()))
	}
	// conflicting value is an error
	n.AddRow(-1, -1, -1, 256, "Other")
	if !rep.HadError() {
		t.Errorf("expected conflicting name row to be an error")
	}
}

func TestNameWriteEncodesUTF16(t *testing.T) {
	rep := &feat.Reporter{}
	n := NewName(rep)
	n.AddRow(-1, -1, -1, 256, "AB")
	b, err := n.Write()
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if u16At(b, 0) != 0 || u16At(b, 2) != 1 {
		t.Fatalf("expected format 0 with 1 record")
	}
	strOff := int(u16At(b, 4))
	length := int(u16At(b, 14))
	if length != 4 {
		t.Fatalf("expected 4 bytes of UTF-16 for \"AB\", have %d", length)
	}
	payload := b[strOff : strOff+length]
	if payload[0] != 0 || payload[1] != 'A' || payload[2] != 0 || payload[3] != 'B' {
		t.Errorf("expected UTF-16BE payload, have % x", payload)
	}
}

func TestHostOverrides(t *testing.T) {
	h := NewHostOverrides()
	if err := h.SetFontRevision("1.042"); err != nil {
		t.Fatalf("SetFontRevision failed: %v", err)
	}
	if h.FontRevision.Float() < 1.0419 || h.FontRevision.Float() > 1.0421 {
		t.Errorf("expected revision 1.042, have %f", h.FontRevision.Float())
	}
	if err := h.SetUnicodeRanges([]int{0, 33, -1}); err != nil {
		t.Fatalf("SetUnicodeRanges failed: %v", err)
	}
	if h.UnicodeRanges[0]&1 == 0 || h.UnicodeRanges[1]&(1<<1) == 0 {
		t.Errorf("expected bits 0 and 33 to be set")
	}
	if err := h.SetCodePageRanges([]int{1252, 932}); err != nil {
		t.Fatalf("SetCodePageRanges failed: %v", err)
	}
	if h.CodePageRanges[0]&1 == 0 || h.CodePageRanges[0]&(1<<17) == 0 {
		t.Errorf("expected code page bits 0 and 17 to be set")
	}
	if err := h.SetCodePageRanges([]int{12345}); err == nil {
		t.Errorf("expected unsupported code page to fail")
	}
	if err := h.SetVertOriginY(5, 880); err != nil {
		t.Fatalf("SetVertOriginY failed: %v", err)
	}
	if err := h.SetVertOriginY(5, 900); err == nil {
		t.Errorf("expected duplicate VertOriginY to fail")
	}
}
