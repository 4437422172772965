package otfeat

import (
	"github.com/npillmayer/otfeat/auxtab"
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
)

// Table-block statements: `table GDEF { ... } GDEF;` and friends. Each
// handler validates and forwards into the auxiliary-table accumulators.

// StartTable handles `table XXXX {`.
func (fc *FeatCtx) StartTable(tag ot.Tag) error {
	if fc.seenTblTags[tag] {
		return fc.rep.Fatalf("table '%s' is defined more than once", tag)
	}
	switch tag {
	case ot.TagGDEF, ot.TagBASE, ot.TagSTAT, ot.TagName, ot.TagOS2,
		ot.TagHead, ot.TagHhea, ot.TagVhea, ot.TagVmtx:
		fc.seenTblTags[tag] = true
	default:
		return fc.rep.Fatalf("table '%s' cannot be specified in a feature file", tag)
	}
	if tag == ot.TagSTAT {
		fc.sawSTAT = true
	}
	return nil
}

// --- GDEF ------------------------------------------------------------------

// GDEFGlyphClasses handles a `GlyphClassDef simple, ligature, mark,
// component;` statement.
func (fc *FeatCtx) GDEFGlyphClasses(simple, ligature, mark, component feat.ClassRec) {
	fc.gFlags |= seenGDEFGC
	err := fc.gdef.SetGlyphClasses(classGlyphs(&simple), classGlyphs(&ligature),
		classGlyphs(&mark), classGlyphs(&component))
	if err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// GDEFLigatureCarets handles `LigatureCaretByPos` / `LigatureCaretByIndex`
// statements; byPoint selects contour-point carets.
func (fc *FeatCtx) GDEFLigatureCarets(pat feat.ClassRec, values []int16, byPoint bool) {
	carets := make([]auxtab.CaretValue, len(values))
	for i, v := range values {
		carets[i] = auxtab.CaretValue{ByPoint: byPoint, Value: v}
	}
	for _, gr := range pat.Glyphs {
		fc.gdef.AddLigCarets(gr.GID, carets)
	}
}

// --- BASE ------------------------------------------------------------------

// BASEAxisTags handles a `HorizAxis.BaseTagList` / `VertAxis.BaseTagList`
// statement.
func (fc *FeatCtx) BASEAxisTags(vertical bool, tags []ot.Tag) {
	if err := fc.base.SetAxisTags(vertical, tags); err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// BASEScript handles one script record of a `BaseScriptList` statement.
func (fc *FeatCtx) BASEScript(vertical bool, script, dfltBaseline ot.Tag, coords []int16) {
	if err := fc.base.AddScript(vertical, script, dfltBaseline, coords); err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// --- STAT ------------------------------------------------------------------

// STATDesignAxis handles a `DesignAxis` statement.
func (fc *FeatCtx) STATDesignAxis(tag ot.Tag, nameID uint16, ordering uint16) {
	if err := fc.stat.AddDesignAxis(auxtab.DesignAxis{Tag: tag, NameID: nameID, Ordering: ordering}); err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// STATAxisValue handles an `AxisValue` statement.
func (fc *FeatCtx) STATAxisValue(av auxtab.AxisValue) {
	if err := fc.stat.AddAxisValue(av); err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// STATElidedFallbackName handles the `ElidedFallbackName` /
// `ElidedFallbackNameID` statements.
func (fc *FeatCtx) STATElidedFallbackName(nameID uint16) {
	if err := fc.stat.SetElidedFallbackName(nameID); err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// --- name ------------------------------------------------------------------

// NameString handles a `nameid N ... "...";` statement of the name table.
func (fc *FeatCtx) NameString(nameID uint16, platformID, encodingID, languageID int, s string) {
	fc.name.AddRow(platformID, encodingID, languageID, nameID, s)
}

// --- head / hhea / vhea / OS_2 / vmtx --------------------------------------

// HeadFontRevision handles `FontRevision x.yyy;`.
func (fc *FeatCtx) HeadFontRevision(rev string) {
	if err := fc.host.SetFontRevision(rev); err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// HheaCaretOffset handles `CaretOffset n;`.
func (fc *FeatCtx) HheaCaretOffset(offset int16) {
	fc.host.CaretOffset = offset
	fc.host.HasCaretOffset = true
}

// VheaCaret handles the vhea caret statements.
func (fc *FeatCtx) VheaCaret(slopeRise, slopeRun, offset int16) {
	fc.host.VheaCaretSlopeRise = slopeRise
	fc.host.VheaCaretSlopeRun = slopeRun
	fc.host.VheaCaretOffset = offset
	fc.host.HasVheaCaret = true
}

// OS2UnicodeRanges handles `UnicodeRange a b c ...;`.
func (fc *FeatCtx) OS2UnicodeRanges(blocks []int) {
	if err := fc.host.SetUnicodeRanges(blocks); err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// OS2CodePageRanges handles `CodePageRange a b c ...;`.
func (fc *FeatCtx) OS2CodePageRanges(pages []int) {
	if err := fc.host.SetCodePageRanges(pages); err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// OS2TypoMetrics handles the `TypoAscender` family of statements.
func (fc *FeatCtx) OS2TypoMetrics(ascender, descender, lineGap int16) {
	fc.host.TypoAscender = ascender
	fc.host.TypoDescender = descender
	fc.host.TypoLineGap = lineGap
	fc.host.HasTypoMetrics = true
}

// OS2WinMetrics handles `winAscent` / `winDescent`.
func (fc *FeatCtx) OS2WinMetrics(ascent, descent int16) {
	fc.host.WinAscent = ascent
	fc.host.WinDescent = descent
	fc.host.HasWinMetrics = true
}

// OS2WeightClass handles `WeightClass n;`.
func (fc *FeatCtx) OS2WeightClass(weight uint16) {
	fc.host.WeightClass = weight
}

// OS2WidthClass handles `WidthClass n;`.
func (fc *FeatCtx) OS2WidthClass(width uint16) {
	fc.host.WidthClass = width
}

// OS2FSType handles `FSType n;`.
func (fc *FeatCtx) OS2FSType(fsType uint16) {
	fc.host.FSType = fsType
	fc.host.HasFSType = true
}

// OS2Panose handles `Panose a b c d e f g h i j;`.
func (fc *FeatCtx) OS2Panose(panose [10]uint8) {
	fc.host.Panose = panose
	fc.host.HasPanose = true
}

// OS2Vendor handles `Vendor "ABCD";`.
func (fc *FeatCtx) OS2Vendor(vendor string) {
	if err := fc.host.SetVendor(vendor); err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// VmtxVertOriginY handles `VertOriginY glyph n;`.
func (fc *FeatCtx) VmtxVertOriginY(gid ot.GlyphIndex, y int16) {
	if err := fc.host.SetVertOriginY(gid, y); err != nil {
		fc.rep.Errorf("%v", err)
	}
}

// VmtxVertAdvanceY handles `VertAdvanceY glyph n;`.
func (fc *FeatCtx) VmtxVertAdvanceY(gid ot.GlyphIndex, adv int16) {
	if err := fc.host.SetVertAdvanceY(gid, adv); err != nil {
		fc.rep.Errorf("%v", err)
	}
}
