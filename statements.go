package otfeat

import (
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/gsub"
	"github.com/npillmayer/otfeat/ot"
)

// The statement-stream API. The external parser calls one method per
// feature-file statement, in textual order. Errors returned are fatal;
// recoverable problems are reported through the session reporter and the
// walk continues.

// --- languagesystem --------------------------------------------------------

// AddLanguageSystem handles a top-level `languagesystem S L;` statement.
func (fc *FeatCtx) AddLanguageSystem(script, lang ot.Tag) {
	if fc.gFlags&seenFeature != 0 {
		fc.rep.Errorf("languagesystem must be specified before any feature block")
		return
	}
	lang = fc.fixOldDFLT(lang)
	if fc.gFlags&seenLangSys == 0 && (script != ot.DFLT || lang != ot.DfltLang()) {
		fc.rep.Warnf("the first languagesystem statement should be 'languagesystem DFLT dflt'")
	}
	ls := langSys{script: script, lang: lang}
	if fc.langSysSeen[ls] {
		fc.rep.Warnf("duplicate languagesystem statement '%s' '%s'", script, lang)
		return
	}
	fc.gFlags |= seenLangSys
	if script != ot.DFLT || lang != ot.DfltLang() {
		fc.gFlags |= seenNonDFLTScriptLang
	}
	fc.langSysSeen[ls] = true
	fc.langSysList = append(fc.langSysList, ls)
}

// --- feature blocks --------------------------------------------------------

// StartFeature handles `feature FOO {`. A feature tag may occur in several
// blocks; later blocks resume the feature.
func (fc *FeatCtx) StartFeature(tag ot.Tag) {
	if !tag.IsValid() {
		fc.rep.Errorf("feature tag '%s' contains invalid characters", tag)
	}
	if fc.seenFeatTags[tag] {
		tracer().Debugf("resuming feature '%s'", tag)
	}
	fc.seenFeatTags[tag] = true
	fc.gFlags |= seenFeature

	fc.curr = newState()
	fc.curr.script = ot.DFLT
	fc.curr.language = ot.DfltLang()
	fc.curr.feature = tag
	fc.fFlags = 0
	if len(fc.langSysList) > 0 {
		fc.fFlags |= langSysMode
	}
	fc.dfltLkps = fc.dfltLkps[:0]
	fc.featureLkps = fc.featureLkps[:0]
	fc.includeDFLT = true

	if tag == aaltTag {
		fc.aalt.active = true
	}
	fc.pushIDText()
}

// EndFeature handles `} FOO;`, closing any open lookup and replaying the
// feature's lookups into every declared languagesystem.
func (fc *FeatCtx) EndFeature(tag ot.Tag) error {
	if tag != fc.curr.feature {
		return fc.rep.Fatalf("feature block started with '%s' but ended with '%s'",
			fc.curr.feature, tag)
	}
	if fc.currNamedLkp != ot.LabelUndef {
		fc.rep.Errorf("lookup block is not closed at end of feature '%s'", tag)
		fc.currNamedLkp = ot.LabelUndef
	}
	if err := fc.closeCurrentLookup(); err != nil {
		return err
	}
	if fc.curr.feature == aaltTag {
		fc.aalt.active = false
	} else if err := fc.registerFeatureLangSys(); err != nil {
		return err
	}
	fc.curr = newState()
	fc.prev = newState()
	return nil
}

// registerFeatureLangSys replays the feature's lookups as references into
// every languagesystem declared at the top of the file. It applies only
// when the feature had no explicit script or language statement.
func (fc *FeatCtx) registerFeatureLangSys() error {
	if fc.fFlags&langSysMode == 0 || fc.fFlags&seenScriptLang != 0 {
		return nil
	}
	for _, ls := range fc.langSysList {
		if ls.script == ot.DFLT && ls.lang == ot.DfltLang() {
			continue // rules are registered there already
		}
		for _, st := range fc.featureLkps {
			ref := st
			ref.script = ls.script
			ref.language = ls.lang
			if err := fc.callLkp(&ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- script and language ---------------------------------------------------

// Script handles a `script S;` statement inside a feature.
func (fc *FeatCtx) Script(script ot.Tag) error {
	if fc.curr.feature == ot.TagUndef || fc.curr.feature == ot.TagStandAlone {
		fc.rep.Errorf("script statement is not allowed outside feature blocks")
		return nil
	}
	if err := fc.closeCurrentLookup(); err != nil {
		return err
	}
	fc.fFlags |= seenScriptLang
	if script != ot.DFLT {
		fc.gFlags |= seenNonDFLTScriptLang
	}
	fc.curr.script = script
	fc.curr.language = ot.DfltLang()
	fc.includeDFLT = true
	fc.dfltLkps = fc.dfltLkps[:0]
	fc.pushIDText()
	return nil
}

// Language handles a `language L [exclude_dflt|include_dflt];` statement.
// Unless excluded, the lookups authored under the current script's default
// language replay as references into (script, L).
func (fc *FeatCtx) Language(lang ot.Tag, excludeDflt bool) error {
	if fc.curr.feature == ot.TagUndef || fc.curr.feature == ot.TagStandAlone {
		fc.rep.Errorf("language statement is not allowed outside feature blocks")
		return nil
	}
	lang = fc.fixOldDFLT(lang)
	if err := fc.closeCurrentLookup(); err != nil {
		return err
	}
	fc.fFlags |= seenScriptLang
	if lang != ot.DfltLang() {
		fc.gFlags |= seenNonDFLTScriptLang
	}
	fc.includeDFLT = !excludeDflt
	fc.curr.language = lang
	if !excludeDflt && lang != ot.DfltLang() {
		for i := range fc.dfltLkps {
			ref := fc.dfltLkps[i]
			ref.language = lang
			if err := fc.callLkp(&ref); err != nil {
				return err
			}
		}
	}
	fc.pushIDText()
	return nil
}

// --- lookup blocks and references ------------------------------------------

// StartLookup handles `lookup NAME [useExtension] {`. Top-level lookup
// blocks are stand-alone: they are parked under the stand-alone tag and
// only serialized into the LookupList.
func (fc *FeatCtx) StartLookup(name string, isTopLevel, useExtension bool) error {
	if fc.name2NamedLkp(name) != nil {
		fc.rep.Errorf("lookup name \"%s\" is already defined", name)
		return nil
	}
	if err := fc.closeCurrentLookup(); err != nil {
		return err
	}
	if isTopLevel {
		fc.curr = newState()
		fc.curr.script = ot.TagStandAlone
		fc.curr.language = ot.TagStandAlone
		fc.curr.feature = ot.TagStandAlone
	}
	fc.currNamedLkp = fc.getNextNamedLkpLabel(name, isTopLevel)
	if nl := fc.lab2NamedLkp(fc.currNamedLkp); nl != nil {
		nl.useExtension = useExtension
	}
	fc.pushIDText()
	return nil
}

// EndLookup handles `} NAME;`. The start and end labels must match.
func (fc *FeatCtx) EndLookup(name string) error {
	nl := fc.lab2NamedLkp(fc.currNamedLkp)
	if nl == nil || nl.name != name {
		have := "<none>"
		if nl != nil {
			have = nl.name
		}
		return fc.rep.Fatalf("lookup block started with label '%s' but ended with '%s'", have, name)
	}
	if err := fc.closeCurrentLookup(); err != nil {
		return err
	}
	if fc.prevClosed.label != fc.currNamedLkp {
		fc.rep.Warnf("lookup block \"%s\" contains no rules", name)
	}
	nl.state = fc.prevClosed
	fc.currNamedLkp = ot.LabelUndef
	fc.endOfNamedLkpOrRef = true
	if nl.isTopLevel {
		fc.curr = newState()
	}
	fc.pushIDText()
	return nil
}

// UseLookup handles a `lookup NAME;` reference inside a feature: the named
// lookup's subtables are shared under the current context through a
// reference record.
func (fc *FeatCtx) UseLookup(name string) error {
	nl := fc.name2NamedLkp(name)
	if nl == nil {
		fc.rep.Errorf("lookup name \"%s\" not defined (%s)", name, fc.msgPrefix())
		return nil
	}
	if err := fc.closeCurrentLookup(); err != nil {
		return err
	}
	ref := nl.state
	ref.script = fc.curr.script
	ref.language = fc.curr.language
	ref.feature = fc.curr.feature
	if err := fc.callLkp(&ref); err != nil {
		return err
	}
	// Referenced lookups take part in languagesystem and DFLT replay like
	// directly authored ones.
	fc.noteFeatureLkp(ref)
	if ref.language == ot.DfltLang() {
		fc.dfltLkps = append(fc.dfltLkps, ref)
	}
	fc.endOfNamedLkpOrRef = true
	return nil
}

// callLkp emits a reference record for the lookup described by st, under
// st's script/language/feature.
func (fc *FeatCtx) callLkp(st *state) error {
	label := st.label.AsRef()
	switch st.tbl {
	case ot.TagGSUB:
		fc.gsub.FeatureBegin(st.script, st.language, st.feature)
		fc.gsub.LookupBegin(st.lkpType, st.lkpFlag, label, false, st.markSetIndex)
		if err := fc.gsub.LookupEnd(nil); err != nil {
			return err
		}
		fc.gsub.FeatureEnd()
	case ot.TagGPOS:
		fc.gpos.FeatureBegin(st.script, st.language, st.feature)
		fc.gpos.LookupBegin(st.lkpType, st.lkpFlag, label, false, st.markSetIndex)
		if err := fc.gpos.LookupEnd(nil); err != nil {
			return err
		}
		fc.gpos.FeatureEnd()
	}
	return nil
}

// FlagExtension handles a stand-alone `useExtension` statement, which is
// only meaningful inside the aalt feature; lookups carry the keyword on
// their block header instead.
func (fc *FeatCtx) FlagExtension() {
	if fc.curr.feature == aaltTag {
		fc.aalt.useExtension = true
		return
	}
	fc.rep.Errorf("useExtension on a feature is only supported for 'aalt' (%s)", fc.msgPrefix())
}

// --- lookupflag ------------------------------------------------------------

// LookupFlagAttr names one component of a `lookupflag` statement.
type LookupFlagAttr int

const (
	FlagRightToLeft LookupFlagAttr = iota
	FlagIgnoreBaseGlyphs
	FlagIgnoreLigatures
	FlagIgnoreMarks
	FlagMarkAttachmentType  // takes a glyph class
	FlagUseMarkFilteringSet // takes a glyph class
)

// SetLookupFlag handles the numeric `lookupflag N;` form. It closes no
// lookup by itself; the next rule under a changed flag starts one.
func (fc *FeatCtx) SetLookupFlag(value uint16) error {
	return fc.applyLookupFlag(ot.LayoutTableLookupFlag(value), 0)
}

// SetLookupFlagAttrs handles the symbolic `lookupflag A B ...;` form.
// Attrs carrying a glyph class pass it in classOf.
func (fc *FeatCtx) SetLookupFlagAttrs(attrs []LookupFlagAttr, classOf map[LookupFlagAttr]*feat.ClassRec) error {
	var flag ot.LayoutTableLookupFlag
	markSetIndex := fc.curr.markSetIndex
	for _, attr := range attrs {
		switch attr {
		case FlagRightToLeft:
			flag |= ot.LOOKUP_FLAG_RIGHT_TO_LEFT
		case FlagIgnoreBaseGlyphs:
			flag |= ot.LOOKUP_FLAG_IGNORE_BASE_GLYPHS
		case FlagIgnoreLigatures:
			flag |= ot.LOOKUP_FLAG_IGNORE_LIGATURES
		case FlagIgnoreMarks:
			flag |= ot.LOOKUP_FLAG_IGNORE_MARKS
		case FlagMarkAttachmentType:
			cr := classOf[FlagMarkAttachmentType]
			if cr == nil {
				fc.rep.Errorf("MarkAttachmentType requires a glyph class (%s)", fc.msgPrefix())
				continue
			}
			inx, err := fc.gdef.AddAttachClass(classGlyphs(cr))
			if err != nil {
				fc.rep.Errorf("%v (%s)", err, fc.msgPrefix())
				continue
			}
			flag |= ot.LayoutTableLookupFlag(inx << 8)
		case FlagUseMarkFilteringSet:
			cr := classOf[FlagUseMarkFilteringSet]
			if cr == nil {
				fc.rep.Errorf("UseMarkFilteringSet requires a glyph class (%s)", fc.msgPrefix())
				continue
			}
			markSetIndex = fc.gdef.AddMarkSet(classGlyphs(cr))
			flag |= ot.LOOKUP_FLAG_USE_MARK_FILTERING_SET
		}
	}
	return fc.applyLookupFlag(flag, markSetIndex)
}

func (fc *FeatCtx) applyLookupFlag(flag ot.LayoutTableLookupFlag, markSetIndex uint16) error {
	if flag&(ot.LOOKUP_FLAG_IGNORE_BASE_GLYPHS|ot.LOOKUP_FLAG_IGNORE_LIGATURES|
		ot.LOOKUP_FLAG_IGNORE_MARKS) != 0 {
		fc.gFlags |= seenIgnoreClassFlag
	}
	fc.curr.lkpFlag = flag
	if flag&ot.LOOKUP_FLAG_USE_MARK_FILTERING_SET != 0 {
		fc.curr.markSetIndex = markSetIndex
	} else {
		fc.curr.markSetIndex = 0
	}
	return nil
}

func classGlyphs(cr *feat.ClassRec) []ot.GlyphIndex {
	gids := make([]ot.GlyphIndex, len(cr.Glyphs))
	for i, gr := range cr.Glyphs {
		gids[i] = gr.GID
	}
	return gids
}

// SubtableBreak handles a `subtable;` statement.
func (fc *FeatCtx) SubtableBreak() {
	ok := false
	switch fc.curr.tbl {
	case ot.TagGSUB:
		ok = fc.gsub.SubtableBreak()
	case ot.TagGPOS:
		ok = fc.gpos.SubtableBreak()
	}
	if !ok {
		fc.rep.Warnf("subtable statement has no effect here (%s)", fc.msgPrefix())
	}
}

// --- named objects ---------------------------------------------------------

// GlyphClassAssign handles `@NAME = [...];`.
func (fc *FeatCtx) GlyphClassAssign(name string, cr feat.ClassRec) {
	fc.reg.DefineGlyphClass(name, cr)
}

// GlyphClass resolves `@NAME` in a pattern.
func (fc *FeatCtx) GlyphClass(name string) (feat.ClassRec, bool) {
	if cr, ok := fc.reg.GlyphClass(name); ok {
		return cr.Copy(), true
	}
	if mc, ok := fc.reg.MarkClassRef(name); ok {
		return mc.Rec.Copy(), true
	}
	fc.rep.Errorf("glyph class @%s not defined (%s)", name, fc.msgPrefix())
	return feat.ClassRec{}, false
}

// AnchorDef handles `anchorDef x y [contourpoint n] NAME;`.
func (fc *FeatCtx) AnchorDef(name string, a feat.AnchorDef) {
	if err := fc.reg.DefineAnchor(name, a); err != nil {
		fc.rep.Errorf("%v (%s)", err, fc.msgPrefix())
	}
}

// Anchor resolves a named anchor reference.
func (fc *FeatCtx) Anchor(name string) (feat.AnchorDef, bool) {
	a, ok := fc.reg.Anchor(name)
	if !ok {
		fc.rep.Errorf("anchor \"%s\" not defined (%s)", name, fc.msgPrefix())
	}
	return a, ok
}

// ValueRecordDef handles `valueRecordDef <...> NAME;`.
func (fc *FeatCtx) ValueRecordDef(name string, metrics []int16) {
	if err := fc.reg.DefineValueRecord(name, feat.MetricsInfo{Metrics: metrics}); err != nil {
		fc.rep.Errorf("%v (%s)", err, fc.msgPrefix())
	}
}

// ValueRecord resolves a named value record reference.
func (fc *FeatCtx) ValueRecord(name string) (feat.MetricsInfo, bool) {
	mi, ok := fc.reg.ValueRecord(name)
	if !ok {
		fc.rep.Errorf("value record \"%s\" not defined (%s)", name, fc.msgPrefix())
	}
	return mi, ok
}

// MarkClassStatement handles `markClass [glyphs] <anchor ...> @MC;`. Every
// glyph of the statement carries the given anchor.
func (fc *FeatCtx) MarkClassStatement(name string, cr feat.ClassRec, anchor feat.AnchorMarkInfo) {
	fc.gFlags |= seenMarkClassFlag
	glyphs := make([]feat.GlyphRec, len(cr.Glyphs))
	for i, gr := range cr.Glyphs {
		glyphs[i] = feat.GlyphRec{GID: gr.GID, Anchor: anchor}
	}
	if err := fc.reg.AddMarkClassGlyphs(name, glyphs); err != nil {
		fc.rep.Errorf("cannot add glyphs to mark class @%s: %v (%s)", name, err, fc.msgPrefix())
	}
}

// --- feature parameters ----------------------------------------------------

// StartFeatureNames handles `featureNames {`. The block's strings share
// one name ID.
func (fc *FeatCtx) StartFeatureNames() {
	fc.sawFeatNames = true
	fc.featNameID = fc.name.NextUserNameID()
}

// AddFeatureNameString records one string of a featureNames block.
func (fc *FeatCtx) AddFeatureNameString(platformID, encodingID, languageID int, s string) {
	fc.name.AddRow(platformID, encodingID, languageID, fc.featNameID, s)
}

// EndFeatureNames handles `}`, emitting the feature-parameter subtable.
func (fc *FeatCtx) EndFeatureNames() error {
	if err := fc.prepRule(ot.TagGSUB, ot.GSubLookupTypeFeatureNameParam, nil, nil); err != nil {
		return err
	}
	fc.gsub.AddFeatureNameParam(fc.featNameID)
	return nil
}

// SizeParameters handles the `parameters` statement of the `size` feature.
// The design size and range are given in decipoints.
func (fc *FeatCtx) SizeParameters(designSize, subfamilyID, rangeStart, rangeEnd uint16) error {
	if fc.curr.feature != ot.T("size") {
		fc.rep.Errorf("size parameters are only allowed in the 'size' feature (%s)", fc.msgPrefix())
		return nil
	}
	if err := fc.prepRule(ot.TagGSUB, ot.GSubLookupTypeSizeParam, nil, nil); err != nil {
		return err
	}
	fc.gsub.AddSizeParam(gsub.SizeParameterFormat{
		DesignSize:      designSize,
		SubfamilyID:     subfamilyID,
		SubfamilyNameID: fc.featNameID,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	return nil
}

// SizeMenuName records a `sizemenuname` string of the `size` feature.
func (fc *FeatCtx) SizeMenuName(platformID, encodingID, languageID int, s string) {
	if fc.curr.feature != ot.T("size") {
		fc.rep.Errorf("sizemenuname is only allowed in the 'size' feature (%s)", fc.msgPrefix())
		return
	}
	if fc.featNameID == 0 {
		fc.featNameID = fc.name.NextUserNameID()
	}
	fc.name.AddRow(platformID, encodingID, languageID, fc.featNameID, s)
}

// CVParamKind selects which cvParameters name-ID slot a nested name block
// fills.
type CVParamKind int

const (
	CVUILabel CVParamKind = iota
	CVToolTip
	CVSampleText
	CVParamLabel
)

// cvAccum is the cvParameters block under construction.
type cvAccum struct {
	params    gsub.CVParameterFormat
	curNameID uint16
}

// StartCVParameters handles `cvParameters {`.
func (fc *FeatCtx) StartCVParameters() {
	fc.cv = cvAccum{}
}

// StartCVNameBlock opens one of the nested name blocks of cvParameters.
func (fc *FeatCtx) StartCVNameBlock(kind CVParamKind) {
	fc.cv.curNameID = fc.name.NextUserNameID()
	switch kind {
	case CVUILabel:
		fc.cv.params.FeatUILabelNameID = fc.cv.curNameID
	case CVToolTip:
		fc.cv.params.FeatUITooltipTextNameID = fc.cv.curNameID
	case CVSampleText:
		fc.cv.params.SampleTextNameID = fc.cv.curNameID
	case CVParamLabel:
		if fc.cv.params.FirstParamUILabelNameID == 0 {
			fc.cv.params.FirstParamUILabelNameID = fc.cv.curNameID
		}
		fc.cv.params.NumNamedParameters++
	}
}

// AddCVNameString records one string of the open cvParameters name block.
func (fc *FeatCtx) AddCVNameString(platformID, encodingID, languageID int, s string) {
	fc.name.AddRow(platformID, encodingID, languageID, fc.cv.curNameID, s)
}

// AddCVParameterCharValue records one `Character uv;` entry.
func (fc *FeatCtx) AddCVParameterCharValue(uv uint32) {
	if uv > 0xFFFFFF {
		fc.rep.Errorf("cvParameters character value %#x is out of range (%s)", uv, fc.msgPrefix())
		return
	}
	fc.cv.params.CharValues = append(fc.cv.params.CharValues, uv)
}

// EndCVParameters handles `}`, emitting the cvParameters subtable.
func (fc *FeatCtx) EndCVParameters() error {
	if err := fc.prepRule(ot.TagGSUB, ot.GSubLookupTypeCVParam, nil, nil); err != nil {
		return err
	}
	fc.gsub.AddCVParam(fc.cv.params)
	fc.cv = cvAccum{}
	return nil
}
