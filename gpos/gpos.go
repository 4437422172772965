package gpos

import (
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// PosRule is one accumulated positioning rule. The pattern's ClassRecs
// carry their value records and role bits; anchor-based kinds additionally
// carry the anchors collected by the driver.
type PosRule struct {
	Targ    *feat.GPat
	Anchors []feat.AnchorMarkInfo
}

// MarkClassEntry is one mark class participating in a mark attachment
// lookup, in the order classes were first referenced (this order defines
// the mark class indices of the subtable).
type MarkClassEntry struct {
	Name string
	Rec  feat.ClassRec
}

// SubtableInfo is the transient accumulator the driver fills between
// LookupBegin and LookupEnd.
type SubtableInfo struct {
	Script, Language, Feature ot.Tag
	LkpType                   ot.LayoutTableLookupType
	LkpFlag                   ot.LayoutTableLookupFlag
	MarkSetIndex              uint16
	Label                     ot.Label
	UseExtension              bool

	Rules       []PosRule
	MarkClasses []MarkClassEntry

	ParentFeatTag ot.Tag
}

// Reset prepares the accumulator for a new lookup.
func (si *SubtableInfo) Reset(lkpType ot.LayoutTableLookupType, lkpFlag ot.LayoutTableLookupFlag,
	label ot.Label, useExtension bool, markSetIndex uint16) {
	si.LkpType = lkpType
	si.LkpFlag = lkpFlag
	si.MarkSetIndex = markSetIndex
	si.Label = label
	si.UseExtension = useExtension
	si.Rules = nil
	si.MarkClasses = nil
}

// MarkClassIndex returns the index of the named mark class within this
// lookup, registering it on first use.
func (si *SubtableInfo) MarkClassIndex(name string, rec feat.ClassRec) int {
	for i := range si.MarkClasses {
		if si.MarkClasses[i].Name == name {
			return i
		}
	}
	si.MarkClasses = append(si.MarkClasses, MarkClassEntry{Name: name, Rec: rec})
	return len(si.MarkClasses) - 1
}

// GPOS is the glyph-positioning lookup compiler. One instance exists per
// compile session.
type GPOS struct {
	rep *feat.Reporter
	otl *otl.Table

	nw SubtableInfo

	anonSubtables []*SubtableInfo
	nextAnonLabel func() ot.Label

	idText     string
	maxContext uint16
}

// New creates a GPOS compiler attached to the given backbone.
func New(rep *feat.Reporter, backbone *otl.Table, nextAnon func() ot.Label) *GPOS {
	return &GPOS{
		rep:           rep,
		otl:           backbone,
		nextAnonLabel: nextAnon,
	}
}

// Backbone returns the OTL table this compiler registers subtables with.
func (g *GPOS) Backbone() *otl.Table {
	return g.otl
}

// MaxContext returns the longest input+lookahead context seen.
func (g *GPOS) MaxContext() uint16 {
	return g.maxContext
}

func (g *GPOS) bumpContext(n int) {
	if uint16(n) > g.maxContext {
		g.maxContext = uint16(n)
	}
}

// SetIDText records the "feature ... lookup ..." prefix used in messages.
func (g *GPOS) SetIDText(idText string) {
	g.idText = idText
}

// FeatureBegin starts a new feature context.
func (g *GPOS) FeatureBegin(script, language, feature ot.Tag) {
	tracer().Debugf("{ GPOS '%s', '%s', '%s'", script, language, feature)
	g.nw.Script = script
	g.nw.Language = language
	g.nw.Feature = feature
}

// FeatureEnd performs no action but brackets feature calls.
func (g *GPOS) FeatureEnd() {
	tracer().Debugf("} GPOS")
}

// LookupBegin starts a new lookup.
func (g *GPOS) LookupBegin(lkpType ot.LayoutTableLookupType, lkpFlag ot.LayoutTableLookupFlag,
	label ot.Label, useExtension bool, markSetIndex uint16) {
	tracer().Debugf(" { GPOS lkpType=%s lkpFlag=%d label=%#x", lkpType.GPosString(), lkpFlag, label)
	g.nw.Reset(lkpType, lkpFlag, label, useExtension, markSetIndex)
}

// RuleAdd appends a rule to the current accumulator.
func (g *GPOS) RuleAdd(rule PosRule) {
	if g.rep.HadError() {
		return
	}
	g.nw.Rules = append(g.nw.Rules, rule)
}

// Accum exposes the current accumulator; the driver uses it for mark-class
// index assignment while collecting anchors.
func (g *GPOS) Accum() *SubtableInfo {
	return &g.nw
}

// LookupEnd compiles the current accumulator (or si, if non-nil) into
// subtables and registers them with the backbone.
func (g *GPOS) LookupEnd(si *SubtableInfo) error {
	tracer().Debugf(" } GPOS")
	if si == nil {
		si = &g.nw
	}
	if si.Label.IsRefLab() {
		g.otl.AddSubtable(g.newRecord(si, nil))
		return nil
	}
	if g.rep.HadError() {
		return nil
	}

	var err error
	switch si.LkpType {
	case ot.GPosLookupTypeSingle:
		err = g.fillSingle(si)
	case ot.GPosLookupTypePair:
		err = g.fillPair(si)
	case ot.GPosLookupTypeCursive:
		err = g.fillCursive(si)
	case ot.GPosLookupTypeMarkToBase:
		err = g.fillMarkToBase(si, false)
	case ot.GPosLookupTypeMarkToLigature:
		err = g.fillMarkToLigature(si)
	case ot.GPosLookupTypeMarkToMark:
		err = g.fillMarkToBase(si, true)
	case ot.GPosLookupTypeContextPos, ot.GPosLookupTypeChainedContextPos:
		err = g.fillChain(si)
	default:
		err = g.rep.Fatalf("unknown GPOS lookup type <%d> in %s", si.LkpType, g.idText)
	}
	si.Rules = nil
	si.MarkClasses = nil
	return err
}

// newRecord builds the registration record for subtables of si.
func (g *GPOS) newRecord(si *SubtableInfo, sub otl.Subtable) *otl.SubtableRecord {
	return &otl.SubtableRecord{
		Script:       si.Script,
		Language:     si.Language,
		Feature:      si.Feature,
		LookupType:   si.LkpType,
		LookupFlag:   si.LkpFlag,
		MarkSetIndex: si.MarkSetIndex,
		Label:        si.Label,
		UseExtension: si.UseExtension && !si.Label.IsRefLab(),
		Sub:          sub,
	}
}

// SubtableBreak accepts an explicit `subtable;` statement and reports it as
// handled. It records no break: the current lookup is not split, and pair
// positioning chooses its format from the rules alone.
func (g *GPOS) SubtableBreak() bool {
	return true
}
