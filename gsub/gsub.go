package gsub

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// SubstRule is one accumulated substitution rule: a target pattern, a
// replacement pattern (may be nil for ignore clauses), and the target
// pattern length used by the ligature sort.
type SubstRule struct {
	Targ   *feat.GPat
	Repl   *feat.GPat
	Length int
}

// CVParameterFormat is the payload of a cvParameters block inside a cv##
// feature.
type CVParameterFormat struct {
	FeatUILabelNameID       uint16
	FeatUITooltipTextNameID uint16
	SampleTextNameID        uint16
	NumNamedParameters      uint16
	FirstParamUILabelNameID uint16
	CharValues              []uint32
}

// Size returns the serialized byte size of the parameter subtable.
func (p *CVParameterFormat) Size() uint32 {
	return 7*2 + 3*uint32(len(p.CharValues))
}

// IsSet returns true if any parameter was recorded.
func (p *CVParameterFormat) IsSet() bool {
	return p.FeatUILabelNameID != 0 || p.FeatUITooltipTextNameID != 0 ||
		p.SampleTextNameID != 0 || p.NumNamedParameters != 0 ||
		p.FirstParamUILabelNameID != 0 || len(p.CharValues) > 0
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

	Rules []SubstRule
	// Singles deduplicates single substitutions: sorted map GID → GID.
	Singles *treemap.Map

	// ParentFeatTag is set for anonymous accumulators only: the feature
	// whose contextual rule spawned them.
	ParentFeatTag ot.Tag

	ParamNameID uint16
	CVParams    CVParameterFormat
	SizeParams  SizeParameterFormat
}

func newSingles() *treemap.Map {
	return treemap.NewWith(utils.UInt16Comparator)
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
	si.Singles = newSingles()
	si.ParamNameID = 0
	si.CVParams = CVParameterFormat{}
	si.SizeParams = SizeParameterFormat{}
}

// NameOracle answers whether a name-table ID has a Windows default record
// (platform 3, script 1, language 0x409). Feature parameters are rejected
// without one.
type NameOracle func(nameID uint16) bool

// GSUB is the glyph-substitution lookup compiler. One instance exists per
// compile session.
type GSUB struct {
	rep *feat.Reporter
	inv feat.GlyphInventory
	otl *otl.Table

	nw SubtableInfo // the accumulator under construction

	anonSubtables []*SubtableInfo
	nextAnonLabel func() ot.Label

	names      NameOracle
	idText     string
	maxContext uint16
}

// New creates a GSUB compiler attached to the given backbone. nextAnon
// allocates anonymous lookup labels (shared with GPOS via the driver);
// names answers Windows-default-name queries for feature parameters.
func New(rep *feat.Reporter, inv feat.GlyphInventory, backbone *otl.Table,
	nextAnon func() ot.Label, names NameOracle) *GSUB {
	g := &GSUB{
		rep:           rep,
		inv:           inv,
		otl:           backbone,
		nextAnonLabel: nextAnon,
		names:         names,
	}
	g.nw.Singles = newSingles()
	return g
}

// Backbone returns the OTL table this compiler registers subtables with.
func (g *GSUB) Backbone() *otl.Table {
	return g.otl
}

// MaxContext returns the longest input+lookahead context seen, for the
// OS/2 usMaxContext field.
func (g *GSUB) MaxContext() uint16 {
	return g.maxContext
}

func (g *GSUB) bumpContext(n int) {
	if uint16(n) > g.maxContext {
		g.maxContext = uint16(n)
	}
}

// SetIDText records the "feature ... lookup ..." prefix used in messages.
func (g *GSUB) SetIDText(idText string) {
	g.idText = idText
}

// FeatureBegin starts a new feature context. It can be called multiple
// times for the same feature.
func (g *GSUB) FeatureBegin(script, language, feature ot.Tag) {
	tracer().Debugf("{ GSUB '%s', '%s', '%s'", script, language, feature)
	g.nw.Script = script
	g.nw.Language = language
	g.nw.Feature = feature
}

// FeatureEnd performs no action but brackets feature calls.
func (g *GSUB) FeatureEnd() {
	tracer().Debugf("} GSUB")
}

// LookupBegin starts a new lookup.
func (g *GSUB) LookupBegin(lkpType ot.LayoutTableLookupType, lkpFlag ot.LayoutTableLookupFlag,
	label ot.Label, useExtension bool, markSetIndex uint16) {
	tracer().Debugf(" { GSUB lkpType=%s lkpFlag=%d label=%#x", lkpType.GSubString(), lkpFlag, label)
	g.nw.Reset(lkpType, lkpFlag, label, useExtension, markSetIndex)
}

// LookupEnd compiles the current accumulator (or si, if non-nil) into
// subtables and registers them with the backbone.
func (g *GSUB) LookupEnd(si *SubtableInfo) error {
	tracer().Debugf(" } GSUB")
	if si == nil {
		si = &g.nw
	}

	// A pure reference only records a placeholder.
	if si.Label.IsRefLab() {
		g.otl.AddSubtable(g.newRecord(si, nil))
		return nil
	}
	if g.rep.HadError() {
		return nil
	}

	var err error
	switch si.LkpType {
	case ot.GSubLookupTypeSingle:
		err = g.fillSingle(si)
	case ot.GSubLookupTypeMultiple:
		err = g.fillMultiple(si)
	case ot.GSubLookupTypeAlternate:
		err = g.fillAlternate(si)
	case ot.GSubLookupTypeLigature:
		err = g.fillLigature(si)
	case ot.GSubLookupTypeChainingContext:
		err = g.fillChain(si)
	case ot.GSubLookupTypeReverseChaining:
		err = g.fillReverse(si)
	case ot.GSubLookupTypeFeatureNameParam:
		err = g.fillFeatureNameParam(si)
	case ot.GSubLookupTypeCVParam:
		err = g.fillCVParam(si)
	case ot.GSubLookupTypeSizeParam:
		err = g.fillSizeParam(si)
	default:
		err = g.rep.Fatalf("unknown GSUB lookup type <%d> in %s", si.LkpType, g.idText)
	}

	// Prevent rules from leaking into a following empty lookup.
	si.Rules = nil
	si.Singles = newSingles()
	return err
}

// newRecord builds the registration record for subtables of si.
func (g *GSUB) newRecord(si *SubtableInfo, sub otl.Subtable) *otl.SubtableRecord {
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

// RuleAdd appends a rule to the current accumulator, enumerating it if the
// lookup kind requires expansion.
func (g *GSUB) RuleAdd(targ, repl *feat.GPat) error {
	if g.rep.HadError() {
		return nil
	}
	return g.addSubstRule(&g.nw, targ, repl)
}

// addSubstRule adds a rule to si, enumerating cross products where the
// OpenType format does not support classes directly.
func (g *GSUB) addSubstRule(si *SubtableInfo, targ, repl *feat.GPat) error {
	if si.LkpType == ot.GSubLookupTypeSingle {
		// Accumulate via the dedup map. If repl is a single glyph it is
		// used for every glyph in targ.
		tcr := &targ.Classes[0]
		rcr := &repl.Classes[0]
		ri := 0
		for _, tg := range tcr.Glyphs {
			rg := rcr.Glyphs[ri]
			if prev, found := si.Singles.Get(uint16(tg.GID)); found {
				if prev.(uint16) == uint16(rg.GID) {
					g.rep.Notef("Removing duplicate single substitution in %s: glyph %d",
						g.idText, tg.GID)
				} else {
					return g.rep.Fatalf("Duplicate target glyph for single substitution in %s: glyph %d",
						g.idText, tg.GID)
				}
			} else {
				si.Singles.Put(uint16(tg.GID), uint16(rg.GID))
			}
			if ri+1 < len(rcr.Glyphs) {
				ri++
			}
		}
		return nil
	}
	if si.LkpType == ot.GSubLookupTypeLigature {
		length := targ.PatternLen()
		multi := false
		for i := range targ.Classes {
			if targ.Classes[i].IsMultiClass() {
				multi = true
				break
			}
		}
		if multi {
			// Enumerate the cross product; the first expansion keeps the
			// original replacement node, clones follow.
			classes := make([]*feat.ClassRec, len(targ.Classes))
			for i := range targ.Classes {
				classes[i] = &targ.Classes[i]
			}
			iter := feat.NewCrossProduct(classes)
			var gids []ot.GlyphIndex
			first := true
			for iter.Next(&gids) {
				pat := &feat.GPat{}
				for _, gid := range gids {
					pat.AddClass(feat.ClassRecFromGlyph(gid))
				}
				r := repl
				if !first {
					r = feat.PatFromGlyph(repl.Classes[0].Glyphs[0].GID)
				}
				first = false
				tracer().Debugf("  > enumerated ligature rule of length %d", length)
				si.Rules = append(si.Rules, SubstRule{Targ: pat, Repl: r, Length: length})
			}
			return nil
		}
		si.Rules = append(si.Rules, SubstRule{Targ: targ, Repl: repl, Length: length})
		return nil
	}
	// Add whole rule intact (no enumeration needed).
	si.Rules = append(si.Rules, SubstRule{Targ: targ, Repl: repl})
	return nil
}

// SubtableBreak honors an explicit `subtable;` statement. GSUB subtables
// break automatically, so this only brackets the statement.
func (g *GSUB) SubtableBreak() bool {
	return true
}

// AddFeatureNameParam records the name ID of a featureNames block.
func (g *GSUB) AddFeatureNameParam(nameID uint16) {
	g.nw.ParamNameID = nameID
}

// AddCVParam moves a cvParameters payload into the accumulator.
func (g *GSUB) AddCVParam(params CVParameterFormat) {
	g.nw.CVParams = params
}

// AddSizeParam records the size-feature payload.
func (g *GSUB) AddSizeParam(params SizeParameterFormat) {
	g.nw.SizeParams = params
}
