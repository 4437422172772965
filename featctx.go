package otfeat

import (
	"fmt"

	"github.com/npillmayer/otfeat/auxtab"
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/gpos"
	"github.com/npillmayer/otfeat/gsub"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Global state flags, set once anywhere in the feature file.
type gFlagValues uint

const (
	seenFeature gFlagValues = 1 << iota
	seenLangSys
	seenGDEFGC
	seenIgnoreClassFlag
	seenMarkClassFlag
	seenNonDFLTScriptLang
)

// Per-feature state flags, reset on every feature block.
type fFlagValues uint

const (
	seenScriptLang fFlagValues = 1 << iota
	langSysMode
)

// state is the authoring context a rule is emitted under.
type state struct {
	script       ot.Tag
	language     ot.Tag
	feature      ot.Tag
	tbl          ot.Tag // GSUB or GPOS
	lkpType      ot.LayoutTableLookupType
	lkpFlag      ot.LayoutTableLookupFlag
	markSetIndex uint16
	label        ot.Label
}

func newState() state {
	return state{
		script:   ot.TagUndef,
		language: ot.TagUndef,
		feature:  ot.TagUndef,
		tbl:      ot.TagUndef,
		label:    ot.LabelUndef,
	}
}

func (st *state) equals(other *state) bool {
	return *st == *other
}

// langSys is one script/language pair from a `languagesystem` statement.
type langSys struct {
	script, lang ot.Tag
}

// namedLkp tracks a `lookup NAME { ... } NAME;` definition.
type namedLkp struct {
	name         string
	state        state
	useExtension bool
	isTopLevel   bool
}

// FeatCtx is the feature-file driver: the visitor the external parser
// calls, one method per statement. It owns the per-compile session state.
type FeatCtx struct {
	rep *feat.Reporter
	inv feat.GlyphInventory
	reg *feat.Registry

	gsub *gsub.GSUB
	gpos *gpos.GPOS
	gdef *auxtab.GDEF
	base *auxtab.BASE
	stat *auxtab.STAT
	name *auxtab.Name
	host *auxtab.HostOverrides

	gFlags gFlagValues
	fFlags fFlagValues

	curr, prev state

	langSysList []langSys
	langSysSeen map[langSys]bool
	includeDFLT bool
	seenOldDFLT bool

	// Lookups authored under the current script with language dflt; they
	// replay as references when a non-default language is activated.
	dfltLkps []state
	// Real lookups of the current feature, for languagesystem replay.
	featureLkps []state

	namedLkps          []namedLkp
	currNamedLkp       ot.Label
	endOfNamedLkpOrRef bool
	anonLabelCnt       ot.Label

	seenFeatTags map[ot.Tag]bool
	seenTblTags  map[ot.Tag]bool

	featNameID   uint16
	sawSTAT      bool
	sawFeatNames bool
	cv           cvAccum

	// prevClosed is the state of the most recently closed lookup; named
	// lookup definitions capture it for later references.
	prevClosed state

	aalt aaltState

	finished bool
}

// New creates a driver for one compile session.
func New(rep *feat.Reporter, inv feat.GlyphInventory) *FeatCtx {
	fc := &FeatCtx{
		rep:          rep,
		inv:          inv,
		reg:          feat.NewRegistry(),
		curr:         newState(),
		prev:         newState(),
		langSysSeen:  make(map[langSys]bool),
		includeDFLT:  true,
		currNamedLkp: ot.LabelUndef,
		anonLabelCnt: ot.AnonLabelBeg,
		seenFeatTags: make(map[ot.Tag]bool),
		seenTblTags:  make(map[ot.Tag]bool),
	}
	fc.gdef = auxtab.NewGDEF(rep)
	fc.base = auxtab.NewBASE(rep)
	fc.stat = auxtab.NewSTAT(rep)
	fc.name = auxtab.NewName(rep)
	fc.host = auxtab.NewHostOverrides()
	fc.gsub = gsub.New(rep, inv, otl.New(ot.TagGSUB, rep), fc.nextAnonLabel, fc.name.HasWindowsDefault)
	fc.gpos = gpos.New(rep, otl.New(ot.TagGPOS, rep), fc.nextAnonLabel)
	fc.aalt.init()
	return fc
}

// Reporter returns the session's diagnostics reporter.
func (fc *FeatCtx) Reporter() *feat.Reporter {
	return fc.rep
}

// Registry returns the session's named-object registry.
func (fc *FeatCtx) Registry() *feat.Registry {
	return fc.reg
}

// SetPos forwards the source position of the statement about to be
// processed; diagnostics carry it.
func (fc *FeatCtx) SetPos(pos feat.SourcePos) {
	fc.rep.SetPos(pos)
}

// msgPrefix describes the current authoring position for messages.
func (fc *FeatCtx) msgPrefix() string {
	if fc.curr.feature == ot.TagUndef {
		return "in top-level statement"
	}
	if fc.curr.feature == ot.TagStandAlone {
		return "in stand-alone lookup"
	}
	return fmt.Sprintf("feature '%s'", fc.curr.feature)
}

// idText mirrors the prefix into the lookup compilers' messages.
func (fc *FeatCtx) pushIDText() {
	id := fc.msgPrefix()
	if fc.currNamedLkp != ot.LabelUndef {
		if nl := fc.lab2NamedLkp(fc.currNamedLkp); nl != nil {
			id += fmt.Sprintf(" lookup '%s'", nl.name)
		}
	}
	fc.gsub.SetIDText(id)
	fc.gpos.SetIDText(id)
}

// --- Labels ----------------------------------------------------------------

// nextAnonLabel allocates the next anonymous lookup label. The allocator is
// shared by the GSUB and GPOS compilers.
func (fc *FeatCtx) nextAnonLabel() ot.Label {
	if fc.anonLabelCnt > ot.AnonLabelEnd {
		fc.rep.Errorf("too many anonymous lookups")
		return ot.LabelUndef
	}
	label := fc.anonLabelCnt
	fc.anonLabelCnt++
	return label
}

func (fc *FeatCtx) name2NamedLkp(name string) *namedLkp {
	for i := range fc.namedLkps {
		if fc.namedLkps[i].name == name {
			return &fc.namedLkps[i]
		}
	}
	return nil
}

func (fc *FeatCtx) lab2NamedLkp(label ot.Label) *namedLkp {
	base := label.Base()
	if !base.IsNamedLab() || int(base) >= len(fc.namedLkps) {
		return nil
	}
	return &fc.namedLkps[base]
}

// getNextNamedLkpLabel registers a named lookup and returns its label.
// Labels are assigned in authoring order.
func (fc *FeatCtx) getNextNamedLkpLabel(name string, isTopLevel bool) ot.Label {
	if len(fc.namedLkps) > int(ot.NamedLabelEnd) {
		fc.rep.Errorf("too many named lookups")
		return ot.LabelUndef
	}
	fc.namedLkps = append(fc.namedLkps, namedLkp{name: name, isTopLevel: isTopLevel})
	return ot.Label(len(fc.namedLkps) - 1)
}

// LabelOfLookup resolves a lookup name to its label, for inline `lookup
// NAME` references in patterns. The reference survives label resolution in
// the backbone.
func (fc *FeatCtx) LabelOfLookup(name string) (ot.Label, error) {
	nl := fc.name2NamedLkp(name)
	if nl == nil {
		return ot.LabelUndef, fmt.Errorf("lookup name \"%s\" not defined", name)
	}
	return ot.Label(fc.labelIndexOf(nl)), nil
}

func (fc *FeatCtx) labelIndexOf(nl *namedLkp) int {
	for i := range fc.namedLkps {
		if &fc.namedLkps[i] == nl {
			return i
		}
	}
	return int(ot.LabelUndef)
}

// --- Glyph resolution ------------------------------------------------------

// GID resolves a glyph name against the inventory, reporting unknown
// glyphs as errors.
func (fc *FeatCtx) GID(gname string, allowNotdef bool) ot.GlyphIndex {
	gid, err := fc.inv.GIDOfName(gname, allowNotdef)
	if err != nil {
		fc.rep.Errorf("glyph \"%s\" not in font (%s)", gname, fc.msgPrefix())
		return ot.GIDUndef
	}
	return gid
}

// CID resolves a CID against the inventory.
func (fc *FeatCtx) CID(cid uint32) ot.GlyphIndex {
	gid, err := fc.inv.GIDOfCID(cid)
	if err != nil {
		fc.rep.Errorf("CID %d not in font (%s)", cid, fc.msgPrefix())
		return ot.GIDUndef
	}
	return gid
}

// ExpandRange expands a glyph range `first-last` into a ClassRec,
// reporting failures.
func (fc *FeatCtx) ExpandRange(firstName, lastName string) feat.ClassRec {
	gids, err := feat.ExpandRange(fc.inv, firstName, lastName)
	if err != nil {
		fc.rep.Errorf("%v (%s)", err, fc.msgPrefix())
		return feat.ClassRec{}
	}
	var cr feat.ClassRec
	for _, gid := range gids {
		cr.Glyphs = append(cr.Glyphs, feat.GlyphRec{GID: gid})
	}
	return cr
}

// fixOldDFLT corrects the old feature-file dialect that wrote `DFLT` where
// a language tag belongs; the corrected tag is `dflt`. The warning is
// reported once per file.
func (fc *FeatCtx) fixOldDFLT(tag ot.Tag) ot.Tag {
	if tag != ot.DFLT {
		return tag
	}
	if !fc.seenOldDFLT {
		fc.seenOldDFLT = true
		fc.rep.Warnf("'DFLT' is not a valid language tag; replaced by 'dflt' (%s)", fc.msgPrefix())
	}
	return ot.DfltLang()
}
