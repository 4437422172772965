package otfeat

import (
	"sort"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
)

// The aalt meta-feature aggregates "access all alternates": it folds the
// single and alternate substitutions of the features it references into
// one lookup. While the aalt block compiles, referenced feature tags are
// recorded and direct rules deferred; the fold runs after all other
// features have compiled.

var aaltTag = ot.T("aalt")

// aaltFeatureRecord is one `feature XXX;` reference inside the aalt block.
type aaltFeatureRecord struct {
	feature ot.Tag
	used    bool
}

// aaltGlyphInfo is one alternative glyph for a target, with its origin.
type aaltGlyphInfo struct {
	rgid    ot.GlyphIndex
	feature ot.Tag // contributing feature; aaltTag for direct rules
	seq     int    // authoring sequence within the contributing feature
}

type aaltState struct {
	active       bool
	useExtension bool
	features     []aaltFeatureRecord
	// rules maps target GID (as uint16) to *[]aaltGlyphInfo, sorted by GID.
	rules *treemap.Map
	seq   int
}

func (a *aaltState) init() {
	a.rules = treemap.NewWith(utils.UInt16Comparator)
}

// AaltAddFeature handles a `feature XXX;` statement inside the aalt block.
func (fc *FeatCtx) AaltAddFeature(tag ot.Tag) {
	if !fc.aalt.active {
		fc.rep.Errorf("feature references are only allowed in the 'aalt' feature (%s)", fc.msgPrefix())
		return
	}
	if tag == aaltTag {
		fc.rep.Errorf("feature 'aalt' cannot reference itself")
		return
	}
	for _, rec := range fc.aalt.features {
		if rec.feature == tag {
			fc.rep.Warnf("feature '%s' is referenced more than once in 'aalt'", tag)
			return
		}
	}
	fc.aalt.features = append(fc.aalt.features, aaltFeatureRecord{feature: tag})
}

// aaltStoreRuleInfo records a single or alternate substitution for the
// fold. Rules are recorded for every feature; the fold filters by the
// referenced tags.
func (fc *FeatCtx) aaltStoreRuleInfo(targ, repl *feat.GPat) {
	feature := fc.curr.feature
	if fc.aalt.active {
		feature = aaltTag
	}
	if feature == ot.TagUndef || feature == ot.TagStandAlone {
		return
	}
	tcr, rcr := &targ.Classes[0], &repl.Classes[0]
	ri := 0
	for _, tg := range tcr.Glyphs {
		fc.aalt.seq++
		var alts []ot.GlyphIndex
		if rcr.IsMultiClass() && tcr.IsGlyph() {
			// alternate rule: all replacements belong to the one target
			for _, rg := range rcr.Glyphs {
				alts = append(alts, rg.GID)
			}
		} else {
			alts = append(alts, rcr.Glyphs[ri].GID)
			if ri+1 < len(rcr.Glyphs) {
				ri++
			}
		}
		key := uint16(tg.GID)
		var infos *[]aaltGlyphInfo
		if v, ok := fc.aalt.rules.Get(key); ok {
			infos = v.(*[]aaltGlyphInfo)
		} else {
			infos = &[]aaltGlyphInfo{}
			fc.aalt.rules.Put(key, infos)
		}
		for _, alt := range alts {
			*infos = append(*infos, aaltGlyphInfo{rgid: alt, feature: feature, seq: fc.aalt.seq})
		}
	}
}

// aaltCreate runs the fold: alternatives are merged per target glyph,
// ordered by the position of their contributing feature in the aalt block
// (direct rules first), deduplicated, and compiled into a Single lookup if
// every target maps to exactly one glyph, an Alternate lookup otherwise.
func (fc *FeatCtx) aaltCreate() error {
	if len(fc.aalt.features) == 0 && fc.aalt.rules.Size() == 0 {
		return nil
	}
	indexOf := func(tag ot.Tag) (int, bool) {
		if tag == aaltTag {
			return -1, true
		}
		for i := range fc.aalt.features {
			if fc.aalt.features[i].feature == tag {
				return i, true
			}
		}
		return 0, false
	}

	type aaltRule struct {
		targ ot.GlyphIndex
		alts []ot.GlyphIndex
	}
	var rules []aaltRule
	it := fc.aalt.rules.Iterator()
	for it.Next() {
		targ := ot.GlyphIndex(it.Key().(uint16))
		infos := *(it.Value().(*[]aaltGlyphInfo))
		type cand struct {
			aaltGlyphInfo
			index int
		}
		var cands []cand
		for _, info := range infos {
			inx, referenced := indexOf(info.feature)
			if !referenced {
				continue
			}
			if info.feature != aaltTag {
				fc.aalt.features[inx].used = true
			}
			cands = append(cands, cand{aaltGlyphInfo: info, index: inx})
		}
		if len(cands) == 0 {
			continue
		}
		sort.SliceStable(cands, func(i, j int) bool {
			if cands[i].index != cands[j].index {
				return cands[i].index < cands[j].index
			}
			return cands[i].seq < cands[j].seq
		})
		rule := aaltRule{targ: targ}
		seen := make(map[ot.GlyphIndex]bool)
		for _, c := range cands {
			if seen[c.rgid] {
				continue
			}
			seen[c.rgid] = true
			rule.alts = append(rule.alts, c.rgid)
		}
		rules = append(rules, rule)
	}

	fc.reportUnusedAaltTags()
	if len(rules) == 0 {
		return nil
	}

	single := true
	for i := range rules {
		if len(rules[i].alts) != 1 {
			single = false
			break
		}
	}
	kind := ot.GSubLookupTypeAlternate
	if single {
		kind = ot.GSubLookupTypeSingle
	}
	tracer().Infof("folding 'aalt' into a %s lookup with %d targets", kind.GSubString(), len(rules))

	fc.curr = newState()
	fc.curr.script = ot.DFLT
	fc.curr.language = ot.DfltLang()
	fc.curr.feature = aaltTag
	fc.prev = newState()
	fc.fFlags = 0
	if len(fc.langSysList) > 0 {
		fc.fFlags |= langSysMode
	}
	fc.dfltLkps = fc.dfltLkps[:0]
	fc.featureLkps = fc.featureLkps[:0]
	fc.pushIDText()

	for i := range rules {
		rule := &rules[i]
		targ := feat.PatFromGlyph(rule.targ)
		var repl *feat.GPat
		if single {
			repl = feat.PatFromGlyph(rule.alts[0])
		} else {
			var cr feat.ClassRec
			cr.GClass = true
			for _, alt := range rule.alts {
				cr.Glyphs = append(cr.Glyphs, feat.GlyphRec{GID: alt})
			}
			repl = feat.PatFromClass(cr)
		}
		if err := fc.prepRule(ot.TagGSUB, kind, targ, repl); err != nil {
			return err
		}
		if err := fc.gsub.RuleAdd(targ, repl); err != nil {
			return err
		}
	}
	if err := fc.closeCurrentLookup(); err != nil {
		return err
	}
	if err := fc.registerFeatureLangSys(); err != nil {
		return err
	}
	fc.curr = newState()
	fc.prev = newState()
	return nil
}

// reportUnusedAaltTags warns about referenced features that contributed no
// alternates.
func (fc *FeatCtx) reportUnusedAaltTags() {
	for _, rec := range fc.aalt.features {
		if !rec.used {
			fc.rep.Warnf("feature '%s' referenced in 'aalt' contributed no substitution rules",
				rec.feature)
		}
	}
}
