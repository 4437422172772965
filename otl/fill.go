package otl

import (
	"sort"

	"github.com/npillmayer/otfeat/ot"
)

// The fill pass runs after all lookups have been compiled. It groups
// subtable records into lookups, assembles the script / feature lists in
// canonical order, resolves lookup labels into LookupList indices, and
// assigns final byte offsets to every structure. Offsets that cannot fit
// into 16 bits flip the owning lookup to extension wrapping and the layout
// is recomputed.

// langSysKey identifies one (script, language, feature) combination.
type langSysKey struct {
	script, language, feature ot.Tag
}

// featureBox is one FeatureTable of the FeatureList.
type featureBox struct {
	key        langSysKey
	lookupInxs []uint16
	paramRec   *SubtableRecord // feature-parameter payload, if any
	order      int             // authoring order tie-breaker

	offset   uint32 // absolute offset of the FeatureTable
	paramOff uint32 // absolute offset of the parameter subtable
}

type tableLayout struct {
	headerSize    uint32
	scriptListOff uint32
	scriptListSz  uint32
	featListOff   uint32
	featListSz    uint32
	featParamOff  uint32
	featParamSz   uint32
	lookupListOff uint32
	lookupListSz  uint32
	subAreaOff    uint32
	coverageOff   uint32
	classOff      uint32
	extOff        uint32
	total         uint32

	covOffsets map[CoverageID]uint32 // within coverage section
	clsOffsets map[ClassID]uint32    // within class section

	features []*featureBox
	scripts  []scriptBox
}

type scriptBox struct {
	tag    ot.Tag
	langs  []langBox
	offset uint32
}

type langBox struct {
	tag      ot.Tag
	featInxs []uint16
	offset   uint32
}

// Fill runs the layout pass. It must be called exactly once, after the last
// subtable has been registered. On return, lookup labels resolve through
// LookupIndexOf and Write will produce the final bytes.
func (t *Table) Fill() error {
	t.groupLookups()
	if err := t.resolveLookupRecords(); err != nil {
		return err
	}
	t.buildFeatures()

	// Layout, flipping overflowing lookups to extension wrapping and
	// retrying. Each retry moves at least one lookup's subtables behind a
	// 32-bit offset, so the loop terminates.
	for attempt := 0; ; attempt++ {
		overflowed := t.computeLayout()
		if len(overflowed) == 0 {
			break
		}
		if attempt > len(t.lookups) {
			return t.rep.Fatalf("%s layout cannot resolve offset overflows", t.TableTag)
		}
		for _, lkp := range overflowed {
			t.rep.Notef("%s lookup with label %#x exceeds 16-bit offsets; wrapping subtables in extension records",
				t.TableTag, lkp.label)
			lkp.useExtension = true
			for _, rec := range lkp.records {
				rec.UseExtension = true
			}
		}
	}
	return nil
}

// groupLookups partitions the subtable records into lookups by label.
// References and feature-parameter records do not form lookups.
func (t *Table) groupLookups() {
	t.labelToLkp = make(map[ot.Label]int)
	for _, rec := range t.records {
		if rec.Label.IsRefLab() || rec.IsFeatParam {
			rec.lookupInx = -1
			continue
		}
		inx, ok := t.labelToLkp[rec.Label.Base()]
		if !ok {
			inx = len(t.lookups)
			t.lookups = append(t.lookups, &lookupBox{
				lookupType:   rec.LookupType,
				lookupFlag:   rec.LookupFlag,
				markSetIndex: rec.MarkSetIndex,
				label:        rec.Label.Base(),
				useExtension: rec.UseExtension,
			})
			t.labelToLkp[rec.Label.Base()] = inx
		}
		box := t.lookups[inx]
		box.records = append(box.records, rec)
		rec.lookupInx = inx
	}
	tracer().Debugf("%s has %d lookups in %d subtable records", t.TableTag, len(t.lookups), len(t.records))
}

// resolveLookupRecords rewrites the labels held by contextual subtables
// into LookupList indices. A label referenced but never defined is fatal.
func (t *Table) resolveLookupRecords() error {
	for _, rec := range t.records {
		carrier, ok := rec.Sub.(LookupRecordCarrier)
		if !ok {
			continue
		}
		for _, slr := range carrier.LookupRecords() {
			inx, ok := t.LookupIndexOf(slr.Label)
			if !ok {
				return t.rep.Fatalf("lookup with label %#x referenced in a contextual rule of %s was never defined",
					slr.Label, t.TableTag)
			}
			slr.Label = ot.Label(inx) // resolved in place; Write emits it verbatim
		}
	}
	return nil
}

// buildFeatures assembles the feature boxes and script graph in canonical
// order: scripts ascending by tag, languages ascending with dflt first,
// feature records sorted by tag with authoring order breaking ties.
func (t *Table) buildFeatures() {
	boxes := make(map[langSysKey]*featureBox)
	order := 0
	add := func(key langSysKey) *featureBox {
		box, ok := boxes[key]
		if !ok {
			box = &featureBox{key: key, order: order}
			order++
			boxes[key] = box
		}
		return box
	}
	for _, rec := range t.records {
		if rec.Script == ot.TagUndef || rec.Feature == ot.TagUndef ||
			rec.Script == ot.TagStandAlone {
			continue // anonymous or stand-alone: LookupList only
		}
		key := langSysKey{rec.Script, rec.Language, rec.Feature}
		box := add(key)
		if rec.IsFeatParam {
			box.paramRec = rec
			continue
		}
		inx := rec.lookupInx
		if rec.Label.IsRefLab() {
			li, ok := t.labelToLkp[rec.Label.Base()]
			if !ok {
				// reported by the stand-alone check during resolution
				continue
			}
			inx = li
			t.lookups[li].used = true
		} else if inx >= 0 {
			t.lookups[inx].used = true
		}
		if inx >= 0 && !containsU16(box.lookupInxs, uint16(inx)) {
			box.lookupInxs = append(box.lookupInxs, uint16(inx))
		}
	}

	features := make([]*featureBox, 0, len(boxes))
	for _, box := range boxes {
		features = append(features, box)
	}
	sort.SliceStable(features, func(i, j int) bool {
		if features[i].key.feature != features[j].key.feature {
			return features[i].key.feature < features[j].key.feature
		}
		return features[i].order < features[j].order
	})
	t.layout.features = features

	// script graph
	scriptMap := make(map[ot.Tag]map[ot.Tag][]uint16)
	for finx, box := range features {
		langs, ok := scriptMap[box.key.script]
		if !ok {
			langs = make(map[ot.Tag][]uint16)
			scriptMap[box.key.script] = langs
		}
		langs[box.key.language] = append(langs[box.key.language], uint16(finx))
	}
	scripts := make([]scriptBox, 0, len(scriptMap))
	for stag, langs := range scriptMap {
		sb := scriptBox{tag: stag}
		for ltag, featInxs := range langs {
			sb.langs = append(sb.langs, langBox{tag: ltag, featInxs: featInxs})
		}
		sort.Slice(sb.langs, func(i, j int) bool {
			di, dj := sb.langs[i].tag == ot.DfltLang(), sb.langs[j].tag == ot.DfltLang()
			if di != dj {
				return di
			}
			return sb.langs[i].tag < sb.langs[j].tag
		})
		scripts = append(scripts, sb)
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].tag < scripts[j].tag })
	t.layout.scripts = scripts
}

func containsU16(xs []uint16, x uint16) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// computeLayout assigns offsets to every structure and returns the lookups
// whose subtable or coverage offsets overflow 16 bits (empty on success).
func (t *Table) computeLayout() []*lookupBox {
	ly := &t.layout
	ly.headerSize = 10

	ly.scriptListOff = ly.headerSize
	ly.scriptListSz = t.scriptListSize()
	ly.featListOff = ly.scriptListOff + ly.scriptListSz
	ly.featListSz = t.featureListSize()
	ly.featParamOff = ly.featListOff + ly.featListSz
	ly.featParamSz = 0
	for _, box := range ly.features {
		if box.paramRec != nil {
			box.paramOff = ly.featParamOff + ly.featParamSz
			ly.featParamSz += box.paramRec.Sub.Size()
		}
	}
	ly.lookupListOff = ly.featParamOff + ly.featParamSz
	ly.lookupListSz = t.lookupListSize()
	ly.subAreaOff = ly.lookupListOff + ly.lookupListSz

	// main subtable area
	off := ly.subAreaOff
	for _, lkp := range t.lookups {
		lkp.offset = 0
	}
	for _, rec := range t.records {
		if rec.Label.IsRefLab() || rec.IsFeatParam {
			continue
		}
		rec.offset = off
		if rec.UseExtension {
			off += extensionRecordSize
		} else {
			off += rec.Sub.Size()
		}
	}

	// shared coverage and class sections
	ly.coverageOff = off
	ly.covOffsets = make(map[CoverageID]uint32)
	covSz := uint32(0)
	for _, rec := range t.records {
		if rec.Label.IsRefLab() || rec.IsFeatParam || rec.UseExtension {
			continue
		}
		for _, cid := range rec.Sub.Coverages() {
			if cid == CoverageUndef {
				continue
			}
			if _, ok := ly.covOffsets[cid]; !ok {
				ly.covOffsets[cid] = covSz
				covSz += t.Coverage.Size(cid)
			}
		}
	}
	ly.classOff = ly.coverageOff + covSz
	ly.clsOffsets = make(map[ClassID]uint32)
	clsSz := uint32(0)
	for _, rec := range t.records {
		if rec.Label.IsRefLab() || rec.IsFeatParam || rec.UseExtension {
			continue
		}
		for _, cid := range rec.Sub.Classes() {
			if cid == ClassUndef {
				continue
			}
			if _, ok := ly.clsOffsets[cid]; !ok {
				ly.clsOffsets[cid] = clsSz
				clsSz += t.ClassDef.Size(cid)
			}
		}
	}

	// extension section: each wrapped body followed by its own coverage and
	// class tables
	ly.extOff = ly.classOff + clsSz
	extOff := ly.extOff
	for _, rec := range t.records {
		if rec.Label.IsRefLab() || rec.IsFeatParam || !rec.UseExtension {
			continue
		}
		rec.bodyOff = extOff
		extOff += rec.Sub.Size()
		seenCov := make(map[CoverageID]bool)
		for _, cid := range rec.Sub.Coverages() {
			if cid != CoverageUndef && !seenCov[cid] {
				seenCov[cid] = true
				extOff += t.Coverage.Size(cid)
			}
		}
		seenCls := make(map[ClassID]bool)
		for _, cid := range rec.Sub.Classes() {
			if cid != ClassUndef && !seenCls[cid] {
				seenCls[cid] = true
				extOff += t.ClassDef.Size(cid)
			}
		}
	}
	ly.total = extOff

	// lookup table offsets and overflow detection
	var overflowed []*lookupBox
	lkpOff := ly.lookupListOff + 2 + 2*uint32(len(t.lookups))
	for _, lkp := range t.lookups {
		lkp.offset = lkpOff
		lkpOff += lookupTableSize(lkp)
		if lkp.useExtension {
			continue
		}
		bad := false
		for _, rec := range lkp.records {
			if rec.offset-lkp.offset > 0xFFFF {
				bad = true
				break
			}
			for _, cid := range rec.Sub.Coverages() {
				if cid == CoverageUndef {
					continue
				}
				if ly.coverageOff+ly.covOffsets[cid]-rec.offset > 0xFFFF {
					bad = true
					break
				}
			}
			for _, cid := range rec.Sub.Classes() {
				if cid == ClassUndef {
					continue
				}
				if ly.classOff+ly.clsOffsets[cid]-rec.offset > 0xFFFF {
					bad = true
					break
				}
			}
		}
		if bad {
			overflowed = append(overflowed, lkp)
		}
	}
	return overflowed
}

const extensionRecordSize = 8 // format, wrapped type, 32-bit offset

func lookupTableSize(lkp *lookupBox) uint32 {
	sz := uint32(6 + 2*len(lkp.records))
	if lkp.lookupFlag&ot.LOOKUP_FLAG_USE_MARK_FILTERING_SET != 0 {
		sz += 2
	}
	return sz
}

func (t *Table) scriptListSize() uint32 {
	sz := uint32(2) // scriptCount
	for _, sb := range t.layout.scripts {
		sz += 6 // ScriptRecord
		sz += 4 // Script table header (defaultLangSysOffset, langSysCount)
		for _, lb := range sb.langs {
			if lb.tag != ot.DfltLang() {
				sz += 6 // LangSysRecord
			}
			sz += uint32(6 + 2*len(lb.featInxs)) // LangSys table
		}
	}
	return sz
}

func (t *Table) featureListSize() uint32 {
	sz := uint32(2) // featureCount
	for _, box := range t.layout.features {
		sz += 6                                   // FeatureRecord
		sz += uint32(4 + 2*len(box.lookupInxs))   // FeatureTable
	}
	return sz
}

func (t *Table) lookupListSize() uint32 {
	sz := uint32(2 + 2*len(t.lookups))
	for _, lkp := range t.lookups {
		sz += lookupTableSize(lkp)
	}
	return sz
}

// MaxLookupIndex returns the number of lookups; useful for diagnostics.
func (t *Table) MaxLookupIndex() int {
	return len(t.lookups)
}

// CheckStandAloneRefs verifies that every parked stand-alone lookup was
// actually referenced from somewhere. Unreferenced stand-alone lookups
// survive in the LookupList but indicate an authoring mistake.
func (t *Table) CheckStandAloneRefs() {
	for _, lkp := range t.lookups {
		if lkp.used {
			continue
		}
		if len(lkp.records) > 0 && lkp.records[0].Script == ot.TagStandAlone {
			t.rep.Warnf("stand-alone lookup with label %#x is never referenced", lkp.label)
		}
	}
}
