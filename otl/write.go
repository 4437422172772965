package otl

import (
	"fmt"

	"github.com/npillmayer/otfeat/ot"
)

// Write serializes the table into its final byte-exact form. Fill must have
// run before.
func (t *Table) Write() ([]byte, error) {
	ly := &t.layout
	w := ot.NewWriter(int(ly.total))

	// header, version 1.0
	w.U32(0x00010000)
	w.U16(uint16(ly.scriptListOff))
	w.U16(uint16(ly.featListOff))
	w.U16(uint16(ly.lookupListOff))

	t.writeScriptList(w)
	t.writeFeatureList(w)
	t.writeFeatParams(w)
	t.writeLookupList(w)

	// main subtable area
	for _, rec := range t.records {
		if rec.Label.IsRefLab() || rec.IsFeatParam {
			continue
		}
		if uint32(w.Pos()) != rec.offset {
			return nil, fmt.Errorf("internal: %s subtable layout mismatch at %#x (expected %#x)",
				t.TableTag, w.Pos(), rec.offset)
		}
		if rec.UseExtension {
			extType := ot.GSubLookupTypeExtensionSubs
			if t.TableTag == ot.TagGPOS {
				extType = ot.GPosLookupTypeExtensionPos
			}
			tracer().Debugf("%s extension record: fmt=1, lkpType=%d, offset=%#x",
				t.TableTag, extType, rec.bodyOff-rec.offset)
			w.U16(1)
			w.U16(uint16(rec.LookupType))
			w.U32(rec.bodyOff - rec.offset)
			continue
		}
		rec.Sub.Write(w, &sharedRefs{t: t, rec: rec})
	}

	// shared coverage and class sections
	covWritten := make(map[CoverageID]bool)
	for _, rec := range t.records {
		if rec.Label.IsRefLab() || rec.IsFeatParam || rec.UseExtension {
			continue
		}
		for _, cid := range rec.Sub.Coverages() {
			if cid == CoverageUndef || covWritten[cid] {
				continue
			}
			covWritten[cid] = true
			if uint32(w.Pos()) != ly.coverageOff+ly.covOffsets[cid] {
				return nil, fmt.Errorf("internal: %s coverage layout mismatch", t.TableTag)
			}
			writeCoverage(w, t.Coverage.Glyphs(cid))
		}
	}
	clsWritten := make(map[ClassID]bool)
	for _, rec := range t.records {
		if rec.Label.IsRefLab() || rec.IsFeatParam || rec.UseExtension {
			continue
		}
		for _, cid := range rec.Sub.Classes() {
			if cid == ClassUndef || clsWritten[cid] {
				continue
			}
			clsWritten[cid] = true
			writeClassDef(w, t.ClassDef.defs[cid].assign)
		}
	}

	// extension section: each wrapped body immediately followed by its own
	// coverage and class tables
	for _, rec := range t.records {
		if rec.Label.IsRefLab() || rec.IsFeatParam || !rec.UseExtension {
			continue
		}
		if uint32(w.Pos()) != rec.bodyOff {
			return nil, fmt.Errorf("internal: %s extension body layout mismatch", t.TableTag)
		}
		refs := newExtensionRefs(t, rec)
		rec.Sub.Write(w, refs)
		refs.writeLocalTables(w)
	}
	return w.Bytes(), nil
}

func (t *Table) writeScriptList(w *ot.Writer) {
	ly := &t.layout
	base := uint32(w.Pos())
	w.U16(uint16(len(ly.scripts)))
	// Script tables follow the record array back-to-back.
	off := uint32(2 + 6*len(ly.scripts))
	for i := range ly.scripts {
		sb := &ly.scripts[i]
		sb.offset = off
		w.Tag(sb.tag)
		w.U16(uint16(off))
		off += 4
		for _, lb := range sb.langs {
			if lb.tag != ot.DfltLang() {
				off += 6
			}
			off += uint32(6 + 2*len(lb.featInxs))
		}
	}
	for i := range ly.scripts {
		sb := &ly.scripts[i]
		// LangSys tables follow the Script table; layout dflt first, which
		// buildFeatures has sorted to the front.
		lsOff := uint32(4)
		nNamed := 0
		for _, lb := range sb.langs {
			if lb.tag != ot.DfltLang() {
				nNamed++
			}
		}
		lsOff += uint32(6 * nNamed)
		dfltOff := uint32(0)
		offs := make([]uint32, len(sb.langs))
		for j, lb := range sb.langs {
			offs[j] = lsOff
			if lb.tag == ot.DfltLang() {
				dfltOff = lsOff
			}
			lsOff += uint32(6 + 2*len(lb.featInxs))
		}
		w.U16(uint16(dfltOff))
		w.U16(uint16(nNamed))
		for j, lb := range sb.langs {
			if lb.tag == ot.DfltLang() {
				continue
			}
			w.Tag(lb.tag)
			w.U16(uint16(offs[j]))
		}
		for _, lb := range sb.langs {
			w.U16(0)      // lookupOrderOffset, reserved
			w.U16(0xFFFF) // requiredFeatureIndex: none
			w.U16(uint16(len(lb.featInxs)))
			for _, fi := range lb.featInxs {
				w.U16(fi)
			}
		}
	}
	if uint32(w.Pos())-base != ly.scriptListSz {
		tracer().Errorf("script list size mismatch: %d != %d", uint32(w.Pos())-base, ly.scriptListSz)
	}
}

func (t *Table) writeFeatureList(w *ot.Writer) {
	ly := &t.layout
	base := uint32(w.Pos())
	w.U16(uint16(len(ly.features)))
	off := uint32(2 + 6*len(ly.features))
	for _, box := range ly.features {
		box.offset = base + off
		w.Tag(box.key.feature)
		w.U16(uint16(off))
		off += uint32(4 + 2*len(box.lookupInxs))
	}
	for _, box := range ly.features {
		if box.paramRec != nil {
			w.U16(uint16(box.paramOff - box.offset))
		} else {
			w.U16(0)
		}
		w.U16(uint16(len(box.lookupInxs)))
		for _, li := range box.lookupInxs {
			w.U16(li)
		}
	}
}

func (t *Table) writeFeatParams(w *ot.Writer) {
	for _, box := range t.layout.features {
		if box.paramRec == nil {
			continue
		}
		box.paramRec.Sub.Write(w, &sharedRefs{t: t, rec: box.paramRec})
	}
}

func (t *Table) writeLookupList(w *ot.Writer) {
	ly := &t.layout
	w.U16(uint16(len(t.lookups)))
	for _, lkp := range t.lookups {
		w.U16(uint16(lkp.offset - ly.lookupListOff))
	}
	for _, lkp := range t.lookups {
		ltype := lkp.lookupType
		if lkp.useExtension {
			if t.TableTag == ot.TagGPOS {
				ltype = ot.GPosLookupTypeExtensionPos
			} else {
				ltype = ot.GSubLookupTypeExtensionSubs
			}
		}
		w.U16(uint16(ltype))
		w.U16(uint16(lkp.lookupFlag))
		w.U16(uint16(len(lkp.records)))
		for _, rec := range lkp.records {
			w.U16(uint16(rec.offset - lkp.offset))
		}
		if lkp.lookupFlag&ot.LOOKUP_FLAG_USE_MARK_FILTERING_SET != 0 {
			w.U16(lkp.markSetIndex)
		}
	}
}

// sharedRefs resolves coverage/class IDs against the shared sections for a
// non-extension subtable.
type sharedRefs struct {
	t   *Table
	rec *SubtableRecord
}

func (r *sharedRefs) CoverageOffset(id CoverageID) uint16 {
	ly := &r.t.layout
	return uint16(ly.coverageOff + ly.covOffsets[id] - r.rec.offset)
}

func (r *sharedRefs) ClassOffset(id ClassID) uint16 {
	ly := &r.t.layout
	return uint16(ly.classOff + ly.clsOffsets[id] - r.rec.offset)
}

func (r *sharedRefs) LookupIndex(label ot.Label) uint16 {
	// resolveLookupRecords has rewritten labels to indices already
	return uint16(label)
}

// extensionRefs lays the subtable's coverage and class tables directly after
// its body and resolves offsets against that local area.
type extensionRefs struct {
	t       *Table
	rec     *SubtableRecord
	covOffs map[CoverageID]uint32 // relative to body start
	clsOffs map[ClassID]uint32
	covs    []CoverageID // in first-use order
	classes []ClassID
}

func newExtensionRefs(t *Table, rec *SubtableRecord) *extensionRefs {
	r := &extensionRefs{
		t:       t,
		rec:     rec,
		covOffs: make(map[CoverageID]uint32),
		clsOffs: make(map[ClassID]uint32),
	}
	off := rec.Sub.Size()
	for _, cid := range rec.Sub.Coverages() {
		if cid == CoverageUndef {
			continue
		}
		if _, ok := r.covOffs[cid]; !ok {
			r.covOffs[cid] = off
			r.covs = append(r.covs, cid)
			off += t.Coverage.Size(cid)
		}
	}
	for _, cid := range rec.Sub.Classes() {
		if cid == ClassUndef {
			continue
		}
		if _, ok := r.clsOffs[cid]; !ok {
			r.clsOffs[cid] = off
			r.classes = append(r.classes, cid)
			off += t.ClassDef.Size(cid)
		}
	}
	return r
}

func (r *extensionRefs) CoverageOffset(id CoverageID) uint16 {
	return uint16(r.covOffs[id])
}

func (r *extensionRefs) ClassOffset(id ClassID) uint16 {
	return uint16(r.clsOffs[id])
}

func (r *extensionRefs) LookupIndex(label ot.Label) uint16 {
	return uint16(label)
}

func (r *extensionRefs) writeLocalTables(w *ot.Writer) {
	for _, cid := range r.covs {
		writeCoverage(w, r.t.Coverage.Glyphs(cid))
	}
	for _, cid := range r.classes {
		writeClassDef(w, r.t.ClassDef.defs[cid].assign)
	}
}
