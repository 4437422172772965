package gpos

import (
	"sort"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Anchor-based attachment lookups: cursive (type 3), mark-to-base (4),
// mark-to-ligature (5), and mark-to-mark (6). Anchor tables are stored
// inside the subtable body; identical anchors share storage.

// anchorPool lays out the anchor tables of one subtable, deduplicating
// identical anchors. Offsets are relative to a base chosen by the caller.
type anchorPool struct {
	anchors []feat.AnchorMarkInfo
	offsets []uint32
	size    uint32
}

// add registers an anchor and returns its index in the pool, or -1 for a
// null anchor.
func (p *anchorPool) add(a feat.AnchorMarkInfo) int {
	if a.IsNull() {
		return -1
	}
	for i := range p.anchors {
		if p.anchors[i].Equal(a) {
			return i
		}
	}
	p.anchors = append(p.anchors, a)
	p.offsets = append(p.offsets, p.size)
	p.size += anchorSize(a)
	return len(p.anchors) - 1
}

// offset returns the offset of pool index i relative to base, or 0 for -1.
func (p *anchorPool) offset(i int, base uint32) uint16 {
	if i < 0 {
		return 0
	}
	return uint16(base + p.offsets[i])
}

func (p *anchorPool) write(w *ot.Writer) {
	for i := range p.anchors {
		writeAnchor(w, p.anchors[i])
	}
}

// --- Cursive attachment ----------------------------------------------------

type entryExit struct {
	gid         ot.GlyphIndex
	entry, exit int // pool indices
}

type cursivePos struct {
	coverage otl.CoverageID
	records  []entryExit
	pool     anchorPool
}

func (s *cursivePos) headerSize() uint32 {
	return uint32(6 + 4*len(s.records))
}

func (s *cursivePos) Size() uint32 {
	return s.headerSize() + s.pool.size
}

func (s *cursivePos) Write(w *ot.Writer, refs otl.Refs) {
	base := s.headerSize()
	w.U16(1)
	w.U16(refs.CoverageOffset(s.coverage))
	w.U16(uint16(len(s.records)))
	for i := range s.records {
		w.U16(s.pool.offset(s.records[i].entry, base))
		w.U16(s.pool.offset(s.records[i].exit, base))
	}
	s.pool.write(w)
}

func (s *cursivePos) Coverages() []otl.CoverageID { return []otl.CoverageID{s.coverage} }
func (s *cursivePos) Classes() []otl.ClassID      { return nil }

// fillCursive compiles cursive attachment rules. Each rule carries the
// entry and exit anchors for all glyphs of its class.
func (g *GPOS) fillCursive(si *SubtableInfo) error {
	sub := &cursivePos{}
	type rec struct {
		entry, exit feat.AnchorMarkInfo
	}
	byGID := make(map[ot.GlyphIndex]rec)
	var order []ot.GlyphIndex
	for i := range si.Rules {
		rule := &si.Rules[i]
		if len(rule.Anchors) != 2 {
			g.rep.Errorf("cursive positioning in %s requires an entry and an exit anchor", g.idText)
			continue
		}
		for _, gr := range rule.Targ.Classes[0].Glyphs {
			if _, dup := byGID[gr.GID]; dup {
				g.rep.Warnf("Duplicate cursive attachment for glyph %d in %s; keeping the first",
					gr.GID, g.idText)
				continue
			}
			byGID[gr.GID] = rec{entry: rule.Anchors[0], exit: rule.Anchors[1]}
			order = append(order, gr.GID)
		}
	}
	if len(order) == 0 {
		return nil
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	g.otl.Coverage.Begin()
	for _, gid := range order {
		g.otl.Coverage.AddGlyph(gid)
		r := byGID[gid]
		sub.records = append(sub.records, entryExit{
			gid:   gid,
			entry: sub.pool.add(r.entry),
			exit:  sub.pool.add(r.exit),
		})
	}
	sub.coverage = g.otl.Coverage.End()
	g.bumpContext(2)
	g.otl.AddSubtable(g.newRecord(si, sub))
	return nil
}

// --- Mark attachment -------------------------------------------------------

// markArray is the MarkArray shared by the mark attachment kinds: one
// record per covered mark glyph, in coverage (GID) order.
type markArray struct {
	classes []uint16 // mark class per glyph
	anchors []int    // pool index per glyph
}

func (ma *markArray) size() uint32 {
	return uint32(2 + 4*len(ma.classes))
}

// buildMarkSide assembles the mark coverage, MarkArray, and the anchors of
// the participating mark classes.
func (g *GPOS) buildMarkSide(si *SubtableInfo, pool *anchorPool) (otl.CoverageID, markArray) {
	type markRec struct {
		class  uint16
		anchor feat.AnchorMarkInfo
	}
	byGID := make(map[ot.GlyphIndex]markRec)
	for clsInx := range si.MarkClasses {
		mc := &si.MarkClasses[clsInx]
		for _, gr := range mc.Rec.Glyphs {
			if prev, dup := byGID[gr.GID]; dup {
				if prev.class != uint16(clsInx) {
					g.rep.Errorf("Glyph %d occurs in more than one mark class of a lookup in %s",
						gr.GID, g.idText)
				}
				continue
			}
			byGID[gr.GID] = markRec{class: uint16(clsInx), anchor: gr.Anchor}
		}
	}
	gids := make([]ot.GlyphIndex, 0, len(byGID))
	for gid := range byGID {
		gids = append(gids, gid)
	}
	sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })

	g.otl.Coverage.Begin()
	var ma markArray
	for _, gid := range gids {
		g.otl.Coverage.AddGlyph(gid)
		r := byGID[gid]
		ma.classes = append(ma.classes, r.class)
		ma.anchors = append(ma.anchors, pool.add(r.anchor))
	}
	return g.otl.Coverage.End(), ma
}

type markBasePos struct {
	markCoverage otl.CoverageID
	baseCoverage otl.CoverageID
	classCount   uint16
	marks        markArray
	bases        [][]int // per base glyph: pool index per mark class, -1 for null
	pool         anchorPool
	markToMark   bool
}

func (s *markBasePos) markArrayOff() uint32 { return 12 }

func (s *markBasePos) baseArrayOff() uint32 {
	return s.markArrayOff() + s.marks.size()
}

func (s *markBasePos) baseArraySize() uint32 {
	return uint32(2 + 2*len(s.bases)*int(s.classCount))
}

func (s *markBasePos) poolBase() uint32 {
	return s.baseArrayOff() + s.baseArraySize()
}

func (s *markBasePos) Size() uint32 {
	return s.poolBase() + s.pool.size
}

func (s *markBasePos) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(1)
	w.U16(refs.CoverageOffset(s.markCoverage))
	w.U16(refs.CoverageOffset(s.baseCoverage))
	w.U16(s.classCount)
	w.U16(uint16(s.markArrayOff()))
	w.U16(uint16(s.baseArrayOff()))

	// MarkArray; anchor offsets are relative to the MarkArray start
	w.U16(uint16(len(s.marks.classes)))
	for i := range s.marks.classes {
		w.U16(s.marks.classes[i])
		w.U16(s.pool.offset(s.marks.anchors[i], s.poolBase()-s.markArrayOff()))
	}

	// BaseArray; anchor offsets are relative to the BaseArray start
	w.U16(uint16(len(s.bases)))
	for _, base := range s.bases {
		for _, ai := range base {
			w.U16(s.pool.offset(ai, s.poolBase()-s.baseArrayOff()))
		}
	}
	s.pool.write(w)
}

func (s *markBasePos) Coverages() []otl.CoverageID {
	return []otl.CoverageID{s.markCoverage, s.baseCoverage}
}

func (s *markBasePos) Classes() []otl.ClassID { return nil }

// fillMarkToBase compiles mark-to-base (and, with markToMark set,
// mark-to-mark) attachment.
func (g *GPOS) fillMarkToBase(si *SubtableInfo, markToMark bool) error {
	if len(si.Rules) == 0 {
		return nil
	}
	sub := &markBasePos{
		classCount: uint16(len(si.MarkClasses)),
		markToMark: markToMark,
	}
	sub.markCoverage, sub.marks = g.buildMarkSide(si, &sub.pool)

	type baseRec struct {
		anchors []int
	}
	byGID := make(map[ot.GlyphIndex]baseRec)
	var order []ot.GlyphIndex
	for i := range si.Rules {
		rule := &si.Rules[i]
		anchors := make([]int, sub.classCount)
		for k := range anchors {
			anchors[k] = -1
		}
		for _, a := range rule.Anchors {
			if int(a.MarkClassIndex) < int(sub.classCount) {
				anchors[a.MarkClassIndex] = sub.pool.add(a)
			}
		}
		for _, gr := range rule.Targ.Classes[0].Glyphs {
			if _, dup := byGID[gr.GID]; dup {
				g.rep.Warnf("Duplicate base glyph %d in mark attachment lookup in %s; keeping the first",
					gr.GID, g.idText)
				continue
			}
			byGID[gr.GID] = baseRec{anchors: anchors}
			order = append(order, gr.GID)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	g.otl.Coverage.Begin()
	for _, gid := range order {
		g.otl.Coverage.AddGlyph(gid)
		sub.bases = append(sub.bases, byGID[gid].anchors)
	}
	sub.baseCoverage = g.otl.Coverage.End()

	g.bumpContext(2)
	g.otl.AddSubtable(g.newRecord(si, sub))
	return nil
}

// --- Mark to ligature ------------------------------------------------------

type ligAttach struct {
	components [][]int // [component][mark class] pool index
}

type markLigaturePos struct {
	markCoverage otl.CoverageID
	ligCoverage  otl.CoverageID
	classCount   uint16
	marks        markArray
	ligs         []ligAttach
	pool         anchorPool
}

func (s *markLigaturePos) markArrayOff() uint32 { return 12 }

func (s *markLigaturePos) ligArrayOff() uint32 {
	return s.markArrayOff() + s.marks.size()
}

func (s *markLigaturePos) ligAttachSize(la *ligAttach) uint32 {
	return uint32(2 + 2*len(la.components)*int(s.classCount))
}

func (s *markLigaturePos) ligArraySize() uint32 {
	sz := uint32(2 + 2*len(s.ligs))
	for i := range s.ligs {
		sz += s.ligAttachSize(&s.ligs[i])
	}
	return sz
}

func (s *markLigaturePos) poolBase() uint32 {
	return s.ligArrayOff() + s.ligArraySize()
}

func (s *markLigaturePos) Size() uint32 {
	return s.poolBase() + s.pool.size
}

func (s *markLigaturePos) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(1)
	w.U16(refs.CoverageOffset(s.markCoverage))
	w.U16(refs.CoverageOffset(s.ligCoverage))
	w.U16(s.classCount)
	w.U16(uint16(s.markArrayOff()))
	w.U16(uint16(s.ligArrayOff()))

	w.U16(uint16(len(s.marks.classes)))
	for i := range s.marks.classes {
		w.U16(s.marks.classes[i])
		w.U16(s.pool.offset(s.marks.anchors[i], s.poolBase()-s.markArrayOff()))
	}

	// LigatureArray with LigatureAttach tables back-to-back
	w.U16(uint16(len(s.ligs)))
	attachOff := uint32(2 + 2*len(s.ligs))
	for i := range s.ligs {
		w.U16(uint16(attachOff))
		attachOff += s.ligAttachSize(&s.ligs[i])
	}
	attachOff = uint32(2 + 2*len(s.ligs))
	for i := range s.ligs {
		la := &s.ligs[i]
		w.U16(uint16(len(la.components)))
		// anchor offsets are relative to the LigatureAttach start
		laAbs := s.ligArrayOff() + attachOff
		for _, comp := range la.components {
			for _, ai := range comp {
				w.U16(s.pool.offset(ai, s.poolBase()-laAbs))
			}
		}
		attachOff += s.ligAttachSize(la)
	}
	s.pool.write(w)
}

func (s *markLigaturePos) Coverages() []otl.CoverageID {
	return []otl.CoverageID{s.markCoverage, s.ligCoverage}
}

func (s *markLigaturePos) Classes() []otl.ClassID { return nil }

// fillMarkToLigature compiles mark-to-ligature attachment. Rule anchors
// carry the component index they attach to.
func (g *GPOS) fillMarkToLigature(si *SubtableInfo) error {
	if len(si.Rules) == 0 {
		return nil
	}
	sub := &markLigaturePos{classCount: uint16(len(si.MarkClasses))}
	sub.markCoverage, sub.marks = g.buildMarkSide(si, &sub.pool)

	byGID := make(map[ot.GlyphIndex]ligAttach)
	var order []ot.GlyphIndex
	for i := range si.Rules {
		rule := &si.Rules[i]
		nComponents := 1
		for _, a := range rule.Anchors {
			if int(a.ComponentIndex)+1 > nComponents {
				nComponents = int(a.ComponentIndex) + 1
			}
		}
		la := ligAttach{components: make([][]int, nComponents)}
		for c := range la.components {
			la.components[c] = make([]int, sub.classCount)
			for k := range la.components[c] {
				la.components[c][k] = -1
			}
		}
		for _, a := range rule.Anchors {
			if int(a.MarkClassIndex) < int(sub.classCount) {
				la.components[a.ComponentIndex][a.MarkClassIndex] = sub.pool.add(a)
			}
		}
		for _, gr := range rule.Targ.Classes[0].Glyphs {
			if _, dup := byGID[gr.GID]; dup {
				g.rep.Warnf("Duplicate ligature glyph %d in mark attachment lookup in %s; keeping the first",
					gr.GID, g.idText)
				continue
			}
			byGID[gr.GID] = la
			order = append(order, gr.GID)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	g.otl.Coverage.Begin()
	for _, gid := range order {
		g.otl.Coverage.AddGlyph(gid)
		sub.ligs = append(sub.ligs, byGID[gid])
	}
	sub.ligCoverage = g.otl.Coverage.End()

	g.bumpContext(2)
	g.otl.AddSubtable(g.newRecord(si, sub))
	return nil
}
