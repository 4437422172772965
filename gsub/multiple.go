package gsub

import (
	"sort"

	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Multiple substitution (lookup type 2) and alternate substitution (lookup
// type 3) share their wire shape: a coverage table plus per-target glyph
// sequences. Both auto-break into several subtables when the accumulated
// size would exceed the 16-bit offset ceiling; the boundary rule is the
// rule that would overflow, not the one before it.

type glyphSeq struct {
	gids []ot.GlyphIndex
}

// multipleSubst is the compiled subtable for lookup types 2 and 3; the wire
// format value is 1 for both.
type multipleSubst struct {
	coverage  otl.CoverageID
	sequences []glyphSeq
}

func multipleHeaderSize(nSeq int) uint32 {
	return uint32(6 + 2*nSeq)
}

func (s *multipleSubst) Size() uint32 {
	sz := multipleHeaderSize(len(s.sequences))
	for _, seq := range s.sequences {
		sz += uint32(2 + 2*len(seq.gids))
	}
	return sz
}

func (s *multipleSubst) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(1)
	w.U16(refs.CoverageOffset(s.coverage))
	w.U16(uint16(len(s.sequences)))
	off := multipleHeaderSize(len(s.sequences))
	for _, seq := range s.sequences {
		w.U16(uint16(off))
		off += uint32(2 + 2*len(seq.gids))
	}
	for _, seq := range s.sequences {
		w.U16(uint16(len(seq.gids)))
		for _, g := range seq.gids {
			w.Glyph(g)
		}
	}
}

func (s *multipleSubst) Coverages() []otl.CoverageID {
	return []otl.CoverageID{s.coverage}
}

func (s *multipleSubst) Classes() []otl.ClassID {
	return nil
}

// replGlyphs flattens the replacement pattern of a rule: sequence positions
// for multiple substitutions, the choice set of the single position for
// alternates.
func replGlyphs(rule *SubstRule, alternate bool) []ot.GlyphIndex {
	var gids []ot.GlyphIndex
	if alternate {
		for _, gr := range rule.Repl.Classes[0].Glyphs {
			gids = append(gids, gr.GID)
		}
		return gids
	}
	for i := range rule.Repl.Classes {
		gids = append(gids, rule.Repl.Classes[i].Glyphs[0].GID)
	}
	return gids
}

// fillSequence compiles rules of kind 2 or 3, breaking subtables as needed.
func (g *GSUB) fillSequence(si *SubtableInfo, alternate bool) error {
	kind := "multiple"
	if alternate {
		kind = "alternate"
	}
	sort.SliceStable(si.Rules, func(i, j int) bool {
		return si.Rules[i].Targ.Classes[0].Glyphs[0].GID < si.Rules[j].Targ.Classes[0].Glyphs[0].GID
	})

	makeSubtable := func(beg, end int) {
		sub := &multipleSubst{}
		g.otl.Coverage.Begin()
		for k := beg; k <= end; k++ {
			g.otl.Coverage.AddGlyph(si.Rules[k].Targ.Classes[0].Glyphs[0].GID)
			sub.sequences = append(sub.sequences, glyphSeq{gids: replGlyphs(&si.Rules[k], alternate)})
		}
		sub.coverage = g.otl.Coverage.End()
		g.otl.AddSubtable(g.newRecord(si, sub))
	}

	i := 0
	nSubs := 0
	for j := 0; j < len(si.Rules); j++ {
		rule := &si.Rules[j]
		if j != 0 && rule.Targ.Classes[0].Glyphs[0].GID == si.Rules[j-1].Targ.Classes[0].Glyphs[0].GID {
			return g.rep.Fatalf("Duplicate target glyph for %s substitution in %s: glyph %d",
				kind, g.idText, rule.Targ.Classes[0].Glyphs[0].GID)
		}
		nSubsNew := nSubs + len(replGlyphs(rule, alternate))
		sizeNew := multipleHeaderSize(j-i+1) + uint32(2*(j-i+1)) + uint32(2*nSubsNew)
		if sizeNew > 0xFFFF {
			// Just overflowed size; back up one rule.
			makeSubtable(i, j-1)
			nSubs = 0
			i = j
			j--
		} else if j == len(si.Rules)-1 {
			makeSubtable(i, j)
		} else {
			nSubs = nSubsNew
		}
	}
	g.bumpContext(1)
	return nil
}

func (g *GSUB) fillMultiple(si *SubtableInfo) error {
	return g.fillSequence(si, false)
}

func (g *GSUB) fillAlternate(si *SubtableInfo) error {
	return g.fillSequence(si, true)
}
