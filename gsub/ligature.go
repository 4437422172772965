package gsub

import (
	"sort"

	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Ligature substitution, GSUB lookup type 4. Rules sharing a first glyph
// are grouped into LigatureSets; within a set, longer patterns are listed
// first so that the shaper prefers the longest match.

type ligatureGlyph struct {
	ligGlyph   ot.GlyphIndex
	components []ot.GlyphIndex // all but the first, which the coverage holds
}

func (lg *ligatureGlyph) size() uint32 {
	return uint32(4 + 2*len(lg.components))
}

type ligatureSet struct {
	ligatures []ligatureGlyph
}

func (ls *ligatureSet) size() uint32 {
	sz := uint32(2 + 2*len(ls.ligatures))
	for i := range ls.ligatures {
		sz += ls.ligatures[i].size()
	}
	return sz
}

type ligatureSubst struct {
	coverage otl.CoverageID
	sets     []ligatureSet
}

func (s *ligatureSubst) Size() uint32 {
	sz := uint32(6 + 2*len(s.sets))
	for i := range s.sets {
		sz += s.sets[i].size()
	}
	return sz
}

func (s *ligatureSubst) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(1)
	w.U16(refs.CoverageOffset(s.coverage))
	w.U16(uint16(len(s.sets)))
	off := uint32(6 + 2*len(s.sets))
	for i := range s.sets {
		w.U16(uint16(off))
		off += s.sets[i].size()
	}
	for i := range s.sets {
		set := &s.sets[i]
		w.U16(uint16(len(set.ligatures)))
		ligOff := uint32(2 + 2*len(set.ligatures))
		for j := range set.ligatures {
			w.U16(uint16(ligOff))
			ligOff += set.ligatures[j].size()
		}
		for j := range set.ligatures {
			lig := &set.ligatures[j]
			w.Glyph(lig.ligGlyph)
			w.U16(uint16(len(lig.components) + 1)) // first component is in the coverage
			for _, g := range lig.components {
				w.Glyph(g)
			}
		}
	}
}

func (s *ligatureSubst) Coverages() []otl.CoverageID {
	return []otl.CoverageID{s.coverage}
}

func (s *ligatureSubst) Classes() []otl.ClassID {
	return nil
}

// cmpLigature orders by the target's first glyph, then pattern length
// (longer patterns sort earlier), then the remaining target glyphs.
func cmpLigature(a, b *SubstRule) bool {
	ag, bg := a.Targ.Classes[0].Glyphs[0].GID, b.Targ.Classes[0].Glyphs[0].GID
	if ag != bg {
		return ag < bg
	}
	if a.Length != b.Length {
		return a.Length > b.Length
	}
	for i := 1; i < len(a.Targ.Classes); i++ {
		ag, bg = a.Targ.Classes[i].Glyphs[0].GID, b.Targ.Classes[i].Glyphs[0].GID
		if ag != bg {
			return ag < bg
		}
	}
	return false
}

func sameLigatureTarget(a, b *SubstRule) bool {
	return !cmpLigature(a, b) && !cmpLigature(b, a)
}

// checkAndSortLigatures sorts the rules and resolves duplicates: identical
// pattern with identical replacement is demoted to a note and removed;
// identical pattern with a different replacement is fatal.
func (g *GSUB) checkAndSortLigatures(si *SubtableInfo) error {
	sort.SliceStable(si.Rules, func(i, j int) bool {
		return cmpLigature(&si.Rules[i], &si.Rules[j])
	})
	i := 1
	for i < len(si.Rules) {
		curr, prev := &si.Rules[i], &si.Rules[i-1]
		if sameLigatureTarget(curr, prev) {
			if curr.Repl.Classes[0].Glyphs[0].GID == prev.Repl.Classes[0].Glyphs[0].GID {
				g.rep.Notef("Removing duplicate ligature substitution in %s", g.idText)
			} else {
				return g.rep.Fatalf("Duplicate target sequence but different replacement glyphs "+
					"in ligature substitutions in %s", g.idText)
			}
			si.Rules = append(si.Rules[:i], si.Rules[i+1:]...)
		} else {
			i++
		}
	}
	return nil
}

func (g *GSUB) fillLigature(si *SubtableInfo) error {
	if err := g.checkAndSortLigatures(si); err != nil {
		return err
	}
	if len(si.Rules) == 0 {
		return nil
	}

	sub := &ligatureSubst{}
	g.otl.Coverage.Begin()
	for i := range si.Rules {
		rule := &si.Rules[i]
		first := rule.Targ.Classes[0].Glyphs[0].GID
		if i == 0 || first != si.Rules[i-1].Targ.Classes[0].Glyphs[0].GID {
			g.otl.Coverage.AddGlyph(first)
			sub.sets = append(sub.sets, ligatureSet{})
		}
		set := &sub.sets[len(sub.sets)-1]
		lg := ligatureGlyph{ligGlyph: rule.Repl.Classes[0].Glyphs[0].GID}
		for k := 1; k < len(rule.Targ.Classes); k++ {
			lg.components = append(lg.components, rule.Targ.Classes[k].Glyphs[0].GID)
		}
		set.ligatures = append(set.ligatures, lg)
		g.bumpContext(rule.Length)
	}
	sub.coverage = g.otl.Coverage.End()

	if err := ot.CheckOffset(sub.Size(), "lookup subtable", "ligature substitution"); err != nil {
		return g.rep.Fatalf("In %s %v", g.idText, err)
	}
	g.otl.AddSubtable(g.newRecord(si, sub))
	return nil
}
