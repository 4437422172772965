package gsub

import (
	"sort"

	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Reverse chaining single substitution, GSUB lookup type 8, format 1.
// Exactly one input position is allowed; the substitute array is indexed in
// parallel with the input coverage, which the builder sorts by GID. The
// pairs are sorted before the coverage is built to keep both aligned.

type reverseSubst struct {
	inputCoverage otl.CoverageID
	backtracks    []otl.CoverageID
	lookaheads    []otl.CoverageID
	substitutes   []ot.GlyphIndex
}

func (s *reverseSubst) Size() uint32 {
	return uint32(10 + 2*(len(s.backtracks)+len(s.lookaheads)) + 2*len(s.substitutes))
}

func (s *reverseSubst) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(1)
	w.U16(refs.CoverageOffset(s.inputCoverage))
	w.U16(uint16(len(s.backtracks)))
	for i := len(s.backtracks) - 1; i >= 0; i-- {
		w.U16(refs.CoverageOffset(s.backtracks[i]))
	}
	w.U16(uint16(len(s.lookaheads)))
	for _, c := range s.lookaheads {
		w.U16(refs.CoverageOffset(c))
	}
	w.U16(uint16(len(s.substitutes)))
	for _, g := range s.substitutes {
		w.Glyph(g)
	}
}

func (s *reverseSubst) Coverages() []otl.CoverageID {
	ids := make([]otl.CoverageID, 0, len(s.backtracks)+len(s.lookaheads)+1)
	ids = append(ids, s.inputCoverage)
	ids = append(ids, s.backtracks...)
	ids = append(ids, s.lookaheads...)
	return ids
}

func (s *reverseSubst) Classes() []otl.ClassID {
	return nil
}

// fillReverse compiles each accumulated reverse-chain rule into one
// subtable.
func (g *GSUB) fillReverse(si *SubtableInfo) error {
	for i := range si.Rules {
		rule := &si.Rules[i]
		parts := partitionContext(rule.Targ)
		sub := &reverseSubst{
			backtracks: g.setCoverages(parts.back),
			lookaheads: g.setCoverages(parts.look),
		}

		if len(parts.input) != 1 {
			return g.rep.Fatalf("reverse chain substitution in %s must have exactly one input position",
				g.idText)
		}
		input := parts.input[0]

		if rule.Repl != nil {
			// Pair input glyphs with their substitutes and sort by input
			// GID; the coverage builder sorts the same way, keeping the
			// substitute array parallel.
			type pair struct {
				targ, repl ot.GlyphIndex
			}
			rcr := &rule.Repl.Classes[0]
			pairs := make([]pair, len(input.Glyphs))
			ri := 0
			for k, gr := range input.Glyphs {
				pairs[k] = pair{targ: gr.GID, repl: rcr.Glyphs[ri].GID}
				if ri+1 < len(rcr.Glyphs) {
					ri++
				}
			}
			sort.Slice(pairs, func(a, b int) bool { return pairs[a].targ < pairs[b].targ })
			g.otl.Coverage.Begin()
			for _, p := range pairs {
				g.otl.Coverage.AddGlyph(p.targ)
				sub.substitutes = append(sub.substitutes, p.repl)
			}
			sub.inputCoverage = g.otl.Coverage.End()
		} else {
			// ignore clause: coverage only, no substitutes
			g.otl.Coverage.Begin()
			for _, gr := range input.Glyphs {
				g.otl.Coverage.AddGlyph(gr.GID)
			}
			sub.inputCoverage = g.otl.Coverage.End()
		}

		g.bumpContext(1 + len(parts.look))
		g.otl.AddSubtable(g.newRecord(si, sub))
	}
	return nil
}
