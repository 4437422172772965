package feat

import (
	"errors"
	"sort"

	"github.com/npillmayer/otfeat/ot"
)

// GlyphRec is one glyph inside a ClassRec. Glyphs of a mark class carry
// their own anchor.
type GlyphRec struct {
	GID    ot.GlyphIndex
	Anchor AnchorMarkInfo
}

// ClassRec models one position in a glyph pattern: an ordered sequence of
// glyphs plus metadata describing the role of that position within the
// pattern.
type ClassRec struct {
	Glyphs        []GlyphRec
	LookupLabels  []ot.Label  // inline lookup references attached to this position
	Metrics       MetricsInfo // value record for positioning
	MarkClassName string      // set if this position references a mark class

	Marked        bool // sequence element is marked
	GClass        bool // sequence element was authored as a glyph class
	Backtrack     bool // part of a backtrack sub-sequence
	Input         bool // part of an input sub-sequence
	Lookahead     bool // part of a lookahead sub-sequence
	BaseNode      bool // sequence element is base glyph in mark attachment lookup
	MarkNode      bool // sequence element is mark glyph in mark attachment lookup
	UsedMarkClass bool // class was used in a pos statement; frozen against new glyphs
}

// ErrMarkClassFrozen is returned when glyphs are added to a mark class that
// already participated in a position rule.
var ErrMarkClassFrozen = errors.New("mark class has been used in a position rule and cannot be extended")

// ClassRecFromGlyph returns a single-glyph ClassRec.
func ClassRecFromGlyph(gid ot.GlyphIndex) ClassRec {
	return ClassRec{Glyphs: []GlyphRec{{GID: gid}}}
}

// IsGlyph returns true for a position holding exactly one glyph that was not
// authored as a class.
func (cr *ClassRec) IsGlyph() bool {
	return len(cr.Glyphs) == 1 && !cr.GClass
}

// IsMultiClass returns true for a position holding more than one glyph.
func (cr *ClassRec) IsMultiClass() bool {
	return len(cr.Glyphs) > 1
}

// IsClass returns true for a position holding more than one glyph or
// authored as a class.
func (cr *ClassRec) IsClass() bool {
	return cr.IsMultiClass() || cr.GClass
}

// HasLookups returns true if inline lookup references are attached to this
// position.
func (cr *ClassRec) HasLookups() bool {
	return len(cr.LookupLabels) > 0
}

// ClassSize returns the number of glyphs at this position.
func (cr *ClassRec) ClassSize() int {
	return len(cr.Glyphs)
}

// GlyphInClass reports whether gid occurs at this position.
func (cr *ClassRec) GlyphInClass(gid ot.GlyphIndex) bool {
	for _, gr := range cr.Glyphs {
		if gr.GID == gid {
			return true
		}
	}
	return false
}

// AddGlyph appends a glyph. Adding to a frozen mark class is an error.
func (cr *ClassRec) AddGlyph(gid ot.GlyphIndex) error {
	if cr.UsedMarkClass {
		return ErrMarkClassFrozen
	}
	cr.Glyphs = append(cr.Glyphs, GlyphRec{GID: gid})
	return nil
}

// Concat appends all glyphs of another ClassRec.
func (cr *ClassRec) Concat(other *ClassRec) {
	cr.Glyphs = append(cr.Glyphs, other.Glyphs...)
}

// Sort orders the glyphs by GID. The sort is stable so that glyphs carrying
// distinct anchors keep their relative order.
func (cr *ClassRec) Sort() {
	sort.SliceStable(cr.Glyphs, func(i, j int) bool {
		return cr.Glyphs[i].GID < cr.Glyphs[j].GID
	})
}

// MakeUnique removes duplicate GIDs after sorting. If report is non-nil,
// a warning is issued for each duplicate removed.
func (cr *ClassRec) MakeUnique(report func(gid ot.GlyphIndex)) {
	cr.Sort()
	out := cr.Glyphs[:0]
	for i, gr := range cr.Glyphs {
		if i > 0 && gr.GID == cr.Glyphs[i-1].GID {
			if report != nil {
				report(gr.GID)
			}
			continue
		}
		out = append(out, gr)
	}
	cr.Glyphs = out
}

// Copy returns a deep copy of the ClassRec.
func (cr *ClassRec) Copy() ClassRec {
	cp := *cr
	cp.Glyphs = append([]GlyphRec(nil), cr.Glyphs...)
	cp.LookupLabels = append([]ot.Label(nil), cr.LookupLabels...)
	cp.Metrics = cr.Metrics.Copy()
	return cp
}

// --- GPat ------------------------------------------------------------------

// GPat is an ordered sequence of ClassRec positions, together with
// sequence-level flags. Contextual patterns partition the positions
// left-to-right into three contiguous regions (backtrack, input,
// lookahead), identified by the role bits of each position; marked
// positions are always a subsequence of the input region.
type GPat struct {
	Classes []ClassRec

	HasMarked    bool // sequence has at least one marked node
	IgnoreClause bool // sequence is an ignore clause
	LookupNode   bool // pattern uses direct lookup references
	Enumerate    bool // class should be enumerated
}

// PatFromGlyph returns a single-position pattern holding one glyph.
func PatFromGlyph(gid ot.GlyphIndex) *GPat {
	return &GPat{Classes: []ClassRec{ClassRecFromGlyph(gid)}}
}

// PatFromClass returns a single-position pattern holding cr.
func PatFromClass(cr ClassRec) *GPat {
	return &GPat{Classes: []ClassRec{cr}}
}

// AddClass appends a position to the pattern.
func (p *GPat) AddClass(cr ClassRec) {
	p.Classes = append(p.Classes, cr)
}

// PatternLen returns the number of positions.
func (p *GPat) PatternLen() int {
	if p == nil {
		return 0
	}
	return len(p.Classes)
}

// IsGlyph returns true for a one-position pattern holding a single glyph.
func (p *GPat) IsGlyph() bool {
	return p != nil && len(p.Classes) == 1 && p.Classes[0].IsGlyph()
}

// IsClass returns true for a one-position pattern holding a class.
func (p *GPat) IsClass() bool {
	return p != nil && len(p.Classes) == 1 && p.Classes[0].IsClass()
}

// IsMultiClass returns true for a one-position pattern holding more than one
// glyph.
func (p *GPat) IsMultiClass() bool {
	return p != nil && len(p.Classes) == 1 && p.Classes[0].IsMultiClass()
}

// IsUnmarkedGlyph returns true for a single glyph without marked positions.
func (p *GPat) IsUnmarkedGlyph() bool {
	return p.IsGlyph() && !p.HasMarked
}

// IsUnmarkedClass returns true for a single class without marked positions.
func (p *GPat) IsUnmarkedClass() bool {
	return p.IsClass() && !p.HasMarked
}

// Copy returns a deep copy of the pattern.
func (p *GPat) Copy() *GPat {
	if p == nil {
		return nil
	}
	cp := &GPat{
		HasMarked:    p.HasMarked,
		IgnoreClause: p.IgnoreClause,
		LookupNode:   p.LookupNode,
		Enumerate:    p.Enumerate,
	}
	cp.Classes = make([]ClassRec, len(p.Classes))
	for i := range p.Classes {
		cp.Classes[i] = p.Classes[i].Copy()
	}
	return cp
}

// --- Cross product ---------------------------------------------------------

// CrossProductIterator enumerates the Cartesian product of a sequence of
// ClassRecs, yielding GID tuples in lexicographic index order. The first
// tuple consists of the glyphs at index 0 of every position. The iterator is
// finite and not restartable.
type CrossProductIterator struct {
	classes []*ClassRec
	indices []int
	first   bool
}

// NewCrossProduct returns an iterator over the product of the given classes.
func NewCrossProduct(classes []*ClassRec) *CrossProductIterator {
	return &CrossProductIterator{
		classes: classes,
		indices: make([]int, len(classes)),
		first:   true,
	}
}

// Next fills gids with the next tuple and returns true, or returns false
// when the product is exhausted. The slice is reused between calls.
func (it *CrossProductIterator) Next(gids *[]ot.GlyphIndex) bool {
	if !it.first {
		var i int
		for i = len(it.classes) - 1; i >= 0; i-- {
			it.indices[i]++
			if it.indices[i] < len(it.classes[i].Glyphs) {
				break
			}
			it.indices[i] = 0
		}
		if i < 0 {
			return false
		}
	}
	it.first = false
	*gids = (*gids)[:0]
	for i, cls := range it.classes {
		*gids = append(*gids, cls.Glyphs[it.indices[i]].GID)
	}
	return true
}

// CrossProductSize returns the number of tuples the product of the classes
// will yield.
func CrossProductSize(classes []*ClassRec) int {
	if len(classes) == 0 {
		return 0
	}
	n := 1
	for _, cls := range classes {
		n *= len(cls.Glyphs)
	}
	return n
}
