/*
Package inventory provides glyph-inventory oracles for the feature
compiler: a map-backed Set for tools and tests, and an adapter over a
parsed SFNT font supplying real metrics.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package inventory

import (
	"fmt"
	"math"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'otfeat.inventory'
func tracer() tracing.Trace {
	return tracing.Select("otfeat.inventory")
}

// vAdvUnset marks "no vertical advance recorded yet"; the first setter
// wins, matching the vmtx-override semantics.
const vAdvUnset = math.MinInt16

// Set is a map-backed glyph inventory.
type Set struct {
	byName map[string]ot.GlyphIndex
	byCID  map[uint32]ot.GlyphIndex
	hAdv   []int16
	vAdv   []int16
	count  uint16
}

var _ feat.GlyphInventory = (*Set)(nil)

// NewSet returns an empty inventory.
func NewSet() *Set {
	s := &Set{
		byName: make(map[string]ot.GlyphIndex),
		byCID:  make(map[uint32]ot.GlyphIndex),
	}
	s.AddGlyph(".notdef", 0)
	return s
}

// AddGlyph registers a glyph name with a horizontal advance and returns
// its index.
func (s *Set) AddGlyph(name string, hAdvance int16) ot.GlyphIndex {
	if gid, exists := s.byName[name]; exists {
		return gid
	}
	gid := ot.GlyphIndex(s.count)
	s.count++
	s.byName[name] = gid
	s.hAdv = append(s.hAdv, hAdvance)
	s.vAdv = append(s.vAdv, vAdvUnset)
	return gid
}

// AddCID registers a CID alias for a glyph index.
func (s *Set) AddCID(cid uint32, gid ot.GlyphIndex) {
	s.byCID[cid] = gid
}

// GIDOfName resolves a glyph name.
func (s *Set) GIDOfName(name string, allowNotdef bool) (ot.GlyphIndex, error) {
	if gid, ok := s.byName[name]; ok {
		return gid, nil
	}
	if allowNotdef && name == ".notdef" {
		return 0, nil
	}
	return ot.GIDUndef, fmt.Errorf("glyph name %q not in inventory", name)
}

// GIDOfCID resolves a CID.
func (s *Set) GIDOfCID(cid uint32) (ot.GlyphIndex, error) {
	if gid, ok := s.byCID[cid]; ok {
		return gid, nil
	}
	return ot.GIDUndef, fmt.Errorf("CID %d not in inventory", cid)
}

// HorizontalAdvance returns the horizontal advance of gid.
func (s *Set) HorizontalAdvance(gid ot.GlyphIndex) int16 {
	if int(gid) >= len(s.hAdv) {
		return 0
	}
	return s.hAdv[gid]
}

// VerticalAdvance returns the vertical advance of gid, or 0 if none was
// recorded.
func (s *Set) VerticalAdvance(gid ot.GlyphIndex) int16 {
	if int(gid) >= len(s.vAdv) || s.vAdv[gid] == vAdvUnset {
		return 0
	}
	return s.vAdv[gid]
}

// HasVerticalAdvance reports whether a vertical advance has been recorded
// for gid.
func (s *Set) HasVerticalAdvance(gid ot.GlyphIndex) bool {
	return int(gid) < len(s.vAdv) && s.vAdv[gid] != vAdvUnset
}

// SetVerticalAdvance records a vertical advance unless one is present
// already; the 'vrt2' seeding and vmtx overrides rely on first-wins.
func (s *Set) SetVerticalAdvance(gid ot.GlyphIndex, adv int16) {
	if int(gid) >= len(s.vAdv) || s.vAdv[gid] != vAdvUnset {
		return
	}
	s.vAdv[gid] = adv
}

// GlyphCount returns the number of glyphs.
func (s *Set) GlyphCount() uint16 {
	return s.count
}

// Names returns the registered glyph names, for tooling.
func (s *Set) Names() []string {
	names := make([]string, s.count)
	for name, gid := range s.byName {
		names[gid] = name
	}
	return names
}
