package feat

import "github.com/npillmayer/otfeat/ot"

// GlyphInventory is the oracle the compiler consults about the companion
// glyph store. It is satisfied by package inventory; the compiler core never
// reads font files itself.
type GlyphInventory interface {
	// GIDOfName resolves a glyph name to a glyph index. If allowNotdef is
	// true, the names ".notdef" resolves to glyph 0 instead of failing.
	GIDOfName(name string, allowNotdef bool) (ot.GlyphIndex, error)
	// GIDOfCID resolves a CID for CID-keyed sources.
	GIDOfCID(cid uint32) (ot.GlyphIndex, error)
	// HorizontalAdvance returns the horizontal advance of a glyph in design
	// units.
	HorizontalAdvance(gid ot.GlyphIndex) int16
	// VerticalAdvance returns the vertical advance of a glyph in design
	// units.
	VerticalAdvance(gid ot.GlyphIndex) int16
	// SetVerticalAdvance overrides a glyph's vertical advance, unless one
	// has been set before. The 'vrt2' feature seeds overrides this way.
	SetVerticalAdvance(gid ot.GlyphIndex, adv int16)
	// GlyphCount returns the number of glyphs in the store.
	GlyphCount() uint16
}
