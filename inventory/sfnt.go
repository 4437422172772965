package inventory

import (
	"fmt"

	"github.com/npillmayer/otfeat/ot"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// FromSFNT builds an inventory from a parsed SFNT font. Horizontal
// advances and the glyph count come from the font; glyph names are
// supplied by the caller (e.g. from a post-table name list), one per
// glyph in glyph order. Advances are queried at a pixel size equal to the
// font's units per em, so they come back in design units.
func FromSFNT(f *sfnt.Font, names []string) (*Set, error) {
	nGlyphs := f.NumGlyphs()
	if len(names) != nGlyphs {
		return nil, fmt.Errorf("have %d glyph names for %d glyphs", len(names), nGlyphs)
	}
	if nGlyphs > 0xFFFF {
		return nil, fmt.Errorf("font has more than 65535 glyphs")
	}
	upem := fixed.I(int(f.UnitsPerEm()))
	var buf sfnt.Buffer

	s := &Set{
		byName: make(map[string]ot.GlyphIndex, nGlyphs),
		byCID:  make(map[uint32]ot.GlyphIndex),
	}
	for gid := 0; gid < nGlyphs; gid++ {
		adv, err := f.GlyphAdvance(&buf, sfnt.GlyphIndex(gid), upem, font.HintingNone)
		if err != nil {
			tracer().Errorf("cannot read advance of glyph %d: %v", gid, err)
			adv = 0
		}
		name := names[gid]
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("duplicate glyph name %q", name)
		}
		s.byName[name] = ot.GlyphIndex(gid)
		s.hAdv = append(s.hAdv, int16(adv.Round()))
		s.vAdv = append(s.vAdv, vAdvUnset)
	}
	s.count = uint16(nGlyphs)
	return s, nil
}
