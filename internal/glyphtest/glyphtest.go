// Package glyphtest provides canned glyph inventories shared by the
// package tests of this module.
package glyphtest

import (
	"github.com/npillmayer/otfeat/inventory"
	"github.com/npillmayer/otfeat/ot"
)

// LatinNames is a small Latin glyph repertoire with small-cap and
// alternate variants, ligatures, and a few marks.
var LatinNames = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I",
	"a", "b", "c", "d", "e", "f", "g", "h", "i",
	"A.sc", "B.sc", "C.sc", "D.sc",
	"A.smcp", "A.c2sc", "A.alt1", "A.alt2",
	"f_i", "f_f", "f_f_i", "f_ii",
	"acutecomb", "gravecomb", "cedillacomb",
	"zero", "one", "two", "three",
	"u0041", "u0042", "u0043", "u0044", "u0045",
}

// NewLatin builds an inventory with the LatinNames repertoire. Glyph 0 is
// .notdef; advances grow with the glyph index so that tests can observe
// vrt2 advance seeding.
func NewLatin() *inventory.Set {
	inv := inventory.NewSet()
	for i, name := range LatinNames {
		inv.AddGlyph(name, int16(500+i))
	}
	return inv
}

// GID resolves a name against an inventory, panicking on failure; for
// test fixtures only.
func GID(inv *inventory.Set, name string) ot.GlyphIndex {
	gid, err := inv.GIDOfName(name, false)
	if err != nil {
		panic(err)
	}
	return gid
}
