package feat

import (
	"fmt"
	"testing"

	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestClassRecPredicates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.feat")
	defer teardown()
	//
	cr := ClassRecFromGlyph(5)
	if !cr.IsGlyph() || cr.IsClass() {
		t.Errorf("expected single unauthored glyph to be a glyph, not a class")
	}
	cr.GClass = true
	if cr.IsGlyph() || !cr.IsClass() {
		t.Errorf("expected authored single-glyph class to be a class")
	}
	cr.GClass = false
	if err := cr.AddGlyph(9); err != nil {
		t.Fatalf("AddGlyph failed: %v", err)
	}
	if !cr.IsMultiClass() || !cr.IsClass() {
		t.Errorf("expected two-glyph record to be a class")
	}
}

func TestMarkClassFreeze(t *testing.T) {
	cr := ClassRecFromGlyph(5)
	cr.UsedMarkClass = true
	if err := cr.AddGlyph(6); err != ErrMarkClassFrozen {
		t.Errorf("expected frozen mark class to reject new glyphs, have %v", err)
	}
}

func TestMakeUnique(t *testing.T) {
	var cr ClassRec
	for _, gid := range []ot.GlyphIndex{9, 3, 3, 7, 9, 1} {
		cr.AddGlyph(gid)
	}
	var dups []ot.GlyphIndex
	cr.MakeUnique(func(gid ot.GlyphIndex) { dups = append(dups, gid) })
	want := []ot.GlyphIndex{1, 3, 7, 9}
	if len(cr.Glyphs) != len(want) {
		t.Fatalf("expected %d glyphs after dedup, have %d", len(want), len(cr.Glyphs))
	}
	for i, gid := range want {
		if cr.Glyphs[i].GID != gid {
			t.Errorf("glyph %d: expected %d, have %d", i, gid, cr.Glyphs[i].GID)
		}
	}
	if len(dups) != 2 {
		t.Errorf("expected 2 reported duplicates, have %d", len(dups))
	}
}

func TestCrossProduct(t *testing.T) {
	a := ClassRec{Glyphs: []GlyphRec{{GID: 1}, {GID: 2}}}
	b := ClassRec{Glyphs: []GlyphRec{{GID: 10}}}
	c := ClassRec{Glyphs: []GlyphRec{{GID: 20}, {GID: 21}}}
	iter := NewCrossProduct([]*ClassRec{&a, &b, &c})
	var tuples [][]ot.GlyphIndex
	var gids []ot.GlyphIndex
	for iter.Next(&gids) {
		tuples = append(tuples, append([]ot.GlyphIndex(nil), gids...))
	}
	if len(tuples) != 4 {
		t.Fatalf("expected 4 tuples, have %d", len(tuples))
	}
	if tuples[0][0] != 1 || tuples[0][1] != 10 || tuples[0][2] != 20 {
		t.Errorf("expected first tuple to be all index zero, have %v", tuples[0])
	}
	if CrossProductSize([]*ClassRec{&a, &b, &c}) != 4 {
		t.Errorf("expected product size 4")
	}
}

func TestAnchorOrdering(t *testing.T) {
	a := AnchorMarkInfo{Format: 1, X: 10, Y: 20}
	b := AnchorMarkInfo{Format: 1, X: 10, Y: 30}
	if !a.Less(b) || b.Less(a) {
		t.Errorf("expected anchor ordering by y coordinate")
	}
	// contour point participates only for format 2
	c := AnchorMarkInfo{Format: 1, X: 10, Y: 20, ContourPoint: 4}
	if !a.Equal(c) {
		t.Errorf("expected format-1 anchors to ignore the contour point")
	}
	d := AnchorMarkInfo{Format: 2, X: 10, Y: 20, ContourPoint: 4}
	e := AnchorMarkInfo{Format: 2, X: 10, Y: 20, ContourPoint: 5}
	if d.Equal(e) {
		t.Errorf("expected format-2 anchors to compare the contour point")
	}
}

// --- Range expansion -------------------------------------------------------

// nameOracle is a minimal inventory for range tests.
type nameOracle map[string]ot.GlyphIndex

func (o nameOracle) GIDOfName(name string, allowNotdef bool) (ot.GlyphIndex, error) {
	if gid, ok := o[name]; ok {
		return gid, nil
	}
	return ot.GIDUndef, fmt.Errorf("no glyph %q", name)
}

func (o nameOracle) GIDOfCID(cid uint32) (ot.GlyphIndex, error) {
	return ot.GIDUndef, fmt.Errorf("no CIDs")
}

func (o nameOracle) HorizontalAdvance(ot.GlyphIndex) int16    { return 0 }
func (o nameOracle) VerticalAdvance(ot.GlyphIndex) int16      { return 0 }
func (o nameOracle) SetVerticalAdvance(ot.GlyphIndex, int16)  {}
func (o nameOracle) GlyphCount() uint16                       { return uint16(len(o)) }

func TestExpandAlphaRange(t *testing.T) {
	inv := nameOracle{"A": 1, "B": 2, "C": 3, "D": 4}
	gids, err := ExpandRange(inv, "A", "D")
	if err != nil {
		t.Fatalf("range A-D failed: %v", err)
	}
	if len(gids) != 4 || gids[0] != 1 || gids[3] != 4 {
		t.Errorf("expected gids 1..4, have %v", gids)
	}
}

func TestExpandNumRange(t *testing.T) {
	inv := nameOracle{"u0041": 1, "u0042": 2, "u0043": 3}
	gids, err := ExpandRange(inv, "u0041", "u0043")
	if err != nil {
		t.Fatalf("range u0041-u0043 failed: %v", err)
	}
	if len(gids) != 3 {
		t.Errorf("expected 3 gids, have %v", gids)
	}
}

func TestExpandRangeMissingGlyph(t *testing.T) {
	inv := nameOracle{"A": 1, "C": 3}
	if _, err := ExpandRange(inv, "A", "C"); err == nil {
		t.Errorf("expected range with missing intermediate glyph to fail")
	}
}

func TestExpandRangeTwoFields(t *testing.T) {
	inv := nameOracle{"A1x": 1, "B2x": 2}
	if _, err := ExpandRange(inv, "A1x", "B2x"); err == nil {
		t.Errorf("expected range differing in two fields to fail")
	}
}
