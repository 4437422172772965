package gsub

import (
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Feature-parameter payloads. The featureNames block of a Stylistic Set
// (ss01..ss99) and the cvParameters block of a Character Variant
// (cv01..cv99) carry name IDs rather than glyph rules. Their subtables are
// written into the feature-parameter section before the LookupList; the
// FeatureTable points at them.

type featureNameParam struct {
	nameID uint16
}

func (s *featureNameParam) Size() uint32 {
	return 4 // version/format, nameID
}

func (s *featureNameParam) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(0)
	w.U16(s.nameID)
}

func (s *featureNameParam) Coverages() []otl.CoverageID { return nil }
func (s *featureNameParam) Classes() []otl.ClassID      { return nil }

type cvParam struct {
	params CVParameterFormat
}

func (s *cvParam) Size() uint32 {
	return s.params.Size()
}

func (s *cvParam) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(0)
	w.U16(s.params.FeatUILabelNameID)
	w.U16(s.params.FeatUITooltipTextNameID)
	w.U16(s.params.SampleTextNameID)
	w.U16(s.params.NumNamedParameters)
	w.U16(s.params.FirstParamUILabelNameID)
	w.U16(uint16(len(s.params.CharValues)))
	for _, cv := range s.params.CharValues {
		w.U8(uint8(cv >> 16))
		w.U16(uint16(cv))
	}
}

func (s *cvParam) Coverages() []otl.CoverageID { return nil }
func (s *cvParam) Classes() []otl.ClassID      { return nil }

// featureNumber decodes the two trailing digits of a feature tag like ss07
// or cv42. ok is false if they are not digits.
func featureNumber(feature ot.Tag) (int, bool) {
	d1 := int(feature>>8&0xFF) - '0'
	d0 := int(feature&0xFF) - '0'
	if d1 < 0 || d1 > 9 || d0 < 0 || d0 > 9 {
		return 0, false
	}
	return d1*10 + d0, true
}

func isTagPrefix(feature ot.Tag, a, b byte) bool {
	return byte(feature>>24) == a && byte(feature>>16) == b
}

// fillFeatureNameParam validates and registers a featureNames payload.
// It is only allowed in ss## features, and the referenced name ID must have
// a Windows default name record.
func (g *GSUB) fillFeatureNameParam(si *SubtableInfo) error {
	num, ok := featureNumber(si.Feature)
	if !isTagPrefix(si.Feature, 's', 's') || !ok || num > 99 {
		return g.rep.Fatalf("A 'featureNames' block is only allowed in Stylistic Set (ssXX) features; "+
			"it is being used in %s", g.idText)
	}
	if si.ParamNameID != 0 && !g.names(si.ParamNameID) {
		return g.rep.Fatalf("Missing Windows default name for 'featureNames' nameid %d in %s",
			si.ParamNameID, g.idText)
	}
	rec := g.newRecord(si, &featureNameParam{nameID: si.ParamNameID})
	rec.IsFeatParam = true
	g.otl.AddSubtable(rec)
	return nil
}

// fillCVParam validates and registers a cvParameters payload. It is only
// allowed in cv## features, and every referenced name ID must have a
// Windows default name record.
func (g *GSUB) fillCVParam(si *SubtableInfo) error {
	num, ok := featureNumber(si.Feature)
	if !isTagPrefix(si.Feature, 'c', 'v') || !ok || num > 99 {
		return g.rep.Fatalf("A 'cvParameters' block is only allowed in Character Variant (cvXX) features; "+
			"it is being used in %s", g.idText)
	}
	nameIDs := []uint16{
		si.CVParams.FeatUILabelNameID,
		si.CVParams.FeatUITooltipTextNameID,
		si.CVParams.SampleTextNameID,
		si.CVParams.FirstParamUILabelNameID,
	}
	for _, nameID := range nameIDs {
		if nameID != 0 && !g.names(nameID) {
			return g.rep.Fatalf("Missing Windows default name for 'cvParameters' nameid %d in %s",
				nameID, g.idText)
		}
	}
	rec := g.newRecord(si, &cvParam{params: si.CVParams})
	rec.IsFeatParam = true
	g.otl.AddSubtable(rec)
	return nil
}

// SizeParameterFormat is the payload of the `size` feature: the design
// size (in decipoints), the subfamily identifier, its menu-name ID, and
// the size range served.
type SizeParameterFormat struct {
	DesignSize      uint16
	SubfamilyID     uint16
	SubfamilyNameID uint16
	RangeStart      uint16
	RangeEnd        uint16
}

type sizeParam struct {
	params SizeParameterFormat
}

func (s *sizeParam) Size() uint32 {
	return 10
}

func (s *sizeParam) Write(w *ot.Writer, refs otl.Refs) {
	w.U16(s.params.DesignSize)
	w.U16(s.params.SubfamilyID)
	w.U16(s.params.SubfamilyNameID)
	w.U16(s.params.RangeStart)
	w.U16(s.params.RangeEnd)
}

func (s *sizeParam) Coverages() []otl.CoverageID { return nil }
func (s *sizeParam) Classes() []otl.ClassID      { return nil }

// fillSizeParam validates and registers a size-feature payload. A size
// range requires a subfamily menu name; a zero range must leave the
// subfamily id zero.
func (g *GSUB) fillSizeParam(si *SubtableInfo) error {
	p := si.SizeParams
	if p.RangeStart == 0 && p.RangeEnd == 0 {
		if p.SubfamilyID != 0 {
			return g.rep.Fatalf("size feature with zero range must not carry a subfamily id in %s",
				g.idText)
		}
	} else {
		if p.SubfamilyNameID == 0 {
			return g.rep.Fatalf("size feature with a size range requires a subfamily menu name in %s",
				g.idText)
		}
		if !g.names(p.SubfamilyNameID) {
			return g.rep.Fatalf("Missing Windows default name for size menu nameid %d in %s",
				p.SubfamilyNameID, g.idText)
		}
	}
	rec := g.newRecord(si, &sizeParam{params: p})
	rec.IsFeatParam = true
	g.otl.AddSubtable(rec)
	return nil
}
