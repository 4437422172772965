package gpos

import (
	"math/bits"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
)

// ValueFormat is the bit set describing which fields a GPOS value record
// carries.
type ValueFormat uint16

const (
	ValueXPlacement ValueFormat = 0x0001
	ValueYPlacement ValueFormat = 0x0002
	ValueXAdvance   ValueFormat = 0x0004
	ValueYAdvance   ValueFormat = 0x0008
)

// Size returns the byte size of a value record with this format.
func (vf ValueFormat) Size() uint32 {
	return 2 * uint32(bits.OnesCount16(uint16(vf)))
}

// valueFormatOf computes the minimal value format for a metrics record.
// A single metric is an x advance; a pair is x placement plus x advance;
// four or more metrics carry the full XY placement and advance. Zero-valued
// fields are dropped from the format unless the record would become empty.
func valueFormatOf(mi feat.MetricsInfo) ValueFormat {
	var vf ValueFormat
	switch len(mi.Metrics) {
	case 0:
		return 0
	case 1:
		return ValueXAdvance
	case 2:
		if mi.Metrics[0] != 0 {
			vf |= ValueXPlacement
		}
		vf |= ValueXAdvance
	default:
		if mi.XPlacement() != 0 {
			vf |= ValueXPlacement
		}
		if mi.YPlacement() != 0 {
			vf |= ValueYPlacement
		}
		if mi.XAdvance() != 0 {
			vf |= ValueXAdvance
		}
		if mi.YAdvance() != 0 {
			vf |= ValueYAdvance
		}
		if vf == 0 {
			vf = ValueXAdvance
		}
	}
	return vf
}

// writeValueRecord emits the fields selected by vf.
func writeValueRecord(w *ot.Writer, vf ValueFormat, mi feat.MetricsInfo) {
	if vf&ValueXPlacement != 0 {
		w.I16(mi.XPlacement())
	}
	if vf&ValueYPlacement != 0 {
		w.I16(mi.YPlacement())
	}
	if vf&ValueXAdvance != 0 {
		w.I16(mi.XAdvance())
	}
	if vf&ValueYAdvance != 0 {
		w.I16(mi.YAdvance())
	}
}

// --- Anchor tables ---------------------------------------------------------

// anchorSize returns the byte size of one anchor table; a null anchor
// occupies no space (its offset is written as zero).
func anchorSize(a feat.AnchorMarkInfo) uint32 {
	switch a.Format {
	case 0:
		return 0
	case 2:
		return 8
	default:
		return 6
	}
}

// writeAnchor emits one anchor table.
func writeAnchor(w *ot.Writer, a feat.AnchorMarkInfo) {
	if a.IsNull() {
		return
	}
	w.U16(uint16(a.Format))
	w.I16(a.X)
	w.I16(a.Y)
	if a.Format == 2 {
		w.U16(a.ContourPoint)
	}
}
