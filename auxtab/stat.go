package auxtab

import (
	"fmt"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
)

// STAT axis-value flag bits.
const (
	StatOlderSiblingFontAttribute uint16 = 0x0001
	StatElidableAxisValueName     uint16 = 0x0002
)

// DesignAxis is one STAT design axis record.
type DesignAxis struct {
	Tag      ot.Tag
	NameID   uint16
	Ordering uint16
}

// AxisValue is one STAT axis value record, formats 1 through 4.
type AxisValue struct {
	Format    uint16
	Flags     uint16
	NameID    uint16
	AxisTags  []ot.Tag   // one tag for formats 1-3, several for format 4
	Values    []ot.Fixed // format 1/3: value (+linked); format 2: nominal; format 4: one per axis
	Min, Max  ot.Fixed   // format 2 range
}

// STAT accumulates style-attribute data and serializes the STAT table.
type STAT struct {
	rep *feat.Reporter

	axes       []DesignAxis
	values     []AxisValue
	elidedName uint16
	elidedSet  bool
}

// NewSTAT returns an empty STAT accumulator.
func NewSTAT(rep *feat.Reporter) *STAT {
	return &STAT{rep: rep, elidedName: 2}
}

// AddDesignAxis registers a design axis. Axis tags must be unique.
func (s *STAT) AddDesignAxis(axis DesignAxis) error {
	for _, prev := range s.axes {
		if prev.Tag == axis.Tag {
			return fmt.Errorf("duplicate STAT design axis '%s'", axis.Tag)
		}
	}
	s.axes = append(s.axes, axis)
	return nil
}

// AddAxisValue registers an axis value record.
func (s *STAT) AddAxisValue(av AxisValue) error {
	if av.Format < 1 || av.Format > 4 {
		return fmt.Errorf("STAT axis value format %d is not defined", av.Format)
	}
	if av.Format == 4 && len(av.AxisTags) != len(av.Values) {
		return fmt.Errorf("STAT format 4 axis value needs one value per axis")
	}
	if av.Format != 4 && len(av.AxisTags) != 1 {
		return fmt.Errorf("STAT axis value needs exactly one axis tag")
	}
	s.values = append(s.values, av)
	return nil
}

// SetElidedFallbackName sets the elided-fallback name ID. Setting it twice
// to different values is an error; the default is name ID 2.
func (s *STAT) SetElidedFallbackName(nameID uint16) error {
	if s.elidedSet && s.elidedName != nameID {
		return fmt.Errorf("ElidedFallbackName is specified more than once")
	}
	s.elidedSet = true
	s.elidedName = nameID
	return nil
}

// IsEmpty returns true if no axes were recorded.
func (s *STAT) IsEmpty() bool {
	return len(s.axes) == 0 && len(s.values) == 0
}

func (s *STAT) axisIndexOf(tag ot.Tag) (uint16, error) {
	for i, ax := range s.axes {
		if ax.Tag == tag {
			return uint16(i), nil
		}
	}
	return 0, fmt.Errorf("STAT axis value references undefined axis '%s'", tag)
}

func axisValueSize(av *AxisValue) uint32 {
	switch av.Format {
	case 1:
		return 12
	case 2:
		return 20
	case 3:
		return 16
	default: // 4
		return uint32(8 + 6*len(av.AxisTags))
	}
}

// Write serializes the STAT table, version 1.1.
func (s *STAT) Write() ([]byte, error) {
	const headerSize = 20
	const axisRecSize = 8
	axesOff := uint32(headerSize)
	valueOffsetsOff := axesOff + uint32(axisRecSize*len(s.axes))

	total := valueOffsetsOff + uint32(2*len(s.values))
	for i := range s.values {
		total += axisValueSize(&s.values[i])
	}

	w := ot.NewWriter(int(total))
	w.U16(1) // majorVersion
	w.U16(1) // minorVersion
	w.U16(axisRecSize)
	w.U16(uint16(len(s.axes)))
	w.U32(axesOff)
	w.U16(uint16(len(s.values)))
	if len(s.values) > 0 {
		w.U32(valueOffsetsOff)
	} else {
		w.U32(0)
	}
	w.U16(s.elidedName)

	for _, ax := range s.axes {
		w.Tag(ax.Tag)
		w.U16(ax.NameID)
		w.U16(ax.Ordering)
	}

	// axis value offsets are relative to the start of the offset array
	off := uint32(2 * len(s.values))
	for i := range s.values {
		w.U16(uint16(off))
		off += axisValueSize(&s.values[i])
	}
	for i := range s.values {
		av := &s.values[i]
		w.U16(av.Format)
		if av.Format == 4 {
			w.U16(uint16(len(av.AxisTags)))
			w.U16(av.Flags)
			w.U16(av.NameID)
			for k, tag := range av.AxisTags {
				inx, err := s.axisIndexOf(tag)
				if err != nil {
					return nil, s.rep.Fatalf("%v", err)
				}
				w.U16(inx)
				w.Fixed(av.Values[k])
			}
			continue
		}
		inx, err := s.axisIndexOf(av.AxisTags[0])
		if err != nil {
			return nil, s.rep.Fatalf("%v", err)
		}
		w.U16(inx)
		w.U16(av.Flags)
		w.U16(av.NameID)
		switch av.Format {
		case 1:
			w.Fixed(av.Values[0])
		case 2:
			w.Fixed(av.Values[0])
			w.Fixed(av.Min)
			w.Fixed(av.Max)
		case 3:
			w.Fixed(av.Values[0])
			if len(av.Values) > 1 {
				w.Fixed(av.Values[1])
			} else {
				w.Fixed(0)
			}
		}
	}
	return w.Bytes(), nil
}
