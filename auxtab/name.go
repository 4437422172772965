package auxtab

import (
	"sort"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Name-table platform and encoding constants used by feature files.
const (
	PlatformMac     uint16 = 1
	PlatformWindows uint16 = 3

	MacRomanScript uint16 = 0
	MacEnglishLang uint16 = 0

	WinUnicodeBMP uint16 = 1
	WinEnglishUS  uint16 = 0x0409
)

// NameRow is one name-table record before encoding.
type NameRow struct {
	PlatformID uint16
	EncodingID uint16
	LanguageID uint16
	NameID     uint16
	Value      string
}

// Name accumulates name-table rows contributed by the feature file
// (featureNames, cvParameters, sizemenuname, table name { ... }).
// Windows strings are encoded UTF-16BE, Mac strings Mac Roman.
type Name struct {
	rep  *feat.Reporter
	rows []NameRow
}

// NewName returns an empty name-row accumulator.
func NewName(rep *feat.Reporter) *Name {
	return &Name{rep: rep}
}

// AddRow records one name string. Platform and language default to the
// Windows conventions when given as -1 (the feature-file shorthand).
// Duplicate rows (same key, same value) are dropped silently; same key
// with a different value is an error.
func (n *Name) AddRow(platformID, encodingID, languageID int, nameID uint16, value string) {
	row := NameRow{NameID: nameID, Value: value}
	if platformID < 0 {
		platformID = int(PlatformWindows)
	}
	row.PlatformID = uint16(platformID)
	switch row.PlatformID {
	case PlatformWindows:
		if encodingID < 0 {
			encodingID = int(WinUnicodeBMP)
		}
		if languageID < 0 {
			languageID = int(WinEnglishUS)
		}
	case PlatformMac:
		if encodingID < 0 {
			encodingID = int(MacRomanScript)
		}
		if languageID < 0 {
			languageID = int(MacEnglishLang)
		}
	default:
		n.rep.Errorf("name table platform id %d is not supported", platformID)
		return
	}
	row.EncodingID = uint16(encodingID)
	row.LanguageID = uint16(languageID)

	for _, prev := range n.rows {
		if prev.PlatformID == row.PlatformID && prev.EncodingID == row.EncodingID &&
			prev.LanguageID == row.LanguageID && prev.NameID == row.NameID {
			if prev.Value == row.Value {
				return
			}
			n.rep.Errorf("duplicate name record for name id %d", nameID)
			return
		}
	}
	n.rows = append(n.rows, row)
}

// HasWindowsDefault reports whether nameID has a record for platform 3,
// encoding 1, language 0x0409. Feature parameters require one.
func (n *Name) HasWindowsDefault(nameID uint16) bool {
	for _, row := range n.rows {
		if row.PlatformID == PlatformWindows && row.EncodingID == WinUnicodeBMP &&
			row.LanguageID == WinEnglishUS && row.NameID == nameID {
			return true
		}
	}
	return false
}

// NextUserNameID returns the lowest unused name ID at or above 256, where
// font-specific names live.
func (n *Name) NextUserNameID() uint16 {
	used := make(map[uint16]bool)
	for _, row := range n.rows {
		used[row.NameID] = true
	}
	id := uint16(256)
	for used[id] {
		id++
	}
	return id
}

// IsEmpty returns true if no rows were recorded.
func (n *Name) IsEmpty() bool {
	return len(n.rows) == 0
}

// Rows returns the recorded rows; the host merges them with its own name
// data when this module does not own the whole table.
func (n *Name) Rows() []NameRow {
	return n.rows
}

func encodeRow(row *NameRow) []byte {
	if row.PlatformID == PlatformWindows {
		enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
		b, err := enc.Bytes([]byte(row.Value))
		if err != nil {
			tracer().Errorf("cannot encode name string as UTF-16: %v", err)
			return nil
		}
		return b
	}
	enc := charmap.Macintosh.NewEncoder()
	b, err := enc.Bytes([]byte(row.Value))
	if err != nil {
		// fall back to the raw bytes rather than dropping the row
		return []byte(row.Value)
	}
	return b
}

// Write serializes a format 0 name table from the accumulated rows.
func (n *Name) Write() ([]byte, error) {
	rows := append([]NameRow(nil), n.rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		if a.PlatformID != b.PlatformID {
			return a.PlatformID < b.PlatformID
		}
		if a.EncodingID != b.EncodingID {
			return a.EncodingID < b.EncodingID
		}
		if a.LanguageID != b.LanguageID {
			return a.LanguageID < b.LanguageID
		}
		return a.NameID < b.NameID
	})

	encoded := make([][]byte, len(rows))
	storageSize := 0
	for i := range rows {
		encoded[i] = encodeRow(&rows[i])
		storageSize += len(encoded[i])
	}
	storageOff := 6 + 12*len(rows)

	w := ot.NewWriter(storageOff + storageSize)
	w.U16(0) // format
	w.U16(uint16(len(rows)))
	w.U16(uint16(storageOff))
	strOff := 0
	for i := range rows {
		row := &rows[i]
		w.U16(row.PlatformID)
		w.U16(row.EncodingID)
		w.U16(row.LanguageID)
		w.U16(row.NameID)
		w.U16(uint16(len(encoded[i])))
		w.U16(uint16(strOff))
		strOff += len(encoded[i])
	}
	for i := range rows {
		for _, b := range encoded[i] {
			w.U8(b)
		}
	}
	return w.Bytes(), nil
}
