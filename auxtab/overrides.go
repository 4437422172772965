package auxtab

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/npillmayer/otfeat/ot"
)

// The feature file can override fields of tables the host application owns
// (head, hhea, vhea, OS/2, vmtx). The compiler records these directives and
// hands them back; it does not write those tables itself.

// Lengths of the OS/2 selector bit lists a feature file can set.
const (
	LenUnicodeList  = 128
	LenCodePageList = 64
)

// HostOverrides collects the table-field directives of a feature file.
type HostOverrides struct {
	// head
	FontRevision    ot.Fixed
	HasFontRevision bool

	// hhea / vhea caret parameters
	CaretOffset        int16
	HasCaretOffset     bool
	VheaCaretSlopeRise int16
	VheaCaretSlopeRun  int16
	VheaCaretOffset    int16
	HasVheaCaret       bool

	// OS/2
	UnicodeRanges   [4]uint32
	HasUnicodeRange bool
	CodePageRanges  [2]uint32
	HasCodePage     bool
	TypoAscender    int16
	TypoDescender   int16
	TypoLineGap     int16
	HasTypoMetrics  bool
	WinAscent       int16
	WinDescent      int16
	HasWinMetrics   bool
	WeightClass     uint16
	WidthClass      uint16
	FSType          uint16
	HasFSType       bool
	Panose          [10]uint8
	HasPanose       bool
	Vendor          string
	MaxContext      uint16

	// vmtx
	VertOriginY    map[ot.GlyphIndex]int16
	VertAdvanceY   map[ot.GlyphIndex]int16
}

// NewHostOverrides returns an empty override set.
func NewHostOverrides() *HostOverrides {
	return &HostOverrides{
		VertOriginY:  make(map[ot.GlyphIndex]int16),
		VertAdvanceY: make(map[ot.GlyphIndex]int16),
	}
}

// SetFontRevision parses a `FontRevision x.yyy` value.
func (h *HostOverrides) SetFontRevision(rev string) error {
	parts := strings.SplitN(rev, ".", 2)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("invalid FontRevision %q", rev)
	}
	frac := 0
	if len(parts) == 2 {
		frac, err = strconv.Atoi(parts[1])
		if err != nil || len(parts[1]) > 3 {
			return fmt.Errorf("invalid FontRevision %q", rev)
		}
		for i := len(parts[1]); i < 3; i++ {
			frac *= 10
		}
	}
	h.FontRevision = ot.FixedFromFloat(float64(major) + float64(frac)/1000.0)
	h.HasFontRevision = true
	return nil
}

// SetUnicodeRanges sets OS/2 ulUnicodeRange bits from a list of block
// numbers; a negative entry ends the list.
func (h *HostOverrides) SetUnicodeRanges(blocks []int) error {
	if len(blocks) > LenUnicodeList {
		return fmt.Errorf("too many Unicode range values")
	}
	for _, blk := range blocks {
		if blk < 0 {
			break
		}
		if blk >= 128 {
			return fmt.Errorf("Unicode range value %d out of range", blk)
		}
		h.UnicodeRanges[blk/32] |= 1 << (uint(blk) % 32)
	}
	h.HasUnicodeRange = true
	return nil
}

// SetCodePageRanges sets OS/2 ulCodePageRange bits from a list of Windows
// code page numbers; a negative entry ends the list.
func (h *HostOverrides) SetCodePageRanges(pages []int) error {
	if len(pages) > LenCodePageList {
		return fmt.Errorf("too many code page values")
	}
	for _, page := range pages {
		if page < 0 {
			break
		}
		bit, ok := codePageBit(page)
		if !ok {
			return fmt.Errorf("code page %d is not supported", page)
		}
		h.CodePageRanges[bit/32] |= 1 << (uint(bit) % 32)
	}
	h.HasCodePage = true
	return nil
}

// codePageBit maps a Windows code page number to its OS/2 bit.
func codePageBit(page int) (int, bool) {
	switch page {
	case 1252:
		return 0, true
	case 1250:
		return 1, true
	case 1251:
		return 2, true
	case 1253:
		return 3, true
	case 1254:
		return 4, true
	case 1255:
		return 5, true
	case 1256:
		return 6, true
	case 1257:
		return 7, true
	case 1258:
		return 8, true
	case 874:
		return 16, true
	case 932:
		return 17, true
	case 936:
		return 18, true
	case 949:
		return 19, true
	case 950:
		return 20, true
	case 1361:
		return 21, true
	case 869:
		return 48, true
	case 866:
		return 49, true
	case 865:
		return 50, true
	case 864:
		return 51, true
	case 863:
		return 52, true
	case 862:
		return 53, true
	case 861:
		return 54, true
	case 860:
		return 55, true
	case 857:
		return 56, true
	case 855:
		return 57, true
	case 852:
		return 58, true
	case 775:
		return 59, true
	case 737:
		return 60, true
	case 708:
		return 61, true
	case 850:
		return 62, true
	case 437:
		return 63, true
	}
	return 0, false
}

// SetVendor records the OS/2 achVendID string (four characters).
func (h *HostOverrides) SetVendor(vendor string) error {
	if len(vendor) != 4 {
		return fmt.Errorf("OS/2 vendor id must be 4 characters")
	}
	h.Vendor = vendor
	return nil
}

// SetVertOriginY records a vmtx VertOriginY override.
func (h *HostOverrides) SetVertOriginY(gid ot.GlyphIndex, y int16) error {
	if _, dup := h.VertOriginY[gid]; dup {
		return fmt.Errorf("duplicate VertOriginY for glyph %d", gid)
	}
	h.VertOriginY[gid] = y
	return nil
}

// SetVertAdvanceY records a vmtx VertAdvanceY override.
func (h *HostOverrides) SetVertAdvanceY(gid ot.GlyphIndex, adv int16) error {
	if _, dup := h.VertAdvanceY[gid]; dup {
		return fmt.Errorf("duplicate VertAdvanceY for glyph %d", gid)
	}
	h.VertAdvanceY[gid] = adv
	return nil
}
