package feat

import (
	"fmt"
	"strconv"

	"github.com/npillmayer/otfeat/ot"
)

// Glyph ranges in classes come in two flavors:
//
//	[A-Z]            alpha range: endpoints differ in one letter
//	[u0041-u005A]    numeric range: endpoints differ in one digit field
//
// The two endpoint names must differ in exactly one contiguous alphanumeric
// field, and every intermediate name must exist in the glyph inventory.

// ExpandRange expands the range firstName-lastName into the glyph indices of
// all names between the endpoints, inclusive.
func ExpandRange(inv GlyphInventory, firstName, lastName string) ([]ot.GlyphIndex, error) {
	if len(firstName) != len(lastName) {
		return nil, fmt.Errorf("range endpoints %s-%s differ in length", firstName, lastName)
	}
	// common prefix and suffix around the differing field
	beg := 0
	for beg < len(firstName) && firstName[beg] == lastName[beg] {
		beg++
	}
	end := len(firstName)
	for end > beg && firstName[end-1] == lastName[end-1] {
		end--
	}
	if beg == len(firstName) {
		return nil, fmt.Errorf("range endpoints are identical: %s", firstName)
	}
	f, l := firstName[beg:end], lastName[beg:end]

	if len(f) == 1 && isLetter(f[0]) && isLetter(l[0]) {
		return expandAlphaRange(inv, firstName, beg, f[0], l[0])
	}
	if isDigits(f) && isDigits(l) {
		return expandNumRange(inv, firstName, beg, end, f, l)
	}
	return nil, fmt.Errorf("range endpoints %s-%s do not differ in a single alphanumeric field",
		firstName, lastName)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return len(s) > 0
}

func expandAlphaRange(inv GlyphInventory, template string, at int, from, to byte) ([]ot.GlyphIndex, error) {
	if from > to || (from >= 'a') != (to >= 'a') {
		return nil, fmt.Errorf("invalid alpha range %c-%c", from, to)
	}
	name := []byte(template)
	var gids []ot.GlyphIndex
	for c := from; c <= to; c++ {
		name[at] = c
		gid, err := inv.GIDOfName(string(name), false)
		if err != nil {
			return nil, fmt.Errorf("glyph %s in range is not in the font", string(name))
		}
		gids = append(gids, gid)
	}
	return gids, nil
}

func expandNumRange(inv GlyphInventory, template string, beg, end int, f, l string) ([]ot.GlyphIndex, error) {
	// Hex digits may appear in names like u0041; parse the field base 16 if
	// any endpoint contains hex letters, base 10 otherwise.
	base := 10
	for _, s := range []string{f, l} {
		for i := 0; i < len(s); i++ {
			if s[i] > '9' {
				base = 16
			}
		}
	}
	first, err := strconv.ParseUint(f, base, 32)
	if err != nil {
		return nil, err
	}
	last, err := strconv.ParseUint(l, base, 32)
	if err != nil {
		return nil, err
	}
	if first > last {
		return nil, fmt.Errorf("numeric range %s-%s is descending", f, l)
	}
	width := end - beg
	var gids []ot.GlyphIndex
	for v := first; v <= last; v++ {
		var field string
		if base == 16 {
			field = fmt.Sprintf("%0*X", width, v)
		} else {
			field = fmt.Sprintf("%0*d", width, v)
		}
		name := template[:beg] + field + template[end:]
		gid, err := inv.GIDOfName(name, false)
		if err != nil {
			return nil, fmt.Errorf("glyph %s in range is not in the font", name)
		}
		gids = append(gids, gid)
	}
	return gids, nil
}
