package auxtab

import (
	"fmt"
	"sort"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
)

// BASE accumulates baseline data and serializes the BASE table. The
// feature file specifies, per writing direction, a list of baseline tags
// and per-script coordinate records.
type BASE struct {
	rep  *feat.Reporter
	axes [2]baseAxis // 0 horizontal, 1 vertical
}

type baseAxis struct {
	tags    []ot.Tag
	scripts []baseScript
}

type baseScript struct {
	script    ot.Tag
	dfltIndex uint16 // index of the default baseline tag
	coords    []int16
}

// NewBASE returns an empty BASE accumulator.
func NewBASE(rep *feat.Reporter) *BASE {
	return &BASE{rep: rep}
}

func axisIndex(vertical bool) int {
	if vertical {
		return 1
	}
	return 0
}

// SetAxisTags records the baseline tag list of one writing direction. Tags
// must be sorted; each direction may be specified only once.
func (b *BASE) SetAxisTags(vertical bool, tags []ot.Tag) error {
	ax := &b.axes[axisIndex(vertical)]
	if len(ax.tags) > 0 {
		return fmt.Errorf("baseline axis specified more than once")
	}
	if !sort.SliceIsSorted(tags, func(i, j int) bool { return tags[i] < tags[j] }) {
		return fmt.Errorf("baseline tags must be sorted")
	}
	ax.tags = append(ax.tags, tags...)
	return nil
}

// AddScript records the per-script baseline values of one writing
// direction. The coordinate count must match the axis tag list; dfltTag
// names the default baseline.
func (b *BASE) AddScript(vertical bool, script, dfltTag ot.Tag, coords []int16) error {
	ax := &b.axes[axisIndex(vertical)]
	if len(coords) != len(ax.tags) {
		return fmt.Errorf("script '%s' has %d baseline values for %d baseline tags",
			script, len(coords), len(ax.tags))
	}
	dfltIndex := -1
	for i, tag := range ax.tags {
		if tag == dfltTag {
			dfltIndex = i
		}
	}
	if dfltIndex < 0 {
		return fmt.Errorf("default baseline '%s' of script '%s' is not in the axis tag list",
			dfltTag, script)
	}
	ax.scripts = append(ax.scripts, baseScript{
		script:    script,
		dfltIndex: uint16(dfltIndex),
		coords:    append([]int16(nil), coords...),
	})
	return nil
}

// IsEmpty returns true if no baseline data was recorded.
func (b *BASE) IsEmpty() bool {
	return len(b.axes[0].tags) == 0 && len(b.axes[1].tags) == 0
}

func (ax *baseAxis) size() uint32 {
	if len(ax.tags) == 0 {
		return 0
	}
	sz := uint32(4)                          // axis table: tag list offset, script list offset
	sz += uint32(2 + 4*len(ax.tags))         // BaseTagList
	sz += uint32(2 + 6*len(ax.scripts))      // BaseScriptList
	for _, bs := range ax.scripts {
		sz += 6                              // BaseScript
		sz += uint32(4 + 2*len(bs.coords))   // BaseValues
		sz += uint32(4 * len(bs.coords))     // BaseCoord format 1 each
	}
	return sz
}

func (ax *baseAxis) write(w *ot.Writer) {
	// axis table
	tagListOff := uint32(4)
	scriptListOff := tagListOff + uint32(2+4*len(ax.tags))
	w.U16(uint16(tagListOff))
	w.U16(uint16(scriptListOff))

	w.U16(uint16(len(ax.tags)))
	for _, tag := range ax.tags {
		w.Tag(tag)
	}

	// script list; BaseScript tables follow back-to-back
	scripts := append([]baseScript(nil), ax.scripts...)
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].script < scripts[j].script })
	w.U16(uint16(len(scripts)))
	bsOff := uint32(2 + 6*len(scripts))
	for _, bs := range scripts {
		w.Tag(bs.script)
		w.U16(uint16(bsOff))
		bsOff += 6 + uint32(4+2*len(bs.coords)) + uint32(4*len(bs.coords))
	}
	for _, bs := range scripts {
		// BaseScript: values offset, default min/max (none), langsys count
		w.U16(6)
		w.U16(0)
		w.U16(0)
		// BaseValues
		w.U16(bs.dfltIndex)
		w.U16(uint16(len(bs.coords)))
		coordOff := uint32(4 + 2*len(bs.coords))
		for range bs.coords {
			w.U16(uint16(coordOff))
			coordOff += 4
		}
		for _, c := range bs.coords {
			w.U16(1) // BaseCoord format 1
			w.I16(c)
		}
	}
}

// Write serializes the BASE table, version 1.0.
func (b *BASE) Write() ([]byte, error) {
	horizSz := b.axes[0].size()
	vertSz := b.axes[1].size()
	w := ot.NewWriter(int(8 + horizSz + vertSz))
	w.U32(0x00010000)
	off := uint32(8)
	if horizSz > 0 {
		w.U16(uint16(off))
		off += horizSz
	} else {
		w.U16(0)
	}
	if vertSz > 0 {
		w.U16(uint16(off))
	} else {
		w.U16(0)
	}
	if horizSz > 0 {
		b.axes[0].write(w)
	}
	if vertSz > 0 {
		b.axes[1].write(w)
	}
	return w.Bytes(), nil
}
