package feat

import (
	"fmt"

	"github.com/npillmayer/otfeat/ot"
)

// Registry stores the named objects of a feature file: glyph classes,
// anchor definitions, value-record definitions, and mark classes. The four
// namespaces are disjoint; lookup is by string key and insertion order is
// irrelevant. Redefining an anchor or a value record fails. Assigning a glyph
// class to a name already in use replaces the earlier class without an
// error. Mark classes accumulate glyphs until frozen by their first use in a
// position rule.
type Registry struct {
	glyphClasses map[string]*ClassRec
	anchorDefs   map[string]AnchorDef
	valueDefs    map[string]MetricsInfo
	markClasses  map[string]*MarkClass
}

// MarkClass is a named ClassRec where every glyph carries its own anchor.
type MarkClass struct {
	Name string
	Rec  ClassRec
	// Used marks the class as referenced by a position rule; adding further
	// glyphs afterwards is an error.
	Used bool
}

// DuplicateNameError reports a redefinition within one of the registry's
// namespaces.
type DuplicateNameError struct {
	Kind string
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name: %s", e.Kind, e.Name)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		glyphClasses: make(map[string]*ClassRec),
		anchorDefs:   make(map[string]AnchorDef),
		valueDefs:    make(map[string]MetricsInfo),
		markClasses:  make(map[string]*MarkClass),
	}
}

// DefineGlyphClass registers a named glyph class (`@NAME = [...]`).
// Re-assignment of a glyph class name is allowed and overwrites the previous
// definition, matching feature-file semantics.
func (reg *Registry) DefineGlyphClass(name string, cr ClassRec) {
	cls := cr.Copy()
	cls.GClass = true
	reg.glyphClasses[name] = &cls
}

// GlyphClass resolves a named glyph class.
func (reg *Registry) GlyphClass(name string) (*ClassRec, bool) {
	cr, ok := reg.glyphClasses[name]
	return cr, ok
}

// DefineAnchor registers a named anchor definition.
func (reg *Registry) DefineAnchor(name string, a AnchorDef) error {
	if _, exists := reg.anchorDefs[name]; exists {
		return &DuplicateNameError{Kind: "anchor", Name: name}
	}
	reg.anchorDefs[name] = a
	return nil
}

// Anchor resolves a named anchor definition.
func (reg *Registry) Anchor(name string) (AnchorDef, bool) {
	a, ok := reg.anchorDefs[name]
	return a, ok
}

// DefineValueRecord registers a named value record.
func (reg *Registry) DefineValueRecord(name string, mi MetricsInfo) error {
	if _, exists := reg.valueDefs[name]; exists {
		return &DuplicateNameError{Kind: "value record", Name: name}
	}
	reg.valueDefs[name] = mi.Copy()
	return nil
}

// ValueRecord resolves a named value record.
func (reg *Registry) ValueRecord(name string) (MetricsInfo, bool) {
	mi, ok := reg.valueDefs[name]
	return mi, ok
}

// AddMarkClassGlyphs adds glyphs (with their anchor) to a mark class,
// creating the class on first use. Mark classes accumulate across multiple
// `markClass` statements until frozen.
func (reg *Registry) AddMarkClassGlyphs(name string, glyphs []GlyphRec) error {
	mc, ok := reg.markClasses[name]
	if !ok {
		mc = &MarkClass{Name: name}
		mc.Rec.GClass = true
		reg.markClasses[name] = mc
	}
	if mc.Used {
		return ErrMarkClassFrozen
	}
	for _, gr := range glyphs {
		gr.Anchor.MarkClassName = name
		mc.Rec.Glyphs = append(mc.Rec.Glyphs, gr)
	}
	return nil
}

// MarkClassRef resolves a mark class by name.
func (reg *Registry) MarkClassRef(name string) (*MarkClass, bool) {
	mc, ok := reg.markClasses[name]
	return mc, ok
}

// FreezeMarkClass marks the class as used by a position rule.
func (reg *Registry) FreezeMarkClass(name string) {
	if mc, ok := reg.markClasses[name]; ok {
		mc.Used = true
		mc.Rec.UsedMarkClass = true
	}
}

// MarkClasses returns all mark classes, for GDEF default-class synthesis.
func (reg *Registry) MarkClasses() []*MarkClass {
	out := make([]*MarkClass, 0, len(reg.markClasses))
	for _, mc := range reg.markClasses {
		out = append(out, mc)
	}
	return out
}

// MarkGlyphs returns the union of all mark-class glyphs, sorted and deduped.
// GDEF synthesizes its default glyph classes from this set when no classes
// were authored.
func (reg *Registry) MarkGlyphs() []ot.GlyphIndex {
	var all ClassRec
	for _, mc := range reg.markClasses {
		all.Concat(&mc.Rec)
	}
	all.MakeUnique(nil)
	gids := make([]ot.GlyphIndex, len(all.Glyphs))
	for i, gr := range all.Glyphs {
		gids[i] = gr.GID
	}
	return gids
}
