/*
Package feat holds the semantic model of feature-file rules: glyph patterns
(sequences of glyph classes with per-position roles), anchors and value
records, mark classes, the registry of named objects, and the diagnostics
reporter that all compiler stages report through.

The package sits between the (external) feature-file parser and the lookup
compilers in packages gsub and gpos. It does not know about subtable
formats; it models what the author wrote.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package feat

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'otfeat.feat'
func tracer() tracing.Trace {
	return tracing.Select("otfeat.feat")
}
