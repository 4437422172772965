/*
Package auxtab compiles the auxiliary OpenType tables the feature compiler
derives from feature-file directives: GDEF (glyph classes, mark attachment
classes, ligature carets, mark filtering sets), BASE (baseline tags and
per-script baseline values), STAT (design axes and axis values), the name
table rows the feature file contributes, and the OS/2 / head / hhea / vhea
/ vmtx overrides that are handed back to the host application.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package auxtab

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'otfeat.auxtab'
func tracer() tracing.Trace {
	return tracing.Select("otfeat.auxtab")
}
