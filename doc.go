/*
Package otfeat compiles OpenType feature files into binary layout tables.

The package implements the semantic middle layer of a feature compiler: a
statement-driven state machine (the driver) that interprets feature-file
statements in order, tracking the current feature, script, language,
lookup, and lookup flags, and materializes substitution and positioning
rules into typed lookup subtables, which a final layout pass assembles
into the GSUB, GPOS, GDEF, BASE, and STAT tables plus name-table rows and
host-table overrides.

Parsing the feature-file text is not part of this module: an external
parser walks its parse tree and calls the statement methods of FeatCtx.
The glyph inventory is likewise external, consulted through the
feat.GlyphInventory oracle (package inventory offers implementations).

	rep := &feat.Reporter{}
	fc := otfeat.New(rep, inv)
	fc.StartFeature(ot.T("liga"))
	fc.Sub(targ, repl, ot.GSubLookupTypeLigature)
	fc.EndFeature(ot.T("liga"))
	tables, err := fc.Compile()

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package otfeat

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'otfeat.driver'
func tracer() tracing.Trace {
	return tracing.Select("otfeat.driver")
}
