/*
Package otl assembles the shared backbone of the OpenType layout tables
GSUB and GPOS: coverage and class-definition builders, the script / feature
/ lookup list structure, the offset-and-size layout pass, and extension
wrapping. The lookup compilers in packages gsub and gpos produce subtable
objects and register them here; package otl owns everything the two tables
have in common.

The binary layout of a compiled table is:

	header
	ScriptList
	FeatureList
	feature-parameter subtables
	LookupList
	lookup subtables (authoring order, aalt and anonymous lookups last)
	coverage tables
	class-definition tables
	extension section (each wrapped subtable followed by its own
	    coverage and class tables)

Feature-parameter subtables are placed before the LookupList even though
they are logically part of lookups; some font tooling depends on this
placement.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package otl

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'otfeat.otl'
func tracer() tracing.Trace {
	return tracing.Select("otfeat.otl")
}
