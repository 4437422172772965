/*
Package gpos compiles accumulated positioning rules into GPOS lookup
subtables: single and pair adjustment, cursive attachment, the three mark
attachment kinds, and contextual / chained contextual positioning.

The compiler mirrors the structure of package gsub: the driver fills an
accumulator between LookupBegin and LookupEnd, and LookupEnd runs the
kind-specific compiler, registering subtable objects with the OTL backbone.
Anchor tables are self-contained within each subtable body; coverage and
class-definition tables live in the backbone's shared sections.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package gpos

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'otfeat.gpos'
func tracer() tracing.Trace {
	return tracing.Select("otfeat.gpos")
}
