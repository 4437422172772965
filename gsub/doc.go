/*
Package gsub compiles accumulated substitution rules into GSUB lookup
subtables: single, multiple, alternate, ligature, chaining context, reverse
chaining, and the feature-parameter payloads of ss## and cv## features.

The feature-file driver feeds rules into an accumulator between LookupBegin
and LookupEnd; LookupEnd runs the kind-specific compiler, which registers
immutable subtable objects with the OTL backbone (package otl). Multiple
and alternate subtables break automatically when their size would exceed
the 16-bit offset ceiling; a ligature subtable exceeding it is fatal.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package gsub

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'otfeat.gsub'
func tracer() tracing.Trace {
	return tracing.Select("otfeat.gsub")
}
