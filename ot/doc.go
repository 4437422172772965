/*
Package ot provides the shared base types for compiling OpenType layout
tables: glyph indices, four-character tags, lookup labels, lookup type and
flag enums, and a big-endian table writer.

Intended audience for this package are the compiler packages of this module
(feat, otl, gsub, gpos, auxtab). It deliberately knows nothing about feature
files or rules; it is the vocabulary both sides of the compiler share.

# Status

Work in progress.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package ot

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'otfeat.ot'
func tracer() tracing.Trace {
	return tracing.Select("otfeat.ot")
}
