package otfeat

import (
	"errors"

	"github.com/npillmayer/otfeat/auxtab"
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/otfeat/otl"
)

// Result holds the outcome of one compile: the serialized tables, the
// name-table rows and host overrides to merge, and the diagnostics.
type Result struct {
	Tables      map[ot.Tag][]byte
	NameRows    []auxtab.NameRow
	Overrides   *auxtab.HostOverrides
	Diagnostics []feat.Diagnostic
	MaxContext  uint16
}

// Compile finalizes the session after the statement stream has been
// walked: it closes open lookups, runs the aalt fold, compiles the
// deferred anonymous lookups, assembles and lays out the GSUB and GPOS
// backbones, and serializes every table that received content.
//
// A compile is a single logical transaction; the driver must not be used
// again afterwards. On a fatal condition the returned error wraps the
// fatal diagnostic; non-fatal errors leave had-error state on the
// reporter and suppress table output.
func (fc *FeatCtx) Compile() (*Result, error) {
	if fc.finished {
		return nil, errors.New("compile session already finished")
	}
	fc.finished = true

	if err := fc.closeCurrentLookup(); err != nil {
		return fc.result(), err
	}
	if err := fc.aaltCreate(); err != nil {
		return fc.result(), err
	}
	// Anonymous lookups implied by contextual rules compile after all user
	// lookups, so that they sort to the end of the LookupList.
	if err := fc.gsub.CreateAnonLookups(); err != nil {
		return fc.result(), err
	}
	if err := fc.gpos.CreateAnonLookups(); err != nil {
		return fc.result(), err
	}

	res := fc.result()
	if fc.rep.HadError() {
		return res, nil
	}

	res.Tables = make(map[ot.Tag][]byte)
	if !fc.gsub.Backbone().IsEmpty() {
		if err := fc.fillAndWrite(res, fc.gsub.Backbone()); err != nil {
			return res, err
		}
	}
	if !fc.gpos.Backbone().IsEmpty() {
		if err := fc.fillAndWrite(res, fc.gpos.Backbone()); err != nil {
			return res, err
		}
	}

	// GDEF: synthesize default glyph classes from mark participation when
	// lookups need them and none were authored.
	if !fc.gdef.HasGlyphClasses() && fc.gFlags&(seenIgnoreClassFlag|seenMarkClassFlag) != 0 {
		fc.gdef.SynthesizeGlyphClasses(fc.reg.MarkGlyphs())
	}
	if !fc.gdef.IsEmpty() {
		b, err := fc.gdef.Write()
		if err != nil {
			return res, err
		}
		res.Tables[ot.TagGDEF] = b
	}
	if !fc.base.IsEmpty() {
		b, err := fc.base.Write()
		if err != nil {
			return res, err
		}
		res.Tables[ot.TagBASE] = b
	}
	if !fc.stat.IsEmpty() {
		b, err := fc.stat.Write()
		if err != nil {
			return res, err
		}
		res.Tables[ot.TagSTAT] = b
	}
	if !fc.name.IsEmpty() {
		b, err := fc.name.Write()
		if err != nil {
			return res, err
		}
		res.Tables[ot.TagName] = b
	}

	maxContext := fc.gsub.MaxContext()
	if fc.gpos.MaxContext() > maxContext {
		maxContext = fc.gpos.MaxContext()
	}
	fc.host.MaxContext = maxContext
	res.MaxContext = maxContext

	return res, nil
}

func (fc *FeatCtx) fillAndWrite(res *Result, backbone *otl.Table) error {
	if err := backbone.Fill(); err != nil {
		return err
	}
	backbone.CheckStandAloneRefs()
	b, err := backbone.Write()
	if err != nil {
		return err
	}
	res.Tables[backbone.TableTag] = b
	return nil
}

func (fc *FeatCtx) result() *Result {
	return &Result{
		NameRows:    fc.name.Rows(),
		Overrides:   fc.host,
		Diagnostics: fc.rep.Diagnostics(),
	}
}
