package otfeat

import (
	"testing"

	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/internal/glyphtest"
	"github.com/npillmayer/otfeat/inventory"
	"github.com/npillmayer/otfeat/ot"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Preparation ------------------------------------------------

type DriverTestEnviron struct {
	suite.Suite
	inv *inventory.Set
	rep *feat.Reporter
	fc  *FeatCtx
}

// listen for 'go test' command --> run test methods
func TestDriverFunctions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "otfeat.driver")
	defer teardown()
	suite.Run(t, new(DriverTestEnviron))
}

// run before each test method
func (env *DriverTestEnviron) SetupTest() {
	env.inv = glyphtest.NewLatin()
	env.rep = &feat.Reporter{}
	env.fc = New(env.rep, env.inv)
}

func (env *DriverTestEnviron) gid(name string) ot.GlyphIndex {
	return glyphtest.GID(env.inv, name)
}

func (env *DriverTestEnviron) glyphPat(names ...string) *feat.GPat {
	pat := &feat.GPat{}
	for _, name := range names {
		pat.AddClass(feat.ClassRecFromGlyph(env.gid(name)))
	}
	return pat
}

func (env *DriverTestEnviron) classPat(names ...string) *feat.GPat {
	cr := feat.ClassRec{GClass: true}
	for _, name := range names {
		cr.Glyphs = append(cr.Glyphs, feat.GlyphRec{GID: env.gid(name)})
	}
	return feat.PatFromClass(cr)
}

// --- Tests -----------------------------------------------------------------

func (env *DriverTestEnviron) TestSimpleFeatureCompiles() {
	fc := env.fc
	fc.StartFeature(ot.T("liga"))
	env.NoError(fc.Sub(env.glyphPat("f", "i"), env.glyphPat("f_i"), ot.GSubLookupTypeLigature))
	env.NoError(fc.EndFeature(ot.T("liga")))
	res, err := fc.Compile()
	env.Require().NoError(err)
	env.Require().NotNil(res.Tables[ot.TagGSUB], "expected a GSUB table")
	env.False(env.rep.HadError())
	env.EqualValues(2, res.MaxContext, "expected usMaxContext 2 for a 2-glyph ligature")
}

func (env *DriverTestEnviron) TestStateMachineBreaksLookupsOnTypeChange() {
	fc := env.fc
	fc.StartFeature(ot.T("test"))
	env.NoError(fc.Sub(env.glyphPat("A"), env.glyphPat("a"), ot.GSubLookupTypeSingle))
	env.NoError(fc.Sub(env.glyphPat("f", "i"), env.glyphPat("f_i"), ot.GSubLookupTypeLigature))
	env.NoError(fc.EndFeature(ot.T("test")))
	recs := fc.gsub.Backbone().Records()
	env.Require().Len(recs, 2)
	env.NotEqual(recs[0].Label, recs[1].Label, "expected separate lookups per type")
}

func (env *DriverTestEnviron) TestNamedLookupAndReference() {
	fc := env.fc
	fc.StartFeature(ot.T("smcp"))
	env.NoError(fc.StartLookup("LOW", false, false))
	env.NoError(fc.Sub(env.glyphPat("A"), env.glyphPat("A.sc"), ot.GSubLookupTypeSingle))
	env.NoError(fc.EndLookup("LOW"))
	env.NoError(fc.EndFeature(ot.T("smcp")))
	fc.StartFeature(ot.T("c2sc"))
	env.NoError(fc.UseLookup("LOW"))
	env.NoError(fc.EndFeature(ot.T("c2sc")))
	recs := fc.gsub.Backbone().Records()
	env.Require().Len(recs, 2)
	env.False(recs[0].Label.IsRefLab())
	env.True(recs[1].Label.IsRefLab(), "expected the second record to be a reference")
	env.Equal(recs[0].Label, recs[1].Label.Base())
	env.Equal(ot.T("c2sc"), recs[1].Feature)
}

func (env *DriverTestEnviron) TestLookupBlockLabelMismatchIsFatal() {
	fc := env.fc
	fc.StartFeature(ot.T("smcp"))
	env.NoError(fc.StartLookup("ONE", false, false))
	env.NoError(fc.Sub(env.glyphPat("A"), env.glyphPat("A.sc"), ot.GSubLookupTypeSingle))
	env.Error(fc.EndLookup("TWO"), "expected mismatched lookup labels to be fatal")
}

func (env *DriverTestEnviron) TestDFLTReplayIntoLanguage() {
	fc := env.fc
	fc.StartFeature(ot.T("liga"))
	env.NoError(fc.Script(ot.T("latn")))
	env.NoError(fc.Sub(env.glyphPat("f", "i"), env.glyphPat("f_i"), ot.GSubLookupTypeLigature))
	env.NoError(fc.Language(ot.T("DEU "), false))
	env.NoError(fc.EndFeature(ot.T("liga")))
	recs := fc.gsub.Backbone().Records()
	env.Require().Len(recs, 2, "expected the dflt lookup plus one replayed reference")
	env.True(recs[1].Label.IsRefLab())
	env.Equal(ot.T("DEU "), recs[1].Language)
}

func (env *DriverTestEnviron) TestExcludeDfltSuppressesReplay() {
	fc := env.fc
	fc.StartFeature(ot.T("liga"))
	env.NoError(fc.Script(ot.T("latn")))
	env.NoError(fc.Sub(env.glyphPat("f", "i"), env.glyphPat("f_i"), ot.GSubLookupTypeLigature))
	env.NoError(fc.Language(ot.T("DEU "), true))
	env.NoError(fc.EndFeature(ot.T("liga")))
	recs := fc.gsub.Backbone().Records()
	env.Len(recs, 1, "expected no replay under exclude_dflt")
}

func (env *DriverTestEnviron) TestLanguageSystemReplay() {
	fc := env.fc
	fc.AddLanguageSystem(ot.DFLT, ot.DfltLang())
	fc.AddLanguageSystem(ot.T("latn"), ot.DfltLang())
	fc.AddLanguageSystem(ot.T("latn"), ot.T("DEU "))
	fc.StartFeature(ot.T("liga"))
	env.NoError(fc.Sub(env.glyphPat("f", "i"), env.glyphPat("f_i"), ot.GSubLookupTypeLigature))
	env.NoError(fc.EndFeature(ot.T("liga")))
	recs := fc.gsub.Backbone().Records()
	env.Require().Len(recs, 3, "expected the real lookup plus two replayed references")
	env.Equal(ot.T("latn"), recs[1].Script)
	env.Equal(ot.T("DEU "), recs[2].Language)
}

func (env *DriverTestEnviron) TestOldDFLTLanguageIsCorrected() {
	fc := env.fc
	fc.StartFeature(ot.T("liga"))
	env.NoError(fc.Script(ot.T("latn")))
	env.NoError(fc.Language(ot.DFLT, false))
	env.False(env.rep.HadError(), "old DFLT should be a warning, not an error")
	seen := false
	for _, d := range env.rep.Diagnostics() {
		if d.Severity == feat.SeverityWarning {
			seen = true
		}
	}
	env.True(seen, "expected a warning for the old DFLT dialect")
}

// --- aalt ------------------------------------------------------------------

func (env *DriverTestEnviron) aaltSetup(smcpRepl, c2scRepl string) {
	fc := env.fc
	fc.StartFeature(ot.T("aalt"))
	fc.AaltAddFeature(ot.T("smcp"))
	fc.AaltAddFeature(ot.T("c2sc"))
	env.NoError(fc.EndFeature(ot.T("aalt")))
	fc.StartFeature(ot.T("smcp"))
	env.NoError(fc.Sub(env.glyphPat("A"), env.glyphPat(smcpRepl), ot.GSubLookupTypeSingle))
	env.NoError(fc.EndFeature(ot.T("smcp")))
	fc.StartFeature(ot.T("c2sc"))
	env.NoError(fc.Sub(env.glyphPat("A"), env.glyphPat(c2scRepl), ot.GSubLookupTypeSingle))
	env.NoError(fc.EndFeature(ot.T("c2sc")))
}

func (env *DriverTestEnviron) TestAaltFoldDedupsToSingle() {
	env.aaltSetup("A.sc", "A.sc")
	res, err := env.fc.Compile()
	env.Require().NoError(err)
	env.Require().NotNil(res.Tables[ot.TagGSUB])
	var aaltRecs int
	for _, rec := range env.fc.gsub.Backbone().Records() {
		if rec.Feature == ot.T("aalt") {
			aaltRecs++
			env.Equal(ot.GSubLookupTypeSingle, rec.LookupType,
				"expected a Single lookup when every target has one alternate")
		}
	}
	env.Equal(1, aaltRecs, "expected one aalt subtable record")
}

func (env *DriverTestEnviron) TestAaltFoldKeepsAuthoringOrder() {
	env.aaltSetup("A.smcp", "A.c2sc")
	_, err := env.fc.Compile()
	env.Require().NoError(err)
	var found bool
	for _, rec := range env.fc.gsub.Backbone().Records() {
		if rec.Feature != ot.T("aalt") {
			continue
		}
		found = true
		env.Equal(ot.GSubLookupTypeAlternate, rec.LookupType,
			"expected an Alternate lookup for multiple alternates")
	}
	env.True(found, "expected an aalt record")
	// smcp is listed and authored first, so A.smcp is recorded before A.c2sc
	infosV, ok := env.fc.aalt.rules.Get(uint16(env.gid("A")))
	env.Require().True(ok)
	infos := *(infosV.(*[]aaltGlyphInfo))
	env.Require().GreaterOrEqual(len(infos), 2)
	env.Equal(env.gid("A.smcp"), infos[0].rgid, "expected A.smcp first")
	env.Equal(env.gid("A.c2sc"), infos[1].rgid, "expected A.c2sc second")
}

// --- mark classes ----------------------------------------------------------

func (env *DriverTestEnviron) TestMarkClassFrozenAfterUse() {
	fc := env.fc
	anchor := feat.AnchorMarkInfo{Format: 1, X: 10, Y: 500}
	fc.MarkClassStatement("TOP", env.classPat("acutecomb").Classes[0], anchor)
	fc.StartFeature(ot.T("mark"))
	baseAnchor := feat.AnchorMarkInfo{Format: 1, X: 250, Y: 700, MarkClassName: "TOP"}
	base := env.classPat("A", "E")
	base.Classes[0].BaseNode = true
	env.NoError(fc.Pos(base, ot.GPosLookupTypeMarkToBase, false,
		[]feat.AnchorMarkInfo{baseAnchor}))
	// the class participated in a position rule and is frozen now
	fc.MarkClassStatement("TOP", env.classPat("gravecomb").Classes[0], anchor)
	env.True(env.rep.HadError(), "expected adding to a used mark class to be an error")
}

// --- error propagation -----------------------------------------------------

func (env *DriverTestEnviron) TestEmissionStopsAfterError() {
	fc := env.fc
	fc.StartFeature(ot.T("test"))
	fc.GID("no.such.glyph", false) // reports UnknownGlyph
	env.True(env.rep.HadError())
	env.NoError(fc.Sub(env.glyphPat("A"), env.glyphPat("a"), ot.GSubLookupTypeSingle))
	env.NoError(fc.EndFeature(ot.T("test")))
	res, err := fc.Compile()
	env.Require().NoError(err)
	env.Nil(res.Tables, "expected no table output after an error")
}

func (env *DriverTestEnviron) TestCompileIsSingleTransaction() {
	fc := env.fc
	fc.StartFeature(ot.T("liga"))
	env.NoError(fc.Sub(env.glyphPat("f", "i"), env.glyphPat("f_i"), ot.GSubLookupTypeLigature))
	env.NoError(fc.EndFeature(ot.T("liga")))
	_, err := fc.Compile()
	env.Require().NoError(err)
	_, err = fc.Compile()
	env.Error(err, "expected a second Compile to fail")
}
