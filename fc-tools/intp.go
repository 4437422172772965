package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"github.com/npillmayer/otfeat"
	"github.com/npillmayer/otfeat/feat"
	"github.com/npillmayer/otfeat/inventory"
	"github.com/npillmayer/otfeat/ot"
)

// Intp is the console interpreter: one compile session plus a toy glyph
// inventory, driven line by line.
type Intp struct {
	repl *readline.Instance
	rep  *feat.Reporter
	fc   *otfeat.FeatCtx
	inv  *inventory.Set
	line int
}

// REPL reads commands until EOF.
func (intp *Intp) REPL() {
	for {
		line, err := intp.repl.Readline()
		if err != nil {
			if err == io.EOF {
				return
			}
			pterm.Error.Println(err.Error())
			return
		}
		intp.line++
		intp.fc.SetPos(feat.SourcePos{File: "<console>", Line: intp.line, Col: 1})
		if quit := intp.execute(strings.Fields(strings.TrimSpace(line))); quit {
			return
		}
	}
}

func (intp *Intp) execute(args []string) bool {
	if len(args) == 0 {
		return false
	}
	var err error
	switch args[0] {
	case "quit", "exit":
		return true
	case "help":
		printHelp()
	case "glyph": // glyph NAME [advance]
		err = intp.cmdGlyph(args[1:])
	case "feature": // feature TAG  |  feature end TAG
		err = intp.cmdFeature(args[1:])
	case "script":
		if len(args) != 2 {
			err = fmt.Errorf("usage: script TAG")
		} else {
			err = intp.fc.Script(ot.T(args[1]))
		}
	case "language":
		if len(args) < 2 {
			err = fmt.Errorf("usage: language TAG [exclude_dflt]")
		} else {
			excl := len(args) > 2 && args[2] == "exclude_dflt"
			err = intp.fc.Language(ot.T(args[1]), excl)
		}
	case "sub": // sub A B ... by X  (single, ligature, multiple by shape)
		err = intp.cmdSub(args[1:])
	case "compile":
		err = intp.cmdCompile()
	case "diag":
		for _, d := range intp.rep.Diagnostics() {
			pterm.Println(d.String())
		}
	default:
		err = fmt.Errorf("unknown command %q; try 'help'", args[0])
	}
	if err != nil {
		pterm.Error.Println(err.Error())
	}
	return false
}

func (intp *Intp) cmdGlyph(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: glyph NAME [advance]")
	}
	adv := 500
	if len(args) > 1 {
		a, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		adv = a
	}
	gid := intp.inv.AddGlyph(args[0], int16(adv))
	pterm.Printf("glyph %s = GID %d\n", args[0], gid)
	return nil
}

func (intp *Intp) cmdFeature(args []string) error {
	if len(args) == 2 && args[0] == "end" {
		return intp.fc.EndFeature(ot.T(args[1]))
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: feature TAG | feature end TAG")
	}
	intp.fc.StartFeature(ot.T(args[0]))
	return nil
}

// cmdSub parses `sub <targ>... by <repl>...` with space-separated glyph
// names; [a b c] groups a class. The substitution kind follows from the
// pattern shape, as in the feature-file grammar.
func (intp *Intp) cmdSub(args []string) error {
	byAt := -1
	for i, a := range args {
		if a == "by" {
			byAt = i
		}
	}
	if byAt < 0 {
		return fmt.Errorf("usage: sub TARG... by REPL...")
	}
	targ, err := intp.parsePattern(args[:byAt])
	if err != nil {
		return err
	}
	repl, err := intp.parsePattern(args[byAt+1:])
	if err != nil {
		return err
	}
	kind := ot.GSubLookupTypeSingle
	switch {
	case targ.PatternLen() > 1 && repl.IsGlyph():
		kind = ot.GSubLookupTypeLigature
	case targ.PatternLen() == 1 && repl.PatternLen() > 1:
		kind = ot.GSubLookupTypeMultiple
	case targ.IsGlyph() && repl.IsClass():
		kind = ot.GSubLookupTypeAlternate
	}
	return intp.fc.Sub(targ, repl, kind)
}

// parsePattern reads glyph names and [class] groups into a pattern.
func (intp *Intp) parsePattern(toks []string) (*feat.GPat, error) {
	pat := &feat.GPat{}
	var class *feat.ClassRec
	for _, tok := range toks {
		switch {
		case strings.HasPrefix(tok, "["):
			class = &feat.ClassRec{GClass: true}
			tok = strings.TrimPrefix(tok, "[")
			fallthrough
		default:
			closeClass := false
			if strings.HasSuffix(tok, "]") {
				tok = strings.TrimSuffix(tok, "]")
				closeClass = true
			}
			if tok != "" {
				gid, err := intp.inv.GIDOfName(tok, false)
				if err != nil {
					return nil, err
				}
				if class != nil {
					class.Glyphs = append(class.Glyphs, feat.GlyphRec{GID: gid})
				} else {
					pat.AddClass(feat.ClassRecFromGlyph(gid))
				}
			}
			if closeClass && class != nil {
				pat.AddClass(*class)
				class = nil
			}
		}
	}
	if class != nil {
		return nil, fmt.Errorf("unterminated glyph class")
	}
	return pat, nil
}

func (intp *Intp) cmdCompile() error {
	res, err := intp.fc.Compile()
	if err != nil {
		return err
	}
	if len(res.Tables) == 0 {
		pterm.Info.Println("no tables produced")
	}
	for tag, b := range res.Tables {
		pterm.Info.Printf("table %s, %d bytes\n", tag, len(b))
		pterm.Println(hexdump(b))
	}
	for _, d := range res.Diagnostics {
		pterm.Println(d.String())
	}
	return nil
}

func hexdump(b []byte) string {
	var sb strings.Builder
	for i := 0; i < len(b); i += 16 {
		fmt.Fprintf(&sb, "%06x ", i)
		for j := i; j < i+16 && j < len(b); j++ {
			fmt.Fprintf(&sb, " %02x", b[j])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func printHelp() {
	pterm.Info.Println("Commands")
	pterm.Println(`
  glyph NAME [advance]       register a glyph in the toy inventory
  feature TAG                start a feature block
  feature end TAG            end a feature block
  script TAG                 script statement
  language TAG [exclude_dflt]
  sub TARG... by REPL...     substitution rule ([a b] groups a class)
  compile                    run the compile and hex-dump the tables
  diag                       print accumulated diagnostics
  quit`)
}
