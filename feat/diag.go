package feat

import "fmt"

// Severity represents the severity level of a compiler diagnostic.
type Severity int

const (
	// SeverityNote is informational, e.g. reporting a removed duplicate rule.
	SeverityNote Severity = iota
	// SeverityWarning indicates a non-fatal issue; compilation continues
	// unchanged or with a documented fixup.
	SeverityWarning
	// SeverityError marks the compile as failed but lets the driver keep
	// walking so that further diagnostics can be reported. Rule emission
	// becomes a no-op once an error has been seen.
	SeverityError
	// SeverityFatal aborts the compile.
	SeverityFatal
)

// String returns a human-readable representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "NOTE"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// SourcePos is the feature-file position of the statement currently being
// processed, as maintained by the active visitor frame.
type SourcePos struct {
	File string
	Line int
	Col  int
}

func (p SourcePos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Diagnostic is one message produced during a compile.
type Diagnostic struct {
	Severity Severity
	Pos      SourcePos
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Pos, d.Message)
}

// FatalError wraps a fatal diagnostic as a Go error so that it can travel up
// the call chain of the driver.
type FatalError struct {
	Diag Diagnostic
}

func (e *FatalError) Error() string {
	return e.Diag.String()
}

// Reporter accumulates diagnostics during a compile. Severities ERROR and
// FATAL set the HadError flag; the driver consults it to turn rule emission
// into a no-op while continuing to walk the input for further diagnostics.
type Reporter struct {
	diags    []Diagnostic
	pos      SourcePos
	hadError bool
}

// SetPos records the source position subsequent diagnostics will carry.
func (r *Reporter) SetPos(pos SourcePos) {
	r.pos = pos
}

// Pos returns the current source position.
func (r *Reporter) Pos() SourcePos {
	return r.pos
}

// HadError returns true once an ERROR or FATAL diagnostic was reported.
func (r *Reporter) HadError() bool {
	return r.hadError
}

// Diagnostics returns all accumulated diagnostics in report order.
func (r *Reporter) Diagnostics() []Diagnostic {
	return r.diags
}

func (r *Reporter) report(sev Severity, format string, args ...interface{}) Diagnostic {
	d := Diagnostic{Severity: sev, Pos: r.pos, Message: fmt.Sprintf(format, args...)}
	r.diags = append(r.diags, d)
	switch sev {
	case SeverityNote:
		tracer().Infof("%s", d)
	case SeverityWarning:
		tracer().Infof("%s", d)
	default:
		tracer().Errorf("%s", d)
	}
	return d
}

// Notef reports an informational message.
func (r *Reporter) Notef(format string, args ...interface{}) {
	r.report(SeverityNote, format, args...)
}

// Warnf reports a non-fatal issue.
func (r *Reporter) Warnf(format string, args ...interface{}) {
	r.report(SeverityWarning, format, args...)
}

// Errorf reports an error. The compile continues but is marked failed.
func (r *Reporter) Errorf(format string, args ...interface{}) {
	r.hadError = true
	r.report(SeverityError, format, args...)
}

// Fatalf reports a fatal condition and returns an error that aborts the
// compile.
func (r *Reporter) Fatalf(format string, args ...interface{}) error {
	r.hadError = true
	d := r.report(SeverityFatal, format, args...)
	return &FatalError{Diag: d}
}
