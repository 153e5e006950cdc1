package cell

import (
	"fmt"
	"strings"
)

// Severity grades a diagnostic message.
type Severity int

const (
	// SeverityError is a diagnostic that failed the compilation.
	SeverityError Severity = iota

	// SeverityWarning is a diagnostic that did not fail the compilation.
	SeverityWarning
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}

	return "error"
}

// Diagnostic is one positioned toolchain message. Offsets refer to the
// original cell source text, not the synthesized wrapper, so they are
// directly presentable to the user. Offset is -1 when the message originates
// in synthesized scaffolding.
type Diagnostic struct {
	Cell     string
	Offset   int
	Line     int
	Column   int
	Severity Severity
	Message  string
}

// String renders the diagnostic in file:line:column form.
func (d Diagnostic) String() string {
	if d.Offset < 0 {
		return fmt.Sprintf("%s: %s: %s", d.Cell, d.Severity, d.Message)
	}

	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Cell, d.Line, d.Column, d.Severity, d.Message)
}

// Diagnostics is an ordered list of diagnostics.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic is an error.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}

	return false
}

// Error makes a non-empty diagnostic list usable as an error value.
func (ds Diagnostics) Error() string {
	msgs := make([]string, 0, len(ds))
	for _, d := range ds {
		msgs = append(msgs, d.String())
	}

	return strings.Join(msgs, "\n")
}
