package script

import (
	"fmt"
	"strings"
)

// Kind classifies a diagnostic.
type Kind uint8

const (
	// SyntaxError is a statement that could not be recognized.
	SyntaxError Kind = iota
	// UnknownFunction is a call to a function the grammar does not define.
	UnknownFunction
	// InvalidArgument is a wrong argument count or type in a known call.
	InvalidArgument
	// DuplicateMapping is a mapping that replaced an earlier one.
	DuplicateMapping
	// DanglingLayerReference is a layer switch to a layer that does not exist.
	DanglingLayerReference
)

var kindNames = [...]string{
	SyntaxError:            "SyntaxError",
	UnknownFunction:        "UnknownFunction",
	InvalidArgument:        "InvalidArgument",
	DuplicateMapping:       "DuplicateMapping",
	DanglingLayerReference: "DanglingLayerReference",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Severity is the importance of a diagnostic.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns "error" or "warning".
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic describes one problem found in a script.
// Line and Column are 1-based; Column counts characters.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Line     int
	Column   int
	Message  string
}

// String formats the diagnostic as "line:col: severity Kind: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s %s: %s", d.Line, d.Column, d.Severity, d.Kind, d.Message)
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

// Errors returns only the error-level diagnostics.
func (ds Diagnostics) Errors() Diagnostics {
	return ds.filter(SeverityError)
}

// Warnings returns only the warning-level diagnostics.
func (ds Diagnostics) Warnings() Diagnostics {
	return ds.filter(SeverityWarning)
}

// OfKind returns the diagnostics of kind k.
func (ds Diagnostics) OfKind(k Kind) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

func (ds Diagnostics) filter(s Severity) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// String joins the diagnostics one per line.
func (ds Diagnostics) String() string {
	var b strings.Builder
	for i, d := range ds {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.String())
	}
	return b.String()
}
