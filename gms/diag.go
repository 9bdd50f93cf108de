package gms

import "fmt"

const (
	// value could not be read in full, a documented default was used instead
	DIAG_FIELD = iota
	// named element is missing or malformed, the construct that needed it was skipped
	DIAG_REFERENCE
)

// Diagnostic records a non-fatal defect found while parsing or resolving
// a model. Line is 1-based, zero when the defect is not tied to a line.
type Diagnostic struct {
	Level   int
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return d.Message
}

// Diagf appends a formatted diagnostic, the shared builder for the
// parser and the resolver passes.
func Diagf(diags []Diagnostic, level int, line int, format string, a ...interface{}) []Diagnostic {
	return append(diags, Diagnostic{
		Level:   level,
		Line:    line,
		Message: fmt.Sprintf(format, a...),
	})
}
