// Package annotator renders validation issues back onto the source drawing.
// Annotation is best-effort decoration: the orchestrator treats any failure
// here as a note on the report, never as a request failure.
package annotator

import (
	"context"

	"github.com/wudi/drawcheck/validation"
)

// Document is an annotated copy of the input drawing.
type Document struct {
	Bytes     []byte
	MediaType string
	PageCount int
}

// Annotator marks up a drawing with the issues found during validation.
type Annotator interface {
	// Available reports whether the backend can run in this process.
	Available() bool
	Annotate(ctx context.Context, document []byte, issues []validation.Issue) (*Document, error)
}

// markerColor maps severities to marker colors: info blue, warning amber,
// error red, critical magenta.
func markerColor(s validation.Severity) (r, g, b uint8) {
	switch s {
	case validation.SeverityCritical:
		return 0xD0, 0x00, 0xB0
	case validation.SeverityError:
		return 0xE0, 0x20, 0x20
	case validation.SeverityWarning:
		return 0xF0, 0xA0, 0x00
	default:
		return 0x20, 0x60, 0xE0
	}
}
