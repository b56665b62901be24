// Package recovery defines the policy consulted when a stage of drawing
// extraction fails on a single page: abandon the document, skip the page
// silently, or degrade by flagging the result incomplete.
package recovery

type Strategy interface {
	OnError(ctx Context, err error, location Location) Action
}

// Location identifies where in the extraction pipeline an error occurred.
type Location struct {
	Page  int    // zero-based page index, -1 for document-level errors
	Stage string // "text", "raster", "ocr", "patterns"
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionDegrade
)

type Context interface{ Done() <-chan struct{} }
