// Package extractor turns raw drawing bytes into structured drawing data.
// Extraction is best-effort: every page tries the text layer first, falls
// back to raster plus OCR when the page looks scanned, and degrades to an
// incomplete result instead of failing when single pages misbehave.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/wudi/drawcheck/drawing"
	"github.com/wudi/drawcheck/observability"
	"github.com/wudi/drawcheck/ocr"
	"github.com/wudi/drawcheck/recovery"
)

// ExtractionError means neither the text layer nor OCR produced any usable
// content for the whole document. It is the only extraction outcome that
// fails a validation request.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Config tunes extraction behavior. Zero values select the defaults.
type Config struct {
	// MinCharDensity is the character count below which a page is treated as
	// scanned and routed through OCR.
	MinCharDensity int
	// PageTimeout bounds the work spent on a single page.
	PageTimeout time.Duration
	// RasterDPI is the resolution used when rasterizing scanned pages.
	RasterDPI float64
	// Languages are OCR language hints.
	Languages []string
}

const (
	defaultMinCharDensity = 64
	defaultPageTimeout    = 20 * time.Second
	defaultRasterDPI      = 300
)

func (c Config) withDefaults() Config {
	if c.MinCharDensity <= 0 {
		c.MinCharDensity = defaultMinCharDensity
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = defaultPageTimeout
	}
	if c.RasterDPI <= 0 {
		c.RasterDPI = defaultRasterDPI
	}
	return c
}

// Extractor implements drawing-data extraction.
type Extractor struct {
	open     Opener
	engine   ocr.Engine
	strategy recovery.Strategy
	cfg      Config
	log      observability.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOpener substitutes the document opener; tests use this.
func WithOpener(open Opener) Option {
	return func(e *Extractor) { e.open = open }
}

// WithEngine sets the OCR engine. Defaults to ocr.DefaultEngine().
func WithEngine(engine ocr.Engine) Option {
	return func(e *Extractor) { e.engine = engine }
}

// WithStrategy sets the page-error policy. Defaults to lenient degradation.
func WithStrategy(s recovery.Strategy) Option {
	return func(e *Extractor) { e.strategy = s }
}

// WithLogger sets the logger.
func WithLogger(log observability.Logger) Option {
	return func(e *Extractor) { e.log = log }
}

// New constructs an Extractor.
func New(cfg Config, opts ...Option) *Extractor {
	e := &Extractor{
		open:     OpenFitz,
		engine:   ocr.DefaultEngine(),
		strategy: recovery.NewLenientStrategy(),
		cfg:      cfg.withDefaults(),
		log:      observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract produces structured drawing data from raw document bytes. A page
// that fails or times out is marked missing and the result is flagged
// incomplete; Extract fails outright only when no page yields usable content.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*drawing.Data, error) {
	started := time.Now()
	doc, err := e.open(data)
	if err != nil {
		return nil, &ExtractionError{Reason: "document cannot be opened", Err: err}
	}
	defer doc.Close()

	n := doc.NumPages()
	if n == 0 {
		return nil, &ExtractionError{Reason: "document has no pages"}
	}

	out := &drawing.Data{Metadata: drawing.Metadata{SheetCount: n}}
	var merged strings.Builder
	usable := false

	for page := 0; page < n; page++ {
		if err := ctx.Err(); err != nil {
			return nil, &ExtractionError{Reason: "extraction cancelled", Err: err}
		}
		text, stage, err := e.extractPage(ctx, doc, page)
		if err != nil {
			switch e.strategy.OnError(ctx, err, recovery.Location{Page: page, Stage: stage}) {
			case recovery.ActionFail:
				return nil, &ExtractionError{Reason: fmt.Sprintf("page %d unreadable", page), Err: err}
			case recovery.ActionSkip:
				continue
			default:
				out.Incomplete = true
				out.MissingPages = append(out.MissingPages, page)
				e.log.Warn("page degraded",
					observability.Int("page", page),
					observability.String("stage", stage),
					observability.Error("err", err))
				continue
			}
		}
		if strings.TrimSpace(text) == "" {
			out.Incomplete = true
			out.MissingPages = append(out.MissingPages, page)
			continue
		}
		usable = true
		parsePage(out, text, page)
		merged.WriteString(text)
		merged.WriteByte('\n')
	}

	if !usable {
		return nil, &ExtractionError{Reason: "no page produced usable content from text layer or OCR"}
	}

	out.Text = merged.String()
	parseMetadata(out, out.Text)
	e.log.Info("extraction complete",
		observability.Int("pages", n),
		observability.Int("missing", len(out.MissingPages)),
		observability.Int64("durationMs", time.Since(started).Milliseconds()))
	return out, nil
}

// extractPage returns the text of one page, OCRing it when the text layer is
// too sparse. The returned stage names the phase that failed.
func (e *Extractor) extractPage(ctx context.Context, doc Document, page int) (text, stage string, err error) {
	pageCtx, cancel := context.WithTimeout(ctx, e.cfg.PageTimeout)
	defer cancel()

	text, err = runWithContext(pageCtx, func() (string, error) {
		return doc.PageText(page)
	})
	if err != nil {
		return "", "text", err
	}
	if charDensity(text) >= e.cfg.MinCharDensity {
		return text, "", nil
	}

	// Sparse text layer: the page is probably scanned.
	img, err := runWithContext(pageCtx, func() (string, error) {
		im, err := doc.PageImage(page, e.cfg.RasterDPI)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, im); err != nil {
			return "", fmt.Errorf("encode raster: %w", err)
		}
		return buf.String(), nil
	})
	if err != nil {
		return "", "raster", err
	}

	in := ocr.InputFromPageImage(page, []byte(img),
		ocr.WithLanguages(e.cfg.Languages...),
		ocr.WithDPI(int(e.cfg.RasterDPI)),
		ocr.WithTesseractPSM(11))
	res, err := e.engine.Recognize(pageCtx, in)
	if err != nil {
		return "", "ocr", err
	}
	ocrText := res.PlainText
	if strings.TrimSpace(ocrText) == "" && strings.TrimSpace(text) != "" {
		// OCR found nothing; fall back to whatever sparse text existed.
		return text, "", nil
	}
	return ocrText, "", nil
}

// runWithContext runs fn on its own goroutine so non-cancellable library
// calls still honor the page deadline. On timeout the goroutine is abandoned;
// its eventual result is discarded.
func runWithContext(ctx context.Context, fn func() (string, error)) (string, error) {
	type result struct {
		s   string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := fn()
		ch <- result{s, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.s, r.err
	}
}

func charDensity(text string) int {
	n := 0
	for _, r := range text {
		if r > ' ' {
			n++
		}
	}
	return n
}

// IsExtractionError reports whether err is (or wraps) an ExtractionError.
func IsExtractionError(err error) bool {
	var xe *ExtractionError
	return errors.As(err, &xe)
}
