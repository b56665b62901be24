package extractor

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/wudi/drawcheck/ocr"
	"github.com/wudi/drawcheck/recovery"
)

// fakeDocument serves canned page text; pages mapped to "" simulate scanned
// pages with no text layer.
type fakeDocument struct {
	pages     []string
	textErr   map[int]error
	textDelay map[int]time.Duration
	imageErr  map[int]error
}

func (f *fakeDocument) NumPages() int { return len(f.pages) }

func (f *fakeDocument) PageText(page int) (string, error) {
	if d, ok := f.textDelay[page]; ok {
		time.Sleep(d)
	}
	if err, ok := f.textErr[page]; ok {
		return "", err
	}
	return f.pages[page], nil
}

func (f *fakeDocument) PageImage(page int, dpi float64) (image.Image, error) {
	if err, ok := f.imageErr[page]; ok {
		return nil, err
	}
	return image.NewGray(image.Rect(0, 0, 8, 8)), nil
}

func (f *fakeDocument) Close() error { return nil }

func fakeOpener(doc *fakeDocument) Opener {
	return func([]byte) (Document, error) { return doc, nil }
}

// scriptedEngine returns fixed text per page index.
type scriptedEngine struct {
	text map[int]string
	err  error
}

func (s *scriptedEngine) Name() string { return "scripted" }

func (s *scriptedEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if s.err != nil {
		return ocr.Result{}, s.err
	}
	return ocr.Result{InputID: in.ID, PlainText: s.text[in.PageIndex]}, nil
}

const drawingText = `TITLE: SUPPORT FRAME
DWG NO: D-100 REV A
DATUM [A] [B]
POS|0.010|M|A|B
1/4 FILLET BOTH SIDES
ASTM A36
0.375 ±0.010`

func TestExtractTextLayer(t *testing.T) {
	doc := &fakeDocument{pages: []string{drawingText}}
	e := New(Config{}, WithOpener(fakeOpener(doc)))

	data, err := e.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if data.Incomplete {
		t.Error("clean extraction must not be incomplete")
	}
	if len(data.Datums) != 2 || len(data.Frames) != 1 || len(data.Welds) != 1 || len(data.Materials) != 1 {
		t.Errorf("extracted %d datums, %d frames, %d welds, %d materials",
			len(data.Datums), len(data.Frames), len(data.Welds), len(data.Materials))
	}
	if data.Metadata.DrawingNumber != "D-100" || data.Metadata.SheetCount != 1 {
		t.Errorf("metadata = %+v", data.Metadata)
	}
}

func TestExtractOCRFallbackForSparsePage(t *testing.T) {
	doc := &fakeDocument{pages: []string{""}}
	eng := &scriptedEngine{text: map[int]string{0: drawingText}}
	e := New(Config{}, WithOpener(fakeOpener(doc)), WithEngine(eng))

	data, err := e.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(data.Welds) != 1 {
		t.Errorf("OCR text not parsed: %+v", data.Welds)
	}
	if data.Incomplete {
		t.Error("successful OCR fallback must not flag incomplete")
	}
}

func TestExtractFailsWhenNothingUsable(t *testing.T) {
	doc := &fakeDocument{pages: []string{"", ""}}
	eng := &scriptedEngine{} // OCR yields nothing
	e := New(Config{}, WithOpener(fakeOpener(doc)), WithEngine(eng))

	_, err := e.Extract(context.Background(), nil)
	if err == nil {
		t.Fatal("expected ExtractionError")
	}
	if !IsExtractionError(err) {
		t.Errorf("error type = %T", err)
	}
	if !strings.Contains(err.Error(), "no page produced usable content") {
		t.Errorf("error = %v", err)
	}
}

func TestExtractDegradesFailedPage(t *testing.T) {
	doc := &fakeDocument{
		pages:   []string{drawingText, ""},
		textErr: map[int]error{1: errors.New("decode failure")},
	}
	e := New(Config{}, WithOpener(fakeOpener(doc)))

	data, err := e.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !data.Incomplete {
		t.Error("degraded page must flag incomplete")
	}
	if len(data.MissingPages) != 1 || data.MissingPages[0] != 1 {
		t.Errorf("MissingPages = %v, want [1]", data.MissingPages)
	}
}

func TestExtractStrictStrategyFailsFast(t *testing.T) {
	doc := &fakeDocument{
		pages:   []string{drawingText},
		textErr: map[int]error{0: errors.New("decode failure")},
	}
	e := New(Config{}, WithOpener(fakeOpener(doc)), WithStrategy(recovery.NewStrictStrategy()))

	_, err := e.Extract(context.Background(), nil)
	if !IsExtractionError(err) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestExtractPageTimeoutDegrades(t *testing.T) {
	doc := &fakeDocument{
		pages:     []string{drawingText, drawingText},
		textDelay: map[int]time.Duration{1: 200 * time.Millisecond},
	}
	e := New(Config{PageTimeout: 20 * time.Millisecond}, WithOpener(fakeOpener(doc)))

	data, err := e.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !data.Incomplete || len(data.MissingPages) != 1 {
		t.Errorf("timeout should degrade: incomplete=%v missing=%v", data.Incomplete, data.MissingPages)
	}
}

func TestExtractHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := &fakeDocument{pages: []string{drawingText}}
	e := New(Config{}, WithOpener(fakeOpener(doc)))

	_, err := e.Extract(ctx, nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestExtractOCRErrorDegrades(t *testing.T) {
	doc := &fakeDocument{pages: []string{drawingText, ""}}
	eng := &scriptedEngine{err: errors.New("tesseract unavailable")}
	e := New(Config{}, WithOpener(fakeOpener(doc)), WithEngine(eng))

	data, err := e.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !data.Incomplete || len(data.MissingPages) != 1 {
		t.Errorf("OCR failure should degrade page 1: %+v", data)
	}
}
