package ocr

import (
	"context"
	"testing"
)

func TestInputFromPageImage(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G'}
	in := InputFromPageImage(3, img,
		WithLanguages("eng"),
		WithDPI(300),
		WithTesseractPSM(11),
	)

	if in.ID != "page-3" {
		t.Errorf("ID = %q, want page-3", in.ID)
	}
	if in.PageIndex != 3 {
		t.Errorf("PageIndex = %d, want 3", in.PageIndex)
	}
	if in.Format != ImageFormatPNG {
		t.Errorf("Format = %q, want PNG", in.Format)
	}
	if in.DPI != 300 {
		t.Errorf("DPI = %d, want 300", in.DPI)
	}
	if len(in.Languages) != 1 || in.Languages[0] != "eng" {
		t.Errorf("Languages = %v", in.Languages)
	}
	if in.Metadata["tessedit_pageseg_mode"] != "11" {
		t.Errorf("psm metadata = %q", in.Metadata["tessedit_pageseg_mode"])
	}
}

func TestWithRegionEmptyClears(t *testing.T) {
	in := InputFromPageImage(0, nil, WithRegion(Region{Width: 10, Height: 10}))
	if in.Region == nil {
		t.Fatal("region not set")
	}
	WithRegion(Region{})(&in)
	if in.Region != nil {
		t.Error("empty region should clear")
	}
}

type fakeEngine struct {
	calls int
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	f.calls++
	return Result{InputID: in.ID, PlainText: "TEXT"}, nil
}

func TestRecognizeSequentialFallback(t *testing.T) {
	eng := &fakeEngine{}
	inputs := []Input{InputFromPageImage(0, nil), InputFromPageImage(1, nil)}

	results, err := Recognize(context.Background(), eng, inputs)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(results) != 2 || eng.calls != 2 {
		t.Errorf("results=%d calls=%d, want 2/2", len(results), eng.calls)
	}
	if results[1].InputID != "page-1" {
		t.Errorf("InputID = %q", results[1].InputID)
	}
}

func TestRecognizeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Recognize(ctx, &fakeEngine{}, []Input{InputFromPageImage(0, nil)})
	if err == nil {
		t.Error("expected context error")
	}
}

func TestDefaultEngineIsNoop(t *testing.T) {
	res, err := DefaultEngine().Recognize(context.Background(), InputFromPageImage(0, nil))
	if err != nil {
		t.Fatalf("noop Recognize failed: %v", err)
	}
	if res.PlainText != "" {
		t.Errorf("noop produced text %q", res.PlainText)
	}
}
