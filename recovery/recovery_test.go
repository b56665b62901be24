package recovery

import (
	"context"
	"errors"
	"testing"
)

func TestStrictFailsFast(t *testing.T) {
	s := NewStrictStrategy()
	if got := s.OnError(context.Background(), errors.New("boom"), Location{Page: 2, Stage: "ocr"}); got != ActionFail {
		t.Errorf("strict OnError = %v, want ActionFail", got)
	}
}

func TestLenientDegradesAndAccumulates(t *testing.T) {
	s := NewLenientStrategy()
	if got := s.OnError(context.Background(), errors.New("raster failed"), Location{Page: 0, Stage: "raster"}); got != ActionDegrade {
		t.Errorf("lenient OnError = %v, want ActionDegrade", got)
	}
	s.OnError(context.Background(), errors.New("ocr failed"), Location{Page: 1, Stage: "ocr"})
	if len(s.Errors) != 2 {
		t.Fatalf("accumulated %d errors, want 2", len(s.Errors))
	}
	if got := s.Errors[0].Error(); got != "[raster] page 0: raster failed" {
		t.Errorf("error text = %q", got)
	}
}
