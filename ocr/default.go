package ocr

import "context"

var defaultEngine Engine = &noopEngine{}

// DefaultEngine returns the process-wide default OCR engine. Importing the
// tesseract subpackage replaces the noop default with a Tesseract-backed one.
func DefaultEngine() Engine {
	return defaultEngine
}

// SetDefaultEngine sets the process-wide default OCR engine.
func SetDefaultEngine(engine Engine) {
	defaultEngine = engine
}

// Recognize runs an engine over a set of inputs, using batch operation when
// the engine supports it.
func Recognize(ctx context.Context, engine Engine, inputs []Input) ([]Result, error) {
	if b, ok := engine.(BatchEngine); ok {
		return b.RecognizeBatch(ctx, inputs)
	}
	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res, err := engine.Recognize(ctx, in)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// noopEngine recognizes nothing. Extraction treats its empty results as
// unreadable pages, which keeps the pipeline functional on builds without a
// linked OCR provider.
type noopEngine struct{}

func (noopEngine) Name() string { return "noop" }

func (noopEngine) Recognize(ctx context.Context, input Input) (Result, error) {
	return Result{InputID: input.ID}, nil
}
