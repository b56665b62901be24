// Package ocr defines abstraction layers for plugging third-party OCR engines
// (for example, Tesseract) into the drawing extraction pipeline. The
// interfaces are intentionally small and transport-agnostic so engines can be
// backed by native libraries or remote APIs without leaking provider-specific
// concerns into the extractor.
package ocr
