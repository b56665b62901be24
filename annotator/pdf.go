package annotator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/drawcheck/extractor"
	"github.com/wudi/drawcheck/observability"
	"github.com/wudi/drawcheck/validation"
)

const (
	defaultAnnotateDPI = 150
	markerStroke       = 3 // pixels
	labelPad           = 2
)

// PDFAnnotator rasterizes each source page, draws severity-colored markers at
// issue regions, and reassembles the pages into a new PDF. Issues without a
// location land on a trailing summary page.
type PDFAnnotator struct {
	open extractor.Opener
	dpi  float64
	log  observability.Logger
}

// PDFOption configures a PDFAnnotator.
type PDFOption func(*PDFAnnotator)

// WithOpener substitutes the document opener; tests use this.
func WithOpener(open extractor.Opener) PDFOption {
	return func(a *PDFAnnotator) { a.open = open }
}

// WithDPI sets the raster resolution of the annotated pages.
func WithDPI(dpi float64) PDFOption {
	return func(a *PDFAnnotator) { a.dpi = dpi }
}

// WithLogger sets the logger.
func WithLogger(log observability.Logger) PDFOption {
	return func(a *PDFAnnotator) { a.log = log }
}

// NewPDFAnnotator constructs the PDF backend.
func NewPDFAnnotator(opts ...PDFOption) *PDFAnnotator {
	a := &PDFAnnotator{
		open: extractor.OpenFitz,
		dpi:  defaultAnnotateDPI,
		log:  observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Available reports whether the backend has an opener to work with.
func (a *PDFAnnotator) Available() bool { return a.open != nil }

// Annotate produces an annotated PDF copy of the drawing.
func (a *PDFAnnotator) Annotate(ctx context.Context, document []byte, issues []validation.Issue) (*Document, error) {
	doc, err := a.open(document)
	if err != nil {
		return nil, fmt.Errorf("annotate: open document: %w", err)
	}
	defer doc.Close()

	n := doc.NumPages()
	located := make(map[int][]validation.Issue)
	var unlocated []validation.Issue
	for _, iss := range issues {
		if iss.Location != nil && iss.Location.Page >= 0 && iss.Location.Page < n {
			located[iss.Location.Page] = append(located[iss.Location.Page], iss)
		} else {
			unlocated = append(unlocated, iss)
		}
	}

	pdf := gofpdf.New("L", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for page := 0; page < n; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("annotate: %w", err)
		}
		img, err := doc.PageImage(page, a.dpi)
		if err != nil {
			return nil, fmt.Errorf("annotate: raster page %d: %w", page, err)
		}
		rgba := toRGBA(img)
		for _, iss := range located[page] {
			a.drawMarker(rgba, iss)
		}
		if err := a.appendImagePage(pdf, rgba, page); err != nil {
			return nil, err
		}
	}

	if len(unlocated) > 0 {
		appendSummaryPage(pdf, unlocated)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("annotate: assemble pdf: %w", err)
	}
	pages := n
	if len(unlocated) > 0 {
		pages++
	}
	a.log.Info("drawing annotated",
		observability.Int("pages", pages),
		observability.Int("issues", len(issues)))
	return &Document{Bytes: buf.Bytes(), MediaType: "application/pdf", PageCount: pages}, nil
}

// drawMarker outlines the issue region and labels it with the check type. The
// region is in page points; the raster is dpi-scaled.
func (a *PDFAnnotator) drawMarker(img *image.RGBA, iss validation.Issue) {
	scale := a.dpi / 72
	reg := iss.Location.Region
	bounds := img.Bounds()
	rect := image.Rect(
		int(reg.X*scale), int(reg.Y*scale),
		int((reg.X+reg.Width)*scale), int((reg.Y+reg.Height)*scale),
	)
	if reg.IsEmpty() {
		// Point-like location: a small fixed box around the anchor.
		cx, cy := int(reg.X*scale), int(reg.Y*scale)
		rect = image.Rect(cx-12, cy-12, cx+12, cy+12)
	}
	rect = rect.Intersect(bounds)
	if rect.Empty() {
		return
	}

	r, g, b := markerColor(iss.Severity)
	c := color.RGBA{r, g, b, 0xFF}
	for s := 0; s < markerStroke; s++ {
		strokeRect(img, rect.Inset(-s), c)
	}

	label := iss.CheckType
	face := basicfont.Face7x13
	w := font.MeasureString(face, label).Ceil() + 2*labelPad
	h := face.Metrics().Height.Ceil() + 2*labelPad
	lx, ly := rect.Min.X, rect.Min.Y-h
	if ly < bounds.Min.Y {
		ly = rect.Max.Y
	}
	if lx+w > bounds.Max.X {
		lx = bounds.Max.X - w
	}
	labelRect := image.Rect(lx, ly, lx+w, ly+h).Intersect(bounds)
	draw.Draw(img, labelRect, &image.Uniform{c}, image.Point{}, draw.Src)
	d := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(lx + labelPad),
			Y: fixed.I(ly + labelPad + face.Metrics().Ascent.Ceil()),
		},
	}
	d.DrawString(label)
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

// appendImagePage adds one rasterized page to the output, sized so the image
// fills the page at its native aspect ratio.
func (a *PDFAnnotator) appendImagePage(pdf *gofpdf.Fpdf, img *image.RGBA, page int) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("annotate: encode page %d: %w", page, err)
	}
	wPt := float64(img.Bounds().Dx()) * 72 / a.dpi
	hPt := float64(img.Bounds().Dy()) * 72 / a.dpi
	pdf.AddPageFormat("L", gofpdf.SizeType{Wd: wPt, Ht: hPt})
	name := fmt.Sprintf("page-%d", page)
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	pdf.ImageOptions(name, 0, 0, wPt, hPt, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	return pdf.Error()
}

// appendSummaryPage lists issues that carry no drawing location.
func appendSummaryPage(pdf *gofpdf.Fpdf, issues []validation.Issue) {
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: 612, Ht: 792})
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(36, 36)
	pdf.CellFormat(0, 20, "Findings without a drawing location", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, iss := range issues {
		r, g, b := markerColor(iss.Severity)
		pdf.SetTextColor(int(r), int(g), int(b))
		pdf.SetX(36)
		line := fmt.Sprintf("[%s] %s: %s", iss.Severity, iss.CheckType, iss.Message)
		pdf.MultiCell(540, 14, line, "", "L", false)
	}
	pdf.SetTextColor(0, 0, 0)
}

// toRGBA converts any raster into a mutable RGBA canvas.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

var _ Annotator = (*PDFAnnotator)(nil)
