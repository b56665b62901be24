// Package drawing defines the structured data extracted from an engineering
// drawing. The types are a plain vocabulary shared between the extractor and
// the rule validators: produced once per request, then treated as read-only.
package drawing

// Region describes a rectangular area in page coordinates with the origin in
// the upper-left corner of the page.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Location ties an extracted token or a validation issue to a page region.
// Page is zero-based.
type Location struct {
	Page   int    `json:"page"`
	Region Region `json:"region,omitempty"`
}

// WeldSides indicates which side(s) of the joint a weld callout applies to.
type WeldSides string

const (
	WeldSideArrow WeldSides = "arrow"
	WeldSideOther WeldSides = "other"
	WeldSideBoth  WeldSides = "both"
)

// WeldCallout is one weld symbol read off the drawing. Size is the leg or
// groove dimension in inches; zero means the callout did not state one.
type WeldCallout struct {
	Size      float64   `json:"size"`
	Type      string    `json:"type"` // fillet, groove, plug, slot, spot, seam
	Sides     WeldSides `json:"sides"`
	AllAround bool      `json:"allAround,omitempty"`
	FieldWeld bool      `json:"fieldWeld,omitempty"`
	Location  Location  `json:"location"`
	Raw       string    `json:"raw,omitempty"`
}

// MaterialSpec is a material designation found on the drawing together with
// any property values stated alongside it (MTR chemistry and mechanicals).
// Property keys are lowercase element symbols (c, mn, p, ...) or mechanical
// names (yield_ksi, tensile_ksi, elongation_pct).
type MaterialSpec struct {
	Designation   string             `json:"designation"`
	Grade         string             `json:"grade,omitempty"`
	HeatTreatment string             `json:"heatTreatment,omitempty"`
	Properties    map[string]float64 `json:"properties,omitempty"`
	Location      Location           `json:"location"`
}

// Dimension is a toleranced linear dimension. Plus/Minus are the stated
// tolerance magnitudes; both zero means an untoleranced reference dimension.
type Dimension struct {
	Value    float64  `json:"value"`
	Unit     string   `json:"unit"` // in, mm, ft, deg
	Plus     float64  `json:"plus,omitempty"`
	Minus    float64  `json:"minus,omitempty"`
	Location Location `json:"location"`
}

// ToleranceSpan is the total size tolerance available on the dimension.
func (d Dimension) ToleranceSpan() float64 { return d.Plus + d.Minus }

// FeatureFrame is a parsed feature-control-frame token: geometric symbol,
// tolerance value, optional material-condition modifier, and the referenced
// datums in precedence order.
type FeatureFrame struct {
	Symbol    string   `json:"symbol"` // position, flatness, perpendicularity, ...
	Tolerance float64  `json:"tolerance"`
	Modifier  string   `json:"modifier,omitempty"` // M, L, S
	DatumRefs []string `json:"datumRefs,omitempty"`
	Location  Location `json:"location"`
	Raw       string   `json:"raw,omitempty"`
}

// Metadata is the title-block content of the drawing.
type Metadata struct {
	DrawingNumber string `json:"drawingNumber,omitempty"`
	Revision      string `json:"revision,omitempty"`
	Title         string `json:"title,omitempty"`
	SheetCount    int    `json:"sheetCount"`
}

// Data is everything extracted from one drawing. Incomplete is set when some
// pages contributed nothing (timeout, OCR failure); validators must degrade
// affected checks to insufficient-data issues rather than fail.
type Data struct {
	Datums       []string       `json:"datums,omitempty"`
	Welds        []WeldCallout  `json:"welds,omitempty"`
	Materials    []MaterialSpec `json:"materials,omitempty"`
	Dimensions   []Dimension    `json:"dimensions,omitempty"`
	Frames       []FeatureFrame `json:"frames,omitempty"`
	Metadata     Metadata       `json:"metadata"`
	Text         string         `json:"-"` // merged page text, for keyword checks
	Incomplete   bool           `json:"incomplete,omitempty"`
	MissingPages []int          `json:"missingPages,omitempty"`
}

// HasDatum reports whether the datum label was extracted.
func (d *Data) HasDatum(label string) bool {
	for _, l := range d.Datums {
		if l == label {
			return true
		}
	}
	return false
}

// ThickestDimension returns the largest plausible base-metal thickness among
// the extracted dimensions (inches, capped at the given limit), or zero when
// none qualifies.
func (d *Data) ThickestDimension(capIn float64) float64 {
	var best float64
	for _, dim := range d.Dimensions {
		v := dim.Value
		switch dim.Unit {
		case "mm":
			v /= 25.4
		case "in", "":
		default:
			continue
		}
		if v > best && v <= capIn {
			best = v
		}
	}
	return best
}
