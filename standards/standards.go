// Package standards holds the offline reference tables the rule validators
// consult: structural shapes, bolting, material specifications, pipe
// schedules, and welding code limits. The dataset is loaded once from
// embedded YAML and is immutable afterwards, so a single Store can be shared
// by any number of concurrent validation requests.
package standards

import "strings"

// Category identifies which reference table a record belongs to.
type Category string

const (
	CategoryBeam      Category = "beam"
	CategoryBolt      Category = "bolt"
	CategoryMaterial  Category = "material"
	CategoryPipe      Category = "pipe"
	CategoryCodeLimit Category = "codelimit"
)

// Record is one row of a reference table. Numeric properties are keyed by
// snake_case names taken from the source table column headings; non-numeric
// attributes (heat treatment condition, product form) live in Attrs.
type Record struct {
	Category    Category
	Designation string
	Properties  map[string]float64
	Attrs       map[string]string
	SourceTable string
}

// Property returns a numeric property and whether it is present.
func (r Record) Property(name string) (float64, bool) {
	v, ok := r.Properties[name]
	return v, ok
}

// Attr returns a string attribute, or "" when absent.
func (r Record) Attr(name string) string { return r.Attrs[name] }

// NormalizeDesignation canonicalizes a designation for lookup: uppercase,
// interior whitespace collapsed, so "w8x31", "W8 X 31" and "W8X31" all hit
// the same row.
func NormalizeDesignation(d string) string {
	d = strings.ToUpper(strings.TrimSpace(d))
	return strings.Join(strings.Fields(d), " ")
}

// FilletBracket is one base-metal-thickness bracket of the minimum fillet
// weld size table. Bracket membership is lower-exclusive, upper-inclusive:
// a thickness exactly at MaxThickness belongs to this bracket. MaxThickness
// zero marks the open-ended final bracket.
type FilletBracket struct {
	MaxThickness float64 `yaml:"max_thickness_in"`
	MinSize      float64 `yaml:"min_size_in"`
}

// CodeLimits carries the welding and weldability constants drawn from the
// governing codes, plus the checklist phase pass thresholds.
type CodeLimits struct {
	FilletMinTable     string          `yaml:"fillet_min_table"`
	FilletBrackets     []FilletBracket `yaml:"fillet_brackets"`
	EffectiveThroat    float64         `yaml:"effective_throat_factor"`
	ThinEdgeLimit      float64         `yaml:"thin_edge_limit_in"`
	MaxFilletMargin    float64         `yaml:"max_fillet_edge_margin_in"`
	CarbonEquivLimit   float64         `yaml:"carbon_equivalent_limit"`
	WeightTolerancePct float64         `yaml:"weight_tolerance_pct"`
	PhaseThreshold     float64         `yaml:"phase_pass_threshold"`
	PhaseOverrides     map[string]float64 `yaml:"phase_threshold_overrides"`
}

// ChecklistThreshold returns the pass-rate threshold for a checklist phase.
func (c CodeLimits) ChecklistThreshold(phase string) float64 {
	if v, ok := c.PhaseOverrides[phase]; ok {
		return v
	}
	return c.PhaseThreshold
}
