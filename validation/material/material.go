// Package material validates material designations and mill-test-report
// values against the allowable chemistry and mechanical ranges of the cited
// ASTM specification, and computes weldability indicators.
package material

import (
	"context"
	"fmt"
	"strings"

	"github.com/wudi/drawcheck/drawing"
	"github.com/wudi/drawcheck/standards"
	"github.com/wudi/drawcheck/validation"
)

// Chemistry element keys in reporting order.
var elements = []string{"c", "mn", "p", "s", "si", "cr", "mo", "v", "ni", "cu"}

// Validator implements the material domain checks.
type Validator struct{}

func New() *Validator { return &Validator{} }

func (v *Validator) Name() string { return "material" }

// Validate checks every extracted material spec: designation known, chemistry
// within the specification ranges, mechanical properties within limits,
// carbon equivalent, and heat-treatment condition.
func (v *Validator) Validate(ctx context.Context, data *drawing.Data, std *standards.Store, params validation.Params) (*validation.Result, error) {
	res := &validation.Result{}

	if len(data.Materials) == 0 {
		msg := "no material specifications extracted from the drawing"
		if data.Incomplete {
			msg += " (extraction was incomplete)"
		}
		res.AddInsufficientData("material-spec", msg,
			"confirm the drawing states a material designation")
		return res, nil
	}

	for _, spec := range data.Materials {
		if err := validation.Cancelled(ctx); err != nil {
			return nil, err
		}
		v.checkSpec(res, std, spec)
	}
	return res, nil
}

func (v *Validator) checkSpec(res *validation.Result, std *standards.Store, spec drawing.MaterialSpec) {
	loc := spec.Location
	designation := spec.Designation
	if spec.Grade != "" {
		designation += " GR " + spec.Grade
	}

	rec, ok := std.Lookup(standards.CategoryMaterial, designation)
	if !ok {
		rec, ok = std.Lookup(standards.CategoryMaterial, spec.Designation)
	}
	if !ok {
		res.AddWarning(validation.Issue{
			CheckType:  "material-designation",
			Message:    fmt.Sprintf("material designation %q is not in the reference tables", designation),
			Location:   &loc,
			Suggestion: "verify the designation or extend the standards dataset",
		})
		return
	}
	res.AddPass()

	v.checkChemistry(res, rec, spec)
	v.checkMechanicals(res, rec, spec)
	v.checkCarbonEquivalent(res, std, rec, spec)
	v.checkHeatTreatment(res, rec, spec)
}

func (v *Validator) checkChemistry(res *validation.Result, rec standards.Record, spec drawing.MaterialSpec) {
	loc := spec.Location
	checked := false
	for _, el := range elements {
		actual, have := spec.Properties[el]
		min, hasMin := rec.Property(el + "_min")
		max, hasMax := rec.Property(el + "_max")
		if !hasMin && !hasMax {
			continue
		}
		if !have {
			continue
		}
		checked = true
		switch {
		case hasMax && actual > max:
			res.AddFailure(validation.Issue{
				CheckType: "material-chemistry",
				Message: fmt.Sprintf("%s: %s content %.3f exceeds maximum %.3f for %s",
					rec.Designation, strings.ToUpper(el), actual, max, rec.Designation),
				Location:    &loc,
				Suggestion:  "reject the heat or obtain an engineering disposition",
				StandardRef: rec.SourceTable,
			})
		case hasMin && actual < min:
			res.AddFailure(validation.Issue{
				CheckType: "material-chemistry",
				Message: fmt.Sprintf("%s: %s content %.3f is below minimum %.3f",
					rec.Designation, strings.ToUpper(el), actual, min),
				Location:    &loc,
				StandardRef: rec.SourceTable,
			})
		default:
			res.AddPass()
		}
	}
	if !checked {
		res.AddInsufficientData("material-chemistry",
			fmt.Sprintf("no MTR chemistry values extracted for %s", rec.Designation),
			"attach the mill test report values to the drawing data")
	}
}

// Mechanical property limits: extracted key -> record bounds.
var mechanicals = []struct {
	key      string
	minProp  string
	maxProp  string
	label    string
	unit     string
}{
	{"yield_ksi", "yield_min_ksi", "yield_max_ksi", "yield strength", "ksi"},
	{"tensile_ksi", "tensile_min_ksi", "tensile_max_ksi", "tensile strength", "ksi"},
	{"elongation_pct", "elongation_min_pct", "", "elongation", "%"},
}

func (v *Validator) checkMechanicals(res *validation.Result, rec standards.Record, spec drawing.MaterialSpec) {
	loc := spec.Location
	checked := false
	for _, m := range mechanicals {
		actual, have := spec.Properties[m.key]
		if !have {
			continue
		}
		checked = true
		if min, ok := rec.Property(m.minProp); ok && actual < min {
			res.AddFailure(validation.Issue{
				CheckType: "material-mechanical",
				Message: fmt.Sprintf("%s: %s %.1f %s is below minimum %.1f %s",
					rec.Designation, m.label, actual, m.unit, min, m.unit),
				Location:    &loc,
				Suggestion:  "reject the heat or obtain an engineering disposition",
				StandardRef: rec.SourceTable,
			})
			continue
		}
		if m.maxProp != "" {
			if max, ok := rec.Property(m.maxProp); ok && actual > max {
				res.AddFailure(validation.Issue{
					CheckType: "material-mechanical",
					Message: fmt.Sprintf("%s: %s %.1f %s exceeds maximum %.1f %s",
						rec.Designation, m.label, actual, m.unit, max, m.unit),
					Location:    &loc,
					StandardRef: rec.SourceTable,
				})
				continue
			}
		}
		res.AddPass()
	}
	if !checked {
		res.AddInsufficientData("material-mechanical",
			fmt.Sprintf("no mechanical test values extracted for %s", rec.Designation),
			"attach the mill test report values to the drawing data")
	}
}

// checkCarbonEquivalent computes the IIW carbon equivalent
// CE = C + Mn/6 + (Cr+Mo+V)/5 + (Ni+Cu)/15 when carbon and manganese are
// reported.
func (v *Validator) checkCarbonEquivalent(res *validation.Result, std *standards.Store, rec standards.Record, spec drawing.MaterialSpec) {
	loc := spec.Location
	c, haveC := spec.Properties["c"]
	mn, haveMn := spec.Properties["mn"]
	if !haveC || !haveMn {
		return
	}
	ce := c + mn/6 +
		(spec.Properties["cr"]+spec.Properties["mo"]+spec.Properties["v"])/5 +
		(spec.Properties["ni"]+spec.Properties["cu"])/15

	limit := std.Limits().CarbonEquivLimit
	if ce > limit {
		res.AddWarning(validation.Issue{
			CheckType: "material-carbon-equivalent",
			Message: fmt.Sprintf("%s: carbon equivalent %.3f exceeds %.2f, weldability is reduced",
				rec.Designation, ce, limit),
			Location:    &loc,
			Suggestion:  "specify preheat and low-hydrogen electrodes per AWS D1.1 Annex B",
			StandardRef: "IIW CE formula; AWS D1.1:2020 Annex B",
		})
		return
	}
	res.AddPassWithNote(validation.Issue{
		CheckType: "material-carbon-equivalent",
		Message:   fmt.Sprintf("%s: carbon equivalent %.3f (limit %.2f)", rec.Designation, ce, limit),
		Location:  &loc,
	})
}

func (v *Validator) checkHeatTreatment(res *validation.Result, rec standards.Record, spec drawing.MaterialSpec) {
	loc := spec.Location
	required := rec.Attr("heat_treatment")
	if required == "" {
		return
	}
	if spec.HeatTreatment == "" {
		res.AddInsufficientData("material-heat-treatment",
			fmt.Sprintf("%s requires %s condition but the drawing does not state one", rec.Designation, required),
			"state the supply condition on the drawing or MTR")
		return
	}
	if normalizeCondition(spec.HeatTreatment) != normalizeCondition(required) {
		res.AddFailure(validation.Issue{
			CheckType: "material-heat-treatment",
			Message: fmt.Sprintf("%s: stated condition %q does not match required %q",
				rec.Designation, spec.HeatTreatment, required),
			Location:    &loc,
			Suggestion:  fmt.Sprintf("supply the material in the %s condition", required),
			StandardRef: rec.SourceTable,
		})
		return
	}
	res.AddPass()
}

func normalizeCondition(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "-")
}

// KnownElements returns the chemistry keys this validator understands, in
// reporting order. Used by the extractor's property tokenizer.
func KnownElements() []string {
	out := make([]string, len(elements))
	copy(out, elements)
	return out
}
