// Package gdt validates geometric dimensioning and tolerancing callouts:
// feature-control-frame consistency, datum references, and material-condition
// modifiers.
package gdt

import (
	"context"
	"fmt"
	"strings"

	"github.com/wudi/drawcheck/drawing"
	"github.com/wudi/drawcheck/standards"
	"github.com/wudi/drawcheck/validation"
)

const standardRef = "ASME Y14.5-2018"

// Geometric characteristics this validator recognizes.
var knownSymbols = map[string]bool{
	"position": true, "flatness": true, "straightness": true,
	"circularity": true, "cylindricity": true, "perpendicularity": true,
	"parallelism": true, "angularity": true, "profile": true,
	"profile-line": true, "runout": true, "total-runout": true,
	"concentricity": true, "symmetry": true,
}

// Form tolerances control a feature against itself and must not reference
// datums.
var formSymbols = map[string]bool{
	"flatness": true, "straightness": true, "circularity": true,
	"cylindricity": true,
}

// Validator implements the GD&T domain checks.
type Validator struct{}

func New() *Validator { return &Validator{} }

func (v *Validator) Name() string { return "gdt" }

// Validate runs the ordered GD&T checklist over the extracted feature control
// frames and datum labels.
func (v *Validator) Validate(ctx context.Context, data *drawing.Data, std *standards.Store, params validation.Params) (*validation.Result, error) {
	res := &validation.Result{}

	if len(data.Frames) == 0 {
		msg := "no feature control frames extracted from the drawing"
		if data.Incomplete {
			msg += " (extraction was incomplete)"
		}
		res.AddInsufficientData("gdt-frames", msg,
			"confirm the drawing carries GD&T callouts or supply a readable copy")
		return res, nil
	}

	referenced := make(map[string]bool)
	for _, frame := range data.Frames {
		if err := validation.Cancelled(ctx); err != nil {
			return nil, err
		}
		v.checkFrame(res, data, frame, referenced)
	}

	// Declared datums nothing points at are usually leftovers from an edit.
	for _, label := range data.Datums {
		if referenced[label] {
			res.AddPass()
			continue
		}
		res.AddWarning(validation.Issue{
			CheckType:   "gdt-datum-unreferenced",
			Message:     fmt.Sprintf("datum %s is defined but never referenced by a feature control frame", label),
			Suggestion:  "remove the unused datum or add the intended callout",
			StandardRef: standardRef,
		})
	}

	return res, nil
}

func (v *Validator) checkFrame(res *validation.Result, data *drawing.Data, frame drawing.FeatureFrame, referenced map[string]bool) {
	loc := frame.Location

	if !knownSymbols[frame.Symbol] {
		res.AddWarning(validation.Issue{
			CheckType:   "gdt-symbol",
			Message:     fmt.Sprintf("unrecognized geometric characteristic %q in %q", frame.Symbol, frame.Raw),
			Location:    &loc,
			StandardRef: standardRef,
		})
		return
	}
	res.AddPass()

	if frame.Tolerance <= 0 {
		res.AddFailure(validation.Issue{
			CheckType:   "gdt-tolerance",
			Message:     fmt.Sprintf("%s callout states a non-positive tolerance %.4g", frame.Symbol, frame.Tolerance),
			Location:    &loc,
			Suggestion:  "state a positive tolerance zone size",
			StandardRef: standardRef,
		})
	} else {
		res.AddPass()
	}

	v.checkDatumRefs(res, data, frame, referenced)
	v.checkModifier(res, data, frame)
}

func (v *Validator) checkDatumRefs(res *validation.Result, data *drawing.Data, frame drawing.FeatureFrame, referenced map[string]bool) {
	loc := frame.Location

	if formSymbols[frame.Symbol] && len(frame.DatumRefs) > 0 {
		res.AddFailure(validation.Issue{
			CheckType: "gdt-form-datum",
			Message: fmt.Sprintf("form tolerance %s must not reference datums (found %s)",
				frame.Symbol, strings.Join(frame.DatumRefs, ", ")),
			Location:    &loc,
			Suggestion:  "remove the datum references from the form tolerance",
			StandardRef: standardRef + " §8",
		})
		return
	}

	seen := make(map[string]bool, len(frame.DatumRefs))
	for _, ref := range frame.DatumRefs {
		referenced[ref] = true
		if seen[ref] {
			res.AddFailure(validation.Issue{
				CheckType:   "gdt-datum-duplicate",
				Message:     fmt.Sprintf("datum %s appears twice in one feature control frame", ref),
				Location:    &loc,
				StandardRef: standardRef + " §7",
			})
			continue
		}
		seen[ref] = true

		if data.HasDatum(ref) {
			res.AddPass()
			continue
		}
		res.AddFailure(validation.Issue{
			CheckType:   "gdt-datum-missing",
			Message:     fmt.Sprintf("feature control frame references datum %s, which is not defined on the drawing", ref),
			Location:    &loc,
			Suggestion:  fmt.Sprintf("add a datum feature symbol for %s or correct the reference", ref),
			StandardRef: standardRef + " §7.3",
		})
	}
}

func (v *Validator) checkModifier(res *validation.Result, data *drawing.Data, frame drawing.FeatureFrame) {
	loc := frame.Location

	switch frame.Modifier {
	case "":
		return
	case "M":
		res.AddInfo(validation.Issue{
			CheckType:   "gdt-modifier",
			Message:     fmt.Sprintf("%s tolerance %.4g applies at MMC", frame.Symbol, frame.Tolerance),
			Location:    &loc,
			StandardRef: standardRef,
		})
		if frame.Symbol == "position" {
			v.noteBonusTolerance(res, data, frame)
		}
	case "L":
		res.AddInfo(validation.Issue{
			CheckType:   "gdt-modifier",
			Message:     fmt.Sprintf("%s tolerance %.4g applies at LMC", frame.Symbol, frame.Tolerance),
			Location:    &loc,
			StandardRef: standardRef,
		})
	case "S":
		res.AddWarning(validation.Issue{
			CheckType:   "gdt-modifier",
			Message:     "explicit RFS modifier is redundant; RFS applies by default",
			Location:    &loc,
			Suggestion:  "drop the (S) modifier",
			StandardRef: standardRef + " §5.9",
		})
	default:
		res.AddWarning(validation.Issue{
			CheckType:   "gdt-modifier",
			Message:     fmt.Sprintf("unrecognized material condition modifier %q", frame.Modifier),
			Location:    &loc,
			StandardRef: standardRef,
		})
	}
}

// noteBonusTolerance reports the additional position tolerance available as
// the feature departs from MMC, bounded by the feature's size tolerance span.
func (v *Validator) noteBonusTolerance(res *validation.Result, data *drawing.Data, frame drawing.FeatureFrame) {
	loc := frame.Location
	span := 0.0
	for _, dim := range data.Dimensions {
		if s := dim.ToleranceSpan(); s > span {
			span = s
		}
	}
	if span <= 0 {
		res.AddInfo(validation.Issue{
			CheckType: "gdt-bonus-tolerance",
			Message:   "bonus tolerance applies at MMC but no toleranced size dimension was extracted to bound it",
			Location:  &loc,
		})
		return
	}
	res.AddInfo(validation.Issue{
		CheckType: "gdt-bonus-tolerance",
		Message: fmt.Sprintf("position tolerance %.4g at MMC: up to %.4g bonus tolerance available (total %.4g at LMC)",
			frame.Tolerance, span, frame.Tolerance+span),
		Location:    &loc,
		StandardRef: standardRef + " §10.3",
	})
}
