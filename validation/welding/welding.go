// Package welding validates weld callouts against the minimum and maximum
// fillet sizes of the structural welding code.
package welding

import (
	"context"
	"fmt"

	"github.com/wudi/drawcheck/drawing"
	"github.com/wudi/drawcheck/standards"
	"github.com/wudi/drawcheck/validation"
)

// Thickness greater than this is assumed to be a member length or plate
// width, not a base-metal thickness.
const thicknessCap = 4.0

// Validator implements the welding domain checks.
type Validator struct{}

func New() *Validator { return &Validator{} }

func (v *Validator) Name() string { return "welding" }

// Validate runs the ordered weld checklist: per callout, minimum permissible
// size for the base-metal thickness bracket, maximum size along the joined
// edge, and the effective throat computed as an informational note.
func (v *Validator) Validate(ctx context.Context, data *drawing.Data, std *standards.Store, params validation.Params) (*validation.Result, error) {
	res := &validation.Result{}

	if len(data.Welds) == 0 {
		msg := "no weld callouts extracted from the drawing"
		if data.Incomplete {
			msg += " (extraction was incomplete)"
		}
		res.AddInsufficientData("weld-callouts", msg,
			"confirm the drawing contains weld symbols or supply a readable copy")
		return res, nil
	}

	thickness := v.baseThickness(data, params)

	for _, weld := range data.Welds {
		if err := validation.Cancelled(ctx); err != nil {
			return nil, err
		}
		v.checkCallout(res, std, weld, thickness)
	}
	return res, nil
}

// baseThickness resolves the governing base-metal thickness: an explicit
// request parameter wins, otherwise the thickest extracted dimension that is
// plausibly a thickness.
func (v *Validator) baseThickness(data *drawing.Data, params validation.Params) float64 {
	if t, ok := params.Get("base_thickness"); ok && t > 0 {
		return t
	}
	return data.ThickestDimension(thicknessCap)
}

func (v *Validator) checkCallout(res *validation.Result, std *standards.Store, weld drawing.WeldCallout, thickness float64) {
	loc := weld.Location

	if weld.Type != "fillet" {
		// Size brackets govern fillets only; other weld types get a
		// completeness check.
		if weld.Size > 0 {
			res.AddPass()
		} else {
			res.AddInsufficientData("weld-size",
				fmt.Sprintf("%s weld callout does not state a size", weld.Type),
				"add the groove or weld size to the callout")
		}
		return
	}

	if weld.Size <= 0 {
		res.AddInsufficientData("weld-size",
			"fillet weld callout does not state a leg size",
			"add the fillet leg size to the callout")
		return
	}
	if thickness <= 0 {
		res.AddInsufficientData("weld-min-size",
			fmt.Sprintf("cannot verify %.4g in fillet weld: base-metal thickness unknown", weld.Size),
			"supply the base-metal thickness as a check parameter")
		return
	}

	limits := std.Limits()

	minSize, bracket, ok := std.MinFilletSize(thickness)
	if !ok {
		res.AddInsufficientData("weld-min-size",
			fmt.Sprintf("no minimum-size bracket for %.4g in base metal", thickness), "")
		return
	}
	throat := limits.EffectiveThroat * weld.Size
	if weld.Size < minSize {
		res.AddFailure(validation.Issue{
			Severity:  validation.SeverityCritical,
			CheckType: "weld-min-size",
			Message: fmt.Sprintf("fillet weld size %.4g in is below minimum %.4g in for %.4g in base metal",
				weld.Size, minSize, thickness),
			Location:    &loc,
			Suggestion:  fmt.Sprintf("increase the fillet leg to at least %.4g in", minSize),
			StandardRef: limits.FilletMinTable,
		})
	} else {
		res.AddPassWithNote(validation.Issue{
			CheckType: "weld-throat",
			Message: fmt.Sprintf("fillet weld %.4g in (bracket max %.4g in): effective throat %.3f in",
				weld.Size, bracket.MaxThickness, throat),
			Location:    &loc,
			StandardRef: limits.FilletMinTable,
		})
	}

	maxSize, ok := std.MaxFilletSize(thickness)
	if !ok {
		return
	}
	if weld.Size > maxSize {
		res.AddWarning(validation.Issue{
			CheckType: "weld-max-size",
			Message: fmt.Sprintf("fillet weld size %.4g in exceeds maximum %.4g in along a %.4g in edge",
				weld.Size, maxSize, thickness),
			Location:    &loc,
			Suggestion:  "verify the joined edge thickness or reduce the weld size",
			StandardRef: "AWS D1.1:2020 cl. 5.8",
		})
	} else {
		res.AddPass()
	}
}
