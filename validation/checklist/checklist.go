// Package checklist evaluates the multi-phase equipment checklist: an ordered
// list of lifecycle checks grouped into phases, each judged against the
// evidence extracted from the drawing. Items that cannot be judged for lack
// of evidence degrade to insufficient-data notes instead of failing.
package checklist

import (
	"context"
	"fmt"
	"strings"

	"github.com/wudi/drawcheck/drawing"
	"github.com/wudi/drawcheck/standards"
	"github.com/wudi/drawcheck/validation"
)

// Phase identifies one lifecycle group of checklist items.
type Phase string

const (
	PhaseDesignBasis      Phase = "design-basis"
	PhaseMechanical       Phase = "mechanical-design"
	PhasePiping           Phase = "piping-instrumentation"
	PhaseElectrical       Phase = "electrical"
	PhaseMaterials        Phase = "materials-fabrication"
	PhaseInstallation     Phase = "installation-testing"
	PhaseOperations       Phase = "operations"
	PhaseLoads            Phase = "loads-analysis"
)

// Phases lists the lifecycle phases in evaluation order.
var Phases = []Phase{
	PhaseDesignBasis, PhaseMechanical, PhasePiping, PhaseElectrical,
	PhaseMaterials, PhaseInstallation, PhaseOperations, PhaseLoads,
}

// outcome of one checklist item.
type outcome int

const (
	outcomePass outcome = iota
	outcomeFail
	outcomeUnknown
)

// item is one checklist entry. eval inspects the extracted data and judges
// the item; nil keywords mean the item is evidence-based rather than
// keyword-based.
type item struct {
	id    string
	phase Phase
	desc  string
	eval  func(*drawing.Data) outcome
}

// keywordItem passes when any of the keywords appears in the drawing text,
// fails when the text was extracted but carries none of them, and is unknown
// when no text was extracted at all.
func keywordItem(id string, phase Phase, desc string, keywords ...string) item {
	return item{id: id, phase: phase, desc: desc, eval: func(d *drawing.Data) outcome {
		if strings.TrimSpace(d.Text) == "" {
			return outcomeUnknown
		}
		text := strings.ToUpper(d.Text)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return outcomePass
			}
		}
		return outcomeFail
	}}
}

func presenceItem(id string, phase Phase, desc string, present func(*drawing.Data) bool) item {
	return item{id: id, phase: phase, desc: desc, eval: func(d *drawing.Data) outcome {
		if present(d) {
			return outcomePass
		}
		if d.Incomplete {
			return outcomeUnknown
		}
		return outcomeFail
	}}
}

// The ordered checklist. IDs are stable so issues can be traced across runs.
var items = []item{
	// Design basis
	presenceItem("DB-01", PhaseDesignBasis, "drawing number assigned",
		func(d *drawing.Data) bool { return d.Metadata.DrawingNumber != "" }),
	presenceItem("DB-02", PhaseDesignBasis, "revision level stated",
		func(d *drawing.Data) bool { return d.Metadata.Revision != "" }),
	presenceItem("DB-03", PhaseDesignBasis, "descriptive title present",
		func(d *drawing.Data) bool { return d.Metadata.Title != "" }),
	keywordItem("DB-04", PhaseDesignBasis, "design pressure stated",
		"DESIGN PRESSURE", "MAWP"),
	keywordItem("DB-05", PhaseDesignBasis, "design temperature stated",
		"DESIGN TEMP", "DESIGN TEMPERATURE"),
	keywordItem("DB-06", PhaseDesignBasis, "service or contents identified",
		"SERVICE", "CONTENTS", "FLUID"),

	// Mechanical design
	keywordItem("MD-01", PhaseMechanical, "corrosion allowance stated",
		"CORROSION ALLOWANCE", "CA="),
	presenceItem("MD-02", PhaseMechanical, "governing dimensions present",
		func(d *drawing.Data) bool { return len(d.Dimensions) > 0 }),
	keywordItem("MD-03", PhaseMechanical, "shell or head thickness called out",
		"SHELL", "HEAD", "THK", "THICKNESS"),
	keywordItem("MD-04", PhaseMechanical, "nozzle schedule or flange rating stated",
		"NOZZLE", "FLANGE", "RATING", "CLASS 150", "CLASS 300"),
	presenceItem("MD-05", PhaseMechanical, "geometric tolerancing applied",
		func(d *drawing.Data) bool { return len(d.Frames) > 0 || len(d.Datums) > 0 }),

	// Piping / instrumentation
	keywordItem("PI-01", PhasePiping, "line or pipe specification referenced",
		"NPS", "SCH", "PIPE SPEC", "LINE LIST"),
	keywordItem("PI-02", PhasePiping, "instrument connections identified",
		"INSTRUMENT", "GAUGE", "TRANSMITTER", "THERMOWELL"),
	keywordItem("PI-03", PhasePiping, "vent and drain provisions shown",
		"VENT", "DRAIN"),
	keywordItem("PI-04", PhasePiping, "P&ID reference present",
		"P&ID", "PID-", "FLOW DIAGRAM"),

	// Electrical
	keywordItem("EL-01", PhaseElectrical, "grounding provisions shown",
		"GROUND", "EARTH LUG", "BONDING"),
	keywordItem("EL-02", PhaseElectrical, "hazardous area classification stated",
		"AREA CLASS", "DIV 1", "DIV 2", "ZONE 1", "ZONE 2"),
	keywordItem("EL-03", PhaseElectrical, "electrical supply identified",
		"VOLT", "VAC", "VDC", "PHASE", "HZ"),
	keywordItem("EL-04", PhaseElectrical, "heat tracing requirements stated",
		"HEAT TRACE", "TRACING"),

	// Materials / fabrication
	presenceItem("MF-01", PhaseMaterials, "material of construction stated",
		func(d *drawing.Data) bool { return len(d.Materials) > 0 }),
	presenceItem("MF-02", PhaseMaterials, "welding requirements called out",
		func(d *drawing.Data) bool { return len(d.Welds) > 0 }),
	keywordItem("MF-03", PhaseMaterials, "weld procedure specification referenced",
		"WPS", "WELD PROCEDURE"),
	keywordItem("MF-04", PhaseMaterials, "NDE requirements stated",
		"NDE", "RT ", "UT ", "MT ", "PT ", "RADIOGRAPH"),
	keywordItem("MF-05", PhaseMaterials, "PWHT requirements addressed",
		"PWHT", "POST WELD", "STRESS RELIEVE"),
	keywordItem("MF-06", PhaseMaterials, "material certification required",
		"MTR", "MILL TEST", "CERTIFICATION"),

	// Installation / testing
	keywordItem("IT-01", PhaseInstallation, "pressure test specified",
		"HYDROTEST", "HYDROSTATIC", "PNEUMATIC TEST"),
	keywordItem("IT-02", PhaseInstallation, "test pressure stated",
		"TEST PRESSURE", "TEST @"),
	keywordItem("IT-03", PhaseInstallation, "leak test requirements stated",
		"LEAK TEST", "SOAP TEST"),
	keywordItem("IT-04", PhaseInstallation, "bolt torque requirements stated",
		"TORQUE", "PRETENSION", "SNUG TIGHT"),
	keywordItem("IT-05", PhaseInstallation, "lifting or erection provisions shown",
		"LIFTING LUG", "TAILING LUG", "ERECTION"),

	// Operations
	keywordItem("OP-01", PhaseOperations, "operating pressure stated",
		"OPERATING PRESSURE", "OPER PRESS"),
	keywordItem("OP-02", PhaseOperations, "operating temperature stated",
		"OPERATING TEMP", "OPER TEMP"),
	keywordItem("OP-03", PhaseOperations, "overpressure protection identified",
		"RELIEF", "PSV", "RUPTURE DISC", "SAFETY VALVE"),
	keywordItem("OP-04", PhaseOperations, "insulation requirements stated",
		"INSULATION", "PERSONNEL PROTECTION"),

	// Loads / analysis
	keywordItem("LA-01", PhaseLoads, "wind load criteria referenced",
		"WIND"),
	keywordItem("LA-02", PhaseLoads, "seismic criteria referenced",
		"SEISMIC", "EARTHQUAKE"),
	keywordItem("LA-03", PhaseLoads, "design loads tabulated",
		"LOAD", "DEAD LOAD", "LIVE LOAD"),
	keywordItem("LA-04", PhaseLoads, "anchorage design referenced",
		"ANCHOR BOLT", "ANCHOR", "BASE PLATE"),
	keywordItem("LA-05", PhaseLoads, "deflection or vibration limits stated",
		"DEFLECTION", "VIBRATION"),
}

// Validator implements the equipment checklist domain.
type Validator struct{}

func New() *Validator { return &Validator{} }

func (v *Validator) Name() string { return "equipmentChecklist" }

// Validate walks the checklist in order, then adds one pass-rate check per
// phase against the configured threshold.
func (v *Validator) Validate(ctx context.Context, data *drawing.Data, std *standards.Store, params validation.Params) (*validation.Result, error) {
	res := &validation.Result{}

	type tally struct{ passed, failed, unknown int }
	phaseTallies := make(map[Phase]*tally, len(Phases))
	for _, p := range Phases {
		phaseTallies[p] = &tally{}
	}

	current := Phase("")
	for _, it := range items {
		if it.phase != current {
			// Cancellation checked once per phase group.
			if err := validation.Cancelled(ctx); err != nil {
				return nil, err
			}
			current = it.phase
		}
		t := phaseTallies[it.phase]
		switch it.eval(data) {
		case outcomePass:
			t.passed++
			res.AddPass()
		case outcomeFail:
			t.failed++
			res.AddFailure(validation.Issue{
				Severity:   validation.SeverityError,
				CheckType:  "checklist-" + string(it.phase),
				Message:    fmt.Sprintf("%s: %s — no evidence found", it.id, it.desc),
				Suggestion: "add the missing information to the drawing or datasheet",
			})
		case outcomeUnknown:
			t.unknown++
			res.AddNotEvaluated("checklist-"+string(it.phase),
				fmt.Sprintf("%s: %s — not evaluable from extracted data", it.id, it.desc))
		}
	}

	limits := std.Limits()
	for _, p := range Phases {
		t := phaseTallies[p]
		evaluated := t.passed + t.failed
		if evaluated == 0 {
			res.AddNotEvaluated("checklist-phase-rate",
				fmt.Sprintf("phase %s: no items evaluable", p))
			continue
		}
		rate := float64(t.passed) / float64(evaluated)
		threshold := limits.ChecklistThreshold(string(p))
		if rate < threshold {
			res.AddWarning(validation.Issue{
				CheckType: "checklist-phase-rate",
				Message: fmt.Sprintf("phase %s pass rate %.0f%% is below the %.0f%% threshold (%d/%d items)",
					p, rate*100, threshold*100, t.passed, evaluated),
				Suggestion: "review the failed items for this phase",
			})
			continue
		}
		res.AddPassWithNote(validation.Issue{
			CheckType: "checklist-phase-rate",
			Message: fmt.Sprintf("phase %s pass rate %.0f%% (%d/%d items)",
				p, rate*100, t.passed, evaluated),
		})
	}

	return res, nil
}

// ItemCount reports the number of checklist items, used by tests and sizing
// logs.
func ItemCount() int { return len(items) }
