// Package validation holds the shared vocabulary of the rule validators:
// severities, issues, per-domain results, and the Validator contract each
// standard-specific package implements.
package validation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wudi/drawcheck/drawing"
	"github.com/wudi/drawcheck/standards"
)

// Severity classifies an issue's importance. The values form a total order:
// Info < Warning < Error < Critical.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityInfo:     "info",
	SeverityWarning:  "warning",
	SeverityError:    "error",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalJSON encodes the severity by its stable name.
func (s Severity) MarshalJSON() ([]byte, error) {
	name, ok := severityNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown severity %d", int(s))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity resolves a severity name.
func ParseSeverity(name string) (Severity, error) {
	for sev, n := range severityNames {
		if n == name {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

// Issue is one finding from a check: what was checked, what was found, where
// on the drawing, and the standard clause it cites.
type Issue struct {
	Severity    Severity          `json:"severity"`
	CheckType   string            `json:"checkType"`
	Message     string            `json:"message"`
	Location    *drawing.Location `json:"location,omitempty"`
	Suggestion  string            `json:"suggestion,omitempty"`
	StandardRef string            `json:"standardReference,omitempty"`
}

// Result is one domain's validation outcome. Counting rules: every executed
// check increments TotalChecks exactly once; a check lands in exactly one of
// Passed, Failed, or Warnings (warnings cover both advisory findings and
// checks that could not run for lack of data). Info issues are notes attached
// to a check already counted and move no counter.
type Result struct {
	TotalChecks int     `json:"totalChecks"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Warnings    int     `json:"warnings"`
	Issues      []Issue `json:"issues"`
}

// AddPass records a check that passed with nothing to report.
func (r *Result) AddPass() {
	r.TotalChecks++
	r.Passed++
}

// AddPassWithNote records a passing check that still carries an informational
// issue (e.g., a computed effective throat).
func (r *Result) AddPassWithNote(issue Issue) {
	issue.Severity = SeverityInfo
	r.TotalChecks++
	r.Passed++
	r.Issues = append(r.Issues, issue)
}

// AddFailure records a failed check. The issue severity must be Error or
// Critical; anything lower is raised to Error so counts and severities cannot
// disagree.
func (r *Result) AddFailure(issue Issue) {
	if issue.Severity < SeverityError {
		issue.Severity = SeverityError
	}
	r.TotalChecks++
	r.Failed++
	r.Issues = append(r.Issues, issue)
}

// AddWarning records a check that ran and found an advisory concern.
func (r *Result) AddWarning(issue Issue) {
	issue.Severity = SeverityWarning
	r.TotalChecks++
	r.Warnings++
	r.Issues = append(r.Issues, issue)
}

// AddInfo attaches a free-standing informational issue without counting a
// check.
func (r *Result) AddInfo(issue Issue) {
	issue.Severity = SeverityInfo
	r.Issues = append(r.Issues, issue)
}

// AddInsufficientData records a check that could not be evaluated because a
// required input was absent from the drawing. Distinct from a violation: the
// severity is never Error or Critical.
func (r *Result) AddInsufficientData(checkType, message, suggestion string) {
	r.TotalChecks++
	r.Warnings++
	r.Issues = append(r.Issues, Issue{
		Severity:   SeverityWarning,
		CheckType:  checkType,
		Message:    message,
		Suggestion: suggestion,
	})
}

// AddNotEvaluated records a check skipped because the evidence needed to
// judge it was never extracted. Counted like insufficient data but reported
// at info severity: absence of evidence for an optional checklist item is
// quieter than a missing required input.
func (r *Result) AddNotEvaluated(checkType, message string) {
	r.TotalChecks++
	r.Warnings++
	r.Issues = append(r.Issues, Issue{
		Severity:  SeverityInfo,
		CheckType: checkType,
		Message:   message,
	})
}

// CriticalCount returns the number of critical-severity issues.
func (r *Result) CriticalCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// Params carries optional per-check numeric parameters supplied with the
// request (e.g., base-metal thickness when the drawing does not state it).
type Params map[string]float64

// Get returns a parameter and whether it was supplied.
func (p Params) Get(name string) (float64, bool) {
	v, ok := p[name]
	return v, ok
}

// GetDefault returns a parameter or the fallback when absent.
func (p Params) GetDefault(name string, fallback float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return fallback
}

// Validator checks extracted drawing data against one domain standard.
// Implementations are pure: they read data and standards, mutate nothing, and
// return deterministic results for identical inputs.
type Validator interface {
	Name() string
	Validate(ctx context.Context, data *drawing.Data, std *standards.Store, params Params) (*Result, error)
}

// Cancelled reports a context cancellation as an error, used by validators
// between checklist groups.
func Cancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
