// Package report defines the serializable validation report assembled by the
// orchestrator and its rendered forms.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wudi/drawcheck/validation"
)

// Status is the lifecycle state of a validation request.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusExtracting  Status = "extracting"
	StatusValidating  Status = "validating"
	StatusAggregating Status = "aggregating"
	StatusComplete    Status = "complete"
	StatusFailed      Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool { return s == StatusComplete || s == StatusFailed }

// Aggregate sums the per-domain results. PassRate is passed/totalChecks as a
// percentage, zero when no checks ran. CriticalFailures counts
// critical-severity issues across all domains.
type Aggregate struct {
	TotalChecks      int     `json:"totalChecks"`
	Passed           int     `json:"passed"`
	Failed           int     `json:"failed"`
	Warnings         int     `json:"warnings"`
	CriticalFailures int     `json:"criticalFailures"`
	PassRate         float64 `json:"passRate"`
}

// AnnotatedRef points at the annotated copy of the source document. Data
// holds the document itself and stays off the wire.
type AnnotatedRef struct {
	MediaType string `json:"mediaType"`
	Bytes     int    `json:"bytes"`
	Data      []byte `json:"-"`
}

// Report is the single structured output of a validation request. It is
// append-only while the request is in flight and immutable once Status is
// terminal.
type Report struct {
	RequestID   string                        `json:"requestId"`
	Status      Status                        `json:"status"`
	StartedAt   time.Time                     `json:"startedAt"`
	CompletedAt time.Time                     `json:"completedAt,omitzero"`
	DurationMs  int64                         `json:"durationMs"`
	PerDomain   map[string]*validation.Result `json:"perDomain"`
	Aggregate   Aggregate                     `json:"aggregate"`
	Notes       []string                      `json:"notes,omitempty"`
	Annotated   *AnnotatedRef                 `json:"annotated,omitempty"`

	sealed bool
}

// New returns an in-flight report in the queued state.
func New(requestID string, now time.Time) *Report {
	return &Report{
		RequestID: requestID,
		Status:    StatusQueued,
		StartedAt: now,
		PerDomain: make(map[string]*validation.Result),
	}
}

// SetStatus advances the lifecycle state. Advancing a sealed report is a
// programming error.
func (r *Report) SetStatus(s Status) {
	if r.sealed {
		panic(fmt.Sprintf("report %s: status change after seal", r.RequestID))
	}
	r.Status = s
}

// AddResult records one domain's validation result.
func (r *Report) AddResult(domain string, res *validation.Result) {
	if r.sealed {
		panic(fmt.Sprintf("report %s: result added after seal", r.RequestID))
	}
	r.PerDomain[domain] = res
}

// AddNote appends an explanatory note (unavailable validator, skipped
// annotation, partial extraction).
func (r *Report) AddNote(format string, args ...interface{}) {
	if r.sealed {
		panic(fmt.Sprintf("report %s: note added after seal", r.RequestID))
	}
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Finalize computes the aggregate, stamps completion, and seals the report.
func (r *Report) Finalize(status Status, now time.Time) {
	if r.sealed {
		return
	}
	if !status.Terminal() {
		panic(fmt.Sprintf("report %s: finalize with non-terminal status %s", r.RequestID, status))
	}
	r.Aggregate = aggregate(r.PerDomain)
	r.Status = status
	r.CompletedAt = now
	r.DurationMs = now.Sub(r.StartedAt).Milliseconds()
	r.sealed = true
}

// Sealed reports whether the report has been finalized.
func (r *Report) Sealed() bool { return r.sealed }

// aggregate is a commutative sum over whichever domains ran, so validator
// execution order never changes the outcome.
func aggregate(perDomain map[string]*validation.Result) Aggregate {
	var agg Aggregate
	for _, res := range perDomain {
		agg.TotalChecks += res.TotalChecks
		agg.Passed += res.Passed
		agg.Failed += res.Failed
		agg.Warnings += res.Warnings
		agg.CriticalFailures += res.CriticalCount()
	}
	if agg.TotalChecks > 0 {
		agg.PassRate = float64(agg.Passed) / float64(agg.TotalChecks) * 100
	}
	return agg
}

// MarshalJSON keeps the wire form free of the internal seal flag.
func (r *Report) MarshalJSON() ([]byte, error) {
	type wire Report
	return json.Marshal((*wire)(r))
}

// UnmarshalJSON restores a report from its wire form; restored reports are
// sealed when their status is terminal.
func (r *Report) UnmarshalJSON(data []byte) error {
	type wire Report
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Report(w)
	r.sealed = r.Status.Terminal()
	if r.PerDomain == nil {
		r.PerDomain = make(map[string]*validation.Result)
	}
	return nil
}
