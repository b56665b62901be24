package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/wudi/drawcheck/validation"
)

func sampleResult() *validation.Result {
	res := &validation.Result{}
	res.AddPass()
	res.AddPass()
	res.AddFailure(validation.Issue{
		Severity:  validation.SeverityCritical,
		CheckType: "weld-size",
		Message:   "fillet weld undersized",
	})
	res.AddWarning(validation.Issue{
		Severity:  validation.SeverityWarning,
		CheckType: "weld-max-size",
		Message:   "fillet exceeds maximum",
	})
	return res
}

func TestFinalizeAggregates(t *testing.T) {
	start := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	r := New("req-1", start)
	r.SetStatus(StatusValidating)
	r.AddResult("welding", sampleResult())

	other := &validation.Result{}
	other.AddPass()
	r.AddResult("gdt", other)

	r.Finalize(StatusComplete, start.Add(1500*time.Millisecond))

	if r.Aggregate.TotalChecks != 5 || r.Aggregate.Passed != 3 {
		t.Errorf("aggregate = %+v", r.Aggregate)
	}
	if r.Aggregate.Failed != 1 || r.Aggregate.Warnings != 1 || r.Aggregate.CriticalFailures != 1 {
		t.Errorf("aggregate = %+v", r.Aggregate)
	}
	if r.Aggregate.PassRate != 60 {
		t.Errorf("PassRate = %v, want 60", r.Aggregate.PassRate)
	}
	if r.DurationMs != 1500 {
		t.Errorf("DurationMs = %d", r.DurationMs)
	}
	if !r.Sealed() {
		t.Error("finalized report must be sealed")
	}
}

func TestPassRateZeroWhenNoChecks(t *testing.T) {
	r := New("req-empty", time.Now())
	r.Finalize(StatusFailed, time.Now())
	if r.Aggregate.PassRate != 0 || r.Aggregate.TotalChecks != 0 {
		t.Errorf("aggregate = %+v", r.Aggregate)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	build := func(domains []string) Aggregate {
		r := New("req", time.Now())
		for _, d := range domains {
			r.AddResult(d, sampleResult())
		}
		r.Finalize(StatusComplete, time.Now())
		return r.Aggregate
	}
	a := build([]string{"gdt", "welding", "material"})
	b := build([]string{"material", "gdt", "welding"})
	if a != b {
		t.Errorf("aggregate depends on insertion order: %+v vs %+v", a, b)
	}
}

func TestSealedReportPanicsOnMutation(t *testing.T) {
	r := New("req-2", time.Now())
	r.Finalize(StatusComplete, time.Now())

	defer func() {
		if recover() == nil {
			t.Error("mutating a sealed report must panic")
		}
	}()
	r.AddNote("late note")
}

func TestJSONRoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	r := New("req-3", start)
	r.AddResult("welding", sampleResult())
	r.AddNote("material validator unavailable")
	r.Annotated = &AnnotatedRef{MediaType: "application/pdf", Bytes: 1024}
	r.Finalize(StatusComplete, start.Add(time.Second))

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"status":"complete"`) {
		t.Errorf("status wire form: %s", raw)
	}
	if !strings.Contains(string(raw), `"severity":"critical"`) {
		t.Errorf("severity wire form: %s", raw)
	}

	var back Report
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Aggregate != r.Aggregate {
		t.Errorf("aggregate = %+v, want %+v", back.Aggregate, r.Aggregate)
	}
	if !back.Sealed() {
		t.Error("restored terminal report must be sealed")
	}
	if len(back.PerDomain["welding"].Issues) != 2 {
		t.Errorf("issues = %+v", back.PerDomain["welding"].Issues)
	}
	if back.PerDomain["welding"].Issues[0].Severity != validation.SeverityCritical {
		t.Errorf("severity = %v", back.PerDomain["welding"].Issues[0].Severity)
	}
}

func TestRenderMarkdown(t *testing.T) {
	r := New("req-4", time.Now())
	res := sampleResult()
	res.Issues[1].Suggestion = "reduce weld size"
	r.AddResult("welding", res)
	r.AddNote("annotation skipped")
	r.Finalize(StatusComplete, time.Now())

	md := r.RenderMarkdown()
	for _, want := range []string{
		"# Validation Report req-4",
		"**complete**",
		"## welding",
		"fillet weld undersized",
		"Suggestion: reduce weld size",
		"- annotation skipped",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	r := New("req-5", time.Now())
	r.AddResult("welding", sampleResult())
	r.Finalize(StatusComplete, time.Now())

	out, err := r.RenderHTML()
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "<table>") {
		t.Errorf("html = %s", out)
	}
}
