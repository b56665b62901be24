package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/drawcheck/annotator"
	"github.com/wudi/drawcheck/drawing"
	"github.com/wudi/drawcheck/report"
	"github.com/wudi/drawcheck/standards"
	"github.com/wudi/drawcheck/validation"
	"github.com/wudi/drawcheck/validation/gdt"
	"github.com/wudi/drawcheck/validation/material"
	"github.com/wudi/drawcheck/validation/welding"
)

type stubExtractor struct {
	data *drawing.Data
	err  error
}

func (s *stubExtractor) Extract(ctx context.Context, _ []byte) (*drawing.Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.data, s.err
}

type stubValidator struct {
	name string
	res  *validation.Result
	err  error
}

func (s *stubValidator) Name() string { return s.name }

func (s *stubValidator) Validate(context.Context, *drawing.Data, *standards.Store, validation.Params) (*validation.Result, error) {
	return s.res, s.err
}

type stubAnnotator struct {
	doc       *annotator.Document
	err       error
	available bool
	got       []validation.Issue
}

func (s *stubAnnotator) Available() bool { return s.available }

func (s *stubAnnotator) Annotate(_ context.Context, _ []byte, issues []validation.Issue) (*annotator.Document, error) {
	s.got = issues
	return s.doc, s.err
}

func passingResult(n int) *validation.Result {
	res := &validation.Result{}
	for i := 0; i < n; i++ {
		res.AddPass()
	}
	return res
}

func failingResult() *validation.Result {
	res := &validation.Result{}
	res.AddPass()
	res.AddFailure(validation.Issue{
		Severity:  validation.SeverityCritical,
		CheckType: "weld-size",
		Message:   "fillet weld undersized",
	})
	return res
}

func newTestOrchestrator(t *testing.T, extract Extractor, reg *Registry, opts ...Option) *Orchestrator {
	t.Helper()
	std := standards.MustLoad()
	base := []Option{withClock(func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) })}
	return New(std, extract, reg, append(base, opts...)...)
}

func TestValidateHappyPath(t *testing.T) {
	reg := NewRegistry(
		&stubValidator{name: "welding", res: failingResult()},
		&stubValidator{name: "gdt", res: passingResult(3)},
	)
	var events []Event
	o := newTestOrchestrator(t, &stubExtractor{data: &drawing.Data{}}, reg,
		WithProgress(func(ev Event) { events = append(events, ev) }))

	rep := o.Validate(context.Background(), Request{ID: "req-1"})

	require.Equal(t, report.StatusComplete, rep.Status)
	assert.True(t, rep.Sealed())
	assert.Equal(t, 5, rep.Aggregate.TotalChecks)
	assert.Equal(t, 4, rep.Aggregate.Passed)
	assert.Equal(t, 1, rep.Aggregate.Failed)
	assert.Equal(t, 1, rep.Aggregate.CriticalFailures)
	assert.InDelta(t, 80.0, rep.Aggregate.PassRate, 1e-9)

	phases := make([]report.Status, 0, len(events))
	last := -1
	for _, ev := range events {
		phases = append(phases, ev.Phase)
		require.GreaterOrEqual(t, ev.Percent, last, "progress must not regress")
		last = ev.Percent
		assert.Equal(t, "req-1", ev.RequestID)
	}
	assert.Equal(t, []report.Status{
		report.StatusQueued, report.StatusExtracting,
		report.StatusValidating, report.StatusAggregating, report.StatusComplete,
	}, phases)
}

func TestValidateExtractionFailure(t *testing.T) {
	reg := NewRegistry(&stubValidator{name: "welding", res: passingResult(1)})
	var events []Event
	o := newTestOrchestrator(t, &stubExtractor{err: errors.New("document cannot be opened")}, reg,
		WithProgress(func(ev Event) { events = append(events, ev) }))

	rep := o.Validate(context.Background(), Request{ID: "req-2"})

	require.Equal(t, report.StatusFailed, rep.Status)
	assert.True(t, rep.Sealed())
	assert.Zero(t, rep.Aggregate.TotalChecks)
	require.Len(t, rep.Notes, 1)
	assert.Contains(t, rep.Notes[0], "extraction failed")
	assert.Equal(t, report.StatusFailed, events[len(events)-1].Phase)
	assert.Equal(t, 100, events[len(events)-1].Percent)
}

func TestValidateUnavailableValidatorDegrades(t *testing.T) {
	reg := NewRegistry(&stubValidator{name: "welding", res: passingResult(2)})
	o := newTestOrchestrator(t, &stubExtractor{data: &drawing.Data{}}, reg)

	rep := o.Validate(context.Background(), Request{
		ID:     "req-3",
		Checks: []Domain{DomainWelding, DomainMaterial},
	})

	require.Equal(t, report.StatusComplete, rep.Status)
	assert.Contains(t, rep.Notes, "material validator unavailable")
	assert.Contains(t, rep.PerDomain, "welding")
	assert.NotContains(t, rep.PerDomain, "material")
}

func TestValidateValidatorErrorDegrades(t *testing.T) {
	reg := NewRegistry(
		&stubValidator{name: "welding", res: passingResult(2)},
		&stubValidator{name: "gdt", err: errors.New("boom")},
	)
	o := newTestOrchestrator(t, &stubExtractor{data: &drawing.Data{}}, reg)

	rep := o.Validate(context.Background(), Request{ID: "req-4"})

	require.Equal(t, report.StatusComplete, rep.Status)
	assert.Contains(t, rep.Notes, "gdt validator failed: boom")
	assert.Contains(t, rep.PerDomain, "welding")
	assert.NotContains(t, rep.PerDomain, "gdt")
}

func TestValidateSequentialMatchesConcurrent(t *testing.T) {
	build := func(opts ...Option) *report.Report {
		reg := NewRegistry(
			&stubValidator{name: "welding", res: failingResult()},
			&stubValidator{name: "gdt", res: passingResult(3)},
			&stubValidator{name: "material", res: passingResult(2)},
		)
		o := newTestOrchestrator(t, &stubExtractor{data: &drawing.Data{}}, reg, opts...)
		return o.Validate(context.Background(), Request{ID: "req-5"})
	}
	concurrent := build()
	sequential := build(WithSequential())
	assert.Equal(t, concurrent.Aggregate, sequential.Aggregate)
	assert.Equal(t, concurrent.PerDomain, sequential.PerDomain)
}

func TestValidateAnnotation(t *testing.T) {
	reg := NewRegistry(&stubValidator{name: "welding", res: failingResult()})
	ann := &stubAnnotator{
		available: true,
		doc:       &annotator.Document{Bytes: []byte("%PDF-fake"), MediaType: "application/pdf", PageCount: 1},
	}
	o := newTestOrchestrator(t, &stubExtractor{data: &drawing.Data{}}, reg, WithAnnotator(ann))

	rep := o.Validate(context.Background(), Request{ID: "req-6", Annotate: true})

	require.Equal(t, report.StatusComplete, rep.Status)
	require.NotNil(t, rep.Annotated)
	assert.Equal(t, "application/pdf", rep.Annotated.MediaType)
	assert.Equal(t, len("%PDF-fake"), rep.Annotated.Bytes)
	require.Len(t, ann.got, 1, "annotator receives the issues found")
}

func TestValidateAnnotationFailureIsANote(t *testing.T) {
	reg := NewRegistry(&stubValidator{name: "welding", res: passingResult(1)})
	ann := &stubAnnotator{available: true, err: errors.New("raster failed")}
	o := newTestOrchestrator(t, &stubExtractor{data: &drawing.Data{}}, reg, WithAnnotator(ann))

	rep := o.Validate(context.Background(), Request{ID: "req-7", Annotate: true})

	require.Equal(t, report.StatusComplete, rep.Status)
	assert.Nil(t, rep.Annotated)
	assert.Contains(t, rep.Notes, "annotation failed: raster failed")
}

func TestValidateAnnotationUnavailableIsANote(t *testing.T) {
	reg := NewRegistry(&stubValidator{name: "welding", res: passingResult(1)})
	o := newTestOrchestrator(t, &stubExtractor{data: &drawing.Data{}}, reg,
		WithAnnotator(&stubAnnotator{available: false}))

	rep := o.Validate(context.Background(), Request{ID: "req-8", Annotate: true})

	require.Equal(t, report.StatusComplete, rep.Status)
	assert.Contains(t, rep.Notes, "annotation unavailable")
}

func TestValidateCancelledRequestFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg := NewRegistry(&stubValidator{name: "welding", res: passingResult(1)})
	o := newTestOrchestrator(t, &stubExtractor{data: &drawing.Data{}}, reg)

	rep := o.Validate(ctx, Request{ID: "req-9"})

	require.Equal(t, report.StatusFailed, rep.Status)
	assert.True(t, rep.Sealed())
}

func TestValidateAssignsRequestID(t *testing.T) {
	reg := NewRegistry(&stubValidator{name: "welding", res: passingResult(1)})
	o := newTestOrchestrator(t, &stubExtractor{data: &drawing.Data{}}, reg)

	rep := o.Validate(context.Background(), Request{})
	assert.NotEmpty(t, rep.RequestID)
}

func TestValidateIncompleteExtractionNoted(t *testing.T) {
	reg := NewRegistry(&stubValidator{name: "welding", res: passingResult(1)})
	o := newTestOrchestrator(t, &stubExtractor{
		data: &drawing.Data{Incomplete: true, MissingPages: []int{2, 3}},
	}, reg)

	rep := o.Validate(context.Background(), Request{ID: "req-10"})

	require.Equal(t, report.StatusComplete, rep.Status)
	assert.Contains(t, rep.Notes, "extraction incomplete: 2 page(s) unreadable")
}

// End-to-end over the real validators: a drawing with an undersized fillet
// weld, a consistent feature frame, and a nonstandard material designation.
func TestValidatePipelineWithRealValidators(t *testing.T) {
	data := &drawing.Data{
		Datums: []string{"A", "B"},
		Frames: []drawing.FeatureFrame{
			{Symbol: "position", Tolerance: 0.010, DatumRefs: []string{"A", "B"}},
		},
		Welds: []drawing.WeldCallout{
			{Size: 0.0625, Type: "fillet", Sides: drawing.WeldSideBoth},
		},
		Materials: []drawing.MaterialSpec{
			{Designation: "A9999"},
		},
		Dimensions: []drawing.Dimension{{Value: 0.5, Unit: "in"}},
	}
	reg := NewRegistry(welding.New(), gdt.New(), material.New())
	o := newTestOrchestrator(t, &stubExtractor{data: data}, reg)

	rep := o.Validate(context.Background(), Request{ID: "req-11"})

	require.Equal(t, report.StatusComplete, rep.Status)
	require.Contains(t, rep.PerDomain, "welding")
	require.Contains(t, rep.PerDomain, "gdt")
	require.Contains(t, rep.PerDomain, "material")

	assert.GreaterOrEqual(t, rep.Aggregate.CriticalFailures, 1, "undersized weld is critical")
	assert.Positive(t, rep.PerDomain["material"].Warnings, "nonstandard designation warns")
	assert.Zero(t, rep.PerDomain["gdt"].Failed, "consistent frame passes")
	assert.InDelta(t,
		float64(rep.Aggregate.Passed)/float64(rep.Aggregate.TotalChecks)*100,
		rep.Aggregate.PassRate, 1e-9)
}

// Identical input yields an identical report apart from timing.
func TestValidateDeterministic(t *testing.T) {
	data := &drawing.Data{
		Welds:      []drawing.WeldCallout{{Size: 0.25, Type: "fillet"}},
		Dimensions: []drawing.Dimension{{Value: 0.375, Unit: "in"}},
	}
	run := func() *report.Report {
		reg := NewRegistry(welding.New())
		o := newTestOrchestrator(t, &stubExtractor{data: data}, reg)
		return o.Validate(context.Background(), Request{ID: "req-12"})
	}
	a, b := run(), run()
	assert.Equal(t, a.Aggregate, b.Aggregate)
	assert.Equal(t, a.PerDomain, b.PerDomain)
	assert.Equal(t, a.Notes, b.Notes)
}
