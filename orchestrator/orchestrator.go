// Package orchestrator runs the validation pipeline: extract the drawing,
// fan the data out to the requested validators, aggregate their results into
// a report, and optionally annotate the source document. The pipeline
// degrades instead of failing: unavailable validators, validator errors, and
// annotation problems become report notes; only an unreadable document fails
// the request.
package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wudi/drawcheck/annotator"
	"github.com/wudi/drawcheck/drawing"
	"github.com/wudi/drawcheck/observability"
	"github.com/wudi/drawcheck/report"
	"github.com/wudi/drawcheck/standards"
	"github.com/wudi/drawcheck/validation"
)

// Extractor produces structured drawing data from raw document bytes.
// extractor.Extractor implements it; tests substitute fakes.
type Extractor interface {
	Extract(ctx context.Context, document []byte) (*drawing.Data, error)
}

// Request is one validation job.
type Request struct {
	// ID identifies the request; a UUID is assigned when empty.
	ID string
	// Document is the raw drawing (PDF bytes).
	Document []byte
	// Checks selects the domains to run; empty means all registered.
	Checks []Domain
	// Params are optional per-check numeric parameters.
	Params validation.Params
	// Annotate requests an annotated copy of the document.
	Annotate bool
}

// Event is one progress notification. Percent is monotonically non-decreasing
// over the life of a request.
type Event struct {
	RequestID string
	Phase     report.Status
	Percent   int
	Message   string
}

// ProgressFunc observes pipeline progress. Observers run synchronously on the
// pipeline goroutine and must return quickly.
type ProgressFunc func(Event)

// Orchestrator coordinates one validation pipeline per Validate call. Safe
// for concurrent use.
type Orchestrator struct {
	std        *standards.Store
	extract    Extractor
	reg        *Registry
	annot      annotator.Annotator
	log        observability.Logger
	observers  []ProgressFunc
	sequential bool
	timeout    time.Duration
	now        func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAnnotator installs the annotation backend.
func WithAnnotator(a annotator.Annotator) Option {
	return func(o *Orchestrator) { o.annot = a }
}

// WithLogger sets the logger.
func WithLogger(log observability.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithProgress registers a progress observer. Observers are invoked in
// registration order for every event.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, fn) }
}

// WithSequential runs validators one at a time instead of concurrently.
func WithSequential() Option {
	return func(o *Orchestrator) { o.sequential = true }
}

// WithTimeout bounds the whole pipeline. Zero means no orchestrator-imposed
// deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// withClock substitutes the time source; tests use it.
func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New constructs an Orchestrator over a standards store, an extractor, and a
// validator registry.
func New(std *standards.Store, extract Extractor, reg *Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		std:     std,
		extract: extract,
		reg:     reg,
		log:     observability.NopLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate runs the pipeline and always returns a finalized report; terminal
// failures surface as Status failed plus a note, never as an error.
func (o *Orchestrator) Validate(ctx context.Context, req Request) *report.Report {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	rep := report.New(id, o.now())
	log := o.log.With(observability.String("requestId", id))
	o.emit(rep, report.StatusQueued, 0, "request queued")

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	rep.SetStatus(report.StatusExtracting)
	o.emit(rep, report.StatusExtracting, 10, "extracting drawing data")
	data, err := o.extract.Extract(ctx, req.Document)
	if err != nil {
		rep.AddNote("extraction failed: %v", err)
		log.Error("extraction failed", observability.Error("err", err))
		return o.fail(rep)
	}
	if data.Incomplete {
		rep.AddNote("extraction incomplete: %d page(s) unreadable", len(data.MissingPages))
	}

	validators, missing := o.reg.Resolve(req.Checks)
	for _, d := range missing {
		rep.AddNote("%s validator unavailable", d)
	}

	rep.SetStatus(report.StatusValidating)
	o.emit(rep, report.StatusValidating, 30, "running validators")
	results, notes := o.runValidators(ctx, validators, data, req.Params)
	for _, n := range notes {
		rep.AddNote("%s", n)
	}
	if ctx.Err() != nil {
		rep.AddNote("validation cancelled: %v", ctx.Err())
		return o.fail(rep)
	}
	for domain, res := range results {
		rep.AddResult(domain, res)
	}

	rep.SetStatus(report.StatusAggregating)
	o.emit(rep, report.StatusAggregating, 80, "aggregating results")

	if req.Annotate {
		o.annotate(ctx, rep, req.Document, results)
	}

	rep.Finalize(report.StatusComplete, o.now())
	log.Info("validation complete",
		observability.Int("totalChecks", rep.Aggregate.TotalChecks),
		observability.Int("critical", rep.Aggregate.CriticalFailures),
		observability.Int64("durationMs", rep.DurationMs))
	o.emit(rep, report.StatusComplete, 100, "validation complete")
	return rep
}

// runValidators executes the resolved validators, concurrently unless the
// orchestrator is sequential. A validator error degrades to a note; results
// arrive keyed by domain, so run order never affects the report.
func (o *Orchestrator) runValidators(ctx context.Context, validators []validation.Validator, data *drawing.Data, params validation.Params) (map[string]*validation.Result, []string) {
	results := make(map[string]*validation.Result, len(validators))
	var notes []string

	if o.sequential {
		for _, v := range validators {
			if ctx.Err() != nil {
				break
			}
			o.runOne(ctx, v, data, params, func(res *validation.Result, note string) {
				if note != "" {
					notes = append(notes, note)
				} else {
					results[v.Name()] = res
				}
			})
		}
		return results, notes
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, v := range validators {
		v := v
		g.Go(func() error {
			o.runOne(gctx, v, data, params, func(res *validation.Result, note string) {
				mu.Lock()
				defer mu.Unlock()
				if note != "" {
					notes = append(notes, note)
				} else {
					results[v.Name()] = res
				}
			})
			return nil
		})
	}
	_ = g.Wait() // closures never return errors
	sort.Strings(notes)
	return results, notes
}

func (o *Orchestrator) runOne(ctx context.Context, v validation.Validator, data *drawing.Data, params validation.Params, record func(*validation.Result, string)) {
	res, err := v.Validate(ctx, data, o.std, params)
	if err != nil {
		o.log.Warn("validator failed",
			observability.String("domain", v.Name()),
			observability.Error("err", err))
		record(nil, v.Name()+" validator failed: "+err.Error())
		return
	}
	record(res, "")
}

// annotate decorates the source document with every issue found. Annotation
// problems never fail the request.
func (o *Orchestrator) annotate(ctx context.Context, rep *report.Report, document []byte, results map[string]*validation.Result) {
	if o.annot == nil || !o.annot.Available() {
		rep.AddNote("annotation unavailable")
		return
	}
	domains := make([]string, 0, len(results))
	for d := range results {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	var issues []validation.Issue
	for _, d := range domains {
		issues = append(issues, results[d].Issues...)
	}
	doc, err := o.annot.Annotate(ctx, document, issues)
	if err != nil {
		rep.AddNote("annotation failed: %v", err)
		return
	}
	rep.Annotated = &report.AnnotatedRef{
		MediaType: doc.MediaType,
		Bytes:     len(doc.Bytes),
		Data:      doc.Bytes,
	}
}

func (o *Orchestrator) fail(rep *report.Report) *report.Report {
	rep.Finalize(report.StatusFailed, o.now())
	o.emit(rep, report.StatusFailed, 100, "validation failed")
	return rep
}

func (o *Orchestrator) emit(rep *report.Report, phase report.Status, percent int, message string) {
	ev := Event{RequestID: rep.RequestID, Phase: phase, Percent: percent, Message: message}
	for _, fn := range o.observers {
		fn(ev)
	}
}
