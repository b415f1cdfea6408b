package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/bestsellers/internal/automation"
	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/events"
	"github.com/IshaanNene/bestsellers/internal/observability"
	"github.com/IshaanNene/bestsellers/internal/parser"
	"github.com/IshaanNene/bestsellers/internal/storage"
	"github.com/IshaanNene/bestsellers/internal/types"
)

// Outcome classifies how one category session ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
)

// BrowserSession is a browser owned by exactly one category session.
type BrowserSession interface {
	OpenPage(ctx context.Context) (automation.Page, error)
	Close() error
}

// BrowserFactory launches a fresh browser for a session.
type BrowserFactory func(ctx context.Context) (BrowserSession, error)

// StoreFactory opens a fresh store connection for a session.
type StoreFactory func(ctx context.Context) (storage.Storage, error)

type sessionURLKey struct{}

// SessionURL returns the listing URL of the session that owns ctx. Factories
// can use it to label what they open.
func SessionURL(ctx context.Context) (string, bool) {
	url, ok := ctx.Value(sessionURLKey{}).(string)
	return url, ok
}

// CategoryResult is the outcome of one category session.
type CategoryResult struct {
	Category   string
	URL        string
	Outcome    Outcome
	Pages      int
	Records    int
	Incomplete int
	Dropped    int
	StopReason string
	Err        error
	Duration   time.Duration
}

// RunReport collects every session result of one dispatch.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []CategoryResult
}

// Count returns how many sessions ended with outcome o.
func (r *RunReport) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Records returns the total number of stored listings.
func (r *RunReport) Records() int {
	n := 0
	for _, res := range r.Results {
		n += res.Records
	}
	return n
}

// AllFailed reports whether no session stored anything useful.
func (r *RunReport) AllFailed() bool {
	return len(r.Results) > 0 && r.Count(OutcomeFailed) == len(r.Results)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPublisher publishes an event for each finished session.
func WithPublisher(p events.Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithPaginatorOptions passes options to every session's paginator.
func WithPaginatorOptions(opts ...automation.PaginatorOption) Option {
	return func(d *Dispatcher) { d.paginatorOpts = append(d.paginatorOpts, opts...) }
}

// Dispatcher runs one isolated paginator session per category URL on a
// bounded pool. A failing or panicking session never affects its siblings.
type Dispatcher struct {
	cfg           *config.Config
	browsers      BrowserFactory
	stores        StoreFactory
	extractor     *parser.Extractor
	publisher     events.Publisher
	metrics       *observability.Metrics
	paginatorOpts []automation.PaginatorOption
	logger        *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg *config.Config, browsers BrowserFactory, stores StoreFactory, logger *slog.Logger, opts ...Option) (*Dispatcher, error) {
	extractor, err := parser.NewExtractor(cfg.Selectors, logger)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		cfg:       cfg,
		browsers:  browsers,
		stores:    stores,
		extractor: extractor,
		publisher: events.Nop{},
		logger:    logger.With("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run scrapes every URL and returns one result per category session, in
// input order. URLs naming a category already in the list are skipped.
// Cancelling ctx stops new sessions from starting.
func (d *Dispatcher) Run(ctx context.Context, urls []string) *RunReport {
	urls, skipped := UniqueURLs(urls)
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Results:   make([]CategoryResult, len(urls)),
	}
	logger := d.logger.With("run_id", report.RunID)
	if len(skipped) > 0 {
		logger.Warn("duplicate category URLs skipped", "skipped", skipped)
	}
	logger.Info("dispatch starting", "urls", len(urls), "workers", d.cfg.Scrape.Workers, "pages", d.cfg.Scrape.Pages)

	var g errgroup.Group
	g.SetLimit(d.cfg.Scrape.Workers)

	for i, url := range urls {
		i, url := i, url // per-iteration copies (module targets go 1.21 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				report.Results[i] = CategoryResult{URL: url, Outcome: OutcomeFailed, StopReason: "not_started", Err: err}
				return nil
			}
			report.Results[i] = d.runSession(ctx, report.RunID, url)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now()
	logger.Info("dispatch finished",
		"completed", report.Count(OutcomeCompleted),
		"partial", report.Count(OutcomePartial),
		"failed", report.Count(OutcomeFailed),
		"records", report.Records(),
		"elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)
	return report
}

func (d *Dispatcher) runSession(ctx context.Context, runID, url string) (res CategoryResult) {
	start := time.Now()
	res = CategoryResult{URL: url}
	ctx = context.WithValue(ctx, sessionURLKey{}, url)
	logger := d.logger.With("run_id", runID, "url", url)
	d.metrics.SessionStarted()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("session panicked", "panic", r, "stack", string(debug.Stack()))
			res.Err = &types.SessionError{
				Category: res.Category,
				URL:      url,
				Page:     res.Pages + 1,
				Err:      fmt.Errorf("%w: %v", types.ErrSessionPanic, r),
			}
			res.StopReason = automation.StopError
			res.Outcome = classify(res.Records, res.Err, res.StopReason)
		}
		res.Duration = time.Since(start)
		d.finish(ctx, runID, start, &res, logger)
	}()

	category, err := parser.CategoryFromURL(url)
	if err != nil {
		res.Err = err
		res.Outcome = OutcomeFailed
		return res
	}
	res.Category = category
	logger = logger.With("category", category)

	browser, err := d.browsers(ctx)
	if err != nil {
		res.Err = &types.SessionError{Category: category, URL: url, Page: 1, Err: fmt.Errorf("browser: %w", err)}
		res.Outcome = OutcomeFailed
		return res
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Warn("browser close failed", "error", err)
		}
	}()

	store, err := d.stores(ctx)
	if err != nil {
		res.Err = &types.SessionError{Category: category, URL: url, Page: 1, Err: fmt.Errorf("store: %w", err)}
		res.Outcome = OutcomeFailed
		return res
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("store close failed", "error", err)
		}
	}()

	page, err := browser.OpenPage(ctx)
	if err != nil {
		res.Err = &types.SessionError{Category: category, URL: url, Page: 1, Err: err}
		res.Outcome = OutcomeFailed
		return res
	}
	defer page.Close()

	opts := append([]automation.PaginatorOption{
		automation.WithPageHook(func(cat string, stored int) {
			res.Pages++
			res.Records += stored
			d.metrics.IncPages(cat)
		}),
	}, d.paginatorOpts...)
	p := automation.NewPaginator(page, store, d.extractor, d.cfg, logger, opts...)

	sres, err := p.Run(ctx, url, category)
	if sres != nil {
		res.Pages = sres.PagesScraped
		res.Records = sres.Records
		res.Incomplete = sres.Incomplete
		res.Dropped = sres.Dropped
		res.StopReason = sres.StopReason
	}
	if automation.IsNoListings(err) {
		res.StopReason = automation.StopNoListings
	}
	res.Err = err
	res.Outcome = classify(res.Records, err, res.StopReason)
	return res
}

// classify maps a session's stored count and error to an outcome. A session
// that stopped early for lack of a next page is partial, not failed.
func classify(records int, err error, stopReason string) Outcome {
	switch {
	case err == nil && stopReason == automation.StopNoNextPage:
		return OutcomePartial
	case err == nil:
		return OutcomeCompleted
	case records > 0:
		return OutcomePartial
	default:
		return OutcomeFailed
	}
}

func (d *Dispatcher) finish(ctx context.Context, runID string, start time.Time, res *CategoryResult, logger *slog.Logger) {
	d.metrics.AddRecords(res.Records, res.Incomplete, res.Dropped)
	var serr *types.StorageError
	if errors.As(res.Err, &serr) {
		d.metrics.IncStoreError()
	}
	d.metrics.SessionFinished(string(res.Outcome), res.Duration)

	attrs := []any{
		"outcome", res.Outcome,
		"pages", res.Pages,
		"records", res.Records,
		"incomplete", res.Incomplete,
		"dropped", res.Dropped,
		"stop_reason", res.StopReason,
		"duration", res.Duration.Round(time.Millisecond),
	}
	switch res.Outcome {
	case OutcomeCompleted:
		logger.Info("category finished", attrs...)
	case OutcomePartial:
		logger.Warn("category partially scraped", append(attrs, "error", res.Err)...)
	default:
		logger.Error("category failed", append(attrs, "error", res.Err)...)
	}

	ev := events.SessionEvent{
		RunID:      runID,
		Category:   res.Category,
		URL:        res.URL,
		Outcome:    string(res.Outcome),
		StopReason: res.StopReason,
		Pages:      res.Pages,
		Records:    res.Records,
		Incomplete: res.Incomplete,
		Dropped:    res.Dropped,
		StartedAt:  start,
		FinishedAt: start.Add(res.Duration),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.publisher.Publish(pubCtx, ev); err != nil {
		logger.Warn("publish session event failed", "error", err)
	}
}
