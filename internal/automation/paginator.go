package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/parser"
	"github.com/IshaanNene/bestsellers/internal/pipeline"
	"github.com/IshaanNene/bestsellers/internal/types"
)

// State is a phase of one category session.
type State string

const (
	StateLoading        State = "loading"
	StateConsentCheck   State = "consent_check"
	StateScrollToBottom State = "scroll_to_bottom"
	StateExtracting     State = "extracting"
	StateNextPage       State = "next_page"
	StateDone           State = "done"
)

// Stop reasons recorded in SessionResult.
const (
	StopCompleted  = "completed"
	StopNoNextPage = "no_next_page"
	StopNoListings = "no_listings"
	StopError      = "error"
)

// Sink receives the listings of each finished page.
type Sink interface {
	Store(ctx context.Context, listings []*types.Listing) (int, error)
}

// SessionResult summarizes one category session.
type SessionResult struct {
	Category     string
	URL          string
	PagesScraped int
	Records      int
	Incomplete   int
	Dropped      int
	StopReason   string
}

// StateHook observes every state transition. page is one-based.
type StateHook func(state State, page int)

// PaginatorOption configures a Paginator.
type PaginatorOption func(*Paginator)

// WithStateHook registers a transition observer.
func WithStateHook(h StateHook) PaginatorOption {
	return func(p *Paginator) { p.hook = h }
}

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) PaginatorOption {
	return func(p *Paginator) { p.now = now }
}

// WithPageHook is called after each page is stored with the number of
// listings written.
func WithPageHook(h func(category string, stored int)) PaginatorOption {
	return func(p *Paginator) { p.pageHook = h }
}

// Paginator walks the pages of one bestseller listing.
type Paginator struct {
	page      Page
	sink      Sink
	extractor *parser.Extractor
	assembler *pipeline.Assembler
	pipeline  *pipeline.Pipeline
	browser   config.BrowserConfig
	sel       config.SelectorConfig
	pages     int
	hook      StateHook
	pageHook  func(string, int)
	now       func() time.Time
	logger    *slog.Logger
}

// NewPaginator builds a paginator bound to one page and one sink.
func NewPaginator(page Page, sink Sink, extractor *parser.Extractor, cfg *config.Config, logger *slog.Logger, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		page:      page,
		sink:      sink,
		extractor: extractor,
		assembler: pipeline.NewAssembler(cfg.Scrape.PageSize, cfg.Scrape.LengthPolicy, logger),
		pipeline:  pipeline.Default(logger),
		browser:   cfg.Browser,
		sel:       cfg.Selectors,
		pages:     cfg.Scrape.Pages,
		now:       time.Now,
		logger:    logger.With("component", "paginator"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run scrapes up to the configured number of pages of url. Pages stored
// before an error stay stored; the partial result is returned with the error.
func (p *Paginator) Run(ctx context.Context, url, category string) (*SessionResult, error) {
	res := &SessionResult{Category: category, URL: url, StopReason: StopCompleted}
	logger := p.logger.With("category", category)

	fail := func(pageIdx int, err error) (*SessionResult, error) {
		res.StopReason = StopError
		p.enter(StateDone, pageIdx+1)
		return res, &types.SessionError{Category: category, URL: url, Page: pageIdx + 1, Err: err}
	}

	for pageIdx := 0; pageIdx < p.pages; pageIdx++ {
		if err := ctx.Err(); err != nil {
			return fail(pageIdx, err)
		}

		p.enter(StateLoading, pageIdx+1)
		if err := p.load(ctx, url, pageIdx); err != nil {
			return fail(pageIdx, err)
		}

		p.enter(StateConsentCheck, pageIdx+1)
		p.dismissConsent(ctx, logger)

		p.enter(StateScrollToBottom, pageIdx+1)
		scrolls, err := p.scrollToBottom(ctx)
		if err != nil {
			return fail(pageIdx, fmt.Errorf("scroll: %w", err))
		}
		logger.Debug("scrolled to bottom", "page", pageIdx+1, "scrolls", scrolls)

		p.enter(StateExtracting, pageIdx+1)
		if err := p.extractPage(ctx, category, pageIdx, res); err != nil {
			return fail(pageIdx, err)
		}
		res.PagesScraped++

		if pageIdx == p.pages-1 {
			break
		}

		p.enter(StateNextPage, pageIdx+1)
		clicked, err := p.page.Click(ctx, p.sel.NextPage)
		if err != nil || !clicked {
			logger.Info("no next page, ending session early",
				"page", pageIdx+1,
				"requested", p.pages,
				"error", err,
			)
			res.StopReason = StopNoNextPage
			break
		}
	}

	p.enter(StateDone, res.PagesScraped)
	return res, nil
}

func (p *Paginator) load(ctx context.Context, url string, pageIdx int) error {
	if pageIdx == 0 {
		navCtx, cancel := context.WithTimeout(ctx, p.browser.NavigateTimeout)
		defer cancel()
		if err := p.page.Navigate(navCtx, url); err != nil {
			return err
		}
	}
	stableCtx, cancel := context.WithTimeout(ctx, p.browser.NavigateTimeout)
	defer cancel()
	if err := p.page.WaitStable(stableCtx, p.browser.StableWindow); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("page did not settle, continuing", "page", pageIdx+1, "error", err)
	}
	return nil
}

func (p *Paginator) dismissConsent(ctx context.Context, logger *slog.Logger) {
	clicked, err := p.page.Click(ctx, p.sel.CookieConsent)
	switch {
	case err != nil:
		logger.Debug("cookie consent click failed", "error", err)
	case clicked:
		logger.Info("cookie consent accepted")
		stableCtx, cancel := context.WithTimeout(ctx, p.browser.ScrollSettle)
		defer cancel()
		_ = p.page.WaitStable(stableCtx, p.browser.StableWindow)
	default:
		logger.Debug("cookie consent not shown")
	}
}

// scrollToBottom scrolls until one settle window passes with no growth in
// document height, or MaxScrolls is reached.
func (p *Paginator) scrollToBottom(ctx context.Context) (int, error) {
	last, err := p.page.ScrollHeight(ctx)
	if err != nil {
		return 0, err
	}

	for i := 0; i < p.browser.MaxScrolls; i++ {
		if err := p.page.ScrollToBottom(ctx); err != nil {
			return i, err
		}
		current := last
		grown, err := poll(ctx, p.browser.PollInterval, p.browser.ScrollSettle, func() (bool, error) {
			h, err := p.page.ScrollHeight(ctx)
			if err != nil {
				return false, err
			}
			current = h
			return h > last, nil
		})
		if err != nil {
			return i + 1, err
		}
		if !grown {
			return i + 1, nil
		}
		last = current
	}
	return p.browser.MaxScrolls, nil
}

func (p *Paginator) waitForListings(ctx context.Context) error {
	found, err := poll(ctx, p.browser.PollInterval, p.browser.ListingTimeout, func() (bool, error) {
		n, err := p.page.Count(ctx, p.sel.Container)
		return n > 0, err
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w after %s", types.ErrNoListings, p.browser.ListingTimeout)
	}
	return nil
}

func (p *Paginator) extractPage(ctx context.Context, category string, pageIdx int, res *SessionResult) error {
	if err := p.waitForListings(ctx); err != nil {
		return err
	}

	body, err := p.page.HTML(ctx)
	if err != nil {
		return fmt.Errorf("snapshot html: %w", err)
	}
	capturedAt := p.now()

	fields, err := p.extractor.Extract(body)
	if err != nil {
		return err
	}
	listings, report, err := p.assembler.Assemble(fields, category, pageIdx, capturedAt)
	if err != nil {
		return err
	}
	listings, dropped := p.pipeline.ProcessAll(listings)
	res.Dropped += dropped

	stored, err := p.sink.Store(ctx, listings)
	res.Records += stored
	for _, l := range listings[:stored] {
		if !l.Complete() {
			res.Incomplete++
		}
	}
	if p.pageHook != nil {
		p.pageHook(category, stored)
	}
	if err != nil {
		return fmt.Errorf("store page %d: %w", pageIdx+1, err)
	}

	p.logger.Info("page scraped",
		"category", category,
		"page", pageIdx+1,
		"slots", report.Slots,
		"stored", stored,
		"dropped", dropped,
		"truncated", report.Truncated,
	)
	return nil
}

func (p *Paginator) enter(s State, page int) {
	p.logger.Debug("state", "state", string(s), "page", page)
	if p.hook != nil {
		p.hook(s, page)
	}
}

// IsNoListings reports whether a session ended because no slots appeared.
func IsNoListings(err error) bool {
	return errors.Is(err, types.ErrNoListings)
}
