package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/parser"
	"github.com/IshaanNene/bestsellers/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const slotHTML = `<div class="a-cardui _cDEzb_grid-cell_1uMOS expandableGrid p13n-grid-content">` +
	`<div data-asin="%s"><a class="a-link-normal" href="#"><div class="a-section">` +
	`<img class="a-dynamic-image" alt="Item %s" src="https://img/%s.jpg"></div></a>` +
	`<span class="a-size-base a-color-price"><span class="_cDEzb_p13n-sc-price_3mJ9Z">9,99 €</span></span>` +
	`</div></div>`

func pageHTML(asins ...string) string {
	body := `<html><body>`
	for _, a := range asins {
		body += fmt.Sprintf(slotHTML, a, a, a)
	}
	return body + `</body></html>`
}

// fakePage simulates a lazily loading listing page.
type fakePage struct {
	mu sync.Mutex

	pages       []string // HTML served per page index
	current     int
	heights     []int // scroll height reached after each scroll
	scrolls     int
	consent     bool
	nextClicks  int // how many times the next control exists
	listingLag  int // Count returns 0 this many times per page
	countCalls  int
	navigated   []string
	clicked     []string
	navigateErr error
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return f.navigateErr
}

func (f *fakePage) WaitStable(context.Context, time.Duration) error { return nil }

func (f *fakePage) Click(_ context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch selector {
	case config.DefaultSelectors().CookieConsent:
		if !f.consent {
			return false, nil
		}
		f.consent = false
	case config.DefaultSelectors().NextPage:
		if f.nextClicks == 0 {
			return false, nil
		}
		f.nextClicks--
		f.current++
		f.scrolls = 0
		f.countCalls = 0
	}
	f.clicked = append(f.clicked, selector)
	return true, nil
}

func (f *fakePage) ScrollHeight(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scrolls < len(f.heights) {
		return f.heights[f.scrolls], nil
	}
	return f.heights[len(f.heights)-1], nil
}

func (f *fakePage) ScrollToBottom(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls++
	return nil
}

func (f *fakePage) Count(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.countCalls <= f.listingLag {
		return 0, nil
	}
	if f.current >= len(f.pages) || f.pages[f.current] == "" {
		return 0, nil
	}
	return 1, nil
}

func (f *fakePage) HTML(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pages[f.current], nil
}

func (f *fakePage) Close() error { return nil }

type memSink struct {
	batches [][]*types.Listing
	failAt  int // fail on this call number (1-based), 0 never
}

func (m *memSink) Store(_ context.Context, listings []*types.Listing) (int, error) {
	m.batches = append(m.batches, listings)
	if m.failAt == len(m.batches) {
		return 1, errors.New("connection reset")
	}
	return len(listings), nil
}

func (m *memSink) all() []*types.Listing {
	var out []*types.Listing
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

func testConfig(pages int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scrape.Pages = pages
	cfg.Scrape.PageSize = 3
	cfg.Browser.PollInterval = time.Millisecond
	cfg.Browser.ScrollSettle = 5 * time.Millisecond
	cfg.Browser.ListingTimeout = 50 * time.Millisecond
	cfg.Browser.MaxScrolls = 10
	return cfg
}

func newTestPaginator(t *testing.T, page Page, sink Sink, cfg *config.Config, opts ...PaginatorOption) *Paginator {
	t.Helper()
	ex, err := parser.NewExtractor(cfg.Selectors, testLogger)
	require.NoError(t, err)
	return NewPaginator(page, sink, ex, cfg, testLogger, opts...)
}

const toysURL = "https://www.amazon.es/gp/bestsellers/toys/ref=zg_bs_nav_toys_0"

func TestPaginatorTwoPages(t *testing.T) {
	page := &fakePage{
		pages:      []string{pageHTML("A1", "A2", "A3"), pageHTML("B1", "B2", "B3")},
		heights:    []int{1000, 2000, 3000, 3000},
		consent:    true,
		nextClicks: 5,
	}
	sink := &memSink{}
	var states []State
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	p := newTestPaginator(t, page, sink, testConfig(2),
		WithStateHook(func(s State, _ int) { states = append(states, s) }),
		WithClock(func() time.Time { return fixed }),
	)

	res, err := p.Run(context.Background(), toysURL, "toys")
	require.NoError(t, err)

	assert.Equal(t, 2, res.PagesScraped)
	assert.Equal(t, 6, res.Records)
	assert.Equal(t, StopCompleted, res.StopReason)
	assert.Equal(t, []string{toysURL}, page.navigated)

	all := sink.all()
	require.Len(t, all, 6)
	for i, l := range all {
		assert.Equal(t, i+1, l.Rank, "ranks increase across pages")
		assert.Equal(t, "toys", l.Category)
		assert.Equal(t, fixed, l.CapturedAt)
	}
	assert.Equal(t, "B1", all[3].ASIN)

	assert.Equal(t, []State{
		StateLoading, StateConsentCheck, StateScrollToBottom, StateExtracting, StateNextPage,
		StateLoading, StateConsentCheck, StateScrollToBottom, StateExtracting,
		StateDone,
	}, states)

	// Consent is clicked once, next page once; never on the last page.
	assert.Equal(t, []string{
		config.DefaultSelectors().CookieConsent,
		config.DefaultSelectors().NextPage,
	}, page.clicked)
}

func TestPaginatorStopsWithoutNextControl(t *testing.T) {
	page := &fakePage{
		pages:   []string{pageHTML("A1", "A2")},
		heights: []int{500},
	}
	sink := &memSink{}
	p := newTestPaginator(t, page, sink, testConfig(3))

	res, err := p.Run(context.Background(), toysURL, "toys")
	require.NoError(t, err)
	assert.Equal(t, 1, res.PagesScraped)
	assert.Equal(t, StopNoNextPage, res.StopReason)
	assert.Len(t, sink.all(), 2)
}

func TestPaginatorWaitsForLazyListings(t *testing.T) {
	page := &fakePage{
		pages:      []string{pageHTML("A1")},
		heights:    []int{100},
		listingLag: 3,
	}
	sink := &memSink{}
	p := newTestPaginator(t, page, sink, testConfig(1))

	res, err := p.Run(context.Background(), toysURL, "toys")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records)
}

func TestPaginatorNoListingsKeepsEarlierPages(t *testing.T) {
	page := &fakePage{
		pages:      []string{pageHTML("A1", "A2"), ""},
		heights:    []int{100},
		nextClicks: 1,
	}
	sink := &memSink{}
	p := newTestPaginator(t, page, sink, testConfig(2))

	res, err := p.Run(context.Background(), toysURL, "toys")
	require.Error(t, err)
	assert.True(t, IsNoListings(err))

	var serr *types.SessionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Page)
	assert.Equal(t, "toys", serr.Category)

	assert.Equal(t, 1, res.PagesScraped)
	assert.Equal(t, StopError, res.StopReason)
	assert.Len(t, sink.all(), 2)
}

func TestPaginatorStoreErrorKeepsPrefix(t *testing.T) {
	page := &fakePage{
		pages:   []string{pageHTML("A1", "A2", "A3")},
		heights: []int{100},
	}
	sink := &memSink{failAt: 1}
	p := newTestPaginator(t, page, sink, testConfig(1))

	res, err := p.Run(context.Background(), toysURL, "toys")
	require.Error(t, err)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 0, res.PagesScraped)
}

func TestPaginatorNavigateError(t *testing.T) {
	page := &fakePage{
		pages:       []string{pageHTML("A1")},
		heights:     []int{100},
		navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED"),
	}
	sink := &memSink{}
	p := newTestPaginator(t, page, sink, testConfig(1))

	res, err := p.Run(context.Background(), toysURL, "toys")
	require.Error(t, err)
	assert.Equal(t, 0, res.PagesScraped)
	assert.Empty(t, sink.batches)
}

func TestPaginatorHonoursCancellation(t *testing.T) {
	page := &fakePage{pages: []string{pageHTML("A1")}, heights: []int{100}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPaginator(t, page, &memSink{}, testConfig(1))
	_, err := p.Run(ctx, toysURL, "toys")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScrollToBottomStopsWhenHeightSettles(t *testing.T) {
	page := &fakePage{heights: []int{100, 200, 300, 300}}
	p := newTestPaginator(t, page, &memSink{}, testConfig(1))

	n, err := p.scrollToBottom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestScrollToBottomBoundedByMaxScrolls(t *testing.T) {
	heights := make([]int, 50)
	for i := range heights {
		heights[i] = (i + 1) * 100
	}
	page := &fakePage{heights: heights}
	cfg := testConfig(1)
	cfg.Browser.MaxScrolls = 4
	p := newTestPaginator(t, page, &memSink{}, cfg)

	n, err := p.scrollToBottom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
