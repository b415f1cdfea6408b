package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/bestsellers/internal/analytics"
	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/observability"
	"github.com/IshaanNene/bestsellers/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type memReader struct {
	listings []*types.Listing
	err      error
	loads    int
}

func (m *memReader) LoadAll(context.Context) ([]*types.Listing, error) {
	m.loads++
	return m.listings, m.err
}

func (m *memReader) Categories(context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []string{"books", "toys"}, nil
}

func item(cat, asin string, at time.Time, price float64) *types.Listing {
	return &types.Listing{
		CapturedAt:  at,
		Category:    cat,
		ASIN:        asin,
		Title:       types.Present(asin),
		Price:       types.Present(price),
		Rating:      types.Present(4.5),
		ReviewCount: types.Present(10),
		ImageURL:    types.NotShown[string](),
	}
}

func newTestDashboard(t *testing.T, reader *memReader) (*Dashboard, string) {
	t.Helper()
	artifact := filepath.Join(t.TempDir(), "timeline.json")
	d := NewDashboard(config.DashboardConfig{Port: 0, ArtifactPath: artifact}, reader, observability.NewMetrics(testLogger), testLogger)
	d.now = func() time.Time { return time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC) }
	return d, artifact
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func sample() []*types.Listing {
	d1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	return []*types.Listing{
		item("books", "B1", d1, 8),
		item("toys", "T1", d1, 12),
		item("books", "B1", d2, 9),
		item("toys", "T1", d2, 10),
		item("toys", "T2", d2, 20),
	}
}

func TestReportForCategoryAndDay(t *testing.T) {
	reader := &memReader{listings: sample()}
	d, artifact := newTestDashboard(t, reader)
	h := d.Router()

	rec := get(t, h, "/api/report?category=toys&day=2024-03-02")
	require.Equal(t, http.StatusOK, rec.Code)

	var report analytics.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Metrics.Selected)
	require.NotNil(t, report.Metrics.Current.Price)
	assert.InDelta(t, 15.0, *report.Metrics.Current.Price, 1e-9)
	require.NotNil(t, report.Metrics.DeltaPrice)
	assert.InDelta(t, 25.0, *report.Metrics.DeltaPrice, 1e-9)

	_, err := os.Stat(artifact)
	assert.NoError(t, err)

	// no caching between requests
	get(t, h, "/api/report")
	assert.Equal(t, 2, reader.loads)
}

func TestReportWarnsWhenNoData(t *testing.T) {
	d, _ := newTestDashboard(t, &memReader{listings: sample()})
	h := d.Router()

	for _, target := range []string{
		"/api/report?from=2024-02-01&to=2024-03-02",
		"/api/report?category=garden",
		"/api/report?category=toys&price_min=100",
	} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, target)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["warning"], target)
	}

	rec := get(t, h, "/api/report?from=2024-02-01")
	assert.Contains(t, rec.Body.String(), "2024-03-01 to 2024-03-02")
}

func TestReportRejectsBadQuery(t *testing.T) {
	d, _ := newTestDashboard(t, &memReader{listings: sample()})
	h := d.Router()

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/report?price_min=cheap").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/report?price_min=NaN").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/report?price_max=Inf").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/report?price_max=-infinity").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/report?day=yesterday").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/report?price_min=20&price_max=10").Code)
}

func TestReportLoadFailure(t *testing.T) {
	d, _ := newTestDashboard(t, &memReader{err: errors.New("connection refused")})
	rec := get(t, d.Router(), "/api/report")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestOptions(t *testing.T) {
	d, _ := newTestDashboard(t, &memReader{listings: sample()})
	rec := get(t, d.Router(), "/api/options")
	require.Equal(t, http.StatusOK, rec.Code)

	var body optionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{analytics.AllRecords, analytics.UniqueProducts, "books", "toys"}, body.Domains.Categories)
	assert.Equal(t, []string{"2024-03-02", "2024-03-01"}, body.Domains.Days)
	assert.Equal(t, 5, body.Overview.TotalRecords)
	assert.Equal(t, 3, body.Overview.UniqueASINs)
}

func TestIndexHealthAndMetrics(t *testing.T) {
	d, _ := newTestDashboard(t, &memReader{listings: sample()})
	h := d.Router()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "echarts")

	rec = get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	get(t, h, "/api/report?category=garden")

	rec = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	text, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(text), `bestsellers_dashboard_requests_total{endpoint="/health",status="200"} 1`))
	assert.True(t, strings.Contains(string(text), `bestsellers_dashboard_requests_total{endpoint="/api/report",status="422"} 1`))
}

func TestCORSHeaders(t *testing.T) {
	d, _ := newTestDashboard(t, &memReader{listings: sample()})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	d.Router().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
