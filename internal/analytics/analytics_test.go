package analytics

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/bestsellers/internal/types"
)

var (
	day1 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
)

func ptr(v float64) *float64 { return &v }

func listing(cat, asin string, at time.Time, price, rating float64, reviews int) *types.Listing {
	l := &types.Listing{
		CapturedAt:  at,
		Category:    cat,
		ASIN:        asin,
		Title:       types.Present("Item " + asin),
		Price:       types.Present(price),
		Rating:      types.Present(rating),
		ReviewCount: types.Present(reviews),
		ImageURL:    types.Present("https://img/" + asin + ".jpg"),
	}
	if price < 0 {
		l.Price = types.NotShown[float64]()
	}
	if reviews < 0 {
		l.ReviewCount = types.NotShown[int]()
	}
	return l
}

// fixture spans two days and two categories. T1 also appears in books.
func fixture() []*types.Listing {
	return []*types.Listing{
		listing("toys", "T1", day1, 10, 4.0, 100),
		listing("toys", "T2", day1, 10, 5.0, 300),
		listing("books", "B1", day1, 5.5, 4.8, 1000),
		listing("toys", "T1", day2, 20, 4.5, 120),
		listing("toys", "T2", day2, 10, 4.0, 310),
		listing("toys", "T3", day2, -1, 3.0, -1),
		listing("books", "B1", day2, 6.5, 4.8, 1010),
		listing("books", "T1", day2.Add(time.Hour), 20, 4.5, 120),
	}
}

func TestToysOnDayTwo(t *testing.T) {
	all := fixture()
	sel := Selection{Category: "toys", Day: "2024-03-02"}

	selected, err := sel.Apply(all)
	require.NoError(t, err)
	require.Len(t, selected, 3)
	for _, l := range selected {
		assert.Equal(t, "toys", l.Category)
		assert.Equal(t, "2024-03-02", dayKey(l.CapturedAt))
	}

	avg := ComputeAverages(selected)
	require.NotNil(t, avg.Price)
	// T3 has no price and is left out of the mean
	assert.InDelta(t, 15.0, *avg.Price, 1e-9)
	require.NotNil(t, avg.Reviews)
	assert.InDelta(t, 215.0, *avg.Reviews, 1e-9)
}

func TestFilterOrderDoesNotMatter(t *testing.T) {
	all := fixture()
	cat := ByCategory("toys")
	rng := ByDateRange("2024-03-02", "2024-03-02")
	price := ByPrice(ptr(5), ptr(15))

	want := Filter(all, cat, rng, price)
	require.NotEmpty(t, want)

	orders := [][]Predicate{
		{cat, price, rng},
		{rng, cat, price},
		{rng, price, cat},
		{price, cat, rng},
		{price, rng, cat},
	}
	for _, order := range orders {
		assert.Equal(t, want, Filter(all, order...))
	}
	assert.Equal(t, want, Filter(Filter(all, rng), cat, price))
}

func TestPriceFilterExcludesMissingPrices(t *testing.T) {
	all := fixture()
	assert.Len(t, Filter(all, ByPrice(nil, nil)), len(all))
	for _, l := range Filter(all, ByPrice(ptr(0), nil)) {
		assert.True(t, l.Price.Ok())
	}
}

func TestDateRangeUnavailable(t *testing.T) {
	all := fixture()

	_, err := Selection{From: "2024-02-28", To: "2024-03-02"}.Apply(all)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDateRangeUnavailable)
	assert.True(t, types.IsNoData(err))
	assert.Contains(t, err.Error(), "2024-03-01 to 2024-03-02")

	_, err = Selection{From: "2024-03-02", To: "2024-03-01"}.Apply(all)
	assert.ErrorIs(t, err, types.ErrDateRangeUnavailable)

	_, err = Selection{From: "2024-03-01", To: "2024-03-02"}.Apply(all)
	assert.NoError(t, err)
}

func TestNoDataForSelection(t *testing.T) {
	_, err := Selection{Category: "garden"}.Apply(fixture())
	assert.ErrorIs(t, err, types.ErrNoData)

	_, err = BuildReport(nil, Selection{}, time.Now())
	assert.ErrorIs(t, err, types.ErrNoData)

	_, err = Selection{PriceMin: ptr(10), PriceMax: ptr(5)}.Apply(fixture())
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestUniqueProductsKeepsEarliest(t *testing.T) {
	selected, err := Selection{Category: UniqueProducts}.Apply(fixture())
	require.NoError(t, err)
	require.Len(t, selected, 4)

	byASIN := map[string]*types.Listing{}
	for _, l := range selected {
		byASIN[l.ASIN] = l
	}
	assert.Equal(t, day1, byASIN["T1"].CapturedAt)
	assert.Equal(t, "toys", byASIN["T1"].Category)
	assert.Equal(t, day2, byASIN["T3"].CapturedAt)
}

func TestMetricsDeltas(t *testing.T) {
	all := fixture()

	sel := Selection{Category: "toys", Day: "2024-03-02"}
	selected, err := sel.Apply(all)
	require.NoError(t, err)
	m := ComputeMetrics(all, selected, sel)
	assert.Equal(t, 3, m.Selected)
	assert.Equal(t, 2, m.Baseline.Count)
	require.NotNil(t, m.DeltaPrice)
	assert.InDelta(t, 50.0, *m.DeltaPrice, 1e-9)
	require.NotNil(t, m.DeltaRating)
	assert.Less(t, *m.DeltaRating, 0.0)

	// nothing was captured in the 24h before day one
	sel = Selection{Category: "toys", Day: "2024-03-01"}
	selected, err = sel.Apply(all)
	require.NoError(t, err)
	m = ComputeMetrics(all, selected, sel)
	assert.Equal(t, 0, m.Baseline.Count)
	assert.Nil(t, m.DeltaPrice)
	assert.Nil(t, m.DeltaRating)
	assert.Nil(t, m.DeltaReviews)
}

func TestMetricsAnchorDefaultsToLatestDay(t *testing.T) {
	all := fixture()
	selected, err := Selection{}.Apply(all)
	require.NoError(t, err)
	m := ComputeMetrics(all, selected, Selection{})
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), m.Anchor)
	assert.Equal(t, 3, m.Baseline.Count)
}

func TestOverview(t *testing.T) {
	ov := ComputeOverview(fixture())
	assert.Equal(t, 8, ov.TotalRecords)
	assert.Equal(t, 4, ov.UniqueASINs)
	assert.Equal(t, []DailyCount{
		{Day: "2024-03-01", Count: 3, Cumulative: 3},
		{Day: "2024-03-02", Count: 5, Cumulative: 8},
	}, ov.Daily)
	assert.Equal(t, 5, ov.AddedLatestDay)
	require.NotNil(t, ov.GrowthPercent)
	assert.InDelta(t, 166.67, *ov.GrowthPercent, 1e-9)
	assert.Equal(t, day2.Add(time.Hour), ov.LastUpdate)

	single := ComputeOverview(fixture()[:3])
	assert.Nil(t, single.GrowthPercent)
	assert.Equal(t, 3, single.AddedLatestDay)
}

func TestDomains(t *testing.T) {
	d := ComputeDomains(fixture(), nil)
	assert.Equal(t, []string{AllRecords, UniqueProducts, "books", "toys"}, d.Categories)
	assert.Equal(t, []string{"2024-03-02", "2024-03-01"}, d.Days)
	assert.Equal(t, "2024-03-01", d.FirstDay)
	assert.Equal(t, "2024-03-02", d.LastDay)
	require.NotNil(t, d.PriceMin)
	assert.Equal(t, 5.5, *d.PriceMin)
	assert.Equal(t, 20.0, *d.PriceMax)

	d = ComputeDomains(fixture(), []string{"toys"})
	assert.Equal(t, []string{AllRecords, UniqueProducts, "toys"}, d.Categories)
}

func TestHistograms(t *testing.T) {
	selected := Filter(fixture(), ByCategory("toys"), ByDay("2024-03-02"))

	prices := PriceHistogram(selected)
	require.Len(t, prices, 11)
	assert.Equal(t, Bin{Lower: 10, Upper: 11, Count: 1}, prices[0])
	assert.Equal(t, Bin{Lower: 20, Upper: 21, Count: 1}, prices[10])

	ratings := RatingHistogram(selected)
	require.Len(t, ratings, 16)
	assert.Equal(t, Bin{Lower: 3.0, Upper: 3.1, Count: 1}, ratings[0])
	assert.Equal(t, 1, ratings[10].Count)
	assert.Equal(t, 1, ratings[15].Count)

	assert.Nil(t, PriceHistogram(nil))
}

func TestPriceHistogramBoundsBinCount(t *testing.T) {
	listings := []*types.Listing{
		listing("toys", "A", day1, 0, 4.0, 1),
		listing("toys", "B", day1, 2_000_000, 4.0, 1),
		listing("toys", "C", day1, math.NaN(), 4.0, 1),
		listing("toys", "D", day1, math.Inf(1), 4.0, 1),
	}

	bins := PriceHistogram(listings)
	require.Len(t, bins, maxBins)
	assert.Equal(t, Bin{Lower: 0, Upper: 6667, Count: 1}, bins[0])
	assert.Equal(t, 1, bins[maxBins-1].Count)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 2, total, "non-finite prices are not binned")

	huge := PriceHistogram([]*types.Listing{listing("toys", "E", day1, 1e300, 4.0, 1)})
	require.Len(t, huge, 1)
	assert.Equal(t, 1, huge[0].Count)
}

func TestBuildReportSurvivesNonFinitePrice(t *testing.T) {
	all := append(fixture(), listing("toys", "N", day2, math.NaN(), 4.0, 1))
	assert.NotPanics(t, func() {
		_, err := BuildReport(all, Selection{Category: AllRecords}, day2)
		require.NoError(t, err)
	})
}

func TestSeries(t *testing.T) {
	all := fixture()

	avg := AvgPricePerCategory(all)
	require.Len(t, avg, 2)
	assert.Equal(t, "toys", avg[0].Category)
	assert.Equal(t, 12.5, avg[0].Value)

	assert.Len(t, Scatter(all), 7)

	reviews := ReviewsOverTime(Filter(all, ByCategory("toys")))
	assert.Equal(t, []DayValue{{Day: "2024-03-01", Value: 400}, {Day: "2024-03-02", Value: 430}}, reviews)

	size := DatabaseSize(all)
	require.Len(t, size, 3)
	assert.Equal(t, 3, size[0].Value)
	assert.Equal(t, 4, size[1].Value)
	assert.Equal(t, 4, size[2].Value)

	frames := Timeline(all)
	require.Len(t, frames, 2)
	assert.Equal(t, "2024-03-01", frames[0].Day)
	require.Len(t, frames[0].Categories, 2)
	assert.Equal(t, "books", frames[0].Categories[0].Category)
	assert.Equal(t, 10.0, *frames[0].Categories[1].Price)
}

func TestBuildReportWritesTimeline(t *testing.T) {
	now := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	r, err := BuildReport(fixture(), Selection{Category: AllRecords}, now)
	require.NoError(t, err)
	assert.Equal(t, 8, r.Metrics.Selected)

	path := filepath.Join(t.TempDir(), "out", "timeline.json")
	require.NoError(t, WriteTimeline(path, r))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got struct {
		Frames []TimelineFrame `json:"frames"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Len(t, got.Frames, 2)
}
