package analytics

import (
	"math"
	"time"

	"github.com/IshaanNene/bestsellers/internal/types"
)

// Averages are means over present values only. A nil average means no
// listing in the set had the field.
type Averages struct {
	Count   int      `json:"count"`
	Price   *float64 `json:"price"`
	Rating  *float64 `json:"rating"`
	Reviews *float64 `json:"reviews"`
}

// Metrics are the headline numbers for the selection.
type Metrics struct {
	Selected int      `json:"selected"`
	Current  Averages `json:"current"`

	// Baseline covers [Anchor-24h, Anchor) with the same category and price
	// filters as the selection.
	Anchor   time.Time `json:"anchor"`
	Baseline Averages  `json:"baseline"`

	// Deltas are percent changes against the baseline, nil when the baseline
	// window is empty or its average is zero.
	DeltaPrice   *float64 `json:"delta_price"`
	DeltaRating  *float64 `json:"delta_rating"`
	DeltaReviews *float64 `json:"delta_reviews"`
}

// ComputeAverages averages price, rating and review count over listings.
func ComputeAverages(listings []*types.Listing) Averages {
	var prices, ratings, reviews []float64
	for _, l := range listings {
		if v, ok := l.Price.Get(); ok {
			prices = append(prices, v)
		}
		if v, ok := l.Rating.Get(); ok {
			ratings = append(ratings, v)
		}
		if v, ok := l.ReviewCount.Get(); ok {
			reviews = append(reviews, float64(v))
		}
	}
	return Averages{
		Count:   len(listings),
		Price:   mean(prices),
		Rating:  mean(ratings),
		Reviews: mean(reviews),
	}
}

// ComputeMetrics computes averages for selected and their 24h deltas. The
// anchor is the selected day, or the latest captured day when none is
// selected; all is the unfiltered table.
func ComputeMetrics(all, selected []*types.Listing, sel Selection) Metrics {
	m := Metrics{
		Selected: len(selected),
		Current:  ComputeAverages(selected),
		Anchor:   anchorDay(all, sel.Day),
	}
	if m.Anchor.IsZero() {
		return m
	}

	baseline := Filter(all,
		ByCategory(sel.Category),
		ByPrice(sel.PriceMin, sel.PriceMax),
		ByWindow(m.Anchor.Add(-24*time.Hour), m.Anchor),
	)
	m.Baseline = ComputeAverages(baseline)
	if m.Baseline.Count == 0 {
		return m
	}
	m.DeltaPrice = delta(m.Current.Price, m.Baseline.Price)
	m.DeltaRating = delta(m.Current.Rating, m.Baseline.Rating)
	m.DeltaReviews = delta(m.Current.Reviews, m.Baseline.Reviews)
	return m
}

func anchorDay(all []*types.Listing, day string) time.Time {
	if day == "" {
		days := Days(all)
		if len(days) == 0 {
			return time.Time{}
		}
		day = days[0]
	}
	t, err := time.ParseInLocation(DayLayout, day, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func delta(cur, base *float64) *float64 {
	if cur == nil || base == nil || *base == 0 {
		return nil
	}
	d := round2((*cur - *base) / *base * 100)
	return &d
}

func mean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	m := sum / float64(len(vals))
	return &m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
