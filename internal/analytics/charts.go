package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/IshaanNene/bestsellers/internal/types"
)

// Bin is one histogram bucket covering [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// CategoryValue is one bar of a per-category chart.
type CategoryValue struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// ScatterPoint is one listing on the price vs rating chart.
type ScatterPoint struct {
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
	Category string  `json:"category"`
	ASIN     string  `json:"asin"`
	Title    string  `json:"title,omitempty"`
}

// DayValue is one point of a daily series.
type DayValue struct {
	Day   string  `json:"day"`
	Value float64 `json:"value"`
}

// TimeValue is one point of an hourly series.
type TimeValue struct {
	Time  time.Time `json:"time"`
	Value int       `json:"value"`
}

// CategoryStats are the per-category averages of one timeline frame.
type CategoryStats struct {
	Category string `json:"category"`
	Averages
}

// TimelineFrame holds every category's averages for one captured day.
type TimelineFrame struct {
	Day        string          `json:"day"`
	Categories []CategoryStats `json:"categories"`
}

// Charts are the projections drawn by the dashboard.
type Charts struct {
	PriceHistogram      []Bin           `json:"price_histogram"`
	RatingHistogram     []Bin           `json:"rating_histogram"`
	AvgPricePerCategory []CategoryValue `json:"avg_price_per_category"`
	Scatter             []ScatterPoint  `json:"scatter"`
	ReviewsOverTime     []DayValue      `json:"reviews_over_time"`
	DatabaseSize        []TimeValue     `json:"database_size"`
	Timeline            []TimelineFrame `json:"timeline"`
}

// ComputeCharts projects the chart series. selected is the filtered set;
// the time series are computed from all with the filters they apply.
func ComputeCharts(all, selected []*types.Listing, sel Selection) Charts {
	return Charts{
		PriceHistogram:      PriceHistogram(selected),
		RatingHistogram:     RatingHistogram(selected),
		AvgPricePerCategory: AvgPricePerCategory(selected),
		Scatter:             Scatter(selected),
		ReviewsOverTime: ReviewsOverTime(Filter(all,
			ByCategory(sel.Category),
			ByDateRange(sel.From, sel.To),
			ByPrice(sel.PriceMin, sel.PriceMax),
		)),
		DatabaseSize: DatabaseSize(all),
		Timeline: Timeline(Filter(all,
			ByDateRange(sel.From, sel.To),
			ByPrice(sel.PriceMin, sel.PriceMax),
		)),
	}
}

// maxBins caps the length of every histogram. Wider value ranges get
// proportionally wider bins.
const maxBins = 300

// priceCeiling bounds prices before binning so the bin index fits an int.
const priceCeiling = 1e12

// PriceHistogram buckets present prices into bins one currency unit wide,
// widened when the price range exceeds maxBins units.
func PriceHistogram(listings []*types.Listing) []Bin {
	var idx []int
	for _, l := range listings {
		if p, ok := l.Price.Get(); ok && finite(p) && p >= 0 {
			idx = append(idx, int(math.Floor(math.Min(p, priceCeiling))))
		}
	}
	return histogram(idx, 1)
}

// RatingHistogram buckets ratings above zero into bins of 0.1.
func RatingHistogram(listings []*types.Listing) []Bin {
	var idx []int
	for _, l := range listings {
		if r, ok := l.Rating.Get(); ok && finite(r) && r > 0 {
			idx = append(idx, int(math.Floor(r*10+1e-9)))
		}
	}
	return histogram(idx, 0.1)
}

func histogram(idx []int, width float64) []Bin {
	if len(idx) == 0 {
		return nil
	}
	lo, hi := idx[0], idx[0]
	for _, i := range idx[1:] {
		lo = min(lo, i)
		hi = max(hi, i)
	}
	span := hi - lo + 1
	step := 1
	if span > maxBins {
		step = (span + maxBins - 1) / maxBins
	}
	bins := make([]Bin, (span+step-1)/step)
	for i := range bins {
		lower := float64(lo+i*step) * width
		bins[i] = Bin{Lower: round2(lower), Upper: round2(lower + float64(step)*width)}
	}
	for _, i := range idx {
		bins[(i-lo)/step].Count++
	}
	return bins
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AvgPricePerCategory averages present prices per category, highest first.
func AvgPricePerCategory(listings []*types.Listing) []CategoryValue {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, l := range listings {
		if p, ok := l.Price.Get(); ok {
			sums[l.Category] += p
			counts[l.Category]++
		}
	}
	out := make([]CategoryValue, 0, len(sums))
	for c, s := range sums {
		out = append(out, CategoryValue{Category: c, Value: round2(s / float64(counts[c]))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Scatter returns listings with a positive price and a present rating.
func Scatter(listings []*types.Listing) []ScatterPoint {
	var out []ScatterPoint
	for _, l := range listings {
		p, okP := l.Price.Get()
		r, okR := l.Rating.Get()
		if !okP || !okR || p <= 0 {
			continue
		}
		out = append(out, ScatterPoint{Price: p, Rating: r, Category: l.Category, ASIN: l.ASIN, Title: l.Title.Value})
	}
	return out
}

// ReviewsOverTime sums present review counts per capture day.
func ReviewsOverTime(listings []*types.Listing) []DayValue {
	sums := make(map[string]float64)
	for _, l := range listings {
		d := dayKey(l.CapturedAt)
		if _, ok := sums[d]; !ok {
			sums[d] = 0
		}
		if v, ok := l.ReviewCount.Get(); ok {
			sums[d] += float64(v)
		}
	}
	out := make([]DayValue, 0, len(sums))
	for d, s := range sums {
		out = append(out, DayValue{Day: d, Value: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// DatabaseSize returns, for each captured hour, the number of distinct ASINs
// seen up to the end of that hour.
func DatabaseSize(listings []*types.Listing) []TimeValue {
	firstSeen := make(map[string]time.Time)
	hours := make(map[time.Time]struct{})
	for _, l := range listings {
		h := l.CapturedAt.UTC().Truncate(time.Hour)
		hours[h] = struct{}{}
		if t, ok := firstSeen[l.ASIN]; !ok || h.Before(t) {
			firstSeen[l.ASIN] = h
		}
	}
	newPerHour := make(map[time.Time]int)
	for _, h := range firstSeen {
		newPerHour[h]++
	}

	ordered := make([]time.Time, 0, len(hours))
	for h := range hours {
		ordered = append(ordered, h)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	out := make([]TimeValue, 0, len(ordered))
	size := 0
	for _, h := range ordered {
		size += newPerHour[h]
		out = append(out, TimeValue{Time: h, Value: size})
	}
	return out
}

// Timeline groups listings by capture day and category.
func Timeline(listings []*types.Listing) []TimelineFrame {
	groups := make(map[string]map[string][]*types.Listing)
	for _, l := range listings {
		d := dayKey(l.CapturedAt)
		if groups[d] == nil {
			groups[d] = make(map[string][]*types.Listing)
		}
		groups[d][l.Category] = append(groups[d][l.Category], l)
	}

	days := make([]string, 0, len(groups))
	for d := range groups {
		days = append(days, d)
	}
	sort.Strings(days)

	frames := make([]TimelineFrame, 0, len(days))
	for _, d := range days {
		cats := make([]string, 0, len(groups[d]))
		for c := range groups[d] {
			cats = append(cats, c)
		}
		sort.Strings(cats)

		frame := TimelineFrame{Day: d}
		for _, c := range cats {
			frame.Categories = append(frame.Categories, CategoryStats{Category: c, Averages: ComputeAverages(groups[d][c])})
		}
		frames = append(frames, frame)
	}
	return frames
}
