package analytics

import (
	"sort"
	"time"

	"github.com/IshaanNene/bestsellers/internal/types"
)

// Domains holds the selectable values derived from the loaded table.
type Domains struct {
	Categories []string `json:"categories"`
	Days       []string `json:"days"`
	PriceMin   *float64 `json:"price_min"`
	PriceMax   *float64 `json:"price_max"`
	FirstDay   string   `json:"first_day"`
	LastDay    string   `json:"last_day"`
}

// Days returns the distinct capture days, newest first.
func Days(listings []*types.Listing) []string {
	seen := make(map[string]struct{})
	for _, l := range listings {
		seen[dayKey(l.CapturedAt)] = struct{}{}
	}
	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days
}

// ComputeDomains derives the filter domains. categories is the live distinct
// category list; when nil it is taken from listings.
func ComputeDomains(listings []*types.Listing, categories []string) Domains {
	if categories == nil {
		set := make(map[string]struct{})
		for _, l := range listings {
			if l.Category != "" {
				set[l.Category] = struct{}{}
			}
		}
		for c := range set {
			categories = append(categories, c)
		}
		sort.Strings(categories)
	}

	d := Domains{
		Categories: append([]string{AllRecords, UniqueProducts}, categories...),
		Days:       Days(listings),
	}
	if len(d.Days) > 0 {
		d.FirstDay = d.Days[len(d.Days)-1]
		d.LastDay = d.Days[0]
	}

	var prices []float64
	for _, l := range listings {
		if p, ok := l.Price.Get(); ok {
			prices = append(prices, p)
		}
	}
	if len(prices) > 0 {
		lo, hi := prices[0], prices[0]
		for _, p := range prices[1:] {
			lo = min(lo, p)
			hi = max(hi, p)
		}
		d.PriceMin, d.PriceMax = &lo, &hi
	}
	return d
}

// DailyCount is the number of records captured on one day.
type DailyCount struct {
	Day        string `json:"day"`
	Count      int    `json:"count"`
	Cumulative int    `json:"cumulative"`
}

// Overview summarizes the whole table, independent of the selection.
type Overview struct {
	TotalRecords   int          `json:"total_records"`
	UniqueASINs    int          `json:"unique_asins"`
	Daily          []DailyCount `json:"daily"`
	AddedLatestDay int          `json:"added_latest_day"`
	// GrowthPercent is nil when nothing was captured before the latest day.
	GrowthPercent *float64  `json:"growth_percent"`
	LastUpdate    time.Time `json:"last_update"`
}

// ComputeOverview counts records per day with cumulative growth.
func ComputeOverview(listings []*types.Listing) Overview {
	ov := Overview{TotalRecords: len(listings)}

	asins := make(map[string]struct{})
	perDay := make(map[string]int)
	for _, l := range listings {
		asins[l.ASIN] = struct{}{}
		perDay[dayKey(l.CapturedAt)]++
		if l.CapturedAt.After(ov.LastUpdate) {
			ov.LastUpdate = l.CapturedAt
		}
	}
	ov.UniqueASINs = len(asins)

	days := make([]string, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Strings(days)

	cum := 0
	for _, d := range days {
		cum += perDay[d]
		ov.Daily = append(ov.Daily, DailyCount{Day: d, Count: perDay[d], Cumulative: cum})
	}

	if n := len(ov.Daily); n > 0 {
		ov.AddedLatestDay = ov.Daily[n-1].Count
		if n > 1 {
			prev := ov.Daily[n-2].Cumulative
			pct := round2(float64(ov.AddedLatestDay) / float64(prev) * 100)
			ov.GrowthPercent = &pct
		}
	}
	return ov
}
