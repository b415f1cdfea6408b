package analytics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/IshaanNene/bestsellers/internal/types"
)

// Synthetic category entries offered before the live categories.
const (
	AllRecords     = "All records"
	UniqueProducts = "Unique Products"
)

// ErrInvalidSelection is returned for a selection that can never match.
var ErrInvalidSelection = errors.New("invalid selection")

// DayLayout is the layout of every day key used by the dashboard.
const DayLayout = "2006-01-02"

// Selection is the user's current filter state. Empty strings and nil
// bounds mean "no restriction".
type Selection struct {
	Category string   `json:"category"`
	Day      string   `json:"day,omitempty"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
}

// Predicate reports whether a listing passes one filter.
type Predicate func(*types.Listing) bool

// dayKey returns the UTC capture day of t.
func dayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ByCategory keeps listings of one live category. The synthetic entries
// keep everything.
func ByCategory(category string) Predicate {
	if category == "" || category == AllRecords || category == UniqueProducts {
		return func(*types.Listing) bool { return true }
	}
	return func(l *types.Listing) bool { return l.Category == category }
}

// ByDay keeps listings captured on one day.
func ByDay(day string) Predicate {
	if day == "" {
		return func(*types.Listing) bool { return true }
	}
	return func(l *types.Listing) bool { return dayKey(l.CapturedAt) == day }
}

// ByDateRange keeps listings captured on a day within [from, to]. Either
// bound may be empty.
func ByDateRange(from, to string) Predicate {
	return func(l *types.Listing) bool {
		d := dayKey(l.CapturedAt)
		if from != "" && d < from {
			return false
		}
		if to != "" && d > to {
			return false
		}
		return true
	}
}

// ByPrice keeps listings whose price lies within [min, max]. With either
// bound set, listings without a present price are excluded.
func ByPrice(min, max *float64) Predicate {
	if min == nil && max == nil {
		return func(*types.Listing) bool { return true }
	}
	return func(l *types.Listing) bool {
		p, ok := l.Price.Get()
		if !ok {
			return false
		}
		if min != nil && p < *min {
			return false
		}
		if max != nil && p > *max {
			return false
		}
		return true
	}
}

// ByWindow keeps listings captured in [from, to).
func ByWindow(from, to time.Time) Predicate {
	return func(l *types.Listing) bool {
		return !l.CapturedAt.Before(from) && l.CapturedAt.Before(to)
	}
}

// Filter returns the listings that pass every predicate, in input order.
func Filter(listings []*types.Listing, preds ...Predicate) []*types.Listing {
	out := make([]*types.Listing, 0, len(listings))
next:
	for _, l := range listings {
		for _, p := range preds {
			if !p(l) {
				continue next
			}
		}
		out = append(out, l)
	}
	return out
}

// UniqueByASIN keeps the earliest captured listing for each ASIN. Ties go
// to the first one in input order. The result keeps input order.
func UniqueByASIN(listings []*types.Listing) []*types.Listing {
	earliest := make(map[string]int, len(listings))
	for i, l := range listings {
		j, ok := earliest[l.ASIN]
		if !ok || l.CapturedAt.Before(listings[j].CapturedAt) {
			earliest[l.ASIN] = i
		}
	}
	keep := make([]int, 0, len(earliest))
	for _, i := range earliest {
		keep = append(keep, i)
	}
	sort.Ints(keep)

	out := make([]*types.Listing, 0, len(keep))
	for _, i := range keep {
		out = append(out, listings[i])
	}
	return out
}

// Predicates returns the conjunctive filters for s in the order category,
// day, date range, price.
func (s Selection) Predicates() []Predicate {
	return []Predicate{
		ByCategory(s.Category),
		ByDay(s.Day),
		ByDateRange(s.From, s.To),
		ByPrice(s.PriceMin, s.PriceMax),
	}
}

// Validate checks the selection against the captured days. Both date range
// endpoints must be days that hold data.
func (s Selection) Validate(days []string) error {
	if s.From != "" && s.To != "" && s.From > s.To {
		return fmt.Errorf("%w: from %s is after to %s", types.ErrDateRangeUnavailable, s.From, s.To)
	}
	available := make(map[string]bool, len(days))
	for _, d := range days {
		available[d] = true
	}
	for _, d := range []string{s.From, s.To} {
		if d != "" && !available[d] {
			return fmt.Errorf("%w: %s (available dates: %s)", types.ErrDateRangeUnavailable, d, availableRange(days))
		}
	}
	if s.PriceMin != nil && s.PriceMax != nil && *s.PriceMin > *s.PriceMax {
		return fmt.Errorf("%w: price min %.2f is above max %.2f", ErrInvalidSelection, *s.PriceMin, *s.PriceMax)
	}
	return nil
}

// Apply validates s and filters listings with it. Unique Products keeps the
// earliest record per ASIN of the filtered set.
func (s Selection) Apply(listings []*types.Listing) ([]*types.Listing, error) {
	if err := s.Validate(Days(listings)); err != nil {
		return nil, err
	}
	out := Filter(listings, s.Predicates()...)
	if s.Category == UniqueProducts {
		out = UniqueByASIN(out)
	}
	if len(out) == 0 {
		return nil, types.ErrNoData
	}
	return out, nil
}

func availableRange(days []string) string {
	if len(days) == 0 {
		return "none"
	}
	// days are sorted newest first
	return days[len(days)-1] + " to " + days[0]
}
