package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// Listing represents one captured bestseller slot.
type Listing struct {
	// CapturedAt is when the page holding this slot was extracted.
	CapturedAt time.Time

	// Category is parsed from the source listing URL.
	Category string

	// Rank is the 1-based position within the category, offset by page.
	Rank int

	// ASIN is the marketplace product identifier. The same ASIN may appear
	// in several categories.
	ASIN string

	Title       Field[string]
	Price       Field[float64]
	Rating      Field[float64]
	ReviewCount Field[int]
	ImageURL    Field[string]

	// DisplayedRank is the "#n" badge shown on the page, when there is one.
	DisplayedRank Field[int]
}

// Field names as they appear in stored documents.
const (
	FieldTitle       = "title"
	FieldPrice       = "price"
	FieldRating      = "rating"
	FieldReviewCount = "num_reviews"
	FieldImageURL    = "img_link"
)

func (l *Listing) states() []struct {
	name  string
	state FieldState
} {
	return []struct {
		name  string
		state FieldState
	}{
		{FieldTitle, l.Title.State},
		{FieldPrice, l.Price.State},
		{FieldRating, l.Rating.State},
		{FieldReviewCount, l.ReviewCount.State},
		{FieldImageURL, l.ImageURL.State},
	}
}

// Complete reports whether every extracted field is present.
func (l *Listing) Complete() bool {
	for _, s := range l.states() {
		if s.state != FieldPresent {
			return false
		}
	}
	return true
}

// MissingFields lists fields whose element was not shown.
func (l *Listing) MissingFields() []string {
	return l.fieldsIn(FieldNotShown)
}

// FailedFields lists fields whose element could not be parsed.
func (l *Listing) FailedFields() []string {
	return l.fieldsIn(FieldFailed)
}

func (l *Listing) fieldsIn(state FieldState) []string {
	out := []string{}
	for _, s := range l.states() {
		if s.state == state {
			out = append(out, s.name)
		}
	}
	return out
}

// ToJSON serializes the listing with absent values as null.
func (l *Listing) ToJSON() ([]byte, error) {
	return json.Marshal(struct {
		CapturedAt    time.Time `json:"datetime"`
		Category      string    `json:"category"`
		Rank          int       `json:"rank"`
		ASIN          string    `json:"asin"`
		Title         *string   `json:"title"`
		Price         *float64  `json:"price"`
		Rating        *float64  `json:"rating"`
		ReviewCount   *int      `json:"num_reviews"`
		ImageURL      *string   `json:"img_link"`
		DisplayedRank *int      `json:"displayed_rank,omitempty"`
		Complete      bool      `json:"complete"`
		Missing       []string  `json:"missing_fields"`
		Failed        []string  `json:"failed_fields"`
	}{
		CapturedAt:    l.CapturedAt,
		Category:      l.Category,
		Rank:          l.Rank,
		ASIN:          l.ASIN,
		Title:         l.Title.Ptr(),
		Price:         l.Price.Ptr(),
		Rating:        l.Rating.Ptr(),
		ReviewCount:   l.ReviewCount.Ptr(),
		ImageURL:      l.ImageURL.Ptr(),
		DisplayedRank: l.DisplayedRank.Ptr(),
		Complete:      l.Complete(),
		Missing:       l.MissingFields(),
		Failed:        l.FailedFields(),
	})
}

// ToFlatMap returns a flat map suitable for CSV export. Absent values are
// empty strings so they are never read back as zero.
func (l *Listing) ToFlatMap() map[string]string {
	flat := map[string]string{
		"datetime": l.CapturedAt.Format("2006-01-02 15:04:05"),
		"category": l.Category,
		"rank":     strconv.Itoa(l.Rank),
		"asin":     l.ASIN,
		"complete": strconv.FormatBool(l.Complete()),
	}
	flat[FieldTitle] = l.Title.Value
	flat[FieldImageURL] = l.ImageURL.Value
	flat[FieldPrice] = ""
	if v, ok := l.Price.Get(); ok {
		flat[FieldPrice] = strconv.FormatFloat(v, 'f', 2, 64)
	}
	flat[FieldRating] = ""
	if v, ok := l.Rating.Get(); ok {
		flat[FieldRating] = strconv.FormatFloat(v, 'f', 1, 64)
	}
	flat[FieldReviewCount] = ""
	if v, ok := l.ReviewCount.Get(); ok {
		flat[FieldReviewCount] = strconv.Itoa(v)
	}
	return flat
}
