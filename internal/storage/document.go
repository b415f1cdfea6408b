package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/IshaanNene/bestsellers/internal/types"
)

// legacyTimeLayout is how older documents stored their capture time.
const legacyTimeLayout = "2006-01-02 15:04:05"

func toDocument(l *types.Listing) bson.D {
	return bson.D{
		{Key: "datetime", Value: l.CapturedAt.UTC()},
		{Key: "category", Value: l.Category},
		{Key: "rank", Value: l.Rank},
		{Key: "asin", Value: l.ASIN},
		{Key: types.FieldTitle, Value: l.Title.Ptr()},
		{Key: types.FieldPrice, Value: l.Price.Ptr()},
		{Key: types.FieldRating, Value: l.Rating.Ptr()},
		{Key: types.FieldReviewCount, Value: l.ReviewCount.Ptr()},
		{Key: types.FieldImageURL, Value: l.ImageURL.Ptr()},
		{Key: "displayed_rank", Value: l.DisplayedRank.Ptr()},
		{Key: "complete", Value: l.Complete()},
		{Key: "missing_fields", Value: l.MissingFields()},
		{Key: "failed_fields", Value: l.FailedFields()},
	}
}

// fromDocument decodes both current documents and legacy ones. Legacy
// documents have no "complete" key and use 0 (or "0") for any value that
// was not shown.
func fromDocument(doc bson.M) (*types.Listing, error) {
	at, err := decodeTime(doc["datetime"])
	if err != nil {
		return nil, err
	}
	l := &types.Listing{
		CapturedAt: at,
		Category:   asString(doc["category"]),
		ASIN:       asString(doc["asin"]),
	}
	if rank, ok := asFloat(doc["rank"]); ok {
		l.Rank = int(rank)
	}

	_, current := doc["complete"]
	failed := map[string]bool{}
	if arr, ok := doc["failed_fields"].(bson.A); ok {
		for _, v := range arr {
			failed[asString(v)] = true
		}
	}
	absent := func(name string) types.FieldState {
		if failed[name] {
			return types.FieldFailed
		}
		return types.FieldNotShown
	}

	l.Title = stringField(doc[types.FieldTitle], absent(types.FieldTitle))
	l.ImageURL = stringField(doc[types.FieldImageURL], absent(types.FieldImageURL))

	l.Price = floatField(doc[types.FieldPrice], absent(types.FieldPrice), !current, 0, math.MaxFloat64)
	l.Rating = floatField(doc[types.FieldRating], absent(types.FieldRating), !current, 0, 5)

	rc := floatField(doc[types.FieldReviewCount], absent(types.FieldReviewCount), !current, 0, math.MaxInt32)
	l.ReviewCount = types.Field[int]{Value: int(rc.Value), State: rc.State}

	if v, ok := asFloat(doc["displayed_rank"]); ok {
		l.DisplayedRank = types.Present(int(v))
	}
	return l, nil
}

func decodeTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC(), nil
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(legacyTimeLayout, t)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, t)
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("datetime %q: %w", t, err)
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("datetime has unsupported type %T", v)
	}
}

func stringField(v any, absent types.FieldState) types.Field[string] {
	s := strings.TrimSpace(asString(v))
	if s == "" {
		return types.Field[string]{State: absent}
	}
	return types.Present(s)
}

// floatField decodes a numeric value. With legacyZero set, a zero is the
// historical "not shown" sentinel. A stored value that is not a finite
// number, or falls outside [lo, hi], decodes as failed.
func floatField(v any, absent types.FieldState, legacyZero bool, lo, hi float64) types.Field[float64] {
	if s, isStr := v.(string); v == nil || isStr && strings.TrimSpace(s) == "" {
		return types.Field[float64]{State: absent}
	}
	f, ok := asFloat(v)
	if !ok || f < lo || f > hi {
		return types.Failed[float64]()
	}
	if legacyZero && f == 0 {
		return types.NotShown[float64]()
	}
	return types.Present(f)
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
