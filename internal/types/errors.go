package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoListings           = errors.New("no listing slots appeared on page")
	ErrInvalidCategoryURL   = errors.New("cannot derive category from URL")
	ErrFieldLengthMismatch  = errors.New("extracted field arrays differ in length")
	ErrSessionPanic         = errors.New("category session panicked")
	ErrNoData               = errors.New("no data for the selected filters")
	ErrDateRangeUnavailable = errors.New("selected date range is outside the captured days")
	ErrStoreClosed          = errors.New("store is closed")
)

// ExtractError wraps a failure to turn a located element into a field value.
type ExtractError struct {
	Field string
	Slot  int
	Err   error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s (slot %d): %v", e.Field, e.Slot, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// SessionError wraps any failure that ended one category session.
type SessionError struct {
	Category string
	URL      string
	Page     int
	Err      error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s (page %d, %s): %v", e.Category, e.Page, e.URL, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsNoData reports whether err means the dashboard has nothing to show.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData) || errors.Is(err, ErrDateRangeUnavailable)
}

// PipelineError wraps a middleware failure for one listing.
type PipelineError struct {
	Stage string
	ASIN  string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at %s (asin %s): %v", e.Stage, e.ASIN, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
