package events

import (
	"context"
	"encoding/json"
	"time"
)

// SessionEvent describes one finished category session.
type SessionEvent struct {
	RunID      string    `json:"run_id"`
	Category   string    `json:"category"`
	URL        string    `json:"url"`
	Outcome    string    `json:"outcome"`
	StopReason string    `json:"stop_reason,omitempty"`
	Pages      int       `json:"pages"`
	Records    int       `json:"records"`
	Incomplete int       `json:"incomplete"`
	Dropped    int       `json:"dropped"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Encode returns the JSON payload of the event.
func (e SessionEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher announces finished sessions.
type Publisher interface {
	Publish(ctx context.Context, ev SessionEvent) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, SessionEvent) error { return nil }
func (Nop) Close() error                                { return nil }
