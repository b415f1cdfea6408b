package automation

import (
	"context"
	"time"
)

// Page is the subset of browser-tab control the paginator needs.
// Every call honours ctx for cancellation and deadlines.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// WaitStable blocks until the DOM has not changed for d.
	WaitStable(ctx context.Context, d time.Duration) error

	// Click clicks the first element matching selector. It reports false,
	// with no error, when nothing matches.
	Click(ctx context.Context, selector string) (bool, error)

	// ScrollHeight returns document.body.scrollHeight.
	ScrollHeight(ctx context.Context) (int, error)

	// ScrollToBottom scrolls the window to the current document height.
	ScrollToBottom(ctx context.Context) error

	// Count returns how many elements currently match selector.
	Count(ctx context.Context, selector string) (int, error)

	// HTML returns the serialized DOM.
	HTML(ctx context.Context) (string, error)

	Close() error
}

// poll calls cond every interval until it reports true, ctx ends, or
// timeout elapses. A timeout is reported as (false, nil).
func poll(ctx context.Context, interval, timeout time.Duration, cond func() (bool, error)) (bool, error) {
	ok, err := cond()
	if err != nil || ok {
		return ok, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
			ok, err := cond()
			if err != nil || ok {
				return ok, err
			}
		}
	}
}
