package analytics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/IshaanNene/bestsellers/internal/types"
)

// Report is everything the dashboard renders for one selection.
type Report struct {
	Selection   Selection `json:"selection"`
	Overview    Overview  `json:"overview"`
	Metrics     Metrics   `json:"metrics"`
	Charts      Charts    `json:"charts"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildReport derives the full report for sel from the loaded table. It
// returns an error wrapping types.ErrNoData or types.ErrDateRangeUnavailable
// when there is nothing to show.
func BuildReport(all []*types.Listing, sel Selection, now time.Time) (*Report, error) {
	if len(all) == 0 {
		return nil, types.ErrNoData
	}
	selected, err := sel.Apply(all)
	if err != nil {
		return nil, err
	}
	return &Report{
		Selection:   sel,
		Overview:    ComputeOverview(all),
		Metrics:     ComputeMetrics(all, selected, sel),
		Charts:      ComputeCharts(all, selected, sel),
		GeneratedAt: now,
	}, nil
}

type timelineArtifact struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Selection   Selection       `json:"selection"`
	Frames      []TimelineFrame `json:"frames"`
}

// WriteTimeline writes the report's timeline frames as JSON to path. The
// file is replaced atomically.
func WriteTimeline(path string, r *Report) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(timelineArtifact{
		GeneratedAt: r.GeneratedAt,
		Selection:   r.Selection,
		Frames:      r.Charts.Timeline,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".timeline-*.json")
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close artifact: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
