package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/parser"
	"github.com/IshaanNene/bestsellers/internal/types"
)

// AssemblyReport describes how one page's field arrays were zipped.
type AssemblyReport struct {
	Slots     int
	Lengths   map[string]int
	Emitted   int
	Truncated bool
	// RankMismatches counts slots whose displayed badge disagreed with the
	// computed rank.
	RankMismatches int
}

// Assembler zips extracted field arrays into listings.
type Assembler struct {
	pageSize int
	policy   string
	logger   *slog.Logger
}

// NewAssembler creates an assembler for the given page size and length policy.
func NewAssembler(pageSize int, policy string, logger *slog.Logger) *Assembler {
	if policy == "" {
		policy = config.LengthPolicyTruncate
	}
	return &Assembler{
		pageSize: pageSize,
		policy:   policy,
		logger:   logger.With("component", "assembler"),
	}
}

// Assemble zips fields positionally. pageIndex is zero-based.
// Under the truncate policy it emits min(len(array)) listings; under the
// strict policy any length difference fails the page.
func (a *Assembler) Assemble(fields *parser.PageFields, category string, pageIndex int, capturedAt time.Time) ([]*types.Listing, AssemblyReport, error) {
	lengths := fields.Lengths()
	report := AssemblyReport{Slots: fields.Slots, Lengths: lengths}

	n := -1
	for _, l := range lengths {
		if n < 0 || l < n {
			n = l
		}
	}
	if n < 0 {
		n = 0
	}

	if !fields.Aligned() {
		a.logger.Warn("field length mismatch",
			"category", category,
			"page", pageIndex+1,
			"slots", fields.Slots,
			"asin", lengths["asin"],
			"title", lengths["title"],
			"price", lengths["price"],
			"rating", lengths["rating"],
			"num_reviews", lengths["num_reviews"],
			"img_link", lengths["img_link"],
		)
		if a.policy == config.LengthPolicyStrict {
			return nil, report, fmt.Errorf("%w: %v", types.ErrFieldLengthMismatch, lengths)
		}
		report.Truncated = true
	}

	listings := make([]*types.Listing, 0, n)
	for i := 0; i < n; i++ {
		l := &types.Listing{
			CapturedAt:  capturedAt,
			Category:    category,
			Rank:        i + 1 + pageIndex*a.pageSize,
			ASIN:        fields.ASINs[i],
			Title:       fields.Titles[i],
			Price:       fields.Prices[i],
			Rating:      fields.Ratings[i],
			ReviewCount: fields.ReviewCounts[i],
			ImageURL:    fields.Images[i],
		}
		if i < len(fields.DisplayedRanks) {
			l.DisplayedRank = fields.DisplayedRanks[i]
		}
		if shown, ok := l.DisplayedRank.Get(); ok && shown != l.Rank {
			report.RankMismatches++
		}
		listings = append(listings, l)
	}

	if report.RankMismatches > 0 {
		a.logger.Warn("displayed rank disagrees with computed rank",
			"category", category,
			"page", pageIndex+1,
			"slots", report.RankMismatches,
			"page_size", a.pageSize,
		)
	}

	report.Emitted = len(listings)
	return listings, report, nil
}
