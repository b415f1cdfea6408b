package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/parser"
	"github.com/IshaanNene/bestsellers/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var capturedAt = time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC)

func threeSlotFields() *parser.PageFields {
	return &parser.PageFields{
		Slots:  3,
		ASINs:  []string{"B0001", "B0002", "B0003"},
		Titles: []types.Field[string]{types.Present("Puzzle"), types.Present("Robot"), types.Present("Cubes")},
		Prices: []types.Field[float64]{types.Present(12.50), types.NotShown[float64](), types.Present(7.99)},
		Ratings: []types.Field[float64]{
			types.Present(4.5), types.Present(4.0), types.NotShown[float64](),
		},
		ReviewCounts:   []types.Field[int]{types.Present(10), types.Present(0), types.NotShown[int]()},
		Images:         []types.Field[string]{types.Present("a"), types.Present("b"), types.Present("c")},
		DisplayedRanks: []types.Field[int]{types.Present(1), types.Present(2), types.Present(3)},
	}
}

func TestAssembleKeepsMissingPriceSlot(t *testing.T) {
	a := NewAssembler(50, config.LengthPolicyTruncate, testLogger)
	listings, report, err := a.Assemble(threeSlotFields(), "toys", 0, capturedAt)
	require.NoError(t, err)

	require.Len(t, listings, 3)
	assert.False(t, report.Truncated)
	assert.Equal(t, 0, report.RankMismatches)

	assert.Equal(t, types.FieldNotShown, listings[1].Price.State)
	assert.Equal(t, []string{types.FieldPrice}, listings[1].MissingFields())
	assert.True(t, listings[0].Complete())

	// A present zero review count is not a missing value.
	assert.Equal(t, types.Present(0), listings[1].ReviewCount)

	for i, l := range listings {
		assert.Equal(t, i+1, l.Rank)
		assert.Equal(t, "toys", l.Category)
		assert.Equal(t, capturedAt, l.CapturedAt)
	}
}

func TestAssembleRankOffsetByPage(t *testing.T) {
	a := NewAssembler(50, config.LengthPolicyTruncate, testLogger)
	fields := threeSlotFields()
	fields.DisplayedRanks = []types.Field[int]{types.Present(51), types.Present(52), types.Present(53)}

	listings, report, err := a.Assemble(fields, "toys", 1, capturedAt)
	require.NoError(t, err)
	assert.Equal(t, 51, listings[0].Rank)
	assert.Equal(t, 53, listings[2].Rank)
	assert.Equal(t, 0, report.RankMismatches)
}

func TestAssembleTruncatesToShortest(t *testing.T) {
	a := NewAssembler(50, config.LengthPolicyTruncate, testLogger)
	fields := threeSlotFields()
	fields.ASINs = append(fields.ASINs, "B0004", "B0005")
	fields.Images = fields.Images[:2]

	listings, report, err := a.Assemble(fields, "books", 0, capturedAt)
	require.NoError(t, err)
	assert.Len(t, listings, 2)
	assert.True(t, report.Truncated)
	assert.Equal(t, 5, report.Lengths["asin"])
	assert.Equal(t, 2, report.Emitted)
}

func TestAssembleStrictRejectsMismatch(t *testing.T) {
	a := NewAssembler(50, config.LengthPolicyStrict, testLogger)
	fields := threeSlotFields()
	fields.Images = fields.Images[:1]

	listings, _, err := a.Assemble(fields, "books", 0, capturedAt)
	assert.Nil(t, listings)
	assert.True(t, errors.Is(err, types.ErrFieldLengthMismatch))
}

func TestAssembleCountsRankMismatch(t *testing.T) {
	a := NewAssembler(40, config.LengthPolicyTruncate, testLogger)
	fields := threeSlotFields()
	fields.DisplayedRanks = []types.Field[int]{types.Present(51), types.Present(52), types.NotShown[int]()}

	listings, report, err := a.Assemble(fields, "toys", 1, capturedAt)
	require.NoError(t, err)
	assert.Equal(t, 41, listings[0].Rank)
	assert.Equal(t, 2, report.RankMismatches)
}

func TestPipelineTrimsAndDrops(t *testing.T) {
	p := Default(testLogger)

	keep := &types.Listing{
		ASIN:     " B0001 ",
		Title:    types.Present("  Lego &amp; <b>Friends</b>\n Set "),
		ImageURL: types.Present(" https://img/x.jpg?a=1&amp;b=2 "),
	}
	blankTitle := &types.Listing{ASIN: "B0002", Title: types.Present("   ")}
	noASIN := &types.Listing{ASIN: "  ", Title: types.Present("Orphan")}

	out, dropped := p.ProcessAll([]*types.Listing{keep, blankTitle, noASIN})
	require.Len(t, out, 2)
	assert.Equal(t, 1, dropped)

	assert.Equal(t, "B0001", out[0].ASIN)
	assert.Equal(t, types.Present("Lego & Friends Set"), out[0].Title)
	assert.Equal(t, types.Present("https://img/x.jpg?a=1&b=2"), out[0].ImageURL)
	assert.Equal(t, types.FieldNotShown, out[1].Title.State)
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "boom" }
func (failingMiddleware) Process(*types.Listing) (*types.Listing, error) {
	return nil, errors.New("boom")
}

func TestPipelineErrorIsWrapped(t *testing.T) {
	p := New(testLogger)
	p.Use(failingMiddleware{})

	_, err := p.Process(&types.Listing{ASIN: "X"})
	var perr *types.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "boom", perr.Stage)
	assert.Equal(t, "X", perr.ASIN)

	out, dropped := p.ProcessAll([]*types.Listing{{ASIN: "X"}})
	assert.Empty(t, out)
	assert.Equal(t, 1, dropped)
}
