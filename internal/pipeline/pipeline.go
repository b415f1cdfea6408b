package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/bestsellers/internal/types"
)

// Middleware processes a listing and returns the (possibly modified) listing.
// Return nil to drop the listing from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a listing. Return nil to drop it.
	Process(l *types.Listing) (*types.Listing, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the chain every scraped page goes through.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(NewTrimMiddleware())
	p.Use(&RequiredASINMiddleware{})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the listing through all middleware in order.
func (p *Pipeline) Process(l *types.Listing) (*types.Listing, error) {
	current := l

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				ASIN:  current.ASIN,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("listing dropped", "stage", mw.Name(), "rank", l.Rank, "category", l.Category)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// ProcessAll runs every listing through the chain. It returns the survivors
// and how many were dropped. A middleware error drops only that listing.
func (p *Pipeline) ProcessAll(listings []*types.Listing) ([]*types.Listing, int) {
	out := make([]*types.Listing, 0, len(listings))
	dropped := 0
	for _, l := range listings {
		res, err := p.Process(l)
		if err != nil {
			p.logger.Warn("listing rejected", "error", err)
			dropped++
			continue
		}
		if res == nil {
			dropped++
			continue
		}
		out = append(out, res)
	}
	return out, dropped
}
