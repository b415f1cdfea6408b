package storage

import (
	"context"

	"github.com/IshaanNene/bestsellers/internal/types"
)

// Storage is the interface for all listing sinks.
type Storage interface {
	// Store persists listings one by one and returns how many were written
	// before the first failure.
	Store(ctx context.Context, listings []*types.Listing) (int, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Reader loads the accumulated listing history.
type Reader interface {
	LoadAll(ctx context.Context) ([]*types.Listing, error)
	Categories(ctx context.Context) ([]string, error)
}

// Shared wraps a backend used by several sessions so that closing one
// session does not close the backend. The owner closes the wrapped value.
func Shared(s Storage) Storage {
	return sharedStorage{s}
}

type sharedStorage struct{ Storage }

func (sharedStorage) Close() error { return nil }
