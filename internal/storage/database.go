package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/types"
)

// MongoStorage writes listings to a MongoDB collection, one insert per
// listing, and reads the collection back for the dashboard.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	mu         sync.Mutex
	count      int
	closed     bool
	logger     *slog.Logger
}

// NewMongoStorage connects to MongoDB and verifies the connection.
func NewMongoStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	s := NewMongoStorageFromCollection(client.Database(cfg.Database).Collection(cfg.Collection), cfg.Timeout, logger)
	s.client = client
	return s, nil
}

// NewMongoStorageFromCollection wraps an existing collection. Close does not
// disconnect a client it did not create.
func NewMongoStorageFromCollection(coll *mongo.Collection, timeout time.Duration, logger *slog.Logger) *MongoStorage {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MongoStorage{
		collection: coll,
		timeout:    timeout,
		logger:     logger.With("component", "mongo_storage", "collection", coll.Name()),
	}
}

func (s *MongoStorage) Name() string { return "mongodb" }

// Store inserts each listing individually. There is no transaction: on
// failure the listings before the failing one remain stored.
func (s *MongoStorage) Store(ctx context.Context, listings []*types.Listing) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, &types.StorageError{Backend: "mongodb", Err: types.ErrStoreClosed}
	}

	written := 0
	for _, l := range listings {
		insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
		_, err := s.collection.InsertOne(insertCtx, toDocument(l))
		cancel()
		if err != nil {
			return written, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("insert asin %s: %w", l.ASIN, err)}
		}
		written++
		s.count++
		s.logger.Debug("listing stored", "asin", l.ASIN, "category", l.Category, "total", s.count)
	}
	return written, nil
}

// LoadAll reads every document in the collection.
func (s *MongoStorage) LoadAll(ctx context.Context) ([]*types.Listing, error) {
	cur, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find: %w", err)}
	}
	defer cur.Close(ctx)

	var out []*types.Listing
	skipped := 0
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("decode: %w", err)}
		}
		l, err := fromDocument(doc)
		if err != nil {
			skipped++
			s.logger.Debug("document skipped", "error", err)
			continue
		}
		out = append(out, l)
	}
	if err := cur.Err(); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("cursor: %w", err)}
	}
	if skipped > 0 {
		s.logger.Warn("undecodable documents skipped", "count", skipped)
	}
	return out, nil
}

// Categories returns the distinct categories present in the collection.
func (s *MongoStorage) Categories(ctx context.Context) ([]string, error) {
	values, err := s.collection.Distinct(ctx, "category", bson.D{})
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("distinct: %w", err)}
	}
	cats := make([]string, 0, len(values))
	for _, v := range values {
		if c, ok := v.(string); ok && c != "" {
			cats = append(cats, c)
		}
	}
	sort.Strings(cats)
	return cats, nil
}

func (s *MongoStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("mongodb storage closing", "total_items", s.count)
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes listings to a primary backend and any mirrors.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
// The first backend is the primary; its count is the one reported.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

// Store writes to the primary first. Mirrors receive only the listings the
// primary accepted, so they never hold records the primary lacks.
func (s *MultiStorage) Store(ctx context.Context, listings []*types.Listing) (int, error) {
	if len(s.backends) == 0 {
		return 0, nil
	}
	primary := s.backends[0]
	written, firstErr := primary.Store(ctx, listings)
	if firstErr != nil {
		s.logger.Error("backend store failed", "backend", primary.Name(), "error", firstErr)
	}
	if written == 0 {
		return 0, firstErr
	}
	for _, mirror := range s.backends[1:] {
		if _, err := mirror.Store(ctx, listings[:written]); err != nil {
			s.logger.Error("backend store failed", "backend", mirror.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return written, firstErr
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
