package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/bestsellers/internal/types"
)

// --- JSONL Storage ---

// JSONLStorage writes listings as newline-delimited JSON (one object per line).
type JSONLStorage struct {
	path   string
	file   *os.File
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStorage creates a new JSONL file storage (streaming writes).
func NewJSONLStorage(outputPath string, logger *slog.Logger) (*JSONLStorage, error) {
	f, err := createOutput(outputPath)
	if err != nil {
		return nil, err
	}
	return &JSONLStorage{
		path:   outputPath,
		file:   f,
		logger: logger.With("component", "jsonl_storage"),
	}, nil
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Store(_ context.Context, listings []*types.Listing) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range listings {
		line, err := l.ToJSON()
		if err != nil {
			return i, &types.StorageError{Backend: "jsonl", Err: err}
		}
		if _, err := s.file.Write(append(line, '\n')); err != nil {
			return i, &types.StorageError{Backend: "jsonl", Err: err}
		}
		s.count++
	}
	return len(listings), nil
}

func (s *JSONLStorage) Close() error {
	s.logger.Info("JSONL written", "path", s.path, "items", s.count)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// --- CSV Storage ---

var csvHeaders = []string{
	"datetime", "category", "rank", "asin",
	types.FieldTitle, types.FieldPrice, types.FieldRating, types.FieldReviewCount, types.FieldImageURL,
	"complete",
}

// CSVStorage writes listings as CSV rows.
type CSVStorage struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewCSVStorage creates a new CSV file storage and writes the header row.
func NewCSVStorage(outputPath string, logger *slog.Logger) (*CSVStorage, error) {
	f, err := createOutput(outputPath)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeaders); err != nil {
		f.Close()
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	return &CSVStorage{
		path:   outputPath,
		file:   f,
		writer: w,
		logger: logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStorage) Name() string { return "csv" }

func (s *CSVStorage) Store(_ context.Context, listings []*types.Listing) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range listings {
		flat := l.ToFlatMap()
		row := make([]string, len(csvHeaders))
		for j, h := range csvHeaders {
			row[j] = flat[h]
		}
		if err := s.writer.Write(row); err != nil {
			return i, &types.StorageError{Backend: "csv", Err: err}
		}
		s.count++
	}

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return len(listings), &types.StorageError{Backend: "csv", Err: err}
	}
	return len(listings), nil
}

func (s *CSVStorage) Close() error {
	s.logger.Info("CSV written", "path", s.path, "items", s.count)
	if s.writer != nil {
		s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// NewFileStorage creates the file mirror for storageType at path.
func NewFileStorage(storageType, path string, logger *slog.Logger) (Storage, error) {
	switch storageType {
	case "jsonl":
		return NewJSONLStorage(path, logger)
	case "csv":
		return NewCSVStorage(path, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

func createOutput(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}
