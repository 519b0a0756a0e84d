// Package storage persists experiment results. The JSON document is the
// canonical store; the SQLite backend mirrors the same records in tables.
package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/himanishpuri/shinglebench/pkg/models"
)

var (
	ErrStoreNotFound = fmt.Errorf("results store not found: %w", os.ErrNotExist)
	ErrStoreCorrupt  = errors.New("results store is corrupt")
	ErrUnknownKind   = errors.New("unknown store kind")
)

const (
	KindJSON   = "json"
	KindSQLite = "sqlite"

	DefaultJSONFile   = "RESULTS.json"
	DefaultSQLiteFile = "results.sqlite3"
)

// ResultStore is an append-only ordered log of experiment results.
// Implementations do not lock; concurrent writers can lose records.
type ResultStore interface {
	Load() ([]models.ExperimentResult, error)
	Append(result models.ExperimentResult) error
	Save(results []models.ExperimentResult) error
	Close() error
}

// Open returns the backend for kind. An empty kind means JSON and an empty
// path means the kind's default file.
func Open(kind, path string) (ResultStore, error) {
	switch kind {
	case "", KindJSON:
		if path == "" {
			path = DefaultJSONFile
		}
		return NewJSONStore(path), nil
	case KindSQLite:
		if path == "" {
			path = DefaultSQLiteFile
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
}
