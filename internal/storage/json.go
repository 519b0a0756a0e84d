package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/himanishpuri/shinglebench/pkg/models"
	"github.com/himanishpuri/shinglebench/pkg/utils"
)

// JSONStore keeps every result in one indented JSON array.
type JSONStore struct {
	Path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{Path: path}
}

// Load reads the whole document. A blank file is an empty store.
func (s *JSONStore) Load() ([]models.ExperimentResult, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.Path, ErrStoreNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.ExperimentResult{}, nil
	}

	var results []models.ExperimentResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.Path, ErrStoreCorrupt, err)
	}
	if results == nil {
		// "null" decodes to a nil slice
		results = []models.ExperimentResult{}
	}
	return results, nil
}

// Append loads, appends and rewrites the document. A missing file is
// created; a corrupt one is left untouched and reported.
func (s *JSONStore) Append(result models.ExperimentResult) error {
	results, err := s.Load()
	if err != nil && !errors.Is(err, ErrStoreNotFound) {
		return err
	}
	return s.Save(append(results, result))
}

func (s *JSONStore) Save(results []models.ExperimentResult) error {
	if results == nil {
		results = []models.ExperimentResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	data = append(data, '\n')
	if err := utils.WriteFileAtomic(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.Path, err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }
