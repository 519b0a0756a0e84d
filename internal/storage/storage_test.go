package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/himanishpuri/shinglebench/pkg/models"
)

func sampleResult(id string, trials int) models.ExperimentResult {
	q := models.Identity{Composer: "bach", Piece: "suite1", Performer: "ma"}
	other := models.Identity{Composer: "bach", Piece: "suite1", Performer: "casals"}
	res := models.ExperimentResult{
		ID:                id,
		Encoding:          "f3",
		MethodDescription: "Add volume as a channel, downsample, flatten.",
		MethodSource:      "chroma | stack(volume) | stride(43) | shingle(window=20s hop=1 frame) | flatten",
		SampleSize:        trials,
		Seed:              7,
		CreatedAt:         time.Date(2024, 3, 1, 12, 30, 0, 123456000, time.UTC),
		Summary:           models.Summary{FractionFound: 0.5, AverageFirstMatch: 0.25, AverageAverageDistance: 1.75, AverageTime: 0.0123},
	}
	for i := 0; i < trials; i++ {
		res.Results = append(res.Results, models.Trial{
			Query: models.Query{Recording: q, RecordingIndex: 0, ShingleIndex: i},
			RankedScores: []models.ScoreEntry{
				{Distance: 0.1 * float64(i+1), Recording: other, RecordingIndex: 1, ShingleIndex: i * 2},
			},
			TopFound:      i%2 == 0,
			FractionInTop: 1,
			AveDist:       0,
			ElapsedTime:   0.001 * float64(i),
			Matches:       1,
		})
	}
	return res
}

func assertResultsEqual(t *testing.T, expected, got []models.ExperimentResult) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("expected %d results, got %d", len(expected), len(got))
	}
	for i := range expected {
		e, g := expected[i], got[i]
		if e.ID != g.ID || e.Encoding != g.Encoding || e.MethodDescription != g.MethodDescription ||
			e.MethodSource != g.MethodSource || e.SampleSize != g.SampleSize || e.Seed != g.Seed {
			t.Errorf("result %d metadata differs:\nexpected %+v\ngot      %+v", i, e, g)
		}
		if !e.CreatedAt.Equal(g.CreatedAt) {
			t.Errorf("result %d created_at = %v, expected %v", i, g.CreatedAt, e.CreatedAt)
		}
		if e.Summary != g.Summary {
			t.Errorf("result %d summary = %+v, expected %+v", i, g.Summary, e.Summary)
		}
		if len(e.Results) != len(g.Results) {
			t.Fatalf("result %d: expected %d trials, got %d", i, len(e.Results), len(g.Results))
		}
		for j := range e.Results {
			et, gt := e.Results[j], g.Results[j]
			if et.Query != gt.Query || et.TopFound != gt.TopFound || et.FractionInTop != gt.FractionInTop ||
				et.AveDist != gt.AveDist || et.ElapsedTime != gt.ElapsedTime || et.Matches != gt.Matches {
				t.Errorf("result %d trial %d differs: %+v vs %+v", i, j, et, gt)
			}
			if len(et.RankedScores) != len(gt.RankedScores) {
				t.Fatalf("result %d trial %d ranking length differs", i, j)
			}
			for k := range et.RankedScores {
				if et.RankedScores[k] != gt.RankedScores[k] {
					t.Errorf("result %d trial %d score %d differs: %+v vs %+v", i, j, k, et.RankedScores[k], gt.RankedScores[k])
				}
			}
		}
	}
}

func setupStores(t *testing.T) map[string]ResultStore {
	t.Helper()
	dir := t.TempDir()

	sq, err := NewSQLiteStore(filepath.Join(dir, "results.sqlite3"))
	if err != nil {
		t.Fatalf("Failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]ResultStore{
		KindJSON:   NewJSONStore(filepath.Join(dir, "RESULTS.json")),
		KindSQLite: sq,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for kind, store := range setupStores(t) {
		t.Run(kind, func(t *testing.T) {
			expected := []models.ExperimentResult{sampleResult("a", 3), sampleResult("b", 0), sampleResult("c", 5)}
			if err := store.Save(expected); err != nil {
				t.Fatalf("Failed to save: %v", err)
			}
			got, err := store.Load()
			if err != nil {
				t.Fatalf("Failed to load: %v", err)
			}
			assertResultsEqual(t, expected, got)
		})
	}
}

func TestStoreAppendPreservesOrder(t *testing.T) {
	for kind, store := range setupStores(t) {
		t.Run(kind, func(t *testing.T) {
			var expected []models.ExperimentResult
			for _, id := range []string{"first", "second", "third"} {
				r := sampleResult(id, 2)
				if err := store.Append(r); err != nil {
					t.Fatalf("Failed to append %s: %v", id, err)
				}
				expected = append(expected, r)
			}
			got, err := store.Load()
			if err != nil {
				t.Fatalf("Failed to load: %v", err)
			}
			assertResultsEqual(t, expected, got)
		})
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	for kind, store := range setupStores(t) {
		t.Run(kind, func(t *testing.T) {
			if err := store.Append(sampleResult("old", 2)); err != nil {
				t.Fatalf("Failed to append: %v", err)
			}
			fresh := []models.ExperimentResult{sampleResult("new", 1)}
			if err := store.Save(fresh); err != nil {
				t.Fatalf("Failed to save: %v", err)
			}
			got, err := store.Load()
			if err != nil {
				t.Fatalf("Failed to load: %v", err)
			}
			assertResultsEqual(t, fresh, got)
		})
	}
}

func TestJSONStoreMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "RESULTS.json")
	store := NewJSONStore(path)

	_, err := store.Load()
	if !errors.Is(err, ErrStoreNotFound) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrStoreNotFound wrapping os.ErrNotExist, got %v", err)
	}

	if err := store.Append(sampleResult("a", 1)); err != nil {
		t.Fatalf("Append to a missing store should create it: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 result, got %d", len(got))
	}
}

func TestJSONStoreCorruptIsNotOverwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "RESULTS.json")
	corrupt := []byte(`[{"method_description": "x",`)
	if err := os.WriteFile(path, corrupt, 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}
	store := NewJSONStore(path)

	if _, err := store.Load(); !errors.Is(err, ErrStoreCorrupt) {
		t.Errorf("expected ErrStoreCorrupt from Load, got %v", err)
	}
	if err := store.Append(sampleResult("a", 1)); !errors.Is(err, ErrStoreCorrupt) {
		t.Errorf("expected ErrStoreCorrupt from Append, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if string(data) != string(corrupt) {
		t.Error("corrupt store must not be rewritten")
	}
}

func TestJSONStoreBlankAndNull(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{"blank.json": "  \n", "null.json": "null", "empty.json": "[]"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		got, err := NewJSONStore(path).Load()
		if err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("%s: expected empty non-nil slice, got %v", name, got)
		}
	}
}

func TestJSONStoreSchemaKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "RESULTS.json")
	if err := NewJSONStore(path).Save([]models.ExperimentResult{sampleResult("a", 1)}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	for _, key := range []string{
		`"method_description"`, `"method_source"`, `"sample_size"`, `"results"`, `"query"`,
		`"ranked_scores"`, `"top_found"`, `"fraction_in_top"`, `"ave_dist"`, `"elapsed_time"`,
		`"summary"`, `"fraction_found"`, `"average_first_match"`, `"average_average_distance"`, `"average_time"`,
	} {
		if !bytes.Contains(data, []byte(key)) {
			t.Errorf("document is missing key %s", key)
		}
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("", filepath.Join(dir, "r.json"))
	if err != nil {
		t.Fatalf("Failed to open json store: %v", err)
	}
	if _, ok := s.(*JSONStore); !ok {
		t.Errorf("expected *JSONStore for empty kind, got %T", s)
	}

	s, err = Open(KindSQLite, filepath.Join(dir, "r.sqlite3"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", s)
	}

	if _, err := Open("csv", "x"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}
