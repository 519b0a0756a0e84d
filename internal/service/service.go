// Package service ties feature loading, encoding, retrieval trials and the
// results store into one benchmark.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/himanishpuri/shinglebench/internal/config"
	"github.com/himanishpuri/shinglebench/internal/corpus"
	"github.com/himanishpuri/shinglebench/internal/encoding"
	"github.com/himanishpuri/shinglebench/internal/experiment"
	"github.com/himanishpuri/shinglebench/internal/features"
	"github.com/himanishpuri/shinglebench/internal/retrieval"
	"github.com/himanishpuri/shinglebench/internal/storage"
	"github.com/himanishpuri/shinglebench/pkg/logger"
	"github.com/himanishpuri/shinglebench/pkg/models"
)

// ErrNoRecordings is returned when a benchmark is started without input.
var ErrNoRecordings = errors.New("no recordings")

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type Config struct {
	Store     storage.ResultStore
	Logger    Logger
	Seed      int64
	Extractor *features.Extractor
	CacheDir  string
	TempDir   string
	Distance  retrieval.Distance
}

type Option func(*Config)

func WithStore(store storage.ResultStore) Option {
	return func(c *Config) {
		c.Store = store
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithSeed(seed int64) Option {
	return func(c *Config) {
		c.Seed = seed
	}
}

func WithExtractor(e *features.Extractor) Option {
	return func(c *Config) {
		c.Extractor = e
	}
}

// WithCacheDir enables the feature cache. An empty dir disables it.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		c.CacheDir = dir
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithDistance(d retrieval.Distance) Option {
	return func(c *Config) {
		c.Distance = d
	}
}

func defaultConfig() *Config {
	return &Config{
		Seed:     1,
		TempDir:  os.TempDir(),
		Distance: retrieval.Euclidean{},
	}
}

// Bench runs encodings against a corpus and records every run.
type Bench struct {
	store    storage.ResultStore
	log      Logger
	seed     int64
	loader   *features.Loader
	distance retrieval.Distance
}

func NewBench(opts ...Option) (*Bench, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Store == nil {
		store, err := storage.Open(storage.KindJSON, "")
		if err != nil {
			return nil, err
		}
		cfg.Store = store
	}
	if cfg.Extractor == nil {
		ext, err := features.NewExtractor(features.DefaultConfig())
		if err != nil {
			return nil, err
		}
		cfg.Extractor = ext
	}

	loader := &features.Loader{
		Extractor: cfg.Extractor,
		TempDir:   cfg.TempDir,
		Log:       cfg.Logger,
	}
	if cfg.CacheDir != "" {
		loader.Cache = features.NewCache(cfg.CacheDir)
	}

	return &Bench{
		store:    cfg.Store,
		log:      cfg.Logger,
		seed:     cfg.Seed,
		loader:   loader,
		distance: cfg.Distance,
	}, nil
}

// LoadRecordings extracts, or reads from cache, every audio file in dir.
func (b *Bench) LoadRecordings(ctx context.Context, dir string) ([]*models.Recording, error) {
	recs, err := b.loader.LoadDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	b.log.Infof("Loaded %d recordings from %s", len(recs), dir)
	return recs, nil
}

// Evaluate runs sampleSize trials of enc and appends the result to the
// store. When only the append fails, the result is returned together with
// the store error.
func (b *Bench) Evaluate(recordings []*models.Recording, enc encoding.Encoder, sampleSize int) (*models.ExperimentResult, error) {
	if len(recordings) == 0 {
		return nil, ErrNoRecordings
	}
	c, err := corpus.Build(recordings, enc)
	if err != nil {
		return nil, fmt.Errorf("building %s corpus: %w", enc.Name(), err)
	}
	b.log.Infof("Encoded %d recordings with %s (dim %d)", c.Len(), enc.Name(), c.Dim())

	runner := experiment.NewRunner(c, experiment.Method{
		Name:        enc.Name(),
		Description: enc.Description(),
		Source:      enc.Source(),
	}, b.seed)
	runner.Scorer = &retrieval.Scorer{Distance: b.distance}
	runner.Log = b.log

	result, err := runner.Run(sampleSize)
	if err != nil {
		return nil, err
	}
	s := result.Summary
	b.log.Infof("%s: found=%.3f first=%.3f average=%.3f time=%.4fs",
		enc.Name(), s.FractionFound, s.AverageFirstMatch, s.AverageAverageDistance, s.AverageTime)

	if err := b.store.Append(*result); err != nil {
		b.log.Errorf("Failed to store %s result: %v", enc.Name(), err)
		return result, fmt.Errorf("storing result: %w", err)
	}
	return result, nil
}

// RunPlan evaluates every plan entry in order. Projected encodings are
// fitted on the recordings first. It stops at the first failure and
// returns the results gathered so far.
func (b *Bench) RunPlan(ctx context.Context, plan *config.Plan, recordings []*models.Recording) ([]*models.ExperimentResult, error) {
	reg, err := plan.Encoders()
	if err != nil {
		return nil, err
	}

	results := make([]*models.ExperimentResult, 0, reg.Len())
	for _, enc := range reg.All() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		entry, _ := plan.Entry(enc.Name())

		if p, ok := enc.(*encoding.Projected); ok {
			b.log.Infof("Fitting %s", p.Source())
			if err := p.Fit(recordings); err != nil {
				return results, fmt.Errorf("fitting %s: %w", p.Name(), err)
			}
		}

		result, err := b.Evaluate(recordings, enc, entry.SampleSize)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Results loads every stored experiment in append order. A store that has
// not been written yet is empty.
func (b *Bench) Results() ([]models.ExperimentResult, error) {
	results, err := b.store.Load()
	if errors.Is(err, storage.ErrStoreNotFound) {
		return []models.ExperimentResult{}, nil
	}
	return results, err
}

func (b *Bench) Close() error {
	return b.store.Close()
}
