// Package experiment samples query shingles from a corpus, ranks the other
// recordings for each and aggregates the retrieval metrics into one
// ExperimentResult.
package experiment

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/himanishpuri/shinglebench/internal/corpus"
	"github.com/himanishpuri/shinglebench/internal/retrieval"
	"github.com/himanishpuri/shinglebench/pkg/models"
)

var ErrInvalidSampleSize = errors.New("sample size must be positive")

// State is the phase a run is in.
type State int

const (
	Sampling State = iota
	Scoring
	Aggregating
	Reporting
)

func (s State) String() string {
	switch s {
	case Sampling:
		return "sampling"
	case Scoring:
		return "scoring"
	case Aggregating:
		return "aggregating"
	case Reporting:
		return "reporting"
	default:
		return "unknown"
	}
}

type Logger interface {
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Method describes the encoding under test; it is copied into the result.
type Method struct {
	Name        string
	Description string
	Source      string
}

// Runner executes trials serially against one corpus.
type Runner struct {
	Corpus *corpus.Corpus
	Scorer *retrieval.Scorer
	Method Method
	// Seed is the only source of randomness. Run reseeds from it, so the
	// stored seed always reproduces the stored trials.
	Seed int64

	rng *rand.Rand
	// Clock times the scoring step. Nil means time.Now.
	Clock func() time.Time
	Log   Logger
	// OnState, when set, is called on every state transition with the
	// zero-based trial being processed.
	OnState func(state State, trial int)
}

func NewRunner(c *corpus.Corpus, m Method, seed int64) *Runner {
	return &Runner{
		Corpus: c,
		Scorer: retrieval.NewScorer(),
		Method: m,
		Seed:   seed,
		Clock:  time.Now,
		Log:    nopLogger{},
	}
}

func (r *Runner) enter(s State, trial int) {
	if r.OnState != nil {
		r.OnState(s, trial)
	}
}

func (r *Runner) defaults() {
	if r.Scorer == nil {
		r.Scorer = retrieval.NewScorer()
	}
	if r.Clock == nil {
		r.Clock = time.Now
	}
	if r.Log == nil {
		r.Log = nopLogger{}
	}
}

// Sample draws a recording uniformly, then one of its shingles uniformly.
func (r *Runner) Sample() models.Query {
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(r.Seed))
	}
	qi := r.rng.Intn(r.Corpus.Len())
	si := r.rng.Intn(r.Corpus.Shingles(qi))
	return models.Query{
		Recording:      r.Corpus.Identity(qi),
		RecordingIndex: qi,
		ShingleIndex:   si,
	}
}

// Trial runs one sampled query end to end.
func (r *Runner) Trial(i int) (models.Trial, error) {
	r.enter(Sampling, i)
	q := r.Sample()

	r.enter(Scoring, i)
	start := r.Clock()
	ranking, err := r.Scorer.Score(r.Corpus, q.RecordingIndex, q.ShingleIndex)
	elapsed := r.Clock().Sub(start).Seconds()
	if err != nil {
		return models.Trial{}, fmt.Errorf("trial %d: %w", i, err)
	}

	r.enter(Aggregating, i)
	m := Evaluate(q.Recording, ranking)
	return models.Trial{
		Query:         q,
		RankedScores:  ranking,
		TopFound:      m.TopFound,
		FractionInTop: m.FractionInTop,
		AveDist:       m.AveDist,
		ElapsedTime:   elapsed,
		Matches:       m.Matches,
	}, nil
}

// Run executes n trials and returns the aggregated result. Trials are drawn
// with replacement.
func (r *Runner) Run(n int) (*models.ExperimentResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("got %d: %w", n, ErrInvalidSampleSize)
	}
	r.defaults()
	r.rng = rand.New(rand.NewSource(r.Seed))

	r.Log.Infof("Running %d trials of %s over %d recordings", n, r.Method.Name, r.Corpus.Len())
	trials := make([]models.Trial, 0, n)
	for i := 0; i < n; i++ {
		tr, err := r.Trial(i)
		if err != nil {
			return nil, err
		}
		r.Log.Debugf("%d/%d %s shingle %d: top=%t fit=%.3f ave=%.3f",
			i+1, n, tr.Query.Recording, tr.Query.ShingleIndex, tr.TopFound, tr.FractionInTop, tr.AveDist)
		trials = append(trials, tr)
	}

	r.enter(Reporting, n)
	return &models.ExperimentResult{
		ID:                uuid.NewString(),
		Encoding:          r.Method.Name,
		MethodDescription: r.Method.Description,
		MethodSource:      r.Method.Source,
		SampleSize:        n,
		Seed:              r.Seed,
		CreatedAt:         r.Clock().UTC(),
		Results:           trials,
		Summary:           Summarize(trials),
	}, nil
}
