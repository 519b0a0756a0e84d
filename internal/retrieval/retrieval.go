// Package retrieval ranks the recordings of a corpus by their best distance
// to a query shingle.
package retrieval

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/himanishpuri/shinglebench/internal/corpus"
	"github.com/himanishpuri/shinglebench/pkg/models"
	"gonum.org/v1/gonum/floats"
)

var ErrQueryOutOfRange = errors.New("query outside corpus")

// Distance compares two vectors of equal length.
type Distance interface {
	Distance(a, b []float64) float64
	Name() string
}

// Euclidean is the L2 distance.
type Euclidean struct{}

func (Euclidean) Distance(a, b []float64) float64 { return floats.Distance(a, b, 2) }
func (Euclidean) Name() string                    { return "euclidean" }

// Cosine is 1 minus the cosine similarity. Zero vectors are at distance 1
// from everything.
type Cosine struct{}

func (Cosine) Distance(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - floats.Dot(a, b)/(na*nb)
}

func (Cosine) Name() string { return "cosine" }

// Scorer is a brute-force nearest-shingle ranker.
type Scorer struct {
	Distance Distance
}

func NewScorer() *Scorer {
	return &Scorer{Distance: Euclidean{}}
}

// Score compares shingle si of recording qi against every shingle of every
// other recording. Each other recording gets one entry carrying its minimum
// distance and the lowest shingle index achieving it. Entries are sorted by
// distance, then identity, then recording index.
func (s *Scorer) Score(c *corpus.Corpus, qi, si int) ([]models.ScoreEntry, error) {
	if qi < 0 || qi >= c.Len() {
		return nil, fmt.Errorf("recording %d of %d: %w", qi, c.Len(), ErrQueryOutOfRange)
	}
	if si < 0 || si >= c.Shingles(qi) {
		return nil, fmt.Errorf("shingle %d of %d in recording %d: %w", si, c.Shingles(qi), qi, ErrQueryOutOfRange)
	}

	dist := s.Distance
	if dist == nil {
		dist = Euclidean{}
	}

	q := c.Vector(qi, si)
	scores := make([]models.ScoreEntry, 0, c.Len()-1)
	for r := 0; r < c.Len(); r++ {
		if r == qi {
			continue
		}
		best, bestIdx := math.Inf(1), 0
		for k := 0; k < c.Shingles(r); k++ {
			// strict less keeps the first index on ties
			if d := dist.Distance(q, c.Vector(r, k)); d < best {
				best, bestIdx = d, k
			}
		}
		scores = append(scores, models.ScoreEntry{
			Distance:       best,
			Recording:      c.Identity(r),
			RecordingIndex: r,
			ShingleIndex:   bestIdx,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Recording != b.Recording {
			return a.Recording.Less(b.Recording)
		}
		return a.RecordingIndex < b.RecordingIndex
	})
	return scores, nil
}
