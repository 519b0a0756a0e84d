// Package corpus holds the encoded shingle vectors of every recording under
// one encoding. A Corpus is built once and then only read.
package corpus

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/shinglebench/pkg/models"
)

var (
	ErrCorpusTooSmall    = errors.New("corpus needs at least two recordings")
	ErrEmptyRecording    = errors.New("recording produced no shingles")
	ErrDimensionMismatch = errors.New("shingle vector dimension mismatch")
)

// Encoder is the capability Build needs from an encoding.
type Encoder interface {
	Name() string
	Encode(rec *models.Recording) ([][]float64, error)
}

// Entry is one recording's identity and its shingle vectors in window order.
type Entry struct {
	Name     string
	Identity models.Identity
	Vectors  [][]float64
}

type Corpus struct {
	encoding string
	dim      int
	entries  []Entry
}

// Build encodes every recording once. It fails on the first recording that
// yields no shingles or a vector whose length differs from the first one
// seen.
func Build(recordings []*models.Recording, enc Encoder) (*Corpus, error) {
	if len(recordings) < 2 {
		return nil, fmt.Errorf("got %d: %w", len(recordings), ErrCorpusTooSmall)
	}

	c := &Corpus{
		encoding: enc.Name(),
		entries:  make([]Entry, 0, len(recordings)),
	}
	for i, rec := range recordings {
		vectors, err := enc.Encode(rec)
		if err != nil {
			return nil, fmt.Errorf("encoding recording %d (%s) with %s: %w", i, rec.Name, enc.Name(), err)
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("recording %d (%s): %w", i, rec.Name, ErrEmptyRecording)
		}
		for s, v := range vectors {
			if c.dim == 0 {
				if len(v) == 0 {
					return nil, fmt.Errorf("recording %d (%s) shingle %d is empty: %w", i, rec.Name, s, ErrDimensionMismatch)
				}
				c.dim = len(v)
			}
			if len(v) != c.dim {
				return nil, fmt.Errorf("recording %d (%s) shingle %d has dimension %d, expected %d: %w",
					i, rec.Name, s, len(v), c.dim, ErrDimensionMismatch)
			}
		}
		c.entries = append(c.entries, Entry{Name: rec.Name, Identity: rec.Identity, Vectors: vectors})
	}
	return c, nil
}

// Len is the number of recordings.
func (c *Corpus) Len() int { return len(c.entries) }

// Dim is the common vector dimension.
func (c *Corpus) Dim() int { return c.dim }

// Encoding is the name of the encoder the corpus was built with.
func (c *Corpus) Encoding() string { return c.encoding }

func (c *Corpus) Entry(i int) Entry { return c.entries[i] }

func (c *Corpus) Identity(i int) models.Identity { return c.entries[i].Identity }

// Shingles is the number of shingles of recording i.
func (c *Corpus) Shingles(i int) int { return len(c.entries[i].Vectors) }

func (c *Corpus) Vector(i, s int) []float64 { return c.entries[i].Vectors[s] }
