package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrMisalignedFeatures is returned when a recording's auxiliary series does
// not line up with its feature matrix.
var ErrMisalignedFeatures = errors.New("features are not channel-aligned")

// Recording is one performance and its raw time-frequency features.
// Chroma is channel-major: Chroma[bin][frame].
type Recording struct {
	Name            string      `json:"name" msgpack:"name"`
	Identity        Identity    `json:"identity" msgpack:"identity"`
	Chroma          [][]float64 `json:"chroma" msgpack:"chroma"`
	Volume          []float64   `json:"volume" msgpack:"volume"`
	DurationSeconds float64     `json:"duration_seconds" msgpack:"duration_seconds"`
}

// Frames returns the number of time frames in the feature matrix.
func (r *Recording) Frames() int {
	if len(r.Chroma) == 0 {
		return 0
	}
	return len(r.Chroma[0])
}

// FrameRate is the uniform frame rate implied by the duration.
func (r *Recording) FrameRate() float64 {
	if r.DurationSeconds <= 0 {
		return 0
	}
	return float64(r.Frames()) / r.DurationSeconds
}

// Validate checks that every chroma row and the volume curve have the same
// number of frames and that the duration is usable.
func (r *Recording) Validate() error {
	n := r.Frames()
	for i, row := range r.Chroma {
		if len(row) != n {
			return fmt.Errorf("%s: chroma row %d has %d frames, expected %d: %w", r.Name, i, len(row), n, ErrMisalignedFeatures)
		}
	}
	if r.Volume != nil && len(r.Volume) != n {
		return fmt.Errorf("%s: volume has %d frames, expected %d: %w", r.Name, len(r.Volume), n, ErrMisalignedFeatures)
	}
	if r.DurationSeconds <= 0 {
		return fmt.Errorf("%s: non-positive duration %.3fs: %w", r.Name, r.DurationSeconds, ErrMisalignedFeatures)
	}
	return nil
}

// Query is the (recording, shingle) pair sampled as the query of one trial.
type Query struct {
	Recording      Identity `json:"recording"`
	RecordingIndex int      `json:"recording_index"`
	ShingleIndex   int      `json:"shingle_index"`
}

// ScoreEntry is the best distance from a query to one other recording.
type ScoreEntry struct {
	Distance       float64  `json:"distance"`
	Recording      Identity `json:"recording"`
	RecordingIndex int      `json:"recording_index"`
	ShingleIndex   int      `json:"shingle_index"` // shingle of the other recording that achieved Distance
}

// Trial is one sampled query, its full ranking and the derived metrics.
type Trial struct {
	Query         Query        `json:"query"`
	RankedScores  []ScoreEntry `json:"ranked_scores"`
	TopFound      bool         `json:"top_found"`
	FractionInTop float64      `json:"fraction_in_top"`
	AveDist       float64      `json:"ave_dist"`
	ElapsedTime   float64      `json:"elapsed_time"` // seconds
	Matches       int          `json:"matches"`
}

// Summary holds the per-experiment means of the trial metrics.
type Summary struct {
	FractionFound          float64 `json:"fraction_found"`
	AverageFirstMatch      float64 `json:"average_first_match"`
	AverageAverageDistance float64 `json:"average_average_distance"`
	AverageTime            float64 `json:"average_time"`
}

// ExperimentResult is one encoding's run. It is appended to the results
// store and never mutated afterwards.
type ExperimentResult struct {
	ID                string    `json:"id"`
	Encoding          string    `json:"encoding"`
	MethodDescription string    `json:"method_description"`
	MethodSource      string    `json:"method_source"`
	SampleSize        int       `json:"sample_size"`
	Seed              int64     `json:"seed"`
	CreatedAt         time.Time `json:"created_at"`
	Results           []Trial   `json:"results"`
	Summary           Summary   `json:"summary"`
}
