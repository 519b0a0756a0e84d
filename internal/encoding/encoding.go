// Package encoding turns a recording's raw features into one fixed-length
// vector per shingle. Each strategy is a value implementing Encoder, so a
// harness can enumerate and compare them uniformly.
package encoding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/himanishpuri/shinglebench/internal/shingle"
	"github.com/himanishpuri/shinglebench/pkg/models"
)

var (
	ErrMissingVolume     = errors.New("recording has no volume curve")
	ErrUnknownReduction  = errors.New("unknown reduction kind")
	ErrDuplicateEncoding = errors.New("duplicate encoding name")
)

// Encoder maps one recording to its shingle vectors, in window order.
type Encoder interface {
	Name() string
	// Description is the human readable summary stored with results.
	Description() string
	// Source is a canonical rendering of the encoder's configuration.
	Source() string
	Encode(rec *models.Recording) ([][]float64, error)
}

// ReduceKind selects the temporal downsampling applied before shingling.
type ReduceKind string

const (
	ReduceNone   ReduceKind = "none"
	ReduceStride ReduceKind = "stride"
	ReduceMean   ReduceKind = "mean"
	ReduceMedian ReduceKind = "median"
)

// Reduction configures temporal downsampling. Stride keeps every Stride-th
// frame; Mean and Median collapse sliding windows of WindowSeconds, hopping
// HopSeconds, into one frame each.
type Reduction struct {
	Kind          ReduceKind
	Stride        int
	WindowSeconds float64
	HopSeconds    float64
}

func (r Reduction) apply(m shingle.Matrix, totalSeconds float64) (shingle.Matrix, error) {
	switch r.Kind {
	case "", ReduceNone:
		return m, nil
	case ReduceStride:
		return shingle.Stride(m, r.Stride)
	case ReduceMean:
		return shingle.Aggregate(m, r.WindowSeconds, totalSeconds, r.HopSeconds, shingle.Mean)
	case ReduceMedian:
		return shingle.Aggregate(m, r.WindowSeconds, totalSeconds, r.HopSeconds, shingle.Median)
	default:
		return nil, fmt.Errorf("%q: %w", r.Kind, ErrUnknownReduction)
	}
}

func (r Reduction) String() string {
	switch r.Kind {
	case "", ReduceNone:
		return ""
	case ReduceStride:
		return fmt.Sprintf("stride(%d)", r.Stride)
	default:
		return fmt.Sprintf("%s(window=%gs hop=%gs)", r.Kind, r.WindowSeconds, r.HopSeconds)
	}
}

// Pipeline is the direct encoding family: optionally prepend the volume
// curve, optionally downsample, shingle, and flatten each window.
type Pipeline struct {
	ID            string
	Summary       string
	WithVolume    bool
	Reduce        Reduction
	WindowSeconds float64
	HopSeconds    float64 // zero slides one frame at a time
}

func (p *Pipeline) Name() string        { return p.ID }
func (p *Pipeline) Description() string { return p.Summary }

func (p *Pipeline) Source() string {
	stages := []string{"chroma"}
	if p.WithVolume {
		stages = append(stages, "stack(volume)")
	}
	if r := p.Reduce.String(); r != "" {
		stages = append(stages, r)
	}
	hop := "1 frame"
	if p.HopSeconds > 0 {
		hop = fmt.Sprintf("%gs", p.HopSeconds)
	}
	stages = append(stages, fmt.Sprintf("shingle(window=%gs hop=%s)", p.WindowSeconds, hop), "flatten")
	return strings.Join(stages, " | ")
}

// Windows returns the shingle matrices before flattening.
func (p *Pipeline) Windows(rec *models.Recording) ([]shingle.Matrix, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	m := shingle.Matrix(rec.Chroma)
	if p.WithVolume {
		if rec.Volume == nil {
			return nil, fmt.Errorf("%s: %w", rec.Name, ErrMissingVolume)
		}
		stacked, err := shingle.StackRows(rec.Volume, m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rec.Name, err)
		}
		m = stacked
	}

	m, err := p.Reduce.apply(m, rec.DurationSeconds)
	if err != nil {
		return nil, fmt.Errorf("%s: reduce: %w", rec.Name, err)
	}

	windows, err := shingle.Shingle(m, p.WindowSeconds, rec.DurationSeconds, p.HopSeconds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Name, err)
	}
	return windows, nil
}

func (p *Pipeline) Encode(rec *models.Recording) ([][]float64, error) {
	windows, err := p.Windows(rec)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float64, len(windows))
	for i, w := range windows {
		vectors[i] = shingle.Flatten(w)
	}
	return vectors, nil
}
