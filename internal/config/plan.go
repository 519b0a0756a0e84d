// Package config loads experiment plans and the environment the CLI runs in.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/himanishpuri/shinglebench/internal/encoding"
	"github.com/himanishpuri/shinglebench/internal/storage"
)

var ErrInvalidPlan = errors.New("invalid experiment plan")

const (
	DefaultWindowSeconds = 20
	DefaultSampleSize    = 500

	ProjectionPCA    = "pca"
	ProjectionRandom = "random"
)

type StoreSpec struct {
	Kind string `yaml:"kind,omitempty"`
	Path string `yaml:"path,omitempty"`
}

type ReduceSpec struct {
	Kind          string  `yaml:"kind"`
	Stride        int     `yaml:"stride,omitempty"`
	WindowSeconds float64 `yaml:"window_seconds,omitempty"`
	HopSeconds    float64 `yaml:"hop_seconds,omitempty"`
}

type ProjectionSpec struct {
	Kind       string  `yaml:"kind"`
	Components int     `yaml:"components,omitempty"`
	Variance   float64 `yaml:"variance,omitempty"`
	Seed       int64   `yaml:"seed,omitempty"`
}

// EncodingSpec is one plan entry. Zero WindowSeconds and SampleSize take
// the plan-level values.
type EncodingSpec struct {
	Name          string          `yaml:"name"`
	Description   string          `yaml:"description,omitempty"`
	Volume        bool            `yaml:"volume,omitempty"`
	Reduce        *ReduceSpec     `yaml:"reduce,omitempty"`
	WindowSeconds float64         `yaml:"window_seconds,omitempty"`
	HopSeconds    float64         `yaml:"hop_seconds,omitempty"`
	Projection    *ProjectionSpec `yaml:"projection,omitempty"`
	SampleSize    int             `yaml:"sample_size,omitempty"`
}

// Plan is an ordered list of encodings to evaluate against one corpus.
type Plan struct {
	Seed          int64          `yaml:"seed"`
	WindowSeconds float64        `yaml:"window_seconds,omitempty"`
	SampleSize    int            `yaml:"sample_size,omitempty"`
	Store         StoreSpec      `yaml:"store,omitempty"`
	Encodings     []EncodingSpec `yaml:"encodings"`
}

// LoadPlan reads, defaults and validates a YAML plan.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return ParsePlan(data)
}

func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.UnmarshalWithOptions(data, &p, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Marshal renders the plan as YAML.
func (p *Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

func (p *Plan) ApplyDefaults() {
	if p.WindowSeconds == 0 {
		p.WindowSeconds = DefaultWindowSeconds
	}
	if p.SampleSize == 0 {
		p.SampleSize = DefaultSampleSize
	}
	for i := range p.Encodings {
		e := &p.Encodings[i]
		if e.WindowSeconds == 0 {
			e.WindowSeconds = p.WindowSeconds
		}
		if e.SampleSize == 0 {
			e.SampleSize = p.SampleSize
		}
		if e.Projection != nil && e.Projection.Seed == 0 {
			e.Projection.Seed = p.Seed
		}
	}
}

func (p *Plan) Validate() error {
	switch p.Store.Kind {
	case "", storage.KindJSON, storage.KindSQLite:
	default:
		return fmt.Errorf("store kind %q: %w", p.Store.Kind, ErrInvalidPlan)
	}
	if len(p.Encodings) == 0 {
		return fmt.Errorf("no encodings: %w", ErrInvalidPlan)
	}

	seen := make(map[string]bool, len(p.Encodings))
	for i, e := range p.Encodings {
		if e.Name == "" {
			return fmt.Errorf("encoding %d has no name: %w", i, ErrInvalidPlan)
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate encoding %q: %w", e.Name, ErrInvalidPlan)
		}
		seen[e.Name] = true
		if err := e.validate(); err != nil {
			return fmt.Errorf("encoding %q: %w", e.Name, err)
		}
	}
	return nil
}

func (e EncodingSpec) validate() error {
	if e.SampleSize <= 0 {
		return fmt.Errorf("sample size %d: %w", e.SampleSize, ErrInvalidPlan)
	}
	if e.WindowSeconds <= 0 {
		return fmt.Errorf("window %gs: %w", e.WindowSeconds, ErrInvalidPlan)
	}
	if e.HopSeconds < 0 {
		return fmt.Errorf("hop %gs: %w", e.HopSeconds, ErrInvalidPlan)
	}

	if r := e.Reduce; r != nil {
		switch encoding.ReduceKind(r.Kind) {
		case "", encoding.ReduceNone:
		case encoding.ReduceStride:
			if r.Stride < 1 {
				return fmt.Errorf("stride %d: %w", r.Stride, ErrInvalidPlan)
			}
		case encoding.ReduceMean, encoding.ReduceMedian:
			if r.WindowSeconds <= 0 || r.HopSeconds < 0 {
				return fmt.Errorf("%s window %gs hop %gs: %w", r.Kind, r.WindowSeconds, r.HopSeconds, ErrInvalidPlan)
			}
		default:
			return fmt.Errorf("reduce kind %q: %w", r.Kind, ErrInvalidPlan)
		}
	}

	if pr := e.Projection; pr != nil {
		switch pr.Kind {
		case ProjectionPCA:
			if pr.Components <= 0 && (pr.Variance <= 0 || pr.Variance > 1) {
				return fmt.Errorf("pca needs components or a variance in (0, 1]: %w", ErrInvalidPlan)
			}
		case ProjectionRandom:
			if pr.Components <= 0 {
				return fmt.Errorf("random projection needs components: %w", ErrInvalidPlan)
			}
		default:
			return fmt.Errorf("projection kind %q: %w", pr.Kind, ErrInvalidPlan)
		}
	}
	return nil
}

// Encoder builds the encoder for the entry. Projected encoders still need
// Fit before use.
func (e EncodingSpec) Encoder() encoding.Encoder {
	p := &encoding.Pipeline{
		ID:            e.Name,
		Summary:       e.Description,
		WithVolume:    e.Volume,
		WindowSeconds: e.WindowSeconds,
		HopSeconds:    e.HopSeconds,
	}
	if r := e.Reduce; r != nil {
		p.Reduce = encoding.Reduction{
			Kind:          encoding.ReduceKind(r.Kind),
			Stride:        r.Stride,
			WindowSeconds: r.WindowSeconds,
			HopSeconds:    r.HopSeconds,
		}
	}
	if e.Projection == nil {
		return p
	}

	var proj encoding.Projector
	switch e.Projection.Kind {
	case ProjectionRandom:
		proj = &encoding.RandomProjection{Components: e.Projection.Components, Seed: e.Projection.Seed}
	default:
		proj = &encoding.PCA{Components: e.Projection.Components, Variance: e.Projection.Variance}
	}
	return &encoding.Projected{ID: e.Name, Summary: e.Description, Base: p, Projector: proj}
}

// Encoders builds every entry in plan order.
func (p *Plan) Encoders() (*encoding.Registry, error) {
	r, err := encoding.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, e := range p.Encodings {
		if err := r.Register(e.Encoder()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Entry returns the plan entry with the given name.
func (p *Plan) Entry(name string) (EncodingSpec, bool) {
	for _, e := range p.Encodings {
		if e.Name == name {
			return e, true
		}
	}
	return EncodingSpec{}, false
}
