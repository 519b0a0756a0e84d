// Package features computes the raw per-recording features the encodings
// consume: a 12-bin chromagram and a volume curve sharing one frame grid.
package features

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/shinglebench/pkg/models"
)

var ErrInvalidConfig = errors.New("invalid feature config")

// Config defaults match the analysis used for the reference results:
// 22050 Hz audio, 2048-sample frames every 512 samples (about 43 frames/s),
// the first 180 seconds of each recording.
type Config struct {
	SampleRate int     `msgpack:"sample_rate"`
	WindowSize int     `msgpack:"window_size"`
	HopSize    int     `msgpack:"hop_size"`
	MaxSeconds float64 `msgpack:"max_seconds"`
	TuningHz   float64 `msgpack:"tuning_hz"`
	MinFreq    float64 `msgpack:"min_freq"`
	MaxFreq    float64 `msgpack:"max_freq"`
	// CENS enables quantised, smoothed chroma; otherwise frames are only
	// L2-normalised.
	CENS      bool `msgpack:"cens"`
	Smoothing int  `msgpack:"smoothing"` // frames
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		WindowSize: 2048,
		HopSize:    512,
		MaxSeconds: 180,
		TuningHz:   440,
		MinFreq:    55,
		MaxFreq:    5000,
		CENS:       true,
		Smoothing:  41,
	}
}

func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample rate %d: %w", c.SampleRate, ErrInvalidConfig)
	case c.WindowSize < 2:
		return fmt.Errorf("window size %d: %w", c.WindowSize, ErrInvalidConfig)
	case c.HopSize < 1:
		return fmt.Errorf("hop size %d: %w", c.HopSize, ErrInvalidConfig)
	case c.MaxSeconds < 0:
		return fmt.Errorf("max seconds %g: %w", c.MaxSeconds, ErrInvalidConfig)
	case c.TuningHz <= 0:
		return fmt.Errorf("tuning %g Hz: %w", c.TuningHz, ErrInvalidConfig)
	case c.MinFreq < 0 || c.MaxFreq <= c.MinFreq:
		return fmt.Errorf("band [%g, %g] Hz: %w", c.MinFreq, c.MaxFreq, ErrInvalidConfig)
	}
	return nil
}

// FrameRate is the nominal number of feature frames per second.
func (c Config) FrameRate() float64 {
	return float64(c.SampleRate) / float64(c.HopSize)
}

type Extractor struct {
	cfg     Config
	window  []float64
	classes []int
}

func NewExtractor(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:     cfg,
		window:  Hamming(cfg.WindowSize),
		classes: chromaMap(cfg.WindowSize/2, cfg.SampleRate, cfg.WindowSize, cfg.MinFreq, cfg.MaxFreq, cfg.TuningHz),
	}, nil
}

func (e *Extractor) Config() Config { return e.cfg }

// Extract computes the features of mono samples at the configured rate.
// Samples beyond MaxSeconds are dropped. The duration is the length of the
// analysed audio.
func (e *Extractor) Extract(name string, samples []float64, sampleRate int) (*models.Recording, error) {
	if sampleRate != e.cfg.SampleRate {
		return nil, fmt.Errorf("%s: sample rate %d, expected %d: %w", name, sampleRate, e.cfg.SampleRate, ErrInvalidConfig)
	}
	id, err := models.ParseIdentity(name)
	if err != nil {
		return nil, err
	}

	if limit := int(e.cfg.MaxSeconds * float64(sampleRate)); limit > 0 && len(samples) > limit {
		samples = samples[:limit]
	}

	spec, err := STFT(samples, e.cfg.WindowSize, e.cfg.HopSize, e.window)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	chroma := foldChroma(spec, e.classes)
	if e.cfg.CENS {
		CENS(chroma, e.cfg.Smoothing)
	} else {
		normalizeFrames(chroma, 2)
	}

	rec := &models.Recording{
		Name:            name,
		Identity:        id,
		Chroma:          chroma,
		Volume:          Volume(FrameRMS(samples, e.cfg.WindowSize, e.cfg.HopSize)),
		DurationSeconds: float64(len(samples)) / float64(sampleRate),
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
