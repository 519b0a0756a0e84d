package features

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/shinglebench/internal/audio"
	"github.com/himanishpuri/shinglebench/pkg/models"
	"github.com/himanishpuri/shinglebench/pkg/utils"
)

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
}

// IsAudioFile reports whether path has a supported audio extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Loader turns audio files into recordings, consulting the cache first.
// Files that are not WAV at the analysis rate are converted with ffmpeg
// into TempDir.
type Loader struct {
	Extractor *Extractor
	Cache     *Cache // nil disables caching
	TempDir   string
	Log       Logger
}

func (l *Loader) log() Logger {
	if l.Log == nil {
		return nopLogger{}
	}
	return l.Log
}

// recordingName is the base name without its extension.
func recordingName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (l *Loader) LoadFile(ctx context.Context, path string) (*models.Recording, error) {
	name := recordingName(path)
	if _, err := models.ParseIdentity(name); err != nil {
		return nil, err
	}
	cfg := l.Extractor.Config()

	if l.Cache != nil {
		rec, ok, err := l.Cache.Load(name, cfg)
		if err != nil {
			l.log().Warnf("Ignoring cache entry for %s: %v", name, err)
		} else if ok {
			l.log().Debugf("Loaded %s from cache", name)
			return rec, nil
		}
	}

	samples, sr, err := l.decode(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rec, err := l.Extractor.Extract(name, samples, sr)
	if err != nil {
		return nil, err
	}
	l.log().Infof("Extracted %s: %d frames over %.1fs", name, rec.Frames(), rec.DurationSeconds)

	if l.Cache != nil {
		if err := l.Cache.Store(rec, cfg); err != nil {
			l.log().Warnf("Failed to cache %s: %v", name, err)
		}
	}
	return rec, nil
}

func (l *Loader) decode(ctx context.Context, path string) ([]float64, int, error) {
	cfg := l.Extractor.Config()
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		samples, sr, err := audio.ReadWav(path)
		if err == nil && sr == cfg.SampleRate {
			return samples, sr, nil
		}
		if err != nil {
			l.log().Debugf("Direct WAV read of %s failed, converting: %v", path, err)
		}
	}

	tmp := l.TempDir
	if tmp == "" {
		tmp = os.TempDir()
	}
	if err := utils.MakeDir(tmp); err != nil {
		return nil, 0, fmt.Errorf("creating temp dir: %w", err)
	}
	work, err := os.MkdirTemp(tmp, "shinglebench-*")
	if err != nil {
		return nil, 0, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(work)

	wavPath, err := audio.ConvertToMonoWAV(ctx, path, work, audio.ConvertWAVConfig{
		SampleRate: cfg.SampleRate,
		MaxSeconds: cfg.MaxSeconds,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("audio conversion failed: %w", err)
	}

	return audio.ReadWav(wavPath)
}

// LoadDir loads every audio file directly inside dir, in name order. A file
// whose name does not carry a valid identity aborts the load.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]*models.Recording, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var recs []*models.Recording
	for _, e := range entries {
		if e.IsDir() || !IsAudioFile(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := l.LoadFile(ctx, filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
