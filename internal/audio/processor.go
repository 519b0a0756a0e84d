package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/shinglebench/pkg/utils"
)

const (
	DefaultSampleRate = 22050
	defaultTimeout    = 2 * time.Minute
)

// ErrNoFFmpeg is returned when a conversion is needed but ffmpeg is not on
// the PATH.
var ErrNoFFmpeg = errors.New("ffmpeg not found in PATH")

type ConvertWAVConfig struct {
	SampleRate int     // analysis rate, 22050 unless set
	MaxSeconds float64 // zero keeps the full length
	Timeout    time.Duration
}

// ffmpegArgs decodes the first audio stream of in to 16-bit mono PCM.
func ffmpegArgs(in, out string, cfg ConvertWAVConfig) []string {
	args := []string{"-y", "-v", "quiet", "-i", in, "-vn", "-ac", "1", "-ar", strconv.Itoa(cfg.SampleRate)}
	if cfg.MaxSeconds > 0 {
		args = append(args, "-t", strconv.FormatFloat(cfg.MaxSeconds, 'f', -1, 64))
	}
	return append(args, "-c:a", "pcm_s16le", out)
}

// ConvertToMonoWAV writes inputPath as a mono WAV named <base>.wav into
// outputDir and returns its path. The file appears only once ffmpeg has
// finished.
func ConvertToMonoWAV(ctx context.Context, inputPath, outputDir string, cfg ConvertWAVConfig) (string, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", ErrNoFFmpeg
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := filepath.Base(inputPath)
	outputPath := filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".wav")
	partial := outputPath + ".part.wav"
	defer os.Remove(partial)

	if out, err := exec.CommandContext(ctx, ffmpeg, ffmpegArgs(inputPath, partial, cfg)...).CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("converting %s: %w", base, ctx.Err())
		}
		return "", fmt.Errorf("ffmpeg failed on %s: %v (%s)", base, err, strings.TrimSpace(string(out)))
	}

	if err := utils.MoveFile(partial, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}
