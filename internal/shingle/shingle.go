package shingle

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWindow is returned for window parameters that cannot produce
// well-formed shingles.
var ErrInvalidWindow = errors.New("invalid shingle window")

// Matrix is a channel-major feature matrix: m[channel][frame].
type Matrix [][]float64

// Frames returns the number of columns (time frames).
func (m Matrix) Frames() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Channels returns the number of rows.
func (m Matrix) Channels() int {
	return len(m)
}

// Cols returns a copy of the column slice [from, to).
func (m Matrix) Cols(from, to int) Matrix {
	out := make(Matrix, len(m))
	for c, row := range m {
		out[c] = append([]float64(nil), row[from:to]...)
	}
	return out
}

func (m Matrix) checkRect() error {
	n := m.Frames()
	for c, row := range m {
		if len(row) != n {
			return fmt.Errorf("row %d has %d frames, expected %d: %w", c, len(row), n, ErrInvalidWindow)
		}
	}
	return nil
}

// Frames converts a duration into a whole number of frames for a matrix of n
// frames spanning totalSeconds, rounding down.
func Frames(seconds float64, n int, totalSeconds float64) int {
	// products within 1e-9 below an integer count as that integer, so float
	// error in e.g. 0.29*100 does not lose a frame
	return int(math.Floor(seconds*float64(n)/totalSeconds + 1e-9))
}

// Shingle slices m into overlapping fixed-duration windows.
//
// The matrix spans totalSeconds, so its frame rate is Frames()/totalSeconds.
// Each window is floor(windowSeconds*rate) frames long; consecutive windows
// start floor(hopSeconds*rate) frames apart, or one frame apart when
// hopSeconds is zero. Frames past the last full window are dropped, and a
// matrix shorter than one window yields no windows.
func Shingle(m Matrix, windowSeconds, totalSeconds, hopSeconds float64) ([]Matrix, error) {
	if totalSeconds <= 0 {
		return nil, fmt.Errorf("total duration %.3fs: %w", totalSeconds, ErrInvalidWindow)
	}
	if hopSeconds < 0 {
		return nil, fmt.Errorf("negative hop %.3fs: %w", hopSeconds, ErrInvalidWindow)
	}
	if err := m.checkRect(); err != nil {
		return nil, err
	}

	n := m.Frames()
	if n == 0 {
		return nil, nil
	}
	rate := float64(n) / totalSeconds

	ll := Frames(windowSeconds, n, totalSeconds)
	if ll < 1 {
		return nil, fmt.Errorf("window %.3fs is shorter than one frame at %.3f frames/s: %w", windowSeconds, rate, ErrInvalidWindow)
	}

	h := 1
	if hopSeconds > 0 {
		h = Frames(hopSeconds, n, totalSeconds)
		if h < 1 {
			return nil, fmt.Errorf("hop %.3fs is shorter than one frame at %.3f frames/s: %w", hopSeconds, rate, ErrInvalidWindow)
		}
	}

	return Windows(m, ll, h), nil
}

// Windows is Shingle with the window length and hop given in frames.
func Windows(m Matrix, ll, h int) []Matrix {
	n := m.Frames()
	if ll < 1 || h < 1 || n < ll {
		return nil
	}

	count := (n-ll)/h + 1
	out := make([]Matrix, count)
	for i := 0; i < count; i++ {
		out[i] = m.Cols(i*h, i*h+ll)
	}
	return out
}

// Count is the number of windows Windows would produce.
func Count(n, ll, h int) int {
	if ll < 1 || h < 1 || n < ll {
		return 0
	}
	return (n-ll)/h + 1
}
