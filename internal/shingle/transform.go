package shingle

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Reducer collapses one channel of a window into a single value.
type Reducer func(values []float64) float64

// Mean is the arithmetic mean of the values.
func Mean(values []float64) float64 {
	return stat.Mean(values, nil)
}

// Median is the middle value; for an even count it is the mean of the two
// middle values.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Flatten concatenates the rows of m, channel after channel.
func Flatten(m Matrix) []float64 {
	out := make([]float64, 0, m.Channels()*m.Frames())
	for _, row := range m {
		out = append(out, row...)
	}
	return out
}

// StackRows returns a new matrix with top as the first channel followed by
// the rows of m.
func StackRows(top []float64, m Matrix) (Matrix, error) {
	if len(m) > 0 && len(top) != m.Frames() {
		return nil, fmt.Errorf("stacking %d frames onto %d: %w", len(top), m.Frames(), ErrInvalidWindow)
	}
	out := make(Matrix, 0, len(m)+1)
	out = append(out, append([]float64(nil), top...))
	for _, row := range m {
		out = append(out, append([]float64(nil), row...))
	}
	return out, nil
}

// Stride keeps every step-th frame starting at frame 0.
func Stride(m Matrix, step int) (Matrix, error) {
	if step < 1 {
		return nil, fmt.Errorf("stride %d: %w", step, ErrInvalidWindow)
	}
	out := make(Matrix, len(m))
	for c, row := range m {
		kept := make([]float64, 0, (len(row)+step-1)/step)
		for i := 0; i < len(row); i += step {
			kept = append(kept, row[i])
		}
		out[c] = kept
	}
	return out, nil
}

// Aggregate shingles m with the given window and hop and reduces each window
// to a single column, channel by channel. The result has one frame per
// window and keeps the channel order of m.
func Aggregate(m Matrix, windowSeconds, totalSeconds, hopSeconds float64, reduce Reducer) (Matrix, error) {
	windows, err := Shingle(m, windowSeconds, totalSeconds, hopSeconds)
	if err != nil {
		return nil, err
	}

	out := make(Matrix, m.Channels())
	for c := range out {
		out[c] = make([]float64, len(windows))
	}
	for i, w := range windows {
		for c, row := range w {
			out[c][i] = reduce(row)
		}
	}
	return out, nil
}
