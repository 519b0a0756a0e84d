package shingle

import (
	"errors"
	"math"
	"testing"
)

// rampMatrix builds a channels×frames matrix where m[c][f] = c*1000 + f.
func rampMatrix(channels, frames int) Matrix {
	m := make(Matrix, channels)
	for c := range m {
		m[c] = make([]float64, frames)
		for f := range m[c] {
			m[c][f] = float64(c*1000 + f)
		}
	}
	return m
}

func TestShingleCount(t *testing.T) {
	tests := []struct {
		name          string
		frames        int
		window, total float64
		hop           float64
		expected      int
	}{
		{"one frame per second, single hop", 180, 20, 180, 0, 161},
		{"hop of five", 180, 20, 180, 5, 33},
		{"exact fit", 20, 20, 20, 0, 1},
		{"shorter than window", 10, 20, 10, 0, 0},
		{"43 fps", 7740, 20, 180, 0, 7740 - 860 + 1},
		{"hop larger than window", 100, 10, 100, 30, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows, err := Shingle(rampMatrix(2, tt.frames), tt.window, tt.total, tt.hop)
			if err != nil {
				t.Fatalf("Shingle failed: %v", err)
			}
			if len(windows) != tt.expected {
				t.Errorf("expected %d windows, got %d", tt.expected, len(windows))
			}
		})
	}
}

func TestWindowsShorterThanWindowYieldsNone(t *testing.T) {
	if got := Windows(rampMatrix(3, 5), 6, 1); len(got) != 0 {
		t.Errorf("expected no windows when N < LL, got %d", len(got))
	}
	if got := Count(5, 6, 1); got != 0 {
		t.Errorf("Count(5, 6, 1) = %d, expected 0", got)
	}
}

func TestFrames(t *testing.T) {
	tests := []struct {
		name         string
		seconds      float64
		n            int
		totalSeconds float64
		expected     int
	}{
		{"exact", 5, 10, 10, 5},
		{"a hair under an integer", 5 - 1e-12, 1, 1, 5},
		{"float error in 0.29*100", 0.29, 100, 1, 29},
		{"clearly fractional", 4.9, 1, 1, 4},
		{"below the rounding band", 5 - 1e-6, 1, 1, 4},
		{"zero", 0, 40, 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Frames(tt.seconds, tt.n, tt.totalSeconds); got != tt.expected {
				t.Errorf("Frames(%v, %d, %v) = %d, expected %d", tt.seconds, tt.n, tt.totalSeconds, got, tt.expected)
			}
		})
	}
}

func TestCountMatchesWindows(t *testing.T) {
	for n := 0; n < 40; n++ {
		for ll := 1; ll < 12; ll++ {
			for h := 1; h < 6; h++ {
				got := len(Windows(rampMatrix(1, n), ll, h))
				if got != Count(n, ll, h) {
					t.Fatalf("n=%d ll=%d h=%d: Windows=%d Count=%d", n, ll, h, got, Count(n, ll, h))
				}
				if n >= ll && got != (n-ll)/h+1 {
					t.Fatalf("n=%d ll=%d h=%d: got %d windows", n, ll, h, got)
				}
			}
		}
	}
}

func TestShingleContent(t *testing.T) {
	m := rampMatrix(3, 50)
	ll, h := 8, 3

	windows := Windows(m, ll, h)
	for i, w := range windows {
		if w.Channels() != 3 {
			t.Fatalf("window %d has %d channels", i, w.Channels())
		}
		if w.Frames() != ll {
			t.Fatalf("window %d has %d frames, expected %d", i, w.Frames(), ll)
		}
		for c := range w {
			for f := range w[c] {
				if w[c][f] != m[c][i*h+f] {
					t.Fatalf("window %d [%d][%d] = %f, expected %f", i, c, f, w[c][f], m[c][i*h+f])
				}
			}
		}
	}
}

func TestShingleWindowsAreCopies(t *testing.T) {
	m := rampMatrix(1, 10)
	windows := Windows(m, 4, 1)
	windows[0][0][0] = -1
	if m[0][0] != 0 {
		t.Error("mutating a window must not change the source matrix")
	}
	if windows[1][0][0] != 1 {
		t.Error("windows must not share storage")
	}
}

func TestShingleDeterministic(t *testing.T) {
	m := rampMatrix(2, 60)
	a, _ := Shingle(m, 10, 60, 2)
	b, _ := Shingle(m, 10, 60, 2)
	if len(a) != len(b) {
		t.Fatalf("window counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		for c := range a[i] {
			for f := range a[i][c] {
				if a[i][c][f] != b[i][c][f] {
					t.Fatalf("window %d differs between calls", i)
				}
			}
		}
	}
}

func TestShingleInvalidParameters(t *testing.T) {
	m := rampMatrix(2, 100)
	cases := []struct {
		name                      string
		window, total, hopSeconds float64
	}{
		{"zero duration", 10, 0, 0},
		{"negative hop", 10, 100, -1},
		{"window under a frame", 0.5, 100, 0},
		{"hop under a frame", 10, 100, 0.5},
	}
	for _, tc := range cases {
		if _, err := Shingle(m, tc.window, tc.total, tc.hopSeconds); !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("%s: expected ErrInvalidWindow, got %v", tc.name, err)
		}
	}

	ragged := Matrix{{1, 2, 3}, {1, 2}}
	if _, err := Shingle(ragged, 1, 3, 0); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("ragged matrix: expected ErrInvalidWindow, got %v", err)
	}
}

func TestFlatten(t *testing.T) {
	m := Matrix{{1, 2, 3}, {4, 5, 6}}
	got := Flatten(m)
	expected := []float64{1, 2, 3, 4, 5, 6}
	if len(got) != len(expected) {
		t.Fatalf("expected %d values, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Flatten[%d] = %f, expected %f", i, got[i], expected[i])
		}
	}
}

func TestStackRows(t *testing.T) {
	m := Matrix{{1, 2}, {3, 4}}
	out, err := StackRows([]float64{9, 8}, m)
	if err != nil {
		t.Fatalf("StackRows failed: %v", err)
	}
	if out.Channels() != 3 || out[0][0] != 9 || out[1][1] != 2 || out[2][0] != 3 {
		t.Errorf("unexpected stacked matrix %v", out)
	}

	if _, err := StackRows([]float64{1}, m); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow for misaligned row, got %v", err)
	}
}

func TestStride(t *testing.T) {
	m := rampMatrix(2, 10)
	out, err := Stride(m, 4)
	if err != nil {
		t.Fatalf("Stride failed: %v", err)
	}
	if out.Frames() != 3 {
		t.Fatalf("expected 3 frames, got %d", out.Frames())
	}
	for i, f := range []int{0, 4, 8} {
		if out[1][i] != m[1][f] {
			t.Errorf("frame %d = %f, expected %f", i, out[1][i], m[1][f])
		}
	}

	if _, err := Stride(m, 0); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow for zero stride, got %v", err)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in       []float64
		expected float64
	}{
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{[]float64{7}, 7},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := Median(tt.in); got != tt.expected {
			t.Errorf("Median(%v) = %f, expected %f", tt.in, got, tt.expected)
		}
	}
}

func TestAggregate(t *testing.T) {
	// 10 frames over 10 seconds; 2s windows with 2s hop -> 5 columns.
	m := rampMatrix(2, 10)
	out, err := Aggregate(m, 2, 10, 2, Mean)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if out.Channels() != 2 || out.Frames() != 5 {
		t.Fatalf("expected 2x5 matrix, got %dx%d", out.Channels(), out.Frames())
	}
	for i := 0; i < 5; i++ {
		expected := float64(1000) + float64(2*i) + 0.5
		if math.Abs(out[1][i]-expected) > 1e-9 {
			t.Errorf("column %d = %f, expected %f", i, out[1][i], expected)
		}
	}
}
