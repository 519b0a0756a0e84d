package features

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrTooShort = errors.New("input shorter than window size")

// Hamming returns a Hamming window of length n.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Hann returns a symmetric Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// MagnitudeSpectrum converts a complex spectrum into a magnitude spectrum (positive freqs only)
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// FrameCount is the number of full frames STFT produces.
func FrameCount(samples, windowSize, hopSize int) int {
	if samples < windowSize || hopSize < 1 {
		return 0
	}
	return (samples-windowSize)/hopSize + 1
}

// STFT computes the short-time FFT and returns a time-major magnitude
// spectrogram: spectrogram[frame][bin]. Only full frames are produced.
func STFT(samples []float64, windowSize, hopSize int, window []float64) ([][]float64, error) {
	if len(window) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if hopSize < 1 {
		return nil, errors.New("hop size must be positive")
	}
	if len(samples) < windowSize {
		return nil, ErrTooShort
	}

	spectrogram := make([][]float64, 0, FrameCount(len(samples), windowSize, hopSize))
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		for i := 0; i < windowSize; i++ {
			frame[i] = samples[start+i] * window[i]
		}
		spectrogram = append(spectrogram, MagnitudeSpectrum(fft.FFTReal(frame)))
	}
	return spectrogram, nil
}

// FrameRMS is the root mean square of each STFT frame of the raw signal.
func FrameRMS(samples []float64, windowSize, hopSize int) []float64 {
	n := FrameCount(len(samples), windowSize, hopSize)
	out := make([]float64, n)
	for f := 0; f < n; f++ {
		var sum float64
		for _, s := range samples[f*hopSize : f*hopSize+windowSize] {
			sum += s * s
		}
		out[f] = math.Sqrt(sum / float64(windowSize))
	}
	return out
}
