package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// PitchClasses is the number of chroma bins, C first.
const PitchClasses = 12

// PitchClass maps a frequency to its pitch class (0 = C) under the given A4
// tuning.
func PitchClass(freq, tuning float64) int {
	midi := 69 + 12*math.Log2(freq/tuning)
	pc := int(math.Round(midi)) % PitchClasses
	if pc < 0 {
		pc += PitchClasses
	}
	return pc
}

// chromaMap assigns each FFT bin to a pitch class, or -1 outside the band.
func chromaMap(bins, sampleRate, windowSize int, minFreq, maxFreq, tuning float64) []int {
	classes := make([]int, bins)
	for k := range classes {
		f := float64(k) * float64(sampleRate) / float64(windowSize)
		if k == 0 || f < minFreq || f > maxFreq {
			classes[k] = -1
			continue
		}
		classes[k] = PitchClass(f, tuning)
	}
	return classes
}

// foldChroma sums the spectral power of each bin into its pitch class and
// returns a channel-major matrix chroma[class][frame].
func foldChroma(spec [][]float64, classes []int) [][]float64 {
	chroma := make([][]float64, PitchClasses)
	for c := range chroma {
		chroma[c] = make([]float64, len(spec))
	}
	for f, mag := range spec {
		for k, m := range mag {
			if pc := classes[k]; pc >= 0 {
				chroma[pc][f] += m * m
			}
		}
	}
	return chroma
}

// normalizeFrames scales every frame (column) to unit L-norm. Silent frames
// stay zero.
func normalizeFrames(chroma [][]float64, norm float64) {
	if len(chroma) == 0 {
		return
	}
	col := make([]float64, len(chroma))
	for f := range chroma[0] {
		for c := range chroma {
			col[c] = chroma[c][f]
		}
		n := floats.Norm(col, norm)
		if n == 0 {
			continue
		}
		for c := range chroma {
			chroma[c][f] /= n
		}
	}
}

// quantizeCENS maps an L1-normalised energy share to the CENS steps.
func quantizeCENS(v float64) float64 {
	switch {
	case v > 0.4:
		return 4
	case v > 0.2:
		return 3
	case v > 0.1:
		return 2
	case v > 0.05:
		return 1
	default:
		return 0
	}
}

// smoothRows convolves each row with a normalised Hann window centred on the
// frame, treating frames past either edge as zero.
func smoothRows(chroma [][]float64, length int) {
	if length < 2 {
		return
	}
	w := Hann(length + 2)[1 : length+1] // drop the zero end points
	floats.Scale(1/floats.Sum(w), w)
	half := length / 2

	for c, row := range chroma {
		out := make([]float64, len(row))
		for f := range row {
			var acc float64
			for i, wi := range w {
				if j := f + i - half; j >= 0 && j < len(row) {
					acc += wi * row[j]
				}
			}
			out[f] = acc
		}
		chroma[c] = out
	}
}

// CENS converts a power chromagram into chroma energy normalised statistics:
// per-frame L1 normalisation, step quantisation, temporal smoothing and a
// final per-frame L2 normalisation.
func CENS(chroma [][]float64, smoothing int) {
	normalizeFrames(chroma, 1)
	for _, row := range chroma {
		for f, v := range row {
			row[f] = quantizeCENS(v)
		}
	}
	smoothRows(chroma, smoothing)
	normalizeFrames(chroma, 2)
}

// Volume maps frame RMS to a perceptual loudness in [0, 1].
func Volume(rms []float64) []float64 {
	out := make([]float64, len(rms))
	for i, r := range rms {
		if r <= 0 {
			continue
		}
		out[i] = math.Max(0, math.Min(1, 0.4*math.Log10(r/0.002)))
	}
	return out
}
