package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrNotWAV            = errors.New("not a WAV/RIFF file")
	ErrUnsupportedFormat = errors.New("unsupported WAV format")
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag.
const wavFormatPCM = 1

// ReadWav decodes an integer PCM WAV file and returns mono samples
// normalised to [-1, 1] with the sample rate. Multi-channel audio is
// averaged down to one channel.
func ReadWav(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, 0, fmt.Errorf("%s: audio format %d: %w", path, dec.WavAudioFormat, ErrUnsupportedFormat)
	}
	if dec.BitDepth == 0 || dec.BitDepth > 32 {
		return nil, 0, fmt.Errorf("%s: %d bits per sample: %w", path, dec.BitDepth, ErrUnsupportedFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding PCM samples: %w", err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, 0, fmt.Errorf("%s: %d channels: %w", path, channels, ErrUnsupportedFormat)
	}

	scale := 1 / math.Pow(2, float64(dec.BitDepth-1))
	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = sum / float64(channels) * scale
	}

	return out, int(dec.SampleRate), nil
}

// WriteWav encodes mono samples in [-1, 1] as 16-bit PCM. Values outside the
// range are clipped.
func WriteWav(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	const bitDepth = 16
	data := make([]int, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * 32767))
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalising wav: %w", err)
	}
	return nil
}
