package audio

import (
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// ErrNotWav is returned when a file is not a readable PCM WAV file.
var ErrNotWav = errors.New("not a valid PCM WAV file")

// Signal is decoded audio with one slice of samples in [-1, 1] per channel.
type Signal struct {
	Channels   [][]float64
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s *Signal) Duration() float64 {
	if s == nil || s.SampleRate <= 0 || len(s.Channels) == 0 {
		return 0
	}
	return float64(len(s.Channels[0])) / float64(s.SampleRate)
}

// Frames returns the number of samples per channel.
func (s *Signal) Frames() int {
	if s == nil || len(s.Channels) == 0 {
		return 0
	}
	return len(s.Channels[0])
}

func ReadWav(path string) (*Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	sig, err := DecodeWav(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return sig, nil
}

// DecodeWav reads a PCM WAV stream and de-interleaves it into channels.
func DecodeWav(r io.ReadSeeker) (*Signal, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrNotWav
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "read PCM data")
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, ErrNotWav
	}

	bitDepth := int(d.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	scale := math.Pow(2, float64(bitDepth-1))
	bias := 0
	if bitDepth == 8 {
		// 8-bit PCM is unsigned
		bias = 128
	}

	numChannels := buf.Format.NumChannels
	frames := len(buf.Data) / numChannels
	channels := make([][]float64, numChannels)
	for c := range channels {
		channels[c] = make([]float64, frames)
	}
	for i := 0; i < frames*numChannels; i++ {
		channels[i%numChannels][i/numChannels] = float64(buf.Data[i]-bias) / scale
	}

	return &Signal{Channels: channels, SampleRate: buf.Format.SampleRate}, nil
}

// WriteWav encodes s as integer PCM with the given bit depth (8, 16, 24 or 32).
// Samples are clipped to [-1, 1].
func WriteWav(path string, s *Signal, bitDepth int) error {
	if s == nil || len(s.Channels) == 0 {
		return errors.New("write wav: empty signal")
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return errors.Errorf("write wav: unsupported bit depth %d", bitDepth)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	numChannels := len(s.Channels)
	frames := s.Frames()
	scale := math.Pow(2, float64(bitDepth-1)) - 1
	bias := 0
	if bitDepth == 8 {
		bias = 128
	}

	data := make([]int, frames*numChannels)
	for i := 0; i < frames; i++ {
		for c := 0; c < numChannels; c++ {
			v := math.Max(-1, math.Min(1, s.Channels[c][i]))
			data[i*numChannels+c] = int(math.Round(v*scale)) + bias
		}
	}

	enc := wav.NewEncoder(f, s.SampleRate, bitDepth, numChannels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: numChannels, SampleRate: s.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "finalize %s", path)
	}
	return nil
}
