package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func stereoSignal(frames, sampleRate int) *Signal {
	left := make([]float64, frames)
	right := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
		right[i] = -0.25
	}
	return &Signal{Channels: [][]float64{left, right}, SampleRate: sampleRate}
}

func writeTestWav(t *testing.T, s *Signal) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWav(path, s, 16); err != nil {
		t.Fatalf("WriteWav failed: %v", err)
	}
	return path
}

func TestWriteReadWavRoundTrip(t *testing.T) {
	want := stereoSignal(4410, 44100)
	path := writeTestWav(t, want)

	got, err := ReadWav(path)
	if err != nil {
		t.Fatalf("ReadWav failed: %v", err)
	}

	if got.SampleRate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", got.SampleRate)
	}
	if len(got.Channels) != 2 {
		t.Fatalf("Expected 2 channels, got %d", len(got.Channels))
	}
	if got.Frames() != 4410 {
		t.Fatalf("Expected 4410 frames, got %d", got.Frames())
	}

	// 16-bit quantisation error is below 1/32767.
	const tolerance = 1.0 / 16384
	for c := range want.Channels {
		for i := range want.Channels[c] {
			if diff := math.Abs(got.Channels[c][i] - want.Channels[c][i]); diff > tolerance {
				t.Fatalf("channel %d sample %d: got %f, expected %f", c, i, got.Channels[c][i], want.Channels[c][i])
			}
		}
	}
}

func TestSignalDuration(t *testing.T) {
	s := stereoSignal(22050, 44100)
	if d := s.Duration(); d != 0.5 {
		t.Errorf("Expected 0.5s, got %f", d)
	}

	var empty *Signal
	if empty.Duration() != 0 || empty.Frames() != 0 {
		t.Error("nil signal should have zero length")
	}
}

func TestReadWavInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.wav")
	if err := os.WriteFile(path, []byte("INVALID HEADER DATA"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadWav(path); !errors.Is(err, ErrNotWav) {
		t.Errorf("Expected ErrNotWav, got %v", err)
	}
	if _, err := ReadWav(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestWriteWavRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	if err := WriteWav(filepath.Join(dir, "a.wav"), &Signal{SampleRate: 44100}, 16); err == nil {
		t.Error("Expected error for a signal without channels")
	}
	if err := WriteWav(filepath.Join(dir, "b.wav"), stereoSignal(10, 44100), 12); err == nil {
		t.Error("Expected error for unsupported bit depth")
	}
}

func TestLoadReadsMatchingWavDirectly(t *testing.T) {
	path := writeTestWav(t, stereoSignal(1000, 44100))

	sig, err := Load(context.Background(), path, 44100, t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sig.Frames() != 1000 {
		t.Errorf("Expected 1000 frames, got %d", sig.Frames())
	}
}

func TestLoadResamplesWithFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skipf("ffmpeg not available: %v", err)
	}
	path := writeTestWav(t, stereoSignal(44100, 44100))

	sig, err := Load(context.Background(), path, 22050, t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sig.SampleRate != 22050 {
		t.Errorf("Expected 22050 Hz, got %d", sig.SampleRate)
	}
	if len(sig.Channels) != 2 {
		t.Errorf("Expected channels to be kept, got %d", len(sig.Channels))
	}
}

func TestConvertToWAVRequiresSampleRate(t *testing.T) {
	_, err := ConvertToWAV(context.Background(), "in.mp3", t.TempDir(), ConvertWAVConfig{})
	if err == nil {
		t.Error("Expected error without a sample rate")
	}
}
