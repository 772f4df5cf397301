package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/himanishpuri/constellation/pkg/utils"
)

// ErrFFmpegNotFound is returned when a conversion needs ffmpeg and it is not on PATH.
var ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")

type ConvertWAVConfig struct {
	SampleRate int
	// Channels is the output channel count; 0 keeps the source layout.
	Channels int
	Timeout  time.Duration
}

// ConvertToWAV transcodes any ffmpeg-readable file to 16-bit PCM WAV at
// cfg.SampleRate and returns the path of the new file inside outputDir.
func ConvertToWAV(ctx context.Context, inputPath, outputDir string, cfg ConvertWAVConfig) (string, error) {
	if cfg.SampleRate <= 0 {
		return "", errors.Errorf("convert %s: sample rate must be positive", inputPath)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return "", ErrFFmpegNotFound
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", errors.Wrapf(err, "create %s", outputDir)
	}

	outputPath := filepath.Join(outputDir, utils.SongName(inputPath)+".wav")
	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	args := []string{"-y", "-v", "quiet", "-i", inputPath}
	if cfg.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(cfg.Channels))
	}
	args = append(args,
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Wrapf(err, "ffmpeg failed (%s)", out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// Load returns the signal of path at sampleRate. WAV files already at that rate
// are read directly; anything else goes through ffmpeg into tempDir, and the
// converted file is removed afterwards.
func Load(ctx context.Context, path string, sampleRate int, tempDir string) (*Signal, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		sig, err := ReadWav(path)
		if err == nil && sig.SampleRate == sampleRate {
			return sig, nil
		}
	}

	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := utils.MakeDir(tempDir); err != nil {
		return nil, errors.Wrapf(err, "create %s", tempDir)
	}
	dir, err := os.MkdirTemp(tempDir, "convert-")
	if err != nil {
		return nil, errors.Wrap(err, "create conversion directory")
	}
	defer os.RemoveAll(dir)

	converted, err := ConvertToWAV(ctx, path, dir, ConvertWAVConfig{SampleRate: sampleRate})
	if err != nil {
		return nil, err
	}
	return ReadWav(converted)
}
