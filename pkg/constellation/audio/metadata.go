package audio

import (
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Metadata is what ffprobe reports about an audio file.
type Metadata struct {
	Filename    string
	Title       string
	Artist      string
	Album       string
	DurationSec float64
	SampleRate  int
	Channels    int
	BitDepth    int
	Format      string
}

// SongName returns "Artist - Title", the bare title, or "" when the file has no
// title tag.
func (m *Metadata) SongName() string {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		return ""
	}
	if artist := strings.TrimSpace(m.Artist); artist != "" {
		return artist + " - " + title
	}
	return title
}

type mediaReport struct {
	Format struct {
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []mediaStream `json:"streams"`
}

type mediaStream struct {
	CodecType     string `json:"codec_type"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bits_per_sample"`
}

// tag looks a tag up case-insensitively; containers disagree on tag case.
func tag(tags map[string]string, key string) string {
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func parseMetadata(path string, out []byte) (*Metadata, error) {
	var report mediaReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, errors.Wrap(err, "parse ffprobe output")
	}

	var stream *mediaStream
	for i := range report.Streams {
		if report.Streams[i].CodecType == "audio" {
			stream = &report.Streams[i]
			break
		}
	}
	if stream == nil {
		return nil, errors.Errorf("%s: no audio stream found", path)
	}

	duration, _ := strconv.ParseFloat(report.Format.Duration, 64)
	sampleRate, _ := strconv.Atoi(stream.SampleRate)

	return &Metadata{
		Filename:    filepath.Base(path),
		Title:       tag(report.Format.Tags, "title"),
		Artist:      tag(report.Format.Tags, "artist"),
		Album:       tag(report.Format.Tags, "album"),
		DurationSec: duration,
		SampleRate:  sampleRate,
		Channels:    stream.Channels,
		BitDepth:    stream.BitsPerSample,
		Format:      report.Format.Format,
	}, nil
}

// ReadMetadata reads file metadata with ffprobe.
func ReadMetadata(ctx context.Context, path string) (*Metadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(err, "ffprobe %s", path)
	}
	return parseMetadata(path, out)
}
