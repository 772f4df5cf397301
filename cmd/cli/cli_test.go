//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/storage"
	"github.com/himanishpuri/constellation/pkg/models"
)

// workspace returns the flags that point a command at a private store.
func workspace(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{
		"--storage", "sqlite",
		"--db", filepath.Join(dir, "test.sqlite3"),
		"--temp", filepath.Join(dir, "tmp"),
		"--log-level", "error",
	}
}

func run(t *testing.T, flags []string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, flags...))
	err := root.Execute()
	return out.String(), err
}

func writeTune(t *testing.T, dir, name string, freqs ...float64) string {
	t.Helper()
	const rate = 44100
	segment := rate / 4
	samples := make([]float64, segment*len(freqs))
	for i := range samples {
		samples[i] = 0.4 * math.Sin(2*math.Pi*freqs[i/segment]*float64(i)/rate)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, audio.WriteWav(path, &audio.Signal{Channels: [][]float64{samples}, SampleRate: rate}, 16))
	return path
}

var (
	tuneA = []float64{440, 660, 550, 880, 330, 990, 770, 495, 1320, 600, 720, 1100}
	tuneB = []float64{300, 1500, 900, 1200, 400, 2000, 1000, 800, 250, 1700, 650, 1400}
)

func TestAddAndMatch(t *testing.T) {
	flags := workspace(t)
	path := writeTune(t, t.TempDir(), "Tune.wav", tuneA...)

	out, err := run(t, flags, "add", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Added Tune (0:03,")

	out, err = run(t, flags, "add", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Tune is already indexed")

	out, err = run(t, flags, "match", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1. Tune")
	assert.Contains(t, out, "Offset: 0ms")
}

func TestAddWithName(t *testing.T) {
	flags := workspace(t)
	path := writeTune(t, t.TempDir(), "x.wav", tuneA...)

	_, err := run(t, flags, "add", path, "--name", "Custom")
	require.NoError(t, err)

	out, err := run(t, flags, "list")
	require.NoError(t, err)
	assert.Regexp(t, `Custom\s+0:03\s+[0-9a-f-]{36}`, out)
}

func TestAddDir(t *testing.T) {
	flags := workspace(t)
	dir := t.TempDir()
	writeTune(t, dir, "a.wav", tuneA...)
	writeTune(t, dir, "b.wav", tuneB...)

	out, err := run(t, flags, "add-dir", dir, "--workers", "2", "--progress=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 2, already indexed 0, failed 0")

	out, err = run(t, flags, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")
	assert.Contains(t, out, "2 songs")

	_, err = run(t, flags, "add-dir", t.TempDir())
	assert.Error(t, err)
}

func TestMatchEmptyIndex(t *testing.T) {
	flags := workspace(t)
	path := writeTune(t, t.TempDir(), "q.wav", tuneA...)

	_, err := run(t, flags, "match", path)
	assert.Error(t, err)
}

func TestImportAndExport(t *testing.T) {
	flags := workspace(t)
	step := models.NewMillis(10240, 441)
	record := models.SongFileData{
		Song: models.Song{Name: "imported", Duration: 61},
		Hashes: []models.SongHashToken{
			{SongName: "imported", Offset: step, Hash: "11"},
			{SongName: "imported", Offset: step.Mul(2), Hash: "22"},
		},
	}
	dir := t.TempDir()
	require.NoError(t, storage.FileExporter{Dir: dir}.Export(record))
	file := filepath.Join(dir, "imported.json")

	out, err := run(t, flags, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported imported (2 hashes)")

	out, err = run(t, flags, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported is already indexed")

	out, err = run(t, flags, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1:01")

	out, err = run(t, flags, "export", "imported")
	require.NoError(t, err)
	var got models.SongFileData
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Hashes, 2)
	assert.Equal(t, step.String(), got.Hashes[0].Offset.String())

	out, err = run(t, flags, "export", "imported", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: imported")
	assert.Contains(t, out, "offset: 10240/441")

	_, err = run(t, flags, "export", "imported", "--format", "xml")
	assert.Error(t, err)
	_, err = run(t, flags, "export", "missing")
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constellation.yaml")

	out, err := run(t, nil, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	_, err = run(t, nil, "config", "init", path)
	assert.Error(t, err)
	_, err = run(t, nil, "config", "init", path, "--force")
	assert.NoError(t, err)

	out, err = run(t, append(workspace(t), "--config", path), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No songs indexed")
}

func TestSpectrogram(t *testing.T) {
	flags := workspace(t)
	dir := t.TempDir()
	path := writeTune(t, dir, "tune.wav", tuneA...)
	png := filepath.Join(dir, "out.png")

	out, err := run(t, flags, "spectrogram", path, "-o", png, "--width", "512", "--height", "128")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+png)
	assert.FileExists(t, png)

	_, err = run(t, flags, "spectrogram", path, "--width", "0")
	assert.Error(t, err)
}
