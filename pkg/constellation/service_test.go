package constellation

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/index"
	"github.com/himanishpuri/constellation/pkg/constellation/storage"
	"github.com/himanishpuri/constellation/pkg/logger"
	"github.com/himanishpuri/constellation/pkg/models"
)

const sampleRate = 44100

// melody returns a mono signal that plays each frequency for a quarter second.
// A non-zero marker adds a steady tone at that frequency throughout.
func melody(marker float64, freqs ...float64) *audio.Signal {
	segment := sampleRate / 4
	samples := make([]float64, segment*len(freqs))
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] = 0.3 * math.Sin(2*math.Pi*freqs[i/segment]*t)
		if marker > 0 {
			samples[i] += 0.5 * math.Sin(2*math.Pi*marker*t)
		}
	}
	return &audio.Signal{Channels: [][]float64{samples}, SampleRate: sampleRate}
}

var (
	melodyA = []float64{440, 660, 550, 880, 330, 990, 770, 495, 1320, 600, 720, 1100}
	melodyB = []float64{300, 1500, 900, 1200, 400, 2000, 1000, 800, 250, 1700, 650, 1400}
)

func newTestService(t *testing.T, opts ...Option) (Service, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	opts = append([]Option{
		WithStorage(store),
		WithLogger(logger.Discard()),
		WithTempDir(t.TempDir()),
	}, opts...)

	svc, err := NewService(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, store
}

func addSignal(t *testing.T, svc Service, name string, sig *audio.Signal) []models.HashToken {
	t.Helper()
	hashes, err := svc.Fingerprint(sig)
	require.NoError(t, err)
	require.NotEmpty(t, hashes)

	added, err := svc.AddSong(name, sig.Duration(), hashes)
	require.NoError(t, err)
	require.True(t, added)
	return hashes
}

func TestNewServiceRejectsInvalidParams(t *testing.T) {
	params := fingerprint.DefaultParams()
	params.STFTHopSize = 0

	_, err := NewService(WithStorage(storage.NewMemory()), WithLogger(logger.Discard()), WithParams(params))
	assert.True(t, errors.Is(err, fingerprint.ErrInvalidParams))
}

func TestMatchExactCopy(t *testing.T) {
	svc, _ := newTestService(t)
	a := melody(0, melodyA...)
	addSignal(t, svc, "a", a)
	addSignal(t, svc, "b", melody(0, melodyB...))

	matches, err := svc.MatchSignal(a)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, "a", matches[0].Song.Name)
	assert.True(t, matches[0].Histogram.MaxValue.IsZero())
}

func TestMatchExcerptFindsOffset(t *testing.T) {
	svc, _ := newTestService(t)
	params := svc.Params()

	// The steady marker keeps the truncated spectrogram width the same for the
	// song and any excerpt of it.
	const marker = 8053
	a := melody(marker, melodyA...)
	addSignal(t, svc, "a", a)
	addSignal(t, svc, "b", melody(0, melodyB...))

	const skipWindows = 20
	start := skipWindows * params.STFTHopSize
	excerpt := &audio.Signal{
		Channels:   [][]float64{a.Channels[0][start : start+sampleRate]},
		SampleRate: sampleRate,
	}

	matches, err := svc.MatchSignal(excerpt)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	step := models.NewMillis(int64(params.STFTHopSize)*1000, int64(params.SampleRate))
	assert.Equal(t, "a", matches[0].Song.Name)
	assert.Equal(t, step.Mul(skipWindows).String(), matches[0].Histogram.MaxValue.String())

	results := Summarize(matches, 100)
	assert.Equal(t, "a", results[0].Song)
	assert.Equal(t, matches[0].Histogram.MaxCount, results[0].Score)
}

func TestMatchEmptyIndex(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.MatchSignal(melody(0, melodyA...))
	assert.True(t, errors.Is(err, index.ErrEmptyIndex))
}

func TestSampleRateMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	sig := melody(0, melodyA...)
	sig.SampleRate = 22050

	_, err := svc.Fingerprint(sig)
	assert.True(t, errors.Is(err, ErrSampleRateMismatch))
}

func TestAddSongPersistsAndExports(t *testing.T) {
	exportDir := filepath.Join(t.TempDir(), "exports")
	svc, store := newTestService(t, WithExportDir(exportDir))

	hashes := addSignal(t, svc, "a", melody(0, melodyA...))

	records, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Song.Name)
	assert.Len(t, records[0].Hashes, len(hashes))

	exported, err := storage.ReadSongFile(filepath.Join(exportDir, "a.json"))
	require.NoError(t, err)
	assert.Len(t, exported.Hashes, len(hashes))

	added, err := svc.AddSong("a", 1, hashes)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestServiceReplaysStore(t *testing.T) {
	first, store := newTestService(t)
	addSignal(t, first, "a", melody(0, melodyA...))
	stats := first.Stats()

	second, err := NewService(WithStorage(store), WithLogger(logger.Discard()))
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, first.GetSongs(), second.GetSongs())
	assert.Equal(t, stats, second.Stats())

	matches, err := second.MatchSignal(melody(0, melodyA...))
	require.NoError(t, err)
	assert.Equal(t, "a", matches[0].Song.Name)
}

func TestUploadHashesPersists(t *testing.T) {
	src, _ := newTestService(t)
	addSignal(t, src, "a", melody(0, melodyA...))
	data, ok := src.Export("a")
	require.True(t, ok)

	dst, store := newTestService(t)
	added, err := dst.UploadHashes(data)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = dst.UploadHashes(data)
	require.NoError(t, err)
	assert.False(t, added)

	records, err := store.LoadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, src.Stats(), dst.Stats())
}

// failingStore rejects writes while fail is set.
type failingStore struct {
	*storage.Memory
	fail bool
}

func (f *failingStore) SaveSong(data models.SongFileData) (bool, error) {
	if f.fail {
		return false, errors.New("disk full")
	}
	return f.Memory.SaveSong(data)
}

func TestUploadHashesRetriesAfterPersistFailure(t *testing.T) {
	src, _ := newTestService(t)
	addSignal(t, src, "a", melody(0, melodyA...))
	data, ok := src.Export("a")
	require.True(t, ok)

	store := &failingStore{Memory: storage.NewMemory(), fail: true}
	dst, _ := newTestService(t, WithStorage(store))

	added, err := dst.UploadHashes(data)
	require.Error(t, err)
	assert.False(t, added)
	assert.Empty(t, dst.GetSongs())

	store.fail = false
	added, err = dst.UploadHashes(data)
	require.NoError(t, err)
	assert.True(t, added)

	records, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Song.Name)
	assert.Equal(t, src.Stats(), dst.Stats())
}

func TestSongUID(t *testing.T) {
	mem, _ := newTestService(t)
	addSignal(t, mem, "a", melody(0, melodyA...))
	_, ok := mem.SongUID("a")
	assert.False(t, ok)

	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "uid.sqlite3"))
	require.NoError(t, err)
	svc, _ := newTestService(t, WithStorage(db))
	addSignal(t, svc, "a", melody(0, melodyA...))

	uid, ok := svc.SongUID("a")
	assert.True(t, ok)
	assert.Len(t, uid, 36)

	_, ok = svc.SongUID("missing")
	assert.False(t, ok)
}

func TestAddSongFileFromWav(t *testing.T) {
	svc, _ := newTestService(t)
	path := filepath.Join(t.TempDir(), "Intro.wav")
	require.NoError(t, audio.WriteWav(path, melody(0, melodyA...), 16))

	res, err := svc.AddSongFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, "Intro", res.Song.Name)
	assert.InDelta(t, 3.0, res.Song.Duration, 1e-9)
	assert.Positive(t, res.Hashes)

	res, err = svc.AddSongFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.False(t, res.Added)

	matches, err := svc.MatchFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Intro", matches[0].Song.Name)
}

func TestAddSongFileMissing(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddSongFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), "x")
	assert.Error(t, err)
	assert.Empty(t, svc.GetSongs())
}
