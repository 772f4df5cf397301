package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/constellation/pkg/models"
)

func token(offset int64, hash string) models.HashToken {
	return models.HashToken{Offset: models.MillisFromInt(offset), Hash: hash}
}

// run returns n tokens with offsets start, start+1, ... and hashes prefix0, prefix1, ...
func run(prefix string, start int64, n int) []models.HashToken {
	tokens := make([]models.HashToken, n)
	for i := range tokens {
		tokens[i] = token(start+int64(i), fmt.Sprintf("%s%d", prefix, i))
	}
	return tokens
}

type recordingExporter struct {
	records []models.SongFileData
	err     error
}

func (r *recordingExporter) Export(data models.SongFileData) error {
	r.records = append(r.records, data)
	return r.err
}

func TestAddSongExportsRecord(t *testing.T) {
	exp := &recordingExporter{}
	ix := New(WithExporter(exp))

	added, err := ix.AddSong("intro", 12.5, run("h", 0, 3))
	require.NoError(t, err)
	assert.True(t, added)

	require.Len(t, exp.records, 1)
	rec := exp.records[0]
	assert.Equal(t, models.Song{Name: "intro", Duration: 12.5}, rec.Song)
	require.Len(t, rec.Hashes, 3)
	for _, h := range rec.Hashes {
		assert.Equal(t, "intro", h.SongName)
	}
}

func TestAddSongIsIdempotent(t *testing.T) {
	exp := &recordingExporter{}
	ix := New(WithExporter(exp))

	_, err := ix.AddSong("a", 1, run("h", 0, 4))
	require.NoError(t, err)
	added, err := ix.AddSong("a", 99, run("x", 0, 10))
	require.NoError(t, err)

	assert.False(t, added)
	assert.Len(t, exp.records, 1, "duplicate must not export")
	assert.Equal(t, []models.Song{{Name: "a", Duration: 1}}, ix.GetSongs())
	assert.Equal(t, Stats{Songs: 1, Hashes: 4, Postings: 4}, ix.Stats())
}

func TestAddSongExportErrorKeepsSong(t *testing.T) {
	boom := errors.New("disk full")
	ix := New(WithExporter(&recordingExporter{err: boom}))

	added, err := ix.AddSong("a", 1, run("h", 0, 2))
	assert.True(t, added)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ix.GetSongs(), 1)
}

func TestUploadHashesRoundTrip(t *testing.T) {
	src := New()
	_, err := src.AddSong("a", 3, run("h", 0, 5))
	require.NoError(t, err)
	data, ok := src.Export("a")
	require.True(t, ok)

	dst := New()
	assert.True(t, dst.UploadHashes(data))
	assert.False(t, dst.UploadHashes(data))
	assert.False(t, src.UploadHashes(data), "re-upload into the source is a no-op")

	assert.Equal(t, Stats{Songs: 1, Hashes: 5, Postings: 5}, src.Stats())
	assert.Equal(t, src.Stats(), dst.Stats())

	again, ok := dst.Export("a")
	require.True(t, ok)
	assert.Equal(t, data, again)
}

func TestUploadHashesRelabelsTokens(t *testing.T) {
	ix := New()
	ix.UploadHashes(models.SongFileData{
		Song:   models.Song{Name: "real"},
		Hashes: []models.SongHashToken{{SongName: "stale", Offset: models.MillisFromInt(1), Hash: "h"}},
	})

	matches, err := ix.GetSongFor([]models.HashToken{token(0, "h")})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "real", matches[0].Song.Name)
}

func TestExportUnknownSong(t *testing.T) {
	_, ok := New().Export("missing")
	assert.False(t, ok)
}

func TestContains(t *testing.T) {
	ix := New()
	assert.False(t, ix.Contains("a"))

	ix.UploadHashes(models.SongFileData{Song: models.Song{Name: "a", Duration: 1}})
	assert.True(t, ix.Contains("a"))
	assert.False(t, ix.Contains("b"))
}

func TestGetSongsInsertionOrder(t *testing.T) {
	ix := New()
	for _, name := range []string{"c", "a", "b"} {
		_, err := ix.AddSong(name, 1, nil)
		require.NoError(t, err)
	}

	var names []string
	for _, s := range ix.GetSongs() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestGetSongForEmptyIndex(t *testing.T) {
	_, err := New().GetSongFor(run("h", 0, 3))
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestGetSongForNoMatch(t *testing.T) {
	ix := New()
	_, err := ix.AddSong("a", 1, run("h", 0, 3))
	require.NoError(t, err)

	_, err = ix.GetSongFor(run("zzz", 0, 3))
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = ix.GetSongFor(nil)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestGetSongForHistogramOfSubsequence(t *testing.T) {
	ix := New()
	song := run("h", 0, 20)
	_, err := ix.AddSong("a", 1, song)
	require.NoError(t, err)

	// Tokens 5..14 of the song, recorded starting at sample time 0.
	sample := make([]models.HashToken, 10)
	for i := range sample {
		sample[i] = models.HashToken{Offset: models.MillisFromInt(int64(i)), Hash: song[5+i].Hash}
	}

	matches, err := ix.GetSongFor(sample)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	h := matches[0].Histogram
	assert.Equal(t, 10, h.MaxCount)
	assert.Equal(t, "5", h.MaxValue.String())
	assert.Equal(t, map[string]int{"5": 10}, h.ValueAmounts)
	assert.Len(t, matches[0].MatchingPoints, 10)
}

func TestGetSongForRanking(t *testing.T) {
	ix := New()
	_, err := ix.AddSong("weak", 1, run("s", 100, 3))
	require.NoError(t, err)
	_, err = ix.AddSong("strong", 1, run("s", 50, 5))
	require.NoError(t, err)

	// Hashes s0..s4 hit "weak" for s0..s2 first, then "strong" for all five.
	matches, err := ix.GetSongFor(run("s", 0, 5))
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "strong", matches[0].Song.Name)
	assert.Equal(t, 5, matches[0].Histogram.MaxCount)
	assert.Equal(t, "50", matches[0].Histogram.MaxValue.String())
	assert.Equal(t, "weak", matches[1].Song.Name)
	assert.Equal(t, 3, matches[1].Histogram.MaxCount)
}

func TestGetSongForTiesKeepDiscoveryOrderAndTopThree(t *testing.T) {
	ix := New()
	for i, name := range []string{"d", "c", "b", "a"} {
		_, err := ix.AddSong(name, 1, []models.HashToken{token(int64(i), fmt.Sprintf("k%d", i))})
		require.NoError(t, err)
	}

	// Discovery order follows the sample: a, b, c, d.
	sample := []models.HashToken{token(0, "k3"), token(0, "k2"), token(0, "k1"), token(0, "k0")}
	matches, err := ix.GetSongFor(sample)
	require.NoError(t, err)

	require.Len(t, matches, MaxResults)
	assert.Equal(t, "a", matches[0].Song.Name)
	assert.Equal(t, "b", matches[1].Song.Name)
	assert.Equal(t, "c", matches[2].Song.Name)
}

func TestHistogramFirstToReachMax(t *testing.T) {
	points := []models.MatchingPoint{
		{SongOffset: models.MillisFromInt(10), SampleOffset: models.MillisFromInt(0)},
		{SongOffset: models.MillisFromInt(20), SampleOffset: models.MillisFromInt(0)},
		{SongOffset: models.MillisFromInt(21), SampleOffset: models.MillisFromInt(1)},
		{SongOffset: models.MillisFromInt(11), SampleOffset: models.MillisFromInt(1)},
	}

	h := histogram(points)
	assert.Equal(t, 2, h.MaxCount)
	assert.Equal(t, "20", h.MaxValue.String(), "20 reached two votes before 10 did")
	assert.Equal(t, map[string]int{"10": 2, "20": 2}, h.ValueAmounts)
}

func TestHistogramExactRationalDeltas(t *testing.T) {
	step := models.NewMillis(10240, 441)
	points := []models.MatchingPoint{
		{SongOffset: step.Mul(5), SampleOffset: step.Mul(2)},
		{SongOffset: step.Mul(9), SampleOffset: step.Mul(6)},
	}

	h := histogram(points)
	assert.Equal(t, 2, h.MaxCount)
	assert.True(t, h.MaxValue.Equal(step.Mul(3)))
}

func TestConcurrentAddAndQuery(t *testing.T) {
	ix := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = ix.AddSong(fmt.Sprintf("song-%d", i%4), 1, run("h", int64(i), 10))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = ix.GetSongFor(run("h", 0, 10))
		}()
	}
	wg.Wait()

	assert.Len(t, ix.GetSongs(), 4)
	assert.Equal(t, 40, ix.Stats().Postings)
}
