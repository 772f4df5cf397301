// Package index stores landmark hashes of reference songs and ranks songs for a
// sample by voting on the time offset between matching hashes.
package index

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/himanishpuri/constellation/pkg/logger"
	"github.com/himanishpuri/constellation/pkg/models"
)

// MaxResults is the number of candidates GetSongFor returns at most.
const MaxResults = 3

// Exporter receives the record of every song added through AddSong.
type Exporter interface {
	Export(data models.SongFileData) error
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(models.SongFileData) error

func (f ExporterFunc) Export(data models.SongFileData) error { return f(data) }

type Stats struct {
	Songs    int `json:"songs"`
	Hashes   int `json:"hashes"`
	Postings int `json:"postings"`
}

type Option func(*Index)

func WithExporter(e Exporter) Option {
	return func(ix *Index) { ix.exporter = e }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.log = l
		}
	}
}

// Index is safe for concurrent use. Writers hold the lock exclusively, so the
// duplicate-name check and the insert are atomic; queries share it.
type Index struct {
	mu       sync.RWMutex
	songs    map[string]models.Song
	order    []string
	tokens   map[string][]models.SongHashToken // by song name, in ingestion order
	postings map[string][]models.SongHashToken // by hash
	count    int

	exporter Exporter
	log      logrus.FieldLogger
}

func New(opts ...Option) *Index {
	ix := &Index{
		songs:    make(map[string]models.Song),
		tokens:   make(map[string][]models.SongHashToken),
		postings: make(map[string][]models.SongHashToken),
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// insert adds the song and its tokens. The caller holds the write lock.
func (ix *Index) insert(song models.Song, tokens []models.SongHashToken) bool {
	if _, ok := ix.songs[song.Name]; ok {
		return false
	}

	ix.songs[song.Name] = song
	ix.order = append(ix.order, song.Name)
	ix.tokens[song.Name] = tokens
	for _, t := range tokens {
		ix.postings[t.Hash] = append(ix.postings[t.Hash], t)
	}
	ix.count += len(tokens)
	return true
}

// AddSong indexes hashes under a new song named name and hands the resulting
// record to the exporter. It returns false without changes when the name is
// already indexed. An export error is returned but the song stays indexed.
func (ix *Index) AddSong(name string, duration float64, hashes []models.HashToken) (bool, error) {
	song := models.Song{Name: name, Duration: duration}
	tokens := make([]models.SongHashToken, len(hashes))
	for i, h := range hashes {
		tokens[i] = models.SongHashToken{SongName: name, Offset: h.Offset, Hash: h.Hash}
	}

	ix.mu.Lock()
	added := ix.insert(song, tokens)
	ix.mu.Unlock()

	if !added {
		ix.log.WithField("song", name).Debug("Song already indexed, skipping")
		return false, nil
	}
	ix.log.WithFields(logrus.Fields{"song": name, "hashes": len(tokens)}).Info("Indexed song")

	if ix.exporter == nil {
		return true, nil
	}
	if err := ix.exporter.Export(models.SongFileData{Song: song, Hashes: tokens}); err != nil {
		return true, errors.Wrapf(err, "export song %q", name)
	}
	return true, nil
}

// UploadHashes indexes a previously exported record without exporting it again.
// Tokens are stored under data.Song.Name regardless of their SongName field.
func (ix *Index) UploadHashes(data models.SongFileData) bool {
	tokens := make([]models.SongHashToken, len(data.Hashes))
	for i, t := range data.Hashes {
		t.SongName = data.Song.Name
		tokens[i] = t
	}

	ix.mu.Lock()
	added := ix.insert(data.Song, tokens)
	ix.mu.Unlock()

	if added {
		ix.log.WithFields(logrus.Fields{"song": data.Song.Name, "hashes": len(tokens)}).Info("Uploaded song hashes")
	}
	return added
}

// GetSongs returns the indexed songs in insertion order.
func (ix *Index) GetSongs() []models.Song {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	songs := make([]models.Song, len(ix.order))
	for i, name := range ix.order {
		songs[i] = ix.songs[name]
	}
	return songs
}

// Contains reports whether a song named name is indexed.
func (ix *Index) Contains(name string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	_, ok := ix.songs[name]
	return ok
}

// Export returns the record of an indexed song.
func (ix *Index) Export(name string) (models.SongFileData, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	song, ok := ix.songs[name]
	if !ok {
		return models.SongFileData{}, false
	}
	hashes := make([]models.SongHashToken, len(ix.tokens[name]))
	copy(hashes, ix.tokens[name])
	return models.SongFileData{Song: song, Hashes: hashes}, true
}

func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return Stats{Songs: len(ix.songs), Hashes: len(ix.postings), Postings: ix.count}
}

// GetSongFor returns up to MaxResults songs whose hashes align best with the
// sample, strongest first. Songs with equal vote counts keep the order in which
// the sample first hit them.
func (ix *Index) GetSongFor(sample []models.HashToken) ([]models.MatchingSong, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.songs) == 0 {
		return nil, ErrEmptyIndex
	}

	var discovered []string
	points := make(map[string][]models.MatchingPoint)
	for _, token := range sample {
		for _, hit := range ix.postings[token.Hash] {
			if _, seen := points[hit.SongName]; !seen {
				discovered = append(discovered, hit.SongName)
			}
			points[hit.SongName] = append(points[hit.SongName], models.MatchingPoint{
				SongOffset:   hit.Offset,
				SampleOffset: token.Offset,
			})
		}
	}

	if len(discovered) == 0 {
		return nil, ErrNoMatch
	}

	matches := make([]models.MatchingSong, len(discovered))
	for i, name := range discovered {
		matches[i] = models.MatchingSong{
			Song:           ix.songs[name],
			MatchingPoints: points[name],
			Histogram:      histogram(points[name]),
		}
	}

	if len(matches) > 1 {
		sort.SliceStable(matches, func(a, b int) bool {
			return matches[a].Histogram.MaxCount > matches[b].Histogram.MaxCount
		})
		if len(matches) > MaxResults {
			matches = matches[:MaxResults]
		}
	}

	ix.log.WithFields(logrus.Fields{
		"sample_hashes": len(sample),
		"candidates":    len(discovered),
	}).Debug("Matched sample")

	return matches, nil
}
