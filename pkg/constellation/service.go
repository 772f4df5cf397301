package constellation

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/index"
	"github.com/himanishpuri/constellation/pkg/constellation/storage"
	"github.com/himanishpuri/constellation/pkg/logger"
	"github.com/himanishpuri/constellation/pkg/models"
	"github.com/himanishpuri/constellation/pkg/utils"
)

// ErrSampleRateMismatch is returned for signals whose sample rate differs from
// the configured fingerprint sample rate.
var ErrSampleRateMismatch = errors.New("signal sample rate does not match fingerprint parameters")

// constellationService is the default implementation of the Service interface.
type constellationService struct {
	index     *index.Index
	processor *fingerprint.Processor
	store     storage.Store
	files     *storage.FileExporter
	log       Logger
	config    *Config
}

// NewService opens the configured store and rebuilds the in-memory index from it.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	// The pipeline logs structured fields when the logger supports them.
	fields, _ := cfg.Logger.(logrus.FieldLogger)

	processor, err := fingerprint.NewProcessor(cfg.Params, fingerprint.WithLogger(fields))
	if err != nil {
		return nil, err
	}

	store := cfg.Storage
	if store == nil {
		store, err = storage.Open(cfg.StorageBackend, cfg.DBPath, fields)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create storage")
		}
	}

	s := &constellationService{
		processor: processor,
		store:     store,
		log:       cfg.Logger,
		config:    cfg,
	}
	if cfg.ExportDir != "" {
		s.files = &storage.FileExporter{Dir: cfg.ExportDir}
	}
	s.index = index.New(index.WithExporter(index.ExporterFunc(s.persist)), index.WithLogger(fields))

	if err := s.replay(); err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// persist stores a newly indexed song and writes its export file.
func (s *constellationService) persist(data models.SongFileData) error {
	if _, err := s.store.SaveSong(data); err != nil {
		return err
	}
	if s.files != nil {
		return s.files.Export(data)
	}
	return nil
}

func (s *constellationService) replay() error {
	records, err := s.store.LoadAll()
	if err != nil {
		return errors.Wrap(err, "failed to load stored songs")
	}
	for _, r := range records {
		s.index.UploadHashes(r)
	}
	if len(records) > 0 {
		s.log.Infof("Loaded %d songs from storage", len(records))
	}
	return nil
}

func (s *constellationService) Params() fingerprint.Params {
	return s.processor.Params()
}

// AddSong indexes precomputed hashes. It returns false when name is already indexed.
func (s *constellationService) AddSong(name string, duration float64, hashes []models.HashToken) (bool, error) {
	return s.index.AddSong(name, duration, hashes)
}

// AddSongFile fingerprints an audio file and indexes it under name, or under
// the file's base name when name is empty.
func (s *constellationService) AddSongFile(ctx context.Context, path, name string) (AddResult, error) {
	if name == "" {
		name = utils.SongName(path)
	}
	s.log.Infof("Processing song: %s", name)

	signal, err := audio.Load(ctx, path, s.config.Params.SampleRate, s.config.TempDir)
	if err != nil {
		return AddResult{}, errors.Wrap(err, "audio loading failed")
	}

	hashes, err := s.Fingerprint(signal)
	if err != nil {
		return AddResult{}, errors.Wrapf(err, "fingerprint %s", path)
	}

	song := models.Song{Name: name, Duration: signal.Duration()}
	added, err := s.index.AddSong(song.Name, song.Duration, hashes)
	result := AddResult{Song: song, Hashes: len(hashes), Added: added}
	if err != nil {
		return result, err
	}

	if added {
		s.log.Infof("Added %s with %d hashes", name, len(hashes))
	} else {
		s.log.Warnf("Song %s already indexed, skipped", name)
	}
	return result, nil
}

// UploadHashes persists an exported record and then indexes it. The export file
// is not written again. A record that fails to persist is not indexed, so the
// call can be retried.
func (s *constellationService) UploadHashes(data models.SongFileData) (bool, error) {
	if s.index.Contains(data.Song.Name) {
		return false, nil
	}
	if _, err := s.store.SaveSong(data); err != nil {
		return false, errors.Wrapf(err, "persist song %q", data.Song.Name)
	}
	return s.index.UploadHashes(data), nil
}

func (s *constellationService) GetSongs() []models.Song {
	return s.index.GetSongs()
}

func (s *constellationService) GetSongFor(sample []models.HashToken) ([]models.MatchingSong, error) {
	return s.index.GetSongFor(sample)
}

func (s *constellationService) Fingerprint(signal *audio.Signal) ([]models.HashToken, error) {
	if signal == nil {
		return nil, errors.Wrap(fingerprint.ErrInvalidInput, "no signal")
	}
	if signal.SampleRate != s.config.Params.SampleRate {
		return nil, errors.Wrapf(ErrSampleRateMismatch, "got %d Hz, expected %d Hz",
			signal.SampleRate, s.config.Params.SampleRate)
	}
	return s.processor.Fingerprint(signal.Channels)
}

func (s *constellationService) MatchSignal(signal *audio.Signal) ([]models.MatchingSong, error) {
	hashes, err := s.Fingerprint(signal)
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Query has %d hashes", len(hashes))
	return s.index.GetSongFor(hashes)
}

// MatchFile loads an audio file at the configured sample rate and matches it.
func (s *constellationService) MatchFile(ctx context.Context, path string) ([]models.MatchingSong, error) {
	s.log.Infof("Matching audio: %s", path)

	signal, err := audio.Load(ctx, path, s.config.Params.SampleRate, s.config.TempDir)
	if err != nil {
		return nil, errors.Wrap(err, "audio loading failed")
	}
	return s.MatchSignal(signal)
}

func (s *constellationService) Export(name string) (models.SongFileData, bool) {
	return s.index.Export(name)
}

// SongUID returns the ID the store assigned to name. It reports false for
// unknown songs and for stores that do not assign IDs.
func (s *constellationService) SongUID(name string) (string, bool) {
	ids, ok := s.store.(storage.Identifier)
	if !ok {
		return "", false
	}
	uid, err := ids.SongUID(name)
	if err != nil {
		return "", false
	}
	return uid, true
}

func (s *constellationService) Stats() index.Stats {
	return s.index.Stats()
}

func (s *constellationService) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
