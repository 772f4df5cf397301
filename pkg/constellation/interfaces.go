package constellation

import (
	"context"

	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/index"
	"github.com/himanishpuri/constellation/pkg/models"
)

type Service interface {
	AddSong(name string, duration float64, hashes []models.HashToken) (bool, error)
	AddSongFile(ctx context.Context, path, name string) (AddResult, error)
	UploadHashes(data models.SongFileData) (bool, error)
	GetSongs() []models.Song
	GetSongFor(sample []models.HashToken) ([]models.MatchingSong, error)
	MatchFile(ctx context.Context, path string) ([]models.MatchingSong, error)
	MatchSignal(signal *audio.Signal) ([]models.MatchingSong, error)
	Fingerprint(signal *audio.Signal) ([]models.HashToken, error)
	Export(name string) (models.SongFileData, bool)
	SongUID(name string) (string, bool)
	Stats() index.Stats
	Params() fingerprint.Params
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
