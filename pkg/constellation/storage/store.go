// Package storage persists fingerprinted songs so an index can be rebuilt on
// start, and writes the per-song export files.
package storage

import (
	"github.com/pkg/errors"

	"github.com/himanishpuri/constellation/pkg/models"
)

// Backends accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Store keeps song records. SaveSong is idempotent by song name and reports
// whether the record was new. LoadAll returns records in insertion order.
type Store interface {
	SaveSong(data models.SongFileData) (bool, error)
	LoadAll() ([]models.SongFileData, error)
	Close() error
}

// Identifier is implemented by stores that assign each saved song a stable ID.
type Identifier interface {
	SongUID(name string) (string, error)
}
