package constellation

import (
	"os"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/storage"
)

type Config struct {
	DBPath         string
	StorageBackend string
	Storage        storage.Store
	ExportDir      string
	TempDir        string
	Params         fingerprint.Params
	Logger         Logger
}

type Option func(*Config)

// WithDBPath sets the SQLite file or Badger directory.
func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithStorageBackend selects "sqlite", "badger" or "memory".
func WithStorageBackend(backend string) Option {
	return func(c *Config) {
		c.StorageBackend = backend
	}
}

// WithStorage uses an already opened store. The service closes it on Close.
func WithStorage(s storage.Store) Option {
	return func(c *Config) {
		c.Storage = s
	}
}

// WithExportDir writes <name>.json for every song added from audio.
func WithExportDir(dir string) Option {
	return func(c *Config) {
		c.ExportDir = dir
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithParams(params fingerprint.Params) Option {
	return func(c *Config) {
		c.Params = params
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:         storage.DefaultDBFile,
		StorageBackend: storage.BackendSQLite,
		TempDir:        os.TempDir(),
		Params:         fingerprint.DefaultParams(),
	}
}
