//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/constellation/pkg/models"
)

const DefaultDBFile = "constellation.sqlite3"

type SongRecord struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	UID       string  `gorm:"type:varchar(36);uniqueIndex"`
	Name      string  `gorm:"uniqueIndex"`
	Duration  float64 // seconds
	CreatedAt time.Time
}

func (SongRecord) TableName() string { return "songs" }

type HashRecord struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	SongID uint   `gorm:"index:idx_song_seq,priority:1"`
	Seq    int    `gorm:"index:idx_song_seq,priority:2"`
	Hash   string `gorm:"index:idx_hash"`
	Offset string
}

func (HashRecord) TableName() string { return "hash_tokens" }

// SQLite stores songs and their hash tokens in a SQLite file through gorm.
type SQLite struct {
	DB *gorm.DB
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating db dir")
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite db")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "getting sql.DB from gorm")
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&SongRecord{}, &HashRecord{}); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "auto migrate")
	}

	return &SQLite{DB: db, db: sqlDB}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) SaveSong(data models.SongFileData) (bool, error) {
	added := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&SongRecord{}).Where("name = ?", data.Song.Name).Count(&count).Error; err != nil {
			return errors.Wrap(err, "querying existing song")
		}
		if count > 0 {
			return nil
		}

		song := SongRecord{
			UID:      uuid.NewString(),
			Name:     data.Song.Name,
			Duration: data.Song.Duration,
		}
		if err := tx.Create(&song).Error; err != nil {
			return errors.Wrap(err, "creating song")
		}

		if len(data.Hashes) > 0 {
			rows := make([]HashRecord, len(data.Hashes))
			for i, h := range data.Hashes {
				rows[i] = HashRecord{SongID: song.ID, Seq: i, Hash: h.Hash, Offset: h.Offset.String()}
			}
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return errors.Wrap(err, "batch insert hash tokens")
			}
		}
		added = true
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "save song %q", data.Song.Name)
	}
	return added, nil
}

func (s *SQLite) LoadAll() ([]models.SongFileData, error) {
	var songs []SongRecord
	if err := s.DB.Order("id").Find(&songs).Error; err != nil {
		return nil, errors.Wrap(err, "querying songs")
	}

	var rows []HashRecord
	if err := s.DB.Order("song_id, seq").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying hash tokens")
	}

	bySong := make(map[uint][]HashRecord, len(songs))
	for _, r := range rows {
		bySong[r.SongID] = append(bySong[r.SongID], r)
	}

	out := make([]models.SongFileData, 0, len(songs))
	for _, song := range songs {
		hashes := make([]models.SongHashToken, 0, len(bySong[song.ID]))
		for _, r := range bySong[song.ID] {
			offset, err := models.ParseMillis(r.Offset)
			if err != nil {
				return nil, errors.Wrapf(err, "song %q", song.Name)
			}
			hashes = append(hashes, models.SongHashToken{SongName: song.Name, Offset: offset, Hash: r.Hash})
		}
		out = append(out, models.SongFileData{
			Song:   models.Song{Name: song.Name, Duration: song.Duration},
			Hashes: hashes,
		})
	}
	return out, nil
}

// SongUID returns the stable identifier assigned to a song when it was saved.
func (s *SQLite) SongUID(name string) (string, error) {
	var song SongRecord
	if err := s.DB.Where("name = ?", name).First(&song).Error; err != nil {
		return "", errors.Wrapf(err, "song %q", name)
	}
	return song.UID, nil
}
