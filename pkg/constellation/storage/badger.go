//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"encoding/binary"
	"encoding/json"

	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/himanishpuri/constellation/pkg/models"
)

// Key layout:
//
//	name/<song name>  -> sequence number (8 bytes, big endian)
//	song/<sequence>   -> JSON SongFileData
//	meta/seq          -> last sequence number
var (
	namePrefix = []byte("name/")
	songPrefix = []byte("song/")
	seqKey     = []byte("meta/seq")
)

// Badger stores one JSON record per song in a Badger key-value directory.
type Badger struct {
	db *badger.DB
}

// NewBadger opens or creates the store in dir. Badger's own logging goes to log
// at warning level and above; a nil log silences it.
func NewBadger(dir string, log logrus.FieldLogger) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)
	if log != nil {
		opts = opts.WithLogger(log)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %s", dir)
	}
	return &Badger{db: db}, nil
}

func nameKey(name string) []byte {
	return append(append([]byte{}, namePrefix...), name...)
}

func songKey(seq uint64) []byte {
	key := make([]byte, len(songPrefix)+8)
	copy(key, songPrefix)
	binary.BigEndian.PutUint64(key[len(songPrefix):], seq)
	return key
}

func encodeSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func (b *Badger) SaveSong(data models.SongFileData) (bool, error) {
	value, err := json.Marshal(data)
	if err != nil {
		return false, errors.Wrapf(err, "encode song %q", data.Song.Name)
	}

	added := false
	err = b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(nameKey(data.Song.Name)); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		var seq uint64
		item, err := txn.Get(seqKey)
		switch {
		case err == nil:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			seq = binary.BigEndian.Uint64(raw)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		seq++

		if err := txn.Set(songKey(seq), value); err != nil {
			return err
		}
		if err := txn.Set(nameKey(data.Song.Name), encodeSeq(seq)); err != nil {
			return err
		}
		if err := txn.Set(seqKey, encodeSeq(seq)); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "save song %q", data.Song.Name)
	}
	return added, nil
}

func (b *Badger) LoadAll() ([]models.SongFileData, error) {
	var out []models.SongFileData
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(songPrefix); it.ValidForPrefix(songPrefix); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var data models.SongFileData
			if err := json.Unmarshal(raw, &data); err != nil {
				return errors.Wrapf(err, "decode record %x", it.Item().Key())
			}
			out = append(out, data)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "load songs")
	}
	return out, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}
