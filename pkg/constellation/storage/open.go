//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Open returns the Store for backend. path is the SQLite file or the Badger
// directory and is ignored for the memory backend.
func Open(backend, path string, log logrus.FieldLogger) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		s, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendBadger:
		b, err := NewBadger(path, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", backend)
	}
}
