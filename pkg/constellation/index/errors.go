package index

import "github.com/pkg/errors"

var (
	// ErrEmptyIndex is returned by GetSongFor when no song has been indexed.
	ErrEmptyIndex = errors.New("no song found: index is empty")

	// ErrNoMatch is returned by GetSongFor when no sample hash hits the index.
	ErrNoMatch = errors.New("no song found")
)
