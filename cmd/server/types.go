//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"github.com/pkg/errors"

	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/models"
)

const (
	// MaxHashesHardLimit bounds POST /api/match/hashes (several minutes of audio).
	MaxHashesHardLimit = 50000

	// HashWarningThreshold triggers logging for large hash batches
	HashWarningThreshold = 5000

	maxUploadBytes = 100 << 20
	maxQueryBytes  = 50 << 20
)

// MatchHashesRequest is the request body for POST /api/match/hashes, as
// produced by the WASM generateFingerprint export.
type MatchHashesRequest struct {
	Hashes []models.HashToken `json:"hashes"`
}

func (r *MatchHashesRequest) Validate() error {
	if len(r.Hashes) == 0 {
		return errors.New("hashes cannot be empty")
	}
	if len(r.Hashes) > MaxHashesHardLimit {
		return errors.Errorf("too many hashes: %d (maximum: %d)", len(r.Hashes), MaxHashesHardLimit)
	}
	for i, h := range r.Hashes {
		if h.Hash == "" {
			return errors.Errorf("hash %d is empty", i)
		}
	}
	return nil
}

// MatchResponse is returned by both match endpoints.
type MatchResponse struct {
	Matches      []constellation.MatchResult `json:"matches"`
	Count        int                         `json:"count"`
	SampleHashes int                         `json:"sample_hashes"`
}

type AddSongResponse struct {
	Message string      `json:"message"`
	Song    models.Song `json:"song"`
	Hashes  int         `json:"hashes"`
	Added   bool        `json:"added"`
}

type ListSongsResponse struct {
	Songs []models.Song `json:"songs"`
	Count int           `json:"count"`
}

// MetricsResponse provides server health and index metrics
type MetricsResponse struct {
	Status       string `json:"status"`
	Storage      string `json:"storage"`
	DatabasePath string `json:"database_path"`
	SongCount    int    `json:"song_count"`
	HashCount    int    `json:"hash_count"`
	PostingCount int    `json:"posting_count"`
	SampleRate   int    `json:"sample_rate"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
