//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/index"
	"github.com/himanishpuri/constellation/pkg/models"
	"github.com/himanishpuri/constellation/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service constellation.Service
	config  *ServerConfig
	log     logrus.FieldLogger
}

type ServerConfig struct {
	Port           int
	Storage        string
	DBPath         string
	TempDir        string
	AllowedOrigins []string
}

func NewServer(service constellation.Service, config *ServerConfig, log logrus.FieldLogger) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     log,
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, index.ErrEmptyIndex), errors.Is(err, index.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, fingerprint.ErrInvalidInput),
		errors.Is(err, constellation.ErrSampleRateMismatch),
		errors.Is(err, audio.ErrNotWav):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, action string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Errorf("Failed to %s: %v", action, err)
	} else {
		s.log.Debugf("Failed to %s: %v", action, err)
	}
	s.respondError(w, code, err.Error())
}

// saveUpload copies the multipart file into the temp dir. The file extension is
// kept so WAV uploads skip the ffmpeg conversion.
func (s *Server) saveUpload(file multipart.File, header *multipart.FileHeader, prefix string) (string, error) {
	out, err := os.CreateTemp(s.config.TempDir, prefix+"_*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(out.Name())
		return "", errors.Wrap(err, "save uploaded file")
	}
	return out.Name(), nil
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "Constellation API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":      "GET /health",
			"metrics":     "GET /api/health/metrics",
			"songs":       "GET /api/songs",
			"addSongFile": "POST /api/songs",
			"getSong":     "GET /api/songs/{name}",
			"importSong":  "POST /api/songs/import",
			"matchFile":   "POST /api/match",
			"matchHashes": "POST /api/match/hashes",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats := s.service.Stats()
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		Storage:      s.config.Storage,
		DatabasePath: s.config.DBPath,
		SongCount:    stats.Songs,
		HashCount:    stats.Hashes,
		PostingCount: stats.Postings,
		SampleRate:   s.service.Params().SampleRate,
	})
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs := s.service.GetSongs()
	s.respondJSON(w, http.StatusOK, ListSongsResponse{
		Songs: songs,
		Count: len(songs),
	})
}

// handleGetSong handles GET /api/songs/{name} and returns the export record.
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request, name string) {
	data, ok := s.service.Export(name)
	if !ok {
		s.respondError(w, http.StatusNotFound, "song "+name+" not found")
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

// handleAddSongFile handles POST /api/songs with an "audio" file and an
// optional "name" field.
func (s *Server) handleAddSongFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.log.Warnf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = utils.SongName(header.Filename)
	}

	path, err := s.saveUpload(file, header, "upload")
	if err != nil {
		s.log.Errorf("Failed to store upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.Remove(path)

	res, err := s.service.AddSongFile(ctx, path, name)
	if err != nil {
		s.respondServiceError(w, "add song", err)
		return
	}

	status, message := http.StatusCreated, "Song added successfully"
	if !res.Added {
		status, message = http.StatusOK, "Song already indexed"
	}
	s.respondJSON(w, status, AddSongResponse{
		Message: message,
		Song:    res.Song,
		Hashes:  res.Hashes,
		Added:   res.Added,
	})
}

// handleImportSong handles POST /api/songs/import with a JSON export record.
func (s *Server) handleImportSong(w http.ResponseWriter, r *http.Request) {
	var data models.SongFileData
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&data); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if data.Song.Name == "" {
		s.respondError(w, http.StatusBadRequest, "song.name is required")
		return
	}

	added, err := s.service.UploadHashes(data)
	if err != nil {
		s.respondServiceError(w, "import song", err)
		return
	}

	status, message := http.StatusCreated, "Song imported successfully"
	if !added {
		status, message = http.StatusOK, "Song already indexed"
	}
	s.respondJSON(w, status, AddSongResponse{
		Message: message,
		Song:    data.Song,
		Hashes:  len(data.Hashes),
		Added:   added,
	})
}

func (s *Server) respondMatches(w http.ResponseWriter, sample []models.HashToken) {
	matches, err := s.service.GetSongFor(sample)
	if err != nil {
		s.respondServiceError(w, "match", err)
		return
	}

	results := constellation.Summarize(matches, len(sample))
	s.log.WithField("matches", len(results)).Infof("Match complete")
	s.respondJSON(w, http.StatusOK, MatchResponse{
		Matches:      results,
		Count:        len(results),
		SampleHashes: len(sample),
	})
}

// handleMatchFile handles POST /api/match (multipart file upload)
func (s *Server) handleMatchFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(maxQueryBytes); err != nil {
		s.log.Warnf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	path, err := s.saveUpload(file, header, "query")
	if err != nil {
		s.log.Errorf("Failed to store upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.Remove(path)

	s.log.Infof("Matching uploaded file: %s", header.Filename)
	signal, err := audio.Load(ctx, path, s.service.Params().SampleRate, s.config.TempDir)
	if err != nil {
		s.respondServiceError(w, "load audio", err)
		return
	}
	sample, err := s.service.Fingerprint(signal)
	if err != nil {
		s.respondServiceError(w, "fingerprint", err)
		return
	}
	s.respondMatches(w, sample)
}

// handleMatchHashes handles POST /api/match/hashes with tokens computed by a client.
func (s *Server) handleMatchHashes(w http.ResponseWriter, r *http.Request) {
	var req MatchHashesRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxQueryBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Hashes) >= HashWarningThreshold {
		s.log.Warnf("Large hash batch received: %d hashes", len(req.Hashes))
	}
	s.respondMatches(w, req.Hashes)
}

// handleSongs routes requests to /api/songs
func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSongFile(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSong routes requests to /api/songs/{name}
func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/songs/")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "Song name required")
		return
	}
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleGetSong(w, r, name)
}

// postOnly rejects every method but POST.
func (s *Server) postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
