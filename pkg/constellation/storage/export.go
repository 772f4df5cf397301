package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/himanishpuri/constellation/pkg/models"
	"github.com/himanishpuri/constellation/pkg/utils"
)

// FileExporter writes every exported song to <Dir>/<name>.json.
type FileExporter struct {
	Dir string
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// FileName returns the export file name for a song.
func FileName(song string) string {
	return fileNameReplacer.Replace(song) + ".json"
}

func (e FileExporter) Export(data models.SongFileData) error {
	if err := utils.MakeDir(e.Dir); err != nil {
		return errors.Wrapf(err, "create export dir %s", e.Dir)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "encode song %q", data.Song.Name)
	}

	path := filepath.Join(e.Dir, FileName(data.Song.Name))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// ReadSongFile reads a record written by FileExporter.
func ReadSongFile(path string) (models.SongFileData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.SongFileData{}, errors.Wrapf(err, "read %s", path)
	}

	var data models.SongFileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.SongFileData{}, errors.Wrapf(err, "decode %s", path)
	}
	if data.Song.Name == "" {
		return models.SongFileData{}, errors.Errorf("%s: song name is empty", path)
	}
	return data, nil
}
