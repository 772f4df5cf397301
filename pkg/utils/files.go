package utils

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// AudioExtensions are the file types accepted when scanning a directory.
var AudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".opus": true,
	".webm": true,
}

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// MoveFile moves or renames a file
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return errors.Wrapf(err, "move file from %s to %s", src, dst)
	}
	return nil
}

// SongName derives a song name from a file path: the base name without extension.
func SongName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func IsAudioFile(path string) bool {
	return AudioExtensions[strings.ToLower(filepath.Ext(path))]
}

// ListAudioFiles returns the audio files directly inside dir, sorted by name.
func ListAudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsAudioFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
