package storage

import (
	"sync"

	"github.com/himanishpuri/constellation/pkg/models"
)

// Memory is a Store that lives only as long as the process.
type Memory struct {
	mu      sync.Mutex
	byName  map[string]int
	records []models.SongFileData
}

func NewMemory() *Memory {
	return &Memory{byName: make(map[string]int)}
}

func (m *Memory) SaveSong(data models.SongFileData) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[data.Song.Name]; ok {
		return false, nil
	}
	hashes := make([]models.SongHashToken, len(data.Hashes))
	copy(hashes, data.Hashes)

	m.byName[data.Song.Name] = len(m.records)
	m.records = append(m.records, models.SongFileData{Song: data.Song, Hashes: hashes})
	return true, nil
}

func (m *Memory) LoadAll() ([]models.SongFileData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.SongFileData, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *Memory) Close() error { return nil }
