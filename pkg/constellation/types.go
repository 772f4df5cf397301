package constellation

import "github.com/himanishpuri/constellation/pkg/models"

// AddResult describes a song ingested from an audio file.
type AddResult struct {
	Song   models.Song `json:"song"`
	Hashes int         `json:"hashes"`
	Added  bool        `json:"added"` // false when the name was already indexed
}

// MatchResult is a flattened view of a ranked candidate.
type MatchResult struct {
	Song       string  `json:"song"`
	Duration   float64 `json:"duration"`
	Score      int     `json:"score"`      // votes for the best alignment
	Offset     string  `json:"offset"`     // exact alignment in ms
	OffsetMs   float64 `json:"offset_ms"`  // Offset rounded for display
	Matches    int     `json:"matches"`    // all hash collisions with this song
	Confidence float64 `json:"confidence"` // Score as a percentage of sample hashes
}

// Summarize flattens ranked candidates for display. sampleHashes is the number
// of hashes in the query.
func Summarize(matches []models.MatchingSong, sampleHashes int) []MatchResult {
	out := make([]MatchResult, len(matches))
	for i, m := range matches {
		confidence := 0.0
		if sampleHashes > 0 {
			confidence = min(float64(m.Histogram.MaxCount)/float64(sampleHashes)*100, 100)
		}
		out[i] = MatchResult{
			Song:       m.Song.Name,
			Duration:   m.Song.Duration,
			Score:      m.Histogram.MaxCount,
			Offset:     m.Histogram.MaxValue.String(),
			OffsetMs:   m.Histogram.MaxValue.Float64(),
			Matches:    len(m.MatchingPoints),
			Confidence: confidence,
		}
	}
	return out
}
