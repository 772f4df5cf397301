package models

// Song is an indexed reference recording. Names are unique within an index.
type Song struct {
	Name     string  `json:"name" yaml:"name"`
	Duration float64 `json:"duration" yaml:"duration"` // seconds
}

// SongHashToken is a HashToken stored under the song it was computed from.
type SongHashToken struct {
	SongName string `json:"songName" yaml:"songName"`
	Offset   Millis `json:"offset" yaml:"offset"`
	Hash     string `json:"hash" yaml:"hash"`
}

// SongFileData is the export/import record of one fingerprinted song.
type SongFileData struct {
	Song   Song            `json:"song" yaml:"song"`
	Hashes []SongHashToken `json:"hashes" yaml:"hashes"`
}

// MatchingPoint is one hash collision between a sample and an indexed song.
type MatchingPoint struct {
	SongOffset   Millis `json:"songOffset" yaml:"songOffset"`
	SampleOffset Millis `json:"sampleOffset" yaml:"sampleOffset"`
}

// Delta returns SongOffset - SampleOffset, the alignment this point votes for.
func (p MatchingPoint) Delta() Millis {
	return p.SongOffset.Sub(p.SampleOffset)
}

// Histogram counts matching points per alignment. ValueAmounts is keyed by
// Millis.String(); MaxValue is the first alignment that reached MaxCount.
type Histogram struct {
	MaxCount     int            `json:"maxCount" yaml:"maxCount"`
	MaxValue     Millis         `json:"maxValue" yaml:"maxValue"`
	ValueAmounts map[string]int `json:"valueAmounts" yaml:"valueAmounts"`
}

// MatchingSong is a ranked candidate returned by a query.
type MatchingSong struct {
	Song           Song            `json:"song" yaml:"song"`
	MatchingPoints []MatchingPoint `json:"matchingPoints" yaml:"matchingPoints"`
	Histogram      Histogram       `json:"histogram" yaml:"histogram"`
}
