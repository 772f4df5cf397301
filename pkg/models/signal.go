package models

// FreqMagPair is one FFT bin: its centre frequency in Hz and its magnitude.
type FreqMagPair struct {
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Magnitude float64 `json:"magnitude" yaml:"magnitude"`
}

// SpectrumData is the spectrum of a single analysis window.
// MaxPair is the first bin with the largest magnitude. MaxImportantIndex is the
// highest bin whose magnitude exceeds the magnitude threshold (0 if none does).
type SpectrumData struct {
	MaxPair           FreqMagPair   `json:"maxPair" yaml:"maxPair"`
	FreqMagPairs      []FreqMagPair `json:"freqMagPairs" yaml:"freqMagPairs"`
	MaxImportantIndex int           `json:"maxImportantIndex" yaml:"maxImportantIndex"`
}

// SpectrogramData is a time-major grid of window spectra, all truncated to the
// same number of bins.
type SpectrogramData struct {
	MaxMag          float64         `json:"maxMag" yaml:"maxMag"`
	WindowSpectrums [][]FreqMagPair `json:"windowSpectrums" yaml:"windowSpectrums"`
	MaxFreq         float64         `json:"maxFreq" yaml:"maxFreq"`
}

// SpectrogramPoint is a landmark candidate on the constellation map.
// Present is false for the placeholder of an empty grid cell; such points are
// never hashed.
type SpectrogramPoint struct {
	Point   FreqMagPair `json:"point" yaml:"point"`
	Time    Millis      `json:"time" yaml:"time"`
	Present bool        `json:"present" yaml:"present"`
}

// HashPair is an anchor point and one of its targets.
type HashPair struct {
	First  SpectrogramPoint
	Second SpectrogramPoint
}

// HashToken is one landmark hash anchored at the anchor point's time.
type HashToken struct {
	Offset Millis `json:"offset" yaml:"offset"`
	Hash   string `json:"hash" yaml:"hash"`
}
