package fingerprint

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/constellation/pkg/models"
)

// windowCount returns how many STFT windows fit in n samples: floor(n/hop) - 1.
func windowCount(n, hop int) int {
	return n/hop - 1
}

// frame returns window i of amplitudes, zero-padded to windowSize so that every
// window produces the same number of bins.
func frame(amplitudes []float64, i, windowSize, hopSize int) []float64 {
	start := i * hopSize
	end := start + min(len(amplitudes)-start, windowSize)
	return zeroPad(amplitudes[start:end], windowSize)
}

// CalculateSpectrogram slides the analysis window over amplitudes and truncates
// every window's spectrum to the highest bin that was important in any window.
func (p *Processor) CalculateSpectrogram(amplitudes []float64) (models.SpectrogramData, error) {
	windows := windowCount(len(amplitudes), p.params.STFTHopSize)
	if windows < 1 {
		return models.SpectrogramData{}, errors.Wrapf(ErrInvalidInput,
			"%d samples, hop %d", len(amplitudes), p.params.STFTHopSize)
	}

	spectra := make([]models.SpectrumData, windows)
	compute := func(i int) {
		spectra[i] = p.CalculateSpectrum(frame(amplitudes, i, p.params.STFTWindowSize, p.params.STFTHopSize))
	}

	if p.params.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(p.params.Workers)
		for i := 0; i < windows; i++ {
			g.Go(func() error {
				compute(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := 0; i < windows; i++ {
			compute(i)
		}
	}

	maxMag := 0.0
	maxImportantIndex := 0
	for _, s := range spectra {
		if s.MaxPair.Magnitude > maxMag {
			maxMag = s.MaxPair.Magnitude
		}
		if s.MaxImportantIndex > maxImportantIndex {
			maxImportantIndex = s.MaxImportantIndex
		}
	}

	rows := make([][]models.FreqMagPair, windows)
	for i, s := range spectra {
		rows[i] = s.FreqMagPairs[:maxImportantIndex+1]
	}

	p.log.WithFields(logrus.Fields{
		"windows": windows,
		"bins":    maxImportantIndex + 1,
	}).Debug("Computed spectrogram")

	return models.SpectrogramData{
		MaxMag:          maxMag,
		WindowSpectrums: rows,
		MaxFreq:         rows[0][maxImportantIndex].Frequency,
	}, nil
}
