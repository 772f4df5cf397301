package fingerprint

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/himanishpuri/constellation/pkg/models"
)

// nextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// zeroPad copies amplitudes into a buffer of length size, padding with zeros or
// dropping samples from the end.
func zeroPad(amplitudes []float64, size int) []float64 {
	frame := make([]float64, size)
	copy(frame, amplitudes)
	return frame
}

// coefficients returns at least the first len(frame)/2 complex FFT coefficients.
func coefficients(backend string, frame []float64) []complex128 {
	if backend == BackendGonum {
		return fourier.NewFFT(len(frame)).Coefficients(nil, frame)
	}
	return fft.FFTReal(frame)
}

// CalculateSpectrum zero-pads amplitudes to a power of two and returns the
// magnitude of each positive-frequency bin.
func (p *Processor) CalculateSpectrum(amplitudes []float64) models.SpectrumData {
	n := nextPowerOfTwo(len(amplitudes))
	spectrum := coefficients(p.params.FFTBackend, zeroPad(amplitudes, n))

	bins := n / 2
	if bins == 0 {
		bins = 1
	}

	data := models.SpectrumData{FreqMagPairs: make([]models.FreqMagPair, bins)}
	for i := 0; i < bins; i++ {
		mag := cmplx.Abs(spectrum[i])
		if math.IsNaN(mag) || mag < 0 {
			mag = 0
		}
		pair := models.FreqMagPair{
			Frequency: float64(i) * float64(p.params.SampleRate) / float64(n),
			Magnitude: mag,
		}
		if i == 0 || mag > data.MaxPair.Magnitude {
			data.MaxPair = pair
		}
		if mag > p.params.MagnitudeThreshold {
			data.MaxImportantIndex = i
		}
		data.FreqMagPairs[i] = pair
	}

	return data
}
