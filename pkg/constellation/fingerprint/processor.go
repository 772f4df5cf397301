package fingerprint

import (
	"github.com/sirupsen/logrus"

	"github.com/himanishpuri/constellation/pkg/logger"
	"github.com/himanishpuri/constellation/pkg/models"
)

// Processor runs the landmark fingerprint pipeline for one set of Params.
// A Processor is immutable and safe for concurrent use.
type Processor struct {
	params Params
	log    logrus.FieldLogger
}

type Option func(*Processor)

// WithLogger sets the logger used for per-stage debug output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

func NewProcessor(params Params, opts ...Option) (*Processor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{params: params, log: logger.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Processor) Params() Params {
	return p.params
}

// MixDown sums channels sample by sample. The result has the length of the
// shortest channel.
func MixDown(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}

	n := len(channels[0])
	for _, ch := range channels[1:] {
		n = min(n, len(ch))
	}

	mixed := make([]float64, n)
	for _, ch := range channels {
		for i := 0; i < n; i++ {
			mixed[i] += ch[i]
		}
	}
	return mixed
}

// Fingerprint mixes channels down to mono and returns its landmark hashes.
func (p *Processor) Fingerprint(channels [][]float64) ([]models.HashToken, error) {
	samples := MixDown(channels)

	spectrogram, err := p.CalculateSpectrogram(samples)
	if err != nil {
		return nil, err
	}

	points := p.GetConstellationPoints(spectrogram)
	hashes := p.CalculateHashes(points)

	p.log.WithFields(logrus.Fields{
		"samples": len(samples),
		"windows": len(spectrogram.WindowSpectrums),
		"points":  len(points),
		"hashes":  len(hashes),
	}).Debug("Fingerprinted signal")

	return hashes, nil
}
