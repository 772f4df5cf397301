package fingerprint

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidParams is returned by NewProcessor for unusable tuning parameters.
	ErrInvalidParams = errors.New("invalid fingerprint parameters")

	// ErrInvalidInput is returned when a signal is too short to yield one analysis window.
	ErrInvalidInput = errors.New("signal shorter than one analysis window")
)

// FFT backends accepted in Params.FFTBackend.
const (
	BackendGoDSP = "go-dsp"
	BackendGonum = "gonum"
)

// Params are the tuning parameters of the fingerprint pipeline. NewProcessor
// uses them as given; start from DefaultParams to change a few.
type Params struct {
	// SampleRate of the input signal in Hz.
	SampleRate int `json:"sample_rate" yaml:"sample_rate" mapstructure:"sample_rate"`
	// STFTWindowSize is the number of samples per analysis window.
	STFTWindowSize int `json:"stft_window_size" yaml:"stft_window_size" mapstructure:"stft_window_size"`
	// STFTHopSize is the number of samples between window starts.
	STFTHopSize int `json:"stft_hop_size" yaml:"stft_hop_size" mapstructure:"stft_hop_size"`
	// FanOutFactor bounds the number of targets paired with an anchor.
	FanOutFactor int `json:"fan_out_factor" yaml:"fan_out_factor" mapstructure:"fan_out_factor"`
	// FanOutStepFactor is the number of time groups between consecutive targets.
	FanOutStepFactor int `json:"fan_out_step_factor" yaml:"fan_out_step_factor" mapstructure:"fan_out_step_factor"`
	// TargetZoneHeight is the number of frequency bands in a target zone.
	TargetZoneHeight int `json:"target_zone_height" yaml:"target_zone_height" mapstructure:"target_zone_height"`
	// MagnitudeThreshold marks bins as important and landmarks as usable.
	MagnitudeThreshold float64 `json:"magnitude_threshold" yaml:"magnitude_threshold" mapstructure:"magnitude_threshold"`
	// ConstellationYGroupAmount is the number of frequency bands on the map.
	ConstellationYGroupAmount int `json:"constellation_y_group_amount" yaml:"constellation_y_group_amount" mapstructure:"constellation_y_group_amount"`
	// ConstellationXGroupSize is the number of windows per time group.
	ConstellationXGroupSize int `json:"constellation_x_group_size" yaml:"constellation_x_group_size" mapstructure:"constellation_x_group_size"`

	// Workers computes spectrogram windows in parallel when > 1.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
	// FFTBackend selects the FFT implementation: "go-dsp" (also the empty value) or "gonum".
	FFTBackend string `json:"fft_backend" yaml:"fft_backend" mapstructure:"fft_backend"`
}

// Validate reports the first unusable parameter, wrapped in ErrInvalidParams.
func (p Params) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"sample_rate", p.SampleRate},
		{"stft_window_size", p.STFTWindowSize},
		{"stft_hop_size", p.STFTHopSize},
		{"fan_out_factor", p.FanOutFactor},
		{"fan_out_step_factor", p.FanOutStepFactor},
		{"target_zone_height", p.TargetZoneHeight},
		{"constellation_y_group_amount", p.ConstellationYGroupAmount},
		{"constellation_x_group_size", p.ConstellationXGroupSize},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return errors.Wrapf(ErrInvalidParams, "%s must be positive, got %d", f.name, f.value)
		}
	}
	if p.MagnitudeThreshold < 0 {
		return errors.Wrapf(ErrInvalidParams, "magnitude_threshold must not be negative, got %g", p.MagnitudeThreshold)
	}
	if p.Workers < 0 {
		return errors.Wrapf(ErrInvalidParams, "workers must not be negative, got %d", p.Workers)
	}
	switch p.FFTBackend {
	case "", BackendGoDSP, BackendGonum:
	default:
		return errors.Wrapf(ErrInvalidParams, "unknown fft backend %q", p.FFTBackend)
	}
	return nil
}

// DefaultParams returns the reference tuning: 44.1 kHz input, 2048-sample
// windows with 50% overlap, 20 frequency bands and a threshold of 2048/50.
func DefaultParams() Params {
	return Params{
		SampleRate:                44100,
		STFTWindowSize:            2048,
		STFTHopSize:               1024,
		FanOutFactor:              10,
		FanOutStepFactor:          2,
		TargetZoneHeight:          5,
		MagnitudeThreshold:        2048.0 / 50,
		ConstellationYGroupAmount: 20,
		ConstellationXGroupSize:   1,
		FFTBackend:                BackendGoDSP,
	}
}
