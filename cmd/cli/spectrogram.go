//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"strings"
	"time"

	"github.com/eligwz/spectrogram"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/utils"
)

func newSpectrogramCmd(a *app) *cobra.Command {
	var (
		output        string
		width, height int
		log10         bool
	)

	cmd := &cobra.Command{
		Use:   "spectrogram <file>",
		Short: "Render the spectrogram of an audio file as a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width <= 0 || height <= 0 {
				return errors.Errorf("image size must be positive, got %dx%d", width, height)
			}
			if err := utils.MakeDir(a.cfg.TempDir); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			path := args[0]
			signal, err := audio.Load(ctx, path, a.cfg.Fingerprint.SampleRate, a.cfg.TempDir)
			if err != nil {
				return errors.Wrap(err, "audio loading failed")
			}
			samples := fingerprint.MixDown(signal.Channels)
			if len(samples) == 0 {
				return errors.Wrapf(fingerprint.ErrInvalidInput, "%s has no samples", path)
			}

			img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
			draw.Draw(img, img.Bounds(), image.NewUniform(spectrogram.ParseColor("000000")), image.Point{}, draw.Src)
			// Hamming window, FFT, magnitude.
			spectrogram.Drawfft(img, samples, uint32(signal.SampleRate), uint32(height), false, false, true, log10)

			if output == "" {
				output = strings.TrimSuffix(path, ".wav") + ".png"
				if output == path {
					output = path + ".png"
				}
			}
			if err := spectrogram.SavePng(img, output); err != nil {
				return errors.Wrapf(err, "save %s", output)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG path (default <file>.png)")
	cmd.Flags().IntVar(&width, "width", 2048, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 512, "image height and number of frequency bins")
	cmd.Flags().BoolVar(&log10, "log", false, "logarithmic magnitude scale")
	return cmd
}
