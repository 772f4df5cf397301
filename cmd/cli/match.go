//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/index"
)

func newMatchCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "match <file>",
		Short: "Identify a recording against the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			signal, err := audio.Load(ctx, args[0], svc.Params().SampleRate, a.cfg.TempDir)
			if err != nil {
				return errors.Wrap(err, "audio loading failed")
			}
			sample, err := svc.Fingerprint(signal)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			matches, err := svc.GetSongFor(sample)
			if errors.Is(err, index.ErrNoMatch) {
				fmt.Fprintln(out, "No match found")
				return nil
			}
			if err != nil {
				return err
			}

			results := constellation.Summarize(matches, len(sample))
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			fmt.Fprintf(out, "Query: %s hashes\n\n", humanize.Comma(int64(len(sample))))
			for i, r := range results {
				fmt.Fprintf(out, "%d. %s\n", i+1, r.Song)
				fmt.Fprintf(out, "   Score: %d | Confidence: %.1f%% | Offset: %.0fms | Collisions: %s\n",
					r.Score, r.Confidence, r.OffsetMs, humanize.Comma(int64(r.Matches)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}
