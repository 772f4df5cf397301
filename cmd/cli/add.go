//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/utils"
)

const addTimeout = 5 * time.Minute

// songName prefers the file's "Artist - Title" tags. An empty result lets the
// service fall back to the file name.
func (a *app) songName(ctx context.Context, path string) string {
	meta, err := audio.ReadMetadata(ctx, path)
	if err != nil {
		a.log.Debugf("No metadata for %s: %v", path, err)
		return ""
	}
	return meta.SongName()
}

func newAddCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Fingerprint an audio file and add it to the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), addTimeout)
			defer cancel()

			path := args[0]
			if name == "" {
				name = a.songName(ctx, path)
			}

			res, err := svc.AddSongFile(ctx, path, name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Added {
				fmt.Fprintf(out, "%s is already indexed\n", res.Song.Name)
				return nil
			}
			fmt.Fprintf(out, "Added %s (%s, %s hashes)\n",
				res.Song.Name, formatDuration(res.Song.Duration), humanize.Comma(int64(res.Hashes)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "song name (default: tags, then file name)")
	return cmd
}

func newAddDirCmd(a *app) *cobra.Command {
	var (
		workers  int
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "add-dir <dir>",
		Short: "Add every audio file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := utils.ListAudioFiles(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.Errorf("no audio files under %s", args[0])
			}

			svc, err := a.service()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = max(runtime.NumCPU()-1, 1)
			}

			barOut := cmd.ErrOrStderr()
			if !progress {
				barOut = io.Discard
			}
			p := mpb.NewWithContext(cmd.Context(), mpb.WithOutput(barOut), mpb.WithWidth(64))
			bar := p.AddBar(int64(len(files)),
				mpb.PrependDecorators(
					decor.Name("Indexing: "),
					decor.CountersNoUnit("%d / %d"),
				),
				mpb.AppendDecorators(
					decor.Percentage(),
					decor.AverageETA(decor.ET_STYLE_GO),
				),
			)

			var added, skipped, failed atomic.Int64
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(workers)
			for _, path := range files {
				g.Go(func() error {
					defer bar.Increment()

					fileCtx, cancel := context.WithTimeout(ctx, addTimeout)
					defer cancel()

					res, err := svc.AddSongFile(fileCtx, path, a.songName(fileCtx, path))
					switch {
					case err != nil:
						failed.Add(1)
						a.log.WithError(err).Warnf("Skipping %s", path)
					case res.Added:
						added.Add(1)
					default:
						skipped.Add(1)
					}
					return ctx.Err()
				})
			}
			waitErr := g.Wait()
			if waitErr != nil {
				bar.Abort(false)
			}
			p.Wait()
			if waitErr != nil {
				return waitErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s, already indexed %s, failed %s\n",
				humanize.Comma(added.Load()), humanize.Comma(skipped.Load()), humanize.Comma(failed.Load()))
			if failed.Load() > 0 && added.Load() == 0 && skipped.Load() == 0 {
				return errors.New("no file could be added")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel files (default: CPUs - 1)")
	cmd.Flags().BoolVar(&progress, "progress", true, "show a progress bar")
	return cmd
}

// formatDuration renders seconds as m:ss.
func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
