//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/constellation/internal/config"
	"github.com/himanishpuri/constellation/pkg/constellation/storage"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed songs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			songs := svc.GetSongs()
			if len(songs) == 0 {
				fmt.Fprintln(out, "No songs indexed")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tNAME\tDURATION\tID")
			for i, s := range songs {
				uid, ok := svc.SongUID(s.Name)
				if !ok {
					uid = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, s.Name, formatDuration(s.Duration), uid)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			stats := svc.Stats()
			fmt.Fprintf(out, "\n%s songs, %s hashes (%s distinct)\n",
				humanize.Comma(int64(stats.Songs)),
				humanize.Comma(int64(stats.Postings)),
				humanize.Comma(int64(stats.Hashes)))
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Print or save the hash record of an indexed song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			data, ok := svc.Export(args[0])
			if !ok {
				return errors.Errorf("song %q is not indexed", args[0])
			}

			var raw []byte
			switch format {
			case "json":
				raw, err = json.MarshalIndent(data, "", "  ")
				raw = append(raw, '\n')
			case "yaml", "yml":
				raw, err = yaml.Marshal(data)
			default:
				return errors.Errorf("unknown format %q (json or yaml)", format)
			}
			if err != nil {
				return errors.Wrap(err, "encode record")
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			}
			if err := os.WriteFile(output, raw, 0o644); err != nil {
				return errors.Wrapf(err, "write %s", output)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%s)\n", output, humanize.Bytes(uint64(len(raw))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>...",
		Short: "Add songs from exported JSON records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range args {
				data, err := storage.ReadSongFile(path)
				if err != nil {
					return err
				}
				added, err := svc.UploadHashes(data)
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintf(out, "Imported %s (%s hashes)\n", data.Song.Name, humanize.Comma(int64(len(data.Hashes))))
				} else {
					fmt.Fprintf(out, "%s is already indexed\n", data.Song.Name)
				}
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		// Overrides the root hook so a broken config file can be replaced.
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "constellation.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
