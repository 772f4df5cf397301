//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/himanishpuri/constellation/internal/config"
	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/logger"
	"github.com/himanishpuri/constellation/pkg/utils"
)

// app carries the loaded configuration and the lazily opened service through
// one command invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *logrus.Logger
	svc     constellation.Service
}

// persistent flag -> config key
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"storage":    "storage",
	"db":         "db_path",
	"export-dir": "export_dir",
	"temp":       "temp_dir",
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "constellation",
		Short: "Audio fingerprinting: index songs and identify recordings",
		Long: `constellation fingerprints audio with a constellation map of spectral
peaks, keeps the hashes in a local store and matches recordings or excerpts
against them.

Settings come from flags, CONSTELLATION_* environment variables, a .env file
and constellation.yaml, in that order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./constellation.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("storage", "sqlite", "storage backend: sqlite, badger or memory")
	pf.String("db", "", "SQLite file or Badger directory")
	pf.String("export-dir", "", "write <name>.json for every added song")
	pf.String("temp", "", "directory for temporary conversion files")

	for flag, key := range flagKeys {
		if err := a.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(errors.Wrapf(err, "bind --%s", flag))
		}
	}

	root.AddCommand(
		newAddCmd(a),
		newAddDirCmd(a),
		newMatchCmd(a),
		newListCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newSpectrogramCmd(a),
		newConfigCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Colorize: true,
		Output:   cmd.ErrOrStderr(),
	})
	return nil
}

// service opens the configured store and index on first use.
func (a *app) service() (constellation.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	if err := utils.MakeDir(a.cfg.TempDir); err != nil {
		return nil, errors.Wrapf(err, "create temp dir %s", a.cfg.TempDir)
	}
	svc, err := constellation.NewService(append(a.cfg.Options(), constellation.WithLogger(a.log))...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create service")
	}
	a.svc = svc
	return svc, nil
}

func (a *app) close() error {
	if a.svc == nil {
		return nil
	}
	err := a.svc.Close()
	a.svc = nil
	return err
}
