//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/himanishpuri/constellation/internal/config"
	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/logger"
	"github.com/himanishpuri/constellation/pkg/utils"
)

// bindFlags defines the server flags and binds them to their config keys.
func bindFlags(fs *pflag.FlagSet, v *viper.Viper) (configPath *string, err error) {
	configPath = fs.String("config", "", "Config file (default ./constellation.yaml)")
	fs.Int("port", 8080, "HTTP server port")
	fs.String("storage", "sqlite", "Storage backend: sqlite, badger or memory")
	fs.String("db", "", "SQLite file or Badger directory")
	fs.String("temp", "", "Temporary directory for uploads and conversions")
	fs.StringSlice("origins", nil, "Allowed CORS origins (use * for all)")
	fs.String("log-level", "info", "Log level")

	keys := map[string]string{
		"port":      "server.port",
		"storage":   "storage",
		"db":        "db_path",
		"temp":      "temp_dir",
		"origins":   "server.origins",
		"log-level": "log_level",
	}
	for flag, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, errors.Wrapf(err, "bind --%s", flag)
		}
	}
	return configPath, nil
}

func run(args []string) error {
	v := config.New()
	fs := pflag.NewFlagSet("constellation-server", pflag.ContinueOnError)
	configPath, err := bindFlags(fs, v)
	if err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.ReadFile(v, *configPath); err != nil {
		return err
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.LogLevel)
	log := logger.GetLogger()

	if err := utils.MakeDir(cfg.TempDir); err != nil {
		return errors.Wrapf(err, "create temp dir %s", cfg.TempDir)
	}

	service, err := constellation.NewService(append(cfg.Options(), constellation.WithLogger(log))...)
	if err != nil {
		return errors.Wrap(err, "failed to create service")
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           cfg.Server.Port,
		Storage:        cfg.Storage,
		DBPath:         cfg.DBPath,
		TempDir:        cfg.TempDir,
		AllowedOrigins: cfg.Server.Origins,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.GetLogger().Fatalf("Server failed: %v", err)
	}
}
