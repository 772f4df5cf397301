// Package config loads the settings shared by the CLI and the HTTP server from
// defaults, an optional YAML file, a .env file and CONSTELLATION_* variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/storage"
)

const (
	EnvPrefix = "CONSTELLATION"
	FileName  = "constellation"
)

type ServerConfig struct {
	Port    int      `mapstructure:"port" yaml:"port"`
	Origins []string `mapstructure:"origins" yaml:"origins"`
}

type Config struct {
	LogLevel    string             `mapstructure:"log_level" yaml:"log_level"`
	Storage     string             `mapstructure:"storage" yaml:"storage"`
	DBPath      string             `mapstructure:"db_path" yaml:"db_path"`
	ExportDir   string             `mapstructure:"export_dir" yaml:"export_dir"`
	TempDir     string             `mapstructure:"temp_dir" yaml:"temp_dir"`
	Fingerprint fingerprint.Params `mapstructure:"fingerprint" yaml:"fingerprint"`
	Server      ServerConfig       `mapstructure:"server" yaml:"server"`
}

func Default() *Config {
	return &Config{
		LogLevel:    "info",
		Storage:     storage.BackendSQLite,
		DBPath:      storage.DefaultDBFile,
		ExportDir:   "",
		TempDir:     filepath.Join(os.TempDir(), "constellation"),
		Fingerprint: fingerprint.DefaultParams(),
		Server: ServerConfig{
			Port:    8080,
			Origins: []string{"*"},
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("storage", d.Storage)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("export_dir", d.ExportDir)
	v.SetDefault("temp_dir", d.TempDir)

	p := d.Fingerprint
	v.SetDefault("fingerprint.sample_rate", p.SampleRate)
	v.SetDefault("fingerprint.stft_window_size", p.STFTWindowSize)
	v.SetDefault("fingerprint.stft_hop_size", p.STFTHopSize)
	v.SetDefault("fingerprint.fan_out_factor", p.FanOutFactor)
	v.SetDefault("fingerprint.fan_out_step_factor", p.FanOutStepFactor)
	v.SetDefault("fingerprint.target_zone_height", p.TargetZoneHeight)
	v.SetDefault("fingerprint.magnitude_threshold", p.MagnitudeThreshold)
	v.SetDefault("fingerprint.constellation_y_group_amount", p.ConstellationYGroupAmount)
	v.SetDefault("fingerprint.constellation_x_group_size", p.ConstellationXGroupSize)
	v.SetDefault("fingerprint.workers", p.Workers)
	v.SetDefault("fingerprint.fft_backend", p.FFTBackend)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.origins", d.Server.Origins)
}

// New returns a viper instance with defaults and environment binding. A .env
// file in the working directory is loaded first when present.
func New() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads path into v. With an empty path it looks for constellation.yaml
// in the working directory and ~/.config/constellation, and a missing file is
// not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", path)
		}
		return nil
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", FileName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "read config")
	}
	return nil
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads defaults, the config file at path (or the default locations) and
// the environment.
func Load(path string) (*Config, error) {
	v := New()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return FromViper(v)
}

func (c *Config) Validate() error {
	switch c.Storage {
	case storage.BackendSQLite, storage.BackendBadger, storage.BackendMemory:
	default:
		return errors.Wrapf(storage.ErrUnknownBackend, "%q", c.Storage)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("server port %d out of range", c.Server.Port)
	}
	return c.Fingerprint.Validate()
}

func (c *Config) Params() fingerprint.Params {
	return c.Fingerprint
}

// Options returns the service options for this configuration.
func (c *Config) Options() []constellation.Option {
	return []constellation.Option{
		constellation.WithStorageBackend(c.Storage),
		constellation.WithDBPath(c.DBPath),
		constellation.WithExportDir(c.ExportDir),
		constellation.WithTempDir(c.TempDir),
		constellation.WithParams(c.Fingerprint),
	}
}

// WriteDefault writes the default configuration as YAML. An existing file is
// only replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.Errorf("%s already exists", path)
		}
	}

	raw, err := yaml.Marshal(Default())
	if err != nil {
		return errors.Wrap(err, "encode default config")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
