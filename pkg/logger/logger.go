package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger *logrus.Logger
	once          sync.Once
)

type Config struct {
	Level      string
	Colorize   bool
	ShowCaller bool
	JSON       bool
	Output     io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Colorize:   true,
		ShowCaller: false,
		Output:     os.Stdout,
	}
}

// ParseLevel maps a level name to a logrus level. Unknown names fall back to info.
// "fatal" is accepted for compatibility with older LOG_LEVEL values.
func ParseLevel(name string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func New(cfg Config) *logrus.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	l := logrus.New()
	l.SetOutput(cfg.Output)
	if cfg.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     cfg.Colorize,
			DisableColors:   !cfg.Colorize,
		})
	}
	l.SetLevel(ParseLevel(cfg.Level))
	l.SetReportCaller(cfg.ShowCaller)
	return l
}

// GetLogger returns the process-wide logger. LOG_LEVEL overrides the default level.
func GetLogger() *logrus.Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
			cfg.Level = envLevel
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// Discard returns a logger that writes nothing, for tests and library callers.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SetLevel sets the level of the default logger by name.
func SetLevel(name string) {
	GetLogger().SetLevel(ParseLevel(name))
}

// SetOutput sets the output for the default logger
func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}

// SetShowCaller enables or disables caller information for the default logger
func SetShowCaller(show bool) {
	GetLogger().SetReportCaller(show)
}
