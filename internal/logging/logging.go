package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config describes logger runtime configuration.
type Config struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	TimeFormat  string `mapstructure:"time_format"`
	Caller      bool   `mapstructure:"caller"`
	PrettyPrint bool   `mapstructure:"pretty"`
}

func (c Config) level() zerolog.Level {
	if parsed, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err == nil {
		return parsed
	}
	return zerolog.InfoLevel
}

func (c Config) console() bool {
	return c.PrettyPrint || strings.EqualFold(c.Format, "console")
}

// NewLogger constructs a zerolog logger from config. Unknown levels fall back
// to info rather than failing startup.
func NewLogger(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	logger := zerolog.New(os.Stdout)
	if cfg.console() {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: zerolog.TimeFieldFormat,
		})
	}

	builder := logger.Level(cfg.level()).With().Timestamp()
	if cfg.Caller {
		builder = builder.Caller()
	}

	return builder.Logger()
}
