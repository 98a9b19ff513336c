package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebagchi/rrc-uper/internal/config"
)

// InitLogger builds the process logger from cfg, writing to out (stderr when
// nil), and installs it as the zerolog global logger.
func InitLogger(out io.Writer, app string, cfg config.LogConfig) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	logger, err := NewLogger(out, app, cfg)
	if err != nil {
		return zerolog.Nop(), err
	}
	log.Logger = logger
	return logger, nil
}

// NewLogger returns a logger writing to out, as human readable console lines or
// JSON depending on cfg.Format.
func NewLogger(out io.Writer, app string, cfg config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("app", app).Logger(), nil
}
