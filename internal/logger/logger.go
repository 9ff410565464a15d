// Package logger builds the zerolog logger used across jot.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pbaille/jot/internal/config"
	"github.com/rs/zerolog"
)

// New builds a logger from cfg. Logs go to stderr unless cfg.File is set,
// in which case they are appended to that file. The returned closer must be
// called on exit.
func New(cfg config.LogConfig, verbose bool) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("parse log level: %w", err)
	}
	if verbose && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	return build(out, cfg.Format, cfg.File != "").Level(level), closer, nil
}

func build(out io.Writer, format string, toFile bool) zerolog.Logger {
	if format == "json" {
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    toFile,
	}).With().Timestamp().Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
