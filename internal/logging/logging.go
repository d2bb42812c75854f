// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, format and destinations.
type Config struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// Format is "text" for console output, anything else is JSON.
	Format string
	// File, when set, also receives logs with rotation.
	File       string
	WithCaller bool
	// Quiet keeps logs off stderr, for full-screen front-ends that own the
	// terminal. Logs then go to File only, or nowhere.
	Quiet bool
}

// New builds a logger writing to out and, when configured, to File.
func New(cfg Config, out io.Writer) (zerolog.Logger, zerolog.Level, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Logger{}, level, errors.Wrapf(err, "invalid log level %q", cfg.Level)
		}
		level = l
	}

	var writers []io.Writer
	if !cfg.Quiet && out != nil {
		if cfg.Format == "text" {
			writers = append(writers, zerolog.ConsoleWriter{Out: out})
		} else {
			writers = append(writers, out)
		}
	}

	if cfg.File != "" {
		writers = append(writers, zerolog.ConsoleWriter{
			NoColor: true,
			Out: &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			},
		})
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	ctx := zerolog.New(w).With().Timestamp()
	if cfg.WithCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), level, nil
}

// Init replaces the global logger and level.
func Init(cfg Config) error {
	logger, level, err := New(cfg, os.Stderr)
	if err != nil {
		return err
	}
	log.Logger = logger
	zerolog.SetGlobalLevel(level)
	return nil
}
