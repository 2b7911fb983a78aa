package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the global logger. Zero values give an info-level
// console logger on stdout.
type Options struct {
	Out        io.Writer
	Level      string
	JSON       bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Init configures the global zerolog logger. When File is set, output is
// written to both stdout and a rotating log file.
func Init(opts Options) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if opts.Out != nil {
		out = opts.Out
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			log.Warn().Err(err).Str("file", opts.File).Msg("could not create log directory")
		} else {
			out = io.MultiWriter(out, &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    orDefault(opts.MaxSizeMB, 50),
				MaxBackups: orDefault(opts.MaxBackups, 3),
				MaxAge:     orDefault(opts.MaxAgeDays, 28),
				Compress:   opts.Compress,
			})
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
