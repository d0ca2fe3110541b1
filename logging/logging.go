package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string // debug|info|warn|error
	Format string // text|json
	// File, when set, receives logs through a rotating writer instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Setup configures the slog default logger and points the std log package at
// the same writer. The returned closer releases the log file, if any.
func Setup(opts Options) io.Closer {
	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if strings.TrimSpace(opts.File) != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		w = lj
		closer = lj
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var h slog.Handler
	if strings.ToLower(opts.Format) == "json" {
		h = slog.NewJSONHandler(w, handlerOpts)
		log.SetFlags(0)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}
	slog.SetDefault(slog.New(h))
	log.SetOutput(w)

	return closer
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
