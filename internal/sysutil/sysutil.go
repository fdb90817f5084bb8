// Package sysutil holds process-level setup for the server binary: global
// logger configuration, log level parsing and the optional rotated log file.
package sysutil

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a level name (case-insensitive, trimmed) to a zerolog
// level. Empty and unknown names yield info.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLogLevel sets the global zerolog level from a level name.
func SetLogLevel(lvl string) {
	zerolog.SetGlobalLevel(ParseLevel(lvl))
}

// InitLogger installs the process-wide logger. Output is JSON unless pretty
// is set, in which case a human-readable console writer is used. The logger
// also becomes zerolog's default context logger, so log.Ctx on a context
// without a request logger still writes somewhere useful.
func InitLogger(w io.Writer, level string, pretty bool, service, version string) zerolog.Logger {
	SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	lg := zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()

	log.Logger = lg
	zerolog.DefaultContextLogger = &lg
	return lg
}

// LogOutput returns the writer InitLogger should use. With an empty path it
// is out itself; otherwise lines go to out and to a size-rotated file at path
// keeping backups old files. The returned closer releases the file.
func LogOutput(out io.Writer, path string, maxSizeMB, backups int) (io.Writer, io.Closer) {
	if path == "" {
		return out, noopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: backups,
	}
	return zerolog.MultiLevelWriter(out, file), file
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
