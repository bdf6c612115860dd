package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logTimeField    = `time`
	logLevelField   = `level`
	logMessageField = `msg`
)

// newLogger builds the process logger, writing JSON lines to stderr, or to
// a rotated file if configured. The returned function flushes and closes
// any file.
func newLogger(s *settings, stderr io.Writer) (*logiface.Logger[logiface.Event], func() error, error) {
	var (
		out      = stderr
		closeLog = func() error { return nil }
	)

	if s.Log.File != `` {
		file := &lumberjack.Logger{
			LocalTime:  true,
			MaxSize:    s.Log.MaxSize,
			MaxAge:     s.Log.MaxAge,
			MaxBackups: s.Log.MaxBackups,
			Filename:   s.Log.File,
			Compress:   true,
		}
		out = file
		closeLog = file.Close
	}

	switch s.Log.Format {
	case logFormatJSON:
	case logFormatConsole:
		out = newConsoleWriter(out, isTerminal(out))
	default:
		_ = closeLog()
		return nil, nil, fmt.Errorf(`invalid log format %q`, s.Log.Format)
	}

	logger := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(out),
			stumpy.WithTimeField(logTimeField),
			stumpy.WithLevelField(logLevelField),
		),
		stumpy.L.WithLevel(s.logLevel()),
	).Logger()

	return logger, closeLog, nil
}

// newConsoleWriter renders each JSON line in a human-friendly format.
func newConsoleWriter(out io.Writer, color bool) *zerolog.ConsoleWriter {
	return &zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !color,
		TimeFormat: time.DateTime,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.MessageFieldName,
		},
		FormatLevel: formatConsoleLevel,
		FormatPrepare: func(evt map[string]any) error {
			if v, ok := evt[logMessageField]; ok {
				delete(evt, logMessageField)
				evt[zerolog.MessageFieldName] = v
			}
			return nil
		},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func formatConsoleLevel(i any) string {
	s, _ := i.(string)
	if s == `` {
		s = `???`
	}
	return fmt.Sprintf(`%-7s`, strings.ToUpper(s))
}
