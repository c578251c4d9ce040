// Package logging builds the zerolog loggers used across tada.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger at level. Debug through warn go to out,
// error and above to errOut.
func New(level string, out, errOut io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	writer := zerolog.MultiLevelWriter(
		SpecificLevelWriter{
			Writer: zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339},
			Levels: []zerolog.Level{
				zerolog.TraceLevel, zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel,
			},
		},
		SpecificLevelWriter{
			Writer: zerolog.ConsoleWriter{Out: errOut, TimeFormat: time.RFC3339},
			Levels: []zerolog.Level{
				zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel,
			},
		},
	)
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger(), nil
}

// Open picks the destination: file when set, otherwise the console unless
// interactive, where console output would corrupt the terminal UI.
// The returned func closes the file, if any.
func Open(level, file string, interactive bool) (zerolog.Logger, func() error, error) {
	noop := func() error { return nil }
	if file == "" {
		if interactive {
			return zerolog.Nop(), noop, nil
		}
		l, err := New(level, os.Stderr, os.Stderr)
		return l, noop, err
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), noop, fmt.Errorf("open log file: %w", err)
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		f.Close()
		return zerolog.Nop(), noop, fmt.Errorf("log level: %w", err)
	}
	return zerolog.New(f).Level(lvl).With().Timestamp().Logger(), f.Close, nil
}

// SpecificLevelWriter forwards only the listed levels to Writer.
type SpecificLevelWriter struct {
	io.Writer
	Levels []zerolog.Level
}

func (w SpecificLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	for _, l := range w.Levels {
		if l == level {
			return w.Write(p)
		}
	}
	return len(p), nil
}
