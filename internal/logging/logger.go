// Package logging provides a shared logger and log utilities to be used in
// all internal packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// L is the global logger. Everything in this process logs through it so that
// output format and level are consistent.
var L = newLogger(os.Stderr)

func newLogger(w io.Writer) zerolog.Logger {
	writer := w
	if isTerminal() {
		writer = zerolog.ConsoleWriter{
			Out:         w,
			TimeFormat:  time.Kitchen,
			FormatLevel: consoleFormatLevel,
		}
	}

	return zerolog.New(writer).With().Timestamp().Logger()
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// UseServerLogger replaces the global logger with one suited to long running
// processes: JSON output even when stderr is a terminal.
func UseServerLogger() {
	L = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// SetLevel parses levelName and applies it as the global log level.
func SetLevel(levelName string) error {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", levelName, err)
	}

	zerolog.SetGlobalLevel(level)

	return nil
}

func Debugf(format string, args ...interface{}) {
	L.Debug().CallerSkipFrame(1).Msgf(format, args...)
}

func Infof(format string, args ...interface{}) {
	L.Info().CallerSkipFrame(1).Msgf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	L.Warn().CallerSkipFrame(1).Msgf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	L.Error().CallerSkipFrame(1).Msgf(format, args...)
}
