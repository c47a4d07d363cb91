package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// BadgerLogger adapts zerolog.Logger to the badger.Logger interface.
type BadgerLogger struct {
	logger zerolog.Logger
}

// NewBadgerLogger creates a BadgerLogger tagged with component=badger.
func NewBadgerLogger(logger zerolog.Logger) *BadgerLogger {
	return &BadgerLogger{logger: logger.With().Str("component", "badger").Logger()}
}

func (l *BadgerLogger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(trim(format), args...)
}

func (l *BadgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn().Msgf(trim(format), args...)
}

func (l *BadgerLogger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(trim(format), args...)
}

func (l *BadgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(trim(format), args...)
}

// badger terminates its format strings with a newline
func trim(format string) string {
	return strings.TrimSuffix(format, "\n")
}
