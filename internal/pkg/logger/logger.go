package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Zerolog implements ports.Logger on top of zerolog.
type Zerolog struct {
	log zerolog.Logger
}

// New creates a console logger on stderr at the given level. The level
// string is tolerant of case and common synonyms; unknown values mean info.
func New(level string) *Zerolog {
	return NewWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, level)
}

// NewWithWriter logs to w, mainly for tests.
func NewWithWriter(w io.Writer, level string) *Zerolog {
	l := zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
	return &Zerolog{log: l}
}

// NewNop discards everything.
func NewNop() *Zerolog {
	return &Zerolog{log: zerolog.Nop()}
}

// With returns a child logger that always carries component.
func (l *Zerolog) With(component string) *Zerolog {
	return &Zerolog{log: l.log.With().Str("component", component).Logger()}
}

func (l *Zerolog) Debug(msg string, fields map[string]interface{}) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *Zerolog) Info(msg string, fields map[string]interface{}) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *Zerolog) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn().Fields(fields).Msg(msg)
}

func (l *Zerolog) Error(msg string, err error, fields map[string]interface{}) {
	l.log.Error().Err(err).Fields(fields).Msg(msg)
}

// ParseLevel converts a string to a zerolog level.
// Accepts: all, trace, debug, info, warn, warning, error, fatal, none.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "all", "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "none", "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether ParseLevel understands level without falling
// back to info.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "all", "trace", "debug", "info", "", "warn", "warning", "error", "fatal", "none", "off", "disabled":
		return true
	default:
		return false
	}
}
