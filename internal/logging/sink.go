package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level is the severity accepted by Log.
type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Log writes one line tagged with service. It never returns an error and
// never blocks on a failed write beyond the underlying writer.
func Log(service, message string, level Level) {
	Service(service).WithLevel(level.zerolog()).Msg(message)
}

// Service returns the global logger tagged with service.
func Service(service string) *zerolog.Logger {
	l := log.Logger.With().Str("service", service).Logger()
	return &l
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
