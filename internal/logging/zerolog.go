package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// parseZerologLevel converts a string log level to zerolog.Level.
func parseZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds the component logger used by the database, dispatcher
// and influx sinks. Records go to every writer in console format.
func NewZerolog(level string, writers ...io.Writer) zerolog.Logger {
	var outs []io.Writer
	for _, w := range writers {
		if w == nil {
			continue
		}
		outs = append(outs, zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	if len(outs) == 0 {
		return zerolog.Nop()
	}

	return zerolog.New(zerolog.MultiLevelWriter(outs...)).
		Level(parseZerologLevel(level)).
		With().Timestamp().Logger()
}
