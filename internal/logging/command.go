package logging

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// badKey names a value logged without a key, matching slog.
const badKey = "!BADKEY"

// CommandLogger writes dispatcher activity to zerolog. Errors, durations and
// ids keep their zerolog field types.
type CommandLogger struct {
	logger zerolog.Logger
}

// NewCommandLogger tags every entry with component=dispatcher.
func NewCommandLogger(logger zerolog.Logger) *CommandLogger {
	return &CommandLogger{logger: logger.With().Str("component", "dispatcher").Logger()}
}

func (l *CommandLogger) Debug(msg string, keysAndValues ...any) {
	withFields(l.logger.Debug(), keysAndValues).Msg(msg)
}

func (l *CommandLogger) Info(msg string, keysAndValues ...any) {
	withFields(l.logger.Info(), keysAndValues).Msg(msg)
}

func (l *CommandLogger) Error(msg string, keysAndValues ...any) {
	withFields(l.logger.Error(), keysAndValues).Msg(msg)
}

// withFields appends slog-style key/value pairs to e. A trailing key without
// a value is kept under badKey.
func withFields(e *zerolog.Event, keysAndValues []any) *zerolog.Event {
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if i+1 == len(keysAndValues) {
			return e.Interface(badKey, keysAndValues[i])
		}
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		switch v := keysAndValues[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		case fmt.Stringer:
			e = e.Stringer(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}
