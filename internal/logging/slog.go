package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName tags OTel log records.
const ServiceName = "fightcore"

// Options selects the log sinks. Nil writers are skipped.
type Options struct {
	Level string
	// File receives text records. When nil, Console is used instead.
	File io.Writer
	// Console defaults to stderr; stdout belongs to the command bridge.
	Console io.Writer
	// Graylog receives JSON records, one per GELF message.
	Graylog io.Writer
	// Provider enables the OTel bridge.
	Provider *sdklog.LoggerProvider
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger
	sinks  []string

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case, with optional offsets
// such as "info+2". Anything else logs at info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Setup initializes the logging system. Records carry fight and shot ids
// found on the context.
func (m *SlogManager) Setup(opts Options) {
	lvl := parseLevel(opts.Level)
	m.logProvider = opts.Provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	sinks := make([]Sink, 0, 3)
	if opts.File != nil {
		sinks = append(sinks, Sink{Name: "file", Handler: slog.NewTextHandler(opts.File, handlerOpts)})
	} else {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		sinks = append(sinks, Sink{Name: "console", Handler: slog.NewTextHandler(console, handlerOpts)})
	}
	if opts.Graylog != nil {
		sinks = append(sinks, Sink{Name: "graylog", Handler: slog.NewJSONHandler(opts.Graylog, handlerOpts)})
	}
	if opts.Provider != nil {
		sinks = append(sinks, Sink{Name: "otel", Handler: otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(opts.Provider))})
	}

	h := NewHandler(EncounterAttrs, sinks...)
	m.sinks = h.Sinks()
	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", lvl.String(), "sinks", m.sinks)
}

// Sinks names the destinations chosen by the last Setup.
func (m *SlogManager) Sinks() []string {
	return m.sinks
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
