package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sink is one named destination of a Handler.
type Sink struct {
	Name    string
	Handler slog.Handler
}

// Handler tags each record with the encounter ids found on its context and
// hands it to every sink whose level accepts it. A failing sink does not
// keep the record from the others.
type Handler struct {
	sinks []Sink
	attrs ContextProvider
}

// NewHandler builds a Handler over sinks, skipping those without a handler.
// A nil provider uses EncounterAttrs.
func NewHandler(attrs ContextProvider, sinks ...Sink) *Handler {
	if attrs == nil {
		attrs = EncounterAttrs
	}
	h := &Handler{attrs: attrs}
	for _, s := range sinks {
		if s.Handler != nil {
			h.sinks = append(h.sinks, s)
		}
	}
	return h
}

// Sinks lists the sink names in fan-out order.
func (h *Handler) Sinks() []string {
	names := make([]string, len(h.sinks))
	for i, s := range h.sinks {
		names[i] = s.Name
	}
	return names
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.Handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle returns the joined sink errors, each prefixed with its sink name.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if extra := h.attrs(ctx); len(extra) > 0 {
		r.AddAttrs(extra...)
	}

	var errs []error
	for _, s := range h.sinks {
		if !s.Handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

func (h *Handler) derive(fn func(slog.Handler) slog.Handler) *Handler {
	sinks := make([]Sink, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = Sink{Name: s.Name, Handler: fn(s.Handler)}
	}
	return &Handler{sinks: sinks, attrs: h.attrs}
}
