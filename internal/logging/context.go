package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	fightIDKey ctxKey = iota
	shotIDKey
)

// WithFightID returns a context whose log records carry fight_id.
func WithFightID(ctx context.Context, fightID string) context.Context {
	return context.WithValue(ctx, fightIDKey, fightID)
}

// WithShotID returns a context whose log records carry shot_id.
func WithShotID(ctx context.Context, shotID string) context.Context {
	return context.WithValue(ctx, shotIDKey, shotID)
}

// ContextProvider returns extra attributes for a record logged with ctx.
type ContextProvider func(ctx context.Context) []slog.Attr

// EncounterAttrs reads the fight and shot ids stored on ctx.
func EncounterAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if v, ok := ctx.Value(fightIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("fight_id", v))
	}
	if v, ok := ctx.Value(shotIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("shot_id", v))
	}
	return attrs
}
