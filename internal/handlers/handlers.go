// Package handlers maps bridge commands onto encounter operations.
//
// Commands take positional string arguments. Ids are UUID strings; lists of
// ids are JSON arrays; the few operations with many optional fields take a
// single JSON object argument.
package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chiwar/fightcore/internal/dispatcher"
	"github.com/chiwar/fightcore/internal/encounter"
	"github.com/chiwar/fightcore/internal/logging"

	"github.com/google/uuid"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Encounter *encounter.Service
	Logger    *slog.Logger
	Version   string
}

// Service binds bridge commands to the encounter engine.
type Service struct {
	deps Dependencies
	log  *slog.Logger
}

// NewService creates a new handler service
func NewService(deps Dependencies) (*Service, error) {
	if deps.Encounter == nil {
		return nil, errors.New("handlers: encounter service is required")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{deps: deps, log: log}, nil
}

// Register adds every command to the dispatcher. Touch is fire-and-forget
// and runs through a buffered queue; everything else answers synchronously.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	s.registerTemplates(d)
	s.registerFights(d)
	s.registerShots(d)
	s.registerDrivers(d)
	s.registerChases(d)
	s.registerEffects(d)
	s.registerLocations(d)

	d.Register("version", func(context.Context, dispatcher.Event) (any, error) {
		return s.deps.Version, nil
	})
	d.Register("commands", func(context.Context, dispatcher.Event) (any, error) {
		return d.Commands(), nil
	})
}

// handle adapts a typed handler to the dispatcher, parsing args first.
func handle[T any](fn func(ctx context.Context, a *args) (T, error)) dispatcher.HandlerFunc {
	return func(ctx context.Context, e dispatcher.Event) (any, error) {
		a := newArgs(e.Command, e.Args)
		result, err := fn(ctx, a)
		if a.err != nil {
			return nil, a.err
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

// withFight tags ctx for log lines produced while serving the command.
func withFight(ctx context.Context, id uuid.UUID) context.Context {
	return logging.WithFightID(ctx, id.String())
}

func withShot(ctx context.Context, id uuid.UUID) context.Context {
	return logging.WithShotID(ctx, id.String())
}

type countResult struct {
	Cleared int64 `json:"cleared"`
}

type doneResult struct {
	Done bool `json:"done"`
}

var done = doneResult{Done: true}
