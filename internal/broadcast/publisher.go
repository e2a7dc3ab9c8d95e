// Package broadcast fans committed fight snapshots out to the configured
// targets.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/chiwar/fightcore/internal/broadcast/influx"
	"github.com/chiwar/fightcore/internal/broadcast/memory"
	"github.com/chiwar/fightcore/internal/broadcast/websocket"
	"github.com/chiwar/fightcore/internal/config"
	"github.com/chiwar/fightcore/pkg/core"

	"github.com/rs/zerolog"
)

// Target names accepted in broadcast.targets.
const (
	TargetWebsocket = "websocket"
	TargetMemory    = "memory"
	TargetInflux    = "influx"
	TargetLog       = "log"
)

// Publisher delivers a fight snapshot to one target.
type Publisher interface {
	Publish(ctx context.Context, fight *core.Fight) error
	Close() error
}

// Multi publishes to every target, continuing past failures.
type Multi []Publisher

// Publish sends the fight to each publisher and joins their errors.
func (m Multi) Publish(ctx context.Context, f *core.Fight) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes each publisher and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dependencies carries the loggers and paths publishers need.
type Dependencies struct {
	Logger  *slog.Logger
	Zerolog zerolog.Logger
	// BackupDir receives the influx fallback file.
	BackupDir string
}

// New builds a Multi from the configured targets, connecting each one. A
// target that fails to start closes the ones already built.
func New(ctx context.Context, cfg config.BroadcastConfig, deps Dependencies) (Multi, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var out Multi
	seen := make(map[string]bool)
	for _, raw := range cfg.Targets {
		target := strings.ToLower(strings.TrimSpace(raw))
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true

		p, err := newTarget(ctx, target, cfg, deps, logger)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("broadcast target %s: %w", target, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func newTarget(ctx context.Context, target string, cfg config.BroadcastConfig, deps Dependencies, logger *slog.Logger) (Publisher, error) {
	switch target {
	case TargetWebsocket:
		p := websocket.New(websocket.Config{URL: cfg.Websocket.URL, Secret: cfg.Websocket.Secret}, logger)
		if err := p.Init(); err != nil {
			return nil, err
		}
		return p, nil
	case TargetMemory:
		return memory.New(0), nil
	case TargetInflux:
		backup := ""
		if deps.BackupDir != "" {
			backup = filepath.Join(deps.BackupDir, influx.Measurement+".gz")
		}
		m := influx.NewManager(cfg.Influx, deps.Zerolog, backup)
		if err := m.Connect(ctx); err != nil {
			return nil, err
		}
		return m, nil
	case TargetLog:
		return NewLog(logger), nil
	default:
		return nil, fmt.Errorf("unknown broadcast target %q", target)
	}
}
