// Package websocket streams fight snapshots to a WebSocket server.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chiwar/fightcore/pkg/core"
	"github.com/chiwar/fightcore/pkg/streaming"
)

// Config holds WebSocket publisher configuration.
type Config struct {
	URL    string
	Secret string
}

// Publisher sends a fight_updated envelope for every published fight.
// Sends are fire-and-forget; the write loop owns the socket.
type Publisher struct {
	conn *connection
	cfg  Config
}

// New creates a WebSocket publisher. Call Init to connect.
func New(cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn: newConnection(logger.With("publisher", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (p *Publisher) Init() error {
	return p.conn.dial(p.cfg.URL, p.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (p *Publisher) Close() error {
	return p.conn.close()
}

// marshalFight builds the JSON-encoded envelope for a fight snapshot.
func marshalFight(f *core.Fight) ([]byte, error) {
	env, err := streaming.NewFightUpdated(f)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", streaming.TypeFightUpdated, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", streaming.TypeFightUpdated, err)
	}
	return data, nil
}

// Publish queues the fight snapshot for the write loop.
func (p *Publisher) Publish(_ context.Context, f *core.Fight) error {
	if f == nil {
		return nil
	}
	data, err := marshalFight(f)
	if err != nil {
		return err
	}
	return p.conn.send(f.ID, data)
}
