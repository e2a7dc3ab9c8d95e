// Package memory keeps published fight snapshots in process, for tests and
// local runs without a broadcast server.
package memory

import (
	"context"
	"sync"

	"github.com/chiwar/fightcore/internal/queue"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
)

// DefaultHistory bounds the snapshots a Publisher keeps.
const DefaultHistory = 1024

// Publisher records every published fight in order.
type Publisher struct {
	history *queue.Queue[*core.Fight]

	mu      sync.RWMutex
	latest  map[uuid.UUID]*core.Fight
	dropped int
	closed  bool
}

// New creates a publisher keeping at most history snapshots; zero or less
// uses DefaultHistory.
func New(history int) *Publisher {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Publisher{
		history: queue.NewBounded[*core.Fight](history),
		latest:  make(map[uuid.UUID]*core.Fight),
	}
}

// Publish stores the snapshot.
func (p *Publisher) Publish(_ context.Context, f *core.Fight) error {
	if f == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.latest[f.ID] = f
	p.dropped += p.history.Push(f)
	return nil
}

// Published returns the retained snapshots, oldest first.
func (p *Publisher) Published() []*core.Fight {
	return p.history.Snapshot()
}

// Drain returns the retained snapshots and forgets them.
func (p *Publisher) Drain() []*core.Fight {
	return p.history.GetAndEmpty()
}

// Latest returns the last snapshot published for the fight.
func (p *Publisher) Latest(fightID uuid.UUID) (*core.Fight, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f, ok := p.latest[fightID]
	return f, ok
}

// Dropped reports how many snapshots fell out of the bounded history.
func (p *Publisher) Dropped() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

// Close stops recording. Retained snapshots stay readable.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
