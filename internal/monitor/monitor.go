// Package monitor reports process health: open fights, pool usage and uptime.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/chiwar/fightcore/internal/model"

	"gorm.io/gorm"
)

// DefaultInterval is how often the status file is rewritten.
const DefaultInterval = 10 * time.Second

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
	// StatusPath is rewritten with the JSON status on every tick. Empty
	// disables the file.
	StatusPath string
	Interval   time.Duration
	// Commands reports the registered bridge commands.
	Commands func() []string
	// Queues reports the backlog of each buffered command.
	Queues func() map[string]int
}

// Status is a point-in-time health report.
type Status struct {
	Time            time.Time      `json:"time"`
	Uptime          string         `json:"uptime"`
	ActiveFights    int64          `json:"activeFights"`
	Shots           int64          `json:"shots"`
	OpenConnections int            `json:"openConnections"`
	InUse           int            `json:"inUse"`
	Idle            int            `json:"idle"`
	WaitCount       int64          `json:"waitCount"`
	Commands        int            `json:"commands"`
	Queues          map[string]int `json:"queues,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps    Dependencies
	started time.Time

	mu        sync.RWMutex
	isRunning bool
	stopChan  chan struct{}
	stopped   chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{
		deps:    deps,
		started: time.Now(),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status gathers the current report.
func (s *Service) Status(ctx context.Context) (Status, error) {
	now := time.Now()
	st := Status{
		Time:   now.UTC(),
		Uptime: now.Sub(s.started).Round(time.Second).String(),
	}

	db := s.deps.DB.WithContext(ctx)
	if err := db.Model(&model.Fight{}).Where("active = ?", true).Count(&st.ActiveFights).Error; err != nil {
		return Status{}, fmt.Errorf("counting active fights: %w", err)
	}
	if err := db.Model(&model.Shot{}).
		Joins("JOIN fights ON fights.id = shots.fight_id").
		Where("fights.active = ?", true).
		Count(&st.Shots).Error; err != nil {
		return Status{}, fmt.Errorf("counting shots: %w", err)
	}

	if sqlDB, err := s.deps.DB.DB(); err == nil {
		stats := sqlDB.Stats()
		st.OpenConnections = stats.OpenConnections
		st.InUse = stats.InUse
		st.Idle = stats.Idle
		st.WaitCount = stats.WaitCount
	}

	if s.deps.Commands != nil {
		st.Commands = len(s.deps.Commands())
	}
	if s.deps.Queues != nil {
		st.Queues = s.deps.Queues()
	}
	return st, nil
}

// Start starts the status monitor goroutine
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.stopped = make(chan struct{})
	stop, stopped := s.stopChan, s.stopped
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(stopped)
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				st, err := s.Status(ctx)
				if err != nil {
					logger.Warn("Error gathering status", "error", err)
					continue
				}
				logger.Debug("status",
					"activeFights", st.ActiveFights,
					"shots", st.Shots,
					"inUse", st.InUse,
				)
				if err := s.writeStatus(st); err != nil {
					logger.Warn("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

func (s *Service) writeStatus(st Status) error {
	if s.deps.StatusPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.deps.StatusPath + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.deps.StatusPath)
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	stop, stopped := s.stopChan, s.stopped
	s.isRunning = false
	s.mu.Unlock()

	close(stop)
	<-stopped
}
