package broadcast

import (
	"context"
	"log/slog"

	"github.com/chiwar/fightcore/internal/logging"
	"github.com/chiwar/fightcore/pkg/core"
)

// Log writes a one-line summary of each fight update.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log publisher.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Publish logs the fight summary at info level.
func (l *Log) Publish(ctx context.Context, f *core.Fight) error {
	if f == nil {
		return nil
	}
	ctx = logging.WithFightID(ctx, f.ID.String())
	l.logger.InfoContext(ctx, "fight updated",
		"campaign_id", f.CampaignID.String(),
		"sequence", f.Sequence,
		"lifecycle", string(f.Lifecycle),
		"shots", len(f.Shots),
		"chases", len(f.Chases),
		"locations", len(f.Locations),
	)
	return nil
}

// Close is a no-op.
func (l *Log) Close() error { return nil }
