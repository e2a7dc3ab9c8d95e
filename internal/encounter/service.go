// Package encounter is the combat encounter state engine. It owns the
// initiative clock, the shot roster, driver links, chase relationships,
// timed effects and the per-fight location graph.
//
// Every mutating operation runs in a single database transaction. After the
// transaction commits, the hydrated fight is handed to the Publisher; a
// publish failure is logged and counted but never returned to the caller.
package encounter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/logging"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Publisher receives the hydrated fight after each committed mutation.
type Publisher interface {
	Publish(ctx context.Context, fight *core.Fight) error
}

// Dependencies holds everything the service needs
type Dependencies struct {
	DB        *gorm.DB
	Publisher Publisher
	Logger    *slog.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// Service implements the encounter operations
type Service struct {
	db        *gorm.DB
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
	metrics   *metrics
}

// NewService creates a new encounter service
func NewService(deps Dependencies) (*Service, error) {
	if deps.DB == nil {
		return nil, errors.New("encounter: database is required")
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	s := &Service{
		db:        deps.DB,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		now:       deps.Now,
		metrics:   m,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// mutation is the state shared by one transactional operation
type mutation struct {
	tx     *gorm.DB
	op     string
	now    time.Time
	fights []uuid.UUID
}

// affects marks a fight for broadcast once the transaction commits.
func (m *mutation) affects(fightID uuid.UUID) {
	for _, id := range m.fights {
		if id == fightID {
			return
		}
	}
	m.fights = append(m.fights, fightID)
}

// record appends a history row for the fight and marks it affected.
func (m *mutation) record(fightID uuid.UUID, description string, details map[string]any) error {
	m.affects(fightID)

	raw := []byte("{}")
	if len(details) > 0 {
		var err error
		if raw, err = json.Marshal(details); err != nil {
			return fmt.Errorf("encoding event details: %w", err)
		}
	}
	event := model.FightEvent{
		FightID:     fightID,
		EventType:   m.op,
		Description: description,
		Details:     datatypes.JSON(raw),
		CreatedAt:   m.now,
	}
	if err := m.tx.Create(&event).Error; err != nil {
		return fmt.Errorf("recording fight event: %w", err)
	}
	return nil
}

// commit runs fn in one transaction, then broadcasts every affected fight.
// It returns the view of the first affected fight, or nil if none was
// affected or the view could not be loaded.
func (s *Service) commit(ctx context.Context, op string, fn func(m *mutation) error) (*core.Fight, error) {
	m := &mutation{op: op, now: s.now()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m.tx = tx
		return fn(m)
	})
	if err != nil {
		return nil, translate(err)
	}
	s.metrics.mutation(ctx, op)

	var first *core.Fight
	for i, fightID := range m.fights {
		view := s.publish(ctx, op, fightID)
		if i == 0 {
			first = view
		}
	}
	return first, nil
}

// publish loads the fight view and hands it to the publisher. Failures are
// logged and counted only.
func (s *Service) publish(ctx context.Context, op string, fightID uuid.UUID) *core.Fight {
	ctx = logging.WithFightID(ctx, fightID.String())

	view, err := s.Fight(ctx, fightID)
	if err != nil {
		s.metrics.broadcastFailed(ctx, op)
		s.logger.ErrorContext(ctx, "loading fight for broadcast", "op", op, "error", err)
		return nil
	}
	if s.publisher == nil {
		return view
	}
	if err := s.publisher.Publish(ctx, view); err != nil {
		s.metrics.broadcastFailed(ctx, op)
		s.logger.WarnContext(ctx, "fight broadcast failed", "op", op, "error", err)
	}
	return view
}

// viewOrLoad returns view when the broadcast already loaded it.
func (s *Service) viewOrLoad(ctx context.Context, view *core.Fight, fightID uuid.UUID) (*core.Fight, error) {
	if view != nil {
		return view, nil
	}
	return s.Fight(ctx, fightID)
}

// translate maps storage errors onto the fighterr taxonomy.
func translate(err error) error {
	var fe *fighterr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &fe):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fighterr.Wrap(fighterr.CodeNotFound, "record not found", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fighterr.Wrap(fighterr.CodeMissingReference, "referenced record does not exist", err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fighterr.Wrap(fighterr.CodeInvalidValue, "constraint violated", err)
	default:
		return fighterr.Wrap(fighterr.CodeInternal, "storage failure", err)
	}
}

// find loads one row by id, reporting a typed not-found.
func find[T any](tx *gorm.DB, entity string, id uuid.UUID) (T, error) {
	var row T
	err := tx.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, fighterr.NotFound(entity, id)
	}
	if err != nil {
		return row, fmt.Errorf("loading %s %s: %w", entity, id, err)
	}
	return row, nil
}

func findFight(tx *gorm.DB, id uuid.UUID) (model.Fight, error) {
	return find[model.Fight](tx, "fight", id)
}

func findShot(tx *gorm.DB, id uuid.UUID) (model.Shot, error) {
	return find[model.Shot](tx, "shot", id)
}

// secondPrecision truncates timestamps written to the lifecycle columns.
func secondPrecision(t time.Time) time.Time {
	return t.Truncate(time.Second)
}
