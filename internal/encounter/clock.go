package encounter

import (
	"context"
	"fmt"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/internal/model/convert"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
)

// WrapSequence is the value the countdown wraps to after reaching zero.
const WrapSequence = 18

// NextSequence counts down by one, wrapping from zero to WrapSequence.
func NextSequence(sequence int) int {
	if sequence > 0 {
		return sequence - 1
	}
	return WrapSequence
}

// Lifecycle reports whether the fight is unstarted, started or ended.
func Lifecycle(f model.Fight) core.Lifecycle {
	return convert.LifecycleOf(f)
}

// FightSpec describes a new fight
type FightSpec struct {
	CampaignID  uuid.UUID
	Name        string
	Description string
}

// CreateFight inserts an active, unstarted fight at sequence 0.
func (s *Service) CreateFight(ctx context.Context, spec FightSpec) (*core.Fight, error) {
	if spec.Name == "" {
		return nil, fighterr.New(fighterr.CodeInvalidValue, "fight name is required")
	}

	var fightID uuid.UUID
	view, err := s.commit(ctx, "fight.create", func(m *mutation) error {
		if _, err := find[model.Campaign](m.tx, "campaign", spec.CampaignID); err != nil {
			return missingReference(err)
		}
		fight := model.Fight{
			CampaignID:  spec.CampaignID,
			Name:        spec.Name,
			Description: spec.Description,
			Active:      true,
		}
		if err := m.tx.Create(&fight).Error; err != nil {
			return fmt.Errorf("creating fight: %w", err)
		}
		fightID = fight.ID
		return m.record(fight.ID, "fight created", map[string]any{"name": fight.Name})
	})
	if err != nil {
		return nil, err
	}
	return s.viewOrLoad(ctx, view, fightID)
}

// Start stamps started_at if the fight has not been started yet.
func (s *Service) Start(ctx context.Context, fightID uuid.UUID) (*core.Fight, error) {
	return s.updateFight(ctx, "fight.start", fightID, func(m *mutation, fight model.Fight) (map[string]any, error) {
		if fight.StartedAt != nil {
			return nil, nil
		}
		return map[string]any{"started_at": secondPrecision(m.now)}, nil
	})
}

// Advance moves the countdown one step and returns the updated fight.
func (s *Service) Advance(ctx context.Context, fightID uuid.UUID) (*core.Fight, error) {
	return s.updateFight(ctx, "fight.advance", fightID, func(_ *mutation, fight model.Fight) (map[string]any, error) {
		return map[string]any{"sequence": NextSequence(fight.Sequence)}, nil
	})
}

// ResetSequence forces the countdown to WrapSequence.
func (s *Service) ResetSequence(ctx context.Context, fightID uuid.UUID) (*core.Fight, error) {
	return s.updateFight(ctx, "fight.reset_sequence", fightID, func(*mutation, model.Fight) (map[string]any, error) {
		return map[string]any{"sequence": WrapSequence}, nil
	})
}

// End deactivates the fight and stamps ended_at.
func (s *Service) End(ctx context.Context, fightID uuid.UUID) (*core.Fight, error) {
	return s.updateFight(ctx, "fight.end", fightID, func(m *mutation, _ model.Fight) (map[string]any, error) {
		return map[string]any{
			"active":   false,
			"ended_at": secondPrecision(m.now),
		}, nil
	})
}

// Touch bumps updated_at to force a re-broadcast. No history row is written.
func (s *Service) Touch(ctx context.Context, fightID uuid.UUID) (*core.Fight, error) {
	view, err := s.commit(ctx, "fight.touch", func(m *mutation) error {
		if _, err := findFight(m.tx, fightID); err != nil {
			return err
		}
		if err := m.tx.Model(&model.Fight{}).Where("id = ?", fightID).
			Update("updated_at", m.now).Error; err != nil {
			return fmt.Errorf("touching fight: %w", err)
		}
		m.affects(fightID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.viewOrLoad(ctx, view, fightID)
}

// ResetFight returns the fight and every shot in it to a neutral state. With
// purgeEvents the fight's history is deleted in the same transaction.
func (s *Service) ResetFight(ctx context.Context, fightID uuid.UUID, purgeEvents bool) (*core.Fight, error) {
	view, err := s.commit(ctx, "fight.reset", func(m *mutation) error {
		if _, err := findFight(m.tx, fightID); err != nil {
			return err
		}
		if err := m.tx.Model(&model.Fight{}).Where("id = ?", fightID).Updates(map[string]any{
			"sequence":   0,
			"started_at": nil,
			"ended_at":   nil,
			"active":     true,
		}).Error; err != nil {
			return fmt.Errorf("resetting fight: %w", err)
		}
		if err := m.tx.Model(&model.Shot{}).Where("fight_id = ?", fightID).Updates(map[string]any{
			"shot":                  nil,
			"impairments":           0,
			"count":                 0,
			"was_rammed_or_damaged": false,
		}).Error; err != nil {
			return fmt.Errorf("resetting shots: %w", err)
		}

		if purgeEvents {
			if err := m.tx.Where("fight_id = ?", fightID).Delete(&model.FightEvent{}).Error; err != nil {
				return fmt.Errorf("purging fight events: %w", err)
			}
			m.affects(fightID)
			return nil
		}
		return m.record(fightID, "fight reset", nil)
	})
	if err != nil {
		return nil, err
	}
	return s.viewOrLoad(ctx, view, fightID)
}

// updateFight loads the fight, applies the column changes fn returns and
// records the event. A nil change set still records and broadcasts.
func (s *Service) updateFight(ctx context.Context, op string, fightID uuid.UUID, fn func(*mutation, model.Fight) (map[string]any, error)) (*core.Fight, error) {
	view, err := s.commit(ctx, op, func(m *mutation) error {
		fight, err := findFight(m.tx, fightID)
		if err != nil {
			return err
		}
		changes, err := fn(m, fight)
		if err != nil {
			return err
		}
		if len(changes) > 0 {
			if err := m.tx.Model(&model.Fight{}).Where("id = ?", fightID).Updates(changes).Error; err != nil {
				return fmt.Errorf("updating fight: %w", err)
			}
		}
		return m.record(fightID, op, changes)
	})
	if err != nil {
		return nil, err
	}
	return s.viewOrLoad(ctx, view, fightID)
}
