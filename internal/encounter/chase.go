package encounter

import (
	"context"
	"errors"
	"fmt"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/internal/model/convert"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// normalizePosition defaults an empty position to far.
func normalizePosition(position string) (string, error) {
	switch position {
	case "":
		return model.PositionFar, nil
	case model.PositionNear, model.PositionFar:
		return position, nil
	default:
		return "", fighterr.Newf(fighterr.CodeInvalidPosition, "invalid chase position %q", position)
	}
}

// CreateRelationship starts a chase between two vehicle shots of the fight.
func (s *Service) CreateRelationship(ctx context.Context, fightID, pursuerID, evaderID uuid.UUID, position string) (core.ChaseRelationship, error) {
	if pursuerID == evaderID {
		return core.ChaseRelationship{}, fighterr.ErrSelfReference
	}
	position, err := normalizePosition(position)
	if err != nil {
		return core.ChaseRelationship{}, err
	}

	var rel model.ChaseRelationship
	_, err = s.commit(ctx, "chase.create", func(m *mutation) error {
		if _, err := findFight(m.tx, fightID); err != nil {
			return err
		}
		for _, id := range []uuid.UUID{pursuerID, evaderID} {
			shot, err := findShot(m.tx, id)
			if err != nil {
				return err
			}
			if shot.FightID != fightID {
				return fighterr.Newf(fighterr.CodeCrossFightReference, "shot %s is not in fight %s", id, fightID)
			}
			if shot.VehicleID == nil {
				return fighterr.Newf(fighterr.CodeInvalidValue, "shot %s is not a vehicle", id)
			}
		}

		var existing int64
		if err := m.tx.Model(&model.ChaseRelationship{}).
			Where("fight_id = ? AND pursuer_id = ? AND evader_id = ? AND active = ?", fightID, pursuerID, evaderID, true).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("checking active relationships: %w", err)
		}
		if existing > 0 {
			return fighterr.ErrDuplicateActiveRelationship
		}

		rel = model.ChaseRelationship{
			FightID:   fightID,
			PursuerID: pursuerID,
			EvaderID:  evaderID,
			Position:  position,
			Active:    true,
		}
		if err := m.tx.Create(&rel).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fighterr.Wrap(fighterr.CodeDuplicateActiveRelationship, "an active chase relationship already exists", err)
			}
			return fmt.Errorf("creating chase relationship: %w", err)
		}
		return m.record(fightID, "chase started", map[string]any{
			"relationshipId": rel.ID,
			"position":       position,
		})
	})
	if err != nil {
		return core.ChaseRelationship{}, err
	}
	return convert.ChaseToCore(rel), nil
}

// UpdatePosition moves a chase relationship to near or far.
func (s *Service) UpdatePosition(ctx context.Context, relationshipID uuid.UUID, position string) (core.ChaseRelationship, error) {
	if position != model.PositionNear && position != model.PositionFar {
		return core.ChaseRelationship{}, fighterr.Newf(fighterr.CodeInvalidPosition, "invalid chase position %q", position)
	}
	return s.updateRelationship(ctx, "chase.position", relationshipID, map[string]any{"position": position})
}

// DeactivateRelationship ends a chase without deleting its row, so the same
// pair can start a new chase immediately.
func (s *Service) DeactivateRelationship(ctx context.Context, relationshipID uuid.UUID) (core.ChaseRelationship, error) {
	return s.updateRelationship(ctx, "chase.deactivate", relationshipID, map[string]any{"active": false})
}

// ActiveRelationshipsForFight lists the fight's active chases.
func (s *Service) ActiveRelationshipsForFight(ctx context.Context, fightID uuid.UUID) ([]core.ChaseRelationship, error) {
	db := s.db.WithContext(ctx)
	if _, err := findFight(db, fightID); err != nil {
		return nil, err
	}
	var rows []model.ChaseRelationship
	if err := db.Where("fight_id = ? AND active = ?", fightID, true).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, translate(fmt.Errorf("loading chase relationships: %w", err))
	}
	out := make([]core.ChaseRelationship, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.ChaseToCore(r))
	}
	return out, nil
}

func (s *Service) updateRelationship(ctx context.Context, op string, relationshipID uuid.UUID, changes map[string]any) (core.ChaseRelationship, error) {
	var rel model.ChaseRelationship
	_, err := s.commit(ctx, op, func(m *mutation) error {
		var err error
		if rel, err = find[model.ChaseRelationship](m.tx, "chase relationship", relationshipID); err != nil {
			return err
		}
		if err := m.tx.Model(&model.ChaseRelationship{}).Where("id = ?", rel.ID).Updates(changes).Error; err != nil {
			return fmt.Errorf("updating chase relationship: %w", err)
		}
		if rel, err = find[model.ChaseRelationship](m.tx, "chase relationship", relationshipID); err != nil {
			return err
		}
		details := map[string]any{"relationshipId": rel.ID}
		for k, v := range changes {
			details[k] = v
		}
		return m.record(rel.FightID, "chase updated", details)
	})
	if err != nil {
		return core.ChaseRelationship{}, err
	}
	return convert.ChaseToCore(rel), nil
}
