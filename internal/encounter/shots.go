package encounter

import (
	"context"
	"fmt"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Participant names the template a new shot instantiates. Leaving both nil
// creates a placeholder shot.
type Participant struct {
	CharacterID *uuid.UUID
	VehicleID   *uuid.UUID
}

// ShotUpdate lists the shot fields to change; nil fields are left alone.
type ShotUpdate struct {
	Shot               *int
	ClearShot          bool
	Impairments        *int
	Count              *int
	Acted              *bool
	WasRammedOrDamaged *bool
}

// AddParticipant inserts a shot for the participant with no initiative yet.
func (s *Service) AddParticipant(ctx context.Context, fightID uuid.UUID, p Participant) (core.Shot, error) {
	if p.CharacterID != nil && p.VehicleID != nil {
		return core.Shot{}, fighterr.New(fighterr.CodeInvalidValue, "a shot references a character or a vehicle, not both")
	}

	var shot model.Shot
	_, err := s.commit(ctx, "shot.add", func(m *mutation) error {
		if _, err := findFight(m.tx, fightID); err != nil {
			return err
		}
		var err error
		if shot, err = addShot(m, fightID, p); err != nil {
			return err
		}
		return m.record(fightID, "participant added", map[string]any{"shotId": shot.ID})
	})
	if err != nil {
		return core.Shot{}, err
	}
	return shotView(s.db.WithContext(ctx), shot)
}

// RemoveParticipant deletes the shot after clearing every reference into it.
func (s *Service) RemoveParticipant(ctx context.Context, shotID uuid.UUID) error {
	_, err := s.commit(ctx, "shot.remove", func(m *mutation) error {
		shot, err := findShot(m.tx, shotID)
		if err != nil {
			return err
		}
		if err := deleteShots(m.tx, []uuid.UUID{shot.ID}); err != nil {
			return err
		}
		return m.record(shot.FightID, "participant removed", map[string]any{"shotId": shot.ID})
	})
	return err
}

// ReconcileRoster grows or shrinks the fight's shots to match the desired
// multisets and returns the plan it applied.
func (s *Service) ReconcileRoster(ctx context.Context, fightID uuid.UUID, characterIDs, vehicleIDs []uuid.UUID) (RosterPlan, error) {
	var plan RosterPlan
	_, err := s.commit(ctx, "roster.reconcile", func(m *mutation) error {
		if _, err := findFight(m.tx, fightID); err != nil {
			return err
		}
		shots, err := shotsForFight(m.tx, fightID)
		if err != nil {
			return err
		}
		plan = PlanRoster(rosterOf(shots), characterIDs, vehicleIDs)

		for _, id := range plan.AddCharacters {
			id := id
			if _, err := addShot(m, fightID, Participant{CharacterID: &id}); err != nil {
				return err
			}
		}
		for _, id := range plan.AddVehicles {
			id := id
			if _, err := addShot(m, fightID, Participant{VehicleID: &id}); err != nil {
				return err
			}
		}
		if err := deleteShots(m.tx, plan.Remove); err != nil {
			return err
		}

		return m.record(fightID, "roster reconciled", map[string]any{
			"added":   len(plan.AddCharacters) + len(plan.AddVehicles),
			"removed": len(plan.Remove),
		})
	})
	if err != nil {
		return RosterPlan{}, err
	}
	return plan, nil
}

// Act spends cost from the shot's initiative and marks it acted. The value
// may go negative.
func (s *Service) Act(ctx context.Context, shotID uuid.UUID, cost int) (core.Shot, error) {
	if cost < 0 {
		return core.Shot{}, fighterr.Newf(fighterr.CodeInvalidValue, "cost must not be negative, got %d", cost)
	}
	return s.updateShot(ctx, "shot.act", shotID, func(shot model.Shot) (map[string]any, error) {
		if shot.Shot == nil {
			return nil, fighterr.Newf(fighterr.CodeInvalidValue, "shot %s has no initiative", shot.ID)
		}
		return map[string]any{"shot": *shot.Shot - cost, "acted": true}, nil
	})
}

// UpdateShot sets the given fields on a shot.
func (s *Service) UpdateShot(ctx context.Context, shotID uuid.UUID, u ShotUpdate) (core.Shot, error) {
	if u.Impairments != nil && *u.Impairments < 0 {
		return core.Shot{}, fighterr.Newf(fighterr.CodeInvalidValue, "impairments must not be negative, got %d", *u.Impairments)
	}
	return s.updateShot(ctx, "shot.update", shotID, func(model.Shot) (map[string]any, error) {
		changes := make(map[string]any)
		switch {
		case u.ClearShot:
			changes["shot"] = nil
		case u.Shot != nil:
			changes["shot"] = *u.Shot
		}
		if u.Impairments != nil {
			changes["impairments"] = *u.Impairments
		}
		if u.Count != nil {
			changes["count"] = *u.Count
		}
		if u.Acted != nil {
			changes["acted"] = *u.Acted
		}
		if u.WasRammedOrDamaged != nil {
			changes["was_rammed_or_damaged"] = *u.WasRammedOrDamaged
		}
		return changes, nil
	})
}

func (s *Service) updateShot(ctx context.Context, op string, shotID uuid.UUID, fn func(model.Shot) (map[string]any, error)) (core.Shot, error) {
	var shot model.Shot
	_, err := s.commit(ctx, op, func(m *mutation) error {
		var err error
		if shot, err = findShot(m.tx, shotID); err != nil {
			return err
		}
		changes, err := fn(shot)
		if err != nil {
			return err
		}
		if len(changes) > 0 {
			if err := m.tx.Model(&model.Shot{}).Where("id = ?", shotID).Updates(changes).Error; err != nil {
				return fmt.Errorf("updating shot: %w", err)
			}
		}
		if shot, err = findShot(m.tx, shotID); err != nil {
			return err
		}
		changes["shotId"] = shotID
		return m.record(shot.FightID, "shot updated", changes)
	})
	if err != nil {
		return core.Shot{}, err
	}
	return shotView(s.db.WithContext(ctx), shot)
}

func checkTemplates(tx *gorm.DB, p Participant) error {
	if p.CharacterID != nil {
		if _, err := find[model.Character](tx, "character", *p.CharacterID); err != nil {
			return missingReference(err)
		}
	}
	if p.VehicleID != nil {
		if _, err := find[model.Vehicle](tx, "vehicle", *p.VehicleID); err != nil {
			return missingReference(err)
		}
	}
	return nil
}

// missingReference reclassifies a not-found referenced record.
func missingReference(err error) error {
	if fighterr.IsNotFound(err) {
		return fighterr.Wrap(fighterr.CodeMissingReference, "referenced record does not exist", err)
	}
	return err
}

// addShot inserts a shot stamped with the mutation time, which orders
// roster removal.
func addShot(m *mutation, fightID uuid.UUID, p Participant) (model.Shot, error) {
	if err := checkTemplates(m.tx, p); err != nil {
		return model.Shot{}, err
	}
	shot := model.Shot{
		FightID:     fightID,
		CharacterID: p.CharacterID,
		VehicleID:   p.VehicleID,
		CreatedAt:   m.now,
	}
	if err := m.tx.Create(&shot).Error; err != nil {
		return model.Shot{}, fmt.Errorf("creating shot: %w", err)
	}
	return shot, nil
}

// deleteShots removes shots together with everything that points at them:
// driver links on other shots are nulled, chase relationships and effects
// owned by the shots are deleted.
func deleteShots(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Model(&model.Shot{}).Where("driver_id IN ?", ids).Update("driver_id", nil).Error; err != nil {
		return fmt.Errorf("clearing driver links: %w", err)
	}
	if err := tx.Model(&model.Shot{}).Where("driving_id IN ?", ids).Update("driving_id", nil).Error; err != nil {
		return fmt.Errorf("clearing driving links: %w", err)
	}
	if err := tx.Where("pursuer_id IN ? OR evader_id IN ?", ids, ids).Delete(&model.ChaseRelationship{}).Error; err != nil {
		return fmt.Errorf("deleting chase relationships: %w", err)
	}
	if err := tx.Where("shot_id IN ?", ids).Delete(&model.CharacterEffect{}).Error; err != nil {
		return fmt.Errorf("deleting effects: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&model.Shot{}).Error; err != nil {
		return fmt.Errorf("deleting shots: %w", err)
	}
	return nil
}
