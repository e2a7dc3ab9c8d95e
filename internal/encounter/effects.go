package encounter

import (
	"context"
	"fmt"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/internal/model/convert"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EffectTarget names what an effect is attached to. At least one field must
// be set; when ShotID is set the effect belongs to that shot alone.
type EffectTarget struct {
	ShotID      *uuid.UUID
	CharacterID *uuid.UUID
	VehicleID   *uuid.UUID
}

// EffectSpec describes a new effect. A nil EndSequence never expires.
type EffectSpec struct {
	Name        string
	Description string
	Severity    string
	ActionValue string
	Change      string
	EndSequence *int
	EndShot     *int
}

// IsExpired reports whether the effect has lapsed for the shot at the
// fight's current clock. Expiry is reached once the fight's sequence passes
// end_sequence, or on end_sequence itself once the shot's initiative has
// fallen to end_shot. Without an end shot, or while the shot has no
// initiative, only passing end_sequence counts.
func IsExpired(effect model.CharacterEffect, fight model.Fight, shot model.Shot) bool {
	if effect.EndSequence == nil {
		return false
	}
	if fight.Sequence > *effect.EndSequence {
		return true
	}
	if fight.Sequence < *effect.EndSequence || effect.EndShot == nil || shot.Shot == nil {
		return false
	}
	return *shot.Shot <= *effect.EndShot
}

// AttachEffect stores a new effect on the target.
func (s *Service) AttachEffect(ctx context.Context, target EffectTarget, spec EffectSpec) (core.Effect, error) {
	if target.ShotID == nil && target.CharacterID == nil && target.VehicleID == nil {
		return core.Effect{}, fighterr.New(fighterr.CodeMissingReference, "an effect needs a shot, character or vehicle")
	}

	var effect model.CharacterEffect
	_, err := s.commit(ctx, "effect.attach", func(m *mutation) error {
		fights, err := effectFights(m.tx, target)
		if err != nil {
			return err
		}
		effect = model.CharacterEffect{
			ShotID:      target.ShotID,
			CharacterID: target.CharacterID,
			VehicleID:   target.VehicleID,
			Name:        spec.Name,
			Description: spec.Description,
			Severity:    spec.Severity,
			ActionValue: spec.ActionValue,
			Change:      spec.Change,
			EndSequence: spec.EndSequence,
			EndShot:     spec.EndShot,
		}
		if err := m.tx.Create(&effect).Error; err != nil {
			return fmt.Errorf("creating effect: %w", err)
		}
		for _, fightID := range fights {
			if err := m.record(fightID, "effect attached", map[string]any{"effectId": effect.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Effect{}, err
	}
	return convert.EffectToCore(effect), nil
}

// DetachEffect deletes an effect.
func (s *Service) DetachEffect(ctx context.Context, effectID uuid.UUID) error {
	_, err := s.commit(ctx, "effect.detach", func(m *mutation) error {
		effect, err := find[model.CharacterEffect](m.tx, "effect", effectID)
		if err != nil {
			return err
		}
		fights, err := effectFights(m.tx, EffectTarget{
			ShotID:      effect.ShotID,
			CharacterID: effect.CharacterID,
			VehicleID:   effect.VehicleID,
		})
		if err != nil {
			return err
		}
		if err := m.tx.Delete(&model.CharacterEffect{}, "id = ?", effect.ID).Error; err != nil {
			return fmt.Errorf("deleting effect: %w", err)
		}
		for _, fightID := range fights {
			if err := m.record(fightID, "effect detached", map[string]any{"effectId": effect.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// ActiveEffectsForFight lists the effects that are live for at least one
// shot of the fight, evaluated against the current clock.
func (s *Service) ActiveEffectsForFight(ctx context.Context, fightID uuid.UUID) ([]core.Effect, error) {
	db := s.db.WithContext(ctx)
	fight, err := findFight(db, fightID)
	if err != nil {
		return nil, err
	}
	shots, err := shotsForFight(db, fightID)
	if err != nil {
		return nil, translate(err)
	}
	live, err := liveEffects(db, fight, shots)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]core.Effect, 0, len(live))
	for _, le := range live {
		out = append(out, convert.EffectToCore(le.effect))
	}
	return out, nil
}

// liveEffect is an unexpired effect with the shots it is live for
type liveEffect struct {
	effect model.CharacterEffect
	owners map[uuid.UUID]bool
}

// liveEffects evaluates every effect reachable from the shots. Shot-owned
// effects are checked against their shot; template effects against each
// shot of that template.
func liveEffects(db *gorm.DB, fight model.Fight, shots []model.Shot) ([]liveEffect, error) {
	if len(shots) == 0 {
		return nil, nil
	}
	shotIDs := make([]uuid.UUID, 0, len(shots))
	byCharacter := make(map[uuid.UUID][]model.Shot)
	byVehicle := make(map[uuid.UUID][]model.Shot)
	byID := make(map[uuid.UUID]model.Shot, len(shots))
	for _, s := range shots {
		shotIDs = append(shotIDs, s.ID)
		byID[s.ID] = s
		if s.CharacterID != nil {
			byCharacter[*s.CharacterID] = append(byCharacter[*s.CharacterID], s)
		}
		if s.VehicleID != nil {
			byVehicle[*s.VehicleID] = append(byVehicle[*s.VehicleID], s)
		}
	}

	q := db.Where("shot_id IN ?", shotIDs)
	if ids := keys(byCharacter); len(ids) > 0 {
		q = q.Or("shot_id IS NULL AND character_id IN ?", ids)
	}
	if ids := keys(byVehicle); len(ids) > 0 {
		q = q.Or("shot_id IS NULL AND vehicle_id IN ?", ids)
	}
	var effects []model.CharacterEffect
	if err := q.Order("created_at, id").Find(&effects).Error; err != nil {
		return nil, fmt.Errorf("loading effects: %w", err)
	}

	var out []liveEffect
	for _, e := range effects {
		var candidates []model.Shot
		switch {
		case e.ShotID != nil:
			candidates = []model.Shot{byID[*e.ShotID]}
		default:
			if e.CharacterID != nil {
				candidates = append(candidates, byCharacter[*e.CharacterID]...)
			}
			if e.VehicleID != nil {
				candidates = append(candidates, byVehicle[*e.VehicleID]...)
			}
		}
		owners := make(map[uuid.UUID]bool)
		for _, shot := range candidates {
			if !IsExpired(e, fight, shot) {
				owners[shot.ID] = true
			}
		}
		if len(owners) > 0 {
			out = append(out, liveEffect{effect: e, owners: owners})
		}
	}
	return out, nil
}

// effectFights returns the fights whose view an effect on target changes.
func effectFights(tx *gorm.DB, target EffectTarget) ([]uuid.UUID, error) {
	if target.ShotID != nil {
		shot, err := findShot(tx, *target.ShotID)
		if err != nil {
			return nil, missingReference(err)
		}
		return []uuid.UUID{shot.FightID}, nil
	}
	if err := checkTemplates(tx, Participant{CharacterID: target.CharacterID, VehicleID: target.VehicleID}); err != nil {
		return nil, err
	}

	q := tx.Model(&model.Shot{}).
		Joins("JOIN fights ON fights.id = shots.fight_id AND fights.active = ?", true)
	switch {
	case target.CharacterID != nil && target.VehicleID != nil:
		q = q.Where("shots.character_id = ? OR shots.vehicle_id = ?", *target.CharacterID, *target.VehicleID)
	case target.CharacterID != nil:
		q = q.Where("shots.character_id = ?", *target.CharacterID)
	default:
		q = q.Where("shots.vehicle_id = ?", *target.VehicleID)
	}
	var ids []uuid.UUID
	if err := q.Pluck("shots.fight_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("finding fights for effect: %w", err)
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

func keys(m map[uuid.UUID][]model.Shot) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
