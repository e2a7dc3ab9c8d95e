package handlers

import (
	"context"

	"github.com/chiwar/fightcore/internal/dispatcher"
	"github.com/chiwar/fightcore/internal/encounter"
	"github.com/chiwar/fightcore/pkg/core"

	"github.com/google/uuid"
)

// effectRequest is the JSON argument of effect.attach. Exactly one of the
// three target ids must be set.
type effectRequest struct {
	ShotID      *uuid.UUID `json:"shotId"`
	CharacterID *uuid.UUID `json:"characterId"`
	VehicleID   *uuid.UUID `json:"vehicleId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Severity    string     `json:"severity"`
	ActionValue string     `json:"actionValue"`
	Change      string     `json:"change"`
	EndSequence *int       `json:"endSequence"`
	EndShot     *int       `json:"endShot"`
}

func (s *Service) registerEffects(d *dispatcher.Dispatcher) {
	enc := s.deps.Encounter

	d.Register("effect.attach", handle(func(ctx context.Context, a *args) (core.Effect, error) {
		var req effectRequest
		a.object(0, &req)
		if a.err != nil {
			return core.Effect{}, nil
		}
		if req.ShotID != nil {
			ctx = withShot(ctx, *req.ShotID)
		}
		return enc.AttachEffect(ctx,
			encounter.EffectTarget{
				ShotID:      req.ShotID,
				CharacterID: req.CharacterID,
				VehicleID:   req.VehicleID,
			},
			encounter.EffectSpec{
				Name:        req.Name,
				Description: req.Description,
				Severity:    req.Severity,
				ActionValue: req.ActionValue,
				Change:      req.Change,
				EndSequence: req.EndSequence,
				EndShot:     req.EndShot,
			})
	}), dispatcher.Logged())

	d.Register("effect.detach", handle(func(ctx context.Context, a *args) (doneResult, error) {
		effectID := a.uuid(0, "effect id")
		if a.err != nil {
			return doneResult{}, nil
		}
		if err := enc.DetachEffect(ctx, effectID); err != nil {
			return doneResult{}, err
		}
		return done, nil
	}), dispatcher.Logged())

	d.Register("effect.active", handle(func(ctx context.Context, a *args) ([]core.Effect, error) {
		fightID := a.uuid(0, "fight id")
		if a.err != nil {
			return nil, nil
		}
		return enc.ActiveEffectsForFight(withFight(ctx, fightID), fightID)
	}))
}
