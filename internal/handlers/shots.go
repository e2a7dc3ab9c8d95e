package handlers

import (
	"context"

	"github.com/chiwar/fightcore/internal/dispatcher"
	"github.com/chiwar/fightcore/internal/encounter"
	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/pkg/core"

	"github.com/google/uuid"
)

// shotUpdateRequest is the JSON argument of shot.update. A JSON null for
// shot clears the initiative.
type shotUpdateRequest struct {
	Shot               *int  `json:"shot"`
	ClearShot          bool  `json:"clearShot"`
	Impairments        *int  `json:"impairments"`
	Count              *int  `json:"count"`
	Acted              *bool `json:"acted"`
	WasRammedOrDamaged *bool `json:"wasRammedOrDamaged"`
}

type rosterResult struct {
	AddedCharacters []uuid.UUID `json:"addedCharacters"`
	AddedVehicles   []uuid.UUID `json:"addedVehicles"`
	Removed         []uuid.UUID `json:"removed"`
}

func (s *Service) registerShots(d *dispatcher.Dispatcher) {
	enc := s.deps.Encounter

	d.Register("shot.add", handle(func(ctx context.Context, a *args) (core.Shot, error) {
		fightID := a.uuid(0, "fight id")
		p := encounter.Participant{
			CharacterID: a.optionalUUID(1, "character id"),
			VehicleID:   a.optionalUUID(2, "vehicle id"),
		}
		if a.err != nil {
			return core.Shot{}, nil
		}
		return enc.AddParticipant(withFight(ctx, fightID), fightID, p)
	}), dispatcher.Logged())

	d.Register("shot.remove", handle(func(ctx context.Context, a *args) (doneResult, error) {
		shotID := a.uuid(0, "shot id")
		if a.err != nil {
			return doneResult{}, nil
		}
		if err := enc.RemoveParticipant(withShot(ctx, shotID), shotID); err != nil {
			return doneResult{}, err
		}
		return done, nil
	}), dispatcher.Logged())

	d.Register("shot.act", handle(func(ctx context.Context, a *args) (core.Shot, error) {
		a.require(2)
		shotID := a.uuid(0, "shot id")
		cost := a.int(1, "cost")
		if a.err != nil {
			return core.Shot{}, nil
		}
		return enc.Act(withShot(ctx, shotID), shotID, cost)
	}), dispatcher.Logged())

	d.Register("shot.update", handle(func(ctx context.Context, a *args) (core.Shot, error) {
		shotID := a.uuid(0, "shot id")
		var req shotUpdateRequest
		a.object(1, &req)
		if a.err != nil {
			return core.Shot{}, nil
		}
		if req.Shot != nil && req.ClearShot {
			return core.Shot{}, fighterr.New(fighterr.CodeInvalidValue, "shot and clearShot are exclusive")
		}
		return enc.UpdateShot(withShot(ctx, shotID), shotID, encounter.ShotUpdate{
			Shot:               req.Shot,
			ClearShot:          req.ClearShot,
			Impairments:        req.Impairments,
			Count:              req.Count,
			Acted:              req.Acted,
			WasRammedOrDamaged: req.WasRammedOrDamaged,
		})
	}), dispatcher.Logged())

	d.Register("roster.reconcile", handle(func(ctx context.Context, a *args) (rosterResult, error) {
		fightID := a.uuid(0, "fight id")
		characters := a.uuids(1, "character ids")
		vehicles := a.uuids(2, "vehicle ids")
		if a.err != nil {
			return rosterResult{}, nil
		}
		plan, err := enc.ReconcileRoster(withFight(ctx, fightID), fightID, characters, vehicles)
		if err != nil {
			return rosterResult{}, err
		}
		return rosterResult{
			AddedCharacters: nonNil(plan.AddCharacters),
			AddedVehicles:   nonNil(plan.AddVehicles),
			Removed:         nonNil(plan.Remove),
		}, nil
	}), dispatcher.Logged())
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
