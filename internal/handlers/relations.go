package handlers

import (
	"context"

	"github.com/chiwar/fightcore/internal/dispatcher"
	"github.com/chiwar/fightcore/pkg/core"
)

func (s *Service) registerDrivers(d *dispatcher.Dispatcher) {
	enc := s.deps.Encounter

	d.Register("driver.assign", handle(func(ctx context.Context, a *args) (doneResult, error) {
		a.require(2)
		driverID := a.uuid(0, "driver shot id")
		vehicleID := a.uuid(1, "vehicle shot id")
		if a.err != nil {
			return doneResult{}, nil
		}
		if err := enc.AssignDriver(withShot(ctx, driverID), driverID, vehicleID); err != nil {
			return doneResult{}, err
		}
		return done, nil
	}), dispatcher.Logged())

	d.Register("driver.unassign", handle(func(ctx context.Context, a *args) (doneResult, error) {
		driverID := a.uuid(0, "driver shot id")
		if a.err != nil {
			return doneResult{}, nil
		}
		if err := enc.UnassignDriver(withShot(ctx, driverID), driverID); err != nil {
			return doneResult{}, err
		}
		return done, nil
	}), dispatcher.Logged())

	d.Register("driver.clear", handle(func(ctx context.Context, a *args) (countResult, error) {
		a.require(2)
		fightID := a.uuid(0, "fight id")
		vehicleID := a.uuid(1, "vehicle shot id")
		if a.err != nil {
			return countResult{}, nil
		}
		n, err := enc.ClearDriversOfVehicle(withFight(ctx, fightID), fightID, vehicleID)
		return countResult{Cleared: n}, err
	}), dispatcher.Logged())
}

func (s *Service) registerChases(d *dispatcher.Dispatcher) {
	enc := s.deps.Encounter

	d.Register("chase.create", handle(func(ctx context.Context, a *args) (core.ChaseRelationship, error) {
		a.require(3)
		fightID := a.uuid(0, "fight id")
		pursuerID := a.uuid(1, "pursuer id")
		evaderID := a.uuid(2, "evader id")
		if a.err != nil {
			return core.ChaseRelationship{}, nil
		}
		return enc.CreateRelationship(withFight(ctx, fightID), fightID, pursuerID, evaderID, a.str(3))
	}), dispatcher.Logged())

	d.Register("chase.position", handle(func(ctx context.Context, a *args) (core.ChaseRelationship, error) {
		a.require(2)
		relID := a.uuid(0, "relationship id")
		if a.err != nil {
			return core.ChaseRelationship{}, nil
		}
		return enc.UpdatePosition(ctx, relID, a.str(1))
	}), dispatcher.Logged())

	d.Register("chase.deactivate", handle(func(ctx context.Context, a *args) (core.ChaseRelationship, error) {
		relID := a.uuid(0, "relationship id")
		if a.err != nil {
			return core.ChaseRelationship{}, nil
		}
		return enc.DeactivateRelationship(ctx, relID)
	}), dispatcher.Logged())

	d.Register("chase.active", handle(func(ctx context.Context, a *args) ([]core.ChaseRelationship, error) {
		fightID := a.uuid(0, "fight id")
		if a.err != nil {
			return nil, nil
		}
		return enc.ActiveRelationshipsForFight(withFight(ctx, fightID), fightID)
	}))
}
