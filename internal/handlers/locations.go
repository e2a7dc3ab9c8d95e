package handlers

import (
	"context"

	"github.com/chiwar/fightcore/internal/dispatcher"
	"github.com/chiwar/fightcore/internal/encounter"
	"github.com/chiwar/fightcore/internal/util"
	"github.com/chiwar/fightcore/pkg/core"

	"github.com/google/uuid"
)

// locationRequest is the JSON argument of location.create.
type locationRequest struct {
	FightID     *uuid.UUID `json:"fightId"`
	SiteID      *uuid.UUID `json:"siteId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	PositionX   *float64   `json:"positionX"`
	PositionY   *float64   `json:"positionY"`
	Width       *float64   `json:"width"`
	Height      *float64   `json:"height"`
}

func (s *Service) registerLocations(d *dispatcher.Dispatcher) {
	enc := s.deps.Encounter

	d.Register("location.create", handle(func(ctx context.Context, a *args) (core.Location, error) {
		var req locationRequest
		a.object(0, &req)
		if a.err != nil {
			return core.Location{}, nil
		}
		return enc.CreateLocation(ctx, encounter.LocationSpec{
			FightID:     req.FightID,
			SiteID:      req.SiteID,
			Name:        req.Name,
			Description: req.Description,
			PositionX:   req.PositionX,
			PositionY:   req.PositionY,
			Width:       req.Width,
			Height:      req.Height,
		})
	}), dispatcher.Logged())

	d.Register("location.delete", handle(func(ctx context.Context, a *args) (doneResult, error) {
		locationID := a.uuid(0, "location id")
		if a.err != nil {
			return doneResult{}, nil
		}
		if err := enc.DeleteLocation(ctx, locationID); err != nil {
			return doneResult{}, err
		}
		return done, nil
	}), dispatcher.Logged())

	d.Register("location.connect", handle(func(ctx context.Context, a *args) (core.LocationConnection, error) {
		a.require(2)
		fromID := a.uuid(0, "from location id")
		toID := a.uuid(1, "to location id")
		bidirectional := a.bool(2, true)
		if a.err != nil {
			return core.LocationConnection{}, nil
		}
		return enc.Connect(ctx, fromID, toID, bidirectional, util.OptionalString(a.str(3)))
	}), dispatcher.Logged())

	d.Register("location.place", handle(func(ctx context.Context, a *args) (core.Shot, error) {
		shotID := a.uuid(0, "shot id")
		locationID := a.optionalUUID(1, "location id")
		if a.err != nil {
			return core.Shot{}, nil
		}
		return enc.PlaceShot(withShot(ctx, shotID), shotID, locationID)
	}), dispatcher.Logged())

	d.Register("location.list", handle(func(ctx context.Context, a *args) ([]core.Location, error) {
		fightID := a.uuid(0, "fight id")
		if a.err != nil {
			return nil, nil
		}
		return enc.LocationsForFight(withFight(ctx, fightID), fightID)
	}))

	d.Register("location.connections", handle(func(ctx context.Context, a *args) ([]core.LocationConnection, error) {
		fightID := a.uuid(0, "fight id")
		if a.err != nil {
			return nil, nil
		}
		return enc.ConnectionsForFight(withFight(ctx, fightID), fightID)
	}))

	d.Register("location.copySite", handle(func(ctx context.Context, a *args) ([]core.Location, error) {
		a.require(2)
		siteID := a.uuid(0, "site id")
		fightID := a.uuid(1, "fight id")
		if a.err != nil {
			return nil, nil
		}
		return enc.CopySiteLocations(withFight(ctx, fightID), siteID, fightID)
	}), dispatcher.Logged())

	d.Register("location.at", handle(func(ctx context.Context, a *args) ([]core.Location, error) {
		a.require(3)
		fightID := a.uuid(0, "fight id")
		x := a.float(1, "x")
		y := a.float(2, "y")
		if a.err != nil {
			return nil, nil
		}
		return enc.LocationsAt(withFight(ctx, fightID), fightID, x, y)
	}))
}
