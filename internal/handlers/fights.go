package handlers

import (
	"context"

	"github.com/chiwar/fightcore/internal/dispatcher"
	"github.com/chiwar/fightcore/internal/encounter"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/pkg/core"

	"github.com/google/uuid"
)

type templateResult struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type fightEventResult struct {
	ID          uuid.UUID `json:"id"`
	EventType   string    `json:"eventType"`
	Description string    `json:"description"`
	Details     any       `json:"details,omitempty"`
	CreatedAt   string    `json:"createdAt"`
}

func (s *Service) registerTemplates(d *dispatcher.Dispatcher) {
	enc := s.deps.Encounter

	d.Register("campaign.create", handle(func(ctx context.Context, a *args) (templateResult, error) {
		a.require(1)
		if a.err != nil {
			return templateResult{}, nil
		}
		c, err := enc.CreateCampaign(ctx, a.str(0))
		return templateResult{ID: c.ID, Name: c.Name}, err
	}))

	d.Register("character.create", handle(func(ctx context.Context, a *args) (templateResult, error) {
		a.require(2)
		campaignID := a.uuid(0, "campaign id")
		if a.err != nil {
			return templateResult{}, nil
		}
		c, err := enc.CreateCharacter(ctx, campaignID, a.str(1))
		return templateResult{ID: c.ID, Name: c.Name}, err
	}))

	d.Register("vehicle.create", handle(func(ctx context.Context, a *args) (templateResult, error) {
		a.require(2)
		campaignID := a.uuid(0, "campaign id")
		if a.err != nil {
			return templateResult{}, nil
		}
		v, err := enc.CreateVehicle(ctx, campaignID, a.str(1))
		return templateResult{ID: v.ID, Name: v.Name}, err
	}))

	d.Register("site.create", handle(func(ctx context.Context, a *args) (templateResult, error) {
		a.require(2)
		campaignID := a.uuid(0, "campaign id")
		if a.err != nil {
			return templateResult{}, nil
		}
		site, err := enc.CreateSite(ctx, campaignID, a.str(1))
		return templateResult{ID: site.ID, Name: site.Name}, err
	}))
}

func (s *Service) registerFights(d *dispatcher.Dispatcher) {
	enc := s.deps.Encounter

	d.Register("fight.create", handle(func(ctx context.Context, a *args) (*core.Fight, error) {
		a.require(2)
		campaignID := a.uuid(0, "campaign id")
		if a.err != nil {
			return nil, nil
		}
		return enc.CreateFight(ctx, encounter.FightSpec{
			CampaignID:  campaignID,
			Name:        a.str(1),
			Description: a.str(2),
		})
	}), dispatcher.Logged())

	// Commands that take a single fight id and return the fight view.
	byFight := map[string]func(context.Context, uuid.UUID) (*core.Fight, error){
		"fight.get":           enc.Fight,
		"fight.start":         enc.Start,
		"fight.advance":       enc.Advance,
		"fight.resetSequence": enc.ResetSequence,
		"fight.end":           enc.End,
	}
	for command, op := range byFight {
		d.Register(command, handle(func(ctx context.Context, a *args) (*core.Fight, error) {
			fightID := a.uuid(0, "fight id")
			if a.err != nil {
				return nil, nil
			}
			return op(withFight(ctx, fightID), fightID)
		}), dispatcher.Logged())
	}

	d.Register("fight.touch", handle(func(ctx context.Context, a *args) (doneResult, error) {
		fightID := a.uuid(0, "fight id")
		if a.err != nil {
			return doneResult{}, nil
		}
		ctx = withFight(ctx, fightID)
		if _, err := enc.Touch(ctx, fightID); err != nil {
			s.log.WarnContext(ctx, "touch failed", "error", err)
			return doneResult{}, err
		}
		return done, nil
	}), dispatcher.Buffered(256))

	d.Register("fight.reset", handle(func(ctx context.Context, a *args) (*core.Fight, error) {
		fightID := a.uuid(0, "fight id")
		purge := a.bool(1, false)
		if a.err != nil {
			return nil, nil
		}
		return enc.ResetFight(withFight(ctx, fightID), fightID, purge)
	}), dispatcher.Logged())

	d.Register("fight.events", handle(func(ctx context.Context, a *args) ([]fightEventResult, error) {
		fightID := a.uuid(0, "fight id")
		if a.err != nil {
			return nil, nil
		}
		events, err := enc.FightEvents(withFight(ctx, fightID), fightID)
		if err != nil {
			return nil, err
		}
		return eventResults(events), nil
	}))
}

func eventResults(events []model.FightEvent) []fightEventResult {
	out := make([]fightEventResult, 0, len(events))
	for _, e := range events {
		r := fightEventResult{
			ID:          e.ID,
			EventType:   e.EventType,
			Description: e.Description,
			CreatedAt:   e.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if len(e.Details) > 0 {
			r.Details = e.Details
		}
		out = append(out, r)
	}
	return out
}
