// Package convert provides functions to convert GORM models to core view models
package convert

import (
	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
)

// LifecycleOf infers the lifecycle from the fight timestamps. An ended fight
// stays ended even if started_at was cleared.
func LifecycleOf(f model.Fight) core.Lifecycle {
	switch {
	case f.EndedAt != nil:
		return core.LifecycleEnded
	case f.StartedAt != nil:
		return core.LifecycleStarted
	default:
		return core.LifecycleUnstarted
	}
}

// FightToCore converts a GORM Fight to a core.Fight. Collections are left
// empty for the caller to fill.
func FightToCore(f model.Fight) core.Fight {
	return core.Fight{
		ID:          f.ID,
		CampaignID:  f.CampaignID,
		Name:        f.Name,
		Description: f.Description,
		Sequence:    f.Sequence,
		StartedAt:   f.StartedAt,
		EndedAt:     f.EndedAt,
		Active:      f.Active,
		Lifecycle:   LifecycleOf(f),
		UpdatedAt:   f.UpdatedAt,
		Shots:       []core.Shot{},
		Chases:      []core.ChaseRelationship{},
		Locations:   []core.Location{},
		Connections: []core.LocationConnection{},
	}
}

// CharacterToTemplate converts a GORM Character to a core.Template
func CharacterToTemplate(c model.Character) core.Template {
	return core.Template{ID: c.ID, Name: c.Name}
}

// VehicleToTemplate converts a GORM Vehicle to a core.Template
func VehicleToTemplate(v model.Vehicle) core.Template {
	return core.Template{ID: v.ID, Name: v.Name}
}

// ShotToCore converts a GORM Shot to a core.Shot. Templates are looked up by
// id; a missing entry leaves the association nil.
func ShotToCore(s model.Shot, characters, vehicles map[uuid.UUID]core.Template) core.Shot {
	out := core.Shot{
		ID:                 s.ID,
		Shot:               copyInt(s.Shot),
		Impairments:        s.Impairments,
		Count:              s.Count,
		Acted:              s.Acted,
		WasRammedOrDamaged: s.WasRammedOrDamaged,
		DriverID:           copyUUID(s.DriverID),
		DrivingID:          copyUUID(s.DrivingID),
		LocationID:         copyUUID(s.LocationID),
		Effects:            []core.Effect{},
		CreatedAt:          s.CreatedAt,
	}
	if s.CharacterID != nil {
		if t, ok := characters[*s.CharacterID]; ok {
			out.Character = &t
		}
	}
	if s.VehicleID != nil {
		if t, ok := vehicles[*s.VehicleID]; ok {
			out.Vehicle = &t
		}
	}
	return out
}

// EffectToCore converts a GORM CharacterEffect to a core.Effect
func EffectToCore(e model.CharacterEffect) core.Effect {
	return core.Effect{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Severity:    e.Severity,
		ActionValue: e.ActionValue,
		Change:      e.Change,
		EndSequence: copyInt(e.EndSequence),
		EndShot:     copyInt(e.EndShot),
	}
}

// ChaseToCore converts a GORM ChaseRelationship to a core.ChaseRelationship
func ChaseToCore(c model.ChaseRelationship) core.ChaseRelationship {
	return core.ChaseRelationship{
		ID:        c.ID,
		PursuerID: c.PursuerID,
		EvaderID:  c.EvaderID,
		Position:  c.Position,
		Active:    c.Active,
	}
}

// LocationToCore converts a GORM Location to a core.Location
func LocationToCore(l model.Location) core.Location {
	return core.Location{
		ID:           l.ID,
		Name:         l.Name,
		Description:  l.Description,
		PositionX:    copyFloat(l.PositionX),
		PositionY:    copyFloat(l.PositionY),
		Width:        copyFloat(l.Width),
		Height:       copyFloat(l.Height),
		CopiedFromID: copyUUID(l.CopiedFromID),
	}
}

// ConnectionToCore converts a GORM LocationConnection to a core.LocationConnection
func ConnectionToCore(c model.LocationConnection) core.LocationConnection {
	var label *string
	if c.Label != nil {
		v := *c.Label
		label = &v
	}
	return core.LocationConnection{
		ID:             c.ID,
		FromLocationID: c.FromLocationID,
		ToLocationID:   c.ToLocationID,
		Bidirectional:  c.Bidirectional,
		Label:          label,
	}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyUUID(p *uuid.UUID) *uuid.UUID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
