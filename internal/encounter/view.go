package encounter

import (
	"context"
	"fmt"

	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/internal/model/convert"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fight returns the hydrated fight: shots with their templates and live
// effects, active chase relationships, locations and connections.
func (s *Service) Fight(ctx context.Context, fightID uuid.UUID) (*core.Fight, error) {
	db := s.db.WithContext(ctx)

	fight, err := findFight(db, fightID)
	if err != nil {
		return nil, err
	}
	view := convert.FightToCore(fight)

	shots, err := shotsForFight(db, fightID)
	if err != nil {
		return nil, err
	}
	characters, vehicles, err := templatesFor(db, shots)
	if err != nil {
		return nil, err
	}
	live, err := liveEffects(db, fight, shots)
	if err != nil {
		return nil, err
	}

	for _, shot := range shots {
		out := convert.ShotToCore(shot, characters, vehicles)
		for _, le := range live {
			if le.owners[shot.ID] {
				out.Effects = append(out.Effects, convert.EffectToCore(le.effect))
			}
		}
		view.Shots = append(view.Shots, out)
	}

	var chases []model.ChaseRelationship
	if err := db.Where("fight_id = ? AND active = ?", fightID, true).
		Order("created_at, id").Find(&chases).Error; err != nil {
		return nil, fmt.Errorf("loading chase relationships: %w", err)
	}
	for _, c := range chases {
		view.Chases = append(view.Chases, convert.ChaseToCore(c))
	}

	locations, err := locationsForFight(db, fightID)
	if err != nil {
		return nil, err
	}
	for _, l := range locations {
		view.Locations = append(view.Locations, convert.LocationToCore(l))
	}
	connections, err := connectionsAmong(db, locations)
	if err != nil {
		return nil, err
	}
	for _, c := range connections {
		view.Connections = append(view.Connections, convert.ConnectionToCore(c))
	}

	return &view, nil
}

// shotsForFight returns shots in creation order.
func shotsForFight(db *gorm.DB, fightID uuid.UUID) ([]model.Shot, error) {
	var shots []model.Shot
	if err := db.Where("fight_id = ?", fightID).Order("created_at, id").Find(&shots).Error; err != nil {
		return nil, fmt.Errorf("loading shots: %w", err)
	}
	return shots, nil
}

func templatesFor(db *gorm.DB, shots []model.Shot) (map[uuid.UUID]core.Template, map[uuid.UUID]core.Template, error) {
	var charIDs, vehIDs []uuid.UUID
	for _, s := range shots {
		if s.CharacterID != nil {
			charIDs = append(charIDs, *s.CharacterID)
		}
		if s.VehicleID != nil {
			vehIDs = append(vehIDs, *s.VehicleID)
		}
	}

	characters := make(map[uuid.UUID]core.Template, len(charIDs))
	if len(charIDs) > 0 {
		var rows []model.Character
		if err := db.Where("id IN ?", charIDs).Find(&rows).Error; err != nil {
			return nil, nil, fmt.Errorf("loading characters: %w", err)
		}
		for _, c := range rows {
			characters[c.ID] = convert.CharacterToTemplate(c)
		}
	}

	vehicles := make(map[uuid.UUID]core.Template, len(vehIDs))
	if len(vehIDs) > 0 {
		var rows []model.Vehicle
		if err := db.Where("id IN ?", vehIDs).Find(&rows).Error; err != nil {
			return nil, nil, fmt.Errorf("loading vehicles: %w", err)
		}
		for _, v := range rows {
			vehicles[v.ID] = convert.VehicleToTemplate(v)
		}
	}
	return characters, vehicles, nil
}

// shotView converts a single shot with its templates resolved.
func shotView(db *gorm.DB, shot model.Shot) (core.Shot, error) {
	characters, vehicles, err := templatesFor(db, []model.Shot{shot})
	if err != nil {
		return core.Shot{}, err
	}
	return convert.ShotToCore(shot, characters, vehicles), nil
}
