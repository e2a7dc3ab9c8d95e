package encounter

import (
	"context"
	"fmt"

	"github.com/chiwar/fightcore/internal/model"
	"github.com/google/uuid"
)

// FightEvents returns the fight's history, oldest first.
func (s *Service) FightEvents(ctx context.Context, fightID uuid.UUID) ([]model.FightEvent, error) {
	db := s.db.WithContext(ctx)
	if _, err := findFight(db, fightID); err != nil {
		return nil, err
	}
	var events []model.FightEvent
	if err := db.Where("fight_id = ?", fightID).Order("created_at, id").Find(&events).Error; err != nil {
		return nil, translate(fmt.Errorf("loading fight events: %w", err))
	}
	return events, nil
}
