package encounter

import (
	"context"
	"fmt"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/google/uuid"
)

// CreateCampaign inserts a campaign.
func (s *Service) CreateCampaign(ctx context.Context, name string) (model.Campaign, error) {
	if name == "" {
		return model.Campaign{}, fighterr.New(fighterr.CodeInvalidValue, "campaign name is required")
	}
	c := model.Campaign{Name: name}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Campaign{}, translate(fmt.Errorf("creating campaign: %w", err))
	}
	return c, nil
}

// CreateCharacter inserts an active character template.
func (s *Service) CreateCharacter(ctx context.Context, campaignID uuid.UUID, name string) (model.Character, error) {
	c := model.Character{CampaignID: campaignID, Name: name, Active: true}
	err := s.createTemplate(ctx, campaignID, name, &c)
	return c, err
}

// CreateVehicle inserts an active vehicle template.
func (s *Service) CreateVehicle(ctx context.Context, campaignID uuid.UUID, name string) (model.Vehicle, error) {
	v := model.Vehicle{CampaignID: campaignID, Name: name, Active: true}
	err := s.createTemplate(ctx, campaignID, name, &v)
	return v, err
}

// CreateSite inserts an active site.
func (s *Service) CreateSite(ctx context.Context, campaignID uuid.UUID, name string) (model.Site, error) {
	site := model.Site{CampaignID: campaignID, Name: name, Active: true}
	err := s.createTemplate(ctx, campaignID, name, &site)
	return site, err
}

func (s *Service) createTemplate(ctx context.Context, campaignID uuid.UUID, name string, row any) error {
	if name == "" {
		return fighterr.New(fighterr.CodeInvalidValue, "name is required")
	}
	db := s.db.WithContext(ctx)
	if _, err := find[model.Campaign](db, "campaign", campaignID); err != nil {
		return missingReference(err)
	}
	if err := db.Create(row).Error; err != nil {
		return translate(fmt.Errorf("creating %T: %w", row, err))
	}
	return nil
}
