package encounter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/internal/model/convert"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/gorm"
)

// LocationSpec describes a new location. Exactly one of FightID and SiteID
// must be set.
type LocationSpec struct {
	FightID     *uuid.UUID
	SiteID      *uuid.UUID
	Name        string
	Description string
	PositionX   *float64
	PositionY   *float64
	Width       *float64
	Height      *float64
}

// CreateLocation adds a named location to a fight or a site. Names are
// unique within the scope, ignoring case.
func (s *Service) CreateLocation(ctx context.Context, spec LocationSpec) (core.Location, error) {
	if (spec.FightID == nil) == (spec.SiteID == nil) {
		return core.Location{}, fighterr.ErrInvalidScope
	}
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return core.Location{}, fighterr.New(fighterr.CodeInvalidValue, "location name is required")
	}

	var loc model.Location
	_, err := s.commit(ctx, "location.create", func(m *mutation) error {
		if spec.FightID != nil {
			if _, err := findFight(m.tx, *spec.FightID); err != nil {
				return err
			}
		} else if _, err := find[model.Site](m.tx, "site", *spec.SiteID); err != nil {
			return err
		}

		loc = model.Location{
			FightID:     spec.FightID,
			SiteID:      spec.SiteID,
			Name:        spec.Name,
			Description: spec.Description,
			PositionX:   spec.PositionX,
			PositionY:   spec.PositionY,
			Width:       spec.Width,
			Height:      spec.Height,
		}
		if err := insertLocation(m.tx, &loc); err != nil {
			return err
		}
		if spec.FightID != nil {
			return m.record(*spec.FightID, "location created", map[string]any{"locationId": loc.ID, "name": loc.Name})
		}
		return nil
	})
	if err != nil {
		return core.Location{}, err
	}
	return convert.LocationToCore(loc), nil
}

// DeleteLocation removes a location, its connections and any shot placement.
func (s *Service) DeleteLocation(ctx context.Context, locationID uuid.UUID) error {
	_, err := s.commit(ctx, "location.delete", func(m *mutation) error {
		loc, err := find[model.Location](m.tx, "location", locationID)
		if err != nil {
			return err
		}
		if err := m.tx.Model(&model.Shot{}).Where("location_id = ?", loc.ID).Update("location_id", nil).Error; err != nil {
			return fmt.Errorf("clearing shot placements: %w", err)
		}
		if err := m.tx.Model(&model.Location{}).Where("copied_from_id = ?", loc.ID).Update("copied_from_id", nil).Error; err != nil {
			return fmt.Errorf("clearing copy provenance: %w", err)
		}
		if err := m.tx.Where("from_location_id = ? OR to_location_id = ?", loc.ID, loc.ID).
			Delete(&model.LocationConnection{}).Error; err != nil {
			return fmt.Errorf("deleting connections: %w", err)
		}
		if err := m.tx.Delete(&model.Location{}, "id = ?", loc.ID).Error; err != nil {
			return fmt.Errorf("deleting location: %w", err)
		}
		if loc.FightID != nil {
			return m.record(*loc.FightID, "location deleted", map[string]any{"locationId": loc.ID})
		}
		return nil
	})
	return err
}

// Connect adds an edge between two locations of the same scope. Parallel
// edges are allowed.
func (s *Service) Connect(ctx context.Context, fromID, toID uuid.UUID, bidirectional bool, label *string) (core.LocationConnection, error) {
	if fromID == toID {
		return core.LocationConnection{}, fighterr.New(fighterr.CodeSelfReference, "a location cannot connect to itself")
	}

	var conn model.LocationConnection
	_, err := s.commit(ctx, "location.connect", func(m *mutation) error {
		from, err := find[model.Location](m.tx, "location", fromID)
		if err != nil {
			return err
		}
		to, err := find[model.Location](m.tx, "location", toID)
		if err != nil {
			return err
		}
		if !sameScope(from, to) {
			return fighterr.Newf(fighterr.CodeCrossFightReference, "locations %s and %s are in different scopes", from.ID, to.ID)
		}

		conn = model.LocationConnection{
			FromLocationID: from.ID,
			ToLocationID:   to.ID,
			Bidirectional:  bidirectional,
			Label:          label,
		}
		if err := m.tx.Create(&conn).Error; err != nil {
			return fmt.Errorf("creating connection: %w", err)
		}
		if from.FightID != nil {
			return m.record(*from.FightID, "locations connected", map[string]any{"connectionId": conn.ID})
		}
		return nil
	})
	if err != nil {
		return core.LocationConnection{}, err
	}
	return convert.ConnectionToCore(conn), nil
}

// PlaceShot moves a shot into a location of its own fight. A nil location
// clears the placement.
func (s *Service) PlaceShot(ctx context.Context, shotID uuid.UUID, locationID *uuid.UUID) (core.Shot, error) {
	var shot model.Shot
	_, err := s.commit(ctx, "location.place", func(m *mutation) error {
		var err error
		if shot, err = findShot(m.tx, shotID); err != nil {
			return err
		}
		if locationID != nil {
			loc, err := find[model.Location](m.tx, "location", *locationID)
			if err != nil {
				return err
			}
			if loc.FightID == nil || *loc.FightID != shot.FightID {
				return fighterr.Newf(fighterr.CodeCrossFightReference, "location %s is not in the shot's fight", loc.ID)
			}
		}
		if err := m.tx.Model(&model.Shot{}).Where("id = ?", shot.ID).Update("location_id", locationID).Error; err != nil {
			return fmt.Errorf("placing shot: %w", err)
		}
		shot.LocationID = locationID
		return m.record(shot.FightID, "shot placed", map[string]any{"shotId": shot.ID, "locationId": locationID})
	})
	if err != nil {
		return core.Shot{}, err
	}
	return shotView(s.db.WithContext(ctx), shot)
}

// LocationsForFight lists the fight's locations by name.
func (s *Service) LocationsForFight(ctx context.Context, fightID uuid.UUID) ([]core.Location, error) {
	db := s.db.WithContext(ctx)
	if _, err := findFight(db, fightID); err != nil {
		return nil, err
	}
	rows, err := locationsForFight(db, fightID)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]core.Location, 0, len(rows))
	for _, l := range rows {
		out = append(out, convert.LocationToCore(l))
	}
	return out, nil
}

// ConnectionsForFight lists every connection between the fight's locations.
func (s *Service) ConnectionsForFight(ctx context.Context, fightID uuid.UUID) ([]core.LocationConnection, error) {
	db := s.db.WithContext(ctx)
	if _, err := findFight(db, fightID); err != nil {
		return nil, err
	}
	locations, err := locationsForFight(db, fightID)
	if err != nil {
		return nil, translate(err)
	}
	rows, err := connectionsAmong(db, locations)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]core.LocationConnection, 0, len(rows))
	for _, c := range rows {
		out = append(out, convert.ConnectionToCore(c))
	}
	return out, nil
}

// CopySiteLocations copies a site's locations and the connections between
// them into the fight. Copies keep a reference to their source.
func (s *Service) CopySiteLocations(ctx context.Context, siteID, fightID uuid.UUID) ([]core.Location, error) {
	var copies []model.Location
	_, err := s.commit(ctx, "location.copy_site", func(m *mutation) error {
		if _, err := find[model.Site](m.tx, "site", siteID); err != nil {
			return err
		}
		if _, err := findFight(m.tx, fightID); err != nil {
			return err
		}

		var sources []model.Location
		if err := m.tx.Where("site_id = ?", siteID).Order("name, id").Find(&sources).Error; err != nil {
			return fmt.Errorf("loading site locations: %w", err)
		}

		mapped := make(map[uuid.UUID]uuid.UUID, len(sources))
		for _, src := range sources {
			src := src
			loc := model.Location{
				FightID:      &fightID,
				Name:         src.Name,
				Description:  src.Description,
				PositionX:    src.PositionX,
				PositionY:    src.PositionY,
				Width:        src.Width,
				Height:       src.Height,
				CopiedFromID: &src.ID,
			}
			if err := insertLocation(m.tx, &loc); err != nil {
				return err
			}
			mapped[src.ID] = loc.ID
			copies = append(copies, loc)
		}

		conns, err := connectionsAmong(m.tx, sources)
		if err != nil {
			return err
		}
		for _, c := range conns {
			copied := model.LocationConnection{
				FromLocationID: mapped[c.FromLocationID],
				ToLocationID:   mapped[c.ToLocationID],
				Bidirectional:  c.Bidirectional,
				Label:          c.Label,
			}
			if err := m.tx.Create(&copied).Error; err != nil {
				return fmt.Errorf("copying connection: %w", err)
			}
		}

		return m.record(fightID, "site locations copied", map[string]any{
			"siteId":      siteID,
			"locations":   len(copies),
			"connections": len(conns),
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]core.Location, 0, len(copies))
	for _, l := range copies {
		out = append(out, convert.LocationToCore(l))
	}
	return out, nil
}

// LocationsAt returns the fight's locations whose rectangle contains the
// point. Locations without a full position and size are skipped.
func (s *Service) LocationsAt(ctx context.Context, fightID uuid.UUID, x, y float64) ([]core.Location, error) {
	db := s.db.WithContext(ctx)
	if _, err := findFight(db, fightID); err != nil {
		return nil, err
	}
	rows, err := locationsForFight(db, fightID)
	if err != nil {
		return nil, translate(err)
	}

	pt := geom.XY{X: x, Y: y}
	out := []core.Location{}
	for _, l := range rows {
		env, ok, err := bounds(l)
		if err != nil {
			return nil, fighterr.Wrap(fighterr.CodeInternal, fmt.Sprintf("bounds of location %s", l.ID), err)
		}
		if ok && env.Contains(pt) {
			out = append(out, convert.LocationToCore(l))
		}
	}
	return out, nil
}

// bounds is the location's rectangle, anchored at its position.
func bounds(l model.Location) (geom.Envelope, bool, error) {
	if l.PositionX == nil || l.PositionY == nil || l.Width == nil || l.Height == nil {
		return geom.Envelope{}, false, nil
	}
	minXY := geom.XY{X: *l.PositionX, Y: *l.PositionY}
	maxXY := geom.XY{X: *l.PositionX + *l.Width, Y: *l.PositionY + *l.Height}
	env, err := geom.NewEnvelope([]geom.XY{minXY, maxXY})
	if err != nil {
		return geom.Envelope{}, false, err
	}
	return env, true, nil
}

// insertLocation checks the scope's case-insensitive name uniqueness before
// inserting; the unique index is the backstop.
func insertLocation(tx *gorm.DB, loc *model.Location) error {
	q := tx.Model(&model.Location{}).Where("lower(name) = ?", strings.ToLower(loc.Name))
	if loc.FightID != nil {
		q = q.Where("fight_id = ?", *loc.FightID)
	} else {
		q = q.Where("site_id = ?", *loc.SiteID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("checking location name: %w", err)
	}
	if n > 0 {
		return fighterr.Newf(fighterr.CodeDuplicateName, "location %q already exists", loc.Name)
	}
	if err := tx.Create(loc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fighterr.Wrap(fighterr.CodeDuplicateName, "location name already exists", err)
		}
		return fmt.Errorf("creating location: %w", err)
	}
	return nil
}

func sameScope(a, b model.Location) bool {
	switch {
	case a.FightID != nil && b.FightID != nil:
		return *a.FightID == *b.FightID
	case a.SiteID != nil && b.SiteID != nil:
		return *a.SiteID == *b.SiteID
	default:
		return false
	}
}

func locationsForFight(db *gorm.DB, fightID uuid.UUID) ([]model.Location, error) {
	var rows []model.Location
	if err := db.Where("fight_id = ?", fightID).Order("name, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading locations: %w", err)
	}
	return rows, nil
}

// connectionsAmong returns connections whose source is one of the locations.
// Both ends always share a scope.
func connectionsAmong(db *gorm.DB, locations []model.Location) ([]model.LocationConnection, error) {
	if len(locations) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(locations))
	for i, l := range locations {
		ids[i] = l.ID
	}
	var rows []model.LocationConnection
	if err := db.Where("from_location_id IN ?", ids).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading connections: %w", err)
	}
	return rows, nil
}
