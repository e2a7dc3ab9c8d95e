package encounter

import (
	"context"
	"fmt"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssignDriver pairs a driver shot with a vehicle shot. Both pointers are
// written together and any previous pairing of either shot is cleared first.
func (s *Service) AssignDriver(ctx context.Context, driverShotID, vehicleShotID uuid.UUID) error {
	if driverShotID == vehicleShotID {
		return fighterr.ErrSelfReference
	}
	_, err := s.commit(ctx, "driver.assign", func(m *mutation) error {
		driver, err := findShot(m.tx, driverShotID)
		if err != nil {
			return err
		}
		vehicle, err := findShot(m.tx, vehicleShotID)
		if err != nil {
			return err
		}
		if driver.FightID != vehicle.FightID {
			return fighterr.Newf(fighterr.CodeCrossFightReference, "shots %s and %s are in different fights", driver.ID, vehicle.ID)
		}
		if vehicle.VehicleID == nil {
			return fighterr.Newf(fighterr.CodeInvalidValue, "shot %s is not a vehicle", vehicle.ID)
		}
		if driver.VehicleID != nil {
			return fighterr.Newf(fighterr.CodeInvalidValue, "vehicle shot %s cannot drive", driver.ID)
		}

		if err := unlinkDriver(m.tx, driver.ID); err != nil {
			return err
		}
		if err := unlinkVehicle(m.tx, vehicle.ID); err != nil {
			return err
		}
		if err := m.tx.Model(&model.Shot{}).Where("id = ?", driver.ID).Update("driving_id", vehicle.ID).Error; err != nil {
			return fmt.Errorf("setting driving link: %w", err)
		}
		if err := m.tx.Model(&model.Shot{}).Where("id = ?", vehicle.ID).Update("driver_id", driver.ID).Error; err != nil {
			return fmt.Errorf("setting driver link: %w", err)
		}

		return m.record(driver.FightID, "driver assigned", map[string]any{
			"driverShotId":  driver.ID,
			"vehicleShotId": vehicle.ID,
		})
	})
	return err
}

// UnassignDriver clears both directions of the driver's pairing.
func (s *Service) UnassignDriver(ctx context.Context, driverShotID uuid.UUID) error {
	_, err := s.commit(ctx, "driver.unassign", func(m *mutation) error {
		driver, err := findShot(m.tx, driverShotID)
		if err != nil {
			return err
		}
		if err := unlinkDriver(m.tx, driver.ID); err != nil {
			return err
		}
		return m.record(driver.FightID, "driver unassigned", map[string]any{"driverShotId": driver.ID})
	})
	return err
}

// ClearDriversOfVehicle clears every shot in the fight that drives the
// vehicle shot, along with the vehicle's own driver pointer. It returns the
// number of driver shots cleared.
func (s *Service) ClearDriversOfVehicle(ctx context.Context, fightID, vehicleShotID uuid.UUID) (int64, error) {
	var cleared int64
	_, err := s.commit(ctx, "driver.clear", func(m *mutation) error {
		if _, err := findFight(m.tx, fightID); err != nil {
			return err
		}
		vehicle, err := findShot(m.tx, vehicleShotID)
		if err != nil {
			return err
		}
		if vehicle.FightID != fightID {
			return fighterr.Newf(fighterr.CodeCrossFightReference, "shot %s is not in fight %s", vehicle.ID, fightID)
		}

		res := m.tx.Model(&model.Shot{}).Where("fight_id = ? AND driving_id = ?", fightID, vehicle.ID).Update("driving_id", nil)
		if res.Error != nil {
			return fmt.Errorf("clearing drivers: %w", res.Error)
		}
		cleared = res.RowsAffected
		if err := m.tx.Model(&model.Shot{}).Where("id = ?", vehicle.ID).Update("driver_id", nil).Error; err != nil {
			return fmt.Errorf("clearing vehicle driver: %w", err)
		}

		return m.record(fightID, "drivers cleared", map[string]any{
			"vehicleShotId": vehicle.ID,
			"cleared":       cleared,
		})
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}

// unlinkDriver clears the driver's driving_id and the driver_id of whatever
// vehicle points back at it.
func unlinkDriver(tx *gorm.DB, driverID uuid.UUID) error {
	if err := tx.Model(&model.Shot{}).Where("driver_id = ?", driverID).Update("driver_id", nil).Error; err != nil {
		return fmt.Errorf("clearing vehicle driver: %w", err)
	}
	if err := tx.Model(&model.Shot{}).Where("id = ?", driverID).Update("driving_id", nil).Error; err != nil {
		return fmt.Errorf("clearing driving link: %w", err)
	}
	return nil
}

// unlinkVehicle clears the vehicle's driver_id and the driving_id of every
// shot pointing at it.
func unlinkVehicle(tx *gorm.DB, vehicleID uuid.UUID) error {
	if err := tx.Model(&model.Shot{}).Where("driving_id = ?", vehicleID).Update("driving_id", nil).Error; err != nil {
		return fmt.Errorf("clearing drivers of vehicle: %w", err)
	}
	if err := tx.Model(&model.Shot{}).Where("id = ?", vehicleID).Update("driver_id", nil).Error; err != nil {
		return fmt.Errorf("clearing vehicle driver: %w", err)
	}
	return nil
}
