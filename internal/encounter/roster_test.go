package encounter

import (
	"context"
	"testing"
	"time"

	"github.com/chiwar/fightcore/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterShot(characterID uuid.UUID, created time.Time) RosterShot {
	return RosterShot{ID: uuid.New(), CharacterID: &characterID, CreatedAt: created}
}

func TestPlanRoster_GrowsToDesiredCount(t *testing.T) {
	a := uuid.New()
	base := time.Now()
	current := []RosterShot{rosterShot(a, base), rosterShot(a, base.Add(time.Minute))}

	plan := PlanRoster(current, []uuid.UUID{a, a, a}, nil)

	assert.Equal(t, []uuid.UUID{a}, plan.AddCharacters)
	assert.Empty(t, plan.AddVehicles)
	assert.Empty(t, plan.Remove)
}

func TestPlanRoster_ShrinkRemovesNewestFirst(t *testing.T) {
	a := uuid.New()
	base := time.Now()
	oldest := rosterShot(a, base)
	middle := rosterShot(a, base.Add(time.Minute))
	newest := rosterShot(a, base.Add(2*time.Minute))

	plan := PlanRoster([]RosterShot{middle, newest, oldest}, []uuid.UUID{a}, nil)

	assert.Empty(t, plan.AddCharacters)
	assert.Equal(t, []uuid.UUID{newest.ID, middle.ID}, plan.Remove)
}

func TestPlanRoster_TiesBrokenByID(t *testing.T) {
	a := uuid.New()
	at := time.Now()
	x := rosterShot(a, at)
	y := rosterShot(a, at)

	plan := PlanRoster([]RosterShot{x, y}, []uuid.UUID{a}, nil)

	want := x.ID
	if y.ID.String() > x.ID.String() {
		want = y.ID
	}
	assert.Equal(t, []uuid.UUID{want}, plan.Remove)
}

func TestPlanRoster_DropsTemplatesNoLongerWanted(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	v := uuid.New()
	now := time.Now()
	shotA := rosterShot(a, now)
	shotV := RosterShot{ID: uuid.New(), VehicleID: &v, CreatedAt: now}

	plan := PlanRoster([]RosterShot{shotA, shotV}, []uuid.UUID{b, b}, nil)

	assert.Equal(t, []uuid.UUID{b, b}, plan.AddCharacters)
	assert.ElementsMatch(t, []uuid.UUID{shotA.ID, shotV.ID}, plan.Remove)
}

func TestPlanRoster_IgnoresPlaceholders(t *testing.T) {
	placeholder := RosterShot{ID: uuid.New(), CreatedAt: time.Now()}

	plan := PlanRoster([]RosterShot{placeholder}, nil, nil)

	assert.True(t, plan.Empty())
}

func TestPlanRoster_Vehicles(t *testing.T) {
	v := uuid.New()

	plan := PlanRoster(nil, nil, []uuid.UUID{v, v})

	assert.Equal(t, []uuid.UUID{v, v}, plan.AddVehicles)
	assert.Empty(t, plan.AddCharacters)
}

func TestReconcileRoster_AddsOneToReachThree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.character(t, "Mook")
	f.characterShot(t, f.fightID, a)
	f.characterShot(t, f.fightID, a)

	plan, err := f.svc.ReconcileRoster(ctx, f.fightID, []uuid.UUID{a, a, a}, nil)
	require.NoError(t, err)
	assert.Len(t, plan.AddCharacters, 1)
	assert.Empty(t, plan.Remove)

	var n int64
	require.NoError(t, f.db.Model(&model.Shot{}).Where("fight_id = ? AND character_id = ?", f.fightID, a).Count(&n).Error)
	assert.EqualValues(t, 3, n)
}

func TestReconcileRoster_ShrinkRemovesNewestAndNullsLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.character(t, "Mook")
	taxi := f.vehicle(t, "Taxi")
	car := f.vehicleShot(t, f.fightID, taxi)
	oldest := f.characterShot(t, f.fightID, a)
	middle := f.characterShot(t, f.fightID, a)
	newest := f.characterShot(t, f.fightID, a)
	require.NoError(t, f.svc.AssignDriver(ctx, newest, car))

	plan, err := f.svc.ReconcileRoster(ctx, f.fightID, []uuid.UUID{a}, []uuid.UUID{taxi})
	require.NoError(t, err)
	assert.Empty(t, plan.AddVehicles)
	assert.Equal(t, []uuid.UUID{newest, middle}, plan.Remove)

	var remaining []model.Shot
	require.NoError(t, f.db.Where("fight_id = ? AND character_id = ?", f.fightID, a).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, oldest, remaining[0].ID)

	// the vehicle no longer points at its deleted driver
	assert.Nil(t, f.shot(t, car).DriverID)
}

func TestReconcileRoster_RollsBackOnMissingTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.character(t, "Mook")
	f.characterShot(t, f.fightID, a)
	f.characterShot(t, f.fightID, a)

	_, err := f.svc.ReconcileRoster(ctx, f.fightID, []uuid.UUID{uuid.New()}, nil)
	require.Error(t, err)

	var n int64
	require.NoError(t, f.db.Model(&model.Shot{}).Where("fight_id = ?", f.fightID).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}
