package encounter

import (
	"context"
	"testing"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chaseFixture(t *testing.T) (*fixture, uuid.UUID, uuid.UUID) {
	t.Helper()
	f := newFixture(t)
	pursuer := f.vehicleShot(t, f.fightID, f.vehicle(t, "Police Cruiser"))
	evader := f.vehicleShot(t, f.fightID, f.vehicle(t, "Getaway Car"))
	return f, pursuer, evader
}

func TestCreateRelationship_DefaultsToFar(t *testing.T) {
	f, pursuer, evader := chaseFixture(t)

	rel, err := f.svc.CreateRelationship(context.Background(), f.fightID, pursuer, evader, "")
	require.NoError(t, err)

	assert.Equal(t, model.PositionFar, rel.Position)
	assert.True(t, rel.Active)
	assert.Equal(t, pursuer, rel.PursuerID)
	assert.Equal(t, evader, rel.EvaderID)
}

func TestCreateRelationship_SelfReferenceCreatesNoRow(t *testing.T) {
	f, pursuer, _ := chaseFixture(t)

	_, err := f.svc.CreateRelationship(context.Background(), f.fightID, pursuer, pursuer, model.PositionNear)
	assert.ErrorIs(t, err, fighterr.ErrSelfReference)
	assert.Equal(t, fighterr.KindValidation, fighterr.KindOf(err))

	var n int64
	require.NoError(t, f.db.Model(&model.ChaseRelationship{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateRelationship_DuplicateActiveThenRecreate(t *testing.T) {
	f, pursuer, evader := chaseFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateRelationship(ctx, f.fightID, pursuer, evader, model.PositionFar)
	require.NoError(t, err)

	_, err = f.svc.CreateRelationship(ctx, f.fightID, pursuer, evader, model.PositionNear)
	assert.ErrorIs(t, err, fighterr.ErrDuplicateActiveRelationship)
	assert.True(t, fighterr.IsConflict(err))

	_, err = f.svc.DeactivateRelationship(ctx, first.ID)
	require.NoError(t, err)

	second, err := f.svc.CreateRelationship(ctx, f.fightID, pursuer, evader, model.PositionFar)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// the reversed pair is a different edge
	_, err = f.svc.CreateRelationship(ctx, f.fightID, evader, pursuer, model.PositionFar)
	assert.NoError(t, err)
}

func TestCreateRelationship_Validation(t *testing.T) {
	f, pursuer, evader := chaseFixture(t)
	ctx := context.Background()
	other := f.newFight(t, "Highway")
	stranger := f.vehicleShot(t, other, f.vehicle(t, "Semi"))

	_, err := f.svc.CreateRelationship(ctx, f.fightID, pursuer, evader, "adjacent")
	assert.ErrorIs(t, err, fighterr.ErrInvalidPosition)

	_, err = f.svc.CreateRelationship(ctx, f.fightID, pursuer, stranger, "")
	assert.ErrorIs(t, err, fighterr.ErrCrossFightReference)

	_, err = f.svc.CreateRelationship(ctx, f.fightID, pursuer, uuid.New(), "")
	assert.True(t, fighterr.IsNotFound(err))
}

func TestCreateRelationship_RequiresVehicleShots(t *testing.T) {
	f, pursuer, _ := chaseFixture(t)
	ctx := context.Background()
	thug := f.characterShot(t, f.fightID, f.character(t, "Thug"))
	boss := f.characterShot(t, f.fightID, f.character(t, "Boss"))
	published := f.pub.count()

	_, err := f.svc.CreateRelationship(ctx, f.fightID, thug, boss, "")
	assert.ErrorIs(t, err, fighterr.ErrInvalidValue)

	_, err = f.svc.CreateRelationship(ctx, f.fightID, pursuer, thug, "")
	assert.ErrorIs(t, err, fighterr.ErrInvalidValue)

	var n int64
	require.NoError(t, f.db.Model(&model.ChaseRelationship{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, published, f.pub.count())
}

func TestUpdatePosition(t *testing.T) {
	f, pursuer, evader := chaseFixture(t)
	ctx := context.Background()
	rel, err := f.svc.CreateRelationship(ctx, f.fightID, pursuer, evader, "")
	require.NoError(t, err)

	updated, err := f.svc.UpdatePosition(ctx, rel.ID, model.PositionNear)
	require.NoError(t, err)
	assert.Equal(t, model.PositionNear, updated.Position)

	_, err = f.svc.UpdatePosition(ctx, rel.ID, "")
	assert.ErrorIs(t, err, fighterr.ErrInvalidPosition)

	_, err = f.svc.UpdatePosition(ctx, uuid.New(), model.PositionFar)
	assert.True(t, fighterr.IsNotFound(err))
}

func TestActiveRelationshipsForFight(t *testing.T) {
	f, pursuer, evader := chaseFixture(t)
	ctx := context.Background()
	third := f.vehicleShot(t, f.fightID, f.vehicle(t, "Helicopter"))

	ended, err := f.svc.CreateRelationship(ctx, f.fightID, pursuer, evader, "")
	require.NoError(t, err)
	live, err := f.svc.CreateRelationship(ctx, f.fightID, third, evader, model.PositionNear)
	require.NoError(t, err)
	_, err = f.svc.DeactivateRelationship(ctx, ended.ID)
	require.NoError(t, err)

	active, err := f.svc.ActiveRelationshipsForFight(ctx, f.fightID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, live.ID, active[0].ID)

	// history is kept
	var n int64
	require.NoError(t, f.db.Model(&model.ChaseRelationship{}).Where("fight_id = ?", f.fightID).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}
