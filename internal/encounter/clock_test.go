package encounter

import (
	"context"
	"testing"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSequence(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{18, 17},
		{1, 0},
		{0, 18},
		{-3, 18},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextSequence(tt.in), "NextSequence(%d)", tt.in)
	}
}

func TestAdvance_NineteenStepsWrapAround(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ResetSequence(ctx, f.fightID)
	require.NoError(t, err)

	var view *core.Fight
	for i := 0; i < 18; i++ {
		view, err = f.svc.Advance(ctx, f.fightID)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, view.Sequence)

	view, err = f.svc.Advance(ctx, f.fightID)
	require.NoError(t, err)
	assert.Equal(t, 18, view.Sequence)
	assert.Equal(t, 18, f.fight(t, f.fightID).Sequence)
}

func TestAdvance_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Advance(context.Background(), uuid.New())
	assert.True(t, fighterr.IsNotFound(err))
}

func TestResetFight_NeutralizesEveryShot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.characterShot(t, f.fightID, f.character(t, "Ting Ting"))
	b := f.vehicleShot(t, f.fightID, f.vehicle(t, "Armored Sedan"))

	yes := true
	for _, id := range []uuid.UUID{a, b} {
		_, err := f.svc.UpdateShot(ctx, id, ShotUpdate{
			Shot:               intPtr(11),
			Impairments:        intPtr(2),
			Count:              intPtr(7),
			WasRammedOrDamaged: &yes,
		})
		require.NoError(t, err)
	}
	_, err := f.svc.Start(ctx, f.fightID)
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, f.fightID)
	require.NoError(t, err)
	_, err = f.svc.End(ctx, f.fightID)
	require.NoError(t, err)

	view, err := f.svc.ResetFight(ctx, f.fightID, false)
	require.NoError(t, err)

	assert.Equal(t, 0, view.Sequence)
	assert.Nil(t, view.StartedAt)
	assert.Nil(t, view.EndedAt)
	assert.True(t, view.Active)
	assert.Equal(t, core.LifecycleUnstarted, view.Lifecycle)

	for _, id := range []uuid.UUID{a, b} {
		s := f.shot(t, id)
		assert.Nil(t, s.Shot)
		assert.Zero(t, s.Impairments)
		assert.Zero(t, s.Count)
		assert.False(t, s.WasRammedOrDamaged)
	}
}

func TestResetFight_PurgeEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Advance(ctx, f.fightID)
	require.NoError(t, err)

	events, err := f.svc.FightEvents(ctx, f.fightID)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	_, err = f.svc.ResetFight(ctx, f.fightID, true)
	require.NoError(t, err)

	events, err = f.svc.FightEvents(ctx, f.fightID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestResetFight_KeepsEventsWithoutPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ResetFight(ctx, f.fightID, false)
	require.NoError(t, err)

	events, err := f.svc.FightEvents(ctx, f.fightID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "fight.create", events[0].EventType)
	assert.Equal(t, "fight.reset", events[1].EventType)
}

func TestEnd_StampsEndedAtToTheSecond(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Start(ctx, f.fightID)
	require.NoError(t, err)

	view, err := f.svc.End(ctx, f.fightID)
	require.NoError(t, err)

	assert.False(t, view.Active)
	require.NotNil(t, view.EndedAt)
	assert.Zero(t, view.EndedAt.Nanosecond())
	assert.Equal(t, core.LifecycleEnded, view.Lifecycle)
	assert.Equal(t, core.LifecycleEnded, Lifecycle(f.fight(t, f.fightID)))

	// a second end is accepted
	_, err = f.svc.End(ctx, f.fightID)
	assert.NoError(t, err)
}

func TestStart_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Start(ctx, f.fightID)
	require.NoError(t, err)
	require.NotNil(t, first.StartedAt)
	assert.Equal(t, core.LifecycleStarted, first.Lifecycle)

	second, err := f.svc.Start(ctx, f.fightID)
	require.NoError(t, err)
	assert.True(t, first.StartedAt.Equal(*second.StartedAt))
}

func TestTouch_OnlyBumpsUpdatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.fight(t, f.fightID)
	eventsBefore, err := f.svc.FightEvents(ctx, f.fightID)
	require.NoError(t, err)

	view, err := f.svc.Touch(ctx, f.fightID)
	require.NoError(t, err)

	after := f.fight(t, f.fightID)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, before.Sequence, view.Sequence)
	assert.Equal(t, before.Active, after.Active)

	eventsAfter, err := f.svc.FightEvents(ctx, f.fightID)
	require.NoError(t, err)
	assert.Len(t, eventsAfter, len(eventsBefore))
}

func TestCreateFight_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateFight(ctx, FightSpec{CampaignID: f.campaign.ID})
	assert.ErrorIs(t, err, fighterr.ErrInvalidValue)

	_, err = f.svc.CreateFight(ctx, FightSpec{CampaignID: uuid.New(), Name: "Nowhere"})
	assert.ErrorIs(t, err, fighterr.ErrMissingReference)
}

func TestMutation_BroadcastsOnceAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.pub.count()

	_, err := f.svc.Advance(ctx, f.fightID)
	require.NoError(t, err)

	assert.Equal(t, before+1, f.pub.count())
	assert.Equal(t, f.fightID, f.pub.last().ID)
}

func TestMutation_FailedValidationDoesNotBroadcast(t *testing.T) {
	f := newFixture(t)
	before := f.pub.count()

	_, err := f.svc.Advance(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, before, f.pub.count())
}

func TestMutation_BroadcastFailureIsNotReturned(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errPublish

	view, err := f.svc.Advance(context.Background(), f.fightID)
	require.NoError(t, err)
	assert.Equal(t, 18, view.Sequence)

	var stored model.Fight
	require.NoError(t, f.db.First(&stored, "id = ?", f.fightID).Error)
	assert.Equal(t, 18, stored.Sequence)
}
