package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/chiwar/fightcore/internal/database"
	"github.com/chiwar/fightcore/internal/dispatcher"
	"github.com/chiwar/fightcore/internal/encounter"
	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/pkg/core"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type bridge struct {
	t *testing.T
	d *dispatcher.Dispatcher
}

func newBridge(t *testing.T) *bridge {
	t.Helper()
	db, err := database.GetSqliteMemoryDB("handlers_" + uuid.NewString())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Setup(db))

	enc, err := encounter.NewService(encounter.Dependencies{DB: db})
	require.NoError(t, err)

	svc, err := NewService(Dependencies{Encounter: enc, Version: "1.2.3"})
	require.NoError(t, err)

	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	svc.Register(d)

	return &bridge{t: t, d: d}
}

func (b *bridge) call(command string, args ...string) (any, error) {
	return b.d.Dispatch(context.Background(), dispatcher.Event{Command: command, Args: args})
}

func (b *bridge) must(command string, args ...string) any {
	b.t.Helper()
	result, err := b.call(command, args...)
	require.NoError(b.t, err, command)
	return result
}

// id creates a campaign-scoped record and returns its id.
func (b *bridge) id(command string, args ...string) string {
	b.t.Helper()
	return b.must(command, args...).(templateResult).ID.String()
}

func (b *bridge) fight() (campaignID, fightID string) {
	b.t.Helper()
	campaignID = b.id("campaign.create", "Hong Kong")
	f := b.must("fight.create", campaignID, "Harbor Brawl").(*core.Fight)
	return campaignID, f.ID.String()
}

func TestNewService_RequiresEncounter(t *testing.T) {
	_, err := NewService(Dependencies{})
	assert.Error(t, err)
}

func TestFightCommands(t *testing.T) {
	b := newBridge(t)
	_, fightID := b.fight()

	// a fresh fight sits at sequence 0, which wraps around
	f := b.must("fight.advance", fightID).(*core.Fight)
	assert.Equal(t, encounter.WrapSequence, f.Sequence)

	f = b.must("fight.advance", fightID).(*core.Fight)
	assert.Equal(t, encounter.WrapSequence-1, f.Sequence)

	f = b.must("fight.start", fightID).(*core.Fight)
	assert.Equal(t, core.LifecycleStarted, f.Lifecycle)

	f = b.must("fight.resetSequence", fightID).(*core.Fight)
	assert.Equal(t, encounter.WrapSequence, f.Sequence)

	f = b.must("fight.end", fightID).(*core.Fight)
	assert.Equal(t, core.LifecycleEnded, f.Lifecycle)
	assert.False(t, f.Active)

	events := b.must("fight.events", fightID).([]fightEventResult)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, "fight.advance")
	assert.Contains(t, types, "fight.end")

	f = b.must("fight.reset", fightID, "true").(*core.Fight)
	assert.Equal(t, 0, f.Sequence)
	assert.Empty(t, b.must("fight.events", fightID).([]fightEventResult))
}

func TestFightTouch_IsQueued(t *testing.T) {
	b := newBridge(t)
	_, fightID := b.fight()

	assert.Equal(t, "queued", b.must("fight.touch", fightID))
}

func TestBadArgumentsAreValidationErrors(t *testing.T) {
	b := newBridge(t)

	_, err := b.call("fight.advance", "not-a-uuid")
	require.Error(t, err)
	assert.Equal(t, fighterr.CodeInvalidValue, fighterr.CodeOf(err))
	assert.ErrorContains(t, err, "fight.advance")

	_, err = b.call("shot.act", uuid.NewString())
	assert.Equal(t, fighterr.CodeInvalidValue, fighterr.CodeOf(err))

	_, err = b.call("shot.update", uuid.NewString(), "{not json")
	assert.Equal(t, fighterr.CodeInvalidValue, fighterr.CodeOf(err))
}

func TestMissingFightIsNotFound(t *testing.T) {
	b := newBridge(t)

	_, err := b.call("fight.get", uuid.NewString())

	assert.True(t, fighterr.IsNotFound(err))
}

func TestShotCommands(t *testing.T) {
	b := newBridge(t)
	campaignID, fightID := b.fight()
	charID := b.id("character.create", campaignID, "Jack")

	shot := b.must("shot.add", fightID, charID, "").(core.Shot)
	require.NotNil(t, shot.Character)
	assert.Equal(t, "Jack", shot.Character.Name)
	assert.Nil(t, shot.Shot)

	shot = b.must("shot.update", shot.ID.String(), `{"shot": 12, "impairments": 1}`).(core.Shot)
	require.NotNil(t, shot.Shot)
	assert.Equal(t, 12, *shot.Shot)
	assert.Equal(t, 1, shot.Impairments)

	shot = b.must("shot.act", shot.ID.String(), "3").(core.Shot)
	assert.Equal(t, 9, *shot.Shot)

	_, err := b.call("shot.update", shot.ID.String(), `{"shot": 3, "clearShot": true}`)
	assert.True(t, fighterr.IsValidation(err))

	assert.Equal(t, done, b.must("shot.remove", shot.ID.String()))
	f := b.must("fight.get", fightID).(*core.Fight)
	assert.Empty(t, f.Shots)
}

func TestRosterReconcile(t *testing.T) {
	b := newBridge(t)
	campaignID, fightID := b.fight()
	a := b.id("character.create", campaignID, "Ah Lin")
	c := b.id("character.create", campaignID, "Big Bruiser")

	list := fmt.Sprintf(`["%s","%s","%s"]`, a, a, c)
	result := b.must("roster.reconcile", fightID, list, "[]").(rosterResult)

	assert.Len(t, result.AddedCharacters, 3)
	assert.Empty(t, result.AddedVehicles)
	assert.Empty(t, result.Removed)

	result = b.must("roster.reconcile", fightID, fmt.Sprintf(`["%s"]`, c), "[]").(rosterResult)
	assert.Len(t, result.Removed, 2)
}

func TestDriverAndChaseCommands(t *testing.T) {
	b := newBridge(t)
	campaignID, fightID := b.fight()
	charID := b.id("character.create", campaignID, "Driver")
	vehID := b.id("vehicle.create", campaignID, "Sedan")
	otherVehID := b.id("vehicle.create", campaignID, "Van")

	driver := b.must("shot.add", fightID, charID, "").(core.Shot)
	car := b.must("shot.add", fightID, "", vehID).(core.Shot)
	van := b.must("shot.add", fightID, "null", otherVehID).(core.Shot)

	b.must("driver.assign", driver.ID.String(), car.ID.String())
	cleared := b.must("driver.clear", fightID, car.ID.String()).(countResult)
	assert.Equal(t, int64(1), cleared.Cleared)

	_, err := b.call("chase.create", fightID, car.ID.String(), car.ID.String())
	assert.ErrorIs(t, err, fighterr.ErrSelfReference)

	rel := b.must("chase.create", fightID, car.ID.String(), van.ID.String()).(core.ChaseRelationship)
	assert.Equal(t, "far", rel.Position)

	rel = b.must("chase.position", rel.ID.String(), "near").(core.ChaseRelationship)
	assert.Equal(t, "near", rel.Position)

	_, err = b.call("chase.position", rel.ID.String(), "sideways")
	assert.Equal(t, fighterr.CodeInvalidPosition, fighterr.CodeOf(err))

	active := b.must("chase.active", fightID).([]core.ChaseRelationship)
	assert.Len(t, active, 1)

	b.must("chase.deactivate", rel.ID.String())
	assert.Empty(t, b.must("chase.active", fightID).([]core.ChaseRelationship))
}

func TestEffectCommands(t *testing.T) {
	b := newBridge(t)
	campaignID, fightID := b.fight()
	charID := b.id("character.create", campaignID, "Jack")
	shot := b.must("shot.add", fightID, charID).(core.Shot)

	req, err := json.Marshal(effectRequest{ShotID: &shot.ID, Name: "Dazed", Severity: "error"})
	require.NoError(t, err)
	effect := b.must("effect.attach", string(req)).(core.Effect)
	assert.Equal(t, "Dazed", effect.Name)

	assert.Len(t, b.must("effect.active", fightID).([]core.Effect), 1)

	b.must("effect.detach", effect.ID.String())
	assert.Empty(t, b.must("effect.active", fightID).([]core.Effect))

	_, err = b.call("effect.attach", `{"name":"Orphan"}`)
	assert.True(t, fighterr.IsValidation(err))
}

func TestLocationCommands(t *testing.T) {
	b := newBridge(t)
	campaignID, fightID := b.fight()
	charID := b.id("character.create", campaignID, "Jack")
	shot := b.must("shot.add", fightID, charID).(core.Shot)

	dock := b.must("location.create",
		fmt.Sprintf(`{"fightId":"%s","name":"Dock","positionX":0,"positionY":0,"width":10,"height":10}`, fightID),
	).(core.Location)
	roof := b.must("location.create",
		fmt.Sprintf(`{"fightId":"%s","name":"Roof","positionX":20,"positionY":20,"width":5,"height":5}`, fightID),
	).(core.Location)

	_, err := b.call("location.create", fmt.Sprintf(`{"fightId":"%s","name":"dock"}`, fightID))
	assert.ErrorIs(t, err, fighterr.ErrDuplicateName)

	conn := b.must("location.connect", dock.ID.String(), roof.ID.String(), "false", "ladder").(core.LocationConnection)
	assert.False(t, conn.Bidirectional)
	require.NotNil(t, conn.Label)
	assert.Equal(t, "ladder", *conn.Label)

	placed := b.must("location.place", shot.ID.String(), dock.ID.String()).(core.Shot)
	require.NotNil(t, placed.LocationID)
	assert.Equal(t, dock.ID, *placed.LocationID)

	hits := b.must("location.at", fightID, "5", "5").([]core.Location)
	require.Len(t, hits, 1)
	assert.Equal(t, "Dock", hits[0].Name)

	assert.Len(t, b.must("location.list", fightID).([]core.Location), 2)
	assert.Len(t, b.must("location.connections", fightID).([]core.LocationConnection), 1)

	placed = b.must("location.place", shot.ID.String(), "null").(core.Shot)
	assert.Nil(t, placed.LocationID)

	b.must("location.delete", roof.ID.String())
	assert.Empty(t, b.must("location.connections", fightID).([]core.LocationConnection))
}

func TestCopySiteCommand(t *testing.T) {
	b := newBridge(t)
	campaignID, fightID := b.fight()
	siteID := b.id("site.create", campaignID, "Warehouse")

	b.must("location.create", fmt.Sprintf(`{"siteId":"%s","name":"Loading Bay"}`, siteID))

	copied := b.must("location.copySite", siteID, fightID).([]core.Location)
	require.Len(t, copied, 1)
	assert.Equal(t, "Loading Bay", copied[0].Name)
	require.NotNil(t, copied[0].CopiedFromID)
}

func TestMetaCommands(t *testing.T) {
	b := newBridge(t)

	assert.Equal(t, "1.2.3", b.must("version"))

	commands := b.must("commands").([]string)
	for _, want := range []string{"fight.advance", "roster.reconcile", "location.at", "effect.attach"} {
		assert.Contains(t, commands, want)
	}
}
