package encounter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chiwar/fightcore/internal/database"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingPublisher keeps every published fight
type recordingPublisher struct {
	mu     sync.Mutex
	fights []*core.Fight
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, f *core.Fight) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fights = append(p.fights, f)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fights)
}

func (p *recordingPublisher) last() *core.Fight {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.fights) == 0 {
		return nil
	}
	return p.fights[len(p.fights)-1]
}

// steppingClock advances one second per call
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	pub      *recordingPublisher
	campaign model.Campaign
	fightID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.GetSqliteMemoryDB("encounter_" + uuid.NewString())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Setup(db))

	pub := &recordingPublisher{}
	clock := &steppingClock{now: time.Now().UTC()}
	svc, err := NewService(Dependencies{DB: db, Publisher: pub, Now: clock.Now})
	require.NoError(t, err)

	ctx := context.Background()
	campaign, err := svc.CreateCampaign(ctx, "Born to Revengeance")
	require.NoError(t, err)
	fight, err := svc.CreateFight(ctx, FightSpec{CampaignID: campaign.ID, Name: "Junk Yard"})
	require.NoError(t, err)

	return &fixture{svc: svc, db: db, pub: pub, campaign: campaign, fightID: fight.ID}
}

func (f *fixture) newFight(t *testing.T, name string) uuid.UUID {
	t.Helper()
	fight, err := f.svc.CreateFight(context.Background(), FightSpec{CampaignID: f.campaign.ID, Name: name})
	require.NoError(t, err)
	return fight.ID
}

func (f *fixture) character(t *testing.T, name string) uuid.UUID {
	t.Helper()
	c, err := f.svc.CreateCharacter(context.Background(), f.campaign.ID, name)
	require.NoError(t, err)
	return c.ID
}

func (f *fixture) vehicle(t *testing.T, name string) uuid.UUID {
	t.Helper()
	v, err := f.svc.CreateVehicle(context.Background(), f.campaign.ID, name)
	require.NoError(t, err)
	return v.ID
}

func (f *fixture) characterShot(t *testing.T, fightID, characterID uuid.UUID) uuid.UUID {
	t.Helper()
	shot, err := f.svc.AddParticipant(context.Background(), fightID, Participant{CharacterID: &characterID})
	require.NoError(t, err)
	return shot.ID
}

func (f *fixture) vehicleShot(t *testing.T, fightID, vehicleID uuid.UUID) uuid.UUID {
	t.Helper()
	shot, err := f.svc.AddParticipant(context.Background(), fightID, Participant{VehicleID: &vehicleID})
	require.NoError(t, err)
	return shot.ID
}

func (f *fixture) shot(t *testing.T, id uuid.UUID) model.Shot {
	t.Helper()
	var s model.Shot
	require.NoError(t, f.db.First(&s, "id = ?", id).Error)
	return s
}

func (f *fixture) fight(t *testing.T, id uuid.UUID) model.Fight {
	t.Helper()
	var fight model.Fight
	require.NoError(t, f.db.First(&fight, "id = ?", id).Error)
	return fight
}

func (f *fixture) setInitiative(t *testing.T, shotID uuid.UUID, value int) {
	t.Helper()
	_, err := f.svc.UpdateShot(context.Background(), shotID, ShotUpdate{Shot: &value})
	require.NoError(t, err)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

var errPublish = errors.New("broadcast down")
