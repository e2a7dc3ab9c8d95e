package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chiwar/fightcore/internal/database"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.GetSqliteMemoryDB("monitor_" + uuid.NewString())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Setup(db))
	return db
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	campaign := model.Campaign{Name: "Hong Kong"}
	require.NoError(t, db.Create(&campaign).Error)

	open := model.Fight{CampaignID: campaign.ID, Name: "Open", Active: true}
	closed := model.Fight{CampaignID: campaign.ID, Name: "Closed", Active: true}
	require.NoError(t, db.Create(&open).Error)
	require.NoError(t, db.Create(&closed).Error)
	require.NoError(t, db.Model(&closed).Update("active", false).Error)

	require.NoError(t, db.Create(&model.Shot{FightID: open.ID}).Error)
	require.NoError(t, db.Create(&model.Shot{FightID: open.ID}).Error)
	require.NoError(t, db.Create(&model.Shot{FightID: closed.ID}).Error)
}

func TestStatus_CountsActiveFightsAndShots(t *testing.T) {
	db := newDB(t)
	seed(t, db)

	s := NewService(Dependencies{
		DB:       db,
		Commands: func() []string { return []string{"a", "b"} },
		Queues:   func() map[string]int { return map[string]int{"fight.touch": 3} },
	})
	st, err := s.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ActiveFights)
	assert.Equal(t, int64(2), st.Shots)
	assert.Equal(t, 2, st.Commands)
	assert.Equal(t, map[string]int{"fight.touch": 3}, st.Queues)
	assert.NotEmpty(t, st.Uptime)
}

func TestStart_WritesStatusFile(t *testing.T) {
	db := newDB(t)
	seed(t, db)
	path := filepath.Join(t.TempDir(), "status.json")

	s := NewService(Dependencies{DB: db, StatusPath: path, Interval: 10 * time.Millisecond})
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Equal(t, int64(1), st.ActiveFights)
}

func TestStart_StopsWithContext(t *testing.T) {
	db := newDB(t)
	s := NewService(Dependencies{DB: db, Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 5*time.Millisecond)
}
