package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/chiwar/fightcore/internal/broadcast/influx"
	"github.com/chiwar/fightcore/internal/broadcast/memory"
	"github.com/chiwar/fightcore/internal/broadcast/websocket"
	"github.com/chiwar/fightcore/internal/config"
	"github.com/chiwar/fightcore/internal/logging"
	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Publisher = (*websocket.Publisher)(nil)
	_ Publisher = (*memory.Publisher)(nil)
	_ Publisher = (*influx.Manager)(nil)
	_ Publisher = (*Log)(nil)
	_ Publisher = Multi(nil)
)

type failing struct {
	closed bool
}

func (f *failing) Publish(context.Context, *core.Fight) error { return errors.New("target down") }
func (f *failing) Close() error {
	f.closed = true
	return errors.New("close failed")
}

func TestMulti_PublishesPastFailures(t *testing.T) {
	mem := memory.New(0)
	bad := &failing{}
	m := Multi{bad, mem}
	f := &core.Fight{ID: uuid.New()}

	err := m.Publish(context.Background(), f)

	assert.EqualError(t, err, "target down")
	assert.Equal(t, []*core.Fight{f}, mem.Published())

	assert.Error(t, m.Close())
	assert.True(t, bad.closed)
}

func TestNew_BuildsTargets(t *testing.T) {
	m, err := New(context.Background(), config.BroadcastConfig{
		Targets: []string{"memory", " LOG ", "memory", ""},
	}, Dependencies{})
	require.NoError(t, err)
	defer m.Close()

	require.Len(t, m, 2)
	assert.IsType(t, &memory.Publisher{}, m[0])
	assert.IsType(t, &Log{}, m[1])
}

func TestNew_NoTargets(t *testing.T) {
	m, err := New(context.Background(), config.BroadcastConfig{}, Dependencies{})
	require.NoError(t, err)
	assert.Empty(t, m)
	assert.NoError(t, m.Publish(context.Background(), &core.Fight{}))
}

func TestNew_UnknownTarget(t *testing.T) {
	_, err := New(context.Background(), config.BroadcastConfig{
		Targets: []string{"memory", "carrier-pigeon"},
	}, Dependencies{})

	assert.ErrorContains(t, err, `unknown broadcast target "carrier-pigeon"`)
}

func TestNew_WebsocketDialFailure(t *testing.T) {
	_, err := New(context.Background(), config.BroadcastConfig{
		Targets:   []string{"websocket"},
		Websocket: config.WebsocketConfig{URL: "ws://127.0.0.1:1/cable"},
	}, Dependencies{})

	assert.ErrorContains(t, err, "broadcast target websocket")
}

func TestLog_WritesSummaryWithFightID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewHandler(nil, logging.Sink{Name: "json", Handler: slog.NewJSONHandler(&buf, nil)}))
	f := &core.Fight{
		ID:        uuid.New(),
		Sequence:  7,
		Lifecycle: core.LifecycleStarted,
		Shots:     []core.Shot{{ID: uuid.New()}},
	}

	require.NoError(t, NewLog(logger).Publish(context.Background(), f))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "fight updated", rec["msg"])
	assert.Equal(t, f.ID.String(), rec["fight_id"])
	assert.Equal(t, float64(7), rec["sequence"])
	assert.Equal(t, "started", rec["lifecycle"])
	assert.Equal(t, float64(1), rec["shots"])
}
