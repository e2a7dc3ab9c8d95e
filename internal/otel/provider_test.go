package otel

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/chiwar/fightcore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false, LogWriter: &bytes.Buffer{}})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Close(context.Background()))
}

func TestNew_EnabledWithoutSink(t *testing.T) {
	_, err := New(context.Background(), Config{Enabled: true, ServiceName: "fightcore"})
	assert.ErrorContains(t, err, "neither a log writer nor an endpoint")
}

func TestNew_ExportsToLogWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "fightcore",
		Version:      "1.2.3",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	logger := slog.New(otelslog.NewHandler("fightcore", otelslog.WithLoggerProvider(p.LoggerProvider())))
	logger.Info("fight advanced", "fight_id", "f-1")
	require.NoError(t, p.Close(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "fight advanced")
	assert.Contains(t, out, "f-1")
	assert.Contains(t, out, "1.2.3")
}

func TestResourceAttributes(t *testing.T) {
	assert.Equal(t,
		[]attribute.KeyValue{semconv.ServiceName("fightcore")},
		ResourceAttributes(Config{}),
	)
	assert.Equal(t,
		[]attribute.KeyValue{semconv.ServiceName("arena"), semconv.ServiceVersion("0.4.0")},
		ResourceAttributes(Config{ServiceName: "arena", Version: "0.4.0"}),
	)
}

func TestConfigFrom(t *testing.T) {
	var buf bytes.Buffer
	cfg := ConfigFrom(config.OTelConfig{
		Enabled:      true,
		ServiceName:  "fightcore",
		BatchTimeout: 5 * time.Second,
		Endpoint:     "collector:4318",
		Insecure:     true,
	}, "2.0.0", &buf)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "fightcore", cfg.ServiceName)
	assert.Equal(t, "2.0.0", cfg.Version)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Same(t, &buf, cfg.LogWriter)
}
