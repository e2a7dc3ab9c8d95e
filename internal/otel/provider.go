// Package otel builds the OpenTelemetry log pipeline behind the slog bridge.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chiwar/fightcore/internal/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultServiceName = "fightcore"

// Config selects where OTel log records are exported.
type Config struct {
	Enabled     bool
	ServiceName string
	// Version is reported as service.version.
	Version      string
	BatchTimeout time.Duration
	// LogWriter receives pretty-printed records, normally the session log file.
	LogWriter io.Writer
	// Endpoint enables OTLP/HTTP export when set.
	Endpoint string
	Insecure bool
}

// ConfigFrom maps the loaded settings onto a provider config.
func ConfigFrom(c config.OTelConfig, version string, logWriter io.Writer) Config {
	return Config{
		Enabled:      c.Enabled,
		ServiceName:  c.ServiceName,
		Version:      version,
		BatchTimeout: c.BatchTimeout,
		LogWriter:    logWriter,
		Endpoint:     c.Endpoint,
		Insecure:     c.Insecure,
	}
}

// Provider owns the log provider. It holds nothing when telemetry is off.
type Provider struct {
	logs *sdklog.LoggerProvider
}

// New starts the export pipeline. A disabled config yields an empty provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("building otel resource: %w", err)
	}
	exporters, err := newExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(exporters) == 0 {
		return nil, errors.New("otel enabled but neither a log writer nor an endpoint is configured")
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, exp := range exporters {
		opts = append(opts, sdklog.WithProcessor(
			sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout)),
		))
	}
	return &Provider{logs: sdklog.NewLoggerProvider(opts...)}, nil
}

// ResourceAttributes lists the attributes attached to every exported record,
// not counting host and process detection.
func ResourceAttributes(cfg Config) []attribute.KeyValue {
	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if cfg.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	return attrs
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(ResourceAttributes(cfg)...),
		resource.WithHost(),
		resource.WithProcessPID(),
	)
}

func newExporters(ctx context.Context, cfg Config) ([]sdklog.Exporter, error) {
	var exporters []sdklog.Exporter

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating file log exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP log exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	return exporters, nil
}

// LoggerProvider feeds the otelslog bridge; nil when telemetry is off.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

func (p *Provider) Enabled() bool {
	return p.logs != nil
}

// Close flushes pending records and shuts the exporters down.
func (p *Provider) Close(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	flushErr := p.logs.ForceFlush(ctx)
	if flushErr != nil {
		flushErr = fmt.Errorf("flushing otel logs: %w", flushErr)
	}
	shutdownErr := p.logs.Shutdown(ctx)
	if shutdownErr != nil {
		shutdownErr = fmt.Errorf("shutting down otel logs: %w", shutdownErr)
	}
	return errors.Join(flushErr, shutdownErr)
}
