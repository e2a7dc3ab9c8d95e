package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chiwar/fightcore/internal/broadcast"
	"github.com/chiwar/fightcore/internal/config"
	"github.com/chiwar/fightcore/internal/database"
	"github.com/chiwar/fightcore/internal/dispatcher"
	"github.com/chiwar/fightcore/internal/encounter"
	"github.com/chiwar/fightcore/internal/handlers"
	"github.com/chiwar/fightcore/internal/logging"
	"github.com/chiwar/fightcore/internal/monitor"
	intOtel "github.com/chiwar/fightcore/internal/otel"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// app owns every long-lived component of the process.
type app struct {
	logs      *logging.SlogManager
	logger    *slog.Logger
	zlog      zerolog.Logger
	logFile   *os.File
	graylog   *gelf.Writer
	otel      *intOtel.Provider
	db        *database.Manager
	publisher broadcast.Multi
	engine    *encounter.Service
	events    *dispatcher.Dispatcher
	monitor   *monitor.Service
}

// newLogging opens the log file, Graylog and OTel sinks from config.
func (a *app) newLogging(ctx context.Context, started time.Time) error {
	logCfg := config.GetLogConfig()

	if logCfg.LogsDir != "" {
		if err := os.MkdirAll(logCfg.LogsDir, 0o755); err != nil {
			return fmt.Errorf("creating logs dir: %w", err)
		}
		path := logging.LogFilePath(logCfg.LogsDir, logging.ServiceName, started)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		a.logFile = f
	}

	opts := logging.Options{Level: logCfg.Level, Console: os.Stderr}
	if a.logFile != nil {
		opts.File = a.logFile
	}

	if logCfg.GraylogEnabled {
		w, err := logging.NewGraylogWriter(logCfg.GraylogAddress)
		if err != nil {
			fmt.Fprintf(os.Stderr, "graylog disabled: %v\n", err)
		} else {
			a.graylog = w
			opts.Graylog = w
		}
	}

	var otelSink io.Writer
	if a.logFile != nil {
		otelSink = a.logFile
	} else {
		otelSink = os.Stderr
	}
	provider, err := intOtel.New(ctx, intOtel.ConfigFrom(config.GetOTelConfig(), Version, otelSink))
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	a.otel = provider
	opts.Provider = provider.LoggerProvider()

	a.logs = logging.NewSlogManager()
	a.logs.Setup(opts)
	a.logger = a.logs.Logger()

	var zerologOut io.Writer = os.Stderr
	if a.logFile != nil {
		zerologOut = a.logFile
	}
	a.zlog = logging.NewZerolog(logCfg.Level, zerologOut).With().Str("service", logging.ServiceName).Logger()
	return nil
}

// newStore connects and migrates the relational store.
func (a *app) newStore() error {
	a.db = database.NewManager(a.zlog.With().Str("component", "database").Logger())
	if err := a.db.Connect(config.GetDBConfig()); err != nil {
		return err
	}
	return a.db.Setup()
}

// newEngine wires broadcast, the encounter service and the dispatcher.
func (a *app) newEngine(ctx context.Context, version string) error {
	pub, err := broadcast.New(ctx, config.GetBroadcastConfig(), broadcast.Dependencies{
		Logger:    a.logger,
		Zerolog:   a.zlog.With().Str("component", "influx").Logger(),
		BackupDir: config.GetLogConfig().LogsDir,
	})
	if err != nil {
		return err
	}
	a.publisher = pub

	a.engine, err = encounter.NewService(encounter.Dependencies{
		DB:        a.db.DB,
		Publisher: pub,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}

	a.events, err = dispatcher.New(logging.NewCommandLogger(a.zlog))
	if err != nil {
		return err
	}

	h, err := handlers.NewService(handlers.Dependencies{
		Encounter: a.engine,
		Logger:    a.logger,
		Version:   version,
	})
	if err != nil {
		return err
	}
	h.Register(a.events)

	statusPath := ""
	if dir := config.GetLogConfig().LogsDir; dir != "" {
		statusPath = filepath.Join(dir, "status.json")
	}
	a.monitor = monitor.NewService(monitor.Dependencies{
		DB:         a.db.DB,
		Logger:     a.logger,
		StatusPath: statusPath,
		Commands:   a.events.Commands,
		Queues:     a.events.QueueDepths,
	})
	a.events.Register("status", func(ctx context.Context, _ dispatcher.Event) (any, error) {
		return a.monitor.Status(ctx)
	})
	return a.monitor.Start(ctx)
}

// close shuts components down in reverse order of construction.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.events != nil {
		a.events.Close()
	}
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Flush(ctx))
	}
	if a.otel != nil {
		errs = append(errs, a.otel.Close(ctx))
	}
	if a.graylog != nil {
		errs = append(errs, a.graylog.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}
