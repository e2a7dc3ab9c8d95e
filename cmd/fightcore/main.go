// Command fightcore runs the encounter engine behind a stdin/stdout command
// bridge.
//
// Usage:
//
//	fightcore [--config-dir DIR] [--log-level LEVEL] [serve|migrate]
//
// serve (the default) reads one JSON command per line from stdin and writes
// one JSON reply per line to stdout. migrate creates or updates the schema
// and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chiwar/fightcore/internal/config"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "fightcore:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	flags := pflag.NewFlagSet("fightcore", pflag.ContinueOnError)
	configDir := flags.String("config-dir", ".", "directory holding "+config.ConfigFileName)
	flags.String("log-level", "", "override logLevel from the config file")
	if err := flags.Parse(argv); err != nil {
		return err
	}

	if err := config.Load(*configDir); err != nil {
		return err
	}
	if f := flags.Lookup("log-level"); f.Changed {
		viper.Set("logLevel", f.Value.String())
	}

	command := "serve"
	if flags.NArg() > 0 {
		command = flags.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.close(shutdown); err != nil {
			fmt.Fprintln(os.Stderr, "fightcore: shutdown:", err)
		}
	}()

	if err := a.newLogging(ctx, time.Now()); err != nil {
		return err
	}
	a.logger.Info("starting", "version", Version, "buildDate", BuildDate, "command", command)

	if err := a.newStore(); err != nil {
		return err
	}

	switch command {
	case "migrate":
		a.logger.Info("schema is up to date")
		return nil
	case "serve":
		if err := a.newEngine(ctx, Version); err != nil {
			return err
		}
		b := &bridge{d: a.events, log: a.logger}
		err := b.serve(ctx, os.Stdin, os.Stdout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
