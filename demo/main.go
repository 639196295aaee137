package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorustyt/navcache/common/config"
	"github.com/gorustyt/navcache/common/log"
	"go.uber.org/zap"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	ticks := fs.Int("ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	dumpDir := fs.String("dump", "", "Write navmesh.obj and per tile area BMPs here on exit")
	fs.Parse(os.Args[1:]) //nolint:errcheck

	if err := run(flags, *ticks, *dumpDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(flags *config.Flags, ticks int, dumpDir string) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	config.ApplyFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := log.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim, err := newSimulation(ctx, cfg)
	if err != nil {
		return err
	}
	runErr := sim.run(ctx, ticks)
	if dumpDir != "" {
		if err := sim.dump(dumpDir); err != nil {
			log.Warn("dump failed", zap.Error(err))
		}
	}
	// a cancelled run still persists its tiles
	if err := sim.close(context.WithoutCancel(ctx)); err != nil {
		log.Error("shutdown", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
