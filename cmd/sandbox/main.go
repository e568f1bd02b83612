package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/profile"

	"github.com/zeusync/gamecore/internal/config"
	"github.com/zeusync/gamecore/internal/injector"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to a .toml or .yaml config file")
		profMode   = flag.String("profile", "", "write a profile to the working directory: cpu or mem")
		ticks      = flag.Int("ticks", -1, "stop after this many updates (overrides engine.max_ticks)")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *ticks >= 0 {
		cfg.Engine.MaxTicks = *ticks
	}
	cfg.Scene.Paths = append(cfg.Scene.Paths, flag.Args()...)

	switch *profMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *profMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := injector.InitializeEngine(cfg)
	if err := eng.Setup(ctx); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	return eng.Run(ctx)
}
