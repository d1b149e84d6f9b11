package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/arena/internal/config"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	mode := flag.String("mode", "", "arena mode to initialize on startup, overrides the config")
	arenaMap := flag.String("map", "", "arena map to initialize on startup, overrides the config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *mode != "" {
		cfg.Engine.Mode, cfg.Engine.Map = *mode, *arenaMap
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "Invalid arena:", err)
			os.Exit(1)
		}
	}

	app, cleanup, err := injector.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing:", err)
		os.Exit(1)
	}
	defer func() { _ = app.Logger.Sync() }()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)

	// Start the server
	if err := app.Server.Start(ctx); err != nil {
		app.Logger.Error("Error starting server", log.Error(err))
		return
	}

	sig := <-stopCh
	app.Logger.Info("Shutting down", log.String("signal", sig.String()))
	cancel()
	if err := app.Server.Stop(context.Background()); err != nil {
		app.Logger.Error("Error stopping server", log.Error(err))
	}
}
