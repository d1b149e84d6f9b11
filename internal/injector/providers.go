// Package injector wires the process from its configuration.
package injector

import (
	"github.com/google/wire"
	"github.com/pkg/errors"

	"github.com/zeusync/arena/internal/config"
	"github.com/zeusync/arena/internal/core/engine"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/server"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideEngine,
	ProvideServer,
	wire.Struct(new(App), "*"),
)

// App is everything cmd/server runs.
type App struct {
	Config config.Config
	Logger *log.Logger
	Engine *engine.Engine
	Server *server.Server
}

func ProvideLogger(cfg config.Config) *log.Logger {
	return log.New(cfg.Level())
}

// ProvideEngine builds the engine, preloads the configured arenas and, when the
// configuration names one, initializes it up front.
func ProvideEngine(cfg config.Config, logger *log.Logger) (*engine.Engine, func(), error) {
	e := engine.New(cfg.Engine, cfg.Navigator, logger)
	cleanup := func() {
		if err := e.Close(); err != nil {
			logger.Error("Failed to close engine", log.Error(err))
		}
	}

	if len(cfg.Engine.Preload) > 0 {
		if err := e.Preload(cfg.Engine.Preload...); err != nil {
			cleanup()
			return nil, nil, errors.Wrap(err, "preload arenas")
		}
	}
	if cfg.Engine.Mode != "" {
		if err := e.Initialize(cfg.Engine.Mode, cfg.Engine.Map); err != nil {
			cleanup()
			return nil, nil, errors.Wrap(err, "initial arena")
		}
	}
	return e, cleanup, nil
}

func ProvideServer(cfg config.Config, e *engine.Engine, logger *log.Logger) (*server.Server, func()) {
	srv := server.NewServer(cfg.Server, e, logger)
	return srv, func() {
		if err := srv.Close(); err != nil {
			logger.Error("Failed to close server", log.Error(err))
		}
	}
}
