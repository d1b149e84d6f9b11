package injector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/arena/internal/config"
	"github.com/zeusync/arena/internal/core/arena"
)

func TestInitializeApp(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.Engine.Mode = "flat"
	cfg.Server.WebsocketAddr = "127.0.0.1:0"
	cfg.Server.QUICAddr = ""
	cfg.Server.StatsInterval = 0

	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.True(t, app.Engine.Initialized())
	mode, _ := app.Engine.Mode()
	assert.Equal(t, "flat", mode)

	require.NoError(t, app.Server.Start(context.Background()))
	assert.NotEmpty(t, app.Server.WebsocketAddr())
}

func TestInitializeApp_BadArena(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.Engine.Mode = "rumble"

	_, _, err := InitializeApp(cfg)
	assert.ErrorIs(t, err, arena.ErrUnknownMode)
}
