package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/arena/internal/core/arena"
	"github.com/zeusync/arena/internal/core/codec"
	"github.com/zeusync/arena/internal/core/engine"
	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/internal/core/observability/log"
)

func testConfig() Config {
	config := DefaultServerConfig()
	config.WebsocketAddr = "127.0.0.1:0"
	config.QUICAddr = "127.0.0.1:0"
	config.StatsInterval = 0
	return config
}

func wsURL(base string) string {
	return "ws" + strings.TrimPrefix(base, "http") + "/ws"
}

func exchange(t *testing.T, conn *websocket.Conn, op codec.Op, payload, result any) error {
	t.Helper()
	req, err := codec.NewRequest(op, payload)
	require.NoError(t, err)
	data, err := req.Serialize()
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))
	messageType, out, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, messageType)

	var resp codec.Response
	require.NoError(t, resp.Deserialize(out))
	require.Equal(t, req.ID, resp.ID)
	return resp.Decode(result)
}

func TestServer_WebSocket(t *testing.T) {
	srv := NewServer(testConfig(), newEngine(t), log.Nop())
	s := httptest.NewServer(srv.Handler())
	defer s.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(s.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	var state engine.State
	require.NoError(t, exchange(t, conn, codec.OpInitialize, codec.InitializeRequest{Mode: "flat"}, &state))
	assert.True(t, state.Initialized)

	var contact arena.Ray
	require.NoError(t, exchange(t, conn, codec.OpContact, codec.ContactRequest{Position: linalg.Vec3{0, 0, 50}, Radius: 100}, &contact))
	assert.InDelta(t, 1, contact.Direction[2], 1e-9)

	// text frames are not requests
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	_, out, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp codec.Response
	require.NoError(t, resp.Deserialize(out))
	assert.Equal(t, ErrInvalidMessage.Error(), resp.Error)

	assert.Equal(t, uint64(3), srv.Stats().Requests)
}

func TestServer_WebSocketMessageLimit(t *testing.T) {
	config := testConfig()
	config.MaxMessageSize = 64
	srv := NewServer(config, newEngine(t), log.Nop())
	s := httptest.NewServer(srv.Handler())
	defer s.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(s.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, make([]byte, 1024)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestServer_Token(t *testing.T) {
	config := testConfig()
	config.Token = "supersecrettoken"
	srv := NewServer(config, newEngine(t), log.Nop())
	s := httptest.NewServer(srv.Handler())
	defer s.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(s.URL), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(s.URL)+"?token=invalid", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(s.URL)+"?token=supersecrettoken", nil)
	require.NoError(t, err)
	_ = conn.Close()

	header := http.Header{"Authorization": []string{"Bearer supersecrettoken"}}
	conn, _, err = websocket.DefaultDialer.Dial(wsURL(s.URL), header)
	require.NoError(t, err)
	_ = conn.Close()

	health, err := http.Get(s.URL + "/healthz")
	require.NoError(t, err)
	_ = health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	stats, err := http.Get(s.URL + "/stats")
	require.NoError(t, err)
	_ = stats.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, stats.StatusCode)
}

func TestServer_HTTP(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Initialize("flat", ""))
	srv := NewServer(testConfig(), e, log.Nop())
	s := httptest.NewServer(srv.Handler())
	defer s.Close()

	resp, err := http.Get(s.URL + "/healthz")
	require.NoError(t, err)
	var health Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "flat", health.Engine.Mode)

	e.ComputeAttitudeCommand(linalg.Identity(), linalg.Zero, linalg.Identity(), 1.0/120)

	require.Eventually(t, func() bool {
		resp, err := http.Get(s.URL + "/stats")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var report StatsReport
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			return false
		}
		return report.Engine.Ops[engine.OpAttitude].Calls == 1
	}, time.Second, 10*time.Millisecond)

	resp, err = http.Post(s.URL+"/healthz", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func quicRequest(t *testing.T, ctx context.Context, conn *quic.Conn, op codec.Op, payload, result any) error {
	t.Helper()
	req, err := codec.NewRequest(op, payload)
	require.NoError(t, err)
	data, err := req.Serialize()
	require.NoError(t, err)

	stream, err := conn.OpenStreamSync(ctx)
	require.NoError(t, err)
	_, err = stream.Write(data)
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	out, err := io.ReadAll(stream)
	require.NoError(t, err)

	var resp codec.Response
	require.NoError(t, resp.Deserialize(out))
	require.Equal(t, req.ID, resp.ID)
	return resp.Decode(result)
}

func TestServer_StartStopQUIC(t *testing.T) {
	srv := NewServer(testConfig(), newEngine(t), log.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, srv.Start(ctx))
	assert.ErrorIs(t, srv.Start(ctx), ErrServerAlreadyRunning)
	require.NotEmpty(t, srv.WebsocketAddr())
	require.NotEmpty(t, srv.QUICAddr())

	tlsConf := &tls.Config{InsecureSkipVerify: true, NextProtos: []string{NextProto}}
	conn, err := quic.DialAddr(ctx, srv.QUICAddr(), tlsConf, nil)
	require.NoError(t, err)

	var state engine.State
	require.NoError(t, quicRequest(t, ctx, conn, codec.OpInitialize, codec.InitializeRequest{Mode: "hoops"}, &state))
	assert.Equal(t, "hoops", state.Mode)

	var attitude codec.AttitudeResponse
	require.NoError(t, quicRequest(t, ctx, conn, codec.OpAttitude, codec.AttitudeRequest{
		Orientation: linalg.Identity(),
		Target:      linalg.Euler(0.5, 0, 0),
		Dt:          1.0 / 120,
	}, &attitude))
	assert.NotEqual(t, linalg.Zero, attitude.Command)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+srv.WebsocketAddr()+"/ws", nil)
	require.NoError(t, err)
	var stats engine.Stats
	require.NoError(t, exchange(t, ws, codec.OpStats, nil, &stats))
	assert.Equal(t, "hoops", stats.State.Mode)
	_ = ws.Close()

	_ = conn.CloseWithError(0, "")

	require.NoError(t, srv.Stop(ctx))
	assert.ErrorIs(t, srv.Stop(ctx), ErrServerNotRunning)
	assert.Empty(t, srv.QUICAddr())

	require.NoError(t, srv.Close())
	assert.ErrorIs(t, srv.Start(ctx), ErrServerClosed)
}

func TestServer_StopClosesWebSocketSessions(t *testing.T) {
	config := testConfig()
	config.QUICAddr = ""
	srv := NewServer(config, newEngine(t), log.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, srv.Start(ctx))
	defer func() { _ = srv.Close() }()

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+srv.WebsocketAddr()+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	var stats engine.Stats
	require.NoError(t, exchange(t, ws, codec.OpStats, nil, &stats))
	require.Equal(t, int64(1), srv.Stats().Clients)

	stopped := time.Now()
	require.NoError(t, srv.Stop(ctx))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
	assert.Less(t, time.Since(stopped), 5*time.Second)
	assert.Eventually(t, func() bool { return srv.Stats().Clients == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"default", func(*Config) {}, true},
		{"websocket only", func(c *Config) { c.QUICAddr = "" }, true},
		{"no listener", func(c *Config) { c.WebsocketAddr, c.QUICAddr = "", "" }, false},
		{"zero message size", func(c *Config) { c.MaxMessageSize = 0 }, false},
		{"zero streams", func(c *Config) { c.MaxStreams = 0 }, false},
		{"negative timeout", func(c *Config) { c.IdleTimeout = -time.Second }, false},
		{"cert without key", func(c *Config) { c.CertFile = "server.crt" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultServerConfig()
			tt.modify(&config)
			err := config.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
