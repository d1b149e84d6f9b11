// Package server exposes an engine over websocket and QUIC. Both transports
// carry the msgpack envelopes of the codec package; the websocket listener
// also serves the /healthz and /stats JSON endpoints.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/arena/internal/core/engine"
	"github.com/zeusync/arena/internal/core/observability/log"
)

// Server serves prediction requests
type Server struct {
	engine     *engine.Engine
	dispatcher *Dispatcher
	auth       *TokenAuth

	// guarded by mu
	mu           sync.Mutex
	httpServer   *http.Server
	httpListener net.Listener
	quicListener *quic.Listener
	cancel       context.CancelFunc
	group        *errgroup.Group

	sessions    sync.Map // *websocket.Conn -> struct{}
	clientCount int64    // atomic
	requests    uint64   // atomic

	// Server state
	running  int32 // atomic bool
	closed   int32 // atomic bool
	draining int32 // atomic bool, set while Stop runs
	started time.Time

	config Config
	logger log.Log
}

// Config holds server configuration
type Config struct {
	// Network settings. An empty address disables that transport.
	WebsocketAddr string `yaml:"websocket_addr" json:"websocket_addr"`
	QUICAddr      string `yaml:"quic_addr" json:"quic_addr"`

	// TLS key pair for QUIC; a self-signed certificate is generated when empty.
	CertFile string `yaml:"cert_file" json:"cert_file"`
	KeyFile  string `yaml:"key_file" json:"key_file"`

	// Token guards /ws and /stats when set.
	Token string `yaml:"token" json:"-"`

	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Message settings
	MaxMessageSize int64 `yaml:"max_message_size" json:"max_message_size"`
	MaxStreams     int   `yaml:"max_streams" json:"max_streams"`

	// StatsInterval is how often engine statistics are logged; zero disables it.
	StatsInterval time.Duration `yaml:"stats_interval" json:"stats_interval"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		WebsocketAddr:   "127.0.0.1:8080",
		QUICAddr:        "127.0.0.1:8443",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: 5 * time.Second,
		MaxMessageSize:  1024 * 1024, // 1MB
		MaxStreams:      100,
		StatsInterval:   time.Minute,
	}
}

func (c Config) Validate() error {
	switch {
	case c.WebsocketAddr == "" && c.QUICAddr == "":
		return errors.Wrap(ErrInvalidConfig, "no listen address")
	case c.MaxMessageSize <= 0:
		return errors.Wrapf(ErrInvalidConfig, "max_message_size %d", c.MaxMessageSize)
	case c.QUICAddr != "" && c.MaxStreams <= 0:
		return errors.Wrapf(ErrInvalidConfig, "max_streams %d", c.MaxStreams)
	case c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 || c.ShutdownTimeout < 0:
		return errors.Wrap(ErrInvalidConfig, "negative timeout")
	case c.StatsInterval < 0:
		return errors.Wrap(ErrInvalidConfig, "negative stats_interval")
	case (c.CertFile == "") != (c.KeyFile == ""):
		return errors.Wrap(ErrInvalidConfig, "cert_file and key_file go together")
	}
	return nil
}

// NewServer creates a new prediction server
func NewServer(config Config, e *engine.Engine, logger log.Log) *Server {
	logger = logger.With(log.String("component", "server"))

	server := &Server{
		engine:     e,
		dispatcher: NewDispatcher(e, logger),
		auth:       NewTokenAuth(config.Token, logger),
		started:    time.Now(),
		config:     config,
		logger:     logger,
	}

	server.logger.Info("Server created",
		log.String("websocket_addr", config.WebsocketAddr),
		log.String("quic_addr", config.QUICAddr),
		log.Bool("auth", server.auth.Enabled()))

	return server
}

// Start opens the configured listeners and serves them in the background.
func (s *Server) Start(ctx context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}

	if err := s.config.Validate(); err != nil {
		return err
	}

	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}
	atomic.StoreInt32(&s.draining, 0)

	s.logger.Info("Starting server")

	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	s.cancel, s.group = cancel, group

	if s.config.WebsocketAddr != "" {
		listener, err := net.Listen("tcp", s.config.WebsocketAddr)
		if err != nil {
			s.abortStart()
			s.logger.Error("Failed to create listener", log.String("addr", s.config.WebsocketAddr), log.Error(err))
			return errors.Wrap(ErrListenerFailed, err.Error())
		}

		s.httpListener = listener
		s.httpServer = &http.Server{
			Handler:           s.Handler(),
			ReadHeaderTimeout: s.config.ReadTimeout,
			IdleTimeout:       s.config.IdleTimeout,
		}
		srv := s.httpServer
		group.Go(func() error {
			if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "serve http")
			}
			return nil
		})

		s.logger.Info("Websocket listening", log.String("addr", listener.Addr().String()))
	}

	if s.config.QUICAddr != "" {
		tlsConf, err := tlsConfig(s.config.CertFile, s.config.KeyFile)
		if err != nil {
			s.abortStart()
			return err
		}

		listener, err := quic.ListenAddr(s.config.QUICAddr, tlsConf, s.quicConfig())
		if err != nil {
			s.abortStart()
			s.logger.Error("Failed to create QUIC listener", log.String("addr", s.config.QUICAddr), log.Error(err))
			return errors.Wrap(ErrListenerFailed, err.Error())
		}

		s.quicListener = listener
		group.Go(func() error { return s.acceptQUIC(groupCtx, listener) })

		s.logger.Info("QUIC listening", log.String("addr", listener.Addr().String()))
	}

	if s.config.StatsInterval > 0 {
		group.Go(func() error {
			s.reportStats(groupCtx)
			return nil
		})
	}

	s.logger.Info("Server started successfully")
	return nil
}

// abortStart releases whatever Start opened so far. Callers hold mu.
func (s *Server) abortStart() {
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.quicListener != nil {
		_ = s.quicListener.Close()
	}
	s.cancel()
	_ = s.group.Wait()
	s.httpServer, s.httpListener, s.quicListener = nil, nil, nil
	atomic.StoreInt32(&s.running, 0)
}

// Stop closes the listeners and waits for the background workers.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping server")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	// hijacked websocket connections are invisible to Shutdown
	atomic.StoreInt32(&s.draining, 1)

	var shutdownErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = errors.Wrap(err, "shutdown http")
			_ = s.httpServer.Close()
		}
	}
	s.closeSessions()
	if s.quicListener != nil {
		_ = s.quicListener.Close()
	}

	s.cancel()
	if err := s.group.Wait(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}

	s.httpServer, s.httpListener, s.quicListener = nil, nil, nil

	s.logger.Info("Server stopped")
	return shutdownErr
}

// Close stops the server for good. Sessions served through Handler without
// Start end after their next message.
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil // Already closed
	}

	s.logger.Info("Closing server")

	var err error
	if atomic.LoadInt32(&s.running) == 1 {
		err = s.Stop(context.Background())
	}

	s.logger.Info("Server closed")
	return err
}

// WebsocketAddr returns the bound websocket address, empty when not listening.
func (s *Server) WebsocketAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// QUICAddr returns the bound QUIC address, empty when not listening.
func (s *Server) QUICAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quicListener == nil {
		return ""
	}
	return s.quicListener.Addr().String()
}

func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Stats returns server statistics
func (s *Server) Stats() StatsReport {
	return StatsReport{
		Clients:  atomic.LoadInt64(&s.clientCount),
		Requests: atomic.LoadUint64(&s.requests),
		Engine:   s.engine.Stats(),
	}
}

func (s *Server) reportStats(ctx context.Context) {
	s.logger.Debug("Stats reporter started")

	ticker := time.NewTicker(s.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := s.Stats()
			s.logger.Info("Server stats",
				log.Int64("clients", stats.Clients),
				log.Uint64("requests", stats.Requests),
				log.Bool("initialized", stats.Engine.State.Initialized),
				log.Uint64("builds", stats.Engine.Builds),
				log.Uint64("analyses", stats.Engine.Analyses),
				log.Uint64("dropped_metrics", stats.Engine.Dropped))
		case <-ctx.Done():
			s.logger.Debug("Stats reporter stopped")
			return
		}
	}
}
