package server

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zeusync/arena/internal/core/codec"
	"github.com/zeusync/arena/internal/core/observability/log"
)

func (s *Server) quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:       s.config.IdleTimeout,
		KeepAlivePeriod:      s.config.IdleTimeout / 2,
		HandshakeIdleTimeout: 10 * time.Second,
		MaxIncomingStreams:   int64(s.config.MaxStreams),
	}
}

func (s *Server) acceptQUIC(ctx context.Context, listener *quic.Listener) error {
	s.logger.Debug("QUIC acceptor started")
	defer s.logger.Debug("QUIC acceptor stopped")

	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if atomic.LoadInt32(&s.running) == 1 && ctx.Err() == nil {
				s.logger.Error("Failed to accept QUIC connection", log.Error(err))
			}
			return nil
		}
		go s.handleQUICConnection(ctx, conn)
	}
}

// handleQUICConnection serves one bidirectional stream per request until the
// peer goes away.
func (s *Server) handleQUICConnection(ctx context.Context, conn *quic.Conn) {
	clientLogger := s.logger.With(log.String("remote_addr", conn.RemoteAddr().String()))
	atomic.AddInt64(&s.clientCount, 1)
	clientLogger.Debug("QUIC client connected")
	defer func() {
		atomic.AddInt64(&s.clientCount, -1)
		clientLogger.Debug("QUIC client disconnected")
	}()

	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		go s.handleQUICStream(stream, clientLogger)
	}
}

// handleQUICStream reads the request until the peer closes its send side,
// writes the response and closes the stream.
func (s *Server) handleQUICStream(stream *quic.Stream, logger log.Log) {
	defer func() { _ = stream.Close() }()

	if s.config.ReadTimeout > 0 {
		_ = stream.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	data, err := io.ReadAll(io.LimitReader(stream, s.config.MaxMessageSize+1))
	if err != nil {
		logger.Debug("QUIC stream read failed", log.Error(err))
		stream.CancelRead(0)
		return
	}
	atomic.AddUint64(&s.requests, 1)

	var out []byte
	if int64(len(data)) > s.config.MaxMessageSize {
		stream.CancelRead(0)
		out, _ = codec.Failure(ErrMessageTooLarge).Serialize()
	} else {
		out = s.dispatcher.HandleBytes(data)
	}

	if s.config.WriteTimeout > 0 {
		_ = stream.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	if _, err := stream.Write(out); err != nil {
		logger.Debug("QUIC stream write failed", log.Error(err))
	}
}
