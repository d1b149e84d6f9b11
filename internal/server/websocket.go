package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/arena/internal/core/codec"
	"github.com/zeusync/arena/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWebSocket serves one client: every binary frame is a request and
// gets exactly one binary response, in order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection",
			log.String("remote_addr", r.RemoteAddr),
			log.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	clientLogger := s.logger.With(log.String("remote_addr", conn.RemoteAddr().String()))
	atomic.AddInt64(&s.clientCount, 1)
	clientLogger.Debug("Websocket client connected")
	defer func() {
		atomic.AddInt64(&s.clientCount, -1)
		clientLogger.Debug("Websocket client disconnected")
	}()

	s.sessions.Store(conn, struct{}{})
	defer s.sessions.Delete(conn)

	conn.SetReadLimit(s.config.MaxMessageSize)

	for atomic.LoadInt32(&s.closed) == 0 && atomic.LoadInt32(&s.draining) == 0 {
		if s.config.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				clientLogger.Debug("Websocket read failed", log.Error(err))
			}
			return
		}
		atomic.AddUint64(&s.requests, 1)

		var out []byte
		if messageType == websocket.BinaryMessage {
			out = s.dispatcher.HandleBytes(data)
		} else {
			out, _ = codec.Failure(ErrInvalidMessage).Serialize()
		}

		if s.config.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
			clientLogger.Debug("Websocket write failed", log.Error(err))
			return
		}
	}
}

// closeSessions ends every open websocket session with a going-away frame.
func (s *Server) closeSessions() {
	message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping")
	deadline := time.Now().Add(time.Second)

	s.sessions.Range(func(key, _ any) bool {
		conn := key.(*websocket.Conn)
		_ = conn.WriteControl(websocket.CloseMessage, message, deadline)
		_ = conn.Close()
		s.sessions.Delete(key)
		return true
	})
}
