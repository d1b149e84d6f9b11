package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/zeusync/arena/internal/core/engine"
	"github.com/zeusync/arena/internal/core/observability/log"
)

// Health is the body of /healthz.
type Health struct {
	Status  string       `json:"status"`
	Uptime  string       `json:"uptime"`
	Clients int64        `json:"clients"`
	Engine  engine.State `json:"engine"`
}

// StatsReport is the body of /stats.
type StatsReport struct {
	Clients  int64        `json:"clients"`
	Requests uint64       `json:"requests"`
	Engine   engine.Stats `json:"engine"`
}

// Handler routes /ws, /healthz and /stats. /healthz is never guarded.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.auth.Wrap(http.HandlerFunc(s.handleWebSocket)))
	mux.Handle("/stats", s.auth.Wrap(http.HandlerFunc(s.handleStats)))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "ok"
	if atomic.LoadInt32(&s.closed) == 1 {
		status = "closed"
	}
	s.writeJSON(w, Health{
		Status:  status,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Clients: atomic.LoadInt64(&s.clientCount),
		Engine:  s.engine.State(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.Stats())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", log.Error(err))
	}
}
