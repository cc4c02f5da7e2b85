package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/shotcoach/backend/internal/config"
	"github.com/shotcoach/backend/internal/logger"
	"github.com/shotcoach/backend/internal/protocol"
	"github.com/shotcoach/backend/internal/session"
)

// Server is the HTTP front door: the two socket endpoints plus the thin
// REST surface the demo UI and scripts call.
type Server struct {
	cfg            *config.Config
	registry       *session.Registry
	coordinator    *Coordinator
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
	proc           *process.Process
}

func NewServer(cfg *config.Config, registry *session.Registry, coordinator *Coordinator) *Server {
	s := &Server{
		cfg:            cfg,
		registry:       registry,
		coordinator:    coordinator,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      cfg.Server.AuthToken,
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = p
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/camera", s.handleCamera)
	mux.HandleFunc("/ws/console", s.handleConsole)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionRoutes)
	mux.HandleFunc("/api/health", s.handleHealth)
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, string, bool) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, "", false
	}
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "missing session parameter", http.StatusBadRequest)
		return nil, "", false
	}

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws upgrade failed", "err", err)
		return nil, "", false
	}
	return conn, id, true
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	conn, id, ok := s.upgrade(w, r)
	if !ok {
		return
	}

	// First socket reference to an unknown id creates the session, same as
	// an explicit REST create.
	sess := s.registry.GetOrCreate(id)
	cl := newClient(conn, s.cfg.Coordinator.SendBuffer)
	s.coordinator.AttachPrimary(sess, cl)

	go func() {
		defer func() {
			s.coordinator.DetachPrimary(sess, cl)
			cl.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.coordinator.HandleInbound(sess, data, cl)
		}
	}()
}

func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	conn, id, ok := s.upgrade(w, r)
	if !ok {
		return
	}

	sess := s.registry.GetOrCreate(id)
	cl := newClient(conn, s.cfg.Coordinator.SendBuffer)
	s.coordinator.AttachObserver(sess, cl)

	go func() {
		defer func() {
			s.coordinator.DetachObserver(sess, cl)
			cl.Close()
		}()
		for {
			// Consoles only listen; drain and discard anything they send.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type createSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createSessionRequest
	if r.Body != nil {
		// An empty or absent body means "assign an id for me".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	sess := s.registry.Create(req.SessionID)
	stats, _ := s.registry.Stats(sess.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/api/sessions/"))
	if err != nil || id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		stats, ok := s.registry.Stats(id)
		if !ok {
			s.writeNotFound(w, id)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)

	case http.MethodDelete:
		// Idempotent: deleting an absent id is still a 204.
		s.registry.Delete(id)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) writeNotFound(w http.ResponseWriter, id string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(protocol.NewError(protocol.CodeSessionNotFound, "no session with id "+id))
}

type healthResponse struct {
	Status        string  `json:"status"`
	Sessions      int     `json:"sessions"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryRSSByte uint64  `json:"memory_rss_bytes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Sessions: s.registry.Len(),
	}
	if s.proc != nil {
		if cpu, err := s.proc.CPUPercent(); err == nil {
			resp.CPUPercent = cpu
		}
		if mem, err := s.proc.MemoryInfo(); err == nil && mem != nil {
			resp.MemoryRSSByte = mem.RSS
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.authToken {
		return true
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}
	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := parsed.Host
	if host == "" {
		return false
	}
	if host == r.Host {
		return true
	}
	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	return false
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	logger.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}
