package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shotcoach/backend/internal/logger"
)

// Stats is the registry's per-session snapshot for the HTTP front door.
type Stats struct {
	SessionID           string    `json:"session_id"`
	CreatedAt           time.Time `json:"created_at"`
	PrimaryConnections  int       `json:"primary_connections"`
	ObserverConnections int       `json:"observer_connections"`
	FramesReceivedTotal int64     `json:"frames_received_total"`
	MessagesSentTotal   int64     `json:"messages_sent_total"`
	LastHeartbeatAt     time.Time `json:"last_heartbeat_at"`
}

// Registry is the process-wide session map. It is explicitly constructed and
// injectable so independent registries can coexist in one process (tests run
// several). A session is reachable from the registry iff it is live.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	gcTimers    map[string]*time.Timer
	gracePeriod time.Duration
	closed      bool
}

func NewRegistry(gracePeriod time.Duration) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		gcTimers:    make(map[string]*time.Timer),
		gracePeriod: gracePeriod,
	}
}

// GetOrCreate returns the live session for id, creating it if absent. Safe
// for concurrent duplicate calls: at most one session ever exists per id.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := newSession(id)
	r.sessions[id] = s
	logger.Info("session created", "session", id)
	return s
}

// Create registers a new session. With an empty id the registry assigns one.
// An existing live session for id is returned as-is (create-if-absent).
func (r *Registry) Create(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return r.GetOrCreate(id)
}

// Get looks up a live session without creating one.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete tears the session down: emitters cancelled, handles closed, entry
// removed. Deleting an absent id is a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	if t, tok := r.gcTimers[id]; tok {
		t.Stop()
		delete(r.gcTimers, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	for _, c := range s.close() {
		c.Close()
	}
	logger.Info("session deleted", "session", id)
}

// ScheduleGC arms the grace-period collector for id. After the grace period
// the session is deleted only if it is still registered and still has no
// connections; a reconnect during the delay survives. Re-arming resets the
// window.
func (r *Registry) ScheduleGC(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if _, ok := r.sessions[id]; !ok {
		return
	}
	if t, ok := r.gcTimers[id]; ok {
		t.Stop()
	}
	r.gcTimers[id] = time.AfterFunc(r.gracePeriod, func() {
		r.collect(id)
	})
	logger.Debug("session gc armed", "session", id, "grace", r.gracePeriod)
}

// CancelGC disarms a pending collection, typically because a connection
// re-attached inside the grace period.
func (r *Registry) CancelGC(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.gcTimers[id]; ok {
		t.Stop()
		delete(r.gcTimers, id)
	}
}

func (r *Registry) collect(id string) {
	r.mu.Lock()
	delete(r.gcTimers, id)
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	// Re-verify: a client may have reconnected while the timer was queued.
	if s.HasAnyConnection() {
		return
	}
	logger.Info("session idle past grace period, collecting", "session", id)
	r.Delete(id)
}

// Stats returns the front-door snapshot for id.
func (r *Registry) Stats(id string) (Stats, bool) {
	s, ok := r.Get(id)
	if !ok {
		return Stats{}, false
	}
	return Stats{
		SessionID:           s.ID,
		CreatedAt:           s.CreatedAt,
		PrimaryConnections:  s.ConnCount(RolePrimary),
		ObserverConnections: s.ConnCount(RoleObserver),
		FramesReceivedTotal: s.FramesTotal(),
		MessagesSentTotal:   s.MessagesTotal(),
		LastHeartbeatAt:     s.LastHeartbeatAt(),
	}, true
}

// SetAnalysisCallback registers the external analysis hook for id. Reports
// false if the session does not exist.
func (r *Registry) SetAnalysisCallback(id string, fn AnalysisCallback) bool {
	s, ok := r.Get(id)
	if !ok {
		return false
	}
	s.SetAnalysisCallback(fn)
	return true
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown deletes every session and refuses further GC scheduling. Used on
// process exit and between tests.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Delete(id)
	}
}
