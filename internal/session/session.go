// Package session holds the per-session state of the coordinator: the
// role-partitioned connection sets, the monotonic counters, and the global
// registry that owns session lifecycle.
package session

import (
	"sync"
	"time"

	"github.com/shotcoach/backend/internal/protocol"
)

// Role partitions a session's connections. A handle belongs to exactly one
// role for its lifetime.
type Role int

const (
	RolePrimary  Role = iota // data-producing camera client
	RoleObserver             // passive console watcher
)

func (r Role) String() string {
	if r == RolePrimary {
		return "primary"
	}
	return "observer"
}

// Conn is a transport handle borrowed by a session's role set. Send is
// best-effort and non-blocking; it reports false when the handle is closed
// or cannot keep up. The session never owns the underlying socket.
type Conn interface {
	Send(data []byte) bool
	Close()
}

// AnalysisInput is handed to a registered external analysis callback in
// place of the stand-in advice generator.
type AnalysisInput struct {
	SessionID string
	Frames    []string
	FPS       float64
	Timestamp int64
}

// AnalysisCallback receives frame batches asynchronously. Its results, if
// any, come back through the broadcast path, never as a return value.
type AnalysisCallback func(AnalysisInput)

// Session is the unit of isolation for one coaching interaction. All mutable
// state is guarded by its own mutex; independent sessions never contend.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu              sync.Mutex
	lastHeartbeatAt time.Time
	primaries       map[Conn]struct{}
	observers       map[Conn]struct{}
	framesTotal     int64
	messagesTotal   int64
	activeTask      *protocol.Task
	lastAdviceAt    time.Time
	analysis        AnalysisCallback
	stopEmitters    func()
	closed          bool
}

func newSession(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		primaries: make(map[Conn]struct{}),
		observers: make(map[Conn]struct{}),
	}
}

// AddConn registers conn under role and returns the new count for that role.
// Registering the same handle under the other role is rejected (count -1):
// roles are disjoint for a handle's lifetime.
func (s *Session) AddConn(role Role, conn Conn) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return -1
	}
	if role == RolePrimary {
		if _, ok := s.observers[conn]; ok {
			return -1
		}
		s.primaries[conn] = struct{}{}
		return len(s.primaries)
	}
	if _, ok := s.primaries[conn]; ok {
		return -1
	}
	s.observers[conn] = struct{}{}
	return len(s.observers)
}

// RemoveConn unregisters conn and returns the remaining count for the role.
// Removing an unknown handle is a no-op.
func (s *Session) RemoveConn(role Role, conn Conn) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role == RolePrimary {
		delete(s.primaries, conn)
		return len(s.primaries)
	}
	delete(s.observers, conn)
	return len(s.observers)
}

// Conns returns a snapshot of the handles registered under role, safe to
// iterate without holding the session lock.
func (s *Session) Conns(role Role) []Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.primaries
	if role == RoleObserver {
		set = s.observers
	}
	out := make([]Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (s *Session) ConnCount(role Role) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role == RolePrimary {
		return len(s.primaries)
	}
	return len(s.observers)
}

// HasAnyConnection reports whether any handle of either role remains. The
// grace-period collector keys off this.
func (s *Session) HasAnyConnection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.primaries)+len(s.observers) > 0
}

// AddFrames bumps the frames-received counter by n and returns the new
// total. Counters are append-only; only full deletion resets them.
func (s *Session) AddFrames(n int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.framesTotal += int64(n)
	}
	return s.framesTotal
}

func (s *Session) FramesTotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.framesTotal
}

func (s *Session) AddMessagesSent(n int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.messagesTotal += int64(n)
	}
	return s.messagesTotal
}

func (s *Session) MessagesTotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagesTotal
}

// SetActiveTask replaces the current task wholesale. Ignored once the
// session is closed: a reselection racing teardown must not mutate it.
func (s *Session) SetActiveTask(t *protocol.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.activeTask = t
	}
}

func (s *Session) ActiveTask() *protocol.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTask
}

func (s *Session) TouchHeartbeat(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.lastHeartbeatAt = t
	}
}

func (s *Session) LastHeartbeatAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeartbeatAt
}

// TryAdvice reports whether an unsolicited advice message may be sent now,
// and if so starts a new cooldown window. At most one advice per window.
func (s *Session) TryAdvice(now time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastAdviceAt.IsZero() && now.Sub(s.lastAdviceAt) < cooldown {
		return false
	}
	s.lastAdviceAt = now
	return true
}

// SetAnalysisCallback installs (or clears, with nil) the external analysis
// hook. While set, the stand-in advice generator is bypassed.
func (s *Session) SetAnalysisCallback(fn AnalysisCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis = fn
}

func (s *Session) AnalysisCallback() AnalysisCallback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// SetEmitterStop hands the session ownership of its emitter cancellation.
// Called by the scheduler when the first primary attaches.
func (s *Session) SetEmitterStop(stop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopEmitters = stop
}

// StopEmitters cancels the running emitters, if any. Idempotent.
func (s *Session) StopEmitters() {
	s.mu.Lock()
	stop := s.stopEmitters
	s.stopEmitters = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// EmittersRunning reports whether the per-session emitters are active.
func (s *Session) EmittersRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopEmitters != nil
}

// Closed reports whether the session has been torn down. Every timer
// callback checks this before mutating anything; firing after teardown is
// the race this flag guards.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// close marks the session dead and returns every remaining handle so the
// caller can close the sockets outside the lock.
func (s *Session) close() []Conn {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]Conn, 0, len(s.primaries)+len(s.observers))
	for c := range s.primaries {
		conns = append(conns, c)
	}
	for c := range s.observers {
		conns = append(conns, c)
	}
	s.primaries = make(map[Conn]struct{})
	s.observers = make(map[Conn]struct{})
	s.mu.Unlock()

	s.StopEmitters()
	return conns
}
