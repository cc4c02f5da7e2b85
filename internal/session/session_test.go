package session

import (
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *fakeConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.sent = append(c.sent, data)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestAddRemoveConnCounts(t *testing.T) {
	s := newSession("s1")

	a, b := &fakeConn{}, &fakeConn{}
	if got := s.AddConn(RolePrimary, a); got != 1 {
		t.Errorf("AddConn first primary = %d, want 1", got)
	}
	if got := s.AddConn(RolePrimary, b); got != 2 {
		t.Errorf("AddConn second primary = %d, want 2", got)
	}
	if got := s.RemoveConn(RolePrimary, a); got != 1 {
		t.Errorf("RemoveConn = %d, want 1", got)
	}
	// Removing an unknown handle is a no-op.
	if got := s.RemoveConn(RolePrimary, a); got != 1 {
		t.Errorf("RemoveConn repeat = %d, want 1", got)
	}
	if !s.HasAnyConnection() {
		t.Error("session should still have a connection")
	}
	s.RemoveConn(RolePrimary, b)
	if s.HasAnyConnection() {
		t.Error("session should be empty")
	}
}

func TestRolesAreDisjoint(t *testing.T) {
	s := newSession("s1")
	c := &fakeConn{}

	if got := s.AddConn(RolePrimary, c); got != 1 {
		t.Fatalf("AddConn primary = %d, want 1", got)
	}
	if got := s.AddConn(RoleObserver, c); got != -1 {
		t.Errorf("same handle accepted under second role, count %d", got)
	}
	if got := s.ConnCount(RoleObserver); got != 0 {
		t.Errorf("observer count = %d, want 0", got)
	}
}

func TestCountersAreMonotonic(t *testing.T) {
	s := newSession("s1")

	if got := s.AddFrames(3); got != 3 {
		t.Errorf("AddFrames = %d, want 3", got)
	}
	if got := s.AddFrames(5); got != 8 {
		t.Errorf("AddFrames = %d, want 8", got)
	}
	s.AddMessagesSent(2)
	if got := s.MessagesTotal(); got != 2 {
		t.Errorf("MessagesTotal = %d, want 2", got)
	}
}

func TestTryAdviceCooldown(t *testing.T) {
	s := newSession("s1")
	base := time.Now()

	if !s.TryAdvice(base, 3*time.Second) {
		t.Fatal("first advice should pass")
	}
	if s.TryAdvice(base.Add(time.Second), 3*time.Second) {
		t.Error("advice inside cooldown window should be suppressed")
	}
	if !s.TryAdvice(base.Add(4*time.Second), 3*time.Second) {
		t.Error("advice after cooldown should pass")
	}
}

func TestClosedSessionRejectsConns(t *testing.T) {
	s := newSession("s1")
	c := &fakeConn{}
	s.AddConn(RolePrimary, c)

	s.close()

	if !s.Closed() {
		t.Fatal("session should be closed")
	}
	if got := s.AddConn(RolePrimary, &fakeConn{}); got != -1 {
		t.Errorf("AddConn on closed session = %d, want -1", got)
	}
	if s.HasAnyConnection() {
		t.Error("closed session should have no connections")
	}
}

func TestStopEmittersIdempotent(t *testing.T) {
	s := newSession("s1")
	calls := 0
	s.SetEmitterStop(func() { calls++ })

	if !s.EmittersRunning() {
		t.Fatal("emitters should be running")
	}
	s.StopEmitters()
	s.StopEmitters()
	if calls != 1 {
		t.Errorf("stop called %d times, want 1", calls)
	}
	if s.EmittersRunning() {
		t.Error("emitters should be stopped")
	}
}
