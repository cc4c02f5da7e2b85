package ws

import (
	"context"
	"time"

	"github.com/shotcoach/backend/internal/logger"
	"github.com/shotcoach/backend/internal/protocol"
	"github.com/shotcoach/backend/internal/session"
)

// startEmitters moves the session's scheduler from IDLE to ACTIVE: one
// goroutine drives the heartbeat, telemetry, and reselection tickers until
// the cancellation owned by the session fires. Every tick re-checks session
// liveness: a tick already queued when teardown runs must never mutate a
// deleted session.
func (c *Coordinator) startEmitters(s *session.Session) {
	if s.EmittersRunning() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.SetEmitterStop(cancel)
	go c.runEmitters(ctx, s)
	logger.Debug("emitters started", "session", s.ID)
}

func (c *Coordinator) runEmitters(ctx context.Context, s *session.Session) {
	heartbeat := time.NewTicker(c.cfg.Coordinator.HeartbeatInterval)
	defer heartbeat.Stop()
	telem := time.NewTicker(c.cfg.Coordinator.TelemetryInterval)
	defer telem.Stop()
	reselect := time.NewTicker(c.cfg.Coordinator.ReselectInterval)
	defer reselect.Stop()

	src := c.newTelemetry()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("emitters stopped", "session", s.ID)
			return

		case <-heartbeat.C:
			if s.Closed() {
				return
			}
			s.TouchHeartbeat(time.Now())
			c.Broadcast(s, session.RolePrimary, protocol.Heartbeat{
				Type:      protocol.MsgHeartbeat,
				SessionID: s.ID,
				Timestamp: protocol.Now(),
			})

		case <-telem.C:
			if s.Closed() {
				return
			}
			c.Broadcast(s, session.RolePrimary, src.Snapshot())

		case <-reselect.C:
			if s.Closed() {
				return
			}
			// Only re-plan some of the time, emulating "something changed".
			if c.chance() < c.cfg.Engine.ReselectProbability {
				c.Reselect(s)
			}
		}
	}
}
