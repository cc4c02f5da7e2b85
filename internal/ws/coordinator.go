package ws

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/shotcoach/backend/internal/config"
	"github.com/shotcoach/backend/internal/engine"
	"github.com/shotcoach/backend/internal/logger"
	"github.com/shotcoach/backend/internal/protocol"
	"github.com/shotcoach/backend/internal/session"
	"github.com/shotcoach/backend/internal/telemetry"
)

// Coordinator is the session hub: it registers connections under their role,
// runs the per-session emitters, routes inbound messages, and fans outbound
// payloads out to the relevant role. All delivery is best-effort to sockets
// that are open right now; there is no queueing for late joiners.
type Coordinator struct {
	cfg      *config.Config
	registry *session.Registry
	assessor engine.Assessor
	selector engine.Selector

	// newTelemetry builds one snapshot source per session so each session
	// drifts independently.
	newTelemetry func() telemetry.Source

	rngMu sync.Mutex
	rng   *rand.Rand

	adviceCatalog []protocol.Advice
}

func NewCoordinator(cfg *config.Config, registry *session.Registry, assessor engine.Assessor, selector engine.Selector, newTelemetry func() telemetry.Source) *Coordinator {
	if newTelemetry == nil {
		newTelemetry = func() telemetry.Source {
			return telemetry.NewSimSource(nil)
		}
	}
	return &Coordinator{
		cfg:           cfg,
		registry:      registry,
		assessor:      assessor,
		selector:      selector,
		newTelemetry:  newTelemetry,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		adviceCatalog: standInAdviceCatalog,
	}
}

// AttachPrimary registers a camera connection. The newcomer immediately
// receives the current task and a fresh telemetry snapshot so it is not
// left waiting for the next scheduled tick; observers are told about the
// join; the first primary starts the emitters.
func (c *Coordinator) AttachPrimary(s *session.Session, conn session.Conn) {
	if s.Closed() {
		conn.Close()
		return
	}

	// Make sure a task exists before the newcomer is in the broadcast set,
	// so the selection events do not reach it twice.
	if s.ActiveTask() == nil {
		c.Reselect(s)
	}

	count := s.AddConn(session.RolePrimary, conn)
	if count < 0 {
		return
	}
	c.registry.CancelGC(s.ID)

	if task := s.ActiveTask(); task != nil {
		c.sendTo(s, conn, task)
	}
	snap := c.newTelemetry().Snapshot()
	c.sendTo(s, conn, snap)

	if count == 1 {
		c.startEmitters(s)
	}

	c.Broadcast(s, session.RoleObserver, protocol.ClientConnected{
		Type:      protocol.MsgClientConnected,
		Count:     count,
		Timestamp: protocol.Now(),
	})
	logger.Info("primary connected", "session", s.ID, "primaries", count)
}

// DetachPrimary unregisters a camera connection. The last one out stops the
// emitters; a fully empty session is handed to the grace-period collector.
func (c *Coordinator) DetachPrimary(s *session.Session, conn session.Conn) {
	count := s.RemoveConn(session.RolePrimary, conn)
	if count == 0 {
		s.StopEmitters()
	}

	c.Broadcast(s, session.RoleObserver, protocol.ClientDisconnected{
		Type:      protocol.MsgClientDisconnected,
		Count:     count,
		Timestamp: protocol.Now(),
	})
	logger.Info("primary disconnected", "session", s.ID, "primaries", count)

	if !s.HasAnyConnection() {
		c.registry.ScheduleGC(s.ID)
	}
}

// AttachObserver registers a console connection.
func (c *Coordinator) AttachObserver(s *session.Session, conn session.Conn) {
	if s.Closed() {
		conn.Close()
		return
	}
	count := s.AddConn(session.RoleObserver, conn)
	if count < 0 {
		return
	}
	c.registry.CancelGC(s.ID)
	logger.Info("observer connected", "session", s.ID, "observers", count)
}

// DetachObserver unregisters a console connection.
func (c *Coordinator) DetachObserver(s *session.Session, conn session.Conn) {
	count := s.RemoveConn(session.RoleObserver, conn)
	logger.Info("observer disconnected", "session", s.ID, "observers", count)

	if !s.HasAnyConnection() {
		c.registry.ScheduleGC(s.ID)
	}
}

// Reselect runs the decision engine and replaces the session's active task.
// The environment and reasoning events go out on every call, whether or not
// the task changed; they are presentation aids, not part of the selection
// contract.
func (c *Coordinator) Reselect(s *session.Session) {
	in := engine.Inputs{
		FramesReceived: s.FramesTotal(),
		Elapsed:        time.Since(s.CreatedAt),
	}
	assessment := c.assessor.Assess(in)
	task, reason := c.selector.Select(in, assessment)

	c.Broadcast(s, session.RolePrimary, protocol.Environment{
		Type:              protocol.MsgEnvironment,
		Tags:              assessment.Tags,
		ShootabilityScore: assessment.Shootability,
		Constraints:       assessment.Constraints,
		Timestamp:         protocol.Now(),
	})
	c.Broadcast(s, session.RolePrimary, protocol.Reasoning{
		Type:      protocol.MsgReasoning,
		TaskID:    task.ID,
		Text:      reason,
		Timestamp: protocol.Now(),
	})

	pt := &protocol.Task{
		Type:         protocol.MsgTask,
		TaskID:       task.ID,
		TaskName:     task.Name,
		Description:  task.Description,
		TargetMotion: task.TargetMotion,
		State:        "active",
		Progress:     0,
		Reason:       reason,
		Timestamp:    protocol.Now(),
	}
	s.SetActiveTask(pt)
	c.Broadcast(s, session.RolePrimary, pt)
	logger.Debug("task selected", "session", s.ID, "task", task.ID)
}

// Broadcast serializes payload once and sends it to every open connection
// of role. Closed or slow sockets are skipped; their own disconnect handler
// cleans the registry up eventually.
func (c *Coordinator) Broadcast(s *session.Session, role session.Role, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("broadcast marshal failed", "session", s.ID, "err", err)
		return
	}
	sent := 0
	for _, conn := range s.Conns(role) {
		if conn.Send(data) {
			sent++
		}
	}
	if sent > 0 {
		s.AddMessagesSent(sent)
	}
}

// sendTo delivers payload to a single connection.
func (c *Coordinator) sendTo(s *session.Session, conn session.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("send marshal failed", "session", s.ID, "err", err)
		return
	}
	if conn.Send(data) {
		s.AddMessagesSent(1)
	}
}

// chance draws from the coordinator's entropy; used for the probabilistic
// reselection tick and the stand-in advice pick.
func (c *Coordinator) chance() float64 {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.rng.Float64()
}

func (c *Coordinator) pick(n int) int {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.rng.Intn(n)
}
