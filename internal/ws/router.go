package ws

import (
	"time"

	"github.com/shotcoach/backend/internal/logger"
	"github.com/shotcoach/backend/internal/protocol"
	"github.com/shotcoach/backend/internal/session"
)

// standInAdviceCatalog feeds the local advice generator used when no
// external analysis callback is registered. Placeholder content; the real
// coaching engine replaces this path entirely.
var standInAdviceCatalog = []protocol.Advice{
	{Priority: "low", Category: "framing", Message: "Try leaving more room in the direction the subject faces", SuppressDurationMS: 3000},
	{Priority: "low", Category: "stability", Message: "Tuck your elbows in for a steadier hold", SuppressDurationMS: 3000},
	{Priority: "medium", Category: "exposure", Message: "The highlights look hot; tilt slightly away from the light", SuppressDurationMS: 3000},
	{Priority: "low", Category: "composition", Message: "Step closer; the subject is getting lost in the frame", SuppressDurationMS: 3000},
	{Priority: "medium", Category: "motion", Message: "Slow the pan down so the background stays readable", SuppressDurationMS: 3000},
}

// HandleInbound routes one raw message from a camera connection. Malformed
// or unknown payloads get a recoverable error reply and change nothing;
// nothing on this path can fail the session.
func (c *Coordinator) HandleInbound(s *session.Session, raw []byte, conn session.Conn) {
	msg, werr := protocol.DecodeInbound(raw)
	if werr != nil {
		c.sendTo(s, conn, protocol.NewError(werr.Code, werr.Message))
		return
	}

	switch m := msg.(type) {
	case protocol.FramesMessage:
		c.handleFrames(s, m, conn)
	case protocol.HeartbeatMessage:
		c.sendTo(s, conn, protocol.HeartbeatAck{
			Type:      protocol.MsgHeartbeatAck,
			Timestamp: protocol.Now(),
		})
	case protocol.StatusMessage:
		c.sendTo(s, conn, c.statusSnapshot(s))
	default:
		// Unreachable while DecodeInbound stays exhaustive; ignore.
	}
}

func (c *Coordinator) handleFrames(s *session.Session, m protocol.FramesMessage, conn session.Conn) {
	if werr := m.Validate(); werr != nil {
		c.sendTo(s, conn, protocol.NewError(werr.Code, werr.Message))
		return
	}

	count := len(m.Frames)
	total := s.AddFrames(count)

	c.Broadcast(s, session.RoleObserver, protocol.FramesReceived{
		Type:      protocol.MsgFramesReceived,
		Count:     count,
		Total:     total,
		Timestamp: protocol.Now(),
	})

	if cb := s.AnalysisCallback(); cb != nil {
		// External engine takes over; its advice arrives later through the
		// broadcast path, never as a blocking reply.
		go cb(session.AnalysisInput{
			SessionID: s.ID,
			Frames:    m.Frames,
			FPS:       m.FPS,
			Timestamp: m.Timestamp,
		})
	} else {
		c.standInAdvice(s)
	}

	c.sendTo(s, conn, protocol.FrameAck{
		Type:       protocol.MsgFrameAck,
		FrameCount: count,
		Timestamp:  protocol.Now(),
	})
}

// standInAdvice emits one advice message from the local catalog, rate-limited
// to one per cooldown window per session.
func (c *Coordinator) standInAdvice(s *session.Session) {
	if !s.TryAdvice(time.Now(), c.cfg.Coordinator.AdviceCooldown) {
		return
	}

	advice := c.adviceCatalog[c.pick(len(c.adviceCatalog))]
	advice.Type = protocol.MsgAdvice
	advice.Timestamp = protocol.Now()

	c.Broadcast(s, session.RolePrimary, advice)
	c.Broadcast(s, session.RoleObserver, protocol.AdviceSent{
		Type:      protocol.MsgAdviceSent,
		Advice:    advice,
		Timestamp: advice.Timestamp,
	})
	logger.Debug("stand-in advice sent", "session", s.ID, "category", advice.Category)
}

func (c *Coordinator) statusSnapshot(s *session.Session) protocol.Status {
	var lastHB int64
	if hb := s.LastHeartbeatAt(); !hb.IsZero() {
		lastHB = hb.UnixMilli()
	}
	return protocol.Status{
		Type:                protocol.MsgStatus,
		SessionID:           s.ID,
		CreatedAt:           s.CreatedAt.UnixMilli(),
		PrimaryConnections:  s.ConnCount(session.RolePrimary),
		ObserverConnections: s.ConnCount(session.RoleObserver),
		FramesReceivedTotal: s.FramesTotal(),
		MessagesSentTotal:   s.MessagesTotal(),
		LastHeartbeatAt:     lastHB,
		Timestamp:           protocol.Now(),
	}
}
