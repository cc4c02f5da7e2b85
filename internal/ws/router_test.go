package ws

import (
	"testing"
	"time"

	"github.com/shotcoach/backend/internal/config"
	"github.com/shotcoach/backend/internal/session"
)

func TestHandleInboundMalformed(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantCode string
	}{
		{"NotJSON", `not json at all`, "invalid_json"},
		{"UnknownType", `{"type":"dance"}`, "unknown_type"},
		{"MissingType", `{"frames":["a"]}`, "unknown_type"},
		{"EmptyFrames", `{"type":"frames","frames":[]}`, "invalid_frame_buffer"},
		{"MissingFrames", `{"type":"frames"}`, "invalid_frame_buffer"},
		{"FramesNotArray", `{"type":"frames","frames":42}`, "invalid_frame_buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, coord := newTestStack(t, nil)
			s := registry.GetOrCreate("s1")
			cam := &testConn{}
			coord.AttachPrimary(s, cam)

			coord.HandleInbound(s, []byte(tt.raw), cam)

			errMsg := cam.lastOfType(t, "error")
			if errMsg["code"] != tt.wantCode {
				t.Errorf("code = %v, want %q", errMsg["code"], tt.wantCode)
			}
			if errMsg["recoverable"] != true {
				t.Error("error not marked recoverable")
			}
			if got := s.FramesTotal(); got != 0 {
				t.Errorf("frames total = %d, want 0 after rejected input", got)
			}
		})
	}
}

func TestFrameTotalsAreAdditive(t *testing.T) {
	registry, coord := newTestStack(t, nil)
	s := registry.GetOrCreate("s1")
	cam := &testConn{}
	coord.AttachPrimary(s, cam)

	submissions := []string{
		`{"type":"frames","frames":["a","b"]}`,
		`{"type":"frames","frames":["c","d","e"]}`,
		`{"type":"frames","frames":["f"]}`,
	}
	wantSizes := []float64{2, 3, 1}

	for _, raw := range submissions {
		coord.HandleInbound(s, []byte(raw), cam)
	}

	if got := s.FramesTotal(); got != 6 {
		t.Errorf("frames total = %d, want 6", got)
	}
	acks := cam.ofType("frame_ack")
	if len(acks) != len(submissions) {
		t.Fatalf("frame_ack count = %d, want %d", len(acks), len(submissions))
	}
	for i, ack := range acks {
		if ack["frame_count"].(float64) != wantSizes[i] {
			t.Errorf("ack[%d] frame_count = %v, want %v", i, ack["frame_count"], wantSizes[i])
		}
	}
}

func TestFramesEventReachesObservers(t *testing.T) {
	registry, coord := newTestStack(t, nil)
	s := registry.GetOrCreate("s1")
	cam, obs := &testConn{}, &testConn{}
	coord.AttachPrimary(s, cam)
	coord.AttachObserver(s, obs)

	coord.HandleInbound(s, []byte(`{"type":"frames","frames":["a","b"]}`), cam)

	ev := obs.lastOfType(t, "frames_received")
	if ev["count"].(float64) != 2 {
		t.Errorf("frames_received count = %v, want 2", ev["count"])
	}
	if ev["total"].(float64) != 2 {
		t.Errorf("frames_received total = %v, want 2", ev["total"])
	}
	// Observers never get the camera-facing reply.
	if obs.countType("frame_ack") != 0 {
		t.Error("observer received a frame_ack")
	}
}

func TestHeartbeatAck(t *testing.T) {
	registry, coord := newTestStack(t, nil)
	s := registry.GetOrCreate("s1")
	cam := &testConn{}
	coord.AttachPrimary(s, cam)

	coord.HandleInbound(s, []byte(`{"type":"heartbeat"}`), cam)

	ack := cam.lastOfType(t, "heartbeat_ack")
	if ack["timestamp"].(float64) == 0 {
		t.Error("heartbeat_ack has no timestamp")
	}
}

func TestStatusQuery(t *testing.T) {
	registry, coord := newTestStack(t, nil)
	s := registry.GetOrCreate("s1")
	cam := &testConn{}
	coord.AttachPrimary(s, cam)
	coord.HandleInbound(s, []byte(`{"type":"frames","frames":["a","b","c","d"]}`), cam)

	coord.HandleInbound(s, []byte(`{"type":"status"}`), cam)

	st := cam.lastOfType(t, "status")
	if st["session_id"] != "s1" {
		t.Errorf("session_id = %v, want s1", st["session_id"])
	}
	if st["frames_received_total"].(float64) != 4 {
		t.Errorf("frames_received_total = %v, want 4", st["frames_received_total"])
	}
	if st["primary_connections"].(float64) != 1 {
		t.Errorf("primary_connections = %v, want 1", st["primary_connections"])
	}
}

func TestStandInAdviceCooldown(t *testing.T) {
	registry, coord := newTestStack(t, func(cfg *config.Config) {
		cfg.Coordinator.AdviceCooldown = time.Hour
	})
	s := registry.GetOrCreate("s1")
	cam, obs := &testConn{}, &testConn{}
	coord.AttachPrimary(s, cam)
	coord.AttachObserver(s, obs)

	for i := 0; i < 5; i++ {
		coord.HandleInbound(s, []byte(`{"type":"frames","frames":["a"]}`), cam)
	}

	if got := cam.countType("advice"); got != 1 {
		t.Errorf("advice messages = %d, want 1 inside the cooldown window", got)
	}
	if got := obs.countType("advice_sent"); got != 1 {
		t.Errorf("advice_sent events = %d, want 1", got)
	}
}

func TestAnalysisCallbackReplacesStandIn(t *testing.T) {
	registry, coord := newTestStack(t, nil)
	s := registry.GetOrCreate("s1")
	cam := &testConn{}
	coord.AttachPrimary(s, cam)

	got := make(chan session.AnalysisInput, 1)
	if !registry.SetAnalysisCallback("s1", func(in session.AnalysisInput) {
		got <- in
	}) {
		t.Fatal("SetAnalysisCallback failed")
	}

	coord.HandleInbound(s, []byte(`{"type":"frames","frames":["a","b"],"fps":30}`), cam)

	select {
	case in := <-got:
		if in.SessionID != "s1" || len(in.Frames) != 2 || in.FPS != 30 {
			t.Errorf("callback input = %+v", in)
		}
	case <-time.After(time.Second):
		t.Fatal("analysis callback never invoked")
	}

	if cam.countType("advice") != 0 {
		t.Error("stand-in advice ran despite a registered callback")
	}
	// The submission is still acknowledged.
	if cam.countType("frame_ack") != 1 {
		t.Error("frame_ack missing with callback registered")
	}
}
