package telemetry

import (
	"math/rand"
	"testing"

	"github.com/shotcoach/backend/internal/protocol"
)

func TestSnapshotStaysInRange(t *testing.T) {
	src := NewSimSource(rand.New(rand.NewSource(99)))

	for i := 0; i < 1000; i++ {
		snap := src.Snapshot()
		if snap.Stability < 0 || snap.Stability > 1 {
			t.Fatalf("tick %d: stability %v out of [0,1]", i, snap.Stability)
		}
		if snap.Brightness < 0 || snap.Brightness > 100 {
			t.Fatalf("tick %d: brightness %v out of [0,100]", i, snap.Brightness)
		}
		if snap.MotionLevel < 0 || snap.MotionLevel > 1 {
			t.Fatalf("tick %d: motion %v out of [0,1]", i, snap.MotionLevel)
		}
		if snap.FocusScore < 0 || snap.FocusScore > 1 {
			t.Fatalf("tick %d: focus %v out of [0,1]", i, snap.FocusScore)
		}
		if snap.Type != protocol.MsgTelemetry {
			t.Fatalf("tick %d: type %q, want telemetry", i, snap.Type)
		}
	}
}

func TestSnapshotDriftsSmoothly(t *testing.T) {
	src := NewSimSource(rand.New(rand.NewSource(7)))

	prev := src.Snapshot()
	for i := 0; i < 100; i++ {
		cur := src.Snapshot()
		if diff := cur.Stability - prev.Stability; diff > 0.1 || diff < -0.1 {
			t.Fatalf("tick %d: stability jumped by %v", i, diff)
		}
		prev = cur
	}
}
