// Package telemetry produces the periodic sensor-style snapshots broadcast
// to camera clients. The default source is simulated; a real sensor/vision
// pipeline plugs in behind the Source interface.
package telemetry

import (
	"math/rand"
	"time"

	"github.com/shotcoach/backend/internal/protocol"
)

// Source produces one telemetry snapshot per call. Implementations must keep
// every field inside its documented range:
//
//	Stability   [0, 1]    higher is steadier
//	Brightness  [0, 100]  relative exposure level
//	MotionLevel [0, 1]    higher means more scene motion
//	FocusScore  [0, 1]    higher is sharper
type Source interface {
	Snapshot() protocol.Telemetry
}

// SimSource generates bounded pseudo-random snapshots that drift around a
// plausible midpoint rather than jumping randomly each tick.
type SimSource struct {
	rng        *rand.Rand
	stability  float64
	brightness float64
	motion     float64
	focus      float64
}

func NewSimSource(rng *rand.Rand) *SimSource {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimSource{
		rng:        rng,
		stability:  0.75,
		brightness: 60,
		motion:     0.25,
		focus:      0.8,
	}
}

func (s *SimSource) Snapshot() protocol.Telemetry {
	s.stability = drift(s.rng, s.stability, 0.08, 0, 1)
	s.brightness = drift(s.rng, s.brightness, 6, 0, 100)
	s.motion = drift(s.rng, s.motion, 0.1, 0, 1)
	s.focus = drift(s.rng, s.focus, 0.06, 0, 1)

	return protocol.Telemetry{
		Type:        protocol.MsgTelemetry,
		Stability:   s.stability,
		Brightness:  s.brightness,
		MotionLevel: s.motion,
		FocusScore:  s.focus,
		Timestamp:   protocol.Now(),
	}
}

func drift(rng *rand.Rand, v, step, lo, hi float64) float64 {
	v += (rng.Float64() - 0.5) * 2 * step
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
