// Package engine selects what the coordinator says next. It derives a cheap
// environment assessment from session counters and wall-clock time (no real
// vision input exists in this mode) and picks a shooting task from a static
// catalog. Both halves sit behind interfaces so a real analysis backend can
// replace them without touching the scheduler or router.
package engine

import (
	"math/rand"
	"sync"
	"time"
)

// Inputs is the read-only view of a session the engine works from.
type Inputs struct {
	FramesReceived int64
	Elapsed        time.Duration
}

// Assessment classifies the shooting environment. Shootability is always in
// [0.3, 0.95]; Condition is the tag used to filter the task catalog.
type Assessment struct {
	Brightness   string
	Complexity   string
	Clarity      string
	Condition    string
	Constraints  []string
	Shootability float64
	Tags         []string
}

// Assessor produces an environment assessment. Implementations must be free
// of side effects; determinism is up to the injected entropy source.
type Assessor interface {
	Assess(in Inputs) Assessment
}

// Brightness classes, keyed off time of day.
const (
	BrightnessLowLight = "low_light"
	BrightnessSoft     = "soft"
	BrightnessDaylight = "daylight"
	BrightnessGolden   = "golden_hour"
)

// Complexity and clarity classes, keyed off frame-count windows.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityBusy     = "busy"

	ClarityClear    = "clear"
	ClaritySoft     = "soft"
	ClarityObscured = "obscured"
)

// Condition tags referenced by the task catalog.
const (
	CondLowLight  = "low_light"
	CondGolden    = "golden_hour"
	CondBusyScene = "busy_scene"
	CondOpen      = "open"
	CondAny       = "any"
)

// StandardAssessor derives classes from time-of-day and running frame counts.
// It is a placeholder for a real vision pipeline and nothing downstream may
// rely on its exact outputs.
type StandardAssessor struct {
	Clock func() time.Time
	Rand  *rand.Rand

	mu sync.Mutex // guards Rand; sessions share one assessor
}

func NewStandardAssessor(clock func() time.Time, rng *rand.Rand) *StandardAssessor {
	if clock == nil {
		clock = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &StandardAssessor{Clock: clock, Rand: rng}
}

func (a *StandardAssessor) Assess(in Inputs) Assessment {
	hour := a.Clock().Hour()

	brightness := BrightnessLowLight
	switch {
	case hour >= 6 && hour < 10:
		brightness = BrightnessSoft
	case hour >= 10 && hour < 16:
		brightness = BrightnessDaylight
	case hour >= 16 && hour < 20:
		brightness = BrightnessGolden
	}

	// Frame-count windows stand in for scene analysis: the classes drift as
	// the client keeps shooting, which is enough to exercise the selector.
	complexity := ComplexitySimple
	switch w := in.FramesReceived % 90; {
	case w >= 60:
		complexity = ComplexityBusy
	case w >= 30:
		complexity = ComplexityModerate
	}

	clarity := ClarityClear
	switch w := in.FramesReceived % 40; {
	case w >= 32:
		clarity = ClarityObscured
	case w >= 20:
		clarity = ClaritySoft
	}

	var constraints []string
	if brightness == BrightnessLowLight {
		constraints = append(constraints, "limited light")
	}
	if complexity == ComplexityBusy {
		constraints = append(constraints, "busy scene")
	}
	if clarity == ClarityObscured {
		constraints = append(constraints, "subject unclear")
	}

	score := 0.5
	switch brightness {
	case BrightnessDaylight:
		score += 0.20
	case BrightnessGolden:
		score += 0.25
	case BrightnessSoft:
		score += 0.10
	case BrightnessLowLight:
		score -= 0.15
	}
	switch complexity {
	case ComplexitySimple:
		score += 0.10
	case ComplexityBusy:
		score -= 0.10
	}
	switch clarity {
	case ClarityClear:
		score += 0.10
	case ClarityObscured:
		score -= 0.15
	}
	a.mu.Lock()
	jitter := a.Rand.Float64()
	a.mu.Unlock()
	score += (jitter - 0.5) * 0.1
	score = clamp(score, 0.3, 0.95)

	condition := CondOpen
	switch {
	case brightness == BrightnessLowLight:
		condition = CondLowLight
	case brightness == BrightnessGolden:
		condition = CondGolden
	case complexity == ComplexityBusy:
		condition = CondBusyScene
	}

	return Assessment{
		Brightness:   brightness,
		Complexity:   complexity,
		Clarity:      clarity,
		Condition:    condition,
		Constraints:  constraints,
		Shootability: score,
		Tags:         []string{brightness, complexity, clarity},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
