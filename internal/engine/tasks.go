package engine

import (
	"math/rand"
	"sync"
	"time"
)

// Task is a catalog entry: something the coach asks the shooter to try.
// Condition declares which environment it suits; CondAny entries match
// everything.
type Task struct {
	ID           string
	Name         string
	Description  string
	TargetMotion string
	Condition    string
}

// Selector picks the next task and a human-readable justification. Pure:
// broadcasting the presentation events is the coordinator's job.
type Selector interface {
	Select(in Inputs, a Assessment) (Task, string)
}

// stabilizeTask is forced during warm-up and whenever the environment
// reports more than one constraint.
var stabilizeTask = Task{
	ID:           "stabilize",
	Name:         "Stabilize",
	Description:  "Hold the camera steady and keep the subject centered",
	TargetMotion: "hold",
	Condition:    CondAny,
}

// defaultTask is the misconfiguration fallback: selection never fails.
var defaultTask = Task{
	ID:           "free-shoot",
	Name:         "Free shoot",
	Description:  "Shoot freely and explore the scene",
	TargetMotion: "free",
	Condition:    CondAny,
}

var defaultCatalog = []Task{
	stabilizeTask,
	defaultTask,
	{
		ID:           "pan-follow",
		Name:         "Pan and follow",
		Description:  "Track the subject with a slow horizontal pan",
		TargetMotion: "pan",
		Condition:    CondOpen,
	},
	{
		ID:           "low-angle",
		Name:         "Low angle",
		Description:  "Drop the camera low and shoot upward for depth",
		TargetMotion: "tilt",
		Condition:    CondOpen,
	},
	{
		ID:           "silhouette",
		Name:         "Silhouette",
		Description:  "Put the subject against the light and expose for the sky",
		TargetMotion: "hold",
		Condition:    CondGolden,
	},
	{
		ID:           "light-seek",
		Name:         "Find the light",
		Description:  "Move toward the strongest available light source",
		TargetMotion: "walk",
		Condition:    CondLowLight,
	},
	{
		ID:           "isolate",
		Name:         "Isolate the subject",
		Description:  "Step closer and fill the frame to cut the clutter",
		TargetMotion: "approach",
		Condition:    CondBusyScene,
	},
}

// rationales are static, keyed by the condition that selected the task.
var rationales = map[string]string{
	CondLowLight:  "Light is scarce; working with what little there is gives the best odds.",
	CondGolden:    "The light is warm and directional right now, ideal for contrast plays.",
	CondBusyScene: "The scene is crowded; simplifying the frame will make the subject read.",
	CondOpen:      "Conditions look open, a good moment to try deliberate camera movement.",
}

const (
	warmupRationale     = "Still warming up; a steady baseline makes later advice meaningful."
	constraintRationale = "Multiple constraints detected; steadiness beats ambition here."
	fallbackRationale   = "No tailored guidance for this condition; shoot and see."
)

// CatalogSelector applies the ordered selection policy over a task catalog.
type CatalogSelector struct {
	Catalog      []Task
	WarmupFrames int64
	Rand         *rand.Rand

	mu sync.Mutex // guards Rand; sessions share one selector
}

func NewCatalogSelector(warmupFrames int, rng *rand.Rand) *CatalogSelector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CatalogSelector{
		Catalog:      defaultCatalog,
		WarmupFrames: int64(warmupFrames),
		Rand:         rng,
	}
}

// Select applies the policy rules in order: warm-up forces stabilize, more
// than one constraint forces stabilize, otherwise a uniform pick among
// catalog entries matching the assessed condition (or CondAny). A catalog
// with no match falls back to the default task; selection never fails.
func (s *CatalogSelector) Select(in Inputs, a Assessment) (Task, string) {
	if in.FramesReceived < s.WarmupFrames {
		return stabilizeTask, warmupRationale
	}
	if len(a.Constraints) > 1 {
		return stabilizeTask, constraintRationale
	}

	var matches []Task
	for _, t := range s.Catalog {
		if t.Condition == a.Condition || t.Condition == CondAny {
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		return defaultTask, rationaleFor(a.Condition)
	}

	s.mu.Lock()
	picked := matches[s.Rand.Intn(len(matches))]
	s.mu.Unlock()
	return picked, rationaleFor(a.Condition)
}

func rationaleFor(condition string) string {
	if r, ok := rationales[condition]; ok {
		return r
	}
	return fallbackRationale
}
