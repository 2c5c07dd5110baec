package narrator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Scripted lines used when the external collaborator is absent or failing.
// They acknowledge player actions without adjudicating them.
var (
	batchLines = []string{
		"The party moves with purpose. %s. The dungeon answers with distant echoes, and the air grows heavier.",
		"As %s, a cold draft snuffs the nearest torch. Something has noticed you.",
		"%s. For a long moment nothing happens, then the floor trembles, almost imperceptibly.",
		"The attempt is made: %s. Dust sifts from the ceiling as if the place itself is weighing the outcome.",
	}
	continuationLines = []string{
		"Time passes. Somewhere beyond the walls, stone grinds against stone.",
		"The silence stretches. A faint green glow seeps from the cracks in the floor.",
		"Nothing stirs, yet the shadows seem a fraction longer than before.",
		"A slow drip marks the seconds. The way forward remains open.",
	}
)

// ScriptNarrator produces canned narration without any external dependency.
// It never fails, which makes it the fallback of last resort for the turn
// cycle.
type ScriptNarrator struct {
	rng *rand.Rand
}

// NewScriptNarrator creates a scripted narrator. A nil rng falls back to a
// time-seeded source.
func NewScriptNarrator(rng *rand.Rand) *ScriptNarrator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ScriptNarrator{rng: rng}
}

// Narrate returns a scripted continuation. It never returns an error.
func (s *ScriptNarrator) Narrate(_ context.Context, req Request) (Response, error) {
	if req.Continuation || len(req.Actions) == 0 {
		line := continuationLines[s.rng.Intn(len(continuationLines))]
		return Response{Narration: line}, nil
	}

	described := make([]string, 0, len(req.Actions))
	for _, action := range req.Actions {
		name := action.ParticipantName
		if name == "" {
			name = "someone"
		}
		described = append(described, fmt.Sprintf("%s tries to %s", name, strings.TrimRight(action.Text, ".")))
	}
	line := batchLines[s.rng.Intn(len(batchLines))]
	return Response{Narration: fmt.Sprintf(line, strings.Join(described, "; "))}, nil
}
