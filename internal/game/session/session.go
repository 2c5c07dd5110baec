// Package session implements the shared narrative session: the turn-phase
// cycle, the per-turn action batch, the story log, and the battle-map and
// dice sub-states, fanned out to connected clients through a broadcaster.
package session

import (
	"errors"
	"time"

	"github.com/emberfall-games/emberfall/internal/game/battlemap"
)

var (
	// ErrWrongPhase indicates an operation submitted outside its phase.
	ErrWrongPhase = errors.New("operation not allowed in current phase")
	// ErrParticipantNotFound indicates the acting participant is not connected.
	ErrParticipantNotFound = errors.New("participant not found")
)

// Phase identifies the current stage of the turn cycle.
type Phase int

const (
	// PhasePlayerTurns accepts player action submissions.
	PhasePlayerTurns Phase = iota
	// PhaseDmProcessing resolves the batched actions with the narrator.
	PhaseDmProcessing
	// PhaseDmResponse presents the narration before the next turn opens.
	PhaseDmResponse
)

// String returns the wire name of the phase.
func (p Phase) String() string {
	switch p {
	case PhasePlayerTurns:
		return "player_turns"
	case PhaseDmProcessing:
		return "dm_processing"
	case PhaseDmResponse:
		return "dm_response"
	default:
		return "unknown"
	}
}

// Config tunes the session's timing and retention knobs. Zero values fall
// back to the defaults.
type Config struct {
	PlayerTurnDuration time.Duration
	ResponseDuration   time.Duration
	NarratorTimeout    time.Duration
	StoryLogLimit      int
	MapWidth           int
	MapHeight          int
	SnapshotTTL        time.Duration
}

// Default session timings.
const (
	DefaultPlayerTurnDuration = 15 * time.Second
	DefaultResponseDuration   = 3 * time.Second
	DefaultNarratorTimeout    = 10 * time.Second
	DefaultStoryLogLimit      = 50
	DefaultSnapshotTTL        = 24 * time.Hour
)

func (c Config) withDefaults() Config {
	if c.PlayerTurnDuration <= 0 {
		c.PlayerTurnDuration = DefaultPlayerTurnDuration
	}
	if c.ResponseDuration <= 0 {
		c.ResponseDuration = DefaultResponseDuration
	}
	if c.NarratorTimeout <= 0 {
		c.NarratorTimeout = DefaultNarratorTimeout
	}
	if c.StoryLogLimit <= 0 {
		c.StoryLogLimit = DefaultStoryLogLimit
	}
	if c.MapWidth <= 0 {
		c.MapWidth = battlemap.DefaultWidth
	}
	if c.MapHeight <= 0 {
		c.MapHeight = battlemap.DefaultHeight
	}
	if c.SnapshotTTL <= 0 {
		c.SnapshotTTL = DefaultSnapshotTTL
	}
	return c
}

// Scene is the shared narrative frame all participants see.
type Scene struct {
	Location         string   `json:"location"`
	Description      string   `json:"description"`
	AvailableActions []string `json:"available_actions,omitempty"`
}

// Story entry kinds.
const (
	StoryKindAction    = "action"
	StoryKindNarration = "narration"
	StoryKindDialogue  = "dialogue"
)

// StoryEntry is one line of the session's rolling story log.
type StoryEntry struct {
	Kind  string    `json:"kind"`
	Actor string    `json:"actor,omitempty"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// persistedState is the snapshot payload written to the store. Participants
// and pending actions are deliberately excluded: identity and queue state
// belong to live connections, not to the saved world.
type persistedState struct {
	Scene     Scene              `json:"scene"`
	StoryLog  []StoryEntry       `json:"story_log"`
	BattleMap battlemap.Snapshot `json:"battle_map"`
	SavedAt   time.Time          `json:"saved_at"`
}
