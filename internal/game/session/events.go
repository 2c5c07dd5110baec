package session

import (
	"github.com/emberfall-games/emberfall/internal/game/battlemap"
	"github.com/emberfall-games/emberfall/internal/game/narrator"
)

// Broadcaster fans session events out to connected clients. Implementations
// must be safe for concurrent use and must never block the caller on a slow
// client.
type Broadcaster interface {
	BroadcastAll(event string, payload any)
	SendTo(participantID, event string, payload any)
}

// Event names on the wire.
const (
	EventJoined             = "joined"
	EventTurnPhaseChange    = "turn_phase_change"
	EventPlayerActionQueued = "player_action_queued"
	EventDmStoryUpdate      = "dm_story_update"
	EventDiceRolled         = "dice_rolled"
	EventBattleMapUpdate    = "battle_map_update"
	EventError              = "error"
)

// GameState summarizes turn progress for client displays.
type GameState struct {
	ActedCount        int `json:"actedCount"`
	TotalParticipants int `json:"totalParticipants"`
	QueueLength       int `json:"queueLength"`
}

// JoinedPayload is the full state sync sent to a client on connect.
type JoinedPayload struct {
	ParticipantID string             `json:"participantId"`
	DisplayName   string             `json:"displayName"`
	Phase         string             `json:"phase"`
	PhaseEndsIn   float64            `json:"phaseEndsIn"`
	Scene         Scene              `json:"scene"`
	StoryLog      []StoryEntry       `json:"storyLog"`
	GameState     GameState          `json:"gameState"`
	BattleMap     battlemap.Snapshot `json:"battleMap"`
}

// TurnPhaseChangePayload announces a phase transition.
type TurnPhaseChangePayload struct {
	Phase     string    `json:"phase"`
	Duration  float64   `json:"duration"`
	GameState GameState `json:"gameState"`
}

// PlayerActionQueuedPayload announces an accepted action submission.
type PlayerActionQueuedPayload struct {
	PlayerName string `json:"playerName"`
	Action     string `json:"action"`
}

// DmStoryUpdatePayload carries the narrator's resolution of a turn.
type DmStoryUpdatePayload struct {
	Narration   string                `json:"narration"`
	SceneUpdate *narrator.SceneUpdate `json:"sceneUpdate,omitempty"`
	NPCResponse *narrator.NPCResponse `json:"npcResponse,omitempty"`
}

// DiceRolledPayload announces a dice roll result.
type DiceRolledPayload struct {
	PlayerName string `json:"playerName"`
	Expression string `json:"expression"`
	Rolls      []int  `json:"rolls"`
	Total      int    `json:"total"`
	Valid      bool   `json:"valid"`
}

// BattleMapUpdatePayload carries the full map state after any map change.
type BattleMapUpdatePayload struct {
	BattleMap battlemap.Snapshot `json:"battleMap"`
}

// ErrorPayload reports a rejected request to a single client.
type ErrorPayload struct {
	Message string `json:"message"`
}
