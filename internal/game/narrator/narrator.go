// Package narrator defines the boundary to the external narrative
// collaborator that turns batched player actions into story continuations.
package narrator

import "context"

// Action is one participant's contribution to the turn batch.
type Action struct {
	ParticipantName string `json:"participant_name"`
	Text            string `json:"text"`
}

// SceneUpdate carries optional scene changes returned by the collaborator.
// Empty fields leave the corresponding scene value untouched.
type SceneUpdate struct {
	Location         string   `json:"location,omitempty"`
	Description      string   `json:"description,omitempty"`
	AvailableActions []string `json:"available_actions,omitempty"`
}

// NPCResponse carries optional in-character dialogue.
type NPCResponse struct {
	Name     string `json:"name"`
	Dialogue string `json:"dialogue"`
}

// Request is the context handed to the collaborator for one turn.
//
// Continuation marks a turn with no player actions: the collaborator is asked
// to keep the world moving rather than resolve a batch.
type Request struct {
	Scene        string
	Location     string
	RecentStory  []string
	Participants []string
	Actions      []Action
	Continuation bool
}

// Response is the collaborator's narration for one turn.
type Response struct {
	Narration   string
	SceneUpdate *SceneUpdate
	NPCResponse *NPCResponse
}

// Narrator converts a turn batch into a story continuation.
//
// Implementations may block for unbounded time; callers are expected to
// bound every call with a context timeout.
type Narrator interface {
	Narrate(ctx context.Context, req Request) (Response, error)
}
