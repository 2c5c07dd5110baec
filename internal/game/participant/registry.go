// Package participant tracks connected players and their character snapshots.
package participant

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/emberfall-games/emberfall/internal/platform/id"
)

// ErrNotFound indicates the requested participant is not connected.
var ErrNotFound = errors.New("participant not found")

// Character is the snapshot of a character sheet attached to a participant.
//
// The sheet itself is owned by an external collaborator and treated as opaque
// data; only the numeric fields needed for battle-map checks are surfaced.
type Character struct {
	Name      string          `json:"name"`
	Speed     int             `json:"speed"`
	HitPoints int             `json:"hit_points"`
	Sheet     json.RawMessage `json:"sheet,omitempty"`
}

// Participant represents a connected client with a stable identity that is
// independent of transport connection identity.
type Participant struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Character   *Character `json:"character,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
}

// Registry tracks connected participants.
//
// Registry holds no lock of its own: callers serialize access through the
// session's critical section.
type Registry struct {
	participants map[string]*Participant
	clock        func() time.Time
	idGenerator  func() (string, error)
}

// NewRegistry creates an empty registry with default dependencies.
func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]*Participant),
		clock:        time.Now,
		idGenerator:  id.NewID,
	}
}

// Connect registers a participant, minting an id when none is supplied.
//
// Reconnecting with a known id updates the existing record rather than
// duplicating it: a non-empty display name and a non-nil character replace
// the stored values, and LastSeenAt is refreshed.
func (r *Registry) Connect(participantID, displayName string, character *Character) (Participant, error) {
	now := r.clock().UTC()

	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		generated, err := r.idGenerator()
		if err != nil {
			return Participant{}, err
		}
		participantID = generated
	}

	displayName = strings.TrimSpace(displayName)

	if existing, ok := r.participants[participantID]; ok {
		if displayName != "" {
			existing.DisplayName = displayName
		}
		if character != nil {
			existing.Character = character
		}
		existing.LastSeenAt = now
		return *existing, nil
	}

	if displayName == "" {
		displayName = "Adventurer"
	}
	created := &Participant{
		ID:          participantID,
		DisplayName: displayName,
		Character:   character,
		JoinedAt:    now,
		LastSeenAt:  now,
	}
	r.participants[participantID] = created
	return *created, nil
}

// Disconnect removes a participant. It reports whether a record was removed.
func (r *Registry) Disconnect(participantID string) bool {
	if _, ok := r.participants[participantID]; !ok {
		return false
	}
	delete(r.participants, participantID)
	return true
}

// Get returns a copy of the participant record for the given id.
func (r *Registry) Get(participantID string) (Participant, bool) {
	existing, ok := r.participants[participantID]
	if !ok {
		return Participant{}, false
	}
	return *existing, true
}

// Touch refreshes the participant's LastSeenAt timestamp.
func (r *Registry) Touch(participantID string) {
	if existing, ok := r.participants[participantID]; ok {
		existing.LastSeenAt = r.clock().UTC()
	}
}

// List returns all participants ordered by join time, then id.
func (r *Registry) List() []Participant {
	list := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		list = append(list, *p)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].JoinedAt.Before(list[j].JoinedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// Count returns the number of connected participants.
func (r *Registry) Count() int {
	return len(r.participants)
}
