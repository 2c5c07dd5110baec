// Package actionqueue holds the pending free-text actions for the current
// turn, at most one per participant.
package actionqueue

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrAlreadyActed indicates the participant already submitted this turn.
	ErrAlreadyActed = errors.New("participant already acted this turn")
	// ErrEmptyAction indicates the submitted action text was empty.
	ErrEmptyAction = errors.New("action text is required")
)

// QueuedAction is an accepted action waiting for the turn batch. It is
// immutable once queued.
type QueuedAction struct {
	ParticipantID string    `json:"participant_id"`
	Text          string    `json:"text"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Queue stores at most one pending action per participant per turn.
//
// The acted set is a superset of the queue keys: it persists until Drain so
// that duplicate submissions are rejected even after an action has been
// consumed mid-flight. Queue holds no lock of its own; the session's critical
// section serializes access.
type Queue struct {
	pending map[string]QueuedAction
	order   []string
	acted   map[string]struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		pending: make(map[string]QueuedAction),
		acted:   make(map[string]struct{}),
	}
}

// Submit records an action for the participant.
//
// It returns ErrAlreadyActed when the participant has already submitted this
// turn and ErrEmptyAction when the trimmed text is empty.
func (q *Queue) Submit(participantID, text string, now time.Time) (QueuedAction, error) {
	if _, ok := q.acted[participantID]; ok {
		return QueuedAction{}, ErrAlreadyActed
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return QueuedAction{}, ErrEmptyAction
	}

	action := QueuedAction{
		ParticipantID: participantID,
		Text:          text,
		SubmittedAt:   now.UTC(),
	}
	q.pending[participantID] = action
	q.order = append(q.order, participantID)
	q.acted[participantID] = struct{}{}
	return action, nil
}

// Drain atomically returns the queued actions in submission order and resets
// both the queue and the acted set.
func (q *Queue) Drain() []QueuedAction {
	batch := make([]QueuedAction, 0, len(q.pending))
	for _, participantID := range q.order {
		if action, ok := q.pending[participantID]; ok {
			batch = append(batch, action)
		}
	}
	q.pending = make(map[string]QueuedAction)
	q.order = nil
	q.acted = make(map[string]struct{})
	return batch
}

// Actions returns a copy of the queued actions in submission order without
// consuming them.
func (q *Queue) Actions() []QueuedAction {
	batch := make([]QueuedAction, 0, len(q.pending))
	for _, participantID := range q.order {
		if action, ok := q.pending[participantID]; ok {
			batch = append(batch, action)
		}
	}
	return batch
}

// HasActed reports whether the participant already submitted this turn.
func (q *Queue) HasActed(participantID string) bool {
	_, ok := q.acted[participantID]
	return ok
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	return len(q.pending)
}

// ActedCount returns how many participants have acted this turn.
func (q *Queue) ActedCount() int {
	return len(q.acted)
}

// AllActed reports whether every one of total participants has acted. It is
// a query for progress displays, not a phase-transition trigger.
func (q *Queue) AllActed(total int) bool {
	return total > 0 && len(q.acted) >= total
}
