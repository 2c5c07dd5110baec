// Package battlemap tracks the optional grid-based combat sub-state:
// participant, enemy, and hazard positions plus environment flags.
package battlemap

import (
	"errors"
	"strings"
)

var (
	// ErrMapInactive indicates a positional write while the map is inactive.
	ErrMapInactive = errors.New("battle map is not active")
	// ErrInvalidCoordinates indicates a coordinate outside the grid bounds.
	ErrInvalidCoordinates = errors.New("coordinates are out of bounds")
	// ErrEmptyID indicates a missing entity id.
	ErrEmptyID = errors.New("id is required")
)

// Default grid dimensions when none are configured.
const (
	DefaultWidth  = 20
	DefaultHeight = 20
)

// Position is a grid coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Enemy is a hostile combatant placed on the grid. Rule adjudication (damage,
// saving throws) is left to the narrative collaborator; only position and
// resource bookkeeping live here.
type Enemy struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	HP   int    `json:"hp"`
	AC   int    `json:"ac"`
	Kind string `json:"kind"`
}

// Hazard is an environmental danger placed on the grid.
type Hazard struct {
	ID          string `json:"id"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// Snapshot is a copy of the full battle-map state, safe to serialize and
// broadcast.
type Snapshot struct {
	Active   bool                `json:"active"`
	Width    int                 `json:"width"`
	Height   int                 `json:"height"`
	Lighting string              `json:"lighting"`
	Weather  string              `json:"weather"`
	Players  map[string]Position `json:"players"`
	Enemies  map[string]Enemy    `json:"enemies"`
	Hazards  map[string]Hazard   `json:"hazards"`
}

// Map is the grid combat sub-state.
//
// Deactivating does not clear positional data: reactivation resumes from the
// last known layout, which keeps toggling cheap for intermittent skirmishes
// within one long narrative session. Map holds no lock of its own; the
// session's critical section serializes access.
type Map struct {
	active   bool
	width    int
	height   int
	lighting string
	weather  string
	players  map[string]Position
	enemies  map[string]Enemy
	hazards  map[string]Hazard
}

// New creates an inactive map with the given dimensions. Non-positive
// dimensions fall back to the defaults.
func New(width, height int) *Map {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Map{
		width:   width,
		height:  height,
		players: make(map[string]Position),
		enemies: make(map[string]Enemy),
		hazards: make(map[string]Hazard),
	}
}

// Activate enables the map. Activating an already-active map is a no-op and
// does not reset positions.
func (m *Map) Activate() {
	m.active = true
}

// Deactivate disables the map, preserving all positional data.
func (m *Map) Deactivate() {
	m.active = false
}

// Active reports whether the map is currently active.
func (m *Map) Active() bool {
	return m.active
}

// MovePlayer places the participant at (x, y).
//
// Moves are rejected with ErrMapInactive while the map is inactive and with
// ErrInvalidCoordinates when the target is outside the grid; a rejected move
// leaves the prior position unchanged.
func (m *Map) MovePlayer(participantID string, x, y int) error {
	if !m.active {
		return ErrMapInactive
	}
	if strings.TrimSpace(participantID) == "" {
		return ErrEmptyID
	}
	if !m.inBounds(x, y) {
		return ErrInvalidCoordinates
	}
	m.players[participantID] = Position{X: x, Y: y}
	return nil
}

// PlayerPosition returns the participant's position, if any.
func (m *Map) PlayerPosition(participantID string) (Position, bool) {
	pos, ok := m.players[participantID]
	return pos, ok
}

// RemovePlayer deletes the participant's position from the grid.
func (m *Map) RemovePlayer(participantID string) {
	delete(m.players, participantID)
}

// AddEnemy places an enemy on the grid, replacing any enemy with the same id.
func (m *Map) AddEnemy(enemy Enemy) error {
	if strings.TrimSpace(enemy.ID) == "" {
		return ErrEmptyID
	}
	if !m.inBounds(enemy.X, enemy.Y) {
		return ErrInvalidCoordinates
	}
	m.enemies[enemy.ID] = enemy
	return nil
}

// RemoveEnemy deletes an enemy from the grid.
func (m *Map) RemoveEnemy(enemyID string) {
	delete(m.enemies, enemyID)
}

// AddHazard places a hazard on the grid, replacing any hazard with the same id.
func (m *Map) AddHazard(hazard Hazard) error {
	if strings.TrimSpace(hazard.ID) == "" {
		return ErrEmptyID
	}
	if !m.inBounds(hazard.X, hazard.Y) {
		return ErrInvalidCoordinates
	}
	m.hazards[hazard.ID] = hazard
	return nil
}

// RemoveHazard deletes a hazard from the grid.
func (m *Map) RemoveHazard(hazardID string) {
	delete(m.hazards, hazardID)
}

// SetEnvironment updates the lighting and weather flags.
func (m *Map) SetEnvironment(lighting, weather string) {
	m.lighting = lighting
	m.weather = weather
}

// Snapshot returns a deep copy of the current state.
func (m *Map) Snapshot() Snapshot {
	snapshot := Snapshot{
		Active:   m.active,
		Width:    m.width,
		Height:   m.height,
		Lighting: m.lighting,
		Weather:  m.weather,
		Players:  make(map[string]Position, len(m.players)),
		Enemies:  make(map[string]Enemy, len(m.enemies)),
		Hazards:  make(map[string]Hazard, len(m.hazards)),
	}
	for id, pos := range m.players {
		snapshot.Players[id] = pos
	}
	for id, enemy := range m.enemies {
		snapshot.Enemies[id] = enemy
	}
	for id, hazard := range m.hazards {
		snapshot.Hazards[id] = hazard
	}
	return snapshot
}

// Restore replaces the map state with a previously captured snapshot.
func (m *Map) Restore(snapshot Snapshot) {
	if snapshot.Width > 0 {
		m.width = snapshot.Width
	}
	if snapshot.Height > 0 {
		m.height = snapshot.Height
	}
	m.active = snapshot.Active
	m.lighting = snapshot.Lighting
	m.weather = snapshot.Weather
	m.players = make(map[string]Position, len(snapshot.Players))
	for id, pos := range snapshot.Players {
		m.players[id] = pos
	}
	m.enemies = make(map[string]Enemy, len(snapshot.Enemies))
	for id, enemy := range snapshot.Enemies {
		m.enemies[id] = enemy
	}
	m.hazards = make(map[string]Hazard, len(snapshot.Hazards))
	for id, hazard := range snapshot.Hazards {
		m.hazards[id] = hazard
	}
}

func (m *Map) inBounds(x, y int) bool {
	return x >= 0 && x < m.width && y >= 0 && y < m.height
}
