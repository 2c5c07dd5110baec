package battlemap

import (
	"errors"
	"testing"
)

func activeMap(t *testing.T) *Map {
	t.Helper()
	m := New(10, 8)
	m.Activate()
	return m
}

func TestMovePlayerRejectsWhenInactive(t *testing.T) {
	m := New(10, 8)
	if err := m.MovePlayer("p1", 1, 1); !errors.Is(err, ErrMapInactive) {
		t.Fatalf("expected ErrMapInactive, got %v", err)
	}
}

func TestMovePlayerBounds(t *testing.T) {
	m := activeMap(t)
	if err := m.MovePlayer("p1", 3, 4); err != nil {
		t.Fatalf("move: %v", err)
	}

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 4},
		{"negative y", 3, -1},
		{"x at width", 10, 4},
		{"y at height", 3, 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := m.MovePlayer("p1", tc.x, tc.y); !errors.Is(err, ErrInvalidCoordinates) {
				t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
			}
			pos, ok := m.PlayerPosition("p1")
			if !ok || pos.X != 3 || pos.Y != 4 {
				t.Fatalf("rejected move must leave position unchanged, got %+v", pos)
			}
		})
	}
}

func TestActivateIsIdempotent(t *testing.T) {
	m := activeMap(t)
	if err := m.MovePlayer("p1", 2, 2); err != nil {
		t.Fatalf("move: %v", err)
	}

	m.Activate()
	pos, ok := m.PlayerPosition("p1")
	if !ok || pos.X != 2 || pos.Y != 2 {
		t.Fatal("re-activating must not reset positions")
	}
}

func TestDeactivatePreservesLayout(t *testing.T) {
	m := activeMap(t)
	if err := m.MovePlayer("p1", 2, 2); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := m.AddEnemy(Enemy{ID: "e1", Name: "Gnoll", X: 5, Y: 5, HP: 12, AC: 13, Kind: "beast"}); err != nil {
		t.Fatalf("add enemy: %v", err)
	}
	if err := m.AddHazard(Hazard{ID: "h1", X: 7, Y: 1, Kind: "pit", Description: "a concealed pit"}); err != nil {
		t.Fatalf("add hazard: %v", err)
	}
	m.SetEnvironment("dim", "rain")

	m.Deactivate()
	m.Activate()

	snapshot := m.Snapshot()
	if len(snapshot.Players) != 1 || len(snapshot.Enemies) != 1 || len(snapshot.Hazards) != 1 {
		t.Fatalf("expected layout preserved across toggle, got %+v", snapshot)
	}
	if snapshot.Lighting != "dim" || snapshot.Weather != "rain" {
		t.Fatalf("expected environment preserved, got %q/%q", snapshot.Lighting, snapshot.Weather)
	}
}

func TestAddEnemyValidation(t *testing.T) {
	m := activeMap(t)
	if err := m.AddEnemy(Enemy{ID: "", X: 1, Y: 1}); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
	if err := m.AddEnemy(Enemy{ID: "e1", X: 99, Y: 1}); !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestRemoveEntities(t *testing.T) {
	m := activeMap(t)
	if err := m.AddEnemy(Enemy{ID: "e1", X: 1, Y: 1}); err != nil {
		t.Fatalf("add enemy: %v", err)
	}
	if err := m.AddHazard(Hazard{ID: "h1", X: 2, Y: 2}); err != nil {
		t.Fatalf("add hazard: %v", err)
	}
	if err := m.MovePlayer("p1", 0, 0); err != nil {
		t.Fatalf("move: %v", err)
	}

	m.RemoveEnemy("e1")
	m.RemoveHazard("h1")
	m.RemovePlayer("p1")

	snapshot := m.Snapshot()
	if len(snapshot.Enemies) != 0 || len(snapshot.Hazards) != 0 || len(snapshot.Players) != 0 {
		t.Fatalf("expected empty maps, got %+v", snapshot)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := activeMap(t)
	if err := m.MovePlayer("p1", 1, 1); err != nil {
		t.Fatalf("move: %v", err)
	}

	snapshot := m.Snapshot()
	snapshot.Players["p1"] = Position{X: 9, Y: 9}

	pos, _ := m.PlayerPosition("p1")
	if pos.X != 1 || pos.Y != 1 {
		t.Fatal("mutating a snapshot must not affect the map")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	m := activeMap(t)
	if err := m.MovePlayer("p1", 1, 1); err != nil {
		t.Fatalf("move: %v", err)
	}
	m.SetEnvironment("bright", "clear")

	restored := New(0, 0)
	restored.Restore(m.Snapshot())

	snapshot := restored.Snapshot()
	if !snapshot.Active {
		t.Fatal("expected restored map to be active")
	}
	if snapshot.Width != 10 || snapshot.Height != 8 {
		t.Fatalf("expected restored dimensions 10x8, got %dx%d", snapshot.Width, snapshot.Height)
	}
	if pos := snapshot.Players["p1"]; pos.X != 1 || pos.Y != 1 {
		t.Fatalf("expected restored position, got %+v", pos)
	}
}

func TestDefaultDimensions(t *testing.T) {
	m := New(0, -3)
	snapshot := m.Snapshot()
	if snapshot.Width != DefaultWidth || snapshot.Height != DefaultHeight {
		t.Fatalf("expected default dimensions, got %dx%d", snapshot.Width, snapshot.Height)
	}
}
