package session

import (
	"testing"
	"time"
)

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhasePlayerTurns, "player_turns"},
		{PhaseDmProcessing, "dm_processing"},
		{PhaseDmResponse, "dm_response"},
		{Phase(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.PlayerTurnDuration != DefaultPlayerTurnDuration {
		t.Errorf("unexpected turn duration %s", cfg.PlayerTurnDuration)
	}
	if cfg.ResponseDuration != DefaultResponseDuration {
		t.Errorf("unexpected response duration %s", cfg.ResponseDuration)
	}
	if cfg.NarratorTimeout != DefaultNarratorTimeout {
		t.Errorf("unexpected narrator timeout %s", cfg.NarratorTimeout)
	}
	if cfg.StoryLogLimit != DefaultStoryLogLimit {
		t.Errorf("unexpected story log limit %d", cfg.StoryLogLimit)
	}
	if cfg.SnapshotTTL != DefaultSnapshotTTL {
		t.Errorf("unexpected snapshot ttl %s", cfg.SnapshotTTL)
	}
	if cfg.MapWidth != 20 || cfg.MapHeight != 20 {
		t.Errorf("unexpected map size %dx%d", cfg.MapWidth, cfg.MapHeight)
	}
}

func TestConfigKeepsExplicitValues(t *testing.T) {
	cfg := Config{PlayerTurnDuration: time.Minute, StoryLogLimit: 5}.withDefaults()

	if cfg.PlayerTurnDuration != time.Minute {
		t.Errorf("explicit turn duration overwritten: %s", cfg.PlayerTurnDuration)
	}
	if cfg.StoryLogLimit != 5 {
		t.Errorf("explicit log limit overwritten: %d", cfg.StoryLogLimit)
	}
}
