package narrator

import (
	"context"
	"math/rand"
	"strings"
	"testing"
)

func TestScriptNarratorBatch(t *testing.T) {
	s := NewScriptNarrator(rand.New(rand.NewSource(1)))

	res, err := s.Narrate(context.Background(), Request{
		Actions: []Action{
			{ParticipantName: "Elira", Text: "search the altar"},
			{ParticipantName: "Brom", Text: "guard the door"},
		},
	})
	if err != nil {
		t.Fatalf("narrate: %v", err)
	}
	if res.Narration == "" {
		t.Fatal("expected narration")
	}
	if !strings.Contains(res.Narration, "Elira") || !strings.Contains(res.Narration, "Brom") {
		t.Fatalf("expected narration to mention both participants, got %q", res.Narration)
	}
}

func TestScriptNarratorContinuation(t *testing.T) {
	s := NewScriptNarrator(rand.New(rand.NewSource(1)))

	res, err := s.Narrate(context.Background(), Request{Continuation: true})
	if err != nil {
		t.Fatalf("narrate: %v", err)
	}
	if res.Narration == "" {
		t.Fatal("expected narration")
	}
	if res.SceneUpdate != nil {
		t.Fatal("scripted continuation must not change the scene")
	}
}

func TestScriptNarratorEmptyBatchIsContinuation(t *testing.T) {
	s := NewScriptNarrator(rand.New(rand.NewSource(2)))

	res, err := s.Narrate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("narrate: %v", err)
	}
	found := false
	for _, line := range continuationLines {
		if res.Narration == line {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected a continuation line, got %q", res.Narration)
	}
}

func TestScriptNarratorAnonymousActor(t *testing.T) {
	s := NewScriptNarrator(rand.New(rand.NewSource(3)))

	res, err := s.Narrate(context.Background(), Request{
		Actions: []Action{{Text: "light a torch"}},
	})
	if err != nil {
		t.Fatalf("narrate: %v", err)
	}
	if !strings.Contains(res.Narration, "someone") {
		t.Fatalf("expected anonymous actor fallback, got %q", res.Narration)
	}
}
