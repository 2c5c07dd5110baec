package game

import (
	"context"
	"fmt"
	"log"

	"github.com/emberfall-games/emberfall/internal/game/narrator"
	"github.com/emberfall-games/emberfall/internal/game/session"
	platformcmd "github.com/emberfall-games/emberfall/internal/platform/cmd"
	"github.com/emberfall-games/emberfall/internal/server"
	"github.com/emberfall-games/emberfall/internal/storage"
	boltstore "github.com/emberfall-games/emberfall/internal/storage/bbolt"
)

// Run starts the game service and blocks until ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceGame, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	var store storage.SnapshotStore
	if cfg.SnapshotPath != "" {
		bolt, err := boltstore.Open(cfg.SnapshotPath)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		defer func() {
			if err := bolt.Close(); err != nil {
				log.Printf("close snapshot store: %v", err)
			}
		}()
		store = bolt
	} else {
		log.Printf("snapshot persistence disabled")
	}

	hub := server.NewHub()
	orchestrator := session.New(cfg.SessionID, session.Config{
		PlayerTurnDuration: cfg.PlayerTurnDuration,
		ResponseDuration:   cfg.ResponseDuration,
		NarratorTimeout:    cfg.NarratorTimeout,
		SnapshotTTL:        cfg.SnapshotTTL,
		MapWidth:           cfg.MapWidth,
		MapHeight:          cfg.MapHeight,
	}, hub, buildNarrator(cfg), store)

	if err := orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer orchestrator.Stop()

	return server.New(orchestrator, hub).Run(ctx, cfg.Addr)
}

// buildNarrator prefers the remote collaborator and falls back to the
// scripted one when no credentials are configured. The orchestrator carries
// its own scripted fallback for per-turn failures, so a misconfigured remote
// never stalls a session either way.
func buildNarrator(cfg Config) narrator.Narrator {
	if cfg.NarratorKey == "" {
		log.Printf("no narrator credentials, using scripted narration")
		return narrator.NewScriptNarrator(nil)
	}
	return narrator.NewOpenAINarrator(narrator.OpenAIConfig{
		ResponsesURL: cfg.NarratorURL,
		APIKey:       cfg.NarratorKey,
		Model:        cfg.NarratorModel,
	})
}
