// Command game runs the shared narrative session server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/emberfall-games/emberfall/internal/cmd/game"
)

func main() {
	log.SetPrefix("[GAME] ")

	fs := flag.NewFlagSet("game", flag.ExitOnError)
	cfg, err := game.ParseConfig(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := game.Run(ctx, cfg); err != nil {
		log.Fatalf("run: %v", err)
	}
}
