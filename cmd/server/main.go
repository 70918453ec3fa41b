package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Alex1um/simple-unbalanced-game/internal/app"
	"github.com/Alex1um/simple-unbalanced-game/internal/config"
	"github.com/Alex1um/simple-unbalanced-game/logging"
)

func main() {
	var (
		envPath    string
		addr       string
		seed       string
		replayPath string
	)
	flag.StringVar(&envPath, "env", ".env", "optional .env file")
	flag.StringVar(&addr, "addr", "", "listen address, overrides ARENA_ADDR")
	flag.StringVar(&seed, "seed", "", "simulation seed, overrides ARENA_SEED")
	flag.StringVar(&replayPath, "replay", "", "re-simulate a journal and print its digest instead of serving")
	flag.Parse()

	if replayPath != "" {
		summary, err := app.Replay(replayPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("ticks=%d sha256=%x\n", summary.Ticks, summary.Digest)
		return
	}

	bootstrap := logrus.New()
	cfg, err := config.Load(envPath, bootstrap)
	if err != nil {
		bootstrap.Fatalf("%v", err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if seed != "" {
		cfg.Sim.Seed = seed
	}

	logger := logging.NewLogrus(cfg.Logging.Logrus, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Options{Config: cfg, Logger: logger}); err != nil {
		logger.Fatalf("%v", err)
	}
}
