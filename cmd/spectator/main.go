package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/Alex1um/simple-unbalanced-game/internal/client"
	"github.com/Alex1um/simple-unbalanced-game/internal/spectator"
)

func main() {
	var url string
	flag.StringVar(&url, "url", "ws://localhost:48666/ws", "server websocket url")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, url); err != nil {
		fmt.Fprintf(os.Stderr, "spectator: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, url string) error {
	conn, err := client.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	return spectator.Run(ctx, screen, conn)
}
