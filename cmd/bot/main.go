package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Alex1um/simple-unbalanced-game/internal/bot"
	"github.com/Alex1um/simple-unbalanced-game/internal/client"
	"github.com/Alex1um/simple-unbalanced-game/logging"
)

func main() {
	var (
		url      string
		strategy string
		count    int
		seed     int64
		level    string
	)
	flag.StringVar(&url, "url", "ws://localhost:48666/ws", "server websocket url")
	flag.StringVar(&strategy, "strategy", "chaser", "one of "+strings.Join(bot.Names(), ", "))
	flag.IntVar(&count, "count", 1, "number of bots to run")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "seed for randomized strategies")
	flag.StringVar(&level, "log-level", "info", "log level")
	flag.Parse()

	logger := logging.NewLogrus(logging.LogrusConfig{Level: level}, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		s, err := bot.New(strategy, rand.New(rand.NewSource(seed+int64(i))))
		if err != nil {
			logger.Fatalf("%v", err)
		}
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			entry := logger.WithFields(logrus.Fields{"bot": n, "strategy": strategy})
			if err := run(ctx, url, s); err != nil {
				entry.WithError(err).Error("bot stopped")
				return
			}
			entry.Info("bot finished")
		}(i)
	}
	wg.Wait()
}

func run(ctx context.Context, url string, s bot.Strategy) error {
	conn, err := client.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer conn.CloseOnDone(ctx)()
	return bot.Play(ctx, conn, s)
}
