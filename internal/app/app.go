package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Alex1um/simple-unbalanced-game/internal/config"
	servernet "github.com/Alex1um/simple-unbalanced-game/internal/net"
	"github.com/Alex1um/simple-unbalanced-game/internal/net/ws"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
	"github.com/Alex1um/simple-unbalanced-game/logging"
	loggingSinks "github.com/Alex1um/simple-unbalanced-game/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	Config config.Config
	// Logger defaults to one built from Config.Logging.Logrus.
	Logger *logrus.Logger
	// Listener overrides Config.Addr; tests pass one bound to port 0.
	Listener net.Listener
}

// Run serves the arena until ctx is cancelled or the simulation stops.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogrus(cfg.Logging.Logrus, os.Stderr)
	}
	telemetryLogger := telemetry.WrapLogrus(logger)

	if cfg.Sim.Seed == "" {
		cfg.Sim.Seed = strconv.FormatUint(rand.Uint64(), 36)
	}
	simCfg := cfg.Sim.Normalized()
	logger.WithFields(logrus.Fields{
		"seed":     simCfg.Seed,
		"mapSize":  simCfg.MapSize,
		"tickRate": simCfg.TickRate,
	}).Info("simulation configured")

	sinks, closeSinks, err := buildSinks(cfg.Logging, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	router, err := logging.NewRouter(logging.SystemClock{}, cfg.Logging, sinks, logger)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	var metrics logging.Metrics
	simMetrics := telemetry.WrapMetrics(&metrics)

	engine := sim.NewEngine(simCfg, sim.Deps{Publisher: router, Metrics: simMetrics})
	queue := sim.NewActionQueue(simCfg.QueueCapacity, simMetrics)
	broadcaster := sim.NewBroadcaster(simMetrics)

	var hooks sim.LoopHooks
	if cfg.JournalPath != "" {
		rec, err := openJournal(cfg.JournalPath, simCfg, telemetryLogger)
		if err != nil {
			return err
		}
		defer rec.close()
		hooks.AfterStep = rec.append
	}

	loop := sim.NewLoop(engine, queue, broadcaster, sim.LoopConfig{
		TickRate:  simCfg.TickRate,
		Publisher: router,
		Logger:    telemetryLogger,
		Metrics:   simMetrics,
	}, hooks)

	sessions := ws.NewHandler(queue, broadcaster, ws.HandlerConfig{
		Logger:    telemetryLogger,
		Publisher: router,
		Metrics:   simMetrics,
	})
	handler := servernet.NewHTTPHandler(servernet.HTTPHandlerConfig{
		Queue:          queue,
		Broadcaster:    broadcaster,
		Sessions:       sessions,
		Metrics:        &metrics,
		Router:         router,
		TickRate:       simCfg.TickRate,
		DebugEndpoints: cfg.DebugEndpoints,
		Logger:         telemetryLogger,
	})

	listener := opts.Listener
	if listener == nil {
		listener, err = net.Listen("tcp", cfg.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
		}
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	telemetryLogger.Printf("server listening on %s", listener.Addr())

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(loopCtx) }()

	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(listener) }()

	var runErr error
	loopFinished := false
	select {
	case <-ctx.Done():
	case err := <-loopDone:
		loopFinished = true
		if err != nil && !errors.Is(err, sim.ErrQueueClosed) {
			runErr = fmt.Errorf("simulation stopped: %w", err)
		}
	case err := <-serveDone:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetryLogger.Printf("http shutdown: %v", err)
	}
	queue.Close()
	stopLoop()
	if !loopFinished {
		if err := <-loopDone; err != nil && !errors.Is(err, sim.ErrQueueClosed) && runErr == nil {
			runErr = fmt.Errorf("simulation stopped: %w", err)
		}
	}
	broadcaster.Close()
	sessions.Close()
	return runErr
}

func buildSinks(cfg logging.Config, logger *logrus.Logger) ([]logging.NamedSink, func(), error) {
	var (
		sinks   []logging.NamedSink
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	for _, name := range cfg.EnabledSinks {
		switch name {
		case logging.SinkConsole:
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsole(os.Stdout)})
		case logging.SinkLogrus:
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewLogrus(logger)})
		case logging.SinkJSON:
			if cfg.JSON.FilePath == "" {
				logger.Warn("json sink enabled without LOG_JSON_PATH, skipping")
				continue
			}
			f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("open json sink %s: %w", cfg.JSON.FilePath, err)
			}
			closers = append(closers, f)
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(f, cfg.JSON.FlushInterval)})
		default:
			logger.WithField("sink", name).Warn("unknown logging sink, skipping")
		}
	}
	return sinks, closeAll, nil
}
