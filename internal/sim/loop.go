package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
	"github.com/Alex1um/simple-unbalanced-game/logging"
	"github.com/Alex1um/simple-unbalanced-game/logging/simulation"
)

const (
	tickDurationMetricKey = "sim_tick_duration_micros"
	tickOverrunMetricKey  = "sim_tick_overrun_total"
)

// LoopConfig tunes the fixed-rate scheduler.
type LoopConfig struct {
	TickRate  int
	Clock     logging.Clock
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
}

// LoopHooks lets the owner observe the loop without touching the engine.
type LoopHooks struct {
	// Prepare runs before the engine steps tick.
	Prepare func(tick uint64)
	// AfterStep runs once the tick's snapshot is published.
	AfterStep func(LoopStepResult)
}

type LoopStepResult struct {
	StepResult
	Duration time.Duration
	Budget   time.Duration
	// Streak counts consecutive overrunning ticks, zero when on budget.
	Streak uint64
}

func (r LoopStepResult) Overrun() bool { return r.Duration > r.Budget }

// Loop is the scheduler: it owns the engine, drains the queue once per tick
// and publishes every snapshot. It does not skip ticks to catch up; an
// overrunning tick is followed by the next one immediately.
type Loop struct {
	engine      *Engine
	queue       *ActionQueue
	broadcaster *Broadcaster
	config      LoopConfig
	hooks       LoopHooks
	period      time.Duration
}

func NewLoop(engine *Engine, queue *ActionQueue, broadcaster *Broadcaster, cfg LoopConfig, hooks LoopHooks) *Loop {
	if cfg.TickRate <= 0 {
		cfg.TickRate = engine.Config().TickRate
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.SystemClock{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}
	return &Loop{
		engine:      engine,
		queue:       queue,
		broadcaster: broadcaster,
		config:      cfg,
		hooks:       hooks,
		period:      time.Second / time.Duration(cfg.TickRate),
	}
}

// Run ticks until ctx is cancelled, returning nil in that case. It returns
// ErrBroadcasterClosed when a snapshot cannot be published and
// ErrQueueClosed once the queue is closed and fully drained.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer func() { l.stopped(err) }()

	clock := l.config.Clock
	timer := time.NewTimer(l.period)
	defer timer.Stop()
	var streak uint64

	for {
		if ctx.Err() != nil {
			return nil
		}
		start := clock.Now()
		if l.hooks.Prepare != nil {
			l.hooks.Prepare(l.engine.Tick() + 1)
		}
		step := l.engine.Step(l.queue)
		if err := l.broadcaster.Publish(step.Snapshot); err != nil {
			return fmt.Errorf("publish tick %d: %w", step.Tick, err)
		}
		duration := clock.Now().Sub(start)

		if duration > l.period {
			streak++
			l.reportOverrun(step.Tick, duration, streak)
		} else {
			streak = 0
		}
		l.config.Metrics.Store(tickDurationMetricKey, uint64(duration.Microseconds()))
		if l.hooks.AfterStep != nil {
			l.hooks.AfterStep(LoopStepResult{StepResult: step, Duration: duration, Budget: l.period, Streak: streak})
		}

		if l.queue.Closed() && l.queue.Len() == 0 {
			return ErrQueueClosed
		}

		remaining := l.period - duration
		if remaining <= 0 {
			continue
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(remaining)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

func (l *Loop) reportOverrun(tick uint64, duration time.Duration, streak uint64) {
	l.config.Metrics.Add(tickOverrunMetricKey, 1)
	simulation.TickBudgetOverrun(context.Background(), l.config.Publisher, tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: duration.Milliseconds(),
		BudgetMillis:   l.period.Milliseconds(),
		Ratio:          float64(duration) / float64(l.period),
		Streak:         streak,
	}, nil)
}

func (l *Loop) stopped(err error) {
	reason := "shutdown"
	fatal := false
	switch {
	case err == nil:
	case errors.Is(err, ErrQueueClosed):
		reason = "action queue closed"
		fatal = true
	case errors.Is(err, ErrBroadcasterClosed):
		reason = "broadcaster closed"
		fatal = true
	default:
		reason = err.Error()
		fatal = true
	}
	l.config.Logger.Printf("simulation loop stopped at tick %d: %s", l.engine.Tick(), reason)
	simulation.LoopStopped(context.Background(), l.config.Publisher, l.engine.Tick(), simulation.LoopStoppedPayload{Reason: reason}, fatal)
}
