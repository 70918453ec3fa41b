package simulation

import (
	"context"

	"github.com/Alex1um/simple-unbalanced-game/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a tick takes longer than its period.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventLoopStopped is emitted once when the tick loop exits.
	EventLoopStopped logging.EventType = "simulation.loop_stopped"
)

type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

type LoopStoppedPayload struct {
	Reason string `json:"reason"`
}

func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}

// LoopStopped uses error severity for anything but a requested shutdown.
func LoopStopped(ctx context.Context, pub logging.Publisher, tick uint64, payload LoopStoppedPayload, fatal bool) {
	if pub == nil {
		return
	}
	severity := logging.SeverityInfo
	if fatal {
		severity = logging.SeverityError
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLoopStopped,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: severity,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
