package net

import (
	"encoding/json"
	"errors"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/intake"
	"github.com/Alex1um/simple-unbalanced-game/internal/net/ws"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
	"github.com/Alex1um/simple-unbalanced-game/logging"
)

// RouterStats is the part of the logging router the diagnostics read.
type RouterStats interface {
	Stats() logging.RouterStats
}

type HTTPHandlerConfig struct {
	Queue       *sim.ActionQueue
	Broadcaster *sim.Broadcaster
	Sessions    *ws.Handler
	Metrics     *logging.Metrics
	Router      RouterStats
	TickRate    int
	// DebugEndpoints exposes /debug/pickup.
	DebugEndpoints bool
	Logger         telemetry.Logger
}

type diagnosticsPayload struct {
	Status        string               `json:"status"`
	ServerTime    int64                `json:"serverTime"`
	TickRate      int                  `json:"tickRate"`
	Tick          uint64               `json:"tick"`
	Ships         int                  `json:"ships"`
	Bullets       int                  `json:"bullets"`
	MapSize       int                  `json:"mapSize"`
	Subscribers   int                  `json:"subscribers"`
	Connections   int                  `json:"connections"`
	QueueDepth    int                  `json:"queueDepth"`
	QueueCapacity int                  `json:"queueCapacity"`
	Counters      map[string]uint64    `json:"counters,omitempty"`
	Logging       *logging.RouterStats `json:"logging,omitempty"`
}

func NewHTTPHandler(cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := diagnosticsPayload{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   cfg.TickRate,
		}
		if cfg.Broadcaster != nil {
			payload.Subscribers = cfg.Broadcaster.Subscribers()
			if latest := cfg.Broadcaster.Latest(); latest != nil {
				payload.Tick = latest.Tick
				payload.Ships = len(latest.Ships)
				payload.Bullets = len(latest.Bullets)
				payload.MapSize = latest.Size()
			}
		}
		if cfg.Sessions != nil {
			payload.Connections = cfg.Sessions.Connections()
		}
		if cfg.Queue != nil {
			payload.QueueDepth = cfg.Queue.Len()
			payload.QueueCapacity = cfg.Queue.Capacity()
		}
		if cfg.Metrics != nil {
			payload.Counters = cfg.Metrics.Snapshot()
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload.Logging = &stats
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	if cfg.Sessions != nil {
		mux.HandleFunc("/ws", cfg.Sessions.Handle)
	}

	if cfg.DebugEndpoints {
		mux.HandleFunc("/debug/pickup", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			if r.Method != nethttp.MethodPost {
				httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
				return
			}
			target, err := strconv.ParseUint(r.URL.Query().Get("target"), 10, 64)
			if err != nil || target == 0 {
				httpError(w, "invalid target", nethttp.StatusBadRequest)
				return
			}
			if cfg.Queue == nil {
				httpError(w, "simulation unavailable", nethttp.StatusServiceUnavailable)
				return
			}
			stager := intake.Stager{Queue: cfg.Queue}
			if err := stager.Enqueue(r.Context(), sim.PlacePickup(sim.ShipID(target))); err != nil {
				if errors.Is(err, sim.ErrQueueClosed) {
					httpError(w, "simulation stopped", nethttp.StatusServiceUnavailable)
					return
				}
				logger.Printf("failed to queue pickup for ship %d: %v", target, err)
				httpError(w, "failed to queue pickup", nethttp.StatusInternalServerError)
				return
			}
			w.WriteHeader(nethttp.StatusAccepted)
		})
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
