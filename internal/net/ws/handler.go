package ws

import (
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/intake"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
	"github.com/Alex1um/simple-unbalanced-game/logging"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	// maxActionSize is far above any valid action frame. Longer frames are
	// drained and dropped without closing the connection.
	maxActionSize = 512
)

const (
	connectionsOpenMetricKey  = "net_connections_open"
	connectionsTotalMetricKey = "net_connections_total"
	oversizedFramesMetricKey  = "net_frames_oversized_total"
)

type HandlerConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

// Handler upgrades HTTP requests into player sessions. Every connection is
// given the next ship id; the ship itself only appears once the client sends
// its first MoveShip.
type Handler struct {
	queue       intake.Sender
	broadcaster *sim.Broadcaster
	logger      telemetry.Logger
	publisher   logging.Publisher
	metrics     telemetry.Metrics
	upgrader    websocket.Upgrader

	nextID atomic.Uint64
	open   atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHandler(queue intake.Sender, broadcaster *sim.Broadcaster, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		queue:       queue,
		broadcaster: broadcaster,
		logger:      logger,
		publisher:   publisher,
		metrics:     metrics,
		upgrader:    upgrader,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Handle serves one websocket connection until either side ends it.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	h.wg.Add(1)
	defer h.wg.Done()

	id := sim.ShipID(h.nextID.Add(1))
	h.metrics.Add(connectionsTotalMetricKey, 1)
	h.metrics.Store(connectionsOpenMetricKey, uint64(h.open.Add(1)))
	defer func() {
		h.metrics.Store(connectionsOpenMetricKey, uint64(h.open.Add(-1)))
	}()

	s := &session{
		id:      id,
		remote:  r.RemoteAddr,
		conn:    conn,
		handler: h,
		stager:  intake.Stager{Queue: h.queue, Metrics: h.metrics},
	}
	s.serve(h.ctx)
}

// Connections reports how many sessions are currently open.
func (h *Handler) Connections() int {
	return int(h.open.Load())
}

// Close ends every open session and waits for them to finish.
func (h *Handler) Close() {
	h.cancel()
	h.wg.Wait()
}

func (h *Handler) tick() uint64 {
	if h.broadcaster == nil {
		return 0
	}
	if latest := h.broadcaster.Latest(); latest != nil {
		return latest.Tick
	}
	return 0
}

// expectedClose reports errors that are an ordinary end of a connection.
func expectedClose(err error) bool {
	if err == nil {
		return true
	}
	var closeErr *websocket.CloseError
	switch {
	case errors.As(err, &closeErr):
		return true
	case errors.Is(err, websocket.ErrCloseSent),
		errors.Is(err, websocket.ErrReadLimit),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, sim.ErrQueueClosed),
		errors.Is(err, sim.ErrBroadcasterClosed):
		return true
	}
	return false
}
