package net

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
	"github.com/Alex1um/simple-unbalanced-game/logging"
)

type fixedRouterStats logging.RouterStats

func (s fixedRouterStats) Stats() logging.RouterStats { return logging.RouterStats(s) }

func TestHealth(t *testing.T) {
	handler := NewHTTPHandler(HTTPHandlerConfig{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
}

func TestDiagnosticsReadsLatestSnapshot(t *testing.T) {
	var metrics logging.Metrics
	queue := sim.NewActionQueue(4, telemetry.WrapMetrics(&metrics))
	broadcaster := sim.NewBroadcaster(telemetry.WrapMetrics(&metrics))
	sub := broadcaster.Subscribe()
	defer sub.Close()

	if err := queue.Send(t.Context(), sim.MoveShip(1, 0)); err != nil {
		t.Fatalf("send: %v", err)
	}
	snapshot := &sim.Snapshot{
		Tick:     42,
		Ships:    map[sim.ShipID]sim.Ship{1: {}, 2: {}},
		Bullets:  map[sim.BulletID]sim.Bullet{0: {}},
		Category: make([][]sim.Category, 5),
	}
	if err := broadcaster.Publish(snapshot); err != nil {
		t.Fatalf("publish: %v", err)
	}

	handler := NewHTTPHandler(HTTPHandlerConfig{
		Queue:       queue,
		Broadcaster: broadcaster,
		Metrics:     &metrics,
		Router:      fixedRouterStats{EventsTotal: 9, DroppedTotal: 1},
		TickRate:    60,
	})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var payload diagnosticsPayload
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if payload.Tick != 42 || payload.Ships != 2 || payload.Bullets != 1 || payload.MapSize != 5 {
		t.Fatalf("unexpected world figures %+v", payload)
	}
	if payload.Subscribers != 1 || payload.QueueDepth != 1 || payload.QueueCapacity != 4 || payload.TickRate != 60 {
		t.Fatalf("unexpected runtime figures %+v", payload)
	}
	if payload.Counters["sim_action_queue_depth"] != 1 {
		t.Fatalf("expected queue depth counter, got %v", payload.Counters)
	}
	if payload.Logging == nil || payload.Logging.DroppedTotal != 1 {
		t.Fatalf("expected logging stats, got %+v", payload.Logging)
	}
}

func TestDebugPickupDisabledByDefault(t *testing.T) {
	handler := NewHTTPHandler(HTTPHandlerConfig{Queue: sim.NewActionQueue(1, nil)})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/debug/pickup?target=1", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without debug endpoints, got %d", resp.Code)
	}
}

func TestDebugPickupQueuesPlacement(t *testing.T) {
	queue := sim.NewActionQueue(2, nil)
	handler := NewHTTPHandler(HTTPHandlerConfig{Queue: queue, DebugEndpoints: true})

	cases := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "3", http.StatusMethodNotAllowed},
		{http.MethodPost, "", http.StatusBadRequest},
		{http.MethodPost, "zero", http.StatusBadRequest},
		{http.MethodPost, "3", http.StatusAccepted},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(tc.method, "/debug/pickup?target="+tc.target, nil))
		if resp.Code != tc.want {
			t.Fatalf("%s target=%q: expected %d, got %d", tc.method, tc.target, tc.want, resp.Code)
		}
	}

	actions := queue.Drain()
	if len(actions) != 1 || actions[0] != sim.PlacePickup(3) {
		t.Fatalf("expected one pickup placement, got %+v", actions)
	}

	queue.Close()
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/debug/pickup?target=3", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after the queue closes, got %d", resp.Code)
	}
}
