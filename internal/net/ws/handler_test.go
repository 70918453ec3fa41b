package ws

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
	"github.com/Alex1um/simple-unbalanced-game/logging/network"
	"github.com/Alex1um/simple-unbalanced-game/logging/sinks"
)

type testServer struct {
	queue       *sim.ActionQueue
	broadcaster *sim.Broadcaster
	handler     *Handler
	events      *sinks.MemorySink
	url         string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	queue := sim.NewActionQueue(8, nil)
	broadcaster := sim.NewBroadcaster(nil)
	events := sinks.NewMemorySink()
	handler := NewHandler(queue, broadcaster, HandlerConfig{Publisher: events})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(func() {
		handler.Close()
		srv.Close()
	})
	return &testServer{
		queue:       queue,
		broadcaster: broadcaster,
		handler:     handler,
		events:      events,
		url:         websocketURL(t, srv.URL),
	}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

func websocketURL(t *testing.T, baseURL string) string {
	t.Helper()

	parsed, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("failed to parse test server url: %v", err)
	}
	parsed.Scheme = "ws"
	parsed.Path = "/ws"
	return parsed.String()
}

func waitForActions(t *testing.T, queue *sim.ActionQueue, want int) []sim.Action {
	t.Helper()

	var got []sim.Action
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d queued actions, got %+v", want, got)
		}
		got = append(got, queue.Drain()...)
		time.Sleep(5 * time.Millisecond)
	}
	return got
}

func TestHandleStagesActionsForConnectionShip(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"MoveShip":{"angle":1.5}}`)); err != nil {
		t.Fatalf("write move: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"AddBullet":{"angle":0.25}}`)); err != nil {
		t.Fatalf("write fire: %v", err)
	}

	actions := waitForActions(t, srv.queue, 2)
	if actions[0] != sim.MoveShip(1, 1.5) || actions[1] != sim.AddBullet(1, 0.25) {
		t.Fatalf("unexpected actions %+v", actions)
	}
}

func TestHandleDropsMalformedAndBinaryFrames(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	frames := []struct {
		kind int
		data string
	}{
		{websocket.TextMessage, `not json`},
		{websocket.TextMessage, `{"Warp":{"angle":1}}`},
		{websocket.BinaryMessage, `{"MoveShip":{"angle":2}}`},
		{websocket.TextMessage, `{"MoveShip":{"angle":3}}`},
	}
	for _, frame := range frames {
		if err := conn.WriteMessage(frame.kind, []byte(frame.data)); err != nil {
			t.Fatalf("write %q: %v", frame.data, err)
		}
	}

	actions := waitForActions(t, srv.queue, 1)
	if len(actions) != 1 || actions[0] != sim.MoveShip(1, 3) {
		t.Fatalf("expected only the valid text frame to be staged, got %+v", actions)
	}
}

func TestHandleSkipsOversizedTextFrames(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	frames := [][]byte{
		bytes.Repeat([]byte("x"), maxActionSize+88),
		append([]byte(`{"MoveShip":{"angle":1,"pad":"`), append(bytes.Repeat([]byte("y"), 64<<10), '"', '}', '}')...),
		[]byte(`{"MoveShip":{"angle":3}}`),
	}
	for i, frame := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
	}

	actions := waitForActions(t, srv.queue, 1)
	if len(actions) != 1 || actions[0] != sim.MoveShip(1, 3) {
		t.Fatalf("expected only the short frame to be staged, got %+v", actions)
	}
	if closed := srv.events.OfType(network.EventConnectionClosed); len(closed) != 0 {
		t.Fatalf("oversized frames must not close the connection, got %+v", closed)
	}
}

func TestHandleForwardsLatestSnapshotToEachConnection(t *testing.T) {
	srv := newTestServer(t)
	first := srv.dial(t)
	second := srv.dial(t)

	// Staging one action per connection proves both sessions are subscribed.
	for _, conn := range []*websocket.Conn{first, second} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"MoveShip":{"angle":0}}`)); err != nil {
			t.Fatalf("write move: %v", err)
		}
	}
	waitForActions(t, srv.queue, 2)

	snapshot := &sim.Snapshot{
		Tick:     7,
		Ships:    map[sim.ShipID]sim.Ship{1: {X: 3, Y: 4, HP: 100}},
		Bullets:  map[sim.BulletID]sim.Bullet{},
		Identity: [][]uint64{{1, 0}, {0, 0}},
		Category: [][]sim.Category{{sim.CategoryShip, sim.CategoryNone}, {sim.CategoryNone, sim.CategoryNone}},
	}
	if err := srv.broadcaster.Publish(snapshot); err != nil {
		t.Fatalf("publish: %v", err)
	}

	recipients := map[sim.ShipID]bool{}
	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		frame, err := proto.DecodeSnapshot(payload)
		if err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if frame.Size() != 2 || frame.Ships[1].HP != 100 {
			t.Fatalf("unexpected frame %+v", frame)
		}
		recipients[frame.Recipient] = true
	}
	if !recipients[1] || !recipients[2] {
		t.Fatalf("expected snapshots addressed to ships 1 and 2, got %v", recipients)
	}
}

func TestHandleClosesWhenQueueCloses(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	srv.queue.Close()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"MoveShip":{"angle":0}}`)); err != nil {
		t.Fatalf("write move: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the server to close the connection")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(srv.events.OfType(network.EventConnectionClosed)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected a connection closed event")
		}
		time.Sleep(5 * time.Millisecond)
	}
	closed := srv.events.OfType(network.EventConnectionClosed)[0]
	payload, ok := closed.Payload.(network.ConnectionPayload)
	if !ok || payload.Reason != "simulation stopped" {
		t.Fatalf("unexpected close payload %#v", closed.Payload)
	}
	if len(srv.events.OfType(network.EventConnectionError)) != 0 {
		t.Fatalf("queue closure must not be reported as a connection error")
	}
}

func TestHandleClosesWhenBroadcasterCloses(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"MoveShip":{"angle":0}}`)); err != nil {
		t.Fatalf("write move: %v", err)
	}
	waitForActions(t, srv.queue, 1)
	srv.broadcaster.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected a going-away close, got %v", err)
	}
}

func TestExpectedClose(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, true},
		{&websocket.CloseError{Code: websocket.CloseNormalClosure}, true},
		{websocket.ErrReadLimit, true},
		{sim.ErrQueueClosed, true},
		{websocket.ErrBadHandshake, false},
	}
	for _, tc := range cases {
		if got := expectedClose(tc.err); got != tc.want {
			t.Fatalf("expectedClose(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
