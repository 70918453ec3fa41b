package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
)

func TestConnReadsFramesAndSendsActions(t *testing.T) {
	received := make(chan proto.ActionMessage, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		snapshot := &sim.Snapshot{Ships: map[sim.ShipID]sim.Ship{4: {X: 1, Y: 2, HP: 50}}}
		data, _ := proto.EncodeSnapshot(snapshot, 4)
		conn.WriteMessage(websocket.BinaryMessage, []byte("ignored"))
		conn.WriteMessage(websocket.TextMessage, data)

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := proto.DecodeAction(payload)
		if err == nil {
			received <- msg
		}
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	conn, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	frame, err := conn.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	own, ok := frame.Own()
	if !ok || frame.Recipient != 4 || own.HP != 50 {
		t.Fatalf("unexpected frame %+v", frame)
	}

	if err := conn.Send(proto.AddBulletMessage(0.75)); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := <-received
	if msg.AddBullet == nil || msg.AddBullet.Angle != 0.75 || msg.MoveShip != nil {
		t.Fatalf("unexpected action %+v", msg)
	}
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	if _, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")); err == nil {
		t.Fatalf("expected the handshake to fail")
	}
}
