// Package client is the player side of the websocket protocol, shared by the
// bot and the spectator.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
)

const writeWait = 10 * time.Second

type Conn struct {
	ws *websocket.Conn
}

// Dial opens a session. The server assigns the ship id, which the client
// learns from the first frame.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

// Next blocks for the next snapshot frame, skipping anything that is not a
// text message.
func (c *Conn) Next() (proto.Frame, error) {
	for {
		kind, payload, err := c.ws.ReadMessage()
		if err != nil {
			return proto.Frame{}, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return proto.DecodeSnapshot(payload)
	}
}

func (c *Conn) Send(msg proto.ActionMessage) error {
	data, err := proto.EncodeAction(msg)
	if err != nil {
		return err
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close says goodbye and closes the socket. Safe to call from another
// goroutine to unblock Next.
func (c *Conn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

// CloseOnDone closes the connection once ctx ends. The returned func stops
// the watcher.
func (c *Conn) CloseOnDone(ctx context.Context) func() {
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-stop:
		}
	}()
	return func() { close(stop) }
}
