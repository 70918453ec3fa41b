package network

import (
	"context"

	"github.com/Alex1um/simple-unbalanced-game/logging"
)

const (
	EventConnectionOpened logging.EventType = "network.connection_opened"
	EventConnectionClosed logging.EventType = "network.connection_closed"
	// EventConnectionError reports a transport failure that was not ordinary churn.
	EventConnectionError logging.EventType = "network.connection_error"
)

type ConnectionPayload struct {
	RemoteAddr string `json:"remoteAddr,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type ConnectionErrorPayload struct {
	RemoteAddr string `json:"remoteAddr,omitempty"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}

func ConnectionOpened(ctx context.Context, pub logging.Publisher, tick uint64, conn logging.EntityRef, payload ConnectionPayload) {
	publish(ctx, pub, EventConnectionOpened, logging.SeverityInfo, tick, conn, payload)
}

func ConnectionClosed(ctx context.Context, pub logging.Publisher, tick uint64, conn logging.EntityRef, payload ConnectionPayload) {
	publish(ctx, pub, EventConnectionClosed, logging.SeverityInfo, tick, conn, payload)
}

func ConnectionError(ctx context.Context, pub logging.Publisher, tick uint64, conn logging.EntityRef, payload ConnectionErrorPayload) {
	publish(ctx, pub, EventConnectionError, logging.SeverityError, tick, conn, payload)
}

func publish(ctx context.Context, pub logging.Publisher, typ logging.EventType, sev logging.Severity, tick uint64, conn logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     typ,
		Tick:     tick,
		Actor:    conn,
		Severity: sev,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
