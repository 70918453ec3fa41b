package bot

import (
	"context"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
)

// Conn is the slice of client.Conn a bot needs.
type Conn interface {
	Next() (proto.Frame, error)
	Send(proto.ActionMessage) error
}

// Play feeds every frame to the strategy and sends its answers until the
// connection fails or ctx ends. The caller closes conn to unblock it.
func Play(ctx context.Context, conn Conn, strategy Strategy) error {
	var count uint64
	for {
		frame, err := conn.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		count++
		for _, msg := range strategy.Decide(frame, count) {
			if err := conn.Send(msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
