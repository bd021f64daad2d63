package dispatch

import (
	"github.com/example/taxi-dispatch/internal/models"
)

// Pusher mirrors notify.Pusher so the chain can hold any transport.
type Pusher interface {
	Push(userID string, n models.Notification) error
}

// Chain tries each transport in order and stops at the first success.
// Typical wiring is WS first (live app session) with FCM as fallback for
// backgrounded apps.
type Chain struct {
	transports []Pusher
}

func NewChain(transports ...Pusher) *Chain {
	out := make([]Pusher, 0, len(transports))
	for _, t := range transports {
		if t != nil {
			out = append(out, t)
		}
	}
	return &Chain{transports: out}
}

func (c *Chain) Push(userID string, n models.Notification) error {
	var lastErr error = ErrNoSession
	for _, t := range c.transports {
		if err := t.Push(userID, n); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}
