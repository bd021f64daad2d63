package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/observability"
	"github.com/example/taxi-dispatch/internal/storage"
)

// Notification type keys. The debounce window applies per (user, type, ride).
const (
	TypeDriverApproaching = "driver_approaching"
	TypeDriverNearby      = "driver_nearby"
	TypeDriverArrived     = "driver_arrived"
	TypeAtDestination     = "arriving_at_destination"
	TypeRideAccepted      = "ride_accepted"
	TypeRideDeclined      = "ride_declined"
	TypeRideCancelled     = "ride_cancelled"
	TypeRideStarted       = "ride_started"
	TypeRideCompleted     = "ride_completed"
)

// Pusher delivers a notification to a user's device. Delivery is
// fire-and-forget; reliability is the transport's problem.
type Pusher interface {
	Push(userID string, n models.Notification) error
}

// Emitter records and delivers notifications, gated by the debouncer.
// The stored record is the source of truth; push failure is logged and
// swallowed.
type Emitter struct {
	store    storage.NotificationStore
	push     Pusher
	debounce *Debouncer
	logger   *slog.Logger
	now      func() time.Time
}

func NewEmitter(store storage.NotificationStore, push Pusher, debounce *Debouncer, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{store: store, push: push, debounce: debounce, logger: logger, now: time.Now}
}

// Emit records and pushes a notification unless the debouncer suppresses
// it. Returns whether the notification was emitted.
func (e *Emitter) Emit(ctx context.Context, userID, typ, rideID, title, message string, priority models.NotificationPriority) (bool, error) {
	ok, err := e.debounce.ShouldEmit(ctx, userID, typ, rideID)
	if err != nil {
		return false, err
	}
	if !ok {
		observability.NotificationsSuppressed.Inc()
		return false, nil
	}

	n := models.Notification{
		ID:        NewID(),
		UserID:    userID,
		Type:      typ,
		RideID:    rideID,
		Title:     title,
		Message:   message,
		Priority:  priority,
		CreatedAt: e.now(),
	}
	if err := e.store.Insert(ctx, &n); err != nil {
		return false, err
	}
	observability.NotificationsEmitted.Inc()

	if e.push != nil {
		if err := e.push.Push(userID, n); err != nil {
			e.logger.Warn("notification push failed",
				"user_id", userID, "type", typ, "ride_id", rideID, "error", err)
		}
	}
	return true, nil
}

// NewID returns a random 16-hex-char identifier.
func NewID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
