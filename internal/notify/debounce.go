package notify

import (
	"context"
	"time"

	"github.com/example/taxi-dispatch/internal/storage"
)

// DefaultWindow is the single authoritative debounce window for every
// notification type. A second notification with the same (user, type, ride)
// key inside this window is suppressed.
const DefaultWindow = 2 * time.Minute

// Debouncer answers "has this exact alert fired recently?". The check and
// the later insert are not atomic against a concurrent sweep of the same
// ride; a rare duplicate notification is tolerated instead of a lock.
type Debouncer struct {
	store  storage.NotificationStore
	window time.Duration
	now    func() time.Time
}

func NewDebouncer(store storage.NotificationStore, window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{store: store, window: window, now: time.Now}
}

// ShouldEmit reports whether an alert keyed by (userID, typ, rideID) may
// fire now. Level-triggered: once the window elapses the same alert may
// fire again, which is intentional (a driver can loop past and return).
func (d *Debouncer) ShouldEmit(ctx context.Context, userID, typ, rideID string) (bool, error) {
	last, found, err := d.store.LastEmitted(ctx, userID, typ, rideID)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return d.now().Sub(last) >= d.window, nil
}
