package storage

import (
	"context"
	"errors"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
)

// ErrNotFound is returned by lookups when no record exists.
var ErrNotFound = errors.New("record not found")

// RideStore defines persistence operations for rides. Rides are never
// deleted; terminal states are retained for history.
type RideStore interface {
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	SaveRide(ctx context.Context, r *models.Ride) error
	UpdateRide(ctx context.Context, r *models.Ride) error
	// ActiveRides returns rides eligible for the proximity sweep.
	ActiveRides(ctx context.Context) ([]*models.Ride, error)
}

// RouteStore exposes the route catalogue. Routes are owned by operations
// tooling and read-only here.
type RouteStore interface {
	ActiveRoutes(ctx context.Context) ([]*models.Route, error)
}

type DriverStore interface {
	DriversByRoute(ctx context.Context, routeID string) ([]models.Driver, error)
}

// LocationStore holds one current sample per user, overwritten in place.
type LocationStore interface {
	Latest(ctx context.Context, userID string) (models.LocationSample, bool, error)
	Upsert(ctx context.Context, s models.LocationSample) error
}

// NotificationStore is append-only; LastEmitted supports the debounce check.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	LastEmitted(ctx context.Context, userID, typ, rideID string) (time.Time, bool, error)
}
