package storage

import (
	"context"
	"sync"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
)

// Memory implements every store interface in process memory. Used for
// local runs without Postgres/Redis and throughout the tests.
type Memory struct {
	mu            sync.RWMutex
	rides         map[string]*models.Ride
	routes        map[string]*models.Route
	drivers       map[string]models.Driver
	locations     map[string]models.LocationSample
	notifications []*models.Notification
}

func NewMemory() *Memory {
	return &Memory{
		rides:     make(map[string]*models.Ride),
		routes:    make(map[string]*models.Route),
		drivers:   make(map[string]models.Driver),
		locations: make(map[string]models.LocationSample),
	}
}

func (m *Memory) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) SaveRide(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func (m *Memory) UpdateRide(ctx context.Context, r *models.Ride) error {
	return m.SaveRide(ctx, r)
}

func (m *Memory) ActiveRides(ctx context.Context) ([]*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Ride, 0)
	for _, r := range m.rides {
		if r.Status.Active() {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) AddRoute(r *models.Route) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[r.ID] = r
}

func (m *Memory) ActiveRoutes(ctx context.Context) ([]*models.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Route, 0, len(m.routes))
	for _, r := range m.routes {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) AddDriver(d models.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[d.ID] = d
}

func (m *Memory) DriversByRoute(ctx context.Context, routeID string) ([]models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Driver, 0)
	for _, d := range m.drivers {
		if d.AssignedRoute == routeID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Memory) Latest(ctx context.Context, userID string) (models.LocationSample, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.locations[userID]
	return s, ok, nil
}

func (m *Memory) Upsert(ctx context.Context, s models.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Updated.IsZero() {
		s.Updated = time.Now()
	}
	m.locations[s.UserID] = s
	return nil
}

func (m *Memory) Insert(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications = append(m.notifications, &cp)
	return nil
}

func (m *Memory) LastEmitted(ctx context.Context, userID, typ, rideID string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last time.Time
	found := false
	for _, n := range m.notifications {
		if n.UserID == userID && n.Type == typ && n.RideID == rideID && n.CreatedAt.After(last) {
			last = n.CreatedAt
			found = true
		}
	}
	return last, found, nil
}

// Notifications returns a copy of all recorded notifications, oldest first.
func (m *Memory) Notifications() []models.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		out = append(out, *n)
	}
	return out
}
