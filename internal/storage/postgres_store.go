package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/taxi-dispatch/internal/models"
)

// PostgresStore backs rides, routes, drivers and notifications with
// Postgres. Location samples live in Redis (see RedisLocations).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id, passenger_id, COALESCE(driver_id,''), start_lat, start_lon, start_address, end_lat, end_lon, end_address, status, requested_at, started_at, completed_at, COALESCE(final_fare,0) FROM rides WHERE id=$1`, id)
	return scanRide(row)
}

func (p *PostgresStore) SaveRide(ctx context.Context, r *models.Ride) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO rides(id, passenger_id, driver_id, start_lat, start_lon, start_address, end_lat, end_lon, end_address, status, requested_at) VALUES($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ID, r.PassengerID, r.DriverID,
		r.StartLocation.Loc.Lat, r.StartLocation.Loc.Lon, r.StartLocation.Address,
		r.EndLocation.Loc.Lat, r.EndLocation.Loc.Lon, r.EndLocation.Address,
		string(r.Status), r.RequestedAt)
	return err
}

func (p *PostgresStore) UpdateRide(ctx context.Context, r *models.Ride) error {
	_, err := p.db.ExecContext(ctx, `UPDATE rides SET driver_id=NULLIF($1,''), status=$2, started_at=$3, completed_at=$4, final_fare=$5 WHERE id=$6`,
		r.DriverID, string(r.Status), r.StartedAt, r.CompletedAt, r.FinalFare, r.ID)
	return err
}

func (p *PostgresStore) ActiveRides(ctx context.Context) ([]*models.Ride, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, passenger_id, COALESCE(driver_id,''), start_lat, start_lon, start_address, end_lat, end_lon, end_address, status, requested_at, started_at, completed_at, COALESCE(final_fare,0) FROM rides WHERE status IN ('accepted','in_progress','started')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*models.Ride, error) {
	var r models.Ride
	var status string
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&r.ID, &r.PassengerID, &r.DriverID,
		&r.StartLocation.Loc.Lat, &r.StartLocation.Loc.Lon, &r.StartLocation.Address,
		&r.EndLocation.Loc.Lat, &r.EndLocation.Loc.Lon, &r.EndLocation.Address,
		&status, &r.RequestedAt, &startedAt, &completedAt, &r.FinalFare)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Status = models.RideStatus(status)
	if startedAt.Valid {
		t := startedAt.Time
		r.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func (p *PostgresStore) ActiveRoutes(ctx context.Context) ([]*models.Route, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, fare, estimated_duration_min, taxi_association FROM routes WHERE active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[string]*models.Route)
	var out []*models.Route
	for rows.Next() {
		var r models.Route
		var durMin int
		if err := rows.Scan(&r.ID, &r.Name, &r.Fare, &durMin, &r.TaxiAssociation); err != nil {
			return nil, err
		}
		r.EstimatedDuration = time.Duration(durMin) * time.Minute
		r.Active = true
		byID[r.ID] = &r
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srows, err := p.db.QueryContext(ctx, `SELECT route_id, id, name, lat, lon, stop_order, enriched FROM route_stops ORDER BY route_id, stop_order`)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var routeID string
		var st models.Stop
		var enriched bool
		if err := srows.Scan(&routeID, &st.ID, &st.Name, &st.Loc.Lat, &st.Loc.Lon, &st.Order, &enriched); err != nil {
			return nil, err
		}
		r, ok := byID[routeID]
		if !ok {
			continue
		}
		if enriched {
			r.EnrichedStops = append(r.EnrichedStops, st)
		} else {
			r.Stops = append(r.Stops, st)
		}
	}
	return out, srows.Err()
}

func (p *PostgresStore) DriversByRoute(ctx context.Context, routeID string) ([]models.Driver, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, assigned_route, rides_completed, rating, taxi_association, vehicle_reg FROM drivers WHERE assigned_route=$1`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Driver
	for rows.Next() {
		var d models.Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.AssignedRoute, &d.RidesCompleted, &d.Rating, &d.TaxiAssociation, &d.VehicleReg); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Insert(ctx context.Context, n *models.Notification) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO notifications(id, user_id, type, ride_id, title, message, priority, created_at, read) VALUES($1,$2,$3,$4,$5,$6,$7,$8,false)`,
		n.ID, n.UserID, n.Type, n.RideID, n.Title, n.Message, string(n.Priority), n.CreatedAt)
	return err
}

func (p *PostgresStore) LastEmitted(ctx context.Context, userID, typ, rideID string) (time.Time, bool, error) {
	var t time.Time
	err := p.db.QueryRowContext(ctx, `SELECT created_at FROM notifications WHERE user_id=$1 AND type=$2 AND ride_id=$3 ORDER BY created_at DESC LIMIT 1`, userID, typ, rideID).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
