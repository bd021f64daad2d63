package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Stop is a named point on a route. Order is the stop's position along the
// physical path and is strictly increasing from first to last stop.
type Stop struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Loc   Coord  `json:"loc"`
	Order int    `json:"order"`
}

// Route is a fixed minibus-taxi service path. EnrichedStops, when present,
// is a denser waypoint list that supersedes Stops for scoring; it follows
// the same ordering rule.
type Route struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Stops             []Stop        `json:"stops"`
	EnrichedStops     []Stop        `json:"enriched_stops,omitempty"`
	Fare              float64       `json:"fare"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	TaxiAssociation   string        `json:"taxi_association"`
	Active            bool          `json:"active"`
}

// ScoringStops returns the stop list the scorer should use.
func (r *Route) ScoringStops() []Stop {
	if len(r.EnrichedStops) > 0 {
		return r.EnrichedStops
	}
	return r.Stops
}

type Driver struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	AssignedRoute   string  `json:"assigned_route,omitempty"`
	RidesCompleted  int     `json:"rides_completed"`
	Rating          float64 `json:"rating"` // 0..5
	TaxiAssociation string  `json:"taxi_association"`
	VehicleReg      string  `json:"vehicle_reg"`
}

// LocationSample is the single current location record for a user.
// It is overwritten in place; there is no history.
type LocationSample struct {
	UserID  string    `json:"user_id"`
	Loc     Coord     `json:"loc"`
	Role    string    `json:"role"` // "driver" or "passenger"
	Updated time.Time `json:"updated"`
}

type RideStatus string

const (
	StatusRequested  RideStatus = "requested"
	StatusAccepted   RideStatus = "accepted"
	StatusInProgress RideStatus = "in_progress"
	// StatusStarted is a legacy synonym for in_progress still present in
	// older rows; guards treat it as in_progress.
	StatusStarted   RideStatus = "started"
	StatusCompleted RideStatus = "completed"
	StatusCancelled RideStatus = "cancelled"
	StatusDeclined  RideStatus = "declined"
)

// Terminal reports whether no further transitions are possible.
func (s RideStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusDeclined
}

// Active reports whether the ride should be swept for proximity.
func (s RideStatus) Active() bool {
	return s == StatusAccepted || s == StatusInProgress || s == StatusStarted
}

// Place is a coordinate plus the human-readable address shown in the app.
type Place struct {
	Loc     Coord  `json:"loc"`
	Address string `json:"address"`
}

type Ride struct {
	ID            string     `json:"id"`
	PassengerID   string     `json:"passenger_id"`
	DriverID      string     `json:"driver_id,omitempty"` // empty until accepted
	StartLocation Place      `json:"start_location"`
	EndLocation   Place      `json:"end_location"`
	Status        RideStatus `json:"status"`
	RequestedAt   time.Time  `json:"requested_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FinalFare     float64    `json:"final_fare,omitempty"`
}

type NotificationPriority string

const (
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

type Notification struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Type      string               `json:"type"`
	RideID    string               `json:"ride_id"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Priority  NotificationPriority `json:"priority"`
	CreatedAt time.Time            `json:"created_at"`
	Read      bool                 `json:"read"`
}

// RouteMatch carries the scoring facts for one route so the UI can explain
// why a taxi was offered.
type RouteMatch struct {
	RouteID           string  `json:"route_id"`
	RouteName         string  `json:"route_name"`
	TotalScore        float64 `json:"total_score"`
	OriginProximityKm float64 `json:"origin_proximity_km"`
	DestProximityKm   float64 `json:"dest_proximity_km"`
	OriginStop        Stop    `json:"origin_stop"`
	DestStop          Stop    `json:"dest_stop"`
	Fare              float64 `json:"fare"`
	TaxiAssociation   string  `json:"taxi_association"`
}

// TaxiCandidate is one ranked result entry: driver/vehicle facts plus the
// route-match facts that justified offering this driver.
type TaxiCandidate struct {
	DriverID         string     `json:"driver_id"`
	DriverName       string     `json:"driver_name"`
	VehicleReg       string     `json:"vehicle_reg"`
	Rating           float64    `json:"rating"`
	RidesCompleted   int        `json:"rides_completed"`
	Loc              Coord      `json:"loc"`
	DistanceToOrigin float64    `json:"distance_to_origin_km"`
	EtaMinutes       float64    `json:"eta_minutes"`
	RouteInfo        RouteMatch `json:"route_info"`
}

type MatchResult struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	AvailableTaxis   []TaxiCandidate `json:"available_taxis"`
	RoutesConsidered int             `json:"routes_considered"`
	TotalTaxisFound  int             `json:"total_taxis_found"`
}
