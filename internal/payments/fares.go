package payments

import (
	"context"

	"github.com/example/taxi-dispatch/internal/geo"
	"github.com/example/taxi-dispatch/internal/models"
)

// DistanceFare estimates a final fare from the straight-line trip distance.
// Fixed-route fares set on the ride beforehand take precedence: this only
// applies when the ride carries no fare yet.
type DistanceFare struct {
	PerKm   float64
	Minimum float64
}

func (f *DistanceFare) FinalFare(ctx context.Context, ride *models.Ride) (float64, error) {
	if ride.FinalFare > 0 {
		return ride.FinalFare, nil
	}
	fare := geo.DistanceKm(ride.StartLocation.Loc, ride.EndLocation.Loc) * f.PerKm
	if fare < f.Minimum {
		fare = f.Minimum
	}
	return fare, nil
}
