package scorer

import (
	"math"

	"github.com/example/taxi-dispatch/internal/geo"
	"github.com/example/taxi-dispatch/internal/models"
)

// Pickup feasibility matters more than drop-off precision, so the origin
// leg carries the larger weight.
const (
	originWeight = 0.6
	destWeight   = 0.4
)

// Score holds the outcome of matching one route against a query.
type Score struct {
	Total             float64
	OriginProximityKm float64
	DestProximityKm   float64
	OriginStop        models.Stop
	DestStop          models.Stop
	Directional       bool
}

// ScoreRoute finds the stops nearest to the query origin and destination
// independently and combines their proximities into a weighted total.
// A route with no stops scores +Inf and is never directional.
func ScoreRoute(route *models.Route, origin, dest models.Coord) Score {
	stops := route.ScoringStops()
	if len(stops) == 0 {
		return Score{Total: math.Inf(1)}
	}

	oStop, oDist := nearestStop(stops, origin)
	dStop, dDist := nearestStop(stops, dest)

	return Score{
		Total:             originWeight*oDist + destWeight*dDist,
		OriginProximityKm: oDist,
		DestProximityKm:   dDist,
		OriginStop:        oStop,
		DestStop:          dStop,
		// A degenerate match (same nearest stop for both ends) has no
		// direction and is rejected.
		Directional: dStop.Order > oStop.Order,
	}
}

// Candidate reports whether a scored route qualifies under the caller's
// distance ceilings. Routes that would require travelling backwards along
// the stop sequence never qualify.
func (s Score) Candidate(maxOriginKm, maxDestKm float64) bool {
	if math.IsInf(s.Total, 1) {
		return false
	}
	return s.Directional && s.OriginProximityKm <= maxOriginKm && s.DestProximityKm <= maxDestKm
}

func nearestStop(stops []models.Stop, p models.Coord) (models.Stop, float64) {
	best := stops[0]
	bestDist := geo.DistanceKm(p, best.Loc)
	for _, st := range stops[1:] {
		if d := geo.DistanceKm(p, st.Loc); d < bestDist {
			best, bestDist = st, d
		}
	}
	return best, bestDist
}
