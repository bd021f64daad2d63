package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/taxi-dispatch/internal/geo"
	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/observability"
	"github.com/example/taxi-dispatch/internal/scorer"
	"github.com/example/taxi-dispatch/internal/storage"
)

// Query is one taxi search. All distances are kilometers.
type Query struct {
	Origin       models.Coord
	Destination  models.Coord
	MaxOriginKm  float64
	MaxDestKm    float64
	MaxTaxiKm    float64
	MaxResults   int
}

// Service ranks online drivers on routes that connect a query's pickup
// and drop-off. FindTaxis is read-only and safe to call concurrently.
type Service struct {
	Routes      storage.RouteStore
	Drivers     storage.DriverStore
	Locations   storage.LocationStore
	Logger      *slog.Logger
	AvgSpeedKmh float64
}

// FindTaxis scores every active route, joins passing routes to their
// assigned drivers' current locations, and returns a ranked page.
// Infrastructure failures come back as {Success:false, Message} rather
// than an error: matching is advisory and the caller just re-renders.
func (s *Service) FindTaxis(ctx context.Context, q Query) models.MatchResult {
	start := time.Now()
	defer func() { observability.SearchLatency.Observe(time.Since(start).Seconds()) }()
	observability.SearchesTotal.Inc()

	if q.MaxResults <= 0 {
		q.MaxResults = 10
	}

	routes, err := s.Routes.ActiveRoutes(ctx)
	if err != nil {
		return s.failure("route lookup", err)
	}

	type routeHit struct {
		route *models.Route
		score scorer.Score
	}
	hits := make([]routeHit, 0, len(routes))
	for _, r := range routes {
		sc := scorer.ScoreRoute(r, q.Origin, q.Destination)
		if sc.Candidate(q.MaxOriginKm, q.MaxDestKm) {
			hits = append(hits, routeHit{route: r, score: sc})
		}
	}

	if len(hits) == 0 {
		observability.SearchesEmpty.Inc()
		return models.MatchResult{
			Success:          true,
			Message:          "No taxi routes found connecting your pickup and drop-off within range",
			AvailableTaxis:   []models.TaxiCandidate{},
			RoutesConsidered: len(routes),
		}
	}

	candidates := make([]models.TaxiCandidate, 0)
	for _, h := range hits {
		drivers, err := s.Drivers.DriversByRoute(ctx, h.route.ID)
		if err != nil {
			return s.failure("driver lookup", err)
		}
		for _, d := range drivers {
			loc, ok, err := s.Locations.Latest(ctx, d.ID)
			if err != nil {
				return s.failure("location lookup", err)
			}
			if !ok {
				continue // driver has never reported a position
			}
			dist := geo.DistanceKm(loc.Loc, q.Origin)
			if dist > q.MaxTaxiKm {
				continue
			}
			candidates = append(candidates, models.TaxiCandidate{
				DriverID:         d.ID,
				DriverName:       d.Name,
				VehicleReg:       d.VehicleReg,
				Rating:           d.Rating,
				RidesCompleted:   d.RidesCompleted,
				Loc:              loc.Loc,
				DistanceToOrigin: dist,
				EtaMinutes:       geo.EtaMinutes(dist, s.AvgSpeedKmh),
				RouteInfo: models.RouteMatch{
					RouteID:           h.route.ID,
					RouteName:         h.route.Name,
					TotalScore:        h.score.Total,
					OriginProximityKm: h.score.OriginProximityKm,
					DestProximityKm:   h.score.DestProximityKm,
					OriginStop:        h.score.OriginStop,
					DestStop:          h.score.DestStop,
					Fare:              h.route.Fare,
					TaxiAssociation:   h.route.TaxiAssociation,
				},
			})
		}
	}

	// Better route first; among equally good routes the closer driver wins.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RouteInfo.TotalScore != candidates[j].RouteInfo.TotalScore {
			return candidates[i].RouteInfo.TotalScore < candidates[j].RouteInfo.TotalScore
		}
		return candidates[i].DistanceToOrigin < candidates[j].DistanceToOrigin
	})

	total := len(candidates)
	if total > q.MaxResults {
		candidates = candidates[:q.MaxResults]
	}

	msg := fmt.Sprintf("Found %d taxis on %d matching routes", total, len(hits))
	if total == 0 {
		msg = "Routes match your trip but no taxis are close to your pickup right now"
	}
	return models.MatchResult{
		Success:          true,
		Message:          msg,
		AvailableTaxis:   candidates,
		RoutesConsidered: len(routes),
		TotalTaxisFound:  total,
	}
}

func (s *Service) failure(stage string, err error) models.MatchResult {
	if s.Logger != nil {
		s.Logger.Error("taxi search failed", "stage", stage, "error", err)
	}
	return models.MatchResult{
		Success:        false,
		Message:        "Search failed, please try again",
		AvailableTaxis: []models.TaxiCandidate{},
	}
}
