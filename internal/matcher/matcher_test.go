package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/example/taxi-dispatch/internal/models"
)

var (
	central  = models.Coord{Lat: -25.7545, Lon: 28.1914}
	hatfield = models.Coord{Lat: -25.7487, Lon: 28.2380}
)

type fakeRoutes struct {
	routes []*models.Route
	err    error
}

func (f *fakeRoutes) ActiveRoutes(ctx context.Context) ([]*models.Route, error) {
	return f.routes, f.err
}

type fakeDrivers struct{ byRoute map[string][]models.Driver }

func (f *fakeDrivers) DriversByRoute(ctx context.Context, routeID string) ([]models.Driver, error) {
	return f.byRoute[routeID], nil
}

type fakeLocations struct{ samples map[string]models.LocationSample }

func (f *fakeLocations) Latest(ctx context.Context, userID string) (models.LocationSample, bool, error) {
	s, ok := f.samples[userID]
	return s, ok, nil
}

func (f *fakeLocations) Upsert(ctx context.Context, s models.LocationSample) error {
	f.samples[s.UserID] = s
	return nil
}

func centralHatfieldRoute() *models.Route {
	return &models.Route{
		ID: "r1", Name: "CBD - Hatfield", Fare: 15, TaxiAssociation: "PTA", Active: true,
		Stops: []models.Stop{
			{ID: "s1", Name: "Central", Loc: central, Order: 1},
			{ID: "s2", Name: "Hatfield", Loc: hatfield, Order: 2},
		},
	}
}

func newService(routes *fakeRoutes, drivers *fakeDrivers, locs *fakeLocations) *Service {
	return &Service{Routes: routes, Drivers: drivers, Locations: locs, AvgSpeedKmh: 30}
}

func TestNoActiveRoutes(t *testing.T) {
	s := newService(&fakeRoutes{}, &fakeDrivers{}, &fakeLocations{})
	res := s.FindTaxis(context.Background(), Query{Origin: central, Destination: hatfield, MaxOriginKm: 1, MaxDestKm: 1, MaxTaxiKm: 5, MaxResults: 10})
	if !res.Success {
		t.Fatal("empty catalogue is not a failure")
	}
	if len(res.AvailableTaxis) != 0 {
		t.Fatalf("expected no taxis, got %d", len(res.AvailableTaxis))
	}
	if !strings.Contains(res.Message, "No taxi routes found") {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestSingleDriverScenario(t *testing.T) {
	routes := &fakeRoutes{routes: []*models.Route{centralHatfieldRoute()}}
	drivers := &fakeDrivers{byRoute: map[string][]models.Driver{
		"r1": {{ID: "d1", Name: "Sipho", AssignedRoute: "r1", Rating: 4.8, VehicleReg: "ABC 123 GP"}},
	}}
	locs := &fakeLocations{samples: map[string]models.LocationSample{
		"d1": {UserID: "d1", Loc: central, Role: "driver"},
	}}
	s := newService(routes, drivers, locs)

	res := s.FindTaxis(context.Background(), Query{Origin: central, Destination: hatfield, MaxOriginKm: 1, MaxDestKm: 1, MaxTaxiKm: 5, MaxResults: 10})
	if !res.Success || len(res.AvailableTaxis) != 1 {
		t.Fatalf("expected exactly one taxi, got %+v", res)
	}
	c := res.AvailableTaxis[0]
	if c.DriverID != "d1" {
		t.Fatalf("wrong driver %s", c.DriverID)
	}
	want := 0.6*c.RouteInfo.OriginProximityKm + 0.4*c.RouteInfo.DestProximityKm
	if math.Abs(c.RouteInfo.TotalScore-want) > 1e-12 {
		t.Fatalf("score %f != weighted %f", c.RouteInfo.TotalScore, want)
	}
	if res.TotalTaxisFound != 1 || res.RoutesConsidered != 1 {
		t.Fatalf("counts wrong: %+v", res)
	}
}

func TestReversedQueryFindsNothing(t *testing.T) {
	routes := &fakeRoutes{routes: []*models.Route{centralHatfieldRoute()}}
	drivers := &fakeDrivers{byRoute: map[string][]models.Driver{
		"r1": {{ID: "d1", AssignedRoute: "r1"}},
	}}
	locs := &fakeLocations{samples: map[string]models.LocationSample{
		"d1": {UserID: "d1", Loc: central},
	}}
	s := newService(routes, drivers, locs)

	res := s.FindTaxis(context.Background(), Query{Origin: hatfield, Destination: central, MaxOriginKm: 1, MaxDestKm: 1, MaxTaxiKm: 5, MaxResults: 10})
	if !res.Success || len(res.AvailableTaxis) != 0 {
		t.Fatalf("reversed query must match nothing, got %+v", res)
	}
}

func TestTruncationReportsTrueTotal(t *testing.T) {
	routes := &fakeRoutes{routes: []*models.Route{centralHatfieldRoute()}}
	drv := make([]models.Driver, 0, 15)
	locs := &fakeLocations{samples: map[string]models.LocationSample{}}
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("d%02d", i)
		drv = append(drv, models.Driver{ID: id, AssignedRoute: "r1"})
		locs.samples[id] = models.LocationSample{UserID: id, Loc: central}
	}
	drivers := &fakeDrivers{byRoute: map[string][]models.Driver{"r1": drv}}
	s := newService(routes, drivers, locs)

	res := s.FindTaxis(context.Background(), Query{Origin: central, Destination: hatfield, MaxOriginKm: 1, MaxDestKm: 1, MaxTaxiKm: 5, MaxResults: 5})
	if len(res.AvailableTaxis) != 5 {
		t.Fatalf("expected page of 5, got %d", len(res.AvailableTaxis))
	}
	if res.TotalTaxisFound != 15 {
		t.Fatalf("expected true total 15, got %d", res.TotalTaxisFound)
	}
}

func TestCloserDriverWinsTie(t *testing.T) {
	routes := &fakeRoutes{routes: []*models.Route{centralHatfieldRoute()}}
	nearCentral := models.Coord{Lat: central.Lat + 0.001, Lon: central.Lon}
	farCentral := models.Coord{Lat: central.Lat + 0.02, Lon: central.Lon}
	drivers := &fakeDrivers{byRoute: map[string][]models.Driver{
		"r1": {{ID: "far", AssignedRoute: "r1"}, {ID: "near", AssignedRoute: "r1"}},
	}}
	locs := &fakeLocations{samples: map[string]models.LocationSample{
		"far":  {UserID: "far", Loc: farCentral},
		"near": {UserID: "near", Loc: nearCentral},
	}}
	s := newService(routes, drivers, locs)

	res := s.FindTaxis(context.Background(), Query{Origin: central, Destination: hatfield, MaxOriginKm: 1, MaxDestKm: 1, MaxTaxiKm: 5, MaxResults: 10})
	if len(res.AvailableTaxis) != 2 {
		t.Fatalf("expected 2 taxis, got %d", len(res.AvailableTaxis))
	}
	if res.AvailableTaxis[0].DriverID != "near" {
		t.Fatalf("closer driver should rank first, got %s", res.AvailableTaxis[0].DriverID)
	}
}

func TestDriverOutsideTaxiRadiusSkipped(t *testing.T) {
	routes := &fakeRoutes{routes: []*models.Route{centralHatfieldRoute()}}
	drivers := &fakeDrivers{byRoute: map[string][]models.Driver{
		"r1": {{ID: "d1", AssignedRoute: "r1"}},
	}}
	locs := &fakeLocations{samples: map[string]models.LocationSample{
		"d1": {UserID: "d1", Loc: models.Coord{Lat: -26.2041, Lon: 28.0473}}, // Johannesburg
	}}
	s := newService(routes, drivers, locs)

	res := s.FindTaxis(context.Background(), Query{Origin: central, Destination: hatfield, MaxOriginKm: 1, MaxDestKm: 1, MaxTaxiKm: 5, MaxResults: 10})
	if len(res.AvailableTaxis) != 0 || res.TotalTaxisFound != 0 {
		t.Fatalf("driver far from pickup must be skipped, got %+v", res)
	}
}

func TestStoreFailureIsConverted(t *testing.T) {
	s := newService(&fakeRoutes{err: errors.New("db down")}, &fakeDrivers{}, &fakeLocations{})
	res := s.FindTaxis(context.Background(), Query{Origin: central, Destination: hatfield, MaxOriginKm: 1, MaxDestKm: 1, MaxTaxiKm: 5})
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Message == "" {
		t.Fatal("failure result needs a caller-renderable message")
	}
}
