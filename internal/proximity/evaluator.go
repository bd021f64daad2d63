package proximity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/taxi-dispatch/internal/eta"
	"github.com/example/taxi-dispatch/internal/geo"
	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/notify"
	"github.com/example/taxi-dispatch/internal/observability"
	"github.com/example/taxi-dispatch/internal/storage"
)

// Evaluator classifies the live distance between a ride's driver and
// passenger and emits band alerts through the debounced emitter. It is
// level-triggered: the same band re-alerts once the debounce window has
// elapsed, so a driver who loops past and comes back alerts again.
type Evaluator struct {
	Rides       storage.RideStore
	Locations   storage.LocationStore
	Emitter     *notify.Emitter
	ETAClient   eta.Client // optional routing engine
	ETACache    *eta.Cache // optional, only consulted with ETAClient
	AvgSpeedKmh float64
	Logger      *slog.Logger

	now func() time.Time
}

func (e *Evaluator) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// EvaluateByID loads a ride and evaluates it. Unknown or inactive rides
// are a no-op, not an error: the sweep races benignly with transitions.
func (e *Evaluator) EvaluateByID(ctx context.Context, rideID string) error {
	ride, err := e.Rides.GetRide(ctx, rideID)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return e.EvaluateRide(ctx, ride)
}

// EvaluateRide runs one proximity evaluation for an active ride.
func (e *Evaluator) EvaluateRide(ctx context.Context, ride *models.Ride) error {
	if !ride.Status.Active() {
		return nil
	}
	observability.RidesEvaluated.Inc()

	passLoc, passOK, err := e.Locations.Latest(ctx, ride.PassengerID)
	if err != nil {
		return fmt.Errorf("passenger location: %w", err)
	}

	if ride.DriverID != "" {
		drvLoc, drvOK, err := e.Locations.Latest(ctx, ride.DriverID)
		if err != nil {
			return fmt.Errorf("driver location: %w", err)
		}
		if drvOK && passOK {
			if err := e.evaluateParties(ctx, ride, drvLoc.Loc, passLoc.Loc); err != nil {
				return err
			}
		}
	}

	// Parallel destination check: the passenger pulling up at the drop-off.
	if passOK && (ride.Status == models.StatusInProgress || ride.Status == models.StatusStarted) {
		if geo.DistanceKm(passLoc.Loc, ride.EndLocation.Loc) <= AtStopKm {
			_, err := e.Emitter.Emit(ctx, ride.PassengerID, notify.TypeAtDestination, ride.ID,
				"Arriving at your destination",
				fmt.Sprintf("You are pulling up at %s", ride.EndLocation.Address),
				models.PriorityHigh)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Evaluator) evaluateParties(ctx context.Context, ride *models.Ride, driver, passenger models.Coord) error {
	distKm := geo.DistanceKm(driver, passenger)
	band := Classify(distKm)

	var typ, title, message string
	priority := models.PriorityHigh
	switch band {
	case BandArrived:
		typ = notify.TypeDriverArrived
		title = "Your taxi has arrived"
		message = "Your driver is here. Please head to the pickup point."
		priority = models.PriorityUrgent
	case BandNear:
		typ = notify.TypeDriverNearby
		title = "Your taxi is nearby"
		message = fmt.Sprintf("Your driver is %s away, arriving around %s",
			geo.FormatDistance(distKm), e.arrivalClock(driver, passenger, distKm))
	case BandApproaching:
		typ = notify.TypeDriverApproaching
		title = "Your taxi is approaching"
		message = fmt.Sprintf("Your driver is %s away, arriving around %s",
			geo.FormatDistance(distKm), e.arrivalClock(driver, passenger, distKm))
	default:
		return nil // far: nothing to say
	}

	_, err := e.Emitter.Emit(ctx, ride.PassengerID, typ, ride.ID, title, message, priority)
	return err
}

// arrivalClock renders the estimated arrival as a wall-clock time. The
// routing engine is preferred when wired; the naive linear estimate is the
// fallback either way.
func (e *Evaluator) arrivalClock(from, to models.Coord, distKm float64) string {
	etaMin := geo.EtaMinutes(distKm, e.AvgSpeedKmh)
	if e.ETAClient != nil {
		if e.ETACache != nil {
			if v, ok := e.ETACache.Get(from, to); ok {
				etaMin = v / 60
				return e.clock().Add(time.Duration(etaMin * float64(time.Minute))).Format("15:04")
			}
		}
		if sec, err := e.ETAClient.EstimateSeconds(from, to); err == nil {
			if e.ETACache != nil {
				e.ETACache.Set(from, to, sec)
			}
			etaMin = sec / 60
		} else if e.Logger != nil {
			e.Logger.Debug("eta lookup failed, using linear estimate", "error", err)
		}
	}
	return e.clock().Add(time.Duration(etaMin * float64(time.Minute))).Format("15:04")
}
