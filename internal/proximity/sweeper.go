package proximity

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/taxi-dispatch/internal/observability"
	"github.com/example/taxi-dispatch/internal/storage"
)

// DefaultSweepInterval is how often the periodic sweep enumerates active
// rides. The sweep is O(active rides); fine at expected scale.
const DefaultSweepInterval = 30 * time.Second

// Sweeper drives the evaluator on a fixed period. RunOnce is exposed so an
// explicit client-triggered tick (or a test) can single-step the sweep
// without waiting on the wall clock.
type Sweeper struct {
	Rides    storage.RideStore
	Eval     *Evaluator
	Interval time.Duration
	Logger   *slog.Logger
}

// Run blocks until ctx is cancelled, sweeping every Interval.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil && s.Logger != nil {
				s.Logger.Error("proximity sweep failed", "error", err)
			}
		}
	}
}

// RunOnce evaluates every active ride. A ride that fails to evaluate is
// logged and skipped; the rest of the sweep continues and the ride is
// retried on the next tick.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	observability.ProximitySweeps.Inc()
	rides, err := s.Rides.ActiveRides(ctx)
	if err != nil {
		return err
	}
	for _, ride := range rides {
		if err := s.Eval.EvaluateRide(ctx, ride); err != nil && s.Logger != nil {
			s.Logger.Warn("ride evaluation failed", "ride_id", ride.ID, "error", err)
		}
	}
	return nil
}
