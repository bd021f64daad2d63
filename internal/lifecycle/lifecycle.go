package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/notify"
	"github.com/example/taxi-dispatch/internal/storage"
)

// FareEstimator produces the final fare recorded when a ride completes.
type FareEstimator interface {
	FinalFare(ctx context.Context, ride *models.Ride) (float64, error)
}

// Payments collects the final fare after completion. Best-effort: a
// payment failure never fails the transition.
type Payments interface {
	CollectFare(ctx context.Context, ride *models.Ride) error
}

// Service is the ride status state machine. Every transition validates
// actor and state, persists the ride, then fires a one-shot notification.
// The persisted state change is the source of truth; notification and
// payment failures are logged and swallowed.
type Service struct {
	Rides    storage.RideStore
	Emitter  *notify.Emitter
	Fares    FareEstimator // optional
	Payments Payments      // optional
	Logger   *slog.Logger

	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// TransitionResult is returned to the actor on a successful transition.
type TransitionResult struct {
	RideID  string `json:"ride_id"`
	Message string `json:"message"`
}

func (s *Service) getRide(ctx context.Context, rideID string) (*models.Ride, error) {
	ride, err := s.Rides.GetRide(ctx, rideID)
	if err == storage.ErrNotFound {
		return nil, ErrRideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ride %s: %w", rideID, err)
	}
	return ride, nil
}

// AcceptRide moves a requested ride to accepted. Only the assigned driver
// may accept; a ride requested without a pre-assigned driver is claimed by
// the accepting driver.
func (s *Service) AcceptRide(ctx context.Context, rideID, driverID string) (TransitionResult, error) {
	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return TransitionResult{}, err
	}
	if ride.DriverID != "" && ride.DriverID != driverID {
		return TransitionResult{}, ErrNotAssignedAccept
	}
	if ride.Status != models.StatusRequested {
		return TransitionResult{}, ErrNotPending
	}

	ride.Status = models.StatusAccepted
	ride.DriverID = driverID
	if err := s.Rides.UpdateRide(ctx, ride); err != nil {
		return TransitionResult{}, fmt.Errorf("persist accept: %w", err)
	}

	s.emit(ctx, ride.PassengerID, notify.TypeRideAccepted, ride.ID,
		"Ride accepted", "Your driver has accepted your ride request and is on the way")
	return TransitionResult{RideID: ride.ID, Message: "Ride accepted"}, nil
}

// DeclineRide lets the assigned driver decline a requested or accepted ride.
func (s *Service) DeclineRide(ctx context.Context, rideID, driverID string) (TransitionResult, error) {
	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return TransitionResult{}, err
	}
	if ride.DriverID == "" || ride.DriverID != driverID {
		return TransitionResult{}, ErrNotAssignedDecline
	}
	if ride.Status != models.StatusRequested && ride.Status != models.StatusAccepted {
		return TransitionResult{}, ErrNotPendingAccepted
	}

	ride.Status = models.StatusDeclined
	if err := s.Rides.UpdateRide(ctx, ride); err != nil {
		return TransitionResult{}, fmt.Errorf("persist decline: %w", err)
	}

	s.emit(ctx, ride.PassengerID, notify.TypeRideDeclined, ride.ID,
		"Ride declined", "Your driver declined the ride. Please search for another taxi.")
	return TransitionResult{RideID: ride.ID, Message: "Ride declined"}, nil
}

// CancelRide lets either party cancel before the trip completes. The other
// party is notified with an actor-specific message.
func (s *Service) CancelRide(ctx context.Context, rideID, actorID string) (TransitionResult, error) {
	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return TransitionResult{}, err
	}
	if actorID != ride.PassengerID && (ride.DriverID == "" || actorID != ride.DriverID) {
		return TransitionResult{}, ErrCancelUnauthorized
	}
	if ride.Status != models.StatusRequested && ride.Status != models.StatusAccepted {
		return TransitionResult{}, ErrCancelTerminal
	}

	ride.Status = models.StatusCancelled
	if err := s.Rides.UpdateRide(ctx, ride); err != nil {
		return TransitionResult{}, fmt.Errorf("persist cancel: %w", err)
	}

	if actorID == ride.PassengerID {
		if ride.DriverID != "" {
			s.emit(ctx, ride.DriverID, notify.TypeRideCancelled, ride.ID,
				"Ride cancelled", "The passenger cancelled this ride")
		}
	} else {
		s.emit(ctx, ride.PassengerID, notify.TypeRideCancelled, ride.ID,
			"Ride cancelled", "Your driver cancelled the ride. Please search for another taxi.")
	}
	return TransitionResult{RideID: ride.ID, Message: "Ride cancelled"}, nil
}

// StartRide is invoked by the passenger once they board.
func (s *Service) StartRide(ctx context.Context, rideID, passengerID string) (TransitionResult, error) {
	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return TransitionResult{}, err
	}
	if passengerID != ride.PassengerID {
		return TransitionResult{}, ErrNotPassengerStart
	}
	if ride.Status != models.StatusAccepted {
		return TransitionResult{}, ErrNotAccepted
	}

	now := s.clock()
	ride.Status = models.StatusInProgress
	ride.StartedAt = &now
	if err := s.Rides.UpdateRide(ctx, ride); err != nil {
		return TransitionResult{}, fmt.Errorf("persist start: %w", err)
	}

	s.emit(ctx, ride.PassengerID, notify.TypeRideStarted, ride.ID,
		"Ride started", fmt.Sprintf("Your trip to %s is underway", ride.EndLocation.Address))
	if ride.DriverID != "" {
		s.emit(ctx, ride.DriverID, notify.TypeRideStarted, ride.ID,
			"Ride started", "The passenger has boarded and the trip is underway")
	}
	return TransitionResult{RideID: ride.ID, Message: "Ride started"}, nil
}

// EndRide is invoked by the passenger at drop-off. It records the
// completion time and the final fare, then collects payment best-effort.
func (s *Service) EndRide(ctx context.Context, rideID, passengerID string) (TransitionResult, error) {
	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return TransitionResult{}, err
	}
	if passengerID != ride.PassengerID {
		return TransitionResult{}, ErrNotPassengerEnd
	}
	switch ride.Status {
	case models.StatusAccepted, models.StatusStarted, models.StatusInProgress:
	default:
		return TransitionResult{}, ErrNotInProgress
	}

	now := s.clock()
	ride.Status = models.StatusCompleted
	ride.CompletedAt = &now
	if s.Fares != nil {
		if fare, err := s.Fares.FinalFare(ctx, ride); err == nil {
			ride.FinalFare = fare
		} else if s.Logger != nil {
			s.Logger.Warn("fare estimate failed, keeping recorded fare", "ride_id", ride.ID, "error", err)
		}
	}
	if err := s.Rides.UpdateRide(ctx, ride); err != nil {
		return TransitionResult{}, fmt.Errorf("persist end: %w", err)
	}

	s.emit(ctx, ride.PassengerID, notify.TypeRideCompleted, ride.ID,
		"Ride completed", fmt.Sprintf("You have arrived at %s. Thanks for riding!", ride.EndLocation.Address))
	if ride.DriverID != "" {
		s.emit(ctx, ride.DriverID, notify.TypeRideCompleted, ride.ID,
			"Ride completed", fmt.Sprintf("Trip complete. Fare: R%.2f", ride.FinalFare))
	}

	if s.Payments != nil {
		if err := s.Payments.CollectFare(ctx, ride); err != nil && s.Logger != nil {
			s.Logger.Warn("fare collection failed", "ride_id", ride.ID, "error", err)
		}
	}
	return TransitionResult{RideID: ride.ID, Message: "Ride completed"}, nil
}

// emit sends a one-shot transition notification. Failures never roll back
// the transition.
func (s *Service) emit(ctx context.Context, userID, typ, rideID, title, message string) {
	if s.Emitter == nil {
		return
	}
	if _, err := s.Emitter.Emit(ctx, userID, typ, rideID, title, message, models.PriorityHigh); err != nil && s.Logger != nil {
		s.Logger.Warn("transition notification failed", "user_id", userID, "type", typ, "ride_id", rideID, "error", err)
	}
}
