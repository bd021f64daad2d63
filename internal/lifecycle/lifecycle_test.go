package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/notify"
	"github.com/example/taxi-dispatch/internal/storage"
)

func newFixture(t *testing.T, status models.RideStatus, driverID string) (*Service, *storage.Memory, *models.Ride) {
	t.Helper()
	mem := storage.NewMemory()
	ride := &models.Ride{
		ID:          "ride1",
		PassengerID: "p1",
		DriverID:    driverID,
		Status:      status,
		StartLocation: models.Place{
			Loc: models.Coord{Lat: -25.7545, Lon: 28.1914}, Address: "Church Square",
		},
		EndLocation: models.Place{
			Loc: models.Coord{Lat: -25.7487, Lon: 28.2380}, Address: "Hatfield Plaza",
		},
		RequestedAt: time.Now(),
	}
	if err := mem.SaveRide(context.Background(), ride); err != nil {
		t.Fatal(err)
	}
	svc := &Service{
		Rides:   mem,
		Emitter: notify.NewEmitter(mem, nil, notify.NewDebouncer(mem, 2*time.Minute), nil),
	}
	return svc, mem, ride
}

func wantDomainError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected domain error %q, got nil", msg)
	}
	if !IsDomainError(err) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if err.Error() != msg {
		t.Fatalf("expected %q, got %q", msg, err.Error())
	}
}

func TestAcceptHappyPath(t *testing.T) {
	svc, mem, _ := newFixture(t, models.StatusRequested, "d1")
	res, err := svc.AcceptRide(context.Background(), "ride1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "Ride accepted" {
		t.Fatalf("got message %q", res.Message)
	}
	ride, _ := mem.GetRide(context.Background(), "ride1")
	if ride.Status != models.StatusAccepted {
		t.Fatalf("status %s", ride.Status)
	}
	ns := mem.Notifications()
	if len(ns) != 1 || ns[0].UserID != "p1" || ns[0].Type != notify.TypeRideAccepted {
		t.Fatalf("expected passenger accept notification, got %+v", ns)
	}
}

func TestAcceptClaimsUnassignedRide(t *testing.T) {
	svc, mem, _ := newFixture(t, models.StatusRequested, "")
	if _, err := svc.AcceptRide(context.Background(), "ride1", "d9"); err != nil {
		t.Fatal(err)
	}
	ride, _ := mem.GetRide(context.Background(), "ride1")
	if ride.DriverID != "d9" {
		t.Fatalf("accepting driver should be recorded, got %q", ride.DriverID)
	}
}

func TestAcceptWrongDriver(t *testing.T) {
	svc, _, _ := newFixture(t, models.StatusRequested, "d1")
	_, err := svc.AcceptRide(context.Background(), "ride1", "d2")
	wantDomainError(t, err, "Only the assigned driver can accept this ride")
}

func TestAcceptWrongState(t *testing.T) {
	svc, _, _ := newFixture(t, models.StatusAccepted, "d1")
	_, err := svc.AcceptRide(context.Background(), "ride1", "d1")
	wantDomainError(t, err, "Ride is not pending")
}

func TestRideNotFound(t *testing.T) {
	svc, _, _ := newFixture(t, models.StatusRequested, "d1")
	_, err := svc.AcceptRide(context.Background(), "ghost", "d1")
	wantDomainError(t, err, "Ride not found")
}

func TestDeclineByNonAssignedDriver(t *testing.T) {
	svc, _, _ := newFixture(t, models.StatusRequested, "d1")
	_, err := svc.DeclineRide(context.Background(), "ride1", "d2")
	wantDomainError(t, err, "Only the assigned driver can decline this ride")
}

func TestDeclineAcceptedRideAllowed(t *testing.T) {
	svc, mem, _ := newFixture(t, models.StatusAccepted, "d1")
	if _, err := svc.DeclineRide(context.Background(), "ride1", "d1"); err != nil {
		t.Fatal(err)
	}
	ride, _ := mem.GetRide(context.Background(), "ride1")
	if ride.Status != models.StatusDeclined {
		t.Fatalf("status %s", ride.Status)
	}
}

func TestDeclineCompletedRideRejected(t *testing.T) {
	svc, _, _ := newFixture(t, models.StatusCompleted, "d1")
	_, err := svc.DeclineRide(context.Background(), "ride1", "d1")
	wantDomainError(t, err, "Ride is not pending or accepted")
}

func TestCancelByThirdParty(t *testing.T) {
	svc, _, _ := newFixture(t, models.StatusAccepted, "d1")
	_, err := svc.CancelRide(context.Background(), "ride1", "stranger")
	wantDomainError(t, err, "User is not authorized to cancel this ride")
}

func TestCancelByPassengerNotifiesDriver(t *testing.T) {
	svc, mem, _ := newFixture(t, models.StatusAccepted, "d1")
	if _, err := svc.CancelRide(context.Background(), "ride1", "p1"); err != nil {
		t.Fatal(err)
	}
	ns := mem.Notifications()
	if len(ns) != 1 || ns[0].UserID != "d1" {
		t.Fatalf("driver should be notified, got %+v", ns)
	}
	if !strings.Contains(ns[0].Message, "passenger") {
		t.Fatalf("message should name the actor, got %q", ns[0].Message)
	}
}

func TestCancelByDriverNotifiesPassenger(t *testing.T) {
	svc, mem, _ := newFixture(t, models.StatusAccepted, "d1")
	if _, err := svc.CancelRide(context.Background(), "ride1", "d1"); err != nil {
		t.Fatal(err)
	}
	ns := mem.Notifications()
	if len(ns) != 1 || ns[0].UserID != "p1" {
		t.Fatalf("passenger should be notified, got %+v", ns)
	}
	if !strings.Contains(ns[0].Message, "driver") {
		t.Fatalf("message should name the actor, got %q", ns[0].Message)
	}
}

func TestStartByDriverRejected(t *testing.T) {
	svc, _, _ := newFixture(t, models.StatusAccepted, "d1")
	_, err := svc.StartRide(context.Background(), "ride1", "d1")
	wantDomainError(t, err, "Only the passenger can start this ride")
}

func TestStartRequiresAccepted(t *testing.T) {
	svc, _, _ := newFixture(t, models.StatusRequested, "d1")
	_, err := svc.StartRide(context.Background(), "ride1", "p1")
	wantDomainError(t, err, "Ride is not accepted")
}

func TestStartRecordsTimeAndNotifiesBoth(t *testing.T) {
	svc, mem, _ := newFixture(t, models.StatusAccepted, "d1")
	fixed := time.Date(2024, 5, 10, 7, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if _, err := svc.StartRide(context.Background(), "ride1", "p1"); err != nil {
		t.Fatal(err)
	}
	ride, _ := mem.GetRide(context.Background(), "ride1")
	if ride.Status != models.StatusInProgress {
		t.Fatalf("status %s", ride.Status)
	}
	if ride.StartedAt == nil || !ride.StartedAt.Equal(fixed) {
		t.Fatalf("start time not recorded: %v", ride.StartedAt)
	}
	if len(mem.Notifications()) != 2 {
		t.Fatalf("both parties should be notified, got %d", len(mem.Notifications()))
	}
}

func TestEndOnCancelledRide(t *testing.T) {
	svc, _, _ := newFixture(t, models.StatusCancelled, "d1")
	_, err := svc.EndRide(context.Background(), "ride1", "p1")
	wantDomainError(t, err, "Ride is not in progress or started")
}

func TestEndByDriverRejected(t *testing.T) {
	svc, _, _ := newFixture(t, models.StatusInProgress, "d1")
	_, err := svc.EndRide(context.Background(), "ride1", "d1")
	wantDomainError(t, err, "Only the passenger can end this ride")
}

type fixedFare struct{ fare float64 }

func (f *fixedFare) FinalFare(ctx context.Context, ride *models.Ride) (float64, error) {
	return f.fare, nil
}

func TestEndRecordsFareAndNotifiesDriverWithAmount(t *testing.T) {
	svc, mem, _ := newFixture(t, models.StatusInProgress, "d1")
	svc.Fares = &fixedFare{fare: 42.5}

	if _, err := svc.EndRide(context.Background(), "ride1", "p1"); err != nil {
		t.Fatal(err)
	}
	ride, _ := mem.GetRide(context.Background(), "ride1")
	if ride.Status != models.StatusCompleted || ride.CompletedAt == nil {
		t.Fatalf("completion not recorded: %+v", ride)
	}
	if ride.FinalFare != 42.5 {
		t.Fatalf("fare %f", ride.FinalFare)
	}
	var driverMsg string
	for _, n := range mem.Notifications() {
		if n.UserID == "d1" {
			driverMsg = n.Message
		}
	}
	if !strings.Contains(driverMsg, "42.50") {
		t.Fatalf("driver message should include the fare, got %q", driverMsg)
	}
}

func TestEndFromLegacyStartedStatus(t *testing.T) {
	svc, mem, _ := newFixture(t, models.StatusStarted, "d1")
	if _, err := svc.EndRide(context.Background(), "ride1", "p1"); err != nil {
		t.Fatal(err)
	}
	ride, _ := mem.GetRide(context.Background(), "ride1")
	if ride.Status != models.StatusCompleted {
		t.Fatalf("status %s", ride.Status)
	}
}

type failingNotificationStore struct {
	*storage.Memory
}

func (f *failingNotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	return errors.New("notification store down")
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	mem := storage.NewMemory()
	ride := &models.Ride{
		ID: "ride1", PassengerID: "p1", DriverID: "d1",
		Status: models.StatusRequested, RequestedAt: time.Now(),
	}
	if err := mem.SaveRide(context.Background(), ride); err != nil {
		t.Fatal(err)
	}
	broken := &failingNotificationStore{Memory: mem}
	svc := &Service{
		Rides:   mem,
		Emitter: notify.NewEmitter(broken, nil, notify.NewDebouncer(broken, 2*time.Minute), nil),
	}

	if _, err := svc.AcceptRide(context.Background(), "ride1", "d1"); err != nil {
		t.Fatalf("transition must succeed despite notification failure: %v", err)
	}
	got, _ := mem.GetRide(context.Background(), "ride1")
	if got.Status != models.StatusAccepted {
		t.Fatalf("state change is the source of truth, got %s", got.Status)
	}
}
