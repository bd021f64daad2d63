package lifecycle

import "errors"

// DomainError is a precondition violation: expected, user-facing, and
// surfaced to the actor verbatim. Anything else coming out of this package
// is infrastructure failure.
type DomainError struct {
	Reason string
}

func (e *DomainError) Error() string { return e.Reason }

func domainErr(reason string) error { return &DomainError{Reason: reason} }

// IsDomainError reports whether err is a precondition violation rather
// than an infrastructure failure.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

var (
	ErrRideNotFound       = domainErr("Ride not found")
	ErrNotPending         = domainErr("Ride is not pending")
	ErrNotPendingAccepted = domainErr("Ride is not pending or accepted")
	ErrNotAccepted        = domainErr("Ride is not accepted")
	ErrNotInProgress      = domainErr("Ride is not in progress or started")
	ErrNotAssignedAccept  = domainErr("Only the assigned driver can accept this ride")
	ErrNotAssignedDecline = domainErr("Only the assigned driver can decline this ride")
	ErrCancelUnauthorized = domainErr("User is not authorized to cancel this ride")
	ErrCancelTerminal     = domainErr("Ride can no longer be cancelled")
	ErrNotPassengerStart  = domainErr("Only the passenger can start this ride")
	ErrNotPassengerEnd    = domainErr("Only the passenger can end this ride")
)
