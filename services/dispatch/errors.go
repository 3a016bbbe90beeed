package dispatch

import (
	"errors"
	"fmt"

	bookingRepo "servicehub/database/repository/booking"
	"servicehub/models"
	"servicehub/services/availability"
)

var (
	// ErrNoCandidatesAvailable: nothing qualified. The booking stays pending
	// and a retry is scheduled.
	ErrNoCandidatesAvailable = errors.New("no candidates available")
	// ErrOfferTimeoutExhausted: every candidate declined or let the offer
	// expire. The booking is back in pending.
	ErrOfferTimeoutExhausted = errors.New("all offers declined or expired")
	ErrBookingCancelled      = errors.New("booking cancelled")
	ErrOfferResolved         = errors.New("offer already resolved")
	ErrDispatchInProgress    = errors.New("dispatch already running for booking")
	ErrInvalidRequest        = errors.New("invalid booking request")
	// ErrMatchAttemptFailed: the run broke off on an infrastructure error.
	// The attempt is recorded and the next one scheduled.
	ErrMatchAttemptFailed = errors.New("match attempt failed")

	ErrConcurrentTransitionConflict = bookingRepo.ErrConcurrentTransitionConflict
	ErrInvalidTransition            = models.ErrInvalidTransition
	ErrDataIntegrity                = availability.ErrDataIntegrity
	ErrBookingNotFound              = bookingRepo.ErrBookingNotFound
	ErrOfferNotFound                = bookingRepo.ErrOfferNotFound
)

// MatchError carries a stable code for callers that surface match outcomes
// to customers.
type MatchError struct {
	Code      string
	BookingID string
	Message   string
	Err       error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *MatchError) Unwrap() error { return e.Err }

func newMatchError(code, bookingID, msg string, err error) error {
	return &MatchError{Code: code, BookingID: bookingID, Message: msg, Err: err}
}
