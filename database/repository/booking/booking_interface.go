package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servicehub/models"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrOfferNotFound   = errors.New("offer not found")
	ErrDuplicateID     = errors.New("record with this id already exists")

	// ErrConcurrentTransitionConflict means the record was not in the status
	// the caller last observed. The caller must re-read before deciding again.
	ErrConcurrentTransitionConflict = errors.New("concurrent transition conflict")
)

// ConflictError reports a failed compare-and-set on a booking.
type ConflictError struct {
	BookingID string
	Expected  models.BookingStatus
	Actual    models.BookingStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking %s: expected status %s, found %s", e.BookingID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrentTransitionConflict }

// OfferConflictError reports a failed compare-and-set on an offer.
type OfferConflictError struct {
	OfferID  string
	Expected models.OfferState
	Actual   models.OfferState
}

func (e *OfferConflictError) Error() string {
	return fmt.Sprintf("offer %s: expected state %s, found %s", e.OfferID, e.Expected, e.Actual)
}

func (e *OfferConflictError) Unwrap() error { return ErrConcurrentTransitionConflict }

// TransitionMeta is recorded in the transition log alongside the status change.
type TransitionMeta struct {
	Actor  string
	Reason string
	// ProviderID is bound on the booking when moving to assigned.
	ProviderID string
	At         time.Time
}

// BookingStore is the authoritative record of bookings and their offers.
// Every status change is a single compare-and-set that also appends to the
// transition log.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	Get(ctx context.Context, id string) (*models.Booking, error)
	// Transition moves the booking from expected to next. It fails with a
	// *ConflictError when the stored status is not expected, and with a
	// *models.TransitionError when the state machine forbids the move.
	Transition(ctx context.Context, id string, expected, next models.BookingStatus, meta TransitionMeta) (*models.Booking, error)
	// RecordAttempt counts one match attempt and remembers its outcome.
	RecordAttempt(ctx context.Context, id, outcome string, at time.Time) error

	SaveOffer(ctx context.Context, offer *models.MatchOffer) error
	GetOffer(ctx context.Context, id string) (*models.MatchOffer, error)
	// ResolveOffer moves an offer from expected to next with the same
	// compare-and-set semantics as Transition.
	ResolveOffer(ctx context.Context, id string, expected, next models.OfferState, at time.Time) (*models.MatchOffer, error)
	ListOffers(ctx context.Context, bookingID string) ([]models.MatchOffer, error)
	// PruneOffers drops the booking's offers once they have been archived.
	PruneOffers(ctx context.Context, bookingID string) error
}

func transitionRecord(from, to models.BookingStatus, meta TransitionMeta) models.TransitionRecord {
	return models.TransitionRecord{
		From:       from,
		To:         to,
		At:         meta.At,
		Actor:      meta.Actor,
		Reason:     meta.Reason,
		ProviderID: meta.ProviderID,
	}
}

func validateOfferMove(id string, expected, next models.OfferState) error {
	if expected.IsFinal() || !next.IsFinal() {
		return fmt.Errorf("offer %s: cannot move from %s to %s", id, expected, next)
	}
	return nil
}
