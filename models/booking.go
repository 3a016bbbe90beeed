package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned for a status change the state machine does not allow.
var ErrInvalidTransition = errors.New("invalid booking transition")

// TransitionError names the rejected transition.
type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("booking cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingAssigned   BookingStatus = "assigned"
	BookingDispatched BookingStatus = "dispatched"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
	BookingRefunded   BookingStatus = "refunded"
)

// bookingTransitions is the full state machine. Statuses missing from the map
// are not valid statuses.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:    {BookingConfirmed, BookingCancelled},
	BookingConfirmed:  {BookingAssigned, BookingPending, BookingCancelled},
	BookingAssigned:   {BookingDispatched, BookingCancelled},
	BookingDispatched: {BookingInProgress, BookingCancelled},
	BookingInProgress: {BookingCompleted},
	BookingCompleted:  {BookingRefunded},
	BookingCancelled:  {BookingRefunded},
	BookingRefunded:   {},
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown booking status %q", s)
	}
	return st, nil
}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// IsTerminal is true for completed, cancelled and refunded. Completed and
// cancelled still accept a refund follow-up.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingCompleted, BookingCancelled, BookingRefunded:
		return true
	case BookingPending, BookingConfirmed, BookingAssigned, BookingDispatched, BookingInProgress:
		return false
	default:
		return false
	}
}

// Cancellable is true for every state before in_progress.
func (s BookingStatus) Cancellable() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingAssigned, BookingDispatched:
		return true
	default:
		return false
	}
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError when from cannot move to to.
func ValidateTransition(from, to BookingStatus) error {
	if !from.CanTransitionTo(to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Actors recorded on transitions.
const (
	ActorSystem   = "system"
	ActorCustomer = "customer"
	ActorProvider = "provider"
	ActorOps      = "ops"
)

// Reasons recorded on transitions and match attempts.
const (
	ReasonCandidatesFound = "candidates_found"
	ReasonOfferAccepted   = "offer_accepted"
	ReasonOffersExhausted = "offers_exhausted"
	ReasonBudgetExceeded  = "dispatch_budget_exceeded"
	ReasonNoCoverage      = "no_coverage"
	ReasonCancelled       = "cancel_requested"
	ReasonSignal          = "external_signal"
	ReasonDispatchFailed  = "dispatch_failed"
)

// TransitionRecord is one entry of a booking's append-only transition log.
type TransitionRecord struct {
	From       BookingStatus `bson:"from" json:"from"`
	To         BookingStatus `bson:"to" json:"to"`
	At         time.Time     `bson:"at" json:"at"`
	Actor      string        `bson:"actor" json:"actor"`
	Reason     string        `bson:"reason,omitempty" json:"reason,omitempty"`
	ProviderID string        `bson:"providerId,omitempty" json:"providerId,omitempty"`
}

// Location is where the customer wants the service performed.
type Location struct {
	Area  string   `bson:"area" json:"area,omitempty"`
	Point GeoPoint `bson:"point" json:"point"`
}

// BookingRequest is the unit of work entering the matching core.
type BookingRequest struct {
	CustomerID  string    `bson:"customerId" json:"customerId" validate:"required"`
	ServiceID   string    `bson:"serviceId" json:"serviceId" validate:"required"`
	WindowStart time.Time `bson:"windowStart" json:"windowStart" validate:"required"`
	WindowEnd   time.Time `bson:"windowEnd" json:"windowEnd" validate:"required,gtfield=WindowStart"`
	Location    Location  `bson:"location" json:"location"`
	MinRating   float64   `bson:"minRating,omitempty" json:"minRating,omitempty" validate:"gte=0,lte=5"`
}

func (r BookingRequest) Window() Interval {
	return Interval{Start: r.WindowStart, End: r.WindowEnd}
}

// Booking is the authoritative booking record.
type Booking struct {
	ID            string             `bson:"id" json:"id"`
	Request       BookingRequest     `bson:"request" json:"request"`
	Status        BookingStatus      `bson:"status" json:"status"`
	ProviderID    *string            `bson:"providerId,omitempty" json:"providerId,omitempty"`
	Transitions   []TransitionRecord `bson:"transitions" json:"transitions"`
	MatchAttempts int                `bson:"matchAttempts" json:"matchAttempts"`
	LastOutcome   string             `bson:"lastOutcome,omitempty" json:"lastOutcome,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy safe to hand out of a store.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	if b.ProviderID != nil {
		id := *b.ProviderID
		c.ProviderID = &id
	}
	c.Transitions = append([]TransitionRecord(nil), b.Transitions...)
	if b.Request.Location.Point.Coordinates != nil {
		c.Request.Location.Point.Coordinates = append([]float64(nil), b.Request.Location.Point.Coordinates...)
	}
	return &c
}

// Customer-facing phases.
const (
	PhaseSearching = "searching_for_provider"
	PhaseRetrying  = "no_provider_available_retrying"
	PhaseAssigned  = "provider_assigned"
	PhaseEnRoute   = "provider_en_route"
	PhaseActive    = "in_progress"
	PhaseDone      = "completed"
	PhaseCancelled = "cancelled"
	PhaseRefunded  = "refunded"
)

// Phase maps the booking onto what the customer is shown.
func (b *Booking) Phase() string {
	switch b.Status {
	case BookingPending:
		if b.LastOutcome == ReasonNoCoverage || b.LastOutcome == ReasonOffersExhausted || b.LastOutcome == ReasonBudgetExceeded ||
			b.LastOutcome == ReasonDispatchFailed {
			return PhaseRetrying
		}
		return PhaseSearching
	case BookingConfirmed:
		return PhaseSearching
	case BookingAssigned:
		return PhaseAssigned
	case BookingDispatched:
		return PhaseEnRoute
	case BookingInProgress:
		return PhaseActive
	case BookingCompleted:
		return PhaseDone
	case BookingCancelled:
		return PhaseCancelled
	case BookingRefunded:
		return PhaseRefunded
	default:
		return PhaseSearching
	}
}
