package dispatch

import (
	"servicehub/models"
	"servicehub/services/matching"
)

// Outcome is how a match run ended.
type Outcome string

const (
	OutcomeAssigned   Outcome = "assigned"
	OutcomeNoCoverage Outcome = "no_coverage"
	OutcomeExhausted  Outcome = "exhausted"
	OutcomeCancelled  Outcome = "cancelled"

	// outcomeFailed only labels metrics; failed runs return an error.
	outcomeFailed = "failed"
)

// MatchResult is what RequestMatch returns. Booking is the state after the
// run; Offers are the offers made during this run in order.
type MatchResult struct {
	Outcome Outcome
	Booking *models.Booking
	Offers  []models.MatchOffer
	Ranked  []matching.RankedCandidate
}

// ProviderID is the bound provider, or "" when none was assigned.
func (r *MatchResult) ProviderID() string {
	if r == nil || r.Booking == nil || r.Booking.ProviderID == nil {
		return ""
	}
	return *r.Booking.ProviderID
}

// Err maps a non-assigned outcome onto the error taxonomy. It is nil for
// OutcomeAssigned.
func (r *MatchResult) Err() error {
	if r == nil {
		return nil
	}
	id := ""
	if r.Booking != nil {
		id = r.Booking.ID
	}
	switch r.Outcome {
	case OutcomeNoCoverage:
		return newMatchError(string(r.Outcome), id, "no provider currently available, retrying", ErrNoCandidatesAvailable)
	case OutcomeExhausted:
		return newMatchError(string(r.Outcome), id, "no provider accepted in time, retrying", ErrOfferTimeoutExhausted)
	case OutcomeCancelled:
		return newMatchError(string(r.Outcome), id, "booking was cancelled during dispatch", ErrBookingCancelled)
	default:
		return nil
	}
}
