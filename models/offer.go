package models

import "time"

// OfferState is the state of a single offer made to a candidate.
type OfferState string

const (
	OfferOffered  OfferState = "offered"
	OfferAccepted OfferState = "accepted"
	OfferDeclined OfferState = "declined"
	OfferExpired  OfferState = "expired"
)

// IsFinal is true once the offer has been resolved. Resolved offers are never reopened.
func (s OfferState) IsFinal() bool {
	return s == OfferAccepted || s == OfferDeclined || s == OfferExpired
}

// MatchOffer is one time-bounded offer of a booking to a provider.
type MatchOffer struct {
	ID         string     `bson:"id" json:"id"`
	BookingID  string     `bson:"bookingId" json:"bookingId"`
	ProviderID string     `bson:"providerId" json:"providerId"`
	Rank       int        `bson:"rank" json:"rank"`
	Score      float64    `bson:"score" json:"score"`
	State      OfferState `bson:"state" json:"state"`
	OfferedAt  time.Time  `bson:"offeredAt" json:"offeredAt"`
	ExpiresAt  time.Time  `bson:"expiresAt" json:"expiresAt"`
	ResolvedAt *time.Time `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// OfferSummary is what survives of a booking's offers once it is terminal.
type OfferSummary struct {
	BookingID   string
	FinalStatus BookingStatus
	Offered     int
	Accepted    int
	Declined    int
	Expired     int
	ProviderID  string
	ArchivedAt  time.Time
}

// SummarizeOffers counts offers by state.
func SummarizeOffers(b *Booking, offers []MatchOffer, at time.Time) OfferSummary {
	s := OfferSummary{BookingID: b.ID, FinalStatus: b.Status, Offered: len(offers), ArchivedAt: at}
	if b.ProviderID != nil {
		s.ProviderID = *b.ProviderID
	}
	for _, o := range offers {
		switch o.State {
		case OfferAccepted:
			s.Accepted++
		case OfferDeclined:
			s.Declined++
		case OfferExpired:
			s.Expired++
		case OfferOffered:
		}
	}
	return s
}
