package bookingRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"servicehub/models"
)

// MemoryBookingStore keeps bookings in process memory. A single mutex makes
// every compare-and-set indivisible.
type MemoryBookingStore struct {
	mu            sync.Mutex
	bookings      map[string]*models.Booking
	offers        map[string]*models.MatchOffer
	bookingOffers map[string][]string
}

func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{
		bookings:      make(map[string]*models.Booking),
		offers:        make(map[string]*models.MatchOffer),
		bookingOffers: make(map[string][]string),
	}
}

func (s *MemoryBookingStore) Create(ctx context.Context, booking *models.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bookings[booking.ID]; exists {
		return fmt.Errorf("booking %s: %w", booking.ID, ErrDuplicateID)
	}
	s.bookings[booking.ID] = booking.Clone()
	return nil
}

func (s *MemoryBookingStore) Get(ctx context.Context, id string) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, ErrBookingNotFound)
	}
	return b.Clone(), nil
}

func (s *MemoryBookingStore) Transition(ctx context.Context, id string, expected, next models.BookingStatus, meta TransitionMeta) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := models.ValidateTransition(expected, next); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, ErrBookingNotFound)
	}
	if b.Status != expected {
		return nil, &ConflictError{BookingID: id, Expected: expected, Actual: b.Status}
	}
	b.Status = next
	b.UpdatedAt = meta.At
	if next == models.BookingAssigned && meta.ProviderID != "" {
		pid := meta.ProviderID
		b.ProviderID = &pid
	}
	b.Transitions = append(b.Transitions, transitionRecord(expected, next, meta))
	return b.Clone(), nil
}

func (s *MemoryBookingStore) RecordAttempt(ctx context.Context, id, outcome string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, ErrBookingNotFound)
	}
	b.MatchAttempts++
	b.LastOutcome = outcome
	b.UpdatedAt = at
	return nil
}

func (s *MemoryBookingStore) SaveOffer(ctx context.Context, offer *models.MatchOffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.offers[offer.ID]; exists {
		return fmt.Errorf("offer %s: %w", offer.ID, ErrDuplicateID)
	}
	cp := *offer
	s.offers[offer.ID] = &cp
	s.bookingOffers[offer.BookingID] = append(s.bookingOffers[offer.BookingID], offer.ID)
	return nil
}

func (s *MemoryBookingStore) GetOffer(ctx context.Context, id string) (*models.MatchOffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, fmt.Errorf("offer %s: %w", id, ErrOfferNotFound)
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryBookingStore) ResolveOffer(ctx context.Context, id string, expected, next models.OfferState, at time.Time) (*models.MatchOffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateOfferMove(id, expected, next); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, fmt.Errorf("offer %s: %w", id, ErrOfferNotFound)
	}
	if o.State != expected {
		return nil, &OfferConflictError{OfferID: id, Expected: expected, Actual: o.State}
	}
	o.State = next
	resolved := at
	o.ResolvedAt = &resolved
	cp := *o
	return &cp, nil
}

func (s *MemoryBookingStore) ListOffers(ctx context.Context, bookingID string) ([]models.MatchOffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MatchOffer
	for _, id := range s.bookingOffers[bookingID] {
		out = append(out, *s.offers[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OfferedAt.Before(out[j].OfferedAt) })
	return out, nil
}

func (s *MemoryBookingStore) PruneOffers(ctx context.Context, bookingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.bookingOffers[bookingID] {
		delete(s.offers, id)
	}
	delete(s.bookingOffers, bookingID)
	return nil
}
