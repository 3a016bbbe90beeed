package bookingRepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"servicehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *MemoryBookingStore, id string) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &models.Booking{
		ID: id, Status: models.BookingPending, CreatedAt: t0, UpdatedAt: t0,
	}))
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx := context.Background()
	seed(t, s, "b1")

	err := s.Create(ctx, &models.Booking{ID: "b1"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	b, err := s.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)

	// Returned records are copies.
	b.Status = models.BookingCancelled
	again, err := s.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, again.Status)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestMemoryStore_TransitionAppendsLog(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx := context.Background()
	seed(t, s, "b1")

	steps := []struct {
		from, to models.BookingStatus
		meta     TransitionMeta
	}{
		{models.BookingPending, models.BookingConfirmed, TransitionMeta{Actor: models.ActorSystem, Reason: models.ReasonCandidatesFound, At: t0.Add(time.Second)}},
		{models.BookingConfirmed, models.BookingAssigned, TransitionMeta{Actor: models.ActorProvider, Reason: models.ReasonOfferAccepted, ProviderID: "p2", At: t0.Add(2 * time.Second)}},
		{models.BookingAssigned, models.BookingDispatched, TransitionMeta{Actor: models.ActorProvider, At: t0.Add(3 * time.Second)}},
	}
	for _, st := range steps {
		_, err := s.Transition(ctx, "b1", st.from, st.to, st.meta)
		require.NoError(t, err)
	}

	b, err := s.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingDispatched, b.Status)
	require.NotNil(t, b.ProviderID)
	assert.Equal(t, "p2", *b.ProviderID)
	require.Len(t, b.Transitions, 3)
	assert.Equal(t, models.BookingPending, b.Transitions[0].From)
	assert.Equal(t, models.ReasonOfferAccepted, b.Transitions[1].Reason)
	assert.Equal(t, t0.Add(3*time.Second), b.UpdatedAt)
}

func TestMemoryStore_TransitionConflict(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx := context.Background()
	seed(t, s, "b1")

	_, err := s.Transition(ctx, "b1", models.BookingConfirmed, models.BookingAssigned, TransitionMeta{At: t0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConcurrentTransitionConflict)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.BookingConfirmed, conflict.Expected)
	assert.Equal(t, models.BookingPending, conflict.Actual)

	b, _ := s.Get(ctx, "b1")
	assert.Empty(t, b.Transitions, "failed CAS must not touch the log")
}

func TestMemoryStore_TransitionRejectsInvalidMove(t *testing.T) {
	s := NewMemoryBookingStore()
	seed(t, s, "b1")

	_, err := s.Transition(context.Background(), "b1", models.BookingPending, models.BookingCompleted, TransitionMeta{At: t0})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = s.Transition(context.Background(), "missing", models.BookingPending, models.BookingConfirmed, TransitionMeta{At: t0})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestMemoryStore_ConcurrentCASExactlyOneWins(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx := context.Background()
	seed(t, s, "b1")

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := models.BookingConfirmed
			if i%2 == 0 {
				next = models.BookingCancelled
			}
			_, err := s.Transition(ctx, "b1", models.BookingPending, next, TransitionMeta{Actor: models.ActorSystem, At: t0})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, ErrConcurrentTransitionConflict) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, conflicts)
	b, _ := s.Get(ctx, "b1")
	assert.Len(t, b.Transitions, 1)
}

func TestMemoryStore_RecordAttempt(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx := context.Background()
	seed(t, s, "b1")

	require.NoError(t, s.RecordAttempt(ctx, "b1", models.ReasonNoCoverage, t0))
	require.NoError(t, s.RecordAttempt(ctx, "b1", models.ReasonOffersExhausted, t0))
	b, _ := s.Get(ctx, "b1")
	assert.Equal(t, 2, b.MatchAttempts)
	assert.Equal(t, models.ReasonOffersExhausted, b.LastOutcome)

	assert.ErrorIs(t, s.RecordAttempt(ctx, "nope", "x", t0), ErrBookingNotFound)
}

func TestMemoryStore_Offers(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx := context.Background()

	first := &models.MatchOffer{ID: "o1", BookingID: "b1", ProviderID: "p1", State: models.OfferOffered, OfferedAt: t0}
	second := &models.MatchOffer{ID: "o2", BookingID: "b1", ProviderID: "p2", State: models.OfferOffered, OfferedAt: t0.Add(time.Minute)}
	require.NoError(t, s.SaveOffer(ctx, second))
	require.NoError(t, s.SaveOffer(ctx, first))
	assert.ErrorIs(t, s.SaveOffer(ctx, first), ErrDuplicateID)

	expired, err := s.ResolveOffer(ctx, "o1", models.OfferOffered, models.OfferExpired, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, models.OfferExpired, expired.State)
	require.NotNil(t, expired.ResolvedAt)

	// A resolved offer is never reopened or re-resolved.
	_, err = s.ResolveOffer(ctx, "o1", models.OfferOffered, models.OfferAccepted, t0)
	var conflict *OfferConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.OfferExpired, conflict.Actual)
	_, err = s.ResolveOffer(ctx, "o1", models.OfferExpired, models.OfferOffered, t0)
	assert.Error(t, err)

	_, err = s.ResolveOffer(ctx, "missing", models.OfferOffered, models.OfferAccepted, t0)
	assert.ErrorIs(t, err, ErrOfferNotFound)

	offers, err := s.ListOffers(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "o1", offers[0].ID)
	assert.Equal(t, "o2", offers[1].ID)

	require.NoError(t, s.PruneOffers(ctx, "b1"))
	offers, err = s.ListOffers(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, offers)
	_, err = s.GetOffer(ctx, "o1")
	assert.ErrorIs(t, err, ErrOfferNotFound)
}

func TestMemoryStore_ContextCancelled(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Get(ctx, "b1")
	assert.ErrorIs(t, err, context.Canceled)
}
