package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingRepo "servicehub/database/repository/booking"
	providerRepo "servicehub/database/repository/provider"
	"servicehub/models"
	"servicehub/services/matching"
	"servicehub/services/metrics"
	"servicehub/services/notification"
	"servicehub/utils"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Settings tunes the dispatch loop.
type Settings struct {
	OfferWindow      time.Duration
	Budget           time.Duration
	Concurrency      int64
	RetryBackoff     time.Duration
	RetryMaxAttempts int
	SearchRadiusKm   float64
}

func DefaultSettings() Settings {
	return Settings{
		OfferWindow:      30 * time.Second,
		Budget:           5 * time.Minute,
		Concurrency:      64,
		RetryBackoff:     time.Minute,
		RetryMaxAttempts: 6,
		SearchRadiusKm:   25,
	}
}

// Deps are the collaborators of a Coordinator. Store, Directory, Filter and
// Ranker are required.
type Deps struct {
	Store     bookingRepo.BookingStore
	Directory providerRepo.Directory
	Filter    *matching.CandidateFilter
	Ranker    *matching.Ranker
	Notifier  notification.OfferNotifier
	Events    EventPublisher
	Retry     RetryScheduler
	Archive   OfferArchiver
	Metrics   *metrics.Collector
	Clock     clock.Clock
	Logger    *zap.Logger
}

// Coordinator owns the booking state machine and the per-booking offer loop.
type Coordinator struct {
	store     bookingRepo.BookingStore
	directory providerRepo.Directory
	filter    *matching.CandidateFilter
	ranker    *matching.Ranker
	notifier  notification.OfferNotifier
	events    EventPublisher
	retry     RetryScheduler
	archive   OfferArchiver
	metrics   *metrics.Collector
	clock     clock.Clock
	settings  Settings
	logger    *zap.Logger
	sem       *semaphore.Weighted

	mu    sync.Mutex
	runs  map[string]*run
	inbox map[string]chan models.OfferState

	wg sync.WaitGroup
}

// run is one active offer loop. cancel is closed when the booking is
// cancelled mid-dispatch.
type run struct {
	cancel chan struct{}
	once   sync.Once
}

func (r *run) stop() {
	r.once.Do(func() { close(r.cancel) })
}

func (r *run) stopped() bool {
	select {
	case <-r.cancel:
		return true
	default:
		return false
	}
}

func NewCoordinator(deps Deps, settings Settings) (*Coordinator, error) {
	if deps.Store == nil || deps.Directory == nil || deps.Filter == nil || deps.Ranker == nil {
		return nil, fmt.Errorf("dispatch coordinator initialization error: store, directory, filter and ranker are required")
	}
	def := DefaultSettings()
	if settings.OfferWindow <= 0 {
		settings.OfferWindow = def.OfferWindow
	}
	if settings.Budget <= 0 {
		settings.Budget = def.Budget
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = def.Concurrency
	}
	if settings.RetryBackoff <= 0 {
		settings.RetryBackoff = def.RetryBackoff
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("service", "dispatch"))

	c := &Coordinator{
		store:     deps.Store,
		directory: deps.Directory,
		filter:    deps.Filter,
		ranker:    deps.Ranker,
		notifier:  deps.Notifier,
		events:    deps.Events,
		retry:     deps.Retry,
		archive:   deps.Archive,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
		settings:  settings,
		logger:    logger,
		sem:       semaphore.NewWeighted(settings.Concurrency),
		runs:      make(map[string]*run),
		inbox:     make(map[string]chan models.OfferState),
	}
	if c.notifier == nil {
		c.notifier = notification.LogNotifier{Logger: logger}
	}
	if c.events == nil {
		c.events = LogEventPublisher{Logger: logger}
	}
	if c.clock == nil {
		c.clock = clock.WallClock
	}
	return c, nil
}

// RequestMatch accepts a booking request, creates the booking in pending and
// runs matching to completion. A NoCoverage or exhausted run is not an error:
// inspect MatchResult.Outcome or MatchResult.Err.
func (c *Coordinator) RequestMatch(ctx context.Context, req models.BookingRequest) (*MatchResult, error) {
	b, err := c.createBooking(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.match(ctx, b)
}

// StartMatch creates the booking and runs matching in the background. The
// returned booking is in pending.
func (c *Coordinator) StartMatch(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	b, err := c.createBooking(ctx, req)
	if err != nil {
		return nil, err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.match(context.Background(), b.Clone()); err != nil {
			c.logger.Error("background match failed", zap.String("bookingID", b.ID), zap.Error(err))
		}
	}()
	return b, nil
}

// Rematch re-runs matching for a booking parked in pending. Bookings that
// moved on in the meantime are skipped with a nil result.
func (c *Coordinator) Rematch(ctx context.Context, bookingID string) (*MatchResult, error) {
	b, err := c.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingPending {
		c.logger.Info("skipping rematch, booking no longer pending",
			zap.String("bookingID", bookingID), zap.String("status", string(b.Status)))
		return nil, nil
	}
	return c.match(ctx, b)
}

// Get returns the current booking record.
func (c *Coordinator) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	return c.store.Get(ctx, bookingID)
}

// Wait blocks until background match runs and offer deliveries finish.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) createBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	if errs := utils.ValidateStruct(req); errs != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, utils.FormatValidationErrors(errs))
	}
	now := c.clock.Now()
	b := &models.Booking{
		ID:          uuid.NewString(),
		Request:     req,
		Status:      models.BookingPending,
		Transitions: []models.TransitionRecord{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	c.logger.Info("booking created", zap.String("bookingID", b.ID), zap.String("serviceID", req.ServiceID))
	return b, nil
}

func (c *Coordinator) register(bookingID string) (*run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.runs[bookingID]; busy {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrDispatchInProgress)
	}
	r := &run{cancel: make(chan struct{})}
	c.runs[bookingID] = r
	return r, nil
}

func (c *Coordinator) unregister(bookingID string) {
	c.mu.Lock()
	delete(c.runs, bookingID)
	c.mu.Unlock()
}

// match runs one resolve-filter-rank-dispatch cycle for a pending booking.
func (c *Coordinator) match(ctx context.Context, b *models.Booking) (*MatchResult, error) {
	r, err := c.register(b.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		c.unregister(b.ID)
		c.finalizeIfTerminal(b.ID)
	}()

	req := b.Request
	pool, err := c.directory.FindCandidates(ctx, providerRepo.CandidateQuery{
		ServiceID:     req.ServiceID,
		Area:          req.Location.Area,
		Location:      req.Location.Point,
		MaxDistanceKm: c.settings.SearchRadiusKm,
	})
	if err != nil {
		return nil, c.recordFailure(b.ID, fmt.Errorf("failed to enumerate providers for %s: %w", b.ID, err))
	}

	candidates := c.filter.Filter(req, pool)
	if len(candidates) == 0 {
		return c.park(ctx, b, models.ReasonNoCoverage, OutcomeNoCoverage, nil, nil)
	}
	ranked := c.ranker.Rank(candidates, req)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, c.recordFailure(b.ID, fmt.Errorf("waiting for a dispatch slot: %w", err))
	}
	defer c.sem.Release(1)

	if r.stopped() {
		return c.result(ctx, b.ID, OutcomeCancelled, nil, ranked)
	}

	if _, err := c.transition(ctx, b.ID, models.BookingPending, models.BookingConfirmed, bookingRepo.TransitionMeta{
		Actor:  models.ActorSystem,
		Reason: models.ReasonCandidatesFound,
	}); err != nil {
		if errors.Is(err, ErrConcurrentTransitionConflict) {
			return c.result(ctx, b.ID, OutcomeCancelled, nil, ranked)
		}
		return nil, err
	}

	return c.dispatch(ctx, b, ranked, r)
}

// dispatch offers the booking to ranked candidates one at a time until one
// accepts, the list or the budget runs out, or the booking is cancelled.
func (c *Coordinator) dispatch(ctx context.Context, b *models.Booking, ranked []matching.RankedCandidate, r *run) (*MatchResult, error) {
	start := c.clock.Now()
	deadline := start.Add(c.settings.Budget)
	done := c.metrics.DispatchStarted()
	defer func() { done(c.clock.Now().Sub(start)) }()

	var offers []models.MatchOffer
	exhaustReason := models.ReasonOffersExhausted

	for i, rc := range ranked {
		if r.stopped() {
			return c.result(ctx, b.ID, OutcomeCancelled, offers, ranked)
		}
		now := c.clock.Now()
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			exhaustReason = models.ReasonBudgetExceeded
			break
		}
		window := c.settings.OfferWindow
		if remaining < window {
			window = remaining
		}

		offer := models.MatchOffer{
			ID:         uuid.NewString(),
			BookingID:  b.ID,
			ProviderID: rc.Provider.ID,
			Rank:       i + 1,
			Score:      rc.Score,
			State:      models.OfferOffered,
			OfferedAt:  now,
			ExpiresAt:  now.Add(window),
		}
		state, err := c.offer(ctx, offer, window, r)
		offer.State = state
		offers = append(offers, offer)
		c.metrics.RecordOffer(string(state))
		if err != nil {
			return nil, c.parkAfterFailure(b.ID, err)
		}

		switch state {
		case models.OfferAccepted:
			_, err := c.transition(ctx, b.ID, models.BookingConfirmed, models.BookingAssigned, bookingRepo.TransitionMeta{
				Actor:      models.ActorProvider,
				Reason:     models.ReasonOfferAccepted,
				ProviderID: offer.ProviderID,
			})
			if err != nil {
				if errors.Is(err, ErrConcurrentTransitionConflict) {
					// Cancelled while the provider was accepting.
					return c.result(ctx, b.ID, OutcomeCancelled, offers, ranked)
				}
				return nil, err
			}
			return c.result(ctx, b.ID, OutcomeAssigned, offers, ranked)
		case models.OfferDeclined, models.OfferExpired:
			if r.stopped() {
				return c.result(ctx, b.ID, OutcomeCancelled, offers, ranked)
			}
		}
	}

	_, err := c.transition(ctx, b.ID, models.BookingConfirmed, models.BookingPending, bookingRepo.TransitionMeta{
		Actor:  models.ActorSystem,
		Reason: exhaustReason,
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentTransitionConflict) {
			return c.result(ctx, b.ID, OutcomeCancelled, offers, ranked)
		}
		return nil, err
	}
	return c.park(ctx, b, exhaustReason, OutcomeExhausted, offers, ranked)
}

// offer issues one offer and waits for its resolution. The returned state is
// always final.
func (c *Coordinator) offer(ctx context.Context, offer models.MatchOffer, window time.Duration, r *run) (models.OfferState, error) {
	inbox := make(chan models.OfferState, 1)
	c.mu.Lock()
	c.inbox[offer.ID] = inbox
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inbox, offer.ID)
		c.mu.Unlock()
	}()

	if err := c.store.SaveOffer(ctx, &offer); err != nil {
		return models.OfferExpired, fmt.Errorf("failed to save offer: %w", err)
	}
	c.logger.Info("offer issued",
		zap.String("bookingID", offer.BookingID),
		zap.String("offerID", offer.ID),
		zap.String("providerID", offer.ProviderID),
		zap.Int("rank", offer.Rank))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.notifier.NotifyOffer(nctx, offer); err != nil {
			c.logger.Warn("offer delivery failed", zap.String("offerID", offer.ID), zap.Error(err))
		}
	}()

	timer := c.clock.NewTimer(window)
	defer timer.Stop()

	select {
	case state := <-inbox:
		return state, nil
	case <-timer.Chan():
		return c.expire(context.Background(), offer.ID), nil
	case <-r.cancel:
		return c.expire(context.Background(), offer.ID), nil
	case <-ctx.Done():
		return c.expire(context.Background(), offer.ID), ctx.Err()
	}
}

// expire closes an outstanding offer. If a response won the race the
// response's state is returned instead.
func (c *Coordinator) expire(ctx context.Context, offerID string) models.OfferState {
	_, err := c.store.ResolveOffer(ctx, offerID, models.OfferOffered, models.OfferExpired, c.clock.Now())
	if err == nil {
		return models.OfferExpired
	}
	var conflict *bookingRepo.OfferConflictError
	if errors.As(err, &conflict) {
		return conflict.Actual
	}
	c.logger.Error("failed to expire offer", zap.String("offerID", offerID), zap.Error(err))
	return models.OfferExpired
}

// Respond records a provider's answer to an offer. Only the first answer for
// an offer counts; later ones get ErrOfferResolved.
func (c *Coordinator) Respond(ctx context.Context, offerID string, accept bool) (*models.MatchOffer, error) {
	current, err := c.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if current.State.IsFinal() {
		return nil, fmt.Errorf("offer %s is %s: %w", offerID, current.State, ErrOfferResolved)
	}
	now := c.clock.Now()
	if !now.Before(current.ExpiresAt) {
		state := c.expire(ctx, offerID)
		return nil, fmt.Errorf("offer %s is %s: %w", offerID, state, ErrOfferResolved)
	}
	b, err := c.store.Get(ctx, current.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingConfirmed {
		state := c.expire(ctx, offerID)
		return nil, fmt.Errorf("offer %s is %s, booking is %s: %w", offerID, state, b.Status, ErrOfferResolved)
	}

	next := models.OfferDeclined
	if accept {
		next = models.OfferAccepted
	}
	resolved, err := c.store.ResolveOffer(ctx, offerID, models.OfferOffered, next, now)
	if err != nil {
		var conflict *bookingRepo.OfferConflictError
		if errors.As(err, &conflict) {
			return nil, fmt.Errorf("offer %s is %s: %w", offerID, conflict.Actual, ErrOfferResolved)
		}
		return nil, err
	}

	c.mu.Lock()
	inbox := c.inbox[offerID]
	c.mu.Unlock()
	if inbox != nil {
		select {
		case inbox <- next:
		default:
		}
	}
	c.logger.Info("offer answered",
		zap.String("offerID", offerID),
		zap.String("bookingID", resolved.BookingID),
		zap.String("state", string(next)))
	return resolved, nil
}

// Cancel moves a booking to cancelled from any state before in_progress.
// Outstanding offers are expired before Cancel returns, and a running offer
// loop stops before its next offer.
func (c *Coordinator) Cancel(ctx context.Context, bookingID, actor string) (*models.Booking, error) {
	b, err := c.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Status.Cancellable() {
		return nil, &models.TransitionError{From: b.Status, To: models.BookingCancelled}
	}
	updated, err := c.transition(ctx, bookingID, b.Status, models.BookingCancelled, bookingRepo.TransitionMeta{
		Actor:  actor,
		Reason: models.ReasonCancelled,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	r := c.runs[bookingID]
	c.mu.Unlock()
	if r != nil {
		r.stop()
	}
	c.expireOutstanding(ctx, bookingID)
	if r == nil {
		c.finalize(ctx, updated)
	}
	return updated, nil
}

// expireOutstanding expires every offer of the booking still waiting for an
// answer.
func (c *Coordinator) expireOutstanding(ctx context.Context, bookingID string) {
	offers, err := c.store.ListOffers(ctx, bookingID)
	if err != nil {
		c.logger.Error("failed to list offers to expire", zap.String("bookingID", bookingID), zap.Error(err))
		return
	}
	now := c.clock.Now()
	for _, o := range offers {
		if o.State != models.OfferOffered {
			continue
		}
		// The offer loop may resolve or prune the same offer concurrently.
		_, err := c.store.ResolveOffer(ctx, o.ID, models.OfferOffered, models.OfferExpired, now)
		if err != nil && !errors.Is(err, ErrConcurrentTransitionConflict) && !errors.Is(err, ErrOfferNotFound) {
			c.logger.Error("failed to expire offer", zap.String("offerID", o.ID), zap.Error(err))
		}
	}
}

// signalTargets are the statuses collaborators may report.
var signalTargets = map[models.BookingStatus]bool{
	models.BookingDispatched: true,
	models.BookingInProgress: true,
	models.BookingCompleted:  true,
	models.BookingRefunded:   true,
}

// Signal applies an externally driven lifecycle step (en route, started,
// finished, refunded). Out-of-order signals fail with ErrInvalidTransition
// and leave the booking unchanged.
func (c *Coordinator) Signal(ctx context.Context, bookingID string, to models.BookingStatus, actor string) (*models.Booking, error) {
	b, err := c.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !signalTargets[to] {
		return nil, &models.TransitionError{From: b.Status, To: to}
	}
	if err := models.ValidateTransition(b.Status, to); err != nil {
		return nil, err
	}
	updated, err := c.transition(ctx, bookingID, b.Status, to, bookingRepo.TransitionMeta{
		Actor:  actor,
		Reason: models.ReasonSignal,
	})
	if err != nil {
		return nil, err
	}
	if to.IsTerminal() {
		c.finalize(ctx, updated)
	}
	return updated, nil
}

// transition is the only path to BookingStore.Transition. It stamps the
// time, logs, counts and publishes.
func (c *Coordinator) transition(ctx context.Context, bookingID string, from, to models.BookingStatus, meta bookingRepo.TransitionMeta) (*models.Booking, error) {
	meta.At = c.clock.Now()
	b, err := c.store.Transition(ctx, bookingID, from, to, meta)
	if err != nil {
		if errors.Is(err, ErrConcurrentTransitionConflict) {
			c.metrics.RecordConflict()
			c.logger.Warn("booking transition conflict",
				zap.String("bookingID", bookingID),
				zap.String("from", string(from)),
				zap.String("to", string(to)),
				zap.Error(err))
		}
		return nil, err
	}

	c.logger.Info("booking transition",
		zap.String("bookingID", bookingID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", meta.Actor),
		zap.String("reason", meta.Reason))
	c.metrics.RecordTransition(string(to))

	event := BookingEvent{
		BookingID:  bookingID,
		From:       from,
		To:         to,
		Actor:      meta.Actor,
		Reason:     meta.Reason,
		ProviderID: meta.ProviderID,
		Phase:      b.Phase(),
		At:         meta.At,
	}
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn("failed to publish booking event", zap.String("bookingID", bookingID), zap.Error(err))
	}
	return b, nil
}

// park records an unsuccessful attempt on a pending booking and schedules the
// next one.
func (c *Coordinator) park(ctx context.Context, b *models.Booking, reason string, outcome Outcome, offers []models.MatchOffer, ranked []matching.RankedCandidate) (*MatchResult, error) {
	if err := c.store.RecordAttempt(ctx, b.ID, reason, c.clock.Now()); err != nil {
		return nil, err
	}
	current, err := c.store.Get(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	c.scheduleRetry(ctx, current)
	c.metrics.RecordMatch(string(outcome))
	c.logger.Info("booking parked",
		zap.String("bookingID", b.ID),
		zap.String("reason", reason),
		zap.Int("attempts", current.MatchAttempts))
	return &MatchResult{Outcome: outcome, Booking: current, Offers: offers, Ranked: ranked}, nil
}

func (c *Coordinator) scheduleRetry(ctx context.Context, b *models.Booking) {
	if c.retry == nil {
		return
	}
	attempt := b.MatchAttempts
	if c.settings.RetryMaxAttempts > 0 && attempt >= c.settings.RetryMaxAttempts {
		c.metrics.RecordManualIntervention()
		c.logger.Warn("retry limit reached, booking needs manual intervention",
			zap.String("bookingID", b.ID), zap.Int("attempts", attempt))
		return
	}
	delay := retryDelay(c.settings.RetryBackoff, attempt)
	if err := c.retry.ScheduleRetry(ctx, RetryTask{BookingID: b.ID, Attempt: attempt + 1}, delay); err != nil {
		c.logger.Error("failed to schedule retry", zap.String("bookingID", b.ID), zap.Error(err))
	}
}

// parkAfterFailure returns a confirmed booking to pending when the loop
// could not continue (store failure, caller gone) and schedules the next
// attempt.
func (c *Coordinator) parkAfterFailure(bookingID string, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.transition(ctx, bookingID, models.BookingConfirmed, models.BookingPending, bookingRepo.TransitionMeta{
		Actor:  models.ActorSystem,
		Reason: models.ReasonDispatchFailed,
	})
	if err != nil {
		c.logger.Error("failed to park booking after dispatch failure",
			zap.String("bookingID", bookingID), zap.NamedError("cause", cause), zap.Error(err))
		return cause
	}
	return c.recordFailure(bookingID, cause)
}

// recordFailure counts a failed attempt on a pending booking and schedules
// the next one. Once the attempt is on record the returned error wraps both
// ErrMatchAttemptFailed and cause.
func (c *Coordinator) recordFailure(bookingID string, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.store.RecordAttempt(ctx, bookingID, models.ReasonDispatchFailed, c.clock.Now()); err != nil {
		c.logger.Error("failed to record attempt",
			zap.String("bookingID", bookingID), zap.NamedError("cause", cause), zap.Error(err))
		return cause
	}
	b, err := c.store.Get(ctx, bookingID)
	if err != nil {
		c.logger.Error("failed to reload booking", zap.String("bookingID", bookingID), zap.Error(err))
		return cause
	}
	c.scheduleRetry(ctx, b)
	c.metrics.RecordMatch(outcomeFailed)
	c.logger.Warn("match attempt failed, booking parked",
		zap.String("bookingID", bookingID),
		zap.Int("attempts", b.MatchAttempts),
		zap.Error(cause))
	return fmt.Errorf("%w: %w", ErrMatchAttemptFailed, cause)
}

func (c *Coordinator) result(ctx context.Context, bookingID string, outcome Outcome, offers []models.MatchOffer, ranked []matching.RankedCandidate) (*MatchResult, error) {
	b, err := c.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordMatch(string(outcome))
	return &MatchResult{Outcome: outcome, Booking: b, Offers: offers, Ranked: ranked}, nil
}

func (c *Coordinator) finalizeIfTerminal(bookingID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b, err := c.store.Get(ctx, bookingID)
	if err != nil {
		c.logger.Error("failed to reload booking", zap.String("bookingID", bookingID), zap.Error(err))
		return
	}
	if b.Status.IsTerminal() {
		c.finalize(ctx, b)
	}
}

// finalize archives a terminal booking's offer summary and prunes the
// offers. Safe to call more than once.
func (c *Coordinator) finalize(ctx context.Context, b *models.Booking) {
	if c.archive == nil {
		return
	}
	offers, err := c.store.ListOffers(ctx, b.ID)
	if err != nil {
		c.logger.Error("failed to list offers for archive", zap.String("bookingID", b.ID), zap.Error(err))
		return
	}
	summary := models.SummarizeOffers(b, offers, c.clock.Now())
	if err := c.archive.Archive(ctx, summary); err != nil {
		c.logger.Error("failed to archive offers", zap.String("bookingID", b.ID), zap.Error(err))
		return
	}
	if err := c.store.PruneOffers(ctx, b.ID); err != nil {
		c.logger.Error("failed to prune offers", zap.String("bookingID", b.ID), zap.Error(err))
	}
}
