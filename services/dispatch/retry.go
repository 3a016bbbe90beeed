package dispatch

import (
	"context"
	"time"

	"servicehub/models"
)

// maxRetryDelay caps the exponential backoff.
const maxRetryDelay = time.Hour

// RetryTask asks for another match run on a parked booking.
type RetryTask struct {
	BookingID string `json:"bookingId"`
	Attempt   int    `json:"attempt"`
}

// RetryScheduler runs RetryTask after delay. Implementations call
// Coordinator.Rematch when the task fires.
type RetryScheduler interface {
	ScheduleRetry(ctx context.Context, task RetryTask, delay time.Duration) error
}

// OfferArchiver keeps the per-booking offer summary once offers are pruned.
type OfferArchiver interface {
	Archive(ctx context.Context, summary models.OfferSummary) error
}

// retryDelay is base * 2^(attempt-1), capped at maxRetryDelay.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}
