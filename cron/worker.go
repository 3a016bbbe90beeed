package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servicehub/config"
	"servicehub/services/dispatch"
	"servicehub/services/tasks"
	"servicehub/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Rematcher re-runs matching for a parked booking.
type Rematcher interface {
	Rematch(ctx context.Context, bookingID string) (*dispatch.MatchResult, error)
}

// RetryScheduler enqueues dispatch retries on the asynq queue.
type RetryScheduler struct {
	client *asynq.Client
}

func NewRetryScheduler(client *asynq.Client) *RetryScheduler {
	return &RetryScheduler{client: client}
}

func (s *RetryScheduler) ScheduleRetry(ctx context.Context, payload dispatch.RetryTask, delay time.Duration) error {
	task, opts, err := tasks.NewDispatchRetryTask(payload, delay)
	if err != nil {
		return fmt.Errorf("failed to build retry task: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// Same booking and attempt already queued.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue retry for booking %s: %w", payload.BookingID, err)
	}
	utils.GetLogger().Info("Dispatch retry scheduled",
		zap.String("bookingID", payload.BookingID),
		zap.Int("attempt", payload.Attempt),
		zap.String("taskID", info.ID),
		zap.Duration("delay", delay))
	return nil
}

// RedisOpt is the asynq connection for the dispatch queue.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitRetryWorker runs the dispatch retry worker in background and returns
// the server so the caller can shut it down.
func InitRetryWorker(rematcher Rematcher) *asynq.Server {
	logger := utils.GetLogger()
	srv := asynq.NewServer(
		RedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeDispatchRetry, handleRetryTask(rematcher))

	go func() {
		logger.Info("Starting dispatch retry worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("Retry worker failed to start",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err))
			if attempts == maxAttempts {
				logger.Fatal("Retry worker: max start attempts reached")
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
	return srv
}

func handleRetryTask(rematcher Rematcher) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()
		p, err := tasks.ParseDispatchRetryTask(task)
		if err != nil {
			logger.Error("Invalid dispatch retry payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		res, err := rematcher.Rematch(ctx, p.BookingID)
		switch {
		case errors.Is(err, dispatch.ErrBookingNotFound):
			logger.Warn("Retry for unknown booking dropped", zap.String("bookingID", p.BookingID))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		case errors.Is(err, dispatch.ErrDispatchInProgress):
			logger.Info("Retry skipped, dispatch already running", zap.String("bookingID", p.BookingID))
			return nil
		case errors.Is(err, dispatch.ErrMatchAttemptFailed):
			// The coordinator already queued the next attempt.
			logger.Warn("Dispatch retry failed, next attempt scheduled", zap.String("bookingID", p.BookingID), zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		case err != nil:
			logger.Error("Dispatch retry failed", zap.String("bookingID", p.BookingID), zap.Error(err))
			return err
		}

		if res != nil {
			logger.Info("Dispatch retry finished",
				zap.String("bookingID", p.BookingID),
				zap.Int("attempt", p.Attempt),
				zap.String("outcome", string(res.Outcome)))
		}
		return nil
	}
}
