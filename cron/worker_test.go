package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"servicehub/models"
	"servicehub/services/dispatch"
	"servicehub/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRematcher struct {
	calls []string
	res   *dispatch.MatchResult
	err   error
}

func (f *fakeRematcher) Rematch(_ context.Context, bookingID string) (*dispatch.MatchResult, error) {
	f.calls = append(f.calls, bookingID)
	return f.res, f.err
}

func retryTask(t *testing.T, bookingID string) *asynq.Task {
	t.Helper()
	task, _, err := tasks.NewDispatchRetryTask(dispatch.RetryTask{BookingID: bookingID, Attempt: 2}, time.Minute)
	require.NoError(t, err)
	return task
}

func TestHandleRetryTask_Rematches(t *testing.T) {
	f := &fakeRematcher{res: &dispatch.MatchResult{
		Outcome: dispatch.OutcomeNoCoverage,
		Booking: &models.Booking{ID: "b-1", Status: models.BookingPending},
	}}
	err := handleRetryTask(f)(context.Background(), retryTask(t, "b-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1"}, f.calls)
}

func TestHandleRetryTask_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   bool
		skipRetry bool
	}{
		{"booking gone", fmt.Errorf("b-1: %w", dispatch.ErrBookingNotFound), true, true},
		{"already running", fmt.Errorf("b-1: %w", dispatch.ErrDispatchInProgress), false, false},
		{"store down", errors.New("connection refused"), true, false},
		{"attempt recorded", fmt.Errorf("%w: connection reset", dispatch.ErrMatchAttemptFailed), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleRetryTask(&fakeRematcher{err: tt.err})(context.Background(), retryTask(t, "b-1"))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestHandleRetryTask_BadPayload(t *testing.T) {
	f := &fakeRematcher{}
	err := handleRetryTask(f)(context.Background(), asynq.NewTask(tasks.TypeDispatchRetry, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, f.calls)
}
