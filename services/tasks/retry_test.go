package tasks

import (
	"testing"
	"time"

	"servicehub/services/dispatch"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDispatchRetryTask(t *testing.T) {
	payload := dispatch.RetryTask{BookingID: "b-1", Attempt: 3}
	task, opts, err := NewDispatchRetryTask(payload, 4*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, TypeDispatchRetry, task.Type())

	byType := map[asynq.OptionType]interface{}{}
	for _, o := range opts {
		byType[o.Type()] = o.Value()
	}
	assert.Equal(t, 4*time.Minute, byType[asynq.ProcessInOpt])
	assert.Equal(t, 3, byType[asynq.MaxRetryOpt])

	decoded, err := ParseDispatchRetryTask(task)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestNewDispatchRetryTask_IDPerAttempt(t *testing.T) {
	id := func(attempt int) interface{} {
		_, opts, err := NewDispatchRetryTask(dispatch.RetryTask{BookingID: "b-1", Attempt: attempt}, time.Minute)
		require.NoError(t, err)
		for _, o := range opts {
			if o.Type() == asynq.TaskIDOpt {
				return o.Value()
			}
		}
		t.Fatal("no task id option")
		return nil
	}
	assert.Equal(t, id(2), id(2))
	assert.NotEqual(t, id(2), id(3))
}
