package tasks

import (
	"encoding/json"
	"time"

	"servicehub/services/dispatch"

	"github.com/hibiken/asynq"
)

const TypeDispatchRetry = "dispatch:retry"

// NewDispatchRetryTask builds the task that re-runs matching for a parked
// booking after delay. One task per booking and attempt is kept in the queue.
func NewDispatchRetryTask(payload dispatch.RetryTask, delay time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeDispatchRetry, b)
	opts := []asynq.Option{
		asynq.ProcessIn(delay),
		asynq.TaskID(taskID(payload)),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}

// ParseDispatchRetryTask decodes a task built by NewDispatchRetryTask.
func ParseDispatchRetryTask(task *asynq.Task) (dispatch.RetryTask, error) {
	var p dispatch.RetryTask
	err := json.Unmarshal(task.Payload(), &p)
	return p, err
}

func taskID(p dispatch.RetryTask) string {
	b, _ := json.Marshal([]interface{}{TypeDispatchRetry, p.BookingID, p.Attempt})
	return string(b)
}
