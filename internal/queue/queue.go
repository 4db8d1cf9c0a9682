// Package queue enqueues and processes background tasks on asynq.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task represents a job to be processed asynchronously.
type Task struct {
	Kind           string
	Payload        []byte
	IdempotencyKey string
	MaxAttempts    int
	Delay          time.Duration
}

// Enqueuer hands tasks to the background worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, t Task) error
}

// TaskClient is the subset of *asynq.Client used by Client.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues tasks on Redis through asynq.
type Client struct {
	C     TaskClient
	Queue string
}

// Enqueue inserts the task into the queue. A task with an idempotency key is
// enqueued at most once while asynq retains it.
func (c Client) Enqueue(ctx context.Context, t Task) error {
	if c.C == nil {
		return errors.New("queue: client not configured")
	}
	task, opts, err := build(t)
	if err != nil {
		return err
	}
	if c.Queue != "" {
		opts = append(opts, asynq.Queue(c.Queue))
	}
	_, err = c.C.EnqueueContext(ctx, task, opts...)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
		TasksEnqueuedTotal.WithLabelValues(t.Kind, "duplicate").Inc()
		return nil
	case err != nil:
		TasksEnqueuedTotal.WithLabelValues(t.Kind, "error").Inc()
		return fmt.Errorf("queue: enqueue %s: %w", t.Kind, err)
	}
	TasksEnqueuedTotal.WithLabelValues(t.Kind, "ok").Inc()
	return nil
}

func build(t Task) (*asynq.Task, []asynq.Option, error) {
	kind := sanitizeKind(t.Kind)
	if kind == "" {
		return nil, nil, errors.New("queue: task kind is required")
	}
	attempts := t.MaxAttempts
	if attempts <= 0 {
		attempts = 10
	}
	opts := []asynq.Option{asynq.MaxRetry(attempts)}
	if t.IdempotencyKey != "" {
		opts = append(opts, asynq.TaskID(kind+":"+t.IdempotencyKey))
	}
	if t.Delay > 0 {
		opts = append(opts, asynq.ProcessIn(t.Delay))
	}
	return asynq.NewTask(kind, t.Payload), opts, nil
}

func sanitizeKind(kind string) string {
	for i := 0; i < len(kind); i++ {
		c := kind[i]
		if c >= 'a' && c <= 'z' {
			continue
		}
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '-' || c == '_' || c == ':' {
			continue
		}
		return ""
	}
	return kind
}

// Inline runs tasks synchronously on the calling goroutine. It stands in
// for the worker when Redis is not configured.
type Inline struct {
	Handler asynq.Handler
}

// Enqueue implements Enqueuer. Delay and retries are not honoured.
func (i Inline) Enqueue(ctx context.Context, t Task) error {
	if i.Handler == nil {
		return errors.New("queue: inline handler not configured")
	}
	task, _, err := build(t)
	if err != nil {
		return err
	}
	err = i.Handler.ProcessTask(ctx, task)
	recordProcessed(t.Kind, err)
	return err
}
