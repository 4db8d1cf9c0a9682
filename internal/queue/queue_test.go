package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/events"
	"github.com/noah-isme/backend-electronic/internal/queue"
)

type fakeClient struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "1", Type: task.Type()}, nil
}

func optionTypes(opts []asynq.Option) map[asynq.OptionType]any {
	out := map[asynq.OptionType]any{}
	for _, o := range opts {
		out[o.Type()] = o.Value()
	}
	return out
}

func TestClientEnqueueMapsOptions(t *testing.T) {
	fc := &fakeClient{}
	c := queue.Client{C: fc, Queue: "critical"}
	task, err := queue.NewOrderConfirmationTask(queue.OrderConfirmation{OrderID: "o-1", Email: "a@example.com"})
	require.NoError(t, err)

	require.NoError(t, c.Enqueue(context.Background(), task))
	require.Len(t, fc.tasks, 1)
	require.Equal(t, queue.KindOrderConfirmation, fc.tasks[0].Type())

	opts := optionTypes(fc.opts[0])
	require.Equal(t, 5, opts[asynq.MaxRetryOpt])
	require.Equal(t, "email:order_confirmation:o-1", opts[asynq.TaskIDOpt])
	require.Equal(t, "critical", opts[asynq.QueueOpt])
}

func TestClientEnqueueTreatsConflictAsDone(t *testing.T) {
	c := queue.Client{C: &fakeClient{err: asynq.ErrTaskIDConflict}}
	require.NoError(t, c.Enqueue(context.Background(), queue.Task{Kind: "image:delete", IdempotencyKey: "x"}))

	c = queue.Client{C: &fakeClient{err: errors.New("redis down")}}
	require.Error(t, c.Enqueue(context.Background(), queue.Task{Kind: "image:delete"}))
}

func TestClientRejectsBadKind(t *testing.T) {
	c := queue.Client{C: &fakeClient{}}
	require.Error(t, c.Enqueue(context.Background(), queue.Task{Kind: "Bad Kind"}))
	require.Error(t, c.Enqueue(context.Background(), queue.Task{}))
	require.Error(t, queue.Client{}.Enqueue(context.Background(), queue.Task{Kind: "ok"}))
}

func TestInlineSendsConfirmation(t *testing.T) {
	mail := &common.InMemoryEmail{}
	h := queue.Handlers{Mail: mail, Logger: zerolog.Nop()}
	inline := queue.Inline{Handler: h.Mux()}

	task, err := queue.NewOrderConfirmationTask(queue.OrderConfirmation{
		OrderID: "0123456789abcdef", Email: "buyer@example.com", Name: "<Bob>", Total: 123456, ItemCount: 2,
	})
	require.NoError(t, err)
	require.NoError(t, inline.Enqueue(context.Background(), task))

	require.Len(t, mail.Outbox, 1)
	msg := mail.Outbox[0]
	require.Equal(t, "buyer@example.com", msg.To)
	require.Equal(t, "Order confirmation 01234567", msg.Subject)
	require.Contains(t, msg.HTML, "&lt;Bob&gt;")
	require.Contains(t, msg.HTML, "1234.56")
}

func TestImageDeleteRemovesOnlyInsideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.png"), []byte("x"), 0o600))
	h := queue.Handlers{ImagesDir: dir, Logger: zerolog.Nop()}
	inline := queue.Inline{Handler: h.Mux()}

	task, err := queue.NewImageDeleteTask("old.png")
	require.NoError(t, err)
	require.NoError(t, inline.Enqueue(context.Background(), task))
	_, err = os.Stat(filepath.Join(dir, "old.png"))
	require.True(t, os.IsNotExist(err))

	// already gone is fine
	require.NoError(t, inline.Enqueue(context.Background(), task))

	bad, err := queue.NewImageDeleteTask("../secret.txt")
	require.NoError(t, err)
	require.ErrorIs(t, inline.Enqueue(context.Background(), bad), asynq.SkipRetry)
}

func TestOrderNotifierEnqueuesOnPlacedOnly(t *testing.T) {
	fc := &fakeClient{}
	n := queue.OrderNotifier{Tasks: queue.Client{C: fc}}

	payload, _ := json.Marshal(queue.OrderConfirmation{Email: "a@example.com", Total: 500})
	require.NoError(t, n.Notify(context.Background(), events.Event{Topic: events.TopicOrderPlaced, AggregateID: "o-5", Payload: payload}))
	require.NoError(t, n.Notify(context.Background(), events.Event{Topic: events.TopicPaymentCompleted, AggregateID: "o-5", Payload: payload}))

	require.Len(t, fc.tasks, 1)
	var got queue.OrderConfirmation
	require.NoError(t, json.Unmarshal(fc.tasks[0].Payload(), &got))
	require.Equal(t, "o-5", got.OrderID)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "0.05", queue.FormatAmount(5))
	require.Equal(t, "12.30", queue.FormatAmount(1230))
	require.Equal(t, "-1.01", queue.FormatAmount(-101))
}
