package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/events"
	"github.com/noah-isme/backend-electronic/internal/resilience"
)

type capturePublisher struct {
	events []events.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

type captureWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestEmitFansOut(t *testing.T) {
	pub := &capturePublisher{}
	notifier := &captureNotifier{}
	bus := &events.Bus{Publisher: pub, Notifiers: []events.Notifier{notifier}, Now: fixedNow}

	ev, err := bus.Emit(context.Background(), events.TopicOrderPlaced, "order-1", map[string]any{"total": 1500})
	require.NoError(t, err)
	require.NotEmpty(t, ev.ID)
	require.Equal(t, fixedNow(), ev.OccurredAt)
	require.JSONEq(t, `{"total":1500}`, string(ev.Payload))
	require.Len(t, pub.events, 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, ev, notifier.events[0])
}

func TestEmitValidatesInput(t *testing.T) {
	bus := &events.Bus{}
	_, err := bus.Emit(context.Background(), " ", "order-1", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), "order.shipped", "order-1", nil)
	require.ErrorContains(t, err, "unknown topic")
	_, err = bus.Emit(context.Background(), events.TopicOrderPlaced, "", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicOrderPlaced, "order-1", "{not json")
	require.Error(t, err)

	ev, err := bus.Emit(context.Background(), events.TopicOrderPlaced, "order-1", nil)
	require.NoError(t, err)
	require.Equal(t, "{}", string(ev.Payload))
}

func TestEmitStillNotifiesWhenPublishFails(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	notifier := &captureNotifier{}
	bus := &events.Bus{Publisher: pub, Notifiers: []events.Notifier{notifier}}

	_, err := bus.Emit(context.Background(), events.TopicPaymentCompleted, "order-9", json.RawMessage(`{"ok":true}`))
	require.ErrorContains(t, err, "broker down")
	require.Len(t, notifier.events, 1)
}

func TestKafkaPublisherKeysByAggregate(t *testing.T) {
	w := &captureWriter{}
	pub := events.KafkaPublisher{Writer: w}
	bus := &events.Bus{Publisher: pub, Now: fixedNow}

	ev, err := bus.Emit(context.Background(), events.TopicOrderCancelled, "order-7", map[string]string{"reason": "customer"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	require.Equal(t, "order-7", string(msg.Key))
	require.Equal(t, "event-topic", msg.Headers[0].Key)
	require.Equal(t, events.TopicOrderCancelled, string(msg.Headers[0].Value))

	var decoded events.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, ev.ID, decoded.ID)
	require.Equal(t, "order-7", decoded.AggregateID)

	require.NoError(t, pub.Close())
	require.True(t, w.closed)
}

func TestLogPublisherWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	pub := events.LogPublisher{Logger: zerolog.New(&buf)}
	require.NoError(t, pub.Publish(context.Background(), events.Event{ID: "e1", Topic: events.TopicOrderPlaced, AggregateID: "o1", Payload: json.RawMessage(`{"a":1}`)}))
	require.Contains(t, buf.String(), `"topic":"order.placed"`)
	require.Contains(t, buf.String(), `"payload":{"a":1}`)
}

func TestNewKafkaWriter(t *testing.T) {
	w := events.NewKafkaWriter([]string{"localhost:9092"}, "store.events")
	require.Equal(t, "store.events", w.Topic)
	require.NoError(t, w.Close())
}

func TestGuardedPublisherShortCircuits(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	guarded := events.GuardedPublisher{Next: pub, Breaker: resilience.NewBreaker("events-test", 2, 0.5, time.Hour)}
	bus := &events.Bus{Publisher: guarded}

	for i := 0; i < 2; i++ {
		_, err := bus.Emit(context.Background(), events.TopicOrderPlaced, "order-1", nil)
		require.ErrorContains(t, err, "broker down")
	}
	_, err := bus.Emit(context.Background(), events.TopicOrderPlaced, "order-1", nil)
	require.ErrorIs(t, err, resilience.ErrOpen)
	require.Len(t, pub.events, 2)
}
