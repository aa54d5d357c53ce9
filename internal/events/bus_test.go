package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "stream closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBus_FanOutToEverySession(t *testing.T) {
	bus := NewBus(8, quietLogger())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), bus.Sessions())

	event := NewEvent(models.EventSendToModerator, models.EventPayload{UID: "1001", Status: models.UidReadyForModeration})
	require.NoError(t, bus.Publish(ctx, event))

	for _, ch := range []<-chan Event{a, b} {
		got := receive(t, ch)
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, models.EventSendToModerator, got.Type)
		assert.Equal(t, "1001", got.Payload.UID)
		assert.Equal(t, models.UidReadyForModeration, got.Payload.Status)
		assert.Equal(t, Source, got.Source)
	}
}

func TestBus_NoSubscribersIsNotAnError(t *testing.T) {
	bus := NewBus(8, quietLogger())
	defer bus.Close()

	err := bus.Publish(context.Background(), NewEvent(models.EventUidCreated, models.EventPayload{UID: "1001"}))
	assert.NoError(t, err)
}

func TestBus_LateSubscriberMissesEarlierEvents(t *testing.T) {
	bus := NewBus(8, quietLogger())
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Publish(ctx, NewEvent(models.EventUidCreated, models.EventPayload{UID: "1001"})))

	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, NewEvent(models.EventUidCreated, models.EventPayload{UID: "1002"})))

	assert.Equal(t, "1002", receive(t, ch).Payload.UID)
}

func TestBus_CancelledSessionCloses(t *testing.T) {
	bus := NewBus(8, quietLogger())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
	assert.Eventually(t, func() bool { return bus.Sessions() == 0 }, time.Second, 10*time.Millisecond)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (r *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func TestBus_ForwarderFailureDoesNotReachCaller(t *testing.T) {
	fwd := &recordingPublisher{err: errors.New("broker down")}
	bus := NewBus(8, quietLogger(), WithForwarder(fwd))
	defer bus.Close()

	err := bus.Publish(context.Background(), NewEvent(models.EventUidApproved, models.EventPayload{UID: "1001"}))
	assert.NoError(t, err)
	assert.Equal(t, []string{Topic}, fwd.topics)
}

func TestTopicPublisher_RewritesTopic(t *testing.T) {
	inner := &recordingPublisher{}
	pub := &topicPublisher{Publisher: inner, topic: "training.workflow.events"}

	require.NoError(t, pub.Publish(Topic, message.NewMessage("1", nil)))
	assert.Equal(t, []string{"training.workflow.events"}, inner.topics)
}

func TestMockEventPublisher(t *testing.T) {
	m := NewMockEventPublisher(quietLogger())
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, NewEvent(models.EventUidCreated, models.EventPayload{UID: "1001"})))
	require.NoError(t, m.Publish(ctx, NewEvent(models.EventUidDeleted, models.EventPayload{UID: "1001"})))
	assert.Equal(t, []models.EventName{models.EventUidCreated, models.EventUidDeleted}, m.Types())

	m.ClearEvents()
	assert.Empty(t, m.GetPublishedEvents())

	m.FailWith(errors.New("nope"))
	assert.Error(t, m.Publish(ctx, NewEvent(models.EventUidCreated, models.EventPayload{})))
}
