package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/competition-approval-api/pkg/jobs"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, events ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return r.err
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestKafkaPublisherKeysByAggregate(t *testing.T) {
	writer := &fakeWriter{}
	pub := NewKafkaPublisher(writer)

	evt := New(TypeAwardDecided, "award-1", "admin-1", map[string]interface{}{"to": "APPROVED"})
	require.NoError(t, pub.Publish(context.Background(), evt))
	require.Len(t, writer.msgs, 1)

	msg := writer.msgs[0]
	assert.Equal(t, "award-1", string(msg.Key))
	assert.Equal(t, TypeAwardDecided, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
	assert.Equal(t, "APPROVED", decoded.Payload["to"])

	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	pub := NewKafkaPublisher(&fakeWriter{err: errors.New("broker down")})
	err := pub.Publish(context.Background(), New(TypeLedgerAdjusted, "user-1", "", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestAsyncPublisherDelivers(t *testing.T) {
	next := &recordingPublisher{}
	pub := NewAsyncPublisher(next, jobs.QueueConfig{Workers: 1, RetryDelay: time.Millisecond})
	pub.Start(context.Background())

	require.NoError(t, pub.Publish(context.Background(),
		New(TypeApplicationSubmitted, "app-1", "t-1", nil),
		New(TypeApplicationDecided, "app-1", "d-1", nil),
	))
	pub.Stop()

	assert.Equal(t, 2, next.count())
}

func TestLoggedSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := Logged(Multi{&recordingPublisher{err: errors.New("nope")}, NewLogPublisher(nil)}, zap.New(core))

	require.NoError(t, pub.Publish(context.Background(), New(TypeRulesUpdated, "performance", "root", nil)))
	assert.Equal(t, 1, logs.FilterMessage("event publish failed").Len())
}

type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPublisher) Publish(ctx context.Context, events ...Event) error {
	b.entered <- struct{}{}
	<-b.release
	return nil
}

func TestAsyncPublisherDropsWhenBufferIsFull(t *testing.T) {
	next := &blockingPublisher{entered: make(chan struct{}, 4), release: make(chan struct{})}
	pub := NewAsyncPublisher(next, jobs.QueueConfig{Workers: 1, BufferSize: 1})
	pub.Start(context.Background())
	defer pub.Stop()
	defer close(next.release)

	require.NoError(t, pub.Publish(context.Background(), New(TypeAwardDecided, "award-1", "a", nil)))
	select {
	case <-next.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the first event")
	}
	require.NoError(t, pub.Publish(context.Background(), New(TypeAwardDecided, "award-2", "a", nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := pub.Publish(ctx, New(TypeAwardDecided, "award-3", "a", nil))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, jobs.ErrQueueFull)
}

func TestAsyncPublisherHonoursCancelledContext(t *testing.T) {
	next := &recordingPublisher{}
	pub := NewAsyncPublisher(next, jobs.QueueConfig{Workers: 1})
	pub.Start(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pub.Publish(ctx, New(TypeLedgerAdjusted, "user-1", "", nil))
	pub.Stop()

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, next.count())
}

func TestKafkaWriterFlushesSmallBatchesQuickly(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "competition-events")
	defer w.Close()

	assert.Equal(t, writerBatchTimeout, w.BatchTimeout)
	assert.Less(t, w.BatchTimeout, time.Second)
	assert.Equal(t, writerWriteTimeout, w.WriteTimeout)
}
