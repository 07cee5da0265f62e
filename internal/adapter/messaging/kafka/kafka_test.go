package kafka

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace-settlement/config"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader replays msgs, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	err := p.Publish(context.Background(), "inventory-updates", "product-1", []byte(`{"event_id":"x"}`))
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "inventory-updates", w.msgs[0].Topic)
	assert.Equal(t, []byte("product-1"), w.msgs[0].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("leader not available")}}

	err := p.Publish(context.Background(), "seller-notifications", "k", []byte(`{}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "seller-notifications")
}

func TestNewPublisher_UsesKeyHashing(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}, ClientID: "test"})
	w, ok := p.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.IsType(t, &kafkago.Hash{}, w.Balancer)
	assert.Equal(t, kafkago.RequireAll, w.RequiredAcks)
}

func newTestSubscriber(r *fakeReader) *Subscriber {
	return &Subscriber{
		groupID:   "test-group",
		log:       zerolog.Nop(),
		newReader: func(string) messageReader { return r },
		delays:    []time.Duration{time.Millisecond, time.Millisecond},
	}
}

func TestSubscriber_CommitsAfterHandler(t *testing.T) {
	r := &fakeReader{msgs: []kafkago.Message{
		{Offset: 1, Value: []byte("a")},
		{Offset: 2, Value: []byte("b")},
	}}
	s := newTestSubscriber(r)

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var seen []string
	done := make(chan error)
	go func() {
		done <- s.Consume(ctx, "inventory-updates", func(_ context.Context, payload []byte) error {
			mu.Lock()
			seen = append(seen, string(payload))
			mu.Unlock()
			return nil
		})
	}()

	assert.Eventually(t, func() bool { return len(r.commits()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, []int64{1, 2}, r.commits())
	assert.True(t, r.closed)
}

func TestSubscriber_RetriesFailingHandler(t *testing.T) {
	r := &fakeReader{msgs: []kafkago.Message{{Offset: 7, Value: []byte("x")}}}
	s := newTestSubscriber(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	calls := 0
	go func() {
		_ = s.Consume(ctx, "t", func(context.Context, []byte) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls < 2 {
				return errors.New("transient")
			}
			return nil
		})
	}()

	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
}

func TestSubscriber_FailingHandlerNeverCommits(t *testing.T) {
	r := &fakeReader{msgs: []kafkago.Message{
		{Offset: 3, Value: []byte("stock.changed")},
		{Offset: 4, Value: []byte("next")},
	}}
	s := newTestSubscriber(r)

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var seen []string
	done := make(chan error)
	go func() {
		done <- s.Consume(ctx, "inventory-updates", func(_ context.Context, payload []byte) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, string(payload))
			return errors.New("redis: connection refused")
		})
	}()

	// Well past the retry table: the last delay keeps repeating.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 6
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, r.commits())
	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen {
		assert.Equal(t, "stock.changed", p, "the next message must wait for the failing one")
	}
}

func TestSubscriber_RecoversAfterLongOutage(t *testing.T) {
	r := &fakeReader{msgs: []kafkago.Message{{Offset: 9, Value: []byte("x")}}}
	s := newTestSubscriber(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	calls := 0
	go func() {
		_ = s.Consume(ctx, "t", func(context.Context, []byte) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls <= 5 {
				return errors.New("unavailable")
			}
			return nil
		})
	}()

	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{9}, r.commits())
	mu.Lock()
	assert.Equal(t, 6, calls)
	mu.Unlock()
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, p.Publish(context.Background(), "transaction-audit", "acct", []byte(`{"event_type":"transaction.audit"}`)))
	assert.Contains(t, buf.String(), `"topic":"transaction-audit"`)
	assert.Contains(t, buf.String(), `"event_type":"transaction.audit"`)
	assert.NoError(t, p.Close())
}
