package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_FlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 8, zap.NewNop())
	p.Start()

	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, []byte("o-1"), []byte("a"), Header("x-event-type", "A")))
	require.NoError(t, p.Publish(ctx, []byte("o-2"), []byte("b")))
	p.Close()
	p.WaitClosed()

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "o-1", string(w.msgs[0].Key))
	assert.Equal(t, "A", string(w.msgs[0].Headers[0].Value))
	assert.True(t, w.closed)
}

func TestProducer_PublishGivesUpWhenContextDone(t *testing.T) {
	p := newProducer(&fakeWriter{}, 0, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, nil, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProducer_PublishAfterCloseReturnsError(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 1, zap.NewNop())
	p.Start()
	p.Close()

	err := p.Publish(context.Background(), []byte("o-1"), []byte("late"))
	assert.ErrorIs(t, err, ErrProducerClosed)
	assert.NotPanics(t, p.Close)

	p.WaitClosed()
	assert.Empty(t, w.msgs)
	assert.True(t, w.closed)
}

func TestProducer_ConcurrentPublishAndClose(t *testing.T) {
	p := newProducer(&fakeWriter{}, 4, zap.NewNop())
	p.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			for j := 0; j < 50; j++ {
				if err := p.Publish(ctx, nil, []byte("x")); err != nil {
					assert.ErrorIs(t, err, ErrProducerClosed)
					return
				}
			}
		}()
	}
	p.Close()
	wg.Wait()
	p.WaitClosed()
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
	// hold, when set, delays the end of the stream until it is closed.
	hold chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	if r.hold != nil {
		<-r.hold
	}
	r.cancel()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_CommitsOnlyHandledMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{
		queue:  []kafka.Message{{Offset: 1, Value: []byte("ok")}, {Offset: 2, Value: []byte("fail")}, {Offset: 3, Value: []byte("ok")}},
		cancel: cancel,
	}
	c := newConsumer(r, 1, zap.NewNop())
	c.retryDelay = time.Millisecond

	err := c.Start(ctx, func(_ context.Context, m kafka.Message) error {
		if string(m.Value) == "fail" {
			return errors.New("nope")
		}
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, r.committed)
}

func TestConsumer_RetriesFailedMessageInPlace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{
		queue:  []kafka.Message{{Offset: 7, Value: []byte("flaky")}},
		cancel: cancel,
		hold:   make(chan struct{}),
	}
	c := newConsumer(r, 1, zap.NewNop())
	c.retryDelay = time.Millisecond

	var calls atomic.Int32
	err := c.Start(ctx, func(_ context.Context, _ kafka.Message) error {
		if calls.Add(1) < maxAttempts {
			return errors.New("smtp unavailable")
		}
		close(r.hold)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(maxAttempts), calls.Load())
	assert.Equal(t, []int64{7}, r.committed)
}

func TestConsumer_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{
		queue:  []kafka.Message{{Offset: 9, Value: []byte("broken")}},
		cancel: cancel,
		hold:   make(chan struct{}),
	}
	c := newConsumer(r, 1, zap.NewNop())
	c.retryDelay = time.Millisecond

	var calls atomic.Int32
	err := c.Start(ctx, func(_ context.Context, _ kafka.Message) error {
		if calls.Add(1) == maxAttempts {
			close(r.hold)
		}
		return errors.New("smtp unavailable")
	})
	require.NoError(t, err)
	assert.Equal(t, int32(maxAttempts), calls.Load())
	assert.Empty(t, r.committed)
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
	}
	got, err := UnwrapPayload[payload](json.RawMessage(`{"order_id":"o-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "o-1", got.OrderID)

	_, err = UnwrapPayload[payload](json.RawMessage(`{`))
	assert.Error(t, err)
}
