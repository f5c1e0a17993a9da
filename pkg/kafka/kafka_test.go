package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "rounds")

	require.NoError(t, p.Publish(context.Background(), Event{Key: "run-1/margin", Value: map[string]int{"round": 3}}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "run-1/margin", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"round":3}`, string(w.msgs[0].Value))

	w.err = errors.New("broker down")
	assert.ErrorIs(t, p.Publish(context.Background(), Event{Key: "k", Value: 1}), w.err)

	err := p.Publish(context.Background(), Event{Key: "k", Value: make(chan int)})
	assert.Error(t, err)
}

// fakeReader serves queued messages, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
	drained   chan struct{}
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	select {
	case f.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestConsumerCommitsOnlyHandledMessages(t *testing.T) {
	r := &fakeReader{
		queue: []kafka.Message{
			{Offset: 1, Value: []byte(`{"n":1}`)},
			{Offset: 2, Value: []byte(`bad`)},
			{Offset: 3, Value: []byte(`{"n":3}`)},
		},
		drained: make(chan struct{}, 1),
	}
	var seen []int
	handler := func(_ context.Context, _ []byte, value []byte) error {
		v, err := DecodeJSON[struct{ N int }](value)
		if err != nil {
			return err
		}
		seen = append(seen, v.N)
		return nil
	}
	c := newConsumer(r, "rounds", handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	<-r.drained
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int{1, 3}, seen)
	assert.Equal(t, []int64{1, 3}, r.committed)
	assert.True(t, r.closed)
}
