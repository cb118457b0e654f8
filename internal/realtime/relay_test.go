package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelay struct {
	mu        sync.Mutex
	published []Envelope
	fail      bool
}

func (f *fakeRelay) Publish(_ context.Context, env Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker down")
	}
	f.published = append(f.published, env)
	return nil
}

func (f *fakeRelay) Subscribe(ctx context.Context, _ func(Envelope)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeRelay) Close() error { return nil }

func TestEmitPublishesEnvelope(t *testing.T) {
	relay := &fakeRelay{}
	hub := NewHub()
	hub.SetRelay(relay)

	require.NoError(t, hub.Emit(UserChannel(2), EventNewMessage, map[string]int{"id": 9}))

	require.Len(t, relay.published, 1)
	env := relay.published[0]
	assert.Equal(t, hub.ID(), env.Origin)
	assert.Equal(t, "user:2", env.Channel)
	assert.Equal(t, EventNewMessage, env.Event)
	assert.JSONEq(t, `{"id":9}`, string(env.Data))
}

func TestEmitSurvivesRelayFailure(t *testing.T) {
	hub := NewHub()
	hub.SetRelay(&fakeRelay{fail: true})

	assert.NoError(t, hub.Emit(UserChannel(2), EventNewMessage, "hi"))
	assert.Len(t, hub.deliveries, 1)
}

func TestReceiveSkipsOwnOrigin(t *testing.T) {
	hub := NewHub()

	hub.Receive(Envelope{Origin: hub.ID(), Channel: "user:1", Event: EventNewMessage, Data: []byte(`1`)})
	assert.Len(t, hub.deliveries, 0)

	hub.Receive(Envelope{Origin: "other", Channel: "user:1", Event: EventNewMessage, Data: []byte(`1`)})
	assert.Len(t, hub.deliveries, 1)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	inner := &fakeRelay{fail: true}
	b := NewBreakerRelay("test-relay", inner)

	for i := 0; i < 5; i++ {
		assert.Error(t, b.Publish(context.Background(), Envelope{}))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	inner.fail = false
	err := b.Publish(context.Background(), Envelope{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Empty(t, inner.published)
}
