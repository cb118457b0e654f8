package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/letterly/backend/internal/metrics"
	"github.com/anonto42/letterly/backend/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"
)

// Relay carries envelopes between server instances.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe calls fn for every envelope until ctx is done.
	Subscribe(ctx context.Context, fn func(Envelope)) error
	Close() error
}

// RedisRelay uses Redis pub/sub.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

func NewRedisRelay(url, channel string) (*RedisRelay, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisRelay{client: redis.NewClient(opts), channel: channel}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

func (r *RedisRelay) Subscribe(ctx context.Context, fn func(Envelope)) error {
	ps := r.client.Subscribe(ctx, r.channel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warn().Err(err).Msg("malformed relay envelope")
				continue
			}
			fn(env)
		}
	}
}

func (r *RedisRelay) Close() error { return r.client.Close() }

// NATSRelay uses a core NATS subject.
type NATSRelay struct {
	conn    *nats.Conn
	subject string
}

func NewNATSRelay(url, subject string) (*NATSRelay, error) {
	nc, err := nats.Connect(url,
		nats.Name("letterly-realtime"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSRelay{conn: nc, subject: subject}, nil
}

func (r *NATSRelay) Publish(_ context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.conn.Publish(r.subject, data)
}

func (r *NATSRelay) Subscribe(ctx context.Context, fn func(Envelope)) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			logger.Warn().Err(err).Msg("malformed relay envelope")
			return
		}
		fn(env)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return ctx.Err()
}

func (r *NATSRelay) Close() error {
	r.conn.Close()
	return nil
}

// BreakerRelay stops publishing to a failing broker for a while so that emits do not
// each wait for a timeout.
type BreakerRelay struct {
	Relay
	name string
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerRelay(name string, r Relay) *BreakerRelay {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("relay circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return &BreakerRelay{Relay: r, name: name, cb: cb}
}

func (b *BreakerRelay) Publish(ctx context.Context, env Envelope) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.Relay.Publish(ctx, env)
	})
	if err != nil {
		metrics.RelayPublishErrors.WithLabelValues(b.name).Inc()
	}
	return err
}

// State exposes the breaker state.
func (b *BreakerRelay) State() gobreaker.State { return b.cb.State() }

// RelayService feeds envelopes from a relay into the hub. It satisfies suture.Service.
type RelayService struct {
	Hub   *Hub
	Relay Relay
}

func (s *RelayService) Serve(ctx context.Context) error {
	return s.Relay.Subscribe(ctx, s.Hub.Receive)
}

func (s *RelayService) String() string { return "realtime-relay" }
