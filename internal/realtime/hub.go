package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anonto42/letterly/backend/internal/metrics"
	"github.com/anonto42/letterly/backend/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrHubBusy is returned when the outbound queue is full.
var ErrHubBusy = errors.New("realtime hub queue full")

type delivery struct {
	channel string
	event   string
	frame   []byte
}

// Hub tracks connected clients and their channel memberships. Every write to a client's
// send channel and its close happen under mu, so they never race.
type Hub struct {
	id     string
	relay  Relay
	logger zerolog.Logger

	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
	mu      sync.RWMutex

	deliveries chan delivery

	letterAccess LetterAccess
}

// LetterAccess reports whether userID (0 for sockets without a token) may follow the live
// updates of letterID.
type LetterAccess func(ctx context.Context, letterID, userID uint) bool

const letterAccessTimeout = 5 * time.Second

func NewHub() *Hub {
	return &Hub{
		id:         uuid.NewString(),
		logger:     logger.With().Str("component", "realtime_hub").Logger(),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		deliveries: make(chan delivery, 256),
	}
}

// ID identifies this instance in relay envelopes.
func (h *Hub) ID() string { return h.id }

// SetRelay makes Emit also publish to other instances. Call before Serve.
func (h *Hub) SetRelay(r Relay) { h.relay = r }

// SetLetterAccess installs the check behind join_letter. Without one every letter join is
// refused. Call before accepting connections.
func (h *Hub) SetLetterAccess(fn LetterAccess) { h.letterAccess = fn }

func (h *Hub) canJoinLetter(letterID, userID uint) bool {
	if h.letterAccess == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), letterAccessTimeout)
	defer cancel()
	return h.letterAccess(ctx, letterID, userID)
}

// Serve runs the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()

		case d := <-h.deliveries:
			h.deliver(d)
		}
	}
}

func (h *Hub) String() string { return "realtime-hub" }

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnectionsActive.Inc()
	h.logger.Debug().Str("client", client.id).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	h.remove(client)
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Str("client", client.id).Int("total_clients", total).Msg("websocket client disconnected")
}

// direct queues frame for one client, dropping it when the buffer is full.
func (h *Hub) direct(client *Client, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- frame:
	default:
		metrics.WSMessagesDropped.Inc()
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	for name := range client.channels {
		h.leaveLocked(client, name)
	}
	close(client.send)
	metrics.WSConnectionsActive.Dec()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.remove(client)
	}
}

func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[d.channel]
	for client := range members {
		select {
		case client.send <- d.frame:
			metrics.WSMessagesSent.WithLabelValues(d.event).Inc()
		default:
			// slow consumer
			metrics.WSMessagesDropped.Inc()
			h.logger.Warn().Str("client", client.id).Str("channel", d.channel).Msg("send buffer full, dropping client")
			h.remove(client)
		}
	}
}

// Emit delivers to local members of channel and, when a relay is set, publishes to
// other instances. Relay failures are logged; local delivery still happens.
func (h *Hub) Emit(channel, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := h.enqueue(channel, event, data); err != nil {
		return err
	}

	if h.relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		env := Envelope{Origin: h.id, Channel: channel, Event: event, Data: data}
		if err := h.relay.Publish(ctx, env); err != nil {
			h.logger.Warn().Err(err).Str("channel", channel).Str("event", event).Msg("relay publish failed, delivered locally only")
		}
	}
	return nil
}

// Receive handles an envelope from the relay. Envelopes this instance published are
// skipped since Emit already delivered them.
func (h *Hub) Receive(env Envelope) {
	if env.Origin == h.id {
		return
	}
	if err := h.enqueue(env.Channel, env.Event, env.Data); err != nil {
		h.logger.Warn().Err(err).Str("channel", env.Channel).Msg("drop relayed event")
	}
}

func (h *Hub) enqueue(channel, event string, data json.RawMessage) error {
	frame, err := json.Marshal(Frame{Event: event, Channel: channel, Data: data})
	if err != nil {
		return err
	}
	select {
	case h.deliveries <- delivery{channel: channel, event: event, frame: frame}:
		return nil
	default:
		metrics.WSMessagesDropped.Inc()
		return ErrHubBusy
	}
}

// join adds client to channel. It reports false when the client is already gone.
func (h *Hub) join(client *Client, channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return false
	}
	members, ok := h.rooms[channel]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[channel] = members
	}
	members[client] = true
	client.channels[channel] = true
	return true
}

func (h *Hub) leave(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, channel)
}

func (h *Hub) leaveLocked(client *Client, channel string) {
	delete(client.channels, channel)
	if members, ok := h.rooms[channel]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, channel)
		}
	}
}

// Members returns how many clients are joined to channel.
func (h *Hub) Members(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[channel])
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
