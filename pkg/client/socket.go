package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Handler receives the channel and raw payload of a server event.
type Handler func(channel string, data json.RawMessage)

const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Socket keeps a realtime connection open and restores channel membership after reconnects.
type Socket struct {
	endpoint string
	token    func() string
	dialer   *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	joins    map[string]realtime.Frame
	handlers map[string][]Handler

	// Connected fires after every successful dial, once joins were re-sent.
	Connected func()
}

// NewSocket targets the /ws endpoint of the server behind c.
func NewSocket(c *Client) (*Socket, error) {
	u, err := url.Parse(c.BaseURL())
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	return &Socket{
		endpoint: u.String(),
		token:    c.Auth.Token,
		dialer:   websocket.DefaultDialer,
		joins:    make(map[string]realtime.Frame),
		handlers: make(map[string][]Handler),
	}, nil
}

// On registers h for an event name such as like_update.
func (s *Socket) On(event string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

// JoinUser subscribes to the caller's personal channel.
func (s *Socket) JoinUser(userID uint) error {
	return s.join(realtime.UserChannel(userID), realtime.EventJoin, userID)
}

// JoinLetter subscribes to the live updates of one letter.
func (s *Socket) JoinLetter(letterID uint) error {
	return s.join(realtime.LetterChannel(letterID), realtime.EventJoinLetter, letterID)
}

// LeaveLetter drops the letter subscription.
func (s *Socket) LeaveLetter(letterID uint) error {
	frame, err := idFrame(realtime.EventLeaveLetter, letterID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.joins, realtime.LetterChannel(letterID))
	s.mu.Unlock()
	return s.send(frame)
}

func (s *Socket) join(channel, event string, id uint) error {
	frame, err := idFrame(event, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.joins[channel] = frame
	s.mu.Unlock()
	return s.send(frame)
}

// send writes frame when connected. Offline joins are delivered on the next dial.
func (s *Socket) send(frame realtime.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return writeFrame(s.conn, frame)
}

// Run dials and reads until ctx is done, reconnecting with exponential backoff.
func (s *Socket) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = minBackoff
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// session runs one connection. A nil error means the connection was established first.
func (s *Socket) session(ctx context.Context) error {
	target := s.endpoint
	if token := s.token(); token != "" {
		target += "?token=" + url.QueryEscape(token)
	}
	conn, resp, err := s.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect to websocket: %w, status: %s", err, resp.Status)
		}
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	for _, frame := range s.joins {
		if err := writeFrame(conn, frame); err != nil {
			s.conn = nil
			s.mu.Unlock()
			conn.Close()
			return nil
		}
	}
	onConnect := s.Connected
	s.mu.Unlock()

	if onConnect != nil {
		onConnect()
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.readLoop(conn)
	close(done)

	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()
	conn.Close()
	return nil
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame realtime.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		s.dispatch(frame)
	}
}

func (s *Socket) dispatch(frame realtime.Frame) {
	s.mu.Lock()
	handlers := append([]Handler(nil), s.handlers[frame.Event]...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(frame.Channel, frame.Data)
	}
}

// Bind routes the server events into the given stores. Nil stores are skipped.
func (s *Socket) Bind(letters *LetterStore, chat *ChatStore, notifications *NotificationStore) {
	if letters != nil {
		s.On(realtime.EventLikeUpdate, func(_ string, data json.RawMessage) {
			var u realtime.LikeUpdate
			if json.Unmarshal(data, &u) == nil {
				letters.ApplyLikeUpdate(u)
			}
		})
		s.On(realtime.EventNewComment, func(_ string, data json.RawMessage) {
			var c models.CommentView
			if json.Unmarshal(data, &c) == nil {
				letters.ApplyNewComment(c)
			}
		})
	}
	if chat != nil {
		s.On(realtime.EventNewMessage, func(_ string, data json.RawMessage) {
			var m models.Message
			if json.Unmarshal(data, &m) == nil {
				chat.ApplyNewMessage(m)
			}
		})
	}
	if notifications != nil {
		s.On(realtime.EventNewNotification, func(_ string, data json.RawMessage) {
			var n models.NotificationView
			if json.Unmarshal(data, &n) == nil {
				notifications.ApplyNew(n)
			}
		})
	}
}

func writeFrame(conn *websocket.Conn, frame realtime.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func idFrame(event string, id uint) (realtime.Frame, error) {
	data, err := json.Marshal(id)
	if err != nil {
		return realtime.Frame{}, err
	}
	return realtime.Frame{Event: event, Data: data}, nil
}
