package realtime

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Upgrader accepts any origin; CORS for the REST API is enforced separately.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one websocket connection. userID is 0 for sockets opened without a token.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint

	// guarded by hub.mu
	channels map[string]bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		id:       uuid.NewString(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		userID:   userID,
		channels: make(map[string]bool),
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint) error {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := newClient(h, conn, userID)
	h.add(client)

	go client.writePump()
	go client.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Str("client", c.id).Msg("websocket read error")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.reply(EventError, errorData{Message: "invalid frame"})
			continue
		}
		c.handle(frame)
	}
}

func (c *Client) handle(frame Frame) {
	id, err := parseID(frame.Data)
	if err != nil {
		c.reply(EventError, errorData{Message: frame.Event + " requires a numeric id"})
		return
	}

	switch frame.Event {
	case EventJoin:
		if c.userID == 0 || id != c.userID {
			c.reply(EventError, errorData{Message: "cannot join another user's channel"})
			return
		}
		c.joinChannel(UserChannel(id))
	case EventJoinLetter:
		if !c.hub.canJoinLetter(id, c.userID) {
			c.reply(EventError, errorData{Message: "letter not found"})
			return
		}
		c.joinChannel(LetterChannel(id))
	case EventLeaveLetter:
		ch := LetterChannel(id)
		c.hub.leave(c, ch)
		c.reply(EventLeft, ChannelData{Channel: ch})
	default:
		c.reply(EventError, errorData{Message: "unknown event " + frame.Event})
	}
}

func (c *Client) joinChannel(ch string) {
	if c.hub.join(c, ch) {
		c.reply(EventJoined, ChannelData{Channel: ch})
	}
}

// reply queues a frame for this client only.
func (c *Client) reply(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return
	}
	c.hub.direct(c, frame)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// parseID accepts 7 or "7".
func parseID(data json.RawMessage) (uint, error) {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(n), nil
}
