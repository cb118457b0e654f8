// Package realtime fans events out to websocket clients grouped into named channels.
//
// Clients join "user:<id>" for their own notifications and messages and
// "letter:<id>" while a letter is open. Servers emit to a channel by name and every
// current member receives the event. Membership lives only as long as the connection.
package realtime

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Outbound events.
const (
	EventNewNotification = "new_notification"
	EventNewComment      = "new_comment"
	EventLikeUpdate      = "like_update"
	EventNewMessage      = "new_message"
	EventFriendAccepted  = "friend_accepted"

	// acknowledgements and errors for client frames
	EventJoined = "joined"
	EventLeft   = "left"
	EventError  = "error"
)

// Inbound events.
const (
	EventJoin        = "join"
	EventJoinLetter  = "join_letter"
	EventLeaveLetter = "leave_letter"
)

// Emitter pushes an event to every member of a channel. Delivery is best-effort.
type Emitter interface {
	Emit(channel, event string, payload interface{}) error
}

// UserChannel is the personal channel of a user.
func UserChannel(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// LetterChannel carries live updates for one letter.
func LetterChannel(letterID uint) string {
	return fmt.Sprintf("letter:%d", letterID)
}

// Frame is the wire format in both directions. Channel is empty on inbound frames.
type Frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Envelope is what relays carry between server instances.
type Envelope struct {
	Origin  string          `json:"origin"`
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

type errorData struct {
	Message string `json:"message"`
}

// ChannelData is the payload of joined/left acknowledgements.
type ChannelData struct {
	Channel string `json:"channel"`
}

// LikeUpdate is the absolute like count of a letter.
type LikeUpdate struct {
	LetterID  uint  `json:"letterId"`
	LikeCount int64 `json:"likeCount"`
}
