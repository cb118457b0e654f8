package models

import "time"

// NotificationType tags what a notification refers to.
type NotificationType string

const (
	NotificationComment       NotificationType = "comment"
	NotificationLike          NotificationType = "like"
	NotificationFollow        NotificationType = "follow"
	NotificationFriendRequest NotificationType = "friend_request"
	NotificationFriendAccept  NotificationType = "friend_accept"
)

// Notification is a persisted, one-hop notice for UserID about something ActorID did.
// EntityID is interpreted according to Type; use Target to read it.
type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    uint             `json:"userId" gorm:"not null;index"`
	ActorID   uint             `json:"actorId" gorm:"not null;index"`
	Type      NotificationType `json:"type" gorm:"size:30;index"`
	EntityID  *uint            `json:"-" gorm:"index"`
	IsRead    bool             `json:"isRead" gorm:"default:false;index"`
	CreatedAt time.Time        `json:"createdAt" gorm:"index"`
}

// NotificationTarget is the typed subject of a notification.
type NotificationTarget interface {
	Kind() NotificationType
	entity() *uint
}

// LetterTarget refers to a letter that was commented on or liked.
type LetterTarget struct {
	Type     NotificationType
	LetterID uint
}

func (t LetterTarget) Kind() NotificationType { return t.Type }

func (t LetterTarget) entity() *uint {
	id := t.LetterID
	return &id
}

// UserTarget refers to the recipient themselves (follows).
type UserTarget struct{}

func (UserTarget) Kind() NotificationType { return NotificationFollow }

func (UserTarget) entity() *uint { return nil }

// FriendTarget refers to a friend request row.
type FriendTarget struct {
	Type     NotificationType
	FriendID uint
}

func (t FriendTarget) Kind() NotificationType { return t.Type }

func (t FriendTarget) entity() *uint {
	id := t.FriendID
	return &id
}

// NewNotification builds the row for target.
func NewNotification(recipientID, actorID uint, target NotificationTarget) *Notification {
	return &Notification{
		UserID:   recipientID,
		ActorID:  actorID,
		Type:     target.Kind(),
		EntityID: target.entity(),
	}
}

// Target decodes the stored type and entity id. Unknown types yield nil.
func (n *Notification) Target() NotificationTarget {
	var id uint
	if n.EntityID != nil {
		id = *n.EntityID
	}
	switch n.Type {
	case NotificationComment, NotificationLike:
		return LetterTarget{Type: n.Type, LetterID: id}
	case NotificationFollow:
		return UserTarget{}
	case NotificationFriendRequest, NotificationFriendAccept:
		return FriendTarget{Type: n.Type, FriendID: id}
	}
	return nil
}

// NotificationView is what clients receive, with the reference split by kind.
type NotificationView struct {
	ID              uint             `json:"id"`
	Type            NotificationType `json:"type"`
	Actor           UserCompact      `json:"actor"`
	LetterID        uint             `json:"letterId,omitempty"`
	FriendRequestID uint             `json:"friendRequestId,omitempty"`
	IsRead          bool             `json:"isRead"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// NewNotificationView renders n with its actor.
func NewNotificationView(n Notification, actor UserCompact) NotificationView {
	v := NotificationView{
		ID:        n.ID,
		Type:      n.Type,
		Actor:     actor,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	switch t := n.Target().(type) {
	case LetterTarget:
		v.LetterID = t.LetterID
	case FriendTarget:
		v.FriendRequestID = t.FriendID
	}
	return v
}

type MarkNotificationsReadRequest struct {
	IDs []uint `json:"ids"`
}
