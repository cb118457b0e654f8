package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FriendStatus is the state of a friend request row.
type FriendStatus string

const (
	FriendStatusPending  FriendStatus = "pending"
	FriendStatusAccepted FriendStatus = "accepted"
	FriendStatusRejected FriendStatus = "rejected"
)

// Friend is a single directional row describing the relationship between two users.
// PairKey is the same for both directions, so at most one row exists per pair.
type Friend struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	RequesterID uint         `json:"requesterId" gorm:"not null;index"`
	RecipientID uint         `json:"recipientId" gorm:"not null;index"`
	PairKey     string       `json:"-" gorm:"size:41;not null;uniqueIndex"`
	Status      FriendStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// FriendPairKey returns the order-independent key for two users.
func FriendPairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// BeforeSave keeps PairKey consistent with the participants.
func (f *Friend) BeforeSave(_ *gorm.DB) error {
	f.PairKey = FriendPairKey(f.RequesterID, f.RecipientID)
	return nil
}

// Other returns the participant that is not userID.
func (f *Friend) Other(userID uint) uint {
	if f.RequesterID == userID {
		return f.RecipientID
	}
	return f.RequesterID
}

// FriendActionRequest names the other party of a friend action.
type FriendActionRequest struct {
	UserID uint `json:"userId" validate:"required"`
}

// FriendStatusView is the relationship between the caller and another user.
type FriendStatusView string

const (
	FriendViewNone            FriendStatusView = "none"
	FriendViewPendingSent     FriendStatusView = "pending_sent"
	FriendViewPendingReceived FriendStatusView = "pending_received"
	FriendViewFriends         FriendStatusView = "friends"
)
