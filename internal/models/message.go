package models

import "time"

// Message is a direct message between two users.
type Message struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SenderID   uint      `json:"senderId" gorm:"not null;index"`
	ReceiverID uint      `json:"receiverId" gorm:"not null;index"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	IsRead     bool      `json:"isRead" gorm:"default:false;index"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
}

type SendMessageRequest struct {
	ReceiverID uint   `json:"receiverId" validate:"required"`
	Content    string `json:"content" validate:"required,min=1,max=5000"`
}

type MarkReadRequest struct {
	OtherUserID uint `json:"otherUserId" validate:"required"`
}

// ConversationPartner is one row of the per-counterpart grouping.
type ConversationPartner struct {
	OtherID       uint
	LastMessageAt time.Time
}

// Conversation summarises the exchange between the caller and one counterpart.
type Conversation struct {
	User          UserCompact `json:"user"`
	LastMessage   string      `json:"lastMessage"`
	LastSenderID  uint        `json:"lastSenderId"`
	LastMessageAt time.Time   `json:"lastMessageAt"`
	UnreadCount   int64       `json:"unreadCount"`
}
