package models

import "time"

// Comment represents a comment on a letter
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	LetterID  uint      `json:"letterId" gorm:"index;not null"`
	UserID    uint      `json:"userId" gorm:"index;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentView is a comment with its author attached.
type CommentView struct {
	Comment
	Author UserCompact `json:"author"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}
