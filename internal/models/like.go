package models

import "time"

// Like is at most one per (letter, user), enforced by idx_like_letter_user.
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	LetterID  uint      `json:"letterId" gorm:"not null;uniqueIndex:idx_like_letter_user"`
	UserID    uint      `json:"userId" gorm:"not null;index;uniqueIndex:idx_like_letter_user"`
	CreatedAt time.Time `json:"createdAt"`
}
