package models

import "time"

// Repost is at most one per (user, letter).
type Repost struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"not null;uniqueIndex:idx_repost_user_letter"`
	LetterID  uint      `json:"letterId" gorm:"not null;index;uniqueIndex:idx_repost_user_letter"`
	CreatedAt time.Time `json:"createdAt"`
}
