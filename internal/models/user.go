package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is a registered account. Users are never hard-deleted.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Email       string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Password    string    `json:"-"`                             // bcrypt hash
	FirebaseUID *string   `json:"-" gorm:"size:128;uniqueIndex"` // set only for federated accounts
	Bio         string    `json:"bio" gorm:"size:500"`
	Avatar      string    `json:"avatar"`
	CoverImage  string    `json:"coverImage"`
	Location    string    `json:"location" gorm:"size:100"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserCompact is the public projection of a user embedded in other views.
type UserCompact struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// ToCompact converts a User to its compact public form.
func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is bound from the multipart profile form; files are read separately.
type UpdateProfileRequest struct {
	Username string `form:"username" json:"username" validate:"omitempty,min=3,max=30,alphanum"`
	Bio      string `form:"bio" json:"bio" validate:"omitempty,max=500"`
	Location string `form:"location" json:"location" validate:"omitempty,max=100"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
