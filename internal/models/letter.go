package models

import "time"

// LetterStatus is the publication state stored on a letter.
type LetterStatus string

const (
	LetterStatusDraft     LetterStatus = "draft"
	LetterStatusScheduled LetterStatus = "scheduled"
	LetterStatusPublished LetterStatus = "published"
)

// Valid reports whether s is a known status.
func (s LetterStatus) Valid() bool {
	switch s {
	case LetterStatusDraft, LetterStatusScheduled, LetterStatusPublished:
		return true
	}
	return false
}

// Letter is the core user-generated post. Comments and likes cascade with it.
type Letter struct {
	ID              uint         `json:"id" gorm:"primaryKey"`
	UserID          uint         `json:"userId,omitempty" gorm:"index;not null"`
	Title           string       `json:"title" gorm:"size:200;not null"`
	Content         string       `json:"content" gorm:"type:text"`
	Type            string       `json:"type" gorm:"size:50;index"`
	IsPublic        bool         `json:"isPublic" gorm:"default:false;index"`
	Status          LetterStatus `json:"status" gorm:"size:20;default:'draft';index"`
	ScheduledDate   *time.Time   `json:"scheduledDate,omitempty"`
	OpenDate        *time.Time   `json:"openDate,omitempty"`
	IsTimeCapsule   bool         `json:"isTimeCapsule" gorm:"default:false;index"`
	Address         string       `json:"address,omitempty"`
	Latitude        *float64     `json:"latitude,omitempty"`
	Longitude       *float64     `json:"longitude,omitempty"`
	BackgroundImage string       `json:"backgroundImage,omitempty"`
	ImageURL        string       `json:"imageUrl,omitempty"`
	Font            string       `json:"font,omitempty" gorm:"size:50"`
	SpotifyLink     string       `json:"spotifyLink,omitempty"`
	IsAnonymous     bool         `json:"isAnonymous" gorm:"default:false"`
	IsArchived      bool         `json:"isArchived" gorm:"default:false;index"`
	CreatedAt       time.Time    `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time    `json:"updatedAt"`

	Owner    *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Comments []Comment `json:"-" gorm:"foreignKey:LetterID;constraint:OnDelete:CASCADE"`
	Likes    []Like    `json:"-" gorm:"foreignKey:LetterID;constraint:OnDelete:CASCADE"`
}

// IsSealed reports whether the letter is an unopened time capsule at now.
func (l *Letter) IsSealed(now time.Time) bool {
	return l.IsTimeCapsule && l.OpenDate != nil && now.Before(*l.OpenDate)
}

// VisibleTo reports whether viewerID (0 for anonymous) may read the letter at all.
func (l *Letter) VisibleTo(viewerID uint) bool {
	if viewerID != 0 && l.UserID == viewerID {
		return true
	}
	return l.IsPublic && l.Status == LetterStatusPublished
}

// LetterView is a letter as rendered for a particular viewer.
type LetterView struct {
	Letter
	Author       *UserCompact `json:"author,omitempty"`
	Sealed       bool         `json:"sealed"`
	LikeCount    int64        `json:"likeCount"`
	CommentCount int64        `json:"commentCount"`
	RepostCount  int64        `json:"repostCount"`
	IsLiked      bool         `json:"isLiked"`
	IsReposted   bool         `json:"isReposted"`
}

// NewLetterView projects l for viewerID. Anonymous letters hide their author from
// everyone but the owner, and sealed capsules hide their body.
func NewLetterView(l Letter, author *UserCompact, viewerID uint, now time.Time) LetterView {
	v := LetterView{Letter: l, Author: author}
	isOwner := viewerID != 0 && l.UserID == viewerID
	if l.IsAnonymous && !isOwner {
		v.UserID = 0
		v.Author = nil
	}
	if l.IsSealed(now) && !isOwner {
		v.Sealed = true
		v.Content = ""
		v.ImageURL = ""
		v.SpotifyLink = ""
	}
	return v
}

type CreateLetterRequest struct {
	Title           string       `json:"title" validate:"required,min=1,max=200"`
	Content         string       `json:"content" validate:"max=20000"`
	Type            string       `json:"type" validate:"omitempty,max=50"`
	IsPublic        bool         `json:"isPublic"`
	Status          LetterStatus `json:"status" validate:"omitempty,oneof=draft scheduled published"`
	ScheduledDate   *time.Time   `json:"scheduledDate"`
	OpenDate        *time.Time   `json:"openDate"`
	IsTimeCapsule   bool         `json:"isTimeCapsule"`
	Address         string       `json:"address" validate:"omitempty,max=300"`
	Latitude        *float64     `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64     `json:"longitude" validate:"omitempty,longitude"`
	BackgroundImage string       `json:"backgroundImage"`
	ImageURL        string       `json:"imageUrl"`
	Font            string       `json:"font" validate:"omitempty,max=50"`
	SpotifyLink     string       `json:"spotifyLink" validate:"omitempty,url"`
	IsAnonymous     bool         `json:"isAnonymous"`
}

// UpdateLetterRequest uses pointers so that absent fields are left untouched.
type UpdateLetterRequest struct {
	Title           *string       `json:"title" validate:"omitempty,min=1,max=200"`
	Content         *string       `json:"content" validate:"omitempty,max=20000"`
	Type            *string       `json:"type" validate:"omitempty,max=50"`
	IsPublic        *bool         `json:"isPublic"`
	Status          *LetterStatus `json:"status" validate:"omitempty,oneof=draft scheduled published"`
	ScheduledDate   *time.Time    `json:"scheduledDate"`
	OpenDate        *time.Time    `json:"openDate"`
	IsTimeCapsule   *bool         `json:"isTimeCapsule"`
	Address         *string       `json:"address" validate:"omitempty,max=300"`
	Latitude        *float64      `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64      `json:"longitude" validate:"omitempty,longitude"`
	BackgroundImage *string       `json:"backgroundImage"`
	ImageURL        *string       `json:"imageUrl"`
	Font            *string       `json:"font" validate:"omitempty,max=50"`
	SpotifyLink     *string       `json:"spotifyLink" validate:"omitempty,url"`
	IsAnonymous     *bool         `json:"isAnonymous"`
}
