// Package memstore is an in-memory implementation of the repository interfaces, used by
// handler and service tests.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/repositories"
)

type data struct {
	mu     sync.Mutex
	nextID uint
	clock  func() time.Time

	users         map[uint]*models.User
	letters       map[uint]*models.Letter
	comments      map[uint]*models.Comment
	likes         map[uint]*models.Like
	reposts       map[uint]*models.Repost
	follows       map[uint]*models.Follow
	friends       map[uint]*models.Friend
	messages      map[uint]*models.Message
	notifications map[uint]*models.Notification
}

// Store exposes one repository per entity over shared in-memory tables.
type Store struct {
	d *data

	Users         *UserRepo
	Letters       *LetterRepo
	Comments      *CommentRepo
	Likes         *LikeRepo
	Reposts       *RepostRepo
	Follows       *FollowRepo
	Friends       *FriendRepo
	Messages      *MessageRepo
	Notifications *NotificationRepo
}

var (
	_ repositories.UserRepository         = (*UserRepo)(nil)
	_ repositories.LetterRepository       = (*LetterRepo)(nil)
	_ repositories.CommentRepository      = (*CommentRepo)(nil)
	_ repositories.LikeRepository         = (*LikeRepo)(nil)
	_ repositories.RepostRepository       = (*RepostRepo)(nil)
	_ repositories.FollowRepository       = (*FollowRepo)(nil)
	_ repositories.FriendshipRepository   = (*FriendRepo)(nil)
	_ repositories.MessageRepository      = (*MessageRepo)(nil)
	_ repositories.NotificationRepository = (*NotificationRepo)(nil)
)

func New() *Store {
	d := &data{
		clock:         time.Now,
		users:         map[uint]*models.User{},
		letters:       map[uint]*models.Letter{},
		comments:      map[uint]*models.Comment{},
		likes:         map[uint]*models.Like{},
		reposts:       map[uint]*models.Repost{},
		follows:       map[uint]*models.Follow{},
		friends:       map[uint]*models.Friend{},
		messages:      map[uint]*models.Message{},
		notifications: map[uint]*models.Notification{},
	}
	return &Store{
		d:             d,
		Users:         &UserRepo{d},
		Letters:       &LetterRepo{d},
		Comments:      &CommentRepo{d},
		Likes:         &LikeRepo{d},
		Reposts:       &RepostRepo{d},
		Follows:       &FollowRepo{d},
		Friends:       &FriendRepo{d},
		Messages:      &MessageRepo{d},
		Notifications: &NotificationRepo{d},
	}
}

// SetClock fixes the timestamps given to new rows.
func (s *Store) SetClock(clock func() time.Time) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.clock = clock
}

// id hands out a strictly increasing id, shared across tables. Caller holds mu.
func (d *data) id() uint {
	d.nextID++
	return d.nextID
}

// now returns the clock, nudged forward so that rows created in one test stay ordered.
func (d *data) now() time.Time {
	return d.clock().Add(time.Duration(d.nextID) * time.Microsecond)
}

func sortedValues[T any](m map[uint]*T, keep func(*T) bool) []T {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v := m[id]; keep == nil || keep(v) {
			out = append(out, *v)
		}
	}
	return out
}

func page[T any](rows []T, p, limit int) []T {
	if p < 1 {
		p = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	start := (p - 1) * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
