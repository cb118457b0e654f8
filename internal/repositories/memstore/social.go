package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/repositories"
)

type FriendRepo struct{ d *data }

// between must be called with mu held.
func (r *FriendRepo) between(a, b uint) *models.Friend {
	key := models.FriendPairKey(a, b)
	for _, f := range r.d.friends {
		if f.PairKey == key {
			return f
		}
	}
	return nil
}

func (r *FriendRepo) SendFriendRequest(_ context.Context, requesterID, recipientID uint) (*models.Friend, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if f := r.between(requesterID, recipientID); f != nil {
		switch f.Status {
		case models.FriendStatusPending:
			return nil, repositories.ErrFriendRequestPending
		case models.FriendStatusAccepted:
			return nil, repositories.ErrAlreadyFriends
		}
		f.RequesterID, f.RecipientID = requesterID, recipientID
		f.Status = models.FriendStatusPending
		f.UpdatedAt = r.d.now()
		out := *f
		return &out, nil
	}
	f := &models.Friend{
		ID:          r.d.id(),
		RequesterID: requesterID,
		RecipientID: recipientID,
		PairKey:     models.FriendPairKey(requesterID, recipientID),
		Status:      models.FriendStatusPending,
		CreatedAt:   r.d.now(),
	}
	f.UpdatedAt = f.CreatedAt
	r.d.friends[f.ID] = f
	out := *f
	return &out, nil
}

func (r *FriendRepo) GetBetween(_ context.Context, a, b uint) (*models.Friend, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f := r.between(a, b)
	if f == nil {
		return nil, repositories.ErrNotFound
	}
	out := *f
	return &out, nil
}

// pending must be called with mu held.
func (r *FriendRepo) pending(requesterID, recipientID uint) *models.Friend {
	f := r.between(requesterID, recipientID)
	if f == nil || f.Status != models.FriendStatusPending || f.RequesterID != requesterID {
		return nil
	}
	return f
}

func (r *FriendRepo) Accept(_ context.Context, requesterID, recipientID uint) (*models.Friend, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f := r.pending(requesterID, recipientID)
	if f == nil {
		return nil, repositories.ErrNoPendingRequest
	}
	f.Status = models.FriendStatusAccepted
	f.UpdatedAt = r.d.now()
	out := *f
	return &out, nil
}

func (r *FriendRepo) Decline(_ context.Context, requesterID, recipientID uint) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f := r.pending(requesterID, recipientID)
	if f == nil {
		return repositories.ErrNoPendingRequest
	}
	f.Status = models.FriendStatusRejected
	f.UpdatedAt = r.d.now()
	return nil
}

func (r *FriendRepo) Cancel(_ context.Context, requesterID, recipientID uint) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	f := r.pending(requesterID, recipientID)
	if f == nil {
		return repositories.ErrNoPendingRequest
	}
	delete(r.d.friends, f.ID)
	return nil
}

func (r *FriendRepo) GetUserFriends(_ context.Context, userID uint) ([]models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	ids := map[uint]bool{}
	for _, f := range r.d.friends {
		if f.Status == models.FriendStatusAccepted && (f.RequesterID == userID || f.RecipientID == userID) {
			ids[f.Other(userID)] = true
		}
	}
	out := sortedValues(r.d.users, func(u *models.User) bool { return ids[u.ID] })
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *FriendRepo) GetIncomingRequests(_ context.Context, userID uint) ([]models.Friend, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	out := sortedValues(r.d.friends, func(f *models.Friend) bool {
		return f.RecipientID == userID && f.Status == models.FriendStatusPending
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Count returns the number of friend rows.
func (r *FriendRepo) Count() int {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return len(r.d.friends)
}

type MessageRepo struct{ d *data }

func (r *MessageRepo) CreateMessage(_ context.Context, msg *models.Message) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	msg.ID = r.d.id()
	msg.CreatedAt = r.d.now()
	m := *msg
	r.d.messages[m.ID] = &m
	return nil
}

func isPair(m *models.Message, a, b uint) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func (r *MessageRepo) GetConversation(_ context.Context, a, b uint, limit int) ([]models.Message, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if limit < 1 || limit > 500 {
		limit = 100
	}
	out := sortedValues(r.d.messages, func(m *models.Message) bool { return isPair(m, a, b) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *MessageRepo) GetConversationPartners(_ context.Context, userID uint) ([]models.ConversationPartner, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	last := map[uint]time.Time{}
	for _, m := range r.d.messages {
		var other uint
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		if m.CreatedAt.After(last[other]) {
			last[other] = m.CreatedAt
		}
	}
	out := make([]models.ConversationPartner, 0, len(last))
	for id, at := range last {
		out = append(out, models.ConversationPartner{OtherID: id, LastMessageAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

func (r *MessageRepo) GetLastMessageBetween(_ context.Context, a, b uint) (*models.Message, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	all := sortedValues(r.d.messages, func(m *models.Message) bool { return isPair(m, a, b) })
	if len(all) == 0 {
		return nil, repositories.ErrNotFound
	}
	last := all[len(all)-1]
	return &last, nil
}

func (r *MessageRepo) CountUnreadFrom(_ context.Context, senderID, receiverID uint) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var n int64
	for _, m := range r.d.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) MarkRead(_ context.Context, senderID, receiverID uint) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var n int64
	for _, m := range r.d.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

type NotificationRepo struct{ d *data }

func (r *NotificationRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	n.ID = r.d.id()
	n.CreatedAt = r.d.now()
	row := *n
	r.d.notifications[row.ID] = &row
	return nil
}

// newestFirst must be called with mu held.
func (r *NotificationRepo) newestFirst(keep func(*models.Notification) bool) []models.Notification {
	out := sortedValues(r.d.notifications, keep)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *NotificationRepo) GetByRecipientID(_ context.Context, recipientID uint, p, limit int) ([]models.Notification, int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	all := r.newestFirst(func(n *models.Notification) bool { return n.UserID == recipientID })
	return page(all, p, limit), int64(len(all)), nil
}

func (r *NotificationRepo) GetGrouped(_ context.Context, recipientID uint, now time.Time) (today, yesterday, thisWeek, older []models.Notification, err error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)
	for _, n := range r.newestFirst(func(n *models.Notification) bool { return n.UserID == recipientID }) {
		switch {
		case !n.CreatedAt.Before(todayStart):
			today = append(today, n)
		case !n.CreatedAt.Before(yesterdayStart):
			yesterday = append(yesterday, n)
		case !n.CreatedAt.Before(weekStart):
			thisWeek = append(thisWeek, n)
		case len(older) < 50:
			older = append(older, n)
		}
	}
	return today, yesterday, thisWeek, older, nil
}

func (r *NotificationRepo) GetUnreadCount(_ context.Context, recipientID uint) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var n int64
	for _, row := range r.d.notifications {
		if row.UserID == recipientID && !row.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *NotificationRepo) MarkAsRead(_ context.Context, recipientID uint, ids []uint) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var n int64
	for _, id := range ids {
		if row, ok := r.d.notifications[id]; ok && row.UserID == recipientID && !row.IsRead {
			row.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *NotificationRepo) MarkAllAsRead(_ context.Context, recipientID uint) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var n int64
	for _, row := range r.d.notifications {
		if row.UserID == recipientID && !row.IsRead {
			row.IsRead = true
			n++
		}
	}
	return n, nil
}

// All returns every stored notification, oldest first.
func (r *NotificationRepo) All() []models.Notification {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return sortedValues(r.d.notifications, nil)
}
