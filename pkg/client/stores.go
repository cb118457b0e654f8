package client

import (
	"sort"
	"sync"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/realtime"
)

// AuthStore holds the session token and the signed-in user.
type AuthStore struct {
	mu    sync.RWMutex
	token string
	user  *models.User
}

func (s *AuthStore) Set(token string, user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

func (s *AuthStore) SetUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *AuthStore) Clear() {
	s.Set("", nil)
}

func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserID is 0 when signed out.
func (s *AuthStore) UserID() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return 0
	}
	return s.user.ID
}

func (s *AuthStore) LoggedIn() bool {
	return s.Token() != ""
}

// LetterStore caches letters by id in the order they were loaded.
type LetterStore struct {
	mu      sync.RWMutex
	order   []uint
	letters map[uint]models.LetterView
}

func NewLetterStore() *LetterStore {
	return &LetterStore{letters: make(map[uint]models.LetterView)}
}

// Put inserts or replaces letters, keeping the position of known ones.
func (s *LetterStore) Put(letters ...models.LetterView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range letters {
		if _, ok := s.letters[l.ID]; !ok {
			s.order = append(s.order, l.ID)
		}
		s.letters[l.ID] = l
	}
}

func (s *LetterStore) Get(id uint) (models.LetterView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.letters[id]
	return l, ok
}

func (s *LetterStore) Remove(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.letters[id]; !ok {
		return
	}
	delete(s.letters, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *LetterStore) List() []models.LetterView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LetterView, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.letters[id])
	}
	return out
}

// SetLiked records the caller's own toggle result.
func (s *LetterStore) SetLiked(id uint, state LikeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.letters[id]
	if !ok {
		return
	}
	l.IsLiked = state.Liked
	l.LikeCount = state.LikeCount
	s.letters[id] = l
}

// ApplyLikeUpdate overwrites the count with the server's absolute value.
// It reports whether the letter was cached.
func (s *LetterStore) ApplyLikeUpdate(u realtime.LikeUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.letters[u.LetterID]
	if !ok {
		return false
	}
	l.LikeCount = u.LikeCount
	s.letters[u.LetterID] = l
	return true
}

// ApplyNewComment bumps the comment count of a cached letter.
func (s *LetterStore) ApplyNewComment(c models.CommentView) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.letters[c.LetterID]
	if !ok {
		return false
	}
	l.CommentCount++
	s.letters[c.LetterID] = l
	return true
}

// ChatStore caches conversations and the message threads that were opened.
type ChatStore struct {
	mu            sync.RWMutex
	self          func() uint
	conversations map[uint]models.Conversation
	threads       map[uint][]models.Message
	open          uint
}

// NewChatStore takes a function returning the signed-in user id.
func NewChatStore(self func() uint) *ChatStore {
	return &ChatStore{
		self:          self,
		conversations: make(map[uint]models.Conversation),
		threads:       make(map[uint][]models.Message),
	}
}

func (s *ChatStore) SetConversations(convs []models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[uint]models.Conversation, len(convs))
	for _, c := range convs {
		s.conversations[c.User.ID] = c
	}
}

// Open loads a thread and marks it as the one being read, which zeroes its unread count.
func (s *ChatStore) Open(otherID uint, messages []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[otherID] = append([]models.Message(nil), messages...)
	s.open = otherID
	if c, ok := s.conversations[otherID]; ok {
		c.UnreadCount = 0
		s.conversations[otherID] = c
	}
}

func (s *ChatStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = 0
}

// ApplyNewMessage appends m to its thread and updates the conversation summary.
// Messages already seen are ignored, since the sender gets its own echo.
func (s *ChatStore) ApplyNewMessage(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me := s.self()
	other := m.SenderID
	if other == me {
		other = m.ReceiverID
	}

	thread := s.threads[other]
	for _, existing := range thread {
		if existing.ID == m.ID {
			return
		}
	}
	if _, loaded := s.threads[other]; loaded {
		s.threads[other] = append(thread, m)
	}

	c := s.conversations[other]
	c.User.ID = other
	c.LastMessage = m.Content
	c.LastSenderID = m.SenderID
	c.LastMessageAt = m.CreatedAt
	if m.ReceiverID == me && s.open != other {
		c.UnreadCount++
	}
	s.conversations[other] = c
}

func (s *ChatStore) Thread(otherID uint) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.threads[otherID]...)
}

// Conversations returns the summaries, most recent first.
func (s *ChatStore) Conversations() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}

func (s *ChatStore) UnreadTotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, c := range s.conversations {
		n += c.UnreadCount
	}
	return n
}

// NotificationStore keeps notifications newest first with an unread counter.
type NotificationStore struct {
	mu     sync.RWMutex
	items  []models.NotificationView
	unread int64
}

func (s *NotificationStore) Set(page *NotificationPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]models.NotificationView(nil), page.Notifications...)
	s.unread = page.UnreadCount
}

// ApplyNew prepends n unless it is already known.
func (s *NotificationStore) ApplyNew(n models.NotificationView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.ID == n.ID {
			return
		}
	}
	s.items = append([]models.NotificationView{n}, s.items...)
	if !n.IsRead {
		s.unread++
	}
}

// MarkRead flags ids as read locally, or all notifications when ids is empty.
func (s *NotificationStore) MarkRead(ids ...uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range s.items {
		if s.items[i].IsRead || (len(ids) > 0 && !want[s.items[i].ID]) {
			continue
		}
		s.items[i].IsRead = true
		if s.unread > 0 {
			s.unread--
		}
	}
	if len(ids) == 0 {
		s.unread = 0
	}
}

func (s *NotificationStore) Items() []models.NotificationView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.NotificationView(nil), s.items...)
}

func (s *NotificationStore) Unread() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}
