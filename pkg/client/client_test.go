package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/letterly/backend/internal/auth"
	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/anonto42/letterly/backend/internal/repositories/memstore"
	"github.com/anonto42/letterly/backend/internal/router"
	"github.com/anonto42/letterly/backend/internal/storage"
	"github.com/anonto42/letterly/backend/pkg/config"
	"github.com/anonto42/letterly/backend/pkg/logger"
	"github.com/anonto42/letterly/backend/validators"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init(logger.Config{Level: "error", Output: io.Discard})
}

// newServer runs the full API with in-memory repositories and a live hub.
func newServer(t *testing.T) string {
	t.Helper()

	store := memstore.New()
	disk, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Serve(ctx) }()

	e := echo.New()
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = config.NewHTTPErrorHandler(false)
	router.SetupRoutes(e, router.Repositories{
		Users:         store.Users,
		Letters:       store.Letters,
		Comments:      store.Comments,
		Likes:         store.Likes,
		Reposts:       store.Reposts,
		Follows:       store.Follows,
		Friends:       store.Friends,
		Messages:      store.Messages,
		Notifications: store.Notifications,
	}, router.Options{
		Tokens:         auth.NewTokenManager("client-test", time.Hour),
		Hub:            hub,
		Media:          disk,
		MaxUploadBytes: 1 << 20,
	})

	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv.URL
}

func signUp(t *testing.T, base, name string) *Client {
	t.Helper()
	c := New(base)
	_, err := c.Register(context.Background(), name, name+"@example.com", "secret123")
	require.NoError(t, err)
	return c
}

func publicLetter(t *testing.T, c *Client, title string) *models.LetterView {
	t.Helper()
	l, err := c.CreateLetter(context.Background(), models.CreateLetterRequest{
		Title:    title,
		Content:  "hello",
		IsPublic: true,
	})
	require.NoError(t, err)
	return l
}

func TestClient_AuthFlow(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()

	alice := signUp(t, base, "alice")
	assert.True(t, alice.Auth.LoggedIn())
	assert.NotZero(t, alice.Auth.UserID())

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	_, err = New(base).Register(ctx, "alice", "other@example.com", "secret123")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Username or email already registered", apiErr.Message)

	fresh := New(base)
	_, err = fresh.Login(ctx, "alice@example.com", "wrong-password")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.False(t, fresh.Auth.LoggedIn())

	_, err = fresh.Login(ctx, "ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, alice.Auth.UserID(), fresh.Auth.UserID())

	fresh.Logout()
	_, err = fresh.Me(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestClient_LettersLikesAndComments(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	alice := signUp(t, base, "alice")
	bob := signUp(t, base, "bob")

	letter := publicLetter(t, alice, "first")

	page, err := bob.ListLetters(ctx, "public", 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Letters, 1)
	assert.Equal(t, letter.ID, page.Letters[0].ID)
	assert.EqualValues(t, 1, page.Meta.Total)

	store := NewLetterStore()
	store.Put(page.Letters...)

	state, err := bob.ToggleLike(ctx, letter.ID)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.EqualValues(t, 1, state.LikeCount)
	store.SetLiked(letter.ID, *state)

	cached, ok := store.Get(letter.ID)
	require.True(t, ok)
	assert.True(t, cached.IsLiked)
	assert.EqualValues(t, 1, cached.LikeCount)

	_, err = bob.Comment(ctx, letter.ID, "lovely")
	require.NoError(t, err)
	comments, err := alice.Comments(ctx, letter.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "bob", comments[0].Author.Username)

	notes, err := alice.Notifications(ctx, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, notes.UnreadCount)

	updated, err := alice.MarkNotificationsRead(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	require.NoError(t, alice.DeleteLetter(ctx, letter.ID))
	_, err = bob.GetLetter(ctx, letter.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClient_FriendsAndMessages(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	alice := signUp(t, base, "alice")
	bob := signUp(t, base, "bob")

	require.NoError(t, alice.SendFriendRequest(ctx, bob.Auth.UserID()))
	status, err := bob.FriendStatus(ctx, alice.Auth.UserID())
	require.NoError(t, err)
	assert.Equal(t, "pending_received", status)

	require.NoError(t, bob.AcceptFriendRequest(ctx, alice.Auth.UserID()))
	status, err = alice.FriendStatus(ctx, bob.Auth.UserID())
	require.NoError(t, err)
	assert.Equal(t, "friends", status)

	friends, err := bob.Friends(ctx)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "alice", friends[0].Username)

	_, err = alice.SendMessage(ctx, bob.Auth.UserID(), "hi bob")
	require.NoError(t, err)

	convs, err := bob.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "hi bob", convs[0].LastMessage)
	assert.EqualValues(t, 1, convs[0].UnreadCount)

	n, err := bob.MarkMessagesRead(ctx, alice.Auth.UserID())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	thread, err := bob.Messages(ctx, alice.Auth.UserID())
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.True(t, thread[0].IsRead)
}

func TestSocket_LiveEventsReachStores(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	alice := signUp(t, base, "alice")
	bob := signUp(t, base, "bob")
	letter := publicLetter(t, alice, "live")

	letters := NewLetterStore()
	letters.Put(*letter)
	chat := NewChatStore(alice.Auth.UserID)
	notes := &NotificationStore{}

	sock, err := NewSocket(alice)
	require.NoError(t, err)
	sock.Bind(letters, chat, notes)

	joined := make(chan string, 4)
	sock.On(realtime.EventJoined, func(_ string, data json.RawMessage) {
		var d realtime.ChannelData
		if json.Unmarshal(data, &d) == nil {
			joined <- d.Channel
		}
	})
	require.NoError(t, sock.JoinUser(alice.Auth.UserID()))
	require.NoError(t, sock.JoinLetter(letter.ID))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = sock.Run(runCtx) }()

	got := map[string]bool{}
	for len(got) < 2 {
		select {
		case ch := <-joined:
			got[ch] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("joined only %v", got)
		}
	}

	_, err = bob.ToggleLike(ctx, letter.ID)
	require.NoError(t, err)
	_, err = bob.SendMessage(ctx, alice.Auth.UserID(), "psst")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		l, _ := letters.Get(letter.ID)
		return l.LikeCount == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return chat.UnreadTotal() == 1
	}, 5*time.Second, 20*time.Millisecond)
	convs := chat.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, "psst", convs[0].LastMessage)
	assert.Equal(t, bob.Auth.UserID(), convs[0].User.ID)

	require.Eventually(t, func() bool {
		return notes.Unread() == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, models.NotificationLike, notes.Items()[0].Type)
	assert.Equal(t, letter.ID, notes.Items()[0].LetterID)
}

func TestNewSocket_Endpoint(t *testing.T) {
	s, err := NewSocket(New("https://letters.example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "wss://letters.example.com/ws", s.endpoint)

	s, err = NewSocket(New("http://127.0.0.1:8080"))
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8080/ws", s.endpoint)
}
