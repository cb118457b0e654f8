package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/letterly/backend/internal/auth"
	"github.com/anonto42/letterly/backend/internal/middleware"
	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/notify"
	"github.com/anonto42/letterly/backend/internal/repositories/memstore"
	"github.com/anonto42/letterly/backend/internal/storage"
	"github.com/anonto42/letterly/backend/pkg/config"
	"github.com/anonto42/letterly/backend/pkg/logger"
	"github.com/anonto42/letterly/backend/validators"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init(logger.Config{Level: "error", Output: io.Discard})
}

type emitted struct {
	Channel string
	Event   string
	Payload interface{}
}

// recorder captures realtime emits.
type recorder struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recorder) Emit(channel, event string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{channel, event, payload})
	return nil
}

func (r *recorder) on(channel, event string) []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []emitted
	for _, e := range r.events {
		if e.Channel == channel && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	e      *echo.Echo
	store  *memstore.Store
	tokens *auth.TokenManager
	emits  *recorder
	media  storage.Store
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memstore.New()
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	disk, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	h := &harness{
		e:      echo.New(),
		store:  store,
		tokens: auth.NewTokenManager("test-secret", time.Hour),
		emits:  &recorder{},
		media:  disk,
		now:    now,
	}
	h.e.Validator = validators.NewValidator()
	h.e.HTTPErrorHandler = config.NewHTTPErrorHandler(false)

	requireAuth := middleware.JWTAuth(h.tokens)
	optionalAuth := middleware.OptionalJWTAuth(h.tokens)
	notifier := notify.NewDispatcher(store.Notifications, store.Users, h.emits)

	api := h.e.Group("/api")
	media := NewMediaHandler(disk, 1<<20)
	media.RegisterMediaRoutes(api, h.e, requireAuth)
	NewAuthHandler(store.Users, h.tokens, media, nil).RegisterAuthRoutes(api.Group("/auth"), requireAuth)

	letters := api.Group("/letters")
	lh := NewLetterHandler(store.Letters, store.Users, store.Comments, store.Likes, store.Reposts, store.Follows)
	lh.presenter.now = func() time.Time { return now }
	lh.RegisterLetterRoutes(letters, requireAuth, optionalAuth)
	NewCommentHandler(store.Comments, store.Letters, store.Users, notifier).RegisterCommentRoutes(letters, requireAuth, optionalAuth)
	NewLikeHandler(store.Likes, store.Letters, store.Users, notifier).RegisterLikeRoutes(letters, requireAuth, optionalAuth)
	NewRepostHandler(store.Reposts, store.Letters).RegisterRepostRoutes(letters, requireAuth)

	users := api.Group("/users")
	NewUserHandler(store.Users, store.Follows, lh).RegisterUserRoutes(users, optionalAuth)
	NewFollowHandler(store.Follows, store.Users, notifier).RegisterFollowRoutes(users, requireAuth, optionalAuth)

	NewFriendshipHandler(store.Friends, store.Users, notifier).RegisterFriendshipRoutes(api.Group("/friends", requireAuth))
	NewMessageHandler(store.Messages, store.Users, notifier).RegisterMessageRoutes(api.Group("/messages", requireAuth))
	nh := NewNotificationHandler(store.Notifications, store.Users)
	nh.now = func() time.Time { return now }
	nh.RegisterNotificationRoutes(api.Group("/notifications", requireAuth))

	h.e.GET("/health", HealthCheck)
	return h
}

// user creates an account directly in the store and returns it with a valid token.
func (h *harness) user(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com"}
	require.NoError(t, h.store.Users.CreateUser(context.Background(), u))
	token, err := h.tokens.Issue(u)
	require.NoError(t, err)
	return u, token
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

// letter creates a letter through the API and returns its id.
func (h *harness) letter(t *testing.T, token string, body echo.Map) uint {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/letters", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Letter struct {
			ID uint `json:"id"`
		} `json:"letter"`
	}
	decode(t, rec, &out)
	return out.Letter.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func body(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	decode(t, rec, &out)
	return out
}

func id(n uint) string { return strconv.FormatUint(uint64(n), 10) }
