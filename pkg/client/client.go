// Package client is a Go client for the Letterly API and its realtime channel.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("letterly: %d %s", e.Status, e.Message)
}

type errorBody struct {
	Message string `json:"message"`
}

// Client wraps the REST surface. The bearer token is read from Auth on every request.
type Client struct {
	http *resty.Client
	Auth *AuthStore
}

// New returns a client for baseURL, e.g. http://localhost:8080.
func New(baseURL string) *Client {
	auth := &AuthStore{}
	r := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/api").
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if token := auth.Token(); token != "" {
			req.SetAuthToken(token)
		}
		return nil
	})

	return &Client{http: r, Auth: auth}
}

// BaseURL is the server root without the /api prefix.
func (c *Client) BaseURL() string {
	return strings.TrimSuffix(c.http.BaseURL, "/api")
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		msg := http.StatusText(resp.StatusCode())
		if e, ok := resp.Error().(*errorBody); ok && e.Message != "" {
			msg = e.Message
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

// PageMeta is the pagination block of list responses.
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// LetterPage is one page of letters.
type LetterPage struct {
	Letters []models.LetterView `json:"letters"`
	Meta    PageMeta            `json:"meta"`
}

// LikeState is the answer of a like toggle.
type LikeState struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

// FollowState is the answer of a follow toggle.
type FollowState struct {
	Following      bool  `json:"following"`
	FollowersCount int64 `json:"followersCount"`
}

// NotificationPage is one page of notifications with the unread total.
type NotificationPage struct {
	Notifications []models.NotificationView `json:"notifications"`
	UnreadCount   int64                     `json:"unreadCount"`
	Meta          PageMeta                  `json:"meta"`
}

// Register creates an account and stores the returned session.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	var out models.AuthResponse
	body := models.RegisterRequest{Username: username, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	c.Auth.Set(out.Token, out.User)
	return out.User, nil
}

// Login authenticates and stores the returned session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.Auth.Set(out.Token, out.User)
	return out.User, nil
}

// Logout forgets the session locally.
func (c *Client) Logout() {
	c.Auth.Clear()
}

// Me reloads the current user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	c.Auth.SetUser(out.User)
	return out.User, nil
}

// CreateLetter publishes, drafts or schedules a letter.
func (c *Client) CreateLetter(ctx context.Context, req models.CreateLetterRequest) (*models.LetterView, error) {
	var out struct {
		Letter models.LetterView `json:"letter"`
	}
	if err := c.do(ctx, http.MethodPost, "/letters", req, &out); err != nil {
		return nil, err
	}
	return &out.Letter, nil
}

// GetLetter loads one letter.
func (c *Client) GetLetter(ctx context.Context, id uint) (*models.LetterView, error) {
	var out struct {
		Letter models.LetterView `json:"letter"`
	}
	if err := c.do(ctx, http.MethodGet, "/letters/"+idStr(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Letter, nil
}

// ListLetters reads one of the letter collections: public, feed, mine, drafts,
// scheduled, time-capsules or archived.
func (c *Client) ListLetters(ctx context.Context, collection string, page, limit int) (*LetterPage, error) {
	var out LetterPage
	path := fmt.Sprintf("/letters/%s?page=%d&limit=%d", collection, page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteLetter removes one of the caller's letters.
func (c *Client) DeleteLetter(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, "/letters/"+idStr(id), nil, nil)
}

// ToggleLike flips the caller's like on a letter.
func (c *Client) ToggleLike(ctx context.Context, letterID uint) (*LikeState, error) {
	var out LikeState
	if err := c.do(ctx, http.MethodPost, "/letters/"+idStr(letterID)+"/like", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Comment posts a comment on a letter.
func (c *Client) Comment(ctx context.Context, letterID uint, content string) (*models.CommentView, error) {
	var out struct {
		Comment models.CommentView `json:"comment"`
	}
	body := models.CreateCommentRequest{Content: content}
	if err := c.do(ctx, http.MethodPost, "/letters/"+idStr(letterID)+"/comments", body, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

// Comments lists the comments of a letter.
func (c *Client) Comments(ctx context.Context, letterID uint) ([]models.CommentView, error) {
	var out struct {
		Comments []models.CommentView `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/letters/"+idStr(letterID)+"/comments", nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

// ToggleFollow follows or unfollows a user.
func (c *Client) ToggleFollow(ctx context.Context, userID uint) (*FollowState, error) {
	var out FollowState
	if err := c.do(ctx, http.MethodPost, "/users/"+idStr(userID)+"/toggle", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendFriendRequest asks userID to become a friend.
func (c *Client) SendFriendRequest(ctx context.Context, userID uint) error {
	return c.do(ctx, http.MethodPost, "/friends/request", models.FriendActionRequest{UserID: userID}, nil)
}

// AcceptFriendRequest accepts the pending request sent by userID.
func (c *Client) AcceptFriendRequest(ctx context.Context, userID uint) error {
	return c.do(ctx, http.MethodPost, "/friends/accept", models.FriendActionRequest{UserID: userID}, nil)
}

// FriendStatus reports none, pending_sent, pending_received or friends.
func (c *Client) FriendStatus(ctx context.Context, userID uint) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/friends/status/"+idStr(userID), nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// Friends lists the caller's accepted friends.
func (c *Client) Friends(ctx context.Context) ([]models.UserCompact, error) {
	var out struct {
		Friends []models.UserCompact `json:"friends"`
	}
	if err := c.do(ctx, http.MethodGet, "/friends", nil, &out); err != nil {
		return nil, err
	}
	return out.Friends, nil
}

// SendMessage sends a direct message.
func (c *Client) SendMessage(ctx context.Context, receiverID uint, content string) (*models.Message, error) {
	var out struct {
		Message models.Message `json:"message"`
	}
	body := models.SendMessageRequest{ReceiverID: receiverID, Content: content}
	if err := c.do(ctx, http.MethodPost, "/messages/send", body, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// Messages loads the exchange with otherUserID, oldest first.
func (c *Client) Messages(ctx context.Context, otherUserID uint) ([]models.Message, error) {
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages/"+idStr(otherUserID), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Conversations lists the caller's conversations, most recent first.
func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var out struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// MarkMessagesRead marks everything otherUserID sent to the caller as read.
func (c *Client) MarkMessagesRead(ctx context.Context, otherUserID uint) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, "/messages/read", models.MarkReadRequest{OtherUserID: otherUserID}, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

// Notifications loads one page of notifications.
func (c *Client) Notifications(ctx context.Context, page, limit int) (*NotificationPage, error) {
	var out NotificationPage
	path := fmt.Sprintf("/notifications?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkNotificationsRead marks ids as read, or every notification when ids is empty.
func (c *Client) MarkNotificationsRead(ctx context.Context, ids ...uint) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPut, "/notifications/read", models.MarkNotificationsReadRequest{IDs: ids}, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

func idStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
