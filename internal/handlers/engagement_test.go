package handlers

import (
	"net/http"
	"testing"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeToggleParity(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")
	_, bob := h.user(t, "bob")
	letterID := h.letter(t, alice, echo.Map{"title": "t", "content": "x", "isPublic": true})
	path := "/api/letters/" + id(letterID) + "/like"

	for n := 1; n <= 5; n++ {
		rec := h.do(t, http.MethodPost, path, bob, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var out struct {
			Liked     bool  `json:"liked"`
			LikeCount int64 `json:"likeCount"`
		}
		decode(t, rec, &out)
		assert.Equal(t, n%2 == 1, out.Liked, "toggle %d", n)
		assert.Equal(t, int64(n%2), out.LikeCount, "toggle %d", n)
	}

	// only creating calls notify: toggles 1, 3 and 5
	assert.Len(t, h.store.Notifications.All(), 3)

	updates := h.emits.on(realtime.LetterChannel(letterID), realtime.EventLikeUpdate)
	require.Len(t, updates, 5)
	assert.Equal(t, realtime.LikeUpdate{LetterID: letterID, LikeCount: 1}, updates[4].Payload)
}

func TestFirstLikeResponse(t *testing.T) {
	h := newHarness(t)
	owner, alice := h.user(t, "alice")
	liker, bob := h.user(t, "bob")
	letterID := h.letter(t, alice, echo.Map{"title": "t", "content": "x", "isPublic": true})

	rec := h.do(t, http.MethodPost, "/api/letters/"+id(letterID)+"/like", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"liked":true,"likeCount":1}`, rec.Body.String())

	notes := h.store.Notifications.All()
	require.Len(t, notes, 1)
	assert.Equal(t, owner.ID, notes[0].UserID)
	assert.Equal(t, liker.ID, notes[0].ActorID)
	assert.Equal(t, models.LetterTarget{Type: models.NotificationLike, LetterID: letterID}, notes[0].Target())
	assert.Len(t, h.emits.on(realtime.UserChannel(owner.ID), realtime.EventNewNotification), 1)

	var likes struct {
		Users     []models.UserCompact `json:"users"`
		LikeCount int                  `json:"likeCount"`
		IsLiked   bool                 `json:"isLiked"`
	}
	decode(t, h.do(t, http.MethodGet, "/api/letters/"+id(letterID)+"/likes", bob, nil), &likes)
	assert.Equal(t, 1, likes.LikeCount)
	assert.True(t, likes.IsLiked)
	require.Len(t, likes.Users, 1)
	assert.Equal(t, "bob", likes.Users[0].Username)

	var list letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/public", bob, nil), &list)
	require.Len(t, list.Letters, 1)
	assert.Equal(t, int64(1), list.Letters[0].LikeCount)
	assert.True(t, list.Letters[0].IsLiked)
}

func TestOwnLikeDoesNotNotify(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")
	letterID := h.letter(t, alice, echo.Map{"title": "t", "content": "x", "isPublic": true})

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/letters/"+id(letterID)+"/like", alice, nil).Code)
	assert.Empty(t, h.store.Notifications.All())
}

func TestLikeHiddenLetter(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")
	_, bob := h.user(t, "bob")
	letterID := h.letter(t, alice, echo.Map{"title": "t", "content": "x"})

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/api/letters/"+id(letterID)+"/like", bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/api/letters/999/like", bob, nil).Code)
}

func TestCommentOnMissingLetter(t *testing.T) {
	h := newHarness(t)
	_, bob := h.user(t, "bob")

	rec := h.do(t, http.MethodPost, "/api/letters/42/comments", bob, echo.Map{"content": "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, h.store.Comments.Count())
	assert.Empty(t, h.store.Notifications.All())
}

func TestCommentFlow(t *testing.T) {
	h := newHarness(t)
	owner, alice := h.user(t, "alice")
	_, bob := h.user(t, "bob")
	_, carol := h.user(t, "carol")
	letterID := h.letter(t, alice, echo.Map{"title": "t", "content": "x", "isPublic": true})
	base := "/api/letters/" + id(letterID) + "/comments"

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, base, bob, echo.Map{"content": ""}).Code)

	rec := h.do(t, http.MethodPost, base, bob, echo.Map{"content": "lovely"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Comment models.CommentView `json:"comment"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "lovely", created.Comment.Content)
	assert.Equal(t, "bob", created.Comment.Author.Username)

	pushed := h.emits.on(realtime.LetterChannel(letterID), realtime.EventNewComment)
	require.Len(t, pushed, 1)
	assert.Equal(t, "lovely", pushed[0].Payload.(models.CommentView).Content)

	notes := h.store.Notifications.All()
	require.Len(t, notes, 1)
	assert.Equal(t, owner.ID, notes[0].UserID)
	assert.Equal(t, models.NotificationComment, notes[0].Type)

	var list struct {
		Comments []models.CommentView `json:"comments"`
	}
	decode(t, h.do(t, http.MethodGet, base, "", nil), &list)
	require.Len(t, list.Comments, 1)
	assert.Equal(t, "bob", list.Comments[0].Author.Username)

	commentPath := base + "/" + id(created.Comment.ID)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodDelete, commentPath, carol, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodDelete, commentPath, alice, nil).Code, "letter owner may moderate")
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, commentPath, bob, nil).Code)
	assert.Equal(t, 0, h.store.Comments.Count())
}

func TestRepostToggle(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")
	_, bob := h.user(t, "bob")
	letterID := h.letter(t, alice, echo.Map{"title": "t", "content": "x", "isPublic": true})
	base := "/api/letters/" + id(letterID) + "/repost"

	rec := h.do(t, http.MethodPost, base, bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reposted":true,"repostCount":1}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, base+"/status", bob, nil)
	assert.JSONEq(t, `{"reposted":true,"repostCount":1}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, base, bob, nil)
	assert.JSONEq(t, `{"reposted":false,"repostCount":0}`, rec.Body.String())
}
