package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type letterList struct {
	Letters []struct {
		ID        uint   `json:"id"`
		UserID    uint   `json:"userId"`
		Title     string `json:"title"`
		Content   string `json:"content"`
		Status    string `json:"status"`
		Sealed    bool   `json:"sealed"`
		LikeCount int64  `json:"likeCount"`
		IsLiked   bool   `json:"isLiked"`
		Author    *struct {
			Username string `json:"username"`
		} `json:"author"`
	} `json:"letters"`
	Meta struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

func (l letterList) ids() []uint {
	out := make([]uint, 0, len(l.Letters))
	for _, x := range l.Letters {
		out = append(out, x.ID)
	}
	return out
}

func TestCreateLetterDefaultsToPublished(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "alice")

	rec := h.do(t, http.MethodPost, "/api/letters", token, echo.Map{"title": "Hi", "content": "Dear you", "isPublic": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	letter := body(t, rec)["letter"].(map[string]interface{})
	assert.Equal(t, "published", letter["status"])
	assert.Equal(t, float64(0), letter["likeCount"])
}

func TestCreateLetterValidation(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "alice")

	cases := []struct {
		name string
		req  echo.Map
	}{
		{"missing title", echo.Map{"content": "x"}},
		{"missing content", echo.Map{"title": "x"}},
		{"scheduled without date", echo.Map{"title": "x", "content": "y", "status": "scheduled"}},
		{"capsule without open date", echo.Map{"title": "x", "content": "y", "isTimeCapsule": true}},
		{"unknown status", echo.Map{"title": "x", "content": "y", "status": "sent"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/letters", token, tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := h.do(t, http.MethodPost, "/api/letters", token, echo.Map{"title": "draft", "status": "draft"})
	assert.Equal(t, http.StatusCreated, rec.Code, "drafts may be empty")
}

func TestCreateLetterRequiresAuth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/letters", "", echo.Map{"title": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/letters", "garbage", echo.Map{"title": "x", "content": "y"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFutureScheduledDateMakesLetterScheduled(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "alice")

	letterID := h.letter(t, token, echo.Map{"title": "later", "content": "soon", "scheduledDate": h.now.Add(time.Hour)})

	var scheduled letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/scheduled", token, nil), &scheduled)
	assert.Equal(t, []uint{letterID}, scheduled.ids())

	var mine letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/mine", token, nil), &mine)
	assert.Empty(t, mine.Letters)
}

func TestPublicListingExcludesPrivateAndDrafts(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")

	public := h.letter(t, alice, echo.Map{"title": "open", "content": "x", "isPublic": true})
	h.letter(t, alice, echo.Map{"title": "secret", "content": "x"})
	h.letter(t, alice, echo.Map{"title": "wip", "status": "draft", "isPublic": true})

	var list letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/public", "", nil), &list)
	assert.Equal(t, []uint{public}, list.ids())
	assert.Equal(t, int64(1), list.Meta.Total)

	var drafts letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/drafts", alice, nil), &drafts)
	require.Len(t, drafts.Letters, 1)
	assert.Equal(t, "wip", drafts.Letters[0].Title)
}

func TestListFiltersByType(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")

	poem := h.letter(t, alice, echo.Map{"title": "a", "content": "x", "type": "poem", "isPublic": true})
	h.letter(t, alice, echo.Map{"title": "b", "content": "x", "type": "thanks", "isPublic": true})

	var list letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/public?type=poem", "", nil), &list)
	assert.Equal(t, []uint{poem}, list.ids())
	assert.Equal(t, int64(1), list.Meta.Total)
}

func TestGetLetterVisibility(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")
	_, bob := h.user(t, "bob")

	private := h.letter(t, alice, echo.Map{"title": "secret", "content": "x"})

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/letters/"+id(private), alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/letters/"+id(private), bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/letters/"+id(private), "", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/letters/999", alice, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/letters/abc", alice, nil).Code)
}

func TestAnonymousLetterHidesAuthor(t *testing.T) {
	h := newHarness(t)
	owner, alice := h.user(t, "alice")
	_, bob := h.user(t, "bob")

	letterID := h.letter(t, alice, echo.Map{"title": "anon", "content": "x", "isPublic": true, "isAnonymous": true})

	asBob := body(t, h.do(t, http.MethodGet, "/api/letters/"+id(letterID), bob, nil))["letter"].(map[string]interface{})
	assert.Nil(t, asBob["author"])
	assert.Nil(t, asBob["userId"])

	asOwner := body(t, h.do(t, http.MethodGet, "/api/letters/"+id(letterID), alice, nil))["letter"].(map[string]interface{})
	assert.Equal(t, float64(owner.ID), asOwner["userId"])
	assert.NotNil(t, asOwner["author"])
}

func TestTimeCapsuleSealedForOthers(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")
	_, bob := h.user(t, "bob")

	letterID := h.letter(t, alice, echo.Map{
		"title":         "future",
		"content":       "open me later",
		"isPublic":      true,
		"isTimeCapsule": true,
		"openDate":      h.now.Add(24 * time.Hour),
	})

	asBob := body(t, h.do(t, http.MethodGet, "/api/letters/"+id(letterID), bob, nil))["letter"].(map[string]interface{})
	assert.Equal(t, true, asBob["sealed"])
	assert.Equal(t, "", asBob["content"])

	asOwner := body(t, h.do(t, http.MethodGet, "/api/letters/"+id(letterID), alice, nil))["letter"].(map[string]interface{})
	assert.Equal(t, false, asOwner["sealed"])
	assert.Equal(t, "open me later", asOwner["content"])

	var capsules letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/time-capsules", alice, nil), &capsules)
	assert.Equal(t, []uint{letterID}, capsules.ids())
}

func TestUpdateLetterOwnerOnly(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")
	_, bob := h.user(t, "bob")

	letterID := h.letter(t, alice, echo.Map{"title": "v1", "content": "body", "isPublic": true})

	rec := h.do(t, http.MethodPut, "/api/letters/"+id(letterID), bob, echo.Map{"title": "hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPut, "/api/letters/"+id(letterID), alice, echo.Map{"title": "v2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	letter := body(t, rec)["letter"].(map[string]interface{})
	assert.Equal(t, "v2", letter["title"])
	assert.Equal(t, "body", letter["content"], "absent fields are untouched")
	assert.Equal(t, true, letter["isPublic"])
}

func TestArchiveToggle(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")
	letterID := h.letter(t, alice, echo.Map{"title": "old", "content": "x", "isPublic": true})

	rec := h.do(t, http.MethodPost, "/api/letters/"+id(letterID)+"/archive", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body(t, rec)["isArchived"])

	var archived, public letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/archived", alice, nil), &archived)
	decode(t, h.do(t, http.MethodGet, "/api/letters/public", "", nil), &public)
	assert.Equal(t, []uint{letterID}, archived.ids())
	assert.Empty(t, public.Letters)

	rec = h.do(t, http.MethodPost, "/api/letters/"+id(letterID)+"/archive", alice, nil)
	assert.Equal(t, false, body(t, rec)["isArchived"])
}

func TestDeleteLetterCascades(t *testing.T) {
	h := newHarness(t)
	_, alice := h.user(t, "alice")
	_, bob := h.user(t, "bob")
	letterID := h.letter(t, alice, echo.Map{"title": "t", "content": "x", "isPublic": true})

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/letters/"+id(letterID)+"/comments", bob, echo.Map{"content": "nice"}).Code)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/letters/"+id(letterID)+"/like", bob, nil).Code)
	require.Len(t, h.store.Notifications.All(), 2)

	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodDelete, "/api/letters/"+id(letterID), bob, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodDelete, "/api/letters/"+id(letterID), alice, nil).Code)

	assert.Equal(t, 0, h.store.Comments.Count())
	assert.Empty(t, h.store.Notifications.All())
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/letters/"+id(letterID), alice, nil).Code)
}

func TestFeedShowsFollowedUsers(t *testing.T) {
	h := newHarness(t)
	alice, aliceToken := h.user(t, "alice")
	_, bobToken := h.user(t, "bob")
	_, carolToken := h.user(t, "carol")

	var empty letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/feed", bobToken, nil), &empty)
	assert.Empty(t, empty.Letters)

	fromAlice := h.letter(t, aliceToken, echo.Map{"title": "a", "content": "x", "isPublic": true})
	h.letter(t, aliceToken, echo.Map{"title": "private", "content": "x"})
	h.letter(t, carolToken, echo.Map{"title": "c", "content": "x", "isPublic": true})

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/users/"+id(alice.ID)+"/toggle", bobToken, nil).Code)

	var feed letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/feed", bobToken, nil), &feed)
	assert.Equal(t, []uint{fromAlice}, feed.ids())
	require.NotNil(t, feed.Letters[0].Author)
	assert.Equal(t, "alice", feed.Letters[0].Author.Username)
}

func TestFeedSkipsAnonymousLetters(t *testing.T) {
	h := newHarness(t)
	alice, aliceToken := h.user(t, "alice")
	_, bobToken := h.user(t, "bob")

	signed := h.letter(t, aliceToken, echo.Map{"title": "signed", "content": "x", "isPublic": true})
	h.letter(t, aliceToken, echo.Map{"title": "unsigned", "content": "x", "isPublic": true, "isAnonymous": true})
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/users/"+id(alice.ID)+"/toggle", bobToken, nil).Code)

	var feed letterList
	decode(t, h.do(t, http.MethodGet, "/api/letters/feed", bobToken, nil), &feed)
	assert.Equal(t, []uint{signed}, feed.ids())
	assert.EqualValues(t, 1, feed.Meta.Total)
}

func TestListPagingIsClamped(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "alice")
	first := h.letter(t, token, echo.Map{"title": "one", "content": "x", "isPublic": true})

	rec := h.do(t, http.MethodGet, "/api/letters/public?page=0&limit=500", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Meta struct {
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	decode(t, rec, &out)
	assert.Equal(t, 1, out.Meta.Page)
	assert.Equal(t, 20, out.Meta.Limit)
	assert.EqualValues(t, 1, out.Meta.Total)

	var letters letterList
	decode(t, rec, &letters)
	assert.Equal(t, []uint{first}, letters.ids())
}
