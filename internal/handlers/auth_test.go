package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngPixel, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/auth/register", "", echo.Map{"username": "alice", "email": "Alice@Example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg models.AuthResponse
	decode(t, rec, &reg)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "alice", reg.User.Username)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.NotContains(t, rec.Body.String(), "secret1")

	claims, err := h.tokens.Parse(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)

	rec = h.do(t, http.MethodPost, "/api/auth/register", "", echo.Map{"username": "alice", "email": "other@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(t, http.MethodPost, "/api/auth/register", "", echo.Map{"username": "al", "email": "x@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/auth/login", "", echo.Map{"email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login models.AuthResponse
	decode(t, rec, &login)
	assert.Equal(t, reg.User.ID, login.User.ID)

	for _, creds := range []echo.Map{
		{"email": "alice@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "secret1"},
	} {
		rec = h.do(t, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid credentials", body(t, rec)["message"])
	}

	rec = h.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", body(t, rec)["user"].(map[string]interface{})["username"])
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for k, data := range files {
		part, err := w.CreateFormFile(k, k+".bin")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func TestUpdateProfileWithAvatar(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "alice")

	req := multipartRequest(t, http.MethodPut, "/api/auth/profile", token,
		map[string]string{"bio": "writer", "location": "Dhaka"},
		map[string][]byte{"avatar": pngPixel})
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		User models.User `json:"user"`
	}
	decode(t, rec, &out)
	assert.Equal(t, "writer", out.User.Bio)
	assert.Equal(t, "Dhaka", out.User.Location)
	assert.Equal(t, "alice", out.User.Username)
	require.True(t, strings.HasPrefix(out.User.Avatar, "/uploads/"), out.User.Avatar)
	assert.Empty(t, out.User.CoverImage)

	served := h.do(t, http.MethodGet, out.User.Avatar, "", nil)
	require.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "image/png", served.Header().Get(echo.HeaderContentType))
	assert.Equal(t, pngPixel, served.Body.Bytes())
}

func TestUploadRejectsNonImages(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "alice")

	req := multipartRequest(t, http.MethodPost, "/api/uploads", token, nil, map[string][]byte{"file": []byte("#!/bin/sh\necho hi\n")})
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = multipartRequest(t, http.MethodPost, "/api/uploads", token, nil, map[string][]byte{"file": pngPixel})
	rec = httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(body(t, rec)["url"].(string), "/uploads/"))

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/uploads/missing.png", "", nil).Code)
}

type fakeVerifier struct {
	identity *firebase.Identity
}

func (f fakeVerifier) Verify(_ context.Context, idToken string) (*firebase.Identity, error) {
	if idToken != "good" {
		return nil, errors.New("bad token")
	}
	return f.identity, nil
}

func TestFirebaseLogin(t *testing.T) {
	h := newHarness(t)
	existing, _ := h.user(t, "alice")

	auth := NewAuthHandler(h.store.Users, h.tokens, nil, fakeVerifier{&firebase.Identity{UID: "fb-1", Email: existing.Email}})
	g := h.e.Group("/fb")
	auth.RegisterAuthRoutes(g, func(next echo.HandlerFunc) echo.HandlerFunc { return next })

	rec := h.do(t, http.MethodPost, "/fb/firebase-login", "", echo.Map{"idToken": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/fb/firebase-login", "", echo.Map{"idToken": "good"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out models.AuthResponse
	decode(t, rec, &out)
	assert.Equal(t, existing.ID, out.User.ID, "linked by email")

	linked, err := h.store.Users.GetUserByFirebaseUID(context.Background(), "fb-1")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)

	newcomer := NewAuthHandler(h.store.Users, h.tokens, nil, fakeVerifier{&firebase.Identity{UID: "fb-2", Email: "zed@example.com", Name: "Zed Q."}})
	newcomer.RegisterAuthRoutes(h.e.Group("/fb2"), func(next echo.HandlerFunc) echo.HandlerFunc { return next })
	rec = h.do(t, http.MethodPost, "/fb2/firebase-login", "", echo.Map{"idToken": "good"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &out)
	assert.Equal(t, "zedq", out.User.Username)
}

func TestFirebaseLoginNotRegisteredWithoutVerifier(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/auth/firebase-login", "", echo.Map{"idToken": "good"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsernameFrom(t *testing.T) {
	assert.Equal(t, "jane", usernameFrom(&firebase.Identity{Email: "jane@example.com"}))
	assert.Equal(t, "jo0", usernameFrom(&firebase.Identity{Name: "Jo"}))
	assert.Equal(t, "rene", usernameFrom(&firebase.Identity{Name: "Renée!", Email: "r@x.io"}))
}

func TestHealthCheck(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"letterly-api"}`, rec.Body.String())
}
