package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/anonto42/letterly/backend/pkg/firebase"
	"github.com/anonto42/letterly/backend/pkg/logger"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs session tokens for users.
type TokenIssuer interface {
	Issue(user *models.User) (string, error)
}

// FirebaseVerifier checks a Firebase ID token.
type FirebaseVerifier interface {
	Verify(ctx context.Context, idToken string) (*firebase.Identity, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	tokens         TokenIssuer
	media          *MediaHandler
	firebase       FirebaseVerifier
}

// NewAuthHandler creates a new AuthHandler. verifier may be nil, in which case
// federated login is not offered.
func NewAuthHandler(userRepo repositories.UserRepository, tokens TokenIssuer, media *MediaHandler, verifier FirebaseVerifier) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		tokens:         tokens,
		media:          media,
		firebase:       verifier,
	}
}

// RegisterAuthRoutes registers authentication-related routes on the /api/auth group.
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/me", h.Me, requireAuth)
	g.PUT("/profile", h.UpdateProfile, requireAuth)
	if h.firebase != nil {
		g.POST("/firebase-login", h.FirebaseLogin)
	}
}

// Register handles local user registration with email and password
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return internalError("Failed to hash password", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    strings.ToLower(req.Email),
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(c.Request().Context(), user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return echo.NewHTTPError(http.StatusBadRequest, "Username or email already registered")
		}
		return internalError("Failed to create user", err)
	}

	return h.respondWithToken(c, http.StatusCreated, user)
}

// Login handles local user authentication with email and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid credentials")
		}
		return internalError("Failed to load user", err)
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid credentials")
	}

	return h.respondWithToken(c, http.StatusOK, user)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return notFoundOr(err, "User")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// UpdateProfile applies the multipart profile form. Empty fields are left unchanged.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "User")
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Location != "" {
		user.Location = req.Location
	}

	if url, err := h.media.storeFormFile(c, "avatar"); err != nil {
		return err
	} else if url != "" {
		user.Avatar = url
	}
	if url, err := h.media.storeFormFile(c, "coverImage"); err != nil {
		return err
	} else if url != "" {
		user.CoverImage = url
	}

	if err := h.userRepository.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return echo.NewHTTPError(http.StatusBadRequest, "Username already taken")
		}
		return internalError("Failed to update profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin exchanges a Firebase ID token for a local session, linking by email or
// creating the account on first use.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	identity, err := h.firebase.Verify(ctx, req.IDToken)
	if err != nil {
		logger.Debug().Err(err).Msg("firebase token rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, identity.UID)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrNotFound):
		user, err = h.linkFirebaseUser(ctx, identity)
		if err != nil {
			return internalError("Failed to link firebase account", err)
		}
	default:
		return internalError("Failed to load user", err)
	}

	return h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) linkFirebaseUser(ctx context.Context, identity *firebase.Identity) (*models.User, error) {
	uid := identity.UID
	email := strings.ToLower(identity.Email)

	user, err := h.userRepository.GetUserByEmail(ctx, email)
	if err == nil {
		user.FirebaseUID = &uid
		return user, h.userRepository.UpdateUser(ctx, user)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	base := usernameFrom(identity)
	for i := 0; i < 10; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s%d", base, i)
		}
		user = &models.User{Username: name, Email: email, FirebaseUID: &uid}
		err = h.userRepository.CreateUser(ctx, user)
		if !errors.Is(err, repositories.ErrDuplicate) {
			return user, err
		}
	}
	return nil, err
}

// usernameFrom derives an alphanumeric username from the display name or email.
func usernameFrom(identity *firebase.Identity) string {
	src := identity.Name
	if src == "" {
		src, _, _ = strings.Cut(identity.Email, "@")
	}
	var b strings.Builder
	for _, r := range strings.ToLower(src) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > 24 {
		name = name[:24]
	}
	for len(name) < 3 {
		name += "0"
	}
	return name
}

func (h *AuthHandler) respondWithToken(c echo.Context, status int, user *models.User) error {
	token, err := h.tokens.Issue(user)
	if err != nil {
		return internalError("Failed to generate token", err)
	}
	return c.JSON(status, models.AuthResponse{Token: token, User: user})
}
