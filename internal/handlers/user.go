package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

const maxSearchResults = 20

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
	letters          *LetterHandler
}

// NewUserHandler creates a new UserHandler. Profile letters are rendered through letters.
func NewUserHandler(userRepo repositories.UserRepository, followRepo repositories.FollowRepository, letters *LetterHandler) *UserHandler {
	return &UserHandler{
		userRepository:   userRepo,
		followRepository: followRepo,
		letters:          letters,
	}
}

// RegisterUserRoutes registers user lookup routes on the /api/users group.
func (h *UserHandler) RegisterUserRoutes(g *echo.Group, optionalAuth echo.MiddlewareFunc) {
	g.GET("/search", h.SearchUsers, optionalAuth)
	g.GET("/profile/:username", h.GetProfile, optionalAuth)
}

// SearchUsers matches usernames by substring.
func (h *UserHandler) SearchUsers(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusOK, echo.Map{"users": []interface{}{}})
	}
	users, err := h.userRepository.SearchUsers(c.Request().Context(), q, maxSearchResults)
	if err != nil {
		return internalError("Failed to search users", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": toCompactList(users)})
}

// GetProfile returns a user's public profile with follow counts and public letters.
func (h *UserHandler) GetProfile(c echo.Context) error {
	viewerID, _ := getUserIDFromContext(c)
	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return notFoundOr(err, "User profile")
	}

	followers, err := h.followRepository.GetFollowersCount(ctx, user.ID)
	if err != nil {
		return internalError("Failed to load profile", err)
	}
	following, err := h.followRepository.GetFollowingCount(ctx, user.ID)
	if err != nil {
		return internalError("Failed to load profile", err)
	}
	isFollowing := false
	if viewerID != 0 && viewerID != user.ID {
		if isFollowing, err = h.followRepository.IsFollowing(ctx, viewerID, user.ID); err != nil {
			return internalError("Failed to load profile", err)
		}
	}

	f := repositories.LetterFilter{
		OwnerID:    user.ID,
		PublicOnly: true,
		Archived:   boolPtr(false),
		Page:       1,
		Limit:      queryInt(c, "limit", 20),
		// anonymous letters would be attributed to this profile
		ExcludeAnonymous: viewerID != user.ID,
	}
	letters, _, err := h.letters.letterRepository.ListLetters(ctx, f)
	if err != nil {
		return internalError("Failed to load profile", err)
	}
	views, err := h.letters.presenter.views(ctx, letters, viewerID)
	if err != nil {
		return internalError("Failed to load profile", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":           user,
		"followersCount": followers,
		"followingCount": following,
		"isFollowing":    isFollowing,
		"letters":        views,
	})
}
