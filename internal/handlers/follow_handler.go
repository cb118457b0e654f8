package handlers

import (
	"net/http"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/notify"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	notifier         *notify.Dispatcher
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, notifier *notify.Dispatcher) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		notifier:         notifier,
	}
}

// RegisterFollowRoutes registers follow routes on the /api/users group.
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group, requireAuth, optionalAuth echo.MiddlewareFunc) {
	g.POST("/:userId/toggle", h.ToggleFollow, requireAuth)
	g.GET("/:userId/followers", h.GetFollowers, optionalAuth)
	g.GET("/:userId/following", h.GetFollowing, optionalAuth)
}

// ToggleFollow follows or unfollows a user
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	currentUserID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "userId")
	if err != nil {
		return err
	}
	if currentUserID == targetID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	ctx := c.Request().Context()
	if _, err := h.userRepository.GetUserByID(ctx, targetID); err != nil {
		return notFoundOr(err, "User")
	}

	res, err := h.followRepository.ToggleFollow(ctx, currentUserID, targetID)
	if err != nil {
		return internalError("Failed to toggle follow", err)
	}
	followers, err := h.followRepository.GetFollowersCount(ctx, targetID)
	if err != nil {
		return internalError("Failed to count followers", err)
	}

	if res.Active && res.Changed {
		h.notifier.Notify(ctx, targetID, currentUserID, models.UserTarget{})
	}

	return c.JSON(http.StatusOK, echo.Map{"following": res.Active, "followersCount": followers})
}

func (h *FollowHandler) GetFollowers(c echo.Context) error {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowers(c.Request().Context(), userID)
	if err != nil {
		return internalError("Failed to load followers", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": toCompactList(users)})
}

func (h *FollowHandler) GetFollowing(c echo.Context) error {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowing(c.Request().Context(), userID)
	if err != nil {
		return internalError("Failed to load following", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": toCompactList(users)})
}
