package handlers

import (
	"net/http"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/notify"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likeRepository   repositories.LikeRepository
	letterRepository repositories.LetterRepository
	userRepository   repositories.UserRepository
	notifier         *notify.Dispatcher
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeRepo repositories.LikeRepository, letterRepo repositories.LetterRepository, userRepo repositories.UserRepository, notifier *notify.Dispatcher) *LikeHandler {
	return &LikeHandler{
		likeRepository:   likeRepo,
		letterRepository: letterRepo,
		userRepository:   userRepo,
		notifier:         notifier,
	}
}

// RegisterLikeRoutes registers like routes on the /api/letters group.
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group, requireAuth, optionalAuth echo.MiddlewareFunc) {
	g.POST("/:id/like", h.ToggleLike, requireAuth)
	g.GET("/:id/likes", h.GetLikes, optionalAuth)
}

// ToggleLike likes or unlikes a letter and broadcasts the new absolute count.
// Only the call that creates the like notifies the owner.
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	letter, err := visibleLetter(c, h.letterRepository, userID)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	res, err := h.likeRepository.ToggleLike(ctx, letter.ID, userID)
	if err != nil {
		return internalError("Failed to toggle like", err)
	}
	count, err := h.likeRepository.CountByLetterID(ctx, letter.ID)
	if err != nil {
		return internalError("Failed to count likes", err)
	}

	if res.Active && res.Changed {
		h.notifier.Notify(ctx, letter.UserID, userID, models.LetterTarget{Type: models.NotificationLike, LetterID: letter.ID})
	}
	h.notifier.Emit(realtime.LetterChannel(letter.ID), realtime.EventLikeUpdate, realtime.LikeUpdate{LetterID: letter.ID, LikeCount: count})

	return c.JSON(http.StatusOK, echo.Map{"liked": res.Active, "likeCount": count})
}

// GetLikes lists who liked a letter, most recent first.
func (h *LikeHandler) GetLikes(c echo.Context) error {
	viewerID, _ := getUserIDFromContext(c)
	letter, err := visibleLetter(c, h.letterRepository, viewerID)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	likes, err := h.likeRepository.GetLikesByLetterID(ctx, letter.ID)
	if err != nil {
		return internalError("Failed to load likes", err)
	}
	ids := make([]uint, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.UserID)
	}
	users, err := compactUsers(ctx, h.userRepository, ids)
	if err != nil {
		return internalError("Failed to load likes", err)
	}

	out := make([]models.UserCompact, 0, len(likes))
	isLiked := false
	for _, l := range likes {
		if u, ok := users[l.UserID]; ok {
			out = append(out, u)
		}
		if l.UserID == viewerID {
			isLiked = true
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out, "likeCount": len(likes), "isLiked": isLiked})
}
