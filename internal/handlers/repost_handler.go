package handlers

import (
	"net/http"

	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// RepostHandler handles reposting letters
type RepostHandler struct {
	repostRepository repositories.RepostRepository
	letterRepository repositories.LetterRepository
}

func NewRepostHandler(repostRepo repositories.RepostRepository, letterRepo repositories.LetterRepository) *RepostHandler {
	return &RepostHandler{repostRepository: repostRepo, letterRepository: letterRepo}
}

// RegisterRepostRoutes registers repost routes on the /api/letters group.
func (h *RepostHandler) RegisterRepostRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.POST("/:id/repost", h.ToggleRepost, requireAuth)
	g.GET("/:id/repost/status", h.GetRepostStatus, requireAuth)
}

func (h *RepostHandler) ToggleRepost(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	letter, err := visibleLetter(c, h.letterRepository, userID)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	res, err := h.repostRepository.ToggleRepost(ctx, userID, letter.ID)
	if err != nil {
		return internalError("Failed to toggle repost", err)
	}
	count, err := h.repostRepository.CountByLetterID(ctx, letter.ID)
	if err != nil {
		return internalError("Failed to count reposts", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reposted": res.Active, "repostCount": count})
}

func (h *RepostHandler) GetRepostStatus(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	letter, err := visibleLetter(c, h.letterRepository, userID)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	reposted, err := h.repostRepository.IsReposted(ctx, userID, letter.ID)
	if err != nil {
		return internalError("Failed to load repost status", err)
	}
	count, err := h.repostRepository.CountByLetterID(ctx, letter.ID)
	if err != nil {
		return internalError("Failed to count reposts", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reposted": reposted, "repostCount": count})
}
