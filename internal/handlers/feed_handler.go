package handlers

import (
	"net/http"

	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// GetFeed returns public letters from the users the caller follows, newest first.
func (h *LetterHandler) GetFeed(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	following, err := h.followRepository.GetFollowingIDs(c.Request().Context(), userID)
	if err != nil {
		return internalError("Failed to load feed", err)
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	if len(following) == 0 {
		return c.JSON(http.StatusOK, echo.Map{
			"letters": []interface{}{},
			"meta":    newPageMeta(page, limit, 0),
		})
	}

	f := repositories.LetterFilter{
		OwnerIDs:         following,
		PublicOnly:       true,
		Archived:         boolPtr(false),
		ExcludeAnonymous: true,
	}
	return h.list(c, f, userID)
}
