package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/letterly/backend/internal/middleware"
	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// getUserIDFromContext returns the authenticated caller or a 401.
func getUserIDFromContext(c echo.Context) (uint, error) {
	id := middleware.UserID(c)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return id, nil
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

// queryInt reads an integer query parameter, falling back to def.
func queryInt(c echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return def
}

// bindAndValidate binds the request body into req and runs the echo validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}

// internalError hides err from the client message and keeps it for logging.
func internalError(msg string, err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, msg).SetInternal(err)
}

// notFoundOr maps repositories.ErrNotFound to "<resource> not found" (404), and anything
// else to a 500 naming the resource.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, resource+" not found")
	}
	return internalError("Failed to load "+strings.ToLower(resource), err)
}

// compactUsers loads the public projection for ids. Unknown ids are absent from the map.
func compactUsers(ctx context.Context, users repositories.UserRepository, ids []uint) (map[uint]models.UserCompact, error) {
	out := make(map[uint]models.UserCompact, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := users.GetUsersByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToCompact()
	}
	return out, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func toCompactList(users []models.User) []models.UserCompact {
	out := make([]models.UserCompact, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToCompact())
	}
	return out
}

// pageMeta is the pagination block of list responses.
type pageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func newPageMeta(page, limit int, total int64) pageMeta {
	page, limit = repositories.NormalizePage(page, limit)
	return pageMeta{Page: page, Limit: limit, Total: total}
}

// visibleLetter loads the :id letter and answers 404 when viewerID may not read it.
func visibleLetter(c echo.Context, letters repositories.LetterRepository, viewerID uint) (*models.Letter, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	letter, err := letters.GetLetterByID(c.Request().Context(), id)
	if err != nil {
		return nil, notFoundOr(err, "Letter")
	}
	if !letter.VisibleTo(viewerID) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Letter not found")
	}
	return letter, nil
}
