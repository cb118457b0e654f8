package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/anonto42/letterly/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// MediaHandler accepts image uploads and serves them back.
type MediaHandler struct {
	store    storage.Store
	maxBytes int64
}

func NewMediaHandler(store storage.Store, maxBytes int64) *MediaHandler {
	return &MediaHandler{store: store, maxBytes: maxBytes}
}

// RegisterMediaRoutes registers POST /api/uploads and GET /uploads/:name.
func (h *MediaHandler) RegisterMediaRoutes(api *echo.Group, e *echo.Echo, requireAuth echo.MiddlewareFunc) {
	api.POST("/uploads", h.Upload, requireAuth)
	e.GET("/uploads/:name", h.Serve)
}

// Upload stores the multipart "file" field and returns its public URL.
func (h *MediaHandler) Upload(c echo.Context) error {
	url, err := h.storeFormFile(c, "file")
	if err != nil {
		return err
	}
	if url == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	return c.JSON(http.StatusCreated, echo.Map{"url": url})
}

// Serve streams a stored object.
func (h *MediaHandler) Serve(c echo.Context) error {
	rc, contentType, err := h.store.Open(c.Request().Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Media not found")
		}
		return internalError("Failed to open media", err)
	}
	defer rc.Close()

	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Stream(http.StatusOK, contentType, rc)
}

// storeFormFile saves the multipart field if present and returns its URL, or "" when
// the field was not sent.
func (h *MediaHandler) storeFormFile(c echo.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid upload").SetInternal(err)
	}
	f, err := fh.Open()
	if err != nil {
		return "", internalError("Failed to read upload", err)
	}
	defer f.Close()

	obj, err := storage.Put(c.Request().Context(), h.store, io.Reader(f), h.maxBytes)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return "", echo.NewHTTPError(http.StatusBadRequest, "Only jpeg, png, gif and webp images are accepted")
	case errors.Is(err, storage.ErrTooLarge):
		return "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Image is too large")
	case err != nil:
		return "", internalError("Failed to store upload", err)
	}
	return "/uploads/" + obj.Name, nil
}
