package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles HTTP requests related to notifications
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
	now                    func() time.Time
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, userRepo repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		userRepository:         userRepo,
		now:                    time.Now,
	}
}

// RegisterNotificationRoutes registers routes on the /api/notifications group. Every route needs auth.
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("", h.GetNotifications)
	g.GET("/grouped", h.GetGrouped)
	g.GET("/unread-count", h.GetUnreadCount)
	g.PUT("/read", h.MarkRead)
	g.PUT("/:id/read", h.MarkOneRead)
}

// GetNotifications retrieves a page of the caller's notifications, newest first.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	ctx := c.Request().Context()
	rows, total, err := h.notificationRepository.GetByRecipientID(ctx, userID, page, limit)
	if err != nil {
		return internalError("Failed to load notifications", err)
	}
	unread, err := h.notificationRepository.GetUnreadCount(ctx, userID)
	if err != nil {
		return internalError("Failed to load notifications", err)
	}
	views, err := h.views(ctx, rows)
	if err != nil {
		return internalError("Failed to load notifications", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"notifications": views,
		"unreadCount":   unread,
		"meta":          newPageMeta(page, limit, total),
	})
}

// GetGrouped buckets the caller's notifications by age.
func (h *NotificationHandler) GetGrouped(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	today, yesterday, thisWeek, older, err := h.notificationRepository.GetGrouped(ctx, userID, h.now())
	if err != nil {
		return internalError("Failed to load notifications", err)
	}

	out := echo.Map{}
	for key, rows := range map[string][]models.Notification{
		"today":     today,
		"yesterday": yesterday,
		"thisWeek":  thisWeek,
		"older":     older,
	} {
		views, err := h.views(ctx, rows)
		if err != nil {
			return internalError("Failed to load notifications", err)
		}
		out[key] = views
	}
	return c.JSON(http.StatusOK, out)
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	n, err := h.notificationRepository.GetUnreadCount(c.Request().Context(), userID)
	if err != nil {
		return internalError("Failed to count notifications", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unreadCount": n})
}

// MarkRead marks the listed ids read, or every notification when ids is empty.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req models.MarkNotificationsReadRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
		}
	}

	ctx := c.Request().Context()
	var n int64
	if len(req.IDs) == 0 {
		n, err = h.notificationRepository.MarkAllAsRead(ctx, userID)
	} else {
		n, err = h.notificationRepository.MarkAsRead(ctx, userID, req.IDs)
	}
	if err != nil {
		return internalError("Failed to mark notifications read", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// MarkOneRead marks a single notification read. Ids of other users update nothing.
func (h *NotificationHandler) MarkOneRead(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	n, err := h.notificationRepository.MarkAsRead(c.Request().Context(), userID, []uint{id})
	if err != nil {
		return internalError("Failed to mark notification read", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

func (h *NotificationHandler) views(ctx context.Context, rows []models.Notification) ([]models.NotificationView, error) {
	ids := make([]uint, 0, len(rows))
	for _, n := range rows {
		ids = append(ids, n.ActorID)
	}
	actors, err := compactUsers(ctx, h.userRepository, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.NotificationView, 0, len(rows))
	for _, n := range rows {
		actor, ok := actors[n.ActorID]
		if !ok {
			actor = models.UserCompact{ID: n.ActorID}
		}
		out = append(out, models.NewNotificationView(n, actor))
	}
	return out, nil
}
