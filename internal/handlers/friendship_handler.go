package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/notify"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FriendshipHandler handles HTTP requests related to friendships
type FriendshipHandler struct {
	friendshipRepository repositories.FriendshipRepository
	userRepository       repositories.UserRepository
	notifier             *notify.Dispatcher
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(friendshipRepo repositories.FriendshipRepository, userRepo repositories.UserRepository, notifier *notify.Dispatcher) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipRepository: friendshipRepo,
		userRepository:       userRepo,
		notifier:             notifier,
	}
}

// RegisterFriendshipRoutes registers routes on the /api/friends group. Every route needs auth.
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.POST("/request", h.SendFriendRequest)
	g.POST("/accept", h.AcceptFriendRequest)
	g.POST("/decline", h.DeclineFriendRequest)
	g.POST("/cancel", h.CancelFriendRequest)
	g.GET("", h.GetFriends)
	g.GET("/requests", h.GetIncomingRequests)
	g.GET("/status/:otherUserId", h.GetFriendStatus)
}

// friendAction binds the {userId} body shared by every friend action.
func (h *FriendshipHandler) friendAction(c echo.Context) (uint, uint, error) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return 0, 0, err
	}
	var req models.FriendActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return 0, 0, err
	}
	if req.UserID == userID {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Cannot befriend yourself")
	}
	return userID, req.UserID, nil
}

// SendFriendRequest handles sending a friend request
func (h *FriendshipHandler) SendFriendRequest(c echo.Context) error {
	userID, otherID, err := h.friendAction(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.userRepository.GetUserByID(ctx, otherID); err != nil {
		return notFoundOr(err, "User")
	}

	req, err := h.friendshipRepository.SendFriendRequest(ctx, userID, otherID)
	switch {
	case errors.Is(err, repositories.ErrFriendRequestPending):
		return echo.NewHTTPError(http.StatusBadRequest, "Friend request already pending")
	case errors.Is(err, repositories.ErrAlreadyFriends):
		return echo.NewHTTPError(http.StatusBadRequest, "Already friends")
	case err != nil:
		return internalError("Failed to send friend request", err)
	}

	h.notifier.Notify(ctx, otherID, userID, models.FriendTarget{Type: models.NotificationFriendRequest, FriendID: req.ID})
	return c.JSON(http.StatusCreated, echo.Map{"request": req})
}

// AcceptFriendRequest accepts the pending request sent by userId to the caller.
func (h *FriendshipHandler) AcceptFriendRequest(c echo.Context) error {
	userID, requesterID, err := h.friendAction(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	req, err := h.friendshipRepository.Accept(ctx, requesterID, userID)
	if err != nil {
		return pendingOr(err, "Failed to accept friend request")
	}

	h.notifier.Notify(ctx, requesterID, userID, models.FriendTarget{Type: models.NotificationFriendAccept, FriendID: req.ID})

	me := models.UserCompact{ID: userID}
	if u, err := h.userRepository.GetUserByID(ctx, userID); err == nil {
		me = u.ToCompact()
	}
	h.notifier.Emit(realtime.UserChannel(requesterID), realtime.EventFriendAccepted, echo.Map{
		"friendRequestId": req.ID,
		"user":            me,
	})

	return c.JSON(http.StatusOK, echo.Map{"request": req})
}

func (h *FriendshipHandler) DeclineFriendRequest(c echo.Context) error {
	userID, requesterID, err := h.friendAction(c)
	if err != nil {
		return err
	}
	if err := h.friendshipRepository.Decline(c.Request().Context(), requesterID, userID); err != nil {
		return pendingOr(err, "Failed to decline friend request")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Friend request declined"})
}

// CancelFriendRequest withdraws the caller's pending request to userId.
func (h *FriendshipHandler) CancelFriendRequest(c echo.Context) error {
	userID, recipientID, err := h.friendAction(c)
	if err != nil {
		return err
	}
	if err := h.friendshipRepository.Cancel(c.Request().Context(), userID, recipientID); err != nil {
		return pendingOr(err, "Failed to cancel friend request")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Friend request cancelled"})
}

// GetFriends retrieves the list of friends for the authenticated user
func (h *FriendshipHandler) GetFriends(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	friends, err := h.friendshipRepository.GetUserFriends(c.Request().Context(), userID)
	if err != nil {
		return internalError("Failed to load friends", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"friends": toCompactList(friends)})
}

// GetIncomingRequests lists pending requests addressed to the caller with their senders.
func (h *FriendshipHandler) GetIncomingRequests(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	requests, err := h.friendshipRepository.GetIncomingRequests(ctx, userID)
	if err != nil {
		return internalError("Failed to load friend requests", err)
	}
	ids := make([]uint, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.RequesterID)
	}
	senders, err := compactUsers(ctx, h.userRepository, ids)
	if err != nil {
		return internalError("Failed to load friend requests", err)
	}

	out := make([]echo.Map, 0, len(requests))
	for _, r := range requests {
		out = append(out, echo.Map{
			"id":        r.ID,
			"sender":    senders[r.RequesterID],
			"createdAt": r.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": out})
}

// GetFriendStatus reports the relationship between the caller and otherUserId.
func (h *FriendshipHandler) GetFriendStatus(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	otherID, err := parseIDParam(c, "otherUserId")
	if err != nil {
		return err
	}

	f, err := h.friendshipRepository.GetBetween(c.Request().Context(), userID, otherID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return internalError("Failed to load friend status", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": friendStatusView(f, userID)})
}

func friendStatusView(f *models.Friend, userID uint) models.FriendStatusView {
	if f == nil {
		return models.FriendViewNone
	}
	switch f.Status {
	case models.FriendStatusAccepted:
		return models.FriendViewFriends
	case models.FriendStatusPending:
		if f.RequesterID == userID {
			return models.FriendViewPendingSent
		}
		return models.FriendViewPendingReceived
	}
	return models.FriendViewNone
}

func pendingOr(err error, msg string) error {
	if errors.Is(err, repositories.ErrNoPendingRequest) {
		return echo.NewHTTPError(http.StatusNotFound, "Friend request not found")
	}
	return internalError(msg, err)
}
