package handlers

import (
	"net/http"
	"sort"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/notify"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// MessageHandler handles direct messages between users
type MessageHandler struct {
	messageRepository repositories.MessageRepository
	userRepository    repositories.UserRepository
	notifier          *notify.Dispatcher
}

func NewMessageHandler(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, notifier *notify.Dispatcher) *MessageHandler {
	return &MessageHandler{
		messageRepository: messageRepo,
		userRepository:    userRepo,
		notifier:          notifier,
	}
}

// RegisterMessageRoutes registers routes on the /api/messages group. Every route needs auth.
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/send", h.SendMessage)
	g.POST("/read", h.MarkRead)
	g.GET("/conversations", h.GetConversations)
	g.GET("/:otherUserId", h.GetMessages)
}

// SendMessage stores a message and pushes it to both participants.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.ReceiverID == userID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot message yourself")
	}

	ctx := c.Request().Context()
	if _, err := h.userRepository.GetUserByID(ctx, req.ReceiverID); err != nil {
		return notFoundOr(err, "Receiver")
	}

	msg := &models.Message{SenderID: userID, ReceiverID: req.ReceiverID, Content: req.Content}
	if err := h.messageRepository.CreateMessage(ctx, msg); err != nil {
		return internalError("Failed to send message", err)
	}

	h.notifier.Emit(realtime.UserChannel(msg.ReceiverID), realtime.EventNewMessage, msg)
	h.notifier.Emit(realtime.UserChannel(msg.SenderID), realtime.EventNewMessage, msg)

	return c.JSON(http.StatusCreated, echo.Map{"message": msg})
}

// GetMessages returns the conversation with otherUserId, oldest first.
func (h *MessageHandler) GetMessages(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	otherID, err := parseIDParam(c, "otherUserId")
	if err != nil {
		return err
	}
	messages, err := h.messageRepository.GetConversation(c.Request().Context(), userID, otherID, queryInt(c, "limit", 100))
	if err != nil {
		return internalError("Failed to load messages", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": messages})
}

// GetConversations lists one entry per counterpart, newest activity first.
func (h *MessageHandler) GetConversations(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	partners, err := h.messageRepository.GetConversationPartners(ctx, userID)
	if err != nil {
		return internalError("Failed to load conversations", err)
	}
	ids := make([]uint, 0, len(partners))
	for _, p := range partners {
		ids = append(ids, p.OtherID)
	}
	users, err := compactUsers(ctx, h.userRepository, ids)
	if err != nil {
		return internalError("Failed to load conversations", err)
	}

	out := make([]models.Conversation, 0, len(partners))
	for _, p := range partners {
		last, err := h.messageRepository.GetLastMessageBetween(ctx, userID, p.OtherID)
		if err != nil {
			return internalError("Failed to load conversations", err)
		}
		unread, err := h.messageRepository.CountUnreadFrom(ctx, p.OtherID, userID)
		if err != nil {
			return internalError("Failed to load conversations", err)
		}
		user, ok := users[p.OtherID]
		if !ok {
			user = models.UserCompact{ID: p.OtherID}
		}
		out = append(out, models.Conversation{
			User:          user,
			LastMessage:   last.Content,
			LastSenderID:  last.SenderID,
			LastMessageAt: last.CreatedAt,
			UnreadCount:   unread,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})

	return c.JSON(http.StatusOK, echo.Map{"conversations": out})
}

// MarkRead marks every message from otherUserId to the caller as read.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req models.MarkReadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	n, err := h.messageRepository.MarkRead(c.Request().Context(), req.OtherUserID, userID)
	if err != nil {
		return internalError("Failed to mark messages read", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}
