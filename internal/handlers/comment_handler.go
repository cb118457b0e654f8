package handlers

import (
	"net/http"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/notify"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	letterRepository  repositories.LetterRepository
	userRepository    repositories.UserRepository
	notifier          *notify.Dispatcher
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, letterRepo repositories.LetterRepository, userRepo repositories.UserRepository, notifier *notify.Dispatcher) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		letterRepository:  letterRepo,
		userRepository:    userRepo,
		notifier:          notifier,
	}
}

// RegisterCommentRoutes registers comment routes on the /api/letters group.
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, requireAuth, optionalAuth echo.MiddlewareFunc) {
	g.POST("/:id/comments", h.CreateComment, requireAuth)
	g.GET("/:id/comments", h.GetComments, optionalAuth)
	g.DELETE("/:id/comments/:commentId", h.DeleteComment, requireAuth)
}

// CreateComment adds a comment, notifies the letter owner and pushes new_comment to
// everyone viewing the letter.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	letter, err := visibleLetter(c, h.letterRepository, userID)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	comment := &models.Comment{LetterID: letter.ID, UserID: userID, Content: req.Content}
	if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
		return internalError("Failed to create comment", err)
	}

	author := models.UserCompact{ID: userID}
	if u, err := h.userRepository.GetUserByID(ctx, userID); err == nil {
		author = u.ToCompact()
	}
	view := models.CommentView{Comment: *comment, Author: author}

	h.notifier.Notify(ctx, letter.UserID, userID, models.LetterTarget{Type: models.NotificationComment, LetterID: letter.ID})
	h.notifier.Emit(realtime.LetterChannel(letter.ID), realtime.EventNewComment, view)

	return c.JSON(http.StatusCreated, echo.Map{"comment": view})
}

// GetComments lists a letter's comments oldest first.
func (h *CommentHandler) GetComments(c echo.Context) error {
	viewerID, _ := getUserIDFromContext(c)
	letter, err := visibleLetter(c, h.letterRepository, viewerID)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	comments, err := h.commentRepository.GetCommentsByLetterID(ctx, letter.ID)
	if err != nil {
		return internalError("Failed to load comments", err)
	}

	ids := make([]uint, 0, len(comments))
	for _, cm := range comments {
		ids = append(ids, cm.UserID)
	}
	authors, err := compactUsers(ctx, h.userRepository, ids)
	if err != nil {
		return internalError("Failed to load comments", err)
	}

	views := make([]models.CommentView, 0, len(comments))
	for _, cm := range comments {
		author, ok := authors[cm.UserID]
		if !ok {
			author = models.UserCompact{ID: cm.UserID}
		}
		views = append(views, models.CommentView{Comment: cm, Author: author})
	}
	return c.JSON(http.StatusOK, echo.Map{"comments": views})
}

// DeleteComment lets the comment author or the letter owner remove a comment.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	letterID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	commentID, err := parseIDParam(c, "commentId")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	comment, err := h.commentRepository.GetCommentByID(ctx, commentID)
	if err != nil {
		return notFoundOr(err, "Comment")
	}
	if comment.LetterID != letterID {
		return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
	}

	if comment.UserID != userID {
		letter, err := h.letterRepository.GetLetterByID(ctx, letterID)
		if err != nil {
			return notFoundOr(err, "Letter")
		}
		if letter.UserID != userID {
			return echo.NewHTTPError(http.StatusForbidden, "You can only delete your own comments")
		}
	}

	if err := h.commentRepository.DeleteComment(ctx, commentID); err != nil {
		return internalError("Failed to delete comment", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Comment deleted"})
}
