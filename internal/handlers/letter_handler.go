package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// LetterHandler handles HTTP requests related to letters
type LetterHandler struct {
	letterRepository repositories.LetterRepository
	followRepository repositories.FollowRepository
	presenter        *letterPresenter
}

// NewLetterHandler creates a new LetterHandler
func NewLetterHandler(
	letterRepo repositories.LetterRepository,
	userRepo repositories.UserRepository,
	commentRepo repositories.CommentRepository,
	likeRepo repositories.LikeRepository,
	repostRepo repositories.RepostRepository,
	followRepo repositories.FollowRepository,
) *LetterHandler {
	return &LetterHandler{
		letterRepository: letterRepo,
		followRepository: followRepo,
		presenter: &letterPresenter{
			users:    userRepo,
			comments: commentRepo,
			likes:    likeRepo,
			reposts:  repostRepo,
			now:      time.Now,
		},
	}
}

// RegisterLetterRoutes registers letter routes on the /api/letters group.
func (h *LetterHandler) RegisterLetterRoutes(g *echo.Group, requireAuth, optionalAuth echo.MiddlewareFunc) {
	g.POST("", h.CreateLetter, requireAuth)
	g.GET("/mine", h.listOwn(mineFilter), requireAuth)
	g.GET("/drafts", h.listOwn(draftsFilter), requireAuth)
	g.GET("/scheduled", h.listOwn(scheduledFilter), requireAuth)
	g.GET("/time-capsules", h.listOwn(capsulesFilter), requireAuth)
	g.GET("/archived", h.listOwn(archivedFilter), requireAuth)
	g.GET("/public", h.ListPublic, optionalAuth)
	g.GET("/feed", h.GetFeed, requireAuth)
	g.GET("/:id", h.GetLetter, optionalAuth)
	g.PUT("/:id", h.UpdateLetter, requireAuth)
	g.DELETE("/:id", h.DeleteLetter, requireAuth)
	g.POST("/:id/archive", h.ToggleArchive, requireAuth)
}

func boolPtr(b bool) *bool { return &b }

func mineFilter(userID uint) repositories.LetterFilter {
	return repositories.LetterFilter{OwnerID: userID, Status: models.LetterStatusPublished, Archived: boolPtr(false)}
}

func draftsFilter(userID uint) repositories.LetterFilter {
	return repositories.LetterFilter{OwnerID: userID, Status: models.LetterStatusDraft, Archived: boolPtr(false)}
}

func scheduledFilter(userID uint) repositories.LetterFilter {
	return repositories.LetterFilter{OwnerID: userID, Status: models.LetterStatusScheduled, Archived: boolPtr(false)}
}

func capsulesFilter(userID uint) repositories.LetterFilter {
	return repositories.LetterFilter{OwnerID: userID, Capsules: true, Archived: boolPtr(false)}
}

func archivedFilter(userID uint) repositories.LetterFilter {
	return repositories.LetterFilter{OwnerID: userID, Archived: boolPtr(true)}
}

// CreateLetter handles creating a new letter
func (h *LetterHandler) CreateLetter(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateLetterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	letter := &models.Letter{
		UserID:          userID,
		Title:           req.Title,
		Content:         req.Content,
		Type:            req.Type,
		IsPublic:        req.IsPublic,
		Status:          req.Status,
		ScheduledDate:   req.ScheduledDate,
		OpenDate:        req.OpenDate,
		IsTimeCapsule:   req.IsTimeCapsule,
		Address:         req.Address,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		BackgroundImage: req.BackgroundImage,
		ImageURL:        req.ImageURL,
		Font:            req.Font,
		SpotifyLink:     req.SpotifyLink,
		IsAnonymous:     req.IsAnonymous,
	}
	now := h.presenter.now()
	if letter.Status == "" {
		letter.Status = models.LetterStatusPublished
		if letter.ScheduledDate != nil && letter.ScheduledDate.After(now) {
			letter.Status = models.LetterStatusScheduled
		}
	}
	if err := checkLetter(letter); err != nil {
		return err
	}

	if err := h.letterRepository.CreateLetter(c.Request().Context(), letter); err != nil {
		return internalError("Failed to create letter", err)
	}

	view, err := h.presenter.view(c.Request().Context(), *letter, userID)
	if err != nil {
		return internalError("Failed to load letter", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"letter": view})
}

// checkLetter enforces the cross-field rules the validator cannot express.
func checkLetter(l *models.Letter) error {
	if l.Status != models.LetterStatusDraft && l.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Content is required unless saving a draft")
	}
	if l.Status == models.LetterStatusScheduled && l.ScheduledDate == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Scheduled letters need a scheduledDate")
	}
	if l.IsTimeCapsule && l.OpenDate == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Time capsules need an openDate")
	}
	return nil
}

func (h *LetterHandler) listOwn(filter func(uint) repositories.LetterFilter) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := getUserIDFromContext(c)
		if err != nil {
			return err
		}
		f := filter(userID)
		return h.list(c, f, userID)
	}
}

// ListPublic lists published public letters of every user.
func (h *LetterHandler) ListPublic(c echo.Context) error {
	viewerID, _ := getUserIDFromContext(c)
	return h.list(c, repositories.LetterFilter{PublicOnly: true, Archived: boolPtr(false)}, viewerID)
}

func (h *LetterHandler) list(c echo.Context, f repositories.LetterFilter, viewerID uint) error {
	f.Page, f.Limit = repositories.NormalizePage(queryInt(c, "page", 1), queryInt(c, "limit", 20))
	f.Type = c.QueryParam("type")

	letters, total, err := h.letterRepository.ListLetters(c.Request().Context(), f)
	if err != nil {
		return internalError("Failed to list letters", err)
	}
	views, err := h.presenter.views(c.Request().Context(), letters, viewerID)
	if err != nil {
		return internalError("Failed to list letters", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"letters": views,
		"meta":    newPageMeta(f.Page, f.Limit, total),
	})
}

// GetLetter returns one letter. Letters the caller may not read answer 404.
func (h *LetterHandler) GetLetter(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	viewerID, _ := getUserIDFromContext(c)

	letter, err := h.letterRepository.GetLetterByID(c.Request().Context(), id)
	if err != nil {
		return notFoundOr(err, "Letter")
	}
	if !letter.VisibleTo(viewerID) {
		return echo.NewHTTPError(http.StatusNotFound, "Letter not found")
	}

	view, err := h.presenter.view(c.Request().Context(), *letter, viewerID)
	if err != nil {
		return internalError("Failed to load letter", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"letter": view})
}

// ownedLetter loads :id and checks the caller owns it.
func (h *LetterHandler) ownedLetter(c echo.Context) (*models.Letter, uint, error) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return nil, 0, err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, 0, err
	}
	letter, err := h.letterRepository.GetLetterByID(c.Request().Context(), id)
	if err != nil {
		return nil, 0, notFoundOr(err, "Letter")
	}
	if letter.UserID != userID {
		return nil, 0, echo.NewHTTPError(http.StatusForbidden, "You can only modify your own letters")
	}
	return letter, userID, nil
}

// UpdateLetter applies only the supplied fields.
func (h *LetterHandler) UpdateLetter(c echo.Context) error {
	letter, userID, err := h.ownedLetter(c)
	if err != nil {
		return err
	}

	var req models.UpdateLetterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	applyLetterUpdate(letter, &req)
	if err := checkLetter(letter); err != nil {
		return err
	}

	if err := h.letterRepository.UpdateLetter(c.Request().Context(), letter); err != nil {
		return internalError("Failed to update letter", err)
	}
	view, err := h.presenter.view(c.Request().Context(), *letter, userID)
	if err != nil {
		return internalError("Failed to load letter", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"letter": view})
}

func applyLetterUpdate(l *models.Letter, req *models.UpdateLetterRequest) {
	if req.Title != nil {
		l.Title = *req.Title
	}
	if req.Content != nil {
		l.Content = *req.Content
	}
	if req.Type != nil {
		l.Type = *req.Type
	}
	if req.IsPublic != nil {
		l.IsPublic = *req.IsPublic
	}
	if req.Status != nil {
		l.Status = *req.Status
	}
	if req.ScheduledDate != nil {
		l.ScheduledDate = req.ScheduledDate
	}
	if req.OpenDate != nil {
		l.OpenDate = req.OpenDate
	}
	if req.IsTimeCapsule != nil {
		l.IsTimeCapsule = *req.IsTimeCapsule
	}
	if req.Address != nil {
		l.Address = *req.Address
	}
	if req.Latitude != nil {
		l.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		l.Longitude = req.Longitude
	}
	if req.BackgroundImage != nil {
		l.BackgroundImage = *req.BackgroundImage
	}
	if req.ImageURL != nil {
		l.ImageURL = *req.ImageURL
	}
	if req.Font != nil {
		l.Font = *req.Font
	}
	if req.SpotifyLink != nil {
		l.SpotifyLink = *req.SpotifyLink
	}
	if req.IsAnonymous != nil {
		l.IsAnonymous = *req.IsAnonymous
	}
}

// DeleteLetter removes a letter with its comments, likes, reposts and notifications.
func (h *LetterHandler) DeleteLetter(c echo.Context) error {
	letter, _, err := h.ownedLetter(c)
	if err != nil {
		return err
	}
	if err := h.letterRepository.DeleteLetter(c.Request().Context(), letter.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Letter not found")
		}
		return internalError("Failed to delete letter", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Letter deleted"})
}

// ToggleArchive flips isArchived.
func (h *LetterHandler) ToggleArchive(c echo.Context) error {
	letter, _, err := h.ownedLetter(c)
	if err != nil {
		return err
	}
	letter.IsArchived = !letter.IsArchived
	if err := h.letterRepository.UpdateLetter(c.Request().Context(), letter); err != nil {
		return internalError("Failed to archive letter", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"isArchived": letter.IsArchived})
}
