// Package router wires repositories, handlers and middleware onto an Echo instance.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/letterly/backend/internal/auth"
	"github.com/anonto42/letterly/backend/internal/handlers"
	"github.com/anonto42/letterly/backend/internal/middleware"
	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/notify"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/anonto42/letterly/backend/internal/repositories"
	"github.com/anonto42/letterly/backend/internal/storage"
	"github.com/anonto42/letterly/backend/pkg/logger"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Repositories bundles one implementation per entity.
type Repositories struct {
	Users         repositories.UserRepository
	Letters       repositories.LetterRepository
	Comments      repositories.CommentRepository
	Likes         repositories.LikeRepository
	Reposts       repositories.RepostRepository
	Follows       repositories.FollowRepository
	Friends       repositories.FriendshipRepository
	Messages      repositories.MessageRepository
	Notifications repositories.NotificationRepository
}

// NewPostgresRepositories builds the gorm-backed repositories over db.
func NewPostgresRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:         repositories.NewPostgresUserRepository(db),
		Letters:       repositories.NewPostgresLetterRepository(db),
		Comments:      repositories.NewPostgresCommentRepository(db),
		Likes:         repositories.NewPostgresLikeRepository(db),
		Reposts:       repositories.NewPostgresRepostRepository(db),
		Follows:       repositories.NewPostgresFollowRepository(db),
		Friends:       repositories.NewPostgresFriendshipRepository(db),
		Messages:      repositories.NewPostgresMessageRepository(db),
		Notifications: repositories.NewPostgresNotificationRepository(db),
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Letter{},
		&models.Comment{},
		&models.Like{},
		&models.Repost{},
		&models.Follow{},
		&models.Friend{},
		&models.Message{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info().Msg("PostgreSQL auto-migrations completed")
	return nil
}

// Options carries the non-repository dependencies of the HTTP surface.
type Options struct {
	Tokens         *auth.TokenManager
	Hub            *realtime.Hub
	Media          storage.Store
	MaxUploadBytes int64
	Firebase       handlers.FirebaseVerifier // nil disables federated login
}

// LetterAccess lets a socket follow a letter only when the REST API would show it the letter.
func LetterAccess(letters repositories.LetterRepository) realtime.LetterAccess {
	return func(ctx context.Context, letterID, userID uint) bool {
		letter, err := letters.GetLetterByID(ctx, letterID)
		if err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				logger.Warn().Err(err).Uint("letter_id", letterID).Msg("letter access check failed")
			}
			return false
		}
		return letter.VisibleTo(userID)
	}
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, repos Repositories, opts Options) {
	e.Use(middleware.Metrics())

	requireAuth := middleware.JWTAuth(opts.Tokens)
	optionalAuth := middleware.OptionalJWTAuth(opts.Tokens)

	var emitter realtime.Emitter
	if opts.Hub != nil {
		emitter = opts.Hub
	}
	notifier := notify.NewDispatcher(repos.Notifications, repos.Users, emitter)

	e.GET("/health", handlers.HealthCheck)
	if opts.Hub != nil {
		opts.Hub.SetLetterAccess(LetterAccess(repos.Letters))
		e.GET("/ws", handlers.NewWSHandler(opts.Hub, opts.Tokens).Connect)
	}

	api := e.Group("/api")

	media := handlers.NewMediaHandler(opts.Media, opts.MaxUploadBytes)
	media.RegisterMediaRoutes(api, e, requireAuth)

	handlers.NewAuthHandler(repos.Users, opts.Tokens, media, opts.Firebase).
		RegisterAuthRoutes(api.Group("/auth"), requireAuth)

	letters := api.Group("/letters")
	letterHandler := handlers.NewLetterHandler(repos.Letters, repos.Users, repos.Comments, repos.Likes, repos.Reposts, repos.Follows)
	letterHandler.RegisterLetterRoutes(letters, requireAuth, optionalAuth)
	handlers.NewCommentHandler(repos.Comments, repos.Letters, repos.Users, notifier).
		RegisterCommentRoutes(letters, requireAuth, optionalAuth)
	handlers.NewLikeHandler(repos.Likes, repos.Letters, repos.Users, notifier).
		RegisterLikeRoutes(letters, requireAuth, optionalAuth)
	handlers.NewRepostHandler(repos.Reposts, repos.Letters).
		RegisterRepostRoutes(letters, requireAuth)

	users := api.Group("/users")
	handlers.NewUserHandler(repos.Users, repos.Follows, letterHandler).
		RegisterUserRoutes(users, optionalAuth)
	handlers.NewFollowHandler(repos.Follows, repos.Users, notifier).
		RegisterFollowRoutes(users, requireAuth, optionalAuth)

	handlers.NewFriendshipHandler(repos.Friends, repos.Users, notifier).
		RegisterFriendshipRoutes(api.Group("/friends", requireAuth))
	handlers.NewMessageHandler(repos.Messages, repos.Users, notifier).
		RegisterMessageRoutes(api.Group("/messages", requireAuth))
	handlers.NewNotificationHandler(repos.Notifications, repos.Users).
		RegisterNotificationRoutes(api.Group("/notifications", requireAuth))

	logger.Debug().Int("routes", len(e.Routes())).Msg("routes configured")
}
