package repositories

import (
	"context"

	"github.com/anonto42/letterly/backend/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	ToggleLike(ctx context.Context, letterID, userID uint) (ToggleResult, error)
	GetLikesByLetterID(ctx context.Context, letterID uint) ([]models.Like, error)
	CountByLetterID(ctx context.Context, letterID uint) (int64, error)
	CountByLetterIDs(ctx context.Context, ids []uint) (map[uint]int64, error)
	LikedLetterIDs(ctx context.Context, userID uint, ids []uint) (map[uint]bool, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

func (r *PostgresLikeRepository) ToggleLike(ctx context.Context, letterID, userID uint) (ToggleResult, error) {
	return toggleEdge(ctx, r.db,
		map[string]interface{}{"letter_id": letterID, "user_id": userID},
		&models.Like{LetterID: letterID, UserID: userID})
}

func (r *PostgresLikeRepository) GetLikesByLetterID(ctx context.Context, letterID uint) ([]models.Like, error) {
	var likes []models.Like
	err := r.db.WithContext(ctx).Where("letter_id = ?", letterID).Order("created_at DESC").Find(&likes).Error
	return likes, err
}

func (r *PostgresLikeRepository) CountByLetterID(ctx context.Context, letterID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("letter_id = ?", letterID).Count(&count).Error
	return count, err
}

func (r *PostgresLikeRepository) CountByLetterIDs(ctx context.Context, ids []uint) (map[uint]int64, error) {
	return countByLetter(ctx, r.db, &models.Like{}, ids)
}

func (r *PostgresLikeRepository) LikedLetterIDs(ctx context.Context, userID uint, ids []uint) (map[uint]bool, error) {
	return letterIDsFor(ctx, r.db, &models.Like{}, userID, ids)
}
