package repositories

import (
	"context"

	"github.com/anonto42/letterly/backend/internal/models"
	"gorm.io/gorm"
)

// RepostRepository defines the interface for repost data operations
type RepostRepository interface {
	ToggleRepost(ctx context.Context, userID, letterID uint) (ToggleResult, error)
	IsReposted(ctx context.Context, userID, letterID uint) (bool, error)
	CountByLetterID(ctx context.Context, letterID uint) (int64, error)
	CountByLetterIDs(ctx context.Context, ids []uint) (map[uint]int64, error)
	RepostedLetterIDs(ctx context.Context, userID uint, ids []uint) (map[uint]bool, error)
}

// PostgresRepostRepository implements RepostRepository for PostgreSQL
type PostgresRepostRepository struct {
	db *gorm.DB
}

// NewPostgresRepostRepository creates a new PostgresRepostRepository
func NewPostgresRepostRepository(db *gorm.DB) *PostgresRepostRepository {
	return &PostgresRepostRepository{db: db}
}

func (r *PostgresRepostRepository) ToggleRepost(ctx context.Context, userID, letterID uint) (ToggleResult, error) {
	return toggleEdge(ctx, r.db,
		map[string]interface{}{"user_id": userID, "letter_id": letterID},
		&models.Repost{UserID: userID, LetterID: letterID})
}

func (r *PostgresRepostRepository) IsReposted(ctx context.Context, userID, letterID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Repost{}).
		Where("user_id = ? AND letter_id = ?", userID, letterID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresRepostRepository) CountByLetterID(ctx context.Context, letterID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Repost{}).Where("letter_id = ?", letterID).Count(&count).Error
	return count, err
}

func (r *PostgresRepostRepository) CountByLetterIDs(ctx context.Context, ids []uint) (map[uint]int64, error) {
	return countByLetter(ctx, r.db, &models.Repost{}, ids)
}

func (r *PostgresRepostRepository) RepostedLetterIDs(ctx context.Context, userID uint, ids []uint) (map[uint]bool, error) {
	return letterIDsFor(ctx, r.db, &models.Repost{}, userID, ids)
}
