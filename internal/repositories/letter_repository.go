package repositories

import (
	"context"
	"time"

	"github.com/anonto42/letterly/backend/internal/models"
	"gorm.io/gorm"
)

// LetterFilter narrows ListLetters. Zero values mean "any".
type LetterFilter struct {
	OwnerID    uint
	OwnerIDs   []uint
	Status     models.LetterStatus
	Type       string
	PublicOnly bool
	Archived   *bool
	Capsules   bool
	// ExcludeAnonymous drops letters whose author is hidden, for listings keyed on an author.
	ExcludeAnonymous bool
	Page             int
	Limit            int
}

// LetterRepository defines the interface for letter data operations
type LetterRepository interface {
	CreateLetter(ctx context.Context, letter *models.Letter) error
	GetLetterByID(ctx context.Context, id uint) (*models.Letter, error)
	UpdateLetter(ctx context.Context, letter *models.Letter) error
	DeleteLetter(ctx context.Context, id uint) error
	ListLetters(ctx context.Context, filter LetterFilter) ([]models.Letter, int64, error)
	PublishDue(ctx context.Context, now time.Time) (int64, error)
}

// PostgresLetterRepository implements LetterRepository for PostgreSQL
type PostgresLetterRepository struct {
	db *gorm.DB
}

// NewPostgresLetterRepository creates a new PostgresLetterRepository
func NewPostgresLetterRepository(db *gorm.DB) *PostgresLetterRepository {
	return &PostgresLetterRepository{db: db}
}

func (r *PostgresLetterRepository) CreateLetter(ctx context.Context, letter *models.Letter) error {
	return r.db.WithContext(ctx).Create(letter).Error
}

func (r *PostgresLetterRepository) GetLetterByID(ctx context.Context, id uint) (*models.Letter, error) {
	var letter models.Letter
	if err := r.db.WithContext(ctx).First(&letter, id).Error; err != nil {
		return nil, translate(err)
	}
	return &letter, nil
}

func (r *PostgresLetterRepository) UpdateLetter(ctx context.Context, letter *models.Letter) error {
	return r.db.WithContext(ctx).Omit("Owner", "Comments", "Likes").Save(letter).Error
}

// DeleteLetter removes the letter; comments and likes go with it through the foreign keys,
// reposts and notifications that point at it are removed in the same transaction.
func (r *PostgresLetterRepository) DeleteLetter(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("letter_id = ?", id).Delete(&models.Repost{}).Error; err != nil {
			return err
		}
		err := tx.Where("entity_id = ? AND type IN ?", id,
			[]models.NotificationType{models.NotificationComment, models.NotificationLike}).
			Delete(&models.Notification{}).Error
		if err != nil {
			return err
		}
		res := tx.Delete(&models.Letter{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *PostgresLetterRepository) ListLetters(ctx context.Context, f LetterFilter) ([]models.Letter, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Letter{})
	if f.OwnerID != 0 {
		q = q.Where("user_id = ?", f.OwnerID)
	}
	if len(f.OwnerIDs) > 0 {
		q = q.Where("user_id IN ?", f.OwnerIDs)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.PublicOnly {
		q = q.Where("is_public = ? AND status = ?", true, models.LetterStatusPublished)
	}
	if f.Archived != nil {
		q = q.Where("is_archived = ?", *f.Archived)
	}
	if f.Capsules {
		q = q.Where("is_time_capsule = ?", true)
	}
	if f.ExcludeAnonymous {
		q = q.Where("is_anonymous = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(f.Page, f.Limit)
	var letters []models.Letter
	err := q.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&letters).Error
	return letters, total, err
}

// PublishDue promotes scheduled letters whose date has passed.
func (r *PostgresLetterRepository) PublishDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Letter{}).
		Where("status = ? AND scheduled_date IS NOT NULL AND scheduled_date <= ?", models.LetterStatusScheduled, now).
		Update("status", models.LetterStatusPublished)
	return res.RowsAffected, res.Error
}

// NormalizePage clamps paging input to 1-based pages of at most 100 rows.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
