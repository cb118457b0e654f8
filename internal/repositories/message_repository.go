package repositories

import (
	"context"

	"github.com/anonto42/letterly/backend/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for direct message operations
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetConversation(ctx context.Context, a, b uint, limit int) ([]models.Message, error)
	GetConversationPartners(ctx context.Context, userID uint) ([]models.ConversationPartner, error)
	GetLastMessageBetween(ctx context.Context, a, b uint) (*models.Message, error)
	CountUnreadFrom(ctx context.Context, senderID, receiverID uint) (int64, error)
	MarkRead(ctx context.Context, senderID, receiverID uint) (int64, error)
}

// PostgresMessageRepository implements MessageRepository for PostgreSQL
type PostgresMessageRepository struct {
	db *gorm.DB
}

// NewPostgresMessageRepository creates a new PostgresMessageRepository
func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func pair(db *gorm.DB, a, b uint) *gorm.DB {
	return db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)
}

// GetConversation returns the most recent limit messages between a and b, oldest first.
func (r *PostgresMessageRepository) GetConversation(ctx context.Context, a, b uint, limit int) ([]models.Message, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	var msgs []models.Message
	err := pair(r.db.WithContext(ctx), a, b).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// GetConversationPartners groups every message touching userID by the other party,
// newest conversation first.
func (r *PostgresMessageRepository) GetConversationPartners(ctx context.Context, userID uint) ([]models.ConversationPartner, error) {
	var partners []models.ConversationPartner
	err := r.db.WithContext(ctx).Raw(`
		SELECT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS other_id,
		       MAX(created_at) AS last_message_at
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		GROUP BY 1
		ORDER BY last_message_at DESC`, userID, userID, userID).
		Scan(&partners).Error
	return partners, err
}

func (r *PostgresMessageRepository) GetLastMessageBetween(ctx context.Context, a, b uint) (*models.Message, error) {
	var msg models.Message
	err := pair(r.db.WithContext(ctx), a, b).Order("created_at DESC").Order("id DESC").First(&msg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *PostgresMessageRepository) CountUnreadFrom(ctx context.Context, senderID, receiverID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, receiverID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks every unread message from senderID to receiverID as read.
func (r *PostgresMessageRepository) MarkRead(ctx context.Context, senderID, receiverID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, receiverID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
