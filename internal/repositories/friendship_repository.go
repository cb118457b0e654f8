package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/letterly/backend/internal/models"
	"gorm.io/gorm"
)

// FriendshipRepository defines the interface for friendship data operations.
//
// A pair of users has at most one row. Transitions:
//
//	none -> pending                  (SendFriendRequest)
//	pending -> accepted | rejected   (Accept, Decline by the recipient)
//	pending -> none                  (Cancel by the requester)
//	rejected -> pending              (SendFriendRequest reuses the row)
type FriendshipRepository interface {
	SendFriendRequest(ctx context.Context, requesterID, recipientID uint) (*models.Friend, error)
	GetBetween(ctx context.Context, a, b uint) (*models.Friend, error)
	Accept(ctx context.Context, requesterID, recipientID uint) (*models.Friend, error)
	Decline(ctx context.Context, requesterID, recipientID uint) error
	Cancel(ctx context.Context, requesterID, recipientID uint) error
	GetUserFriends(ctx context.Context, userID uint) ([]models.User, error)
	GetIncomingRequests(ctx context.Context, userID uint) ([]models.Friend, error)
}

// PostgresFriendshipRepository implements FriendshipRepository for PostgreSQL
type PostgresFriendshipRepository struct {
	db *gorm.DB
}

// NewPostgresFriendshipRepository creates a new PostgresFriendshipRepository
func NewPostgresFriendshipRepository(db *gorm.DB) *PostgresFriendshipRepository {
	return &PostgresFriendshipRepository{db: db}
}

// SendFriendRequest creates a pending request, rejecting it when one is pending in either
// direction or the users are already friends.
func (r *PostgresFriendshipRepository) SendFriendRequest(ctx context.Context, requesterID, recipientID uint) (*models.Friend, error) {
	var out *models.Friend
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Friend
		err := tx.Where("pair_key = ?", models.FriendPairKey(requesterID, recipientID)).First(&existing).Error
		switch {
		case err == nil:
			switch existing.Status {
			case models.FriendStatusPending:
				return ErrFriendRequestPending
			case models.FriendStatusAccepted:
				return ErrAlreadyFriends
			}
			existing.RequesterID = requesterID
			existing.RecipientID = recipientID
			existing.Status = models.FriendStatusPending
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			out = &existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			req := &models.Friend{
				RequesterID: requesterID,
				RecipientID: recipientID,
				Status:      models.FriendStatusPending,
			}
			if err := tx.Create(req).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrFriendRequestPending
				}
				return err
			}
			out = req
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetBetween returns the row for the pair regardless of direction.
func (r *PostgresFriendshipRepository) GetBetween(ctx context.Context, a, b uint) (*models.Friend, error) {
	var f models.Friend
	if err := r.db.WithContext(ctx).Where("pair_key = ?", models.FriendPairKey(a, b)).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *PostgresFriendshipRepository) Accept(ctx context.Context, requesterID, recipientID uint) (*models.Friend, error) {
	if err := r.transition(ctx, requesterID, recipientID, models.FriendStatusAccepted); err != nil {
		return nil, err
	}
	return r.GetBetween(ctx, requesterID, recipientID)
}

func (r *PostgresFriendshipRepository) Decline(ctx context.Context, requesterID, recipientID uint) error {
	return r.transition(ctx, requesterID, recipientID, models.FriendStatusRejected)
}

// Cancel withdraws a pending request made by requesterID.
func (r *PostgresFriendshipRepository) Cancel(ctx context.Context, requesterID, recipientID uint) error {
	res := r.db.WithContext(ctx).
		Where("requester_id = ? AND recipient_id = ? AND status = ?", requesterID, recipientID, models.FriendStatusPending).
		Delete(&models.Friend{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoPendingRequest
	}
	return nil
}

// transition moves a pending request to status; the status guard in the WHERE clause
// makes concurrent accept/decline/cancel mutually exclusive.
func (r *PostgresFriendshipRepository) transition(ctx context.Context, requesterID, recipientID uint, status models.FriendStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Friend{}).
		Where("requester_id = ? AND recipient_id = ? AND status = ?", requesterID, recipientID, models.FriendStatusPending).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoPendingRequest
	}
	return nil
}

// GetUserFriends retrieves all accepted friends for a user
func (r *PostgresFriendshipRepository) GetUserFriends(ctx context.Context, userID uint) ([]models.User, error) {
	var friends []models.User
	subQuery1 := r.db.Table("friends").Select("recipient_id").Where("requester_id = ? AND status = ?", userID, models.FriendStatusAccepted)
	subQuery2 := r.db.Table("friends").Select("requester_id").Where("recipient_id = ? AND status = ?", userID, models.FriendStatusAccepted)

	if err := r.db.WithContext(ctx).Where("id IN (?) OR id IN (?)", subQuery1, subQuery2).Order("username").Find(&friends).Error; err != nil {
		return nil, err
	}
	return friends, nil
}

// GetIncomingRequests lists pending requests addressed to userID.
func (r *PostgresFriendshipRepository) GetIncomingRequests(ctx context.Context, userID uint) ([]models.Friend, error) {
	var requests []models.Friend
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND status = ?", userID, models.FriendStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}
