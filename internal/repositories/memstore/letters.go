package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/repositories"
)

type LetterRepo struct{ d *data }

func (r *LetterRepo) CreateLetter(_ context.Context, letter *models.Letter) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	letter.ID = r.d.id()
	letter.CreatedAt = r.d.now()
	letter.UpdatedAt = letter.CreatedAt
	l := *letter
	r.d.letters[l.ID] = &l
	return nil
}

func (r *LetterRepo) GetLetterByID(_ context.Context, id uint) (*models.Letter, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	l, ok := r.d.letters[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *l
	return &out, nil
}

func (r *LetterRepo) UpdateLetter(_ context.Context, letter *models.Letter) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.letters[letter.ID]; !ok {
		return repositories.ErrNotFound
	}
	letter.UpdatedAt = r.d.now()
	l := *letter
	r.d.letters[l.ID] = &l
	return nil
}

// DeleteLetter mirrors the database: comments and likes cascade, reposts and letter
// notifications are removed alongside.
func (r *LetterRepo) DeleteLetter(_ context.Context, id uint) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.letters[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.d.letters, id)
	for k, c := range r.d.comments {
		if c.LetterID == id {
			delete(r.d.comments, k)
		}
	}
	for k, l := range r.d.likes {
		if l.LetterID == id {
			delete(r.d.likes, k)
		}
	}
	for k, rp := range r.d.reposts {
		if rp.LetterID == id {
			delete(r.d.reposts, k)
		}
	}
	for k, n := range r.d.notifications {
		if t, ok := n.Target().(models.LetterTarget); ok && t.LetterID == id {
			delete(r.d.notifications, k)
		}
	}
	return nil
}

func (r *LetterRepo) ListLetters(_ context.Context, f repositories.LetterFilter) ([]models.Letter, int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	owners := make(map[uint]bool, len(f.OwnerIDs))
	for _, id := range f.OwnerIDs {
		owners[id] = true
	}
	rows := sortedValues(r.d.letters, func(l *models.Letter) bool {
		switch {
		case f.OwnerID != 0 && l.UserID != f.OwnerID:
			return false
		case len(f.OwnerIDs) > 0 && !owners[l.UserID]:
			return false
		case f.Status != "" && l.Status != f.Status:
			return false
		case f.Type != "" && l.Type != f.Type:
			return false
		case f.PublicOnly && !(l.IsPublic && l.Status == models.LetterStatusPublished):
			return false
		case f.Archived != nil && l.IsArchived != *f.Archived:
			return false
		case f.Capsules && !l.IsTimeCapsule:
			return false
		case f.ExcludeAnonymous && l.IsAnonymous:
			return false
		}
		return true
	})
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	return page(rows, f.Page, f.Limit), int64(len(rows)), nil
}

func (r *LetterRepo) PublishDue(_ context.Context, now time.Time) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var n int64
	for _, l := range r.d.letters {
		if l.Status == models.LetterStatusScheduled && l.ScheduledDate != nil && !l.ScheduledDate.After(now) {
			l.Status = models.LetterStatusPublished
			n++
		}
	}
	return n, nil
}
