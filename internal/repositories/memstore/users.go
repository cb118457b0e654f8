package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/repositories"
)

type UserRepo struct{ d *data }

func (r *UserRepo) CreateUser(_ context.Context, user *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.checkUnique(user); err != nil {
		return err
	}
	user.ID = r.d.id()
	user.CreatedAt = r.d.now()
	user.UpdatedAt = user.CreatedAt
	u := *user
	r.d.users[u.ID] = &u
	return nil
}

func (r *UserRepo) checkUnique(user *models.User) error {
	for _, u := range r.d.users {
		if u.ID == user.ID {
			continue
		}
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return repositories.ErrDuplicate
		}
		if u.FirebaseUID != nil && user.FirebaseUID != nil && *u.FirebaseUID == *user.FirebaseUID {
			return repositories.ErrDuplicate
		}
	}
	return nil
}

func (r *UserRepo) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	u, ok := r.d.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *UserRepo) GetUsersByIDs(_ context.Context, ids []uint) ([]models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return sortedValues(r.d.users, func(u *models.User) bool { return want[u.ID] }), nil
}

func (r *UserRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, u := range r.d.users {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *UserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *UserRepo) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.FirebaseUID != nil && *u.FirebaseUID == uid })
}

func (r *UserRepo) UpdateUser(_ context.Context, user *models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	user.UpdatedAt = r.d.now()
	u := *user
	r.d.users[u.ID] = &u
	return nil
}

func (r *UserRepo) SearchUsers(_ context.Context, query string, limit int) ([]models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	q := strings.ToLower(query)
	out := sortedValues(r.d.users, func(u *models.User) bool {
		return strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
