package memstore

import (
	"context"
	"sort"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/repositories"
)

type CommentRepo struct{ d *data }

func (r *CommentRepo) CreateComment(_ context.Context, comment *models.Comment) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	comment.ID = r.d.id()
	comment.CreatedAt = r.d.now()
	c := *comment
	r.d.comments[c.ID] = &c
	return nil
}

func (r *CommentRepo) GetCommentByID(_ context.Context, id uint) (*models.Comment, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	c, ok := r.d.comments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *CommentRepo) GetCommentsByLetterID(_ context.Context, letterID uint) ([]models.Comment, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return sortedValues(r.d.comments, func(c *models.Comment) bool { return c.LetterID == letterID }), nil
}

func (r *CommentRepo) DeleteComment(_ context.Context, id uint) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	delete(r.d.comments, id)
	return nil
}

func (r *CommentRepo) CountByLetterIDs(_ context.Context, ids []uint) (map[uint]int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return countBy(r.d.comments, ids, func(c *models.Comment) uint { return c.LetterID }), nil
}

// Count returns the number of stored comments.
func (r *CommentRepo) Count() int {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return len(r.d.comments)
}

func countBy[T any](m map[uint]*T, ids []uint, key func(*T) uint) map[uint]int64 {
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[uint]int64, len(ids))
	for _, v := range m {
		if k := key(v); want[k] {
			out[k]++
		}
	}
	return out
}

func edgeSet[T any](m map[uint]*T, ids []uint, match func(*T) (uint, bool)) map[uint]bool {
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[uint]bool)
	for _, v := range m {
		if k, ok := match(v); ok && want[k] {
			out[k] = true
		}
	}
	return out
}

type LikeRepo struct{ d *data }

func (r *LikeRepo) ToggleLike(_ context.Context, letterID, userID uint) (repositories.ToggleResult, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id, l := range r.d.likes {
		if l.LetterID == letterID && l.UserID == userID {
			delete(r.d.likes, id)
			return repositories.ToggleResult{Active: false, Changed: true}, nil
		}
	}
	id := r.d.id()
	r.d.likes[id] = &models.Like{ID: id, LetterID: letterID, UserID: userID, CreatedAt: r.d.now()}
	return repositories.ToggleResult{Active: true, Changed: true}, nil
}

func (r *LikeRepo) GetLikesByLetterID(_ context.Context, letterID uint) ([]models.Like, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	out := sortedValues(r.d.likes, func(l *models.Like) bool { return l.LetterID == letterID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *LikeRepo) CountByLetterID(_ context.Context, letterID uint) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return countBy(r.d.likes, []uint{letterID}, func(l *models.Like) uint { return l.LetterID })[letterID], nil
}

func (r *LikeRepo) CountByLetterIDs(_ context.Context, ids []uint) (map[uint]int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return countBy(r.d.likes, ids, func(l *models.Like) uint { return l.LetterID }), nil
}

func (r *LikeRepo) LikedLetterIDs(_ context.Context, userID uint, ids []uint) (map[uint]bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return edgeSet(r.d.likes, ids, func(l *models.Like) (uint, bool) { return l.LetterID, l.UserID == userID }), nil
}

type RepostRepo struct{ d *data }

func (r *RepostRepo) ToggleRepost(_ context.Context, userID, letterID uint) (repositories.ToggleResult, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id, rp := range r.d.reposts {
		if rp.LetterID == letterID && rp.UserID == userID {
			delete(r.d.reposts, id)
			return repositories.ToggleResult{Active: false, Changed: true}, nil
		}
	}
	id := r.d.id()
	r.d.reposts[id] = &models.Repost{ID: id, LetterID: letterID, UserID: userID, CreatedAt: r.d.now()}
	return repositories.ToggleResult{Active: true, Changed: true}, nil
}

func (r *RepostRepo) IsReposted(_ context.Context, userID, letterID uint) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, rp := range r.d.reposts {
		if rp.LetterID == letterID && rp.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *RepostRepo) CountByLetterID(_ context.Context, letterID uint) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return countBy(r.d.reposts, []uint{letterID}, func(rp *models.Repost) uint { return rp.LetterID })[letterID], nil
}

func (r *RepostRepo) CountByLetterIDs(_ context.Context, ids []uint) (map[uint]int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return countBy(r.d.reposts, ids, func(rp *models.Repost) uint { return rp.LetterID }), nil
}

func (r *RepostRepo) RepostedLetterIDs(_ context.Context, userID uint, ids []uint) (map[uint]bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return edgeSet(r.d.reposts, ids, func(rp *models.Repost) (uint, bool) { return rp.LetterID, rp.UserID == userID }), nil
}

type FollowRepo struct{ d *data }

func (r *FollowRepo) ToggleFollow(_ context.Context, followerID, followingID uint) (repositories.ToggleResult, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for id, f := range r.d.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID {
			delete(r.d.follows, id)
			return repositories.ToggleResult{Active: false, Changed: true}, nil
		}
	}
	id := r.d.id()
	r.d.follows[id] = &models.Follow{ID: id, FollowerID: followerID, FollowingID: followingID, CreatedAt: r.d.now()}
	return repositories.ToggleResult{Active: true, Changed: true}, nil
}

func (r *FollowRepo) IsFollowing(_ context.Context, followerID, followingID uint) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, f := range r.d.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID {
			return true, nil
		}
	}
	return false, nil
}

func (r *FollowRepo) usersWhere(pick func(*models.Follow) (uint, bool)) []models.User {
	ids := map[uint]bool{}
	for _, f := range r.d.follows {
		if id, ok := pick(f); ok {
			ids[id] = true
		}
	}
	out := sortedValues(r.d.users, func(u *models.User) bool { return ids[u.ID] })
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (r *FollowRepo) GetFollowers(_ context.Context, userID uint) ([]models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.usersWhere(func(f *models.Follow) (uint, bool) { return f.FollowerID, f.FollowingID == userID }), nil
}

func (r *FollowRepo) GetFollowing(_ context.Context, userID uint) ([]models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.usersWhere(func(f *models.Follow) (uint, bool) { return f.FollowingID, f.FollowerID == userID }), nil
}

func (r *FollowRepo) GetFollowersCount(ctx context.Context, userID uint) (int64, error) {
	users, err := r.GetFollowers(ctx, userID)
	return int64(len(users)), err
}

func (r *FollowRepo) GetFollowingCount(ctx context.Context, userID uint) (int64, error) {
	users, err := r.GetFollowing(ctx, userID)
	return int64(len(users)), err
}

func (r *FollowRepo) GetFollowingIDs(_ context.Context, userID uint) ([]uint, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var ids []uint
	for _, f := range sortedValues(r.d.follows, func(f *models.Follow) bool { return f.FollowerID == userID }) {
		ids = append(ids, f.FollowingID)
	}
	return ids, nil
}
