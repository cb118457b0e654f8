package handlers

import (
	"context"
	"time"

	"github.com/anonto42/letterly/backend/internal/models"
	"github.com/anonto42/letterly/backend/internal/repositories"
)

// letterPresenter turns stored letters into per-viewer views with counts and flags.
type letterPresenter struct {
	users    repositories.UserRepository
	comments repositories.CommentRepository
	likes    repositories.LikeRepository
	reposts  repositories.RepostRepository
	now      func() time.Time
}

func (p *letterPresenter) views(ctx context.Context, letters []models.Letter, viewerID uint) ([]models.LetterView, error) {
	out := make([]models.LetterView, 0, len(letters))
	if len(letters) == 0 {
		return out, nil
	}

	ids := make([]uint, 0, len(letters))
	owners := make([]uint, 0, len(letters))
	for i := range letters {
		ids = append(ids, letters[i].ID)
		owners = append(owners, letters[i].UserID)
	}

	authors, err := compactUsers(ctx, p.users, owners)
	if err != nil {
		return nil, err
	}
	likeCounts, err := p.likes.CountByLetterIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	commentCounts, err := p.comments.CountByLetterIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	repostCounts, err := p.reposts.CountByLetterIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	liked, err := p.likes.LikedLetterIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	reposted, err := p.reposts.RepostedLetterIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	now := p.now()
	for i := range letters {
		l := letters[i]
		var author *models.UserCompact
		if a, ok := authors[l.UserID]; ok {
			author = &a
		}
		v := models.NewLetterView(l, author, viewerID, now)
		v.LikeCount = likeCounts[l.ID]
		v.CommentCount = commentCounts[l.ID]
		v.RepostCount = repostCounts[l.ID]
		v.IsLiked = liked[l.ID]
		v.IsReposted = reposted[l.ID]
		out = append(out, v)
	}
	return out, nil
}

func (p *letterPresenter) view(ctx context.Context, letter models.Letter, viewerID uint) (models.LetterView, error) {
	vs, err := p.views(ctx, []models.Letter{letter}, viewerID)
	if err != nil {
		return models.LetterView{}, err
	}
	return vs[0], nil
}
