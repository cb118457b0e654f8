package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToggleResult is the outcome of flipping an (actor, target) edge.
type ToggleResult struct {
	// Active is the state of the edge after the call.
	Active bool
	// Changed is false when a concurrent call had already created the edge.
	Changed bool
}

// toggleEdge deletes the edge matching where; if nothing was deleted it inserts row,
// relying on the unique index over the same columns to absorb concurrent inserts.
func toggleEdge[T any](ctx context.Context, db *gorm.DB, where map[string]interface{}, row *T) (ToggleResult, error) {
	res := db.WithContext(ctx).Where(where).Delete(new(T))
	if res.Error != nil {
		return ToggleResult{}, res.Error
	}
	if res.RowsAffected > 0 {
		return ToggleResult{Active: false, Changed: true}, nil
	}

	res = db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return ToggleResult{}, res.Error
	}
	return ToggleResult{Active: true, Changed: res.RowsAffected > 0}, nil
}

type letterCount struct {
	LetterID uint
	Count    int64
}

// countByLetter groups rows of model by letter_id for ids.
func countByLetter(ctx context.Context, db *gorm.DB, model interface{}, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []letterCount
	err := db.WithContext(ctx).Model(model).
		Select("letter_id, COUNT(*) AS count").
		Where("letter_id IN ?", ids).
		Group("letter_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.LetterID] = r.Count
	}
	return out, nil
}

// letterIDsFor returns which of ids userID has an edge to in model.
func letterIDsFor(ctx context.Context, db *gorm.DB, model interface{}, userID uint, ids []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(ids))
	if userID == 0 || len(ids) == 0 {
		return out, nil
	}
	var found []uint
	err := db.WithContext(ctx).Model(model).
		Where("user_id = ? AND letter_id IN ?", userID, ids).
		Pluck("letter_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}
