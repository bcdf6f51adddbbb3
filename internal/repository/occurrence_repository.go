package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"recurring-planner/internal/model"
)

// OccurrenceRepository stores the append-only occurrence history.
type OccurrenceRepository struct {
	db *gorm.DB
}

func NewOccurrenceRepository(db *gorm.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

func (r *OccurrenceRepository) Append(ctx context.Context, occ *model.Occurrence) error {
	if err := r.db.WithContext(ctx).Create(occ).Error; err != nil {
		return fmt.Errorf("append occurrence: %w", err)
	}
	return nil
}

// ListByTask returns the newest limit records of a task, oldest first.
// limit <= 0 returns the whole history; userID 0 matches any user.
func (r *OccurrenceRepository) ListByTask(ctx context.Context, userID, taskID uint, limit int) ([]model.Occurrence, error) {
	var occs []model.Occurrence
	q := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("id DESC")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&occs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(occs)-1; i < j; i, j = i+1, j-1 {
		occs[i], occs[j] = occs[j], occs[i]
	}
	return occs, nil
}

func (r *OccurrenceRepository) DeleteByTask(ctx context.Context, userID, taskID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND task_id = ?", userID, taskID).
		Delete(&model.Occurrence{}).Error; err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}
