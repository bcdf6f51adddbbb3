package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"recurring-planner/internal/model"
)

// ErrConflict means the task changed since it was read.
var ErrConflict = errors.New("task was modified concurrently")

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.Version == 0 {
		task.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListOpen returns the tasks that still need attention: one-off tasks not
// yet done and recurring series that have not ended.
func (r *TaskRepository) ListOpen(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND is_completed = ?", userID, false).
		Order("deadline NULLS LAST, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListDetached returns the tasks split off the given series.
func (r *TaskRepository) ListDetached(ctx context.Context, userID, seriesID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND detached_from_id = ?", userID, seriesID).
		Order("deadline, id").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update writes every column of task if the stored version still matches
// task.Version, then bumps the version. A stale task yields ErrConflict and
// is left unchanged.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	read := task.Version
	task.Version = read + 1

	res := r.db.WithContext(ctx).Model(task).
		Where("version = ?", read).
		Select("*").Omit("created_at").
		Updates(task)
	if res.Error != nil {
		task.Version = read
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		task.Version = read
		return fmt.Errorf("update task %d: %w", task.ID, ErrConflict)
	}
	return nil
}

// Delete removes a task for the given user, regardless of it being recurring
// or not. Deleting a missing task returns gorm.ErrRecordNotFound.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
