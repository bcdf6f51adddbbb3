package service

import (
	"context"

	"recurring-planner/internal/model"
	"recurring-planner/internal/repository"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context, user *model.User) ([]model.Category, error) {
	return s.repo.ListByUser(ctx, user.ID)
}

// Names maps category ids of the user to their names.
func (s *CategoryService) Names(ctx context.Context, user *model.User) (map[uint]string, error) {
	return s.repo.Names(ctx, user.ID)
}
