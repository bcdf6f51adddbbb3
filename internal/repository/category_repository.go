package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"recurring-planner/internal/model"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetOrCreate returns the user's category with the given name, creating it
// on first use. A blank name yields no category.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, userID uint, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var category model.Category
	err := r.db.WithContext(ctx).
		Where(model.Category{UserID: userID, Name: name}).
		FirstOrCreate(&category).Error
	if err != nil {
		return nil, fmt.Errorf("get or create category: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Names maps category ids of a user to their names.
func (r *CategoryRepository) Names(ctx context.Context, userID uint) (map[uint]string, error) {
	categories, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}
