package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle, so a unit
// of work can run all of them inside a single transaction.
type Store struct {
	db *gorm.DB

	Users       *UserRepository
	Categories  *CategoryRepository
	Tasks       *TaskRepository
	Occurrences *OccurrenceRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Users:       NewUserRepository(db),
		Categories:  NewCategoryRepository(db),
		Tasks:       NewTaskRepository(db),
		Occurrences: NewOccurrenceRepository(db),
	}
}

// Atomic runs fn in a transaction. fn must only use the Store it is given.
// The transaction rolls back when fn returns an error.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the underlying handle for lifecycle management.
func (s *Store) DB() *gorm.DB { return s.db }
