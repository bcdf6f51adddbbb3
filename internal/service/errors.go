package service

import "errors"

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrTitleRequired    = errors.New("title is required")
	ErrAlreadyCompleted = errors.New("task is already completed")
	ErrNothingToEdit    = errors.New("edit changes nothing")
)
