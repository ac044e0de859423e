package domain

import "errors"

var (
	ErrNotFound          = errors.New("project not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrStaleState        = errors.New("project state changed concurrently")
	ErrInvalidInput      = errors.New("invalid input")
)
