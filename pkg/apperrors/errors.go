package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyQuestion   = errors.New("question is required")
	ErrEmptySQL        = errors.New("sql is required")
	ErrHistoryDisabled = errors.New("query history is disabled")
)
