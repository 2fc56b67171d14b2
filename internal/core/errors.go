package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeValidation = "validation"
	ErrCodeConflict   = "conflict"
	ErrCodeStorage    = "storage"
	ErrCodeNotFound   = "not_found"
)

var (
	ErrEmptyContent     = errors.New("content is required")
	ErrMissingSender    = errors.New("sender_id is required")
	ErrMissingRecipient = errors.New("recipient_id is required")
	ErrMissingGroup     = errors.New("group_id is required")
	ErrUserConflict     = errors.New("session already attached to a different user")
)

// Error wraps a code and human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func validationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

func storageError(msg string) *Error {
	return &Error{Code: ErrCodeStorage, Message: msg}
}
