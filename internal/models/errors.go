package models

import "errors"

// Sentinel errors shared by repository, service and handler layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrLimitExceeded = errors.New("overdraft limit exceeded")
	ErrInvalidState  = errors.New("invalid account state")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrValidation    = errors.New("validation failed")
	ErrDuplicate     = errors.New("already exists")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
)
