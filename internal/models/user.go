package models

import "time"

// User represents an operator of the back office
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Not serialized
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the identity resolved from a bearer token
type Principal struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
