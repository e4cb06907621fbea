package users

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// User is an authenticated account. Accounts are created on first login
// and refreshed on every subsequent one.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}
