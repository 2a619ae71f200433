// Package auth authenticates back-office users and issues API session
// tokens backed by Redis.
package auth

import (
	"errors"
	"time"
)

// Roles assignable to a user account.
const (
	RoleAdmin  = "ADMIN"
	RoleSeller = "SELLER"
)

// User is a back-office account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sentinel errors.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserNotFound       = errors.New("auth: user not found")
)
