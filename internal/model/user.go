package model

import (
	"fmt"
	"time"
)

// User is an account that can sign in. Students who borrow equipment are
// users with RoleUser; their ID is what items record as current_user_id.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Email        string     `json:"email,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Active reports whether the account has not been deleted.
func (u *User) Active() bool { return u != nil && u.DeletedAt == nil }

// Roles, from most to least privileged.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// Password length bounds. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

func roleRank(role string) int {
	switch role {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// RoleAtLeast reports whether role grants at least minimum. Unknown roles
// on either side never match.
func RoleAtLeast(role, minimum string) bool {
	need := roleRank(minimum)
	return need > 0 && roleRank(role) >= need
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool { return roleRank(role) > 0 }

// ValidatePassword checks a new password's length.
func ValidatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	case len(password) > MaxPasswordLength:
		return fmt.Errorf("password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}
