package model

import (
	"fmt"
	"time"
)

// User is an authenticated person. Non-admin roles are tied to a home base.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name,omitempty"`
	Role         string     `json:"role"`
	BaseID       *int64     `json:"base_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin            = "admin"
	RoleBaseCommander    = "base_commander"
	RoleLogisticsOfficer = "logistics_officer"
	RoleUser             = "user"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleBaseCommander, RoleLogisticsOfficer, RoleUser:
		return true
	}
	return false
}

// RoleNeedsBase reports whether users with the role must have a home base.
func RoleNeedsBase(role string) bool {
	return role == RoleBaseCommander || role == RoleUser
}

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Actor returns the access-scoping identity of the user.
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Username: u.Username, Role: u.Role, BaseID: u.BaseID}
}
