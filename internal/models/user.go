package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

// ParseRole validates a client-supplied role string. Empty defaults to
// the least-privileged role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleStandard:
		return RoleStandard, true
	}
	if s == "" {
		return RoleStandard, true
	}
	return "", false
}

// Capability is a single permission a route may require. Authorization is
// "required set ⊆ role's set" rather than per-route role lists.
type Capability string

const (
	CapInventoryRead  Capability = "inventory:read"
	CapInventoryWrite Capability = "inventory:write"
	CapRepairsRead    Capability = "repairs:read"
	CapRepairsWrite   Capability = "repairs:write"
	CapUsersManage    Capability = "users:manage"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapInventoryRead:  true,
		CapInventoryWrite: true,
		CapRepairsRead:    true,
		CapRepairsWrite:   true,
		CapUsersManage:    true,
	},
	RoleStandard: {
		CapInventoryRead:  true,
		CapInventoryWrite: true,
		CapRepairsRead:    true,
		CapRepairsWrite:   true,
	},
}

// HasAll reports whether the role's capability set covers every required one.
func (r Role) HasAll(required ...Capability) bool {
	caps := roleCapabilities[r]
	for _, c := range required {
		if !caps[c] {
			return false
		}
	}
	return true
}

// User is the credential-store record. PasswordHash, TwoFactorSecret and
// TwoFactorBackupCodes are never serialized to clients; responses go
// through dtos.NewUserFromModel.
type User struct {
	ID           uuid.UUID
	Nombre       string
	Email        string
	PasswordHash string
	Rol          Role
	Activo       bool

	// Single active refresh token; rotation overwrites it.
	RefreshToken *string

	// Password reset; token stored as SHA-256 hex, short-lived.
	ResetPasswordToken  *string
	ResetPasswordExpire *time.Time

	// Two-factor authentication.
	TwoFactorSecret      *string
	TwoFactorEnabled     bool
	TwoFactorBackupCodes []string

	CreatedAt time.Time
	UpdatedAt time.Time
}
