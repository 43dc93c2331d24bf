package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind distinguishes the two bearer credentials in the denylist.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// RevokeReason records why a token landed on the denylist.
type RevokeReason string

const (
	RevokeReasonLogout   RevokeReason = "logout"
	RevokeReasonSecurity RevokeReason = "security"
	RevokeReasonExpired  RevokeReason = "expired"
	RevokeReasonAdmin    RevokeReason = "admin"
)

// RevokedToken is an append-only denylist entry. Rows are never mutated
// and disappear once ExpiresAt passes (cleanup sweep + expiry-filtered
// lookups).
type RevokedToken struct {
	ID        uuid.UUID
	Token     string
	UserID    uuid.UUID
	Kind      TokenKind
	Reason    RevokeReason
	ExpiresAt time.Time
	RevokedBy string // IP or admin identity
	CreatedAt time.Time
}
