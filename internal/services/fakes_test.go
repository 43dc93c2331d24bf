package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andures/inventario-ti/internal/models"
	"github.com/andures/inventario-ti/internal/utils"
)

// In-memory repository doubles. Behavior mirrors the SQL statements:
// lookups return (nil, nil) on a miss and mutations are keyed on id.

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*models.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return utils.ErrEmailExists
		}
	}
	user.Email = strings.ToLower(user.Email)
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	u, ok := r.users[id]
	if !ok {
		return errors.New("no such user")
	}
	u.RefreshToken = &token
	return nil
}

func (r *fakeUserRepo) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	if u, ok := r.users[id]; ok {
		u.RefreshToken = nil
	}
	return nil
}

func (r *fakeUserRepo) RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string) (bool, error) {
	u, ok := r.users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != oldToken {
		return false, nil
	}
	u.RefreshToken = &newToken
	return true, nil
}

func (r *fakeUserRepo) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expire time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return errors.New("no such user")
	}
	u.ResetPasswordToken = &tokenHash
	u.ResetPasswordExpire = &expire
	return nil
}

func (r *fakeUserRepo) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	if u, ok := r.users[id]; ok {
		u.ResetPasswordToken = nil
		u.ResetPasswordExpire = nil
	}
	return nil
}

func (r *fakeUserRepo) GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	for _, u := range r.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == tokenHash &&
			u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(time.Now()) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) SetPasswordAndClearReset(ctx context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return errors.New("no such user")
	}
	u.PasswordHash = passwordHash
	u.ResetPasswordToken = nil
	u.ResetPasswordExpire = nil
	u.RefreshToken = nil
	return nil
}

func (r *fakeUserRepo) SetTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error {
	u, ok := r.users[id]
	if !ok {
		return errors.New("no such user")
	}
	u.TwoFactorSecret = &secret
	return nil
}

func (r *fakeUserRepo) EnableTwoFactor(ctx context.Context, id uuid.UUID, backupCodeHashes []string) error {
	u, ok := r.users[id]
	if !ok {
		return errors.New("no such user")
	}
	u.TwoFactorEnabled = true
	u.TwoFactorBackupCodes = append([]string(nil), backupCodeHashes...)
	return nil
}

func (r *fakeUserRepo) ConsumeBackupCode(ctx context.Context, id uuid.UUID, codeHash string) (bool, error) {
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	for i, h := range u.TwoFactorBackupCodes {
		if h == codeHash {
			u.TwoFactorBackupCodes = append(u.TwoFactorBackupCodes[:i], u.TwoFactorBackupCodes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) DisableTwoFactor(ctx context.Context, id uuid.UUID) error {
	u, ok := r.users[id]
	if !ok {
		return errors.New("no such user")
	}
	u.TwoFactorEnabled = false
	u.TwoFactorSecret = nil
	u.TwoFactorBackupCodes = nil
	return nil
}

type fakeRevokedRepo struct {
	entries map[string]*models.RevokedToken
}

func newFakeRevokedRepo() *fakeRevokedRepo {
	return &fakeRevokedRepo{entries: map[string]*models.RevokedToken{}}
}

func (r *fakeRevokedRepo) Revoke(ctx context.Context, token *models.RevokedToken) error {
	if _, exists := r.entries[token.Token]; exists {
		return nil
	}
	cp := *token
	r.entries[token.Token] = &cp
	return nil
}

func (r *fakeRevokedRepo) IsRevoked(ctx context.Context, token string) (bool, error) {
	e, ok := r.entries[token]
	return ok && e.ExpiresAt.After(time.Now()), nil
}

func (r *fakeRevokedRepo) PurgeExpired(ctx context.Context) (int64, error) {
	var n int64
	for tok, e := range r.entries {
		if e.ExpiresAt.Before(time.Now()) {
			delete(r.entries, tok)
			n++
		}
	}
	return n, nil
}

type fakeMailer struct {
	sent     []string // recipient addresses, in order
	failWith error
}

func (m *fakeMailer) Send(ctx context.Context, toEmail, subject, plainText, htmlContent string) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, toEmail)
	return nil
}
