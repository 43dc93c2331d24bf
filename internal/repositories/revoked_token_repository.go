package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/andures/inventario-ti/internal/models"
)

// RevokedTokenRepository is the denylist for tokens invalidated before
// their natural expiry. Signature validity alone cannot reflect a
// post-hoc logout; every authenticated request checks IsRevoked.
type RevokedTokenRepository interface {
	// Revoke records a token. Revoking the same token twice is a no-op
	// (unique on the token value).
	Revoke(ctx context.Context, token *models.RevokedToken) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	// PurgeExpired deletes entries whose expiry has passed. Runs as a
	// scheduled sweep; lookups additionally filter on expiry so a pending
	// sweep never extends a token's effective revocation.
	PurgeExpired(ctx context.Context) (int64, error)
}

type revokedTokenRepository struct {
	db DB
}

func NewRevokedTokenRepository(db DB) RevokedTokenRepository {
	return &revokedTokenRepository{db: db}
}

func (r *revokedTokenRepository) Revoke(ctx context.Context, token *models.RevokedToken) error {
	query := `
		INSERT INTO revoked_tokens (id, token, user_id, kind, reason, expires_at, revoked_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (token) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		uuid.New(),
		token.Token,
		token.UserID,
		token.Kind,
		token.Reason,
		token.ExpiresAt,
		token.RevokedBy,
	)
	return err
}

func (r *revokedTokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM revoked_tokens
			WHERE token = $1 AND expires_at > NOW()
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, token).Scan(&exists)
	return exists, err
}

func (r *revokedTokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM revoked_tokens WHERE expires_at < NOW()`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
