package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/andures/inventario-ti/internal/models"
	"github.com/andures/inventario-ti/internal/utils"
)

// UserRepository is the credential store. All mutations are single-row
// atomic statements keyed on unique fields so concurrent requests on
// different users never interfere.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// Refresh-token field (single active token per user).
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
	// RotateRefreshToken swaps old for new only if old is still the stored
	// value. Returns false when a concurrent rotation won the race.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string) (bool, error)

	// Password reset.
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expire time.Time) error
	ClearResetToken(ctx context.Context, id uuid.UUID) error
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	// SetPasswordAndClearReset stores the new hash, clears reset fields and
	// invalidates the stored refresh token in one statement.
	SetPasswordAndClearReset(ctx context.Context, id uuid.UUID, passwordHash string) error

	// Two-factor state.
	SetTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTwoFactor(ctx context.Context, id uuid.UUID, backupCodeHashes []string) error
	// ConsumeBackupCode atomically removes one matching hash; false when the
	// code was never issued or already spent.
	ConsumeBackupCode(ctx context.Context, id uuid.UUID, codeHash string) (bool, error)
	DisableTwoFactor(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db DB
}

func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `
	id, nombre, email, password_hash, rol, activo,
	refresh_token, reset_password_token, reset_password_expire,
	two_factor_secret, two_factor_enabled, two_factor_backup_codes,
	created_at, updated_at
`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Nombre,
		&u.Email,
		&u.PasswordHash,
		&u.Rol,
		&u.Activo,
		&u.RefreshToken,
		&u.ResetPasswordToken,
		&u.ResetPasswordExpire,
		&u.TwoFactorSecret,
		&u.TwoFactorEnabled,
		&u.TwoFactorBackupCodes,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, nombre, email, password_hash, rol, activo, created_at, updated_at)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Nombre,
		user.Email,
		user.PasswordHash,
		user.Rol,
		user.Activo,
	)
	if isUniqueViolation(err) {
		return utils.ErrEmailExists
	}
	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = LOWER($1)`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// ----------------------------
// Refresh token
// ----------------------------

func (r *userRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE users SET refresh_token = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, token)
	return err
}

func (r *userRepository) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET refresh_token = NULL, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *userRepository) RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string) (bool, error) {
	query := `
		UPDATE users SET refresh_token = $3, updated_at = NOW()
		WHERE id = $1 AND refresh_token = $2
	`
	tag, err := r.db.Exec(ctx, query, id, oldToken, newToken)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ----------------------------
// Password reset
// ----------------------------

func (r *userRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expire time.Time) error {
	query := `
		UPDATE users SET reset_password_token = $2, reset_password_expire = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, tokenHash, expire)
	return err
}

func (r *userRepository) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users SET reset_password_token = NULL, reset_password_expire = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *userRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE reset_password_token = $1 AND reset_password_expire > NOW()
	`
	return scanUser(r.db.QueryRow(ctx, query, tokenHash))
}

func (r *userRepository) SetPasswordAndClearReset(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users SET
			password_hash = $2,
			reset_password_token = NULL,
			reset_password_expire = NULL,
			refresh_token = NULL,
			updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, passwordHash)
	return err
}

// ----------------------------
// Two-factor
// ----------------------------

func (r *userRepository) SetTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error {
	query := `UPDATE users SET two_factor_secret = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, secret)
	return err
}

func (r *userRepository) EnableTwoFactor(ctx context.Context, id uuid.UUID, backupCodeHashes []string) error {
	query := `
		UPDATE users SET two_factor_enabled = TRUE, two_factor_backup_codes = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, backupCodeHashes)
	return err
}

func (r *userRepository) ConsumeBackupCode(ctx context.Context, id uuid.UUID, codeHash string) (bool, error) {
	query := `
		UPDATE users SET two_factor_backup_codes = array_remove(two_factor_backup_codes, $2), updated_at = NOW()
		WHERE id = $1 AND $2 = ANY(two_factor_backup_codes)
	`
	tag, err := r.db.Exec(ctx, query, id, codeHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *userRepository) DisableTwoFactor(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users SET
			two_factor_enabled = FALSE,
			two_factor_secret = NULL,
			two_factor_backup_codes = NULL,
			updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
