package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andures/inventario-ti/internal/config"
	"github.com/andures/inventario-ti/internal/models"
	"github.com/andures/inventario-ti/internal/services"
	"github.com/andures/inventario-ti/internal/utils"
)

// Minimal doubles: only the methods the middleware touches do real work.

type stubUserRepo struct {
	users map[uuid.UUID]*models.User
}

func (r *stubUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (r *stubUserRepo) Create(context.Context, *models.User) error { return nil }
func (r *stubUserRepo) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, nil
}
func (r *stubUserRepo) SetRefreshToken(context.Context, uuid.UUID, string) error { return nil }
func (r *stubUserRepo) ClearRefreshToken(context.Context, uuid.UUID) error       { return nil }
func (r *stubUserRepo) RotateRefreshToken(context.Context, uuid.UUID, string, string) (bool, error) {
	return false, nil
}
func (r *stubUserRepo) SetResetToken(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}
func (r *stubUserRepo) ClearResetToken(context.Context, uuid.UUID) error { return nil }
func (r *stubUserRepo) GetByResetTokenHash(context.Context, string) (*models.User, error) {
	return nil, nil
}
func (r *stubUserRepo) SetPasswordAndClearReset(context.Context, uuid.UUID, string) error {
	return nil
}
func (r *stubUserRepo) SetTwoFactorSecret(context.Context, uuid.UUID, string) error { return nil }
func (r *stubUserRepo) EnableTwoFactor(context.Context, uuid.UUID, []string) error  { return nil }
func (r *stubUserRepo) ConsumeBackupCode(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}
func (r *stubUserRepo) DisableTwoFactor(context.Context, uuid.UUID) error { return nil }

type stubRevokedRepo struct {
	revoked map[string]bool
}

func (r *stubRevokedRepo) Revoke(ctx context.Context, token *models.RevokedToken) error {
	r.revoked[token.Token] = true
	return nil
}
func (r *stubRevokedRepo) IsRevoked(ctx context.Context, token string) (bool, error) {
	return r.revoked[token], nil
}
func (r *stubRevokedRepo) PurgeExpired(context.Context) (int64, error) { return 0, nil }

type guardFixture struct {
	tokens      *services.TokenService
	userRepo    *stubUserRepo
	revokedRepo *stubRevokedRepo
	user        *models.User
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:          []byte("test-access-secret"),
		JWTRefreshSecret:   []byte("test-refresh-secret"),
		TokenIssuer:        config.TokenIssuer,
		TokenAudience:      config.TokenAudience,
		AccessTokenExpiry:  config.DefaultAccessTokenExpiry,
		RefreshTokenExpiry: config.DefaultRefreshTokenExpiry,
		PendingTokenExpiry: config.DefaultPendingTokenExpiry,
	}
	tokens, err := services.NewTokenService(cfg)
	require.NoError(t, err)

	user := &models.User{
		ID:     uuid.New(),
		Nombre: "Ana Torres",
		Email:  "ana@example.com",
		Rol:    models.RoleStandard,
		Activo: true,
	}
	return &guardFixture{
		tokens:      tokens,
		userRepo:    &stubUserRepo{users: map[uuid.UUID]*models.User{user.ID: user}},
		revokedRepo: &stubRevokedRepo{revoked: map[string]bool{}},
		user:        user,
	}
}

func (f *guardFixture) handler(extra ...func(http.Handler) http.Handler) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(user.Email))
	})
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	return Protect(f.tokens, f.revokedRepo, f.userRepo)(h)
}

func (f *guardFixture) do(t *testing.T, h http.Handler, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestProtect_ValidToken(t *testing.T) {
	f := newGuardFixture(t)
	token, err := f.tokens.IssueAccess(f.user.ID)
	require.NoError(t, err)

	rec := f.do(t, f.handler(), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.user.Email, rec.Body.String())
}

func TestProtect_MissingHeader(t *testing.T) {
	f := newGuardFixture(t)
	rec := f.do(t, f.handler(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, utils.ErrCodeUnauthorized, errCode(t, rec))
}

func TestProtect_RefreshTokenRejected(t *testing.T) {
	f := newGuardFixture(t)
	refresh, err := f.tokens.IssueRefresh(f.user.ID)
	require.NoError(t, err)

	rec := f.do(t, f.handler(), "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtect_RevokedToken(t *testing.T) {
	f := newGuardFixture(t)
	token, err := f.tokens.IssueAccess(f.user.ID)
	require.NoError(t, err)
	f.revokedRepo.revoked[token] = true

	rec := f.do(t, f.handler(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, utils.ErrCodeTokenRevoked, errCode(t, rec))
}

func TestProtect_InactiveUser(t *testing.T) {
	f := newGuardFixture(t)
	f.user.Activo = false
	token, err := f.tokens.IssueAccess(f.user.ID)
	require.NoError(t, err)

	rec := f.do(t, f.handler(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, utils.ErrCodeInactiveUser, errCode(t, rec))
}

func TestProtect_DeletedUser(t *testing.T) {
	f := newGuardFixture(t)
	token, err := f.tokens.IssueAccess(uuid.New())
	require.NoError(t, err)

	rec := f.do(t, f.handler(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, utils.ErrCodeUserNotFound, errCode(t, rec))
}

func TestAuthorize_CapabilityCheck(t *testing.T) {
	f := newGuardFixture(t)
	token, err := f.tokens.IssueAccess(f.user.ID)
	require.NoError(t, err)

	// Standard role covers inventory but not user management.
	rec := f.do(t, f.handler(Authorize(models.CapInventoryWrite)), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, f.handler(Authorize(models.CapUsersManage)), "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, utils.ErrCodeForbidden, errCode(t, rec))
}

func TestAuthorize_AdminHasAllCapabilities(t *testing.T) {
	f := newGuardFixture(t)
	f.user.Rol = models.RoleAdmin
	token, err := f.tokens.IssueAccess(f.user.ID)
	require.NoError(t, err)

	rec := f.do(t, f.handler(Authorize(
		models.CapInventoryRead, models.CapInventoryWrite,
		models.CapRepairsRead, models.CapRepairsWrite,
		models.CapUsersManage,
	)), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}
