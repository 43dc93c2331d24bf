package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andures/inventario-ti/internal/models"
)

func TestTokenCleanup_PurgesExpiredOnly(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRevokedRepo()

	require.NoError(t, repo.Revoke(ctx, &models.RevokedToken{
		Token:     "live-token",
		UserID:    uuid.New(),
		Kind:      models.TokenKindAccess,
		Reason:    models.RevokeReasonLogout,
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, repo.Revoke(ctx, &models.RevokedToken{
		Token:     "stale-token",
		UserID:    uuid.New(),
		Kind:      models.TokenKindRefresh,
		Reason:    models.RevokeReasonLogout,
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	svc := NewTokenCleanupService(repo)
	require.NoError(t, svc.CleanupDaily(ctx))

	revoked, err := repo.IsRevoked(ctx, "live-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	_, stillThere := repo.entries["stale-token"]
	assert.False(t, stillThere)
}
