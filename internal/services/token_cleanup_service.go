package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/andures/inventario-ti/internal/repositories"
	"github.com/andures/inventario-ti/internal/utils"
)

// One retry on transient network errors (EOF, closed-connection) with a
// small back-off before giving up until the next scheduled run.
const cleanupRetryDelay = 3 * time.Second

// TokenCleanupService prunes expired denylist entries each night. Lookups
// already filter on expiry, so this only reclaims storage.
type TokenCleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type tokenCleanupService struct {
	revokedRepo repositories.RevokedTokenRepository
}

func NewTokenCleanupService(revokedRepo repositories.RevokedTokenRepository) TokenCleanupService {
	return &tokenCleanupService{revokedRepo: revokedRepo}
}

// runWithRetry executes op(ctx) and, if it returns a transient network
// error (EOF, pgconn safe-to-retry, or the common closed-connection
// message), waits a moment then retries once.
func (s *tokenCleanupService) runWithRetry(
	ctx context.Context,
	op func(context.Context) error,
) error {
	if err := op(ctx); err != nil {
		if errors.Is(err, io.EOF) || pgconn.SafeToRetry(err) ||
			strings.Contains(err.Error(), "connection was closed") {
			utils.Logger.WithError(err).Warn("token cleanup hit transient DB error; retrying once")
			time.Sleep(cleanupRetryDelay)
			return op(ctx)
		}
		return err
	}
	return nil
}

func (s *tokenCleanupService) CleanupDaily(ctx context.Context) error {
	var purged int64
	err := s.runWithRetry(ctx, func(ctx context.Context) error {
		n, err := s.revokedRepo.PurgeExpired(ctx)
		purged = n
		return err
	})
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to purge expired revoked tokens")
		return err
	}

	utils.Logger.WithFields(logrus.Fields{
		"event":  "REVOKED_TOKENS_PURGED",
		"purged": purged,
	}).Info("Daily revoked-token cleanup completed")
	return nil
}
