package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/andures/inventario-ti/internal/config"
	"github.com/andures/inventario-ti/internal/models"
	"github.com/andures/inventario-ti/internal/repositories"
	"github.com/andures/inventario-ti/internal/utils"
)

// TwoFactorService owns TOTP secrets and backup codes. A code is only
// accepted for login once its owner has a confirmed (enabled) secret.
type TwoFactorService interface {
	// Setup generates a fresh secret (not yet enabled) and returns it with
	// the otpauth provisioning URI.
	Setup(ctx context.Context, userID uuid.UUID) (secret, provisioningURI string, err error)
	// ConfirmEnable verifies the code against the pending secret; on success
	// it enables 2FA and returns the plaintext backup codes exactly once.
	ConfirmEnable(ctx context.Context, userID uuid.UUID, code string) ([]string, error)
	// VerifyLoginStep checks a TOTP code or consumes a backup code. A false
	// return is a mismatch, not an error; the caller decides how to respond.
	VerifyLoginStep(ctx context.Context, user *models.User, code string, useBackupCode bool) (bool, error)
	// Disable clears all 2FA state. The caller must have reverified the
	// password first.
	Disable(ctx context.Context, userID uuid.UUID) error
	Status(ctx context.Context, userID uuid.UUID) (enabled bool, backupCodesRemaining int, err error)
}

type twoFactorService struct {
	userRepo repositories.UserRepository
	cfg      *config.Config
}

func NewTwoFactorService(userRepo repositories.UserRepository, cfg *config.Config) TwoFactorService {
	return &twoFactorService{userRepo: userRepo, cfg: cfg}
}

func (s *twoFactorService) Setup(ctx context.Context, userID uuid.UUID) (string, string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", utils.ErrUserNotFound
	}

	secret, uri, err := utils.GenerateTOTPSecret(s.cfg.TOTPIssuer, user.Email)
	if err != nil {
		return "", "", err
	}

	if err := s.userRepo.SetTwoFactorSecret(ctx, userID, secret); err != nil {
		return "", "", err
	}

	utils.Logger.WithFields(logrus.Fields{
		"event":   "2FA_SETUP",
		"user_id": userID,
	}).Info("2FA setup initiated")

	return secret, uri, nil
}

func (s *twoFactorService) ConfirmEnable(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}
	if user.TwoFactorSecret == nil || *user.TwoFactorSecret == "" {
		return nil, utils.ErrTwoFactorNotSetup
	}

	if !utils.ValidateTOTPCode(*user.TwoFactorSecret, code) {
		utils.Logger.WithFields(logrus.Fields{
			"event":   "2FA_VERIFY_FAILED",
			"user_id": userID,
		}).Warn("2FA enable verification failed")
		return nil, utils.ErrInvalidTwoFactor
	}

	codes := make([]string, 0, s.cfg.BackupCodeCount)
	hashes := make([]string, 0, s.cfg.BackupCodeCount)
	for i := 0; i < s.cfg.BackupCodeCount; i++ {
		bc, err := utils.RandomBackupCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, bc)
		hashes = append(hashes, utils.HashToken(bc))
	}

	if err := s.userRepo.EnableTwoFactor(ctx, userID, hashes); err != nil {
		return nil, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"event":   "2FA_ENABLED",
		"user_id": userID,
	}).Info("2FA enabled successfully")

	return codes, nil
}

func (s *twoFactorService) VerifyLoginStep(ctx context.Context, user *models.User, code string, useBackupCode bool) (bool, error) {
	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return false, utils.ErrTwoFactorNotEnabled
	}

	if useBackupCode {
		hash := utils.HashToken(strings.ToUpper(strings.TrimSpace(code)))
		consumed, err := s.userRepo.ConsumeBackupCode(ctx, user.ID, hash)
		if err != nil {
			return false, err
		}
		if consumed {
			utils.Logger.WithFields(logrus.Fields{
				"event":   "2FA_BACKUP_CODE_USED",
				"user_id": user.ID,
			}).Info("2FA backup code used")
		}
		return consumed, nil
	}

	return utils.ValidateTOTPCode(*user.TwoFactorSecret, code), nil
}

func (s *twoFactorService) Disable(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.DisableTwoFactor(ctx, userID); err != nil {
		return err
	}
	utils.Logger.WithFields(logrus.Fields{
		"event":   "2FA_DISABLED",
		"user_id": userID,
	}).Warn("2FA disabled")
	return nil
}

func (s *twoFactorService) Status(ctx context.Context, userID uuid.UUID) (bool, int, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	if user == nil {
		return false, 0, utils.ErrUserNotFound
	}
	return user.TwoFactorEnabled, len(user.TwoFactorBackupCodes), nil
}
