package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/andures/inventario-ti/internal/config"
	"github.com/andures/inventario-ti/internal/models"
	"github.com/andures/inventario-ti/internal/repositories"
	"github.com/andures/inventario-ti/internal/utils"
)

// LoginResult carries either a completed session (token pair) or a 2FA
// step-up challenge, never both.
type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string

	Requires2FA  bool
	PendingToken string
}

// TokenPair is a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService orchestrates the full account lifecycle: registration,
// login (with optional 2FA step-up), refresh rotation, logout and
// password recovery. It never talks to the database directly.
type AuthService interface {
	// Register creates the account and immediately opens a session, storing
	// the fresh refresh token as the user's single active one.
	Register(ctx context.Context, nombre, email, password, role string) (*LoginResult, error)
	// Login verifies credentials. When the account has 2FA enabled and no
	// code is supplied, the result carries Requires2FA plus a short-lived
	// pending token instead of a session.
	Login(ctx context.Context, email, password, twoFactorCode string, useBackupCode bool) (*LoginResult, error)
	// CompleteTwoFactorLogin exchanges a pending token plus a valid TOTP or
	// backup code for a real session.
	CompleteTwoFactorLogin(ctx context.Context, pendingToken, code string, useBackupCode bool) (*LoginResult, error)
	// Refresh rotates the refresh token: the presented token must match the
	// stored one and is replaced atomically, so a replayed token fails.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// Logout denylists the access token and the user's stored refresh token.
	// Logging out an already logged-out session is a no-op.
	Logout(ctx context.Context, userID uuid.UUID, accessToken, revokedBy string) error
	// LogoutAll is Logout with reason "security"; with one stored refresh
	// token per user it terminates every session.
	LogoutAll(ctx context.Context, userID uuid.UUID, accessToken, revokedBy string) error
	// ForgotPassword emails a single-use reset link. Unknown addresses
	// return success so the endpoint cannot be used to enumerate accounts.
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) (*models.User, error)
	// Disable2FA requires password re-verification before clearing 2FA state.
	Disable2FA(ctx context.Context, userID uuid.UUID, password string) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type authService struct {
	userRepo    repositories.UserRepository
	revokedRepo repositories.RevokedTokenRepository
	tokens      *TokenService
	twoFactor   TwoFactorService
	mailer      Mailer
	cfg         *config.Config
}

func NewAuthService(
	userRepo repositories.UserRepository,
	revokedRepo repositories.RevokedTokenRepository,
	tokens *TokenService,
	twoFactor TwoFactorService,
	mailer Mailer,
	cfg *config.Config,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		revokedRepo: revokedRepo,
		tokens:      tokens,
		twoFactor:   twoFactor,
		mailer:      mailer,
		cfg:         cfg,
	}
}

func (s *authService) Register(ctx context.Context, nombre, email, password, role string) (*LoginResult, error) {
	rol, ok := models.ParseRole(role)
	if !ok {
		return nil, utils.ErrInvalidRole
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// The store lowercases on insert; normalize here too so the returned
	// record matches the persisted row.
	user := &models.User{
		ID:           uuid.New(),
		Nombre:       nombre,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Rol:          rol,
		Activo:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"event":   "USER_REGISTERED",
		"user_id": user.ID,
		"rol":     user.Rol,
	}).Info("New user registered")

	return s.issueSession(ctx, user)
}

func (s *authService) Login(ctx context.Context, email, password, twoFactorCode string, useBackupCode bool) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// Unknown email and wrong password are indistinguishable to the caller.
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		utils.Logger.WithFields(logrus.Fields{
			"event": "LOGIN_FAILED",
			"email": email,
		}).Warn("Invalid credentials")
		return nil, utils.ErrInvalidCredentials
	}
	if !user.Activo {
		return nil, utils.ErrInactiveUser
	}

	if user.TwoFactorEnabled {
		// One-shot path: code supplied alongside the password.
		if twoFactorCode != "" {
			ok, err := s.twoFactor.VerifyLoginStep(ctx, user, twoFactorCode, useBackupCode)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, utils.ErrInvalidTwoFactor
			}
			return s.issueSession(ctx, user)
		}

		pending, err := s.tokens.IssuePending(user.ID)
		if err != nil {
			return nil, err
		}
		utils.Logger.WithFields(logrus.Fields{
			"event":   "LOGIN_2FA_REQUIRED",
			"user_id": user.ID,
		}).Info("Password accepted, awaiting second factor")
		return &LoginResult{User: user, Requires2FA: true, PendingToken: pending}, nil
	}

	return s.issueSession(ctx, user)
}

func (s *authService) CompleteTwoFactorLogin(ctx context.Context, pendingToken, code string, useBackupCode bool) (*LoginResult, error) {
	claims, err := s.tokens.VerifyPending(pendingToken)
	if err != nil {
		return nil, err
	}
	userID, err := claims.SubjectID()
	if err != nil {
		return nil, utils.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}
	if !user.Activo {
		return nil, utils.ErrInactiveUser
	}

	ok, err := s.twoFactor.VerifyLoginStep(ctx, user, code, useBackupCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		utils.Logger.WithFields(logrus.Fields{
			"event":   "2FA_LOGIN_FAILED",
			"user_id": user.ID,
		}).Warn("Invalid second factor")
		return nil, utils.ErrInvalidTwoFactor
	}

	return s.issueSession(ctx, user)
}

// issueSession mints the access/refresh pair and stores the refresh token
// as the user's single active one, displacing any previous session.
func (s *authService) issueSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"event":   "LOGIN_SUCCESS",
		"user_id": user.ID,
	}).Info("Session issued")

	return &LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	userID, err := claims.SubjectID()
	if err != nil {
		return nil, utils.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		// Valid signature but not the stored token: stale or replayed.
		utils.Logger.WithFields(logrus.Fields{
			"event":   "REFRESH_REJECTED",
			"user_id": user.ID,
		}).Warn("Refresh token does not match stored token")
		return nil, utils.ErrInvalidToken
	}
	if !user.Activo {
		return nil, utils.ErrInactiveUser
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	newRefresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	rotated, err := s.userRepo.RotateRefreshToken(ctx, user.ID, refreshToken, newRefresh)
	if err != nil {
		return nil, err
	}
	if !rotated {
		// Lost the race against a concurrent rotation; treat as a replay.
		return nil, utils.ErrInvalidToken
	}

	return &TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

func (s *authService) Logout(ctx context.Context, userID uuid.UUID, accessToken, revokedBy string) error {
	return s.logout(ctx, userID, accessToken, revokedBy, models.RevokeReasonLogout)
}

func (s *authService) LogoutAll(ctx context.Context, userID uuid.UUID, accessToken, revokedBy string) error {
	return s.logout(ctx, userID, accessToken, revokedBy, models.RevokeReasonSecurity)
}

func (s *authService) logout(ctx context.Context, userID uuid.UUID, accessToken, revokedBy string, reason models.RevokeReason) error {
	now := time.Now()

	// Denylist the presented access token for its maximum possible
	// remaining lifetime; sweeping it later is cheaper than decoding it here.
	if accessToken != "" {
		err := s.revokedRepo.Revoke(ctx, &models.RevokedToken{
			Token:     accessToken,
			UserID:    userID,
			Kind:      models.TokenKindAccess,
			Reason:    reason,
			ExpiresAt: now.Add(s.cfg.AccessTokenExpiry),
			RevokedBy: revokedBy,
		})
		if err != nil {
			return err
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return utils.ErrUserNotFound
	}

	if user.RefreshToken != nil {
		err := s.revokedRepo.Revoke(ctx, &models.RevokedToken{
			Token:     *user.RefreshToken,
			UserID:    userID,
			Kind:      models.TokenKindRefresh,
			Reason:    reason,
			ExpiresAt: now.Add(s.cfg.RefreshTokenExpiry),
			RevokedBy: revokedBy,
		})
		if err != nil {
			return err
		}
		if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
			return err
		}
	}

	utils.Logger.WithFields(logrus.Fields{
		"event":   "LOGOUT",
		"user_id": userID,
		"reason":  reason,
	}).Info("Session terminated")

	return nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		// Same outcome as the happy path, minus the email.
		utils.Logger.WithFields(logrus.Fields{
			"event": "PASSWORD_RESET_UNKNOWN_EMAIL",
			"email": email,
		}).Info("Password reset requested for unknown email")
		return nil
	}

	rawToken, err := utils.RandomHex(20)
	if err != nil {
		return err
	}
	expire := time.Now().Add(s.cfg.ResetTokenExpiry)
	if err := s.userRepo.SetResetToken(ctx, user.ID, utils.HashToken(rawToken), expire); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.cfg.AppURL, rawToken)
	plain := fmt.Sprintf(
		"Hola %s,\n\nHas solicitado recuperar tu contraseña. Visita el siguiente enlace (expira en %d minutos):\n\n%s\n\nSi no solicitaste esto, ignora este email.",
		user.Nombre, int(s.cfg.ResetTokenExpiry.Minutes()), resetURL,
	)
	html := fmt.Sprintf(resetPasswordEmailHTML, user.Nombre, resetURL, resetURL, time.Now().Year())

	if err := s.mailer.Send(ctx, user.Email, "Recuperación de Contraseña - Inventario TI", plain, html); err != nil {
		// Roll back so an undeliverable token cannot linger.
		if clearErr := s.userRepo.ClearResetToken(ctx, user.ID); clearErr != nil {
			utils.Logger.WithError(clearErr).Error("Could not clear reset token after send failure")
		}
		utils.Logger.WithFields(logrus.Fields{
			"event":   "PASSWORD_RESET_EMAIL_FAILED",
			"user_id": user.ID,
		}).WithError(err).Error("Could not send password reset email")
		return err
	}

	utils.Logger.WithFields(logrus.Fields{
		"event":   "PASSWORD_RESET_REQUESTED",
		"user_id": user.ID,
	}).Info("Password reset email sent")

	return nil
}

func (s *authService) ResetPassword(ctx context.Context, rawToken, newPassword string) (*models.User, error) {
	if len(newPassword) < 6 {
		return nil, utils.ErrWeakPassword
	}

	user, err := s.userRepo.GetByResetTokenHash(ctx, utils.HashToken(rawToken))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrInvalidResetToken
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetPasswordAndClearReset(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"event":   "PASSWORD_RESET",
		"user_id": user.ID,
	}).Info("Password reset completed")

	return user, nil
}

func (s *authService) Disable2FA(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return utils.ErrUserNotFound
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return utils.ErrWrongPassword
	}
	if !user.TwoFactorEnabled {
		return utils.ErrTwoFactorNotEnabled
	}
	return s.twoFactor.Disable(ctx, userID)
}

func (s *authService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}
	return user, nil
}
