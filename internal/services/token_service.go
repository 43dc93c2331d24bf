package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/andures/inventario-ti/internal/config"
	"github.com/andures/inventario-ti/internal/utils"
)

// Token type tags baked into the claims. A token of one kind never
// verifies as another.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	// Pending tokens bind the two halves of a 2FA step-up login.
	TokenTypePending = "2fa_pending"
)

// TokenClaims is the full claim set: {sub, type, iat, iss, aud, exp}.
type TokenClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies the bearer credentials. Pure over the
// configured secrets; no storage side effects.
type TokenService struct {
	cfg *config.Config
}

// NewTokenService fails when either signing secret is empty. Callers
// treat that as fatal at startup.
func NewTokenService(cfg *config.Config) (*TokenService, error) {
	if len(cfg.JWTSecret) == 0 {
		return nil, errors.New("access token signing secret is empty")
	}
	if len(cfg.JWTRefreshSecret) == 0 {
		return nil, errors.New("refresh token signing secret is empty")
	}
	return &TokenService{cfg: cfg}, nil
}

func (s *TokenService) issue(userID uuid.UUID, tokenType string, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti makes every mint unique; without it two tokens of the same
			// kind issued within one second are byte-identical and rotation
			// would swap a refresh token for an equal string.
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			Issuer:    s.cfg.TokenIssuer,
			Audience:  jwt.ClaimStrings{s.cfg.TokenAudience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) verify(tokenString, wantType string, secret []byte) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&TokenClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithIssuer(s.cfg.TokenIssuer),
		jwt.WithAudience(s.cfg.TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, utils.ErrInvalidToken
	}
	if claims.Type != wantType {
		return nil, utils.ErrInvalidToken
	}
	return claims, nil
}

// Subject parses the user id out of verified claims.
func (c *TokenClaims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

func (s *TokenService) IssueAccess(userID uuid.UUID) (string, error) {
	return s.issue(userID, TokenTypeAccess, s.cfg.JWTSecret, s.cfg.AccessTokenExpiry)
}

func (s *TokenService) IssueRefresh(userID uuid.UUID) (string, error) {
	return s.issue(userID, TokenTypeRefresh, s.cfg.JWTRefreshSecret, s.cfg.RefreshTokenExpiry)
}

// IssuePending mints the short-lived token returned at the requires2FA
// step; the completion call must present it, binding both steps
// cryptographically instead of trusting a resubmitted email.
func (s *TokenService) IssuePending(userID uuid.UUID) (string, error) {
	return s.issue(userID, TokenTypePending, s.cfg.JWTSecret, s.cfg.PendingTokenExpiry)
}

func (s *TokenService) VerifyAccess(tokenString string) (*TokenClaims, error) {
	return s.verify(tokenString, TokenTypeAccess, s.cfg.JWTSecret)
}

func (s *TokenService) VerifyRefresh(tokenString string) (*TokenClaims, error) {
	return s.verify(tokenString, TokenTypeRefresh, s.cfg.JWTRefreshSecret)
}

func (s *TokenService) VerifyPending(tokenString string) (*TokenClaims, error) {
	return s.verify(tokenString, TokenTypePending, s.cfg.JWTSecret)
}
