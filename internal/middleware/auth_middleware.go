package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/andures/inventario-ti/internal/models"
	"github.com/andures/inventario-ti/internal/repositories"
	"github.com/andures/inventario-ti/internal/services"
	"github.com/andures/inventario-ti/internal/utils"
)

type contextKey string

const (
	ContextKeyUser  = contextKey("user")
	ContextKeyToken = contextKey("accessToken")
)

// UserFromContext returns the authenticated user attached by Protect.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ContextKeyUser).(*models.User)
	return u, ok
}

// TokenFromContext returns the raw bearer token attached by Protect.
// Logout needs it to denylist the exact presented token.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(ContextKeyToken).(string)
	return t, ok
}

// Protect authenticates a request: bearer extraction, signature and claim
// verification, denylist lookup and a live user check. On success the user
// and raw token are attached to the request context.
func Protect(
	tokens *services.TokenService,
	revokedRepo repositories.RevokedTokenRepository,
	userRepo repositories.UserRepository,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractBearerToken(r)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, err.Error(), nil,
				)
				return
			}

			claims, vErr := tokens.VerifyAccess(tokenStr)
			if vErr != nil {
				if errors.Is(vErr, jwt.ErrTokenExpired) {
					utils.RespondErrorWithCode(
						w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Token expired", nil, vErr,
					)
					return
				}
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid token", nil, vErr,
				)
				return
			}

			revoked, rErr := revokedRepo.IsRevoked(r.Context(), tokenStr)
			if rErr != nil {
				utils.RespondErrorWithCode(
					w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not verify token", nil, rErr,
				)
				return
			}
			if revoked {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeTokenRevoked, "Token has been revoked", nil,
				)
				return
			}

			userID, sErr := claims.SubjectID()
			if sErr != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid token subject", nil, sErr,
				)
				return
			}

			user, uErr := userRepo.GetByID(r.Context(), userID)
			if uErr != nil {
				utils.RespondErrorWithCode(
					w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not load user", nil, uErr,
				)
				return
			}
			if user == nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUserNotFound, "User no longer exists", nil,
				)
				return
			}
			if !user.Activo {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeInactiveUser, "User account is deactivated", nil,
				)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			ctx = context.WithValue(ctx, ContextKeyToken, tokenStr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize gates a route on capabilities. It must run after Protect;
// a missing user in context is an authentication failure, not a panic.
func Authorize(required ...models.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated", nil,
				)
				return
			}
			if !user.Rol.HasAll(required...) {
				utils.RespondErrorWithCode(
					w, http.StatusForbidden, utils.ErrCodeForbidden,
					"Insufficient permissions for this resource", nil,
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", errors.New("missing Authorization header")
	}
	token := strings.TrimPrefix(h, "Bearer ")
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
