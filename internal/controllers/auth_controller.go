package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/andures/inventario-ti/internal/dtos"
	"github.com/andures/inventario-ti/internal/middleware"
	"github.com/andures/inventario-ti/internal/services"
	"github.com/andures/inventario-ti/internal/utils"
)

type AuthController struct {
	authService services.AuthService
}

func NewAuthController(authService services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

var validate = validator.New()

func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req dtos.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", validationDetails(err),
		)
		return
	}

	result, err := c.authService.Register(r.Context(), req.Nombre, req.Email, req.Password, req.Rol)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrEmailExists):
			utils.RespondErrorWithCode(
				w, http.StatusConflict, utils.ErrCodeConflict, "Email is already registered", nil,
			)
		case errors.Is(err, utils.ErrInvalidRole):
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid role", nil,
			)
		default:
			utils.RespondErrorWithCode(
				w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not register user", nil, err,
			)
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, dtos.RegisterResponse{
		Success:      true,
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         dtos.NewUserFromModel(result.User),
	})
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dtos.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", validationDetails(err),
		)
		return
	}

	result, err := c.authService.Login(r.Context(), req.Email, req.Password, req.TwoFactorToken, req.UseBackupCode)
	if err != nil {
		respondLoginError(w, err)
		return
	}

	if result.Requires2FA {
		// Password accepted but the session is not complete yet.
		utils.RespondWithJSON(w, http.StatusPartialContent, dtos.TwoFactorRequiredResponse{
			Success:      false,
			Requires2FA:  true,
			PendingToken: result.PendingToken,
			TempAuth: dtos.TempAuth{
				UserID: result.User.ID,
				Email:  result.User.Email,
			},
		})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.LoginResponse{
		Success:      true,
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         dtos.NewUserFromModel(result.User),
	})
}

func (c *AuthController) LoginTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req dtos.TwoFactorLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", validationDetails(err),
		)
		return
	}

	result, err := c.authService.CompleteTwoFactorLogin(r.Context(), req.PendingToken, req.Token, req.UseBackupCode)
	if err != nil {
		respondLoginError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.LoginResponse{
		Success:      true,
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         dtos.NewUserFromModel(result.User),
	})
}

func (c *AuthController) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req dtos.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", validationDetails(err),
		)
		return
	}

	pair, err := c.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Refresh token expired", nil,
			)
		case errors.Is(err, utils.ErrInactiveUser):
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeInactiveUser, "User account is deactivated", nil,
			)
		default:
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid refresh token", nil, err,
			)
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.RefreshTokenResponse{
		Success:      true,
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated", nil,
		)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MeResponse{
		Success: true,
		User:    dtos.NewUserFromModel(user),
	})
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	c.logout(w, r, false)
}

func (c *AuthController) LogoutAll(w http.ResponseWriter, r *http.Request) {
	c.logout(w, r, true)
}

func (c *AuthController) logout(w http.ResponseWriter, r *http.Request, all bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated", nil,
		)
		return
	}
	accessToken, _ := middleware.TokenFromContext(r.Context())

	var err error
	if all {
		err = c.authService.LogoutAll(r.Context(), user.ID, accessToken, r.RemoteAddr)
	} else {
		err = c.authService.Logout(r.Context(), user.ID, accessToken, r.RemoteAddr)
	}
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not log out", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{
		Success: true,
		Message: "Sesión cerrada exitosamente",
	})
}

func (c *AuthController) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dtos.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", validationDetails(err),
		)
		return
	}

	if err := c.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, utils.ErrExternalServiceFailure) {
			utils.RespondErrorWithCode(
				w, http.StatusFailedDependency, utils.ErrCodeExternalService,
				"No se pudo enviar el email. Intenta de nuevo más tarde.", nil, err,
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not process request", nil, err,
		)
		return
	}

	// Identical response whether or not the account exists.
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{
		Success: true,
		Message: "Si el email existe, recibirás instrucciones para resetear tu contraseña",
	})
}

func (c *AuthController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	rawToken := mux.Vars(r)["resettoken"]

	var req dtos.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", validationDetails(err),
		)
		return
	}

	if _, err := c.authService.ResetPassword(r.Context(), rawToken, req.Password); err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidResetToken):
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeValidation, "Token inválido o expirado", nil,
			)
		case errors.Is(err, utils.ErrWeakPassword):
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeValidation, "La contraseña debe tener al menos 6 caracteres", nil,
			)
		default:
			utils.RespondErrorWithCode(
				w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not reset password", nil, err,
			)
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{
		Success: true,
		Message: "Contraseña actualizada exitosamente",
	})
}

// respondLoginError maps service errors from either login step to HTTP.
// Unknown email, wrong password and bad 2FA codes must not be
// distinguishable beyond what the flow already reveals.
func respondLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials, "Credenciales inválidas", nil,
		)
	case errors.Is(err, utils.ErrInactiveUser):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeInactiveUser, "Usuario desactivado. Contacta al administrador", nil,
		)
	case errors.Is(err, utils.ErrInvalidTwoFactor):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeInvalidTotp, "Código de verificación inválido", nil,
		)
	case errors.Is(err, jwt.ErrTokenExpired):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "La sesión de verificación expiró, inicia sesión de nuevo", nil,
		)
	case errors.Is(err, utils.ErrInvalidToken), errors.Is(err, utils.ErrUserNotFound):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Sesión de verificación inválida", nil,
		)
	default:
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not log in", nil, err,
		)
	}
}
