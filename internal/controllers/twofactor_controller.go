package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andures/inventario-ti/internal/dtos"
	"github.com/andures/inventario-ti/internal/middleware"
	"github.com/andures/inventario-ti/internal/services"
	"github.com/andures/inventario-ti/internal/utils"
)

// TwoFactorController serves the authenticated 2FA management endpoints.
// The login-time verification lives in AuthController.
type TwoFactorController struct {
	twoFactor   services.TwoFactorService
	authService services.AuthService
}

func NewTwoFactorController(twoFactor services.TwoFactorService, authService services.AuthService) *TwoFactorController {
	return &TwoFactorController{twoFactor: twoFactor, authService: authService}
}

func (c *TwoFactorController) Setup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated", nil,
		)
		return
	}

	secret, uri, err := c.twoFactor.Setup(r.Context(), user.ID)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not start 2FA setup", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.TwoFactorSetupResponse{
		Success:    true,
		Secret:     secret,
		OTPAuthURL: uri,
	})
}

func (c *TwoFactorController) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated", nil,
		)
		return
	}

	var req dtos.TwoFactorVerifyRequest
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

	codes, err := c.twoFactor.ConfirmEnable(r.Context(), user.ID, req.Token)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrTwoFactorNotSetup):
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeValidation, "Primero genera un secreto con /2fa/setup", nil,
			)
		case errors.Is(err, utils.ErrInvalidTwoFactor):
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeInvalidTotp, "Código de verificación inválido", nil,
			)
		default:
			utils.RespondErrorWithCode(
				w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not enable 2FA", nil, err,
			)
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.TwoFactorVerifyResponse{
		Success:     true,
		BackupCodes: codes,
	})
}

func (c *TwoFactorController) Disable(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated", nil,
		)
		return
	}

	var req dtos.TwoFactorDisableRequest
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

	if err := c.authService.Disable2FA(r.Context(), user.ID, req.Password); err != nil {
		switch {
		case errors.Is(err, utils.ErrWrongPassword):
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeWrongPassword, "Contraseña incorrecta", nil,
			)
		case errors.Is(err, utils.ErrTwoFactorNotEnabled):
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeValidation, "2FA no está habilitado", nil,
			)
		default:
			utils.RespondErrorWithCode(
				w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not disable 2FA", nil, err,
			)
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{
		Success: true,
		Message: "2FA deshabilitado exitosamente",
	})
}

// Validate checks a code against the caller's own enabled 2FA without
// consuming a login. Useful for client-side confirmation screens; backup
// codes are still single-use here.
func (c *TwoFactorController) Validate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated", nil,
		)
		return
	}

	var req dtos.TwoFactorValidateRequest
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

	valid, err := c.twoFactor.VerifyLoginStep(r.Context(), user, req.Token, req.UseBackupCode)
	if err != nil {
		if errors.Is(err, utils.ErrTwoFactorNotEnabled) {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeValidation, "2FA no está habilitado", nil,
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not validate code", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.TwoFactorValidateResponse{
		Success: true,
		Valid:   valid,
	})
}

func (c *TwoFactorController) Status(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated", nil,
		)
		return
	}

	enabled, remaining, err := c.twoFactor.Status(r.Context(), user.ID)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not read 2FA status", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.TwoFactorStatusResponse{
		Success:              true,
		Enabled:              enabled,
		BackupCodesRemaining: remaining,
	})
}
