package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/andures/inventario-ti/internal/models"
)

// ----------------------
// Requests
// ----------------------

type RegisterRequest struct {
	Nombre   string `json:"nombre" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Rol      string `json:"rol" validate:"omitempty,oneof=admin standard"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	// Optional one-shot second factor supplied alongside the password.
	TwoFactorToken string `json:"twoFactorToken" validate:"omitempty"`
	UseBackupCode  bool   `json:"useBackupCode"`
}

type TwoFactorLoginRequest struct {
	PendingToken  string `json:"pendingToken" validate:"required"`
	Token         string `json:"token" validate:"required"`
	UseBackupCode bool   `json:"useBackupCode"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// ----------------------
// Responses
// ----------------------

// PublicUser is the user shape sent to clients. Credential and 2FA
// material never leaves the service layer.
type PublicUser struct {
	ID               uuid.UUID   `json:"id"`
	Nombre           string      `json:"nombre"`
	Email            string      `json:"email"`
	Rol              models.Role `json:"rol"`
	Activo           bool        `json:"activo"`
	TwoFactorEnabled bool        `json:"twoFactorEnabled"`
	CreatedAt        time.Time   `json:"createdAt"`
}

func NewUserFromModel(u *models.User) PublicUser {
	return PublicUser{
		ID:               u.ID,
		Nombre:           u.Nombre,
		Email:            u.Email,
		Rol:              u.Rol,
		Activo:           u.Activo,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
	}
}

type RegisterResponse struct {
	Success      bool       `json:"success"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
	User         PublicUser `json:"user"`
}

type LoginResponse struct {
	Success      bool       `json:"success"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
	User         PublicUser `json:"user"`
}

// TempAuth hints the client which account the step-up is for.
type TempAuth struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

// TwoFactorRequiredResponse is returned with 206 Partial Content when the
// password was accepted but a second factor is still pending.
type TwoFactorRequiredResponse struct {
	Success      bool     `json:"success"`
	Requires2FA  bool     `json:"requires2FA"`
	PendingToken string   `json:"pendingToken"`
	TempAuth     TempAuth `json:"tempAuth"`
}

type RefreshTokenResponse struct {
	Success      bool   `json:"success"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MeResponse struct {
	Success bool       `json:"success"`
	User    PublicUser `json:"user"`
}
