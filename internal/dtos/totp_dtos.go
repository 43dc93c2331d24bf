package dtos

// ----------------------
// Two-factor
// ----------------------

type TwoFactorSetupResponse struct {
	Success bool   `json:"success"`
	Secret  string `json:"secret"`
	// otpauth:// provisioning URI, rendered as a QR code by the client.
	OTPAuthURL string `json:"otpauthUrl"`
}

type TwoFactorVerifyRequest struct {
	Token string `json:"token" validate:"required,len=6,numeric"`
}

type TwoFactorVerifyResponse struct {
	Success bool `json:"success"`
	// Shown exactly once; only hashes are stored.
	BackupCodes []string `json:"backupCodes"`
}

type TwoFactorDisableRequest struct {
	Password string `json:"password" validate:"required"`
}

type TwoFactorValidateRequest struct {
	Token         string `json:"token" validate:"required"`
	UseBackupCode bool   `json:"useBackupCode"`
}

type TwoFactorValidateResponse struct {
	Success bool `json:"success"`
	Valid   bool `json:"valid"`
}

type TwoFactorStatusResponse struct {
	Success              bool `json:"success"`
	Enabled              bool `json:"enabled"`
	BackupCodesRemaining int  `json:"backupCodesRemaining"`
}
