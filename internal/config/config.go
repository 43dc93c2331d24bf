package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/andures/inventario-ti/internal/utils"
)

// Config holds all application configuration. It is built once at startup
// and injected; business logic never reads ambient globals.
type Config struct {
	AppName string
	AppPort string
	AppURL  string
	DBURL   string

	// Distinct signing secret per token kind.
	JWTSecret        []byte
	JWTRefreshSecret []byte

	TokenIssuer   string
	TokenAudience string

	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	PendingTokenExpiry time.Duration
	ResetTokenExpiry   time.Duration

	TOTPIssuer      string
	BackupCodeCount int

	SendGridAPIKey string
	FromEmail      string
	FromName       string

	SentryDSN   string
	Environment string
}

const (
	AppName = "inventario-ti-api"

	TokenIssuer   = "inventario-ti-api"
	TokenAudience = "inventario-ti-client"

	DefaultAccessTokenExpiry  = 15 * time.Minute
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
	DefaultPendingTokenExpiry = 5 * time.Minute
	DefaultResetTokenExpiry   = 10 * time.Minute

	TOTPIssuer      = "Inventario TI"
	BackupCodeCount = 10
)

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		utils.Logger.Fatalf("%s env var is missing", key)
	}
	return v
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		utils.Logger.Fatalf("%s is not a valid duration: %v", key, err)
	}
	return d
}

// LoadConfig reads the environment (plus an optional .env file) and returns
// a *Config. Missing signing secrets abort the process: issuing unsigned or
// weakly-keyed tokens is unacceptable.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.Logger.WithError(err).Warn("Could not load .env file")
	}

	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		appPort = "4000"
	}
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:5173"
	}

	dbURL := requireEnv("DB_URL")
	jwtSecret := requireEnv("JWT_SECRET")
	jwtRefreshSecret := requireEnv("JWT_REFRESH_SECRET")
	if jwtSecret == jwtRefreshSecret {
		utils.Logger.Fatal("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}

	return &Config{
		AppName: AppName,
		AppPort: appPort,
		AppURL:  appURL,
		DBURL:   dbURL,

		JWTSecret:        []byte(jwtSecret),
		JWTRefreshSecret: []byte(jwtRefreshSecret),

		TokenIssuer:   TokenIssuer,
		TokenAudience: TokenAudience,

		AccessTokenExpiry:  durationEnv("JWT_EXPIRE", DefaultAccessTokenExpiry),
		RefreshTokenExpiry: durationEnv("JWT_REFRESH_EXPIRE", DefaultRefreshTokenExpiry),
		PendingTokenExpiry: DefaultPendingTokenExpiry,
		ResetTokenExpiry:   DefaultResetTokenExpiry,

		TOTPIssuer:      TOTPIssuer,
		BackupCodeCount: BackupCodeCount,

		SendGridAPIKey: requireEnv("SENDGRID_API_KEY"),
		FromEmail:      requireEnv("SENDGRID_FROM_EMAIL"),
		FromName:       TOTPIssuer,

		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Environment: os.Getenv("ENV"),
	}
}
