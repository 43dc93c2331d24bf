package main

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/andures/inventario-ti/internal/app"
	"github.com/andures/inventario-ti/internal/config"
	"github.com/andures/inventario-ti/internal/controllers"
	"github.com/andures/inventario-ti/internal/middleware"
	"github.com/andures/inventario-ti/internal/repositories"
	"github.com/andures/inventario-ti/internal/services"
	"github.com/andures/inventario-ti/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			utils.Logger.WithError(err).Warn("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	userRepo := repositories.NewUserRepository(application.DB)
	revokedRepo := repositories.NewRevokedTokenRepository(application.DB)

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	tokenService, err := services.NewTokenService(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize token service:", err)
	}

	mailer := services.NewSendGridMailer(cfg)
	twoFactorService := services.NewTwoFactorService(userRepo, cfg)
	authService := services.NewAuthService(userRepo, revokedRepo, tokenService, twoFactorService, mailer, cfg)
	tokenCleanupService := services.NewTokenCleanupService(revokedRepo)

	//----------------------------------------------------------------------
	// Controllers
	//----------------------------------------------------------------------
	authController := controllers.NewAuthController(authService)
	twoFactorController := controllers.NewTwoFactorController(twoFactorService, authService)
	healthController := controllers.NewHealthController(application)

	//----------------------------------------------------------------------
	// Router & Endpoints
	//----------------------------------------------------------------------
	router := mux.NewRouter()

	router.HandleFunc("/health", healthController.HealthCheckHandler).Methods("GET")

	authRouter := router.PathPrefix("/api/auth").Subrouter()

	// Public endpoints
	authRouter.HandleFunc("/registrar", authController.Register).Methods("POST")
	authRouter.HandleFunc("/login", authController.Login).Methods("POST")
	authRouter.HandleFunc("/login/2fa", authController.LoginTwoFactor).Methods("POST")
	authRouter.HandleFunc("/refresh-token", authController.RefreshToken).Methods("POST")
	authRouter.HandleFunc("/olvide-password", authController.ForgotPassword).Methods("POST")
	authRouter.HandleFunc("/reset-password/{resettoken}", authController.ResetPassword).Methods("PUT")

	// Protected endpoints
	protected := authRouter.NewRoute().Subrouter()
	protected.Use(middleware.Protect(tokenService, revokedRepo, userRepo))
	protected.HandleFunc("/me", authController.Me).Methods("GET")
	protected.HandleFunc("/logout", authController.Logout).Methods("POST")
	protected.HandleFunc("/logout-all", authController.LogoutAll).Methods("POST")
	protected.HandleFunc("/2fa/setup", twoFactorController.Setup).Methods("POST")
	protected.HandleFunc("/2fa/verify", twoFactorController.Verify).Methods("POST")
	protected.HandleFunc("/2fa/disable", twoFactorController.Disable).Methods("POST")
	protected.HandleFunc("/2fa/validate", twoFactorController.Validate).Methods("POST")
	protected.HandleFunc("/2fa/status", twoFactorController.Status).Methods("GET")

	//----------------------------------------------------------------------
	// Daily cleanup via cron
	//----------------------------------------------------------------------
	c := cron.New()
	_, schErr := c.AddFunc("5 3 * * *", func() {
		if e := tokenCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled revoked-token cleanup failed")
		}
	})
	if schErr != nil {
		utils.Logger.WithError(schErr).Fatal("Failed to schedule revoked-token cleanup job")
	}
	c.Start()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Server failed:", err)
	}
}
