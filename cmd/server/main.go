// Package main runs the event registration and ticketing HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventmaster/backend/config"
	"github.com/eventmaster/backend/internal/auth"
	"github.com/eventmaster/backend/internal/checkin"
	"github.com/eventmaster/backend/internal/events"
	"github.com/eventmaster/backend/internal/middleware"
	"github.com/eventmaster/backend/internal/models"
	"github.com/eventmaster/backend/internal/ratelimit"
	"github.com/eventmaster/backend/internal/registrations"
	"github.com/eventmaster/backend/pkg/database"
	"github.com/eventmaster/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Identity resolution: local HS256 plus the external issuer when
	// configured.
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	userRepo := auth.NewRepository(pool)
	var external *auth.ExternalVerifier
	if cfg.Cognito.Enabled() {
		keys := auth.NewKeySetCache(cfg.Cognito.JWKSURL(),
			time.Duration(cfg.Cognito.JWKSTTLSeconds)*time.Second, logger)
		external = auth.NewExternalVerifier(keys, cfg.Cognito.IssuerURL(), cfg.Cognito.GroupsClaim)
		logger.Info("external issuer enabled", zap.String("issuer", cfg.Cognito.IssuerURL()))
	}
	resolver := auth.NewResolver(userRepo, jwtService, external, logger)
	authHandler := auth.NewHandler(userRepo, jwtService, logger)

	// Events and the approval workflow.
	approvalLimiter := ratelimit.New(cfg.Approvals.MaxActions,
		time.Duration(cfg.Approvals.WindowSeconds)*time.Second)
	eventRepo := events.NewRepository(pool)
	eventService := events.NewService(eventRepo, approvalLimiter, logger)
	eventHandler := events.NewHandler(eventService)

	// Registration lifecycle.
	registrationRepo := registrations.NewRepository(pool)
	registrationService := registrations.NewService(registrationRepo, eventRepo, logger)
	registrationHandler := registrations.NewHandler(registrationService)

	// Door verification and walk-ins.
	checkinService := checkin.NewService(registrationRepo, eventRepo, userRepo, logger)
	checkinHandler := checkin.NewHandler(checkinService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", middleware.Authenticate(resolver), authHandler.Me)
	}

	// Public event browsing; visibility follows the viewer's role when a
	// credential is present.
	router.GET("/events", middleware.OptionalAuthenticate(resolver), eventHandler.List)
	router.GET("/events/:id", middleware.OptionalAuthenticate(resolver), eventHandler.Get)

	// Protected API (credential required)
	api := router.Group("")
	api.Use(middleware.Authenticate(resolver))
	{
		// Events
		api.GET("/events/managed", middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin), eventHandler.Managed)
		api.GET("/events/pending", middleware.RequireRole(models.RoleAdmin), eventHandler.Pending)
		api.POST("/events", middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin), eventHandler.Create)
		api.PATCH("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)

		// Approval workflow
		api.POST("/events/:id/approve", middleware.RequireRole(models.RoleAdmin), eventHandler.Approve)
		api.POST("/events/:id/reject", middleware.RequireRole(models.RoleAdmin), eventHandler.Reject)

		// Registrations
		api.POST("/events/:id/registrations", registrationHandler.Register)
		api.GET("/me/registrations", registrationHandler.ListMine)
		api.DELETE("/registrations/:id", registrationHandler.Cancel)
		api.GET("/events/:id/attendees", middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin), registrationHandler.Attendees)

		// Check-in
		api.POST("/checkin/verify", middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin), checkinHandler.Verify)
		api.POST("/checkin/walk-in", middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin), checkinHandler.WalkIn)

		// User administration
		api.GET("/users", middleware.RequireRole(models.RoleAdmin), authHandler.ListUsers)
		api.PATCH("/users/:id/role", middleware.RequireRole(models.RoleAdmin), authHandler.UpdateUserRole)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
