package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/api"
	"github.com/wastewise/backend/internal/auth"
	"github.com/wastewise/backend/internal/cache"
	"github.com/wastewise/backend/internal/config"
	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/internal/fcm"
	"github.com/wastewise/backend/internal/repository"
	"github.com/wastewise/backend/internal/storage"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting WasteWise API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()
	db, err := initDatabase(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Connected to database")

	// Core dependencies
	repo := repository.NewPostgresRepository(db)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	googleAuth := auth.NewGoogleAuthVerifier(cfg.Google.ClientIDs)

	if googleAuth.IsConfigured() {
		logger.Info("Google sign-in is configured")
	} else {
		logger.Warn("Google sign-in is NOT configured - set GOOGLE_CLIENT_ID to enable")
	}

	// Push notifications are best-effort: a missing Firebase credential
	// disables them without blocking startup.
	var pusher domain.Pusher
	fcmClient, err := fcm.NewClient(ctx, logger, cfg.Firebase.CredentialsFile)
	if err != nil {
		logger.Warn("Failed to initialize Firebase client - push notifications disabled", zap.Error(err))
	} else {
		logger.Info("Firebase client initialized")
		pusher = fcmClient
	}

	unreadCache := cache.NewUnreadCache(cfg.Redis.Addr, logger)

	baseURL := fmt.Sprintf("http://localhost:%s%s", cfg.Server.Port, cfg.Storage.PublicURL)
	if cfg.IsProduction() {
		baseURL = cfg.Storage.PublicURL
	}
	fileStorage, err := storage.NewLocalFileStorage(cfg.Storage.LocalDir, baseURL)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	// Realtime feed
	realtime := api.NewRealtimeManager(logger)
	go realtime.Run()

	// Services
	notificationService := domain.NewNotificationService(repo, repo, pusher, logger).
		WithRealtime(realtime).
		WithUnreadCache(unreadCache).
		WithPushTimeout(cfg.Notification.PushTimeout)
	authService := domain.NewAuthService(repo, jwtManager, googleAuth)
	requestService := domain.NewRequestService(repo, notificationService, logger)
	announcementService := domain.NewAnnouncementService(repo, notificationService, logger)
	feedbackService := domain.NewFeedbackService(repo, notificationService, logger)
	guidelineService := domain.NewGuidelineService(repo, notificationService, logger)
	inventoryService := domain.NewInventoryService(repo)

	// Handlers
	authHandler := api.NewAuthHandler(authService, repo, logger)
	notificationHandler := api.NewNotificationHandler(notificationService, logger)
	requestHandler := api.NewRequestHandler(requestService, logger)
	announcementHandler := api.NewAnnouncementHandler(announcementService, fileStorage, logger)
	feedbackHandler := api.NewFeedbackHandler(feedbackService, logger)
	guidelineHandler := api.NewGuidelineHandler(guidelineService, fileStorage, logger)
	inventoryHandler := api.NewInventoryHandler(inventoryService, logger)
	healthHandler := api.NewHealthHandler(db)

	router := api.NewRouter(
		authHandler,
		notificationHandler,
		requestHandler,
		announcementHandler,
		feedbackHandler,
		guidelineHandler,
		inventoryHandler,
		healthHandler,
		realtime,
		jwtManager,
		logger,
	)
	r := router.Setup()

	// Serve uploaded assets
	r.Handle(cfg.Storage.PublicURL+"/*", http.StripPrefix(cfg.Storage.PublicURL+"/", http.FileServer(http.Dir(cfg.Storage.LocalDir))))

	// Expired notifications and revoked refresh tokens are swept hourly
	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	repo.StartCleanupWorker(cleanupCtx, 1*time.Hour)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cleanupCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func initDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
