package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"havenhomes/marketplace-backend/internal/accounts"
	"havenhomes/marketplace-backend/internal/config"
	"havenhomes/marketplace-backend/internal/jobs"
	"havenhomes/marketplace-backend/internal/listings"
	"havenhomes/marketplace-backend/internal/notifications"
	"havenhomes/marketplace-backend/internal/vetting"
	"havenhomes/marketplace-backend/pkg/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&accounts.User{},
		&accounts.PasswordResetToken{},
		&listings.Listing{},
		&listings.ListingDocument{},
		&listings.ListingMedia{},
		&vetting.VettingEvent{},
		&notifications.Notification{},
	); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	store, err := storage.NewS3Store(context.Background(), cfg.Storage.Region, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Accounts
	accountsRepo := accounts.NewRepository(db)
	accountsService := accounts.NewService(accountsRepo, logger, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.ResetTokenTTL)
	accountsHandler := accounts.NewHandler(accountsService, logger)

	// Listings
	listingsRepo := listings.NewRepository(db)
	listingsService := listings.NewService(listingsRepo, store, logger, cfg.Storage.PresignTTL)
	listingsHandler := listings.NewHandler(listingsService, logger, cfg.Precheck.SharedSecret)

	// Notifications and admin feed
	feedHub := notifications.NewHub(logger, cfg.Server.CORSOrigin)
	defer feedHub.Close()
	notificationsService := notifications.NewService(db, feedHub, logger)
	notificationsHandler := notifications.NewHandler(notificationsService, feedHub, logger)

	// Vetting
	vettingRepo := vetting.NewRepository(db)
	vettingService := vetting.NewService(vettingRepo, store, notificationsService, logger)
	vettingHandler := vetting.NewHandler(vettingService, logger)

	// Queue monitor
	monitor := jobs.NewQueueMonitor(vettingRepo, logger)
	if err := monitor.Start(); err != nil {
		logger.Fatal("Failed to start queue monitor", zap.Error(err))
	}
	defer monitor.Stop()

	router := gin.Default()
	router.Use(corsMiddleware(cfg.Server.CORSOrigin))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"timestamp":        time.Now(),
			"feed_connections": feedHub.ConnectionCount(),
		})
	})

	api := router.Group("/api/v1")
	{
		accountsHandler.RegisterRoutes(api)
		listingsHandler.RegisterPublicRoutes(api)

		authed := api.Group("")
		authed.Use(accounts.RequireAuth(accountsService))
		{
			accountsHandler.RegisterAuthedRoutes(authed)
			listingsHandler.RegisterAuthedRoutes(authed)
			notificationsHandler.RegisterRoutes(authed)
		}

		admin := api.Group("/admin")
		admin.Use(accounts.RequireAuth(accountsService), accounts.RequireAdmin())
		{
			vettingHandler.RegisterRoutes(admin)
			notificationsHandler.RegisterAdminRoutes(admin)
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()
	logger.Info("Server started", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exiting")
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
