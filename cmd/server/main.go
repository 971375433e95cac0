package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lokalfakta/server/config"
	"lokalfakta/server/internal/api"
	"lokalfakta/server/internal/database"
	"lokalfakta/server/internal/enrichment"
	"lokalfakta/server/internal/processor"
	"lokalfakta/server/internal/queue"
	"lokalfakta/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.AI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set, generation requires an X-AI-Key header")
	}

	// Initialize database
	if err := os.MkdirAll(filepath.Dir(cfg.Server.DatabasePath), 0o755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", cfg.Server.DatabasePath)
	db, err := database.NewDatabase(cfg.Server.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	service := enrichment.NewService(cfg, db, logger)

	// Background area refresh of stored listings
	refreshQueue := queue.NewRefreshQueue(cfg.Refresh.QueueSize, logger)
	refreshProcessor := processor.NewRefreshProcessor(db.GetDB(), service, refreshQueue, cfg, logger)
	refreshProcessor.Start()
	defer refreshProcessor.Stop()

	refreshScheduler := scheduler.NewScheduler(db, refreshQueue, scheduler.Options{
		Interval:   cfg.Refresh.Interval,
		StaleAfter: cfg.Refresh.StaleAfter,
		BatchSize:  cfg.Refresh.BatchSize,
		Limit:      cfg.Refresh.QueueSize * cfg.Refresh.BatchSize,
	}, logger)
	refreshScheduler.Start()
	defer refreshScheduler.Stop()

	// Initialize router
	if level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", api.AIKeyHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler := api.NewHandler(service, db, refreshQueue, cfg.Refresh.BatchSize, logger)
	api.SetupRoutes(router, handler)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
}
