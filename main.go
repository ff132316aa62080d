package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/cache"
	"github.com/victorcreed/student-power-frontend/internal/config"
	"github.com/victorcreed/student-power-frontend/internal/dashboard"
	"github.com/victorcreed/student-power-frontend/internal/events"
	"github.com/victorcreed/student-power-frontend/internal/handlers"
	"github.com/victorcreed/student-power-frontend/internal/repositories/postgres"
	"github.com/victorcreed/student-power-frontend/internal/repositories/redisstore"
	"github.com/victorcreed/student-power-frontend/internal/services"
	"github.com/victorcreed/student-power-frontend/internal/utils"
	"github.com/victorcreed/student-power-frontend/internal/validator"
	"github.com/victorcreed/student-power-frontend/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize Redis, or an embedded one for local development
	var (
		redisClient *redis.Client
		embedded    *miniredis.Miniredis
	)
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg.RedisURL)
	} else {
		logger.Warn("REDIS_URL not set, using embedded redis; sessions are lost on restart")
		embedded, redisClient, err = pkg.NewEmbeddedRedis()
	}
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize event bus
	bus, err := events.NewBus(events.BusConfig{
		KafkaBrokers: cfg.Events.KafkaBrokers,
		Topic:        cfg.Events.Topic,
	}, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}
	publisher := events.NewWatermillPublisher(bus, slogLogger)

	rootCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	// Initialize the audit archive (if configured)
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = pkg.InitDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		if err := events.Consume(rootCtx, bus, postgres.NewEventLogPostgreSQL(db), slogLogger); err != nil {
			log.Fatalf("Failed to start event archive: %v", err)
		}
	}

	// Initialize stores and the API client
	cacheManager := cache.NewCacheManager(redisClient)
	sessions := redisstore.NewSessionRedis(redisClient, cfg.Session.TTL, slogLogger)
	client := apiclient.New(apiclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  slogLogger,
	})

	// Initialize services
	serviceManager := services.NewServiceManager(sessions, client, cacheManager, publisher, slogLogger, validator.New(),
		services.ServiceManagerConfig{
			VerifyAfter:        cfg.Session.RevalidateInterval,
			RevalidateInterval: cfg.Session.RevalidateInterval,
			EnableRevalidation: true,
		})
	if err := serviceManager.Initialize(rootCtx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	client.OnUnauthorized(serviceManager.Session().ClearByToken)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := handlers.SetupTemplates(router); err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	handlers.SetupMiddleware(router, logger)

	handlerManager := handlers.NewHandlerManager(serviceManager, dashboard.NewTracker(cacheManager), handlers.CookieConfig{
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.CookieSecure,
	}, logger)
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "api", cfg.API.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	stopConsumers()
	if err := publisher.Close(); err != nil {
		log.Printf("Failed to close event bus: %v", err)
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	redisClient.Close()
	if embedded != nil {
		embedded.Close()
	}

	logger.Info("Server exited")
}
