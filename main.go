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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/training-workflow-service/internal/cache"
	"github.com/SAP-F-2025/training-workflow-service/internal/config"
	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/handlers"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories/memory"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/training-workflow-service/internal/services"
	"github.com/SAP-F-2025/training-workflow-service/internal/utils"
	"github.com/SAP-F-2025/training-workflow-service/internal/validator"
	"github.com/SAP-F-2025/training-workflow-service/pkg"
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

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Failed to initialize Redis, continuing without cache", "error", err)
			redisClient = nil
		}
	}

	casdoorConfig := casdoor.CasdoorConfig{
		Endpoint:         cfg.Casdoor.Endpoint,
		ClientID:         cfg.Casdoor.ClientID,
		ClientSecret:     cfg.Casdoor.ClientSecret,
		Certificate:      cfg.Casdoor.Cert,
		OrganizationName: cfg.Casdoor.Organization,
		ApplicationName:  cfg.Casdoor.Application,
	}

	// Staff directory
	var directory *memory.UserDirectory
	var users repositories.UserRepository
	if cfg.Auth.Mode == config.AuthModeHeader {
		directory = memory.NewUserDirectory()
		users = directory
	} else {
		users = casdoor.NewUserCasdoor(casdoorConfig, cache.NewCacheManager(redisClient))
	}

	// Initialize repositories
	repo, err := openRepository(cfg, redisClient, casdoorConfig, users, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Initialize event bus
	var busOpts []events.BusOption
	if cfg.Events.Kafka.Enabled() {
		forwarder, err := events.NewKafkaForwarder(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, slogLogger)
		if err != nil {
			logger.Warn("Kafka forwarding disabled", "error", err)
		} else {
			busOpts = append(busOpts, events.WithForwarder(forwarder))
		}
	}
	bus := events.NewBus(cfg.Events.BufferSize, slogLogger, busOpts...)

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(repo, bus, slogLogger, validator, services.ServiceManagerConfig{
		MaxRetries:           cfg.Workflow.MaxRetries,
		LegacyOpenVisibility: cfg.Workflow.LegacyOpenVisibility,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Authentication
	var authProvider handlers.AuthProvider
	if cfg.Auth.Mode == config.AuthModeHeader {
		authProvider = handlers.NewHeaderAuthMiddleware(directory, logger)
	} else {
		authProvider = handlers.NewCasdoorAuthMiddleware(casdoorConfig, users, logger)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, validator, logger, authProvider, bus)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"store", cfg.Store.Driver,
			"auth", cfg.Auth.Mode,
		)
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
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	// Ends the open websocket and SSE streams
	if err := bus.Close(); err != nil {
		logger.Error("Failed to close event bus", "error", err)
	}

	if err := repo.Close(); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}

	logger.Info("Server exited")
}

// openRepository builds the store selected by cfg.Store.Driver.
func openRepository(
	cfg *config.Config,
	redisClient *redis.Client,
	casdoorConfig casdoor.CasdoorConfig,
	users repositories.UserRepository,
	logger *slog.Logger,
) (repositories.Repository, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logger.Warn("Using in-memory store, workflow state is lost on restart")
		return &memoryStore{Repository: memory.NewRepository(users), redisClient: redisClient}, nil
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Migrations.Enabled {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		if err := pkg.RunMigrations(sqlDB, logger); err != nil {
			return nil, err
		}
	}

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:            db,
		RedisClient:   redisClient,
		CasdoorConfig: casdoorConfig,
		Users:         users,
	})
	if err := repoManager.Initialize(); err != nil {
		return nil, err
	}

	return repoManager.GetRepository(), nil
}

// memoryStore closes the Redis client the Casdoor cache may hold, which the
// postgres repository otherwise owns.
type memoryStore struct {
	*memory.Repository
	redisClient *redis.Client
}

func (s *memoryStore) Close() error {
	if s.redisClient != nil {
		return s.redisClient.Close()
	}
	return nil
}
