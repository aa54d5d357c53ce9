package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
	"github.com/SAP-F-2025/training-workflow-service/internal/validator"
	"github.com/SAP-F-2025/training-workflow-service/internal/workflow"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// MaxRetries bounds UID allocation attempts after a duplicate key.
	MaxRetries int

	// LegacyOpenVisibility lets staff see UIDs that have no binding for their role.
	LegacyOpenVisibility bool
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	publisher events.Publisher
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	engine *engine

	// Service instances
	uidService       UidService
	studentService   StudentService
	dashboardService DashboardService
	userService      UserService
	exportService    ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(repo repositories.Repository, publisher events.Publisher, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(repo repositories.Repository, publisher events.Publisher, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	return NewServiceManager(repo, publisher, logger, validator, ServiceManagerConfig{
		MaxRetries: 3,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager",
		"max_retries", sm.config.MaxRetries,
		"legacy_open_visibility", sm.config.LegacyOpenVisibility)

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	if sm.config.LegacyOpenVisibility {
		sm.logger.Warn("Legacy open visibility enabled: staff can see and act on UIDs with no binding for their role")
	}

	sm.engine = newEngine(sm.repo, sm.publisher, sm.Visibility(), sm.logger)

	sm.uidService = NewUidService(sm.repo, sm.engine, sm.validator, sm.config.MaxRetries, sm.logger)
	sm.studentService = NewStudentService(sm.repo, sm.engine, sm.validator, sm.logger)
	sm.dashboardService = NewDashboardService(sm.repo, sm.engine, sm.logger)
	sm.userService = NewUserService(sm.repo, sm.logger)
	sm.exportService = NewExportService(sm.repo, sm.logger)

	uids, err := sm.repo.Uid().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to read workflow store: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully", "uids", uids)

	return nil
}

// Service getters
func (sm *serviceManager) Uid() UidService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.uidService
}

func (sm *serviceManager) Student() StudentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.studentService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.dashboardService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.userService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.exportService
}

func (sm *serviceManager) Visibility() workflow.Visibility {
	return workflow.Visibility{LegacyOpen: sm.config.LegacyOpenVisibility}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting work. The repository and the event bus are
// owned by the caller and closed there.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")
	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
