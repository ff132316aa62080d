package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/victorcreed/student-power-frontend/internal/cache"
	"github.com/victorcreed/student-power-frontend/internal/events"
	"github.com/victorcreed/student-power-frontend/internal/repositories"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Session verification
	VerifyAfter        time.Duration
	RevalidateInterval time.Duration
	EnableRevalidation bool
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	sessions  repositories.SessionRepository
	api       MarketplaceAPI
	cache     *cache.CacheManager
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	sessionService     SessionService
	jobService         JobService
	applicationService ApplicationService
	userService        UserService
	flashService       FlashService
	revalidator        *SessionRevalidator

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(sessions repositories.SessionRepository, api MarketplaceAPI, cm *cache.CacheManager,
	publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		sessions:  sessions,
		api:       api,
		cache:     cm,
		publisher: publisher,
		logger:    logger,
		validator: v,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(sessions repositories.SessionRepository, api MarketplaceAPI, cm *cache.CacheManager,
	publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) ServiceManager {
	config := ServiceManagerConfig{
		VerifyAfter:        5 * time.Minute,
		RevalidateInterval: 5 * time.Minute,
		EnableRevalidation: true,
	}
	return NewServiceManager(sessions, api, cm, publisher, logger, v, config)
}

// Initialize sets up all services and starts the session revalidator
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.sessionService = NewSessionService(sm.sessions, sm.api, sm.cache, sm.publisher, sm.validator, sm.logger,
		SessionServiceConfig{VerifyAfter: sm.config.VerifyAfter})
	sm.jobService = NewJobService(sm.api, sm.cache, sm.publisher, sm.validator, sm.logger)
	sm.applicationService = NewApplicationService(sm.api, sm.cache, NewExportService(sm.logger), sm.publisher, sm.validator, sm.logger)
	sm.userService = NewUserService(sm.api, sm.cache, sm.validator, sm.logger)
	sm.flashService = NewFlashService(sm.cache, sm.logger)

	interval := sm.config.RevalidateInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	sm.revalidator = NewSessionRevalidator(sm.sessions, sm.sessionService, interval, sm.logger)
	if sm.config.EnableRevalidation {
		if err := sm.revalidator.Start(ctx); err != nil {
			return fmt.Errorf("failed to start session revalidation: %w", err)
		}
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")
	return nil
}

// Service getters
func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.sessionService
}

func (sm *serviceManager) Job() JobService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.jobService
}

func (sm *serviceManager) Application() ApplicationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.applicationService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.userService
}

func (sm *serviceManager) Flash() FlashService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.flashService
}

func (sm *serviceManager) Revalidator() *SessionRevalidator {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.revalidator
}

// Shutdown stops background jobs
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown || !sm.initialized {
		return nil
	}

	sm.logger.Info("Shutting down service manager")
	if sm.config.EnableRevalidation && sm.revalidator != nil {
		sm.revalidator.Stop(ctx)
	}
	sm.shutdown = true
	sm.logger.Info("Service manager shutdown completed")
	return nil
}

// Health returns the health status of the stores the services depend on
func (sm *serviceManager) Health(ctx context.Context) map[string]string {
	health := map[string]string{
		"sessions": "healthy",
		"cache":    "healthy",
	}
	if err := sm.sessions.Ping(ctx); err != nil {
		health["sessions"] = "unhealthy: " + err.Error()
	}
	if err := sm.cache.HealthCheck(ctx); err != nil {
		health["cache"] = "unhealthy: " + err.Error()
	}
	return health
}
