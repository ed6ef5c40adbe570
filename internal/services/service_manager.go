package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/config"
	"github.com/safestep-care/safestep-service/internal/events"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	LogLevel slog.Level

	// Assistant chat integration, disabled when the API key is empty
	Assistant config.AssistantConfig

	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	config    ServiceManagerConfig

	// Service instances
	authService       AuthService
	patientService    PatientService
	incidentService   IncidentService
	zoneService       ZoneService
	trainingService   TrainingService
	careService       CareService
	predictionService PredictionService
	assistantService  AssistantService
	dashboardService  DashboardService
	ticketService     TicketService
	userService       UserService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ServiceManager {
	return NewServiceManager(db, repo, logger, validator, publisher, ServiceManagerConfig{
		LogLevel:       slog.LevelInfo,
		DefaultTimeout: 30 * time.Second,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices(ctx context.Context) error {
	sm.authService = NewAuthService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("Auth service initialized")

	sm.patientService = NewPatientService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("Patient service initialized")

	sm.incidentService = NewIncidentService(sm.repo, sm.db, sm.logger, sm.validator, sm.patientService, sm.publisher)
	sm.logger.Info("Incident service initialized")

	sm.zoneService = NewZoneService(sm.repo, sm.db, sm.logger, sm.validator, sm.patientService, sm.publisher)
	sm.logger.Info("Zone service initialized")

	sm.trainingService = NewTrainingService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("Training service initialized")

	sm.careService = NewCareService(sm.repo, sm.db, sm.logger, sm.validator, sm.patientService, sm.publisher)
	sm.logger.Info("Care service initialized")

	sm.predictionService = NewPredictionService(sm.repo, sm.db, sm.logger, sm.validator, sm.patientService, sm.publisher)
	sm.logger.Info("Prediction service initialized")

	sm.assistantService = NewAssistantService(sm.repo, sm.db, sm.logger, sm.validator, sm.patientService, sm.config.Assistant)
	if sm.assistantService.Enabled() {
		sm.logger.Info("Assistant service initialized", "model", sm.config.Assistant.Model)
	} else {
		sm.logger.Info("Assistant service initialized without API credentials, chat disabled")
	}

	sm.dashboardService = NewDashboardService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Dashboard service initialized")

	sm.ticketService = NewTicketService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("Ticket service initialized")

	sm.userService = NewUserService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("User service initialized")

	return nil
}

// Service getters

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.authService == nil {
		panic("auth service not initialized")
	}
	return sm.authService
}

func (sm *serviceManager) Patient() PatientService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.patientService == nil {
		panic("patient service not initialized")
	}
	return sm.patientService
}

func (sm *serviceManager) Incident() IncidentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.incidentService == nil {
		panic("incident service not initialized")
	}
	return sm.incidentService
}

func (sm *serviceManager) Zone() ZoneService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.zoneService == nil {
		panic("zone service not initialized")
	}
	return sm.zoneService
}

func (sm *serviceManager) Training() TrainingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.trainingService == nil {
		panic("training service not initialized")
	}
	return sm.trainingService
}

func (sm *serviceManager) Care() CareService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.careService == nil {
		panic("care service not initialized")
	}
	return sm.careService
}

func (sm *serviceManager) Prediction() PredictionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.predictionService == nil {
		panic("prediction service not initialized")
	}
	return sm.predictionService
}

func (sm *serviceManager) Assistant() AssistantService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.assistantService == nil {
		panic("assistant service not initialized")
	}
	return sm.assistantService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.dashboardService == nil {
		panic("dashboard service not initialized")
	}
	return sm.dashboardService
}

func (sm *serviceManager) Ticket() TicketService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.ticketService == nil {
		panic("ticket service not initialized")
	}
	return sm.ticketService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.userService == nil {
		panic("user service not initialized")
	}
	return sm.userService
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

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if err := sm.publisher.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	sm.initialized = false
	sm.logger.Info("Service manager shut down")

	return nil
}
