package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/cache"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	// Repository instances
	patient    repositories.PatientRepository
	incident   repositories.IncidentRepository
	session    repositories.SessionRepository
	zone       repositories.ZoneRepository
	training   repositories.TrainingRepository
	medication repositories.MedicationRepository
	carePlan   repositories.CarePlanRepository
	contact    repositories.ContactRepository
	alert      repositories.AlertRepository
	prediction repositories.PredictionRepository
	user       repositories.UserRepository
	ticket     repositories.TicketRepository
	dashboard  repositories.DashboardRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// NewPostgreSQLRepository creates a new repository manager with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
	}

	repo.patient = NewPatientPostgreSQL(config.DB, config.RedisClient)
	repo.incident = NewIncidentPostgreSQL(config.DB, config.RedisClient)
	repo.session = NewSessionPostgreSQL(config.DB)
	repo.zone = NewZonePostgreSQL(config.DB, config.RedisClient)
	repo.training = NewTrainingPostgreSQL(config.DB)
	repo.medication = NewMedicationPostgreSQL(config.DB)
	repo.carePlan = NewCarePlanPostgreSQL(config.DB)
	repo.contact = NewContactPostgreSQL(config.DB)
	repo.alert = NewAlertPostgreSQL(config.DB)
	repo.prediction = NewPredictionPostgreSQL(config.DB)
	repo.user = NewUserPostgreSQL(config.DB)
	repo.ticket = NewTicketPostgreSQL(config.DB)
	repo.dashboard = NewDashboardPostgreSQL(config.DB, config.RedisClient)

	return repo
}

func (r *PostgreSQLRepository) Patient() repositories.PatientRepository       { return r.patient }
func (r *PostgreSQLRepository) Incident() repositories.IncidentRepository     { return r.incident }
func (r *PostgreSQLRepository) Session() repositories.SessionRepository       { return r.session }
func (r *PostgreSQLRepository) Zone() repositories.ZoneRepository             { return r.zone }
func (r *PostgreSQLRepository) Training() repositories.TrainingRepository     { return r.training }
func (r *PostgreSQLRepository) Medication() repositories.MedicationRepository { return r.medication }
func (r *PostgreSQLRepository) CarePlan() repositories.CarePlanRepository     { return r.carePlan }
func (r *PostgreSQLRepository) Contact() repositories.ContactRepository       { return r.contact }
func (r *PostgreSQLRepository) Alert() repositories.AlertRepository           { return r.alert }
func (r *PostgreSQLRepository) Prediction() repositories.PredictionRepository { return r.prediction }
func (r *PostgreSQLRepository) User() repositories.UserRepository             { return r.user }
func (r *PostgreSQLRepository) Ticket() repositories.TicketRepository         { return r.ticket }
func (r *PostgreSQLRepository) Dashboard() repositories.DashboardRepository   { return r.dashboard }

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
		}

		txRepo.patient = NewPatientPostgreSQL(tx, r.redisClient)
		txRepo.incident = NewIncidentPostgreSQL(tx, r.redisClient)
		txRepo.session = NewSessionPostgreSQL(tx)
		txRepo.zone = NewZonePostgreSQL(tx, r.redisClient)
		txRepo.training = NewTrainingPostgreSQL(tx)
		txRepo.medication = NewMedicationPostgreSQL(tx)
		txRepo.carePlan = NewCarePlanPostgreSQL(tx)
		txRepo.contact = NewContactPostgreSQL(tx)
		txRepo.alert = NewAlertPostgreSQL(tx)
		txRepo.prediction = NewPredictionPostgreSQL(tx)
		txRepo.user = NewUserPostgreSQL(tx)
		txRepo.ticket = NewTicketPostgreSQL(tx)
		txRepo.dashboard = NewDashboardPostgreSQL(tx, r.redisClient)

		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize initializes all repositories and connections
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("Redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}
