package repositories

import "context"

// Repository aggregates all domain repositories behind one interface.
type Repository interface {
	// Patient domain
	Patient() PatientRepository

	// Incident domain
	Incident() IncidentRepository
	Session() SessionRepository

	// Safety zone domain
	Zone() ZoneRepository

	// Training domain
	Training() TrainingRepository

	// Care domain
	Medication() MedicationRepository
	CarePlan() CarePlanRepository
	Contact() ContactRepository
	Alert() AlertRepository

	// Risk prediction domain
	Prediction() PredictionRepository

	// User and support domain
	User() UserRepository
	Ticket() TicketRepository

	// Dashboard domain
	Dashboard() DashboardRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
