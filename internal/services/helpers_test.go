package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/events"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/repositories/postgres"
	"github.com/safestep-care/safestep-service/internal/validator"
	"github.com/safestep-care/safestep-service/pkg"
)

// testEnv bundles the dependencies every service test needs. Each test gets
// its own in-memory database so tests stay independent.
type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	publisher *events.MockEventPublisher
	validator *validator.Validator
	logger    *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, pkg.Migrate(db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		db:        db,
		repo:      postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db}),
		publisher: events.NewMockEventPublisher(logger),
		validator: validator.New(),
		logger:    logger,
	}
}

func (e *testEnv) patientService() PatientService {
	return NewPatientService(e.repo, e.db, e.logger, e.validator)
}

func (e *testEnv) createUser(t *testing.T, username string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$N9qo8uLOickgx2ZMRZoMye.IjPeGvGzjx1Pl9fOUKlC0vXF6S3G2q",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, e.repo.User().Create(context.Background(), nil, user))
	return user
}

func (e *testEnv) createPatient(t *testing.T, caregiverID uint) *models.PatientProfile {
	t.Helper()

	code, err := e.repo.Patient().NextPatientID(context.Background(), nil)
	require.NoError(t, err)

	patient := &models.PatientProfile{
		PatientID:        code,
		Name:             "Alex Doe",
		EpilepsyType:     models.EpilepsyFocal,
		SeizureFrequency: models.FrequencyMonthly,
		RiskStatus:       models.RiskLow,
		CaregiverID:      caregiverID,
	}
	require.NoError(t, e.repo.Patient().Create(context.Background(), nil, patient))
	return patient
}

func strPtr(s string) *string       { return &s }
func intPtr(i int) *int             { return &i }
func floatPtr(f float64) *float64   { return &f }
