package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

func newUserService(env *testEnv) UserService {
	return NewUserService(env.repo, env.db, env.logger, env.validator)
}

func TestUserService_List(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)
	ctx := context.Background()

	env.createUser(t, "admin", models.RoleAdmin)
	env.createUser(t, "caregiver1", models.RoleCaregiver)
	env.createUser(t, "caregiver2", models.RoleCaregiver)

	all, err := svc.List(ctx, repositories.UserFilters{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)

	role := models.RoleCaregiver
	caregivers, err := svc.List(ctx, repositories.UserFilters{Role: &role, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), caregivers.Total)
}

func TestUserService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)

	created, err := svc.Create(ctx, &CreateUserRequest{
		Username:  "oncall",
		Email:     "oncall@example.com",
		Password:  "correct-horse-42",
		FirstName: "On",
		LastName:  "Call",
		Role:      string(models.RoleAdmin),
	}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.True(t, created.IsActive)
	assert.NotEqual(t, "correct-horse-42", created.PasswordHash)

	// Duplicate username and email are rejected
	_, err = svc.Create(ctx, &CreateUserRequest{
		Username:  "oncall",
		Email:     "other@example.com",
		Password:  "correct-horse-42",
		FirstName: "On",
		LastName:  "Call",
		Role:      string(models.RoleCaregiver),
	}, admin.ID)
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Create(ctx, &CreateUserRequest{
		Username:  "oncall2",
		Email:     "oncall@example.com",
		Password:  "correct-horse-42",
		FirstName: "On",
		LastName:  "Call",
		Role:      string(models.RoleCaregiver),
	}, admin.ID)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserService_Create_RejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)

	admin := env.createUser(t, "admin", models.RoleAdmin)

	_, err := svc.Create(context.Background(), &CreateUserRequest{
		Username:  "rogue",
		Email:     "rogue@example.com",
		Password:  "correct-horse-42",
		FirstName: "Ro",
		LastName:  "Gue",
		Role:      "superuser",
	}, admin.ID)
	var validationErrors ValidationErrors
	assert.ErrorAs(t, err, &validationErrors)
}

func TestUserService_Update(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)

	adminRole := string(models.RoleAdmin)
	updated, err := svc.Update(ctx, caregiver.ID, &UpdateUserRequest{
		Role:      &adminRole,
		FirstName: strPtr("Morgan"),
	}, admin.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, "Morgan", updated.FirstName)
}

func TestUserService_Update_SelfDemotionBlocked(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)

	admin := env.createUser(t, "admin", models.RoleAdmin)

	caregiverRole := string(models.RoleCaregiver)
	_, err := svc.Update(context.Background(), admin.ID, &UpdateUserRequest{Role: &caregiverRole}, admin.ID)

	var businessRuleError *BusinessRuleError
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "self_demotion", businessRuleError.Rule)
}

func TestUserService_Update_SelfDeactivationBlocked(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)

	admin := env.createUser(t, "admin", models.RoleAdmin)

	inactive := false
	_, err := svc.Update(context.Background(), admin.ID, &UpdateUserRequest{IsActive: &inactive}, admin.ID)

	var businessRuleError *BusinessRuleError
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "self_deactivation", businessRuleError.Rule)
}

func TestUserService_Deactivate(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)

	require.NoError(t, svc.Deactivate(ctx, caregiver.ID, admin.ID))

	deactivated, err := svc.GetByID(ctx, caregiver.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	err = svc.Deactivate(ctx, admin.ID, admin.ID)
	var businessRuleError *BusinessRuleError
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "self_deactivation", businessRuleError.Rule)
}

func TestUserService_Delete(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)

	require.NoError(t, svc.Delete(ctx, caregiver.ID, admin.ID))

	_, err := svc.GetByID(ctx, caregiver.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Delete_Guards(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	second := env.createUser(t, "backup", models.RoleAdmin)

	var businessRuleError *BusinessRuleError

	err := svc.Delete(ctx, admin.ID, admin.ID)
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "self_deletion", businessRuleError.Rule)

	// With two admins one can go, after that the survivor is protected
	require.NoError(t, svc.Delete(ctx, second.ID, admin.ID))

	third := env.createUser(t, "operator", models.RoleCaregiver)
	err = svc.Delete(ctx, admin.ID, third.ID)
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "last_admin", businessRuleError.Rule)
}
