package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safestep-care/safestep-service/internal/models"
)

func signupRequest(username string) *SignupRequest {
	return &SignupRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "correct-horse-42",
		FirstName: "Test",
		LastName:  "User",
	}
}

func TestAuthService_Signup_FirstAccountBecomesAdmin(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.repo, env.db, env.logger, env.validator)
	ctx := context.Background()

	first, err := svc.Signup(ctx, signupRequest("founder"))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.User.Role)

	second, err := svc.Signup(ctx, signupRequest("helper"))
	require.NoError(t, err)
	assert.Equal(t, models.RoleCaregiver, second.User.Role)
}

func TestAuthService_Signup_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.repo, env.db, env.logger, env.validator)
	ctx := context.Background()

	_, err := svc.Signup(ctx, signupRequest("casey"))
	require.NoError(t, err)

	req := signupRequest("casey")
	req.Email = "other@example.com"
	_, err = svc.Signup(ctx, req)
	assert.ErrorIs(t, err, ErrUsernameTaken)

	req = signupRequest("casey2")
	req.Email = "casey@example.com"
	_, err = svc.Signup(ctx, req)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_Signup_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.repo, env.db, env.logger, env.validator)

	req := signupRequest("x")
	req.Password = "short"
	_, err := svc.Signup(context.Background(), req)
	require.Error(t, err)

	var validationErrors ValidationErrors
	assert.ErrorAs(t, err, &validationErrors)
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.repo, env.db, env.logger, env.validator)
	ctx := context.Background()

	_, err := svc.Signup(ctx, signupRequest("morgan"))
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginRequest{Username: "morgan", Password: "correct-horse-42"})
	require.NoError(t, err)
	assert.Equal(t, "morgan", resp.User.Username)

	_, err = svc.Login(ctx, &LoginRequest{Username: "morgan", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown users get the same error as wrong passwords
	_, err = svc.Login(ctx, &LoginRequest{Username: "nobody", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_WithEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.repo, env.db, env.logger, env.validator)
	ctx := context.Background()

	_, err := svc.Signup(ctx, signupRequest("jordan"))
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginRequest{Username: "jordan@example.com", Password: "correct-horse-42"})
	require.NoError(t, err)
	assert.Equal(t, "jordan", resp.User.Username)

	_, err = svc.Login(ctx, &LoginRequest{Username: "jordan@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.repo, env.db, env.logger, env.validator)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, signupRequest("rotator"))
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, resp.User.ID, &ChangePasswordRequest{
		CurrentPassword: "wrong-password",
		NewPassword:     "brand-new-secret-9",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, resp.User.ID, &ChangePasswordRequest{
		CurrentPassword: "correct-horse-42",
		NewPassword:     "brand-new-secret-9",
	})
	require.NoError(t, err)

	// Only the new password works from here on
	_, err = svc.Login(ctx, &LoginRequest{Username: "rotator", Password: "correct-horse-42"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	logged, err := svc.Login(ctx, &LoginRequest{Username: "rotator", Password: "brand-new-secret-9"})
	require.NoError(t, err)
	assert.Equal(t, "rotator", logged.User.Username)
}

func TestAuthService_ChangePassword_RejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.repo, env.db, env.logger, env.validator)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, signupRequest("weakling"))
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, resp.User.ID, &ChangePasswordRequest{
		CurrentPassword: "correct-horse-42",
		NewPassword:     "short",
	})
	var validationErrors ValidationErrors
	assert.ErrorAs(t, err, &validationErrors)
}

func TestAuthService_Login_DisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.repo, env.db, env.logger, env.validator)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, signupRequest("retired"))
	require.NoError(t, err)

	resp.User.IsActive = false
	require.NoError(t, env.repo.User().Update(ctx, nil, resp.User))

	_, err = svc.Login(ctx, &LoginRequest{Username: "retired", Password: "correct-horse-42"})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}
