package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

func newTicketService(env *testEnv) TicketService {
	return NewTicketService(env.repo, env.db, env.logger, env.validator)
}

func TestTicketService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := newTicketService(env)

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)

	ticket, err := svc.Create(context.Background(), &CreateTicketRequest{
		Subject: "GPS check fails for one patient",
		Body:    "Location checks return an error since yesterday for sub-03.",
	}, caregiver.ID)
	require.NoError(t, err)

	assert.Equal(t, models.TicketStatusOpen, ticket.Status)
	assert.Equal(t, models.TicketPriorityNormal, ticket.Priority)
	assert.Equal(t, caregiver.ID, ticket.UserID)
}

func TestTicketService_GetByID_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	svc := newTicketService(env)
	ctx := context.Background()

	owner := env.createUser(t, "owner", models.RoleCaregiver)
	other := env.createUser(t, "other", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)

	ticket, err := svc.Create(ctx, &CreateTicketRequest{
		Subject: "Cannot export incidents",
		Body:    "The dashboard export button returns a server error.",
	}, owner.ID)
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, ticket.ID, owner.ID, models.RoleCaregiver)
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, ticket.ID, other.ID, models.RoleCaregiver)
	var permissionError *PermissionError
	require.ErrorAs(t, err, &permissionError)

	_, err = svc.GetByID(ctx, ticket.ID, admin.ID, models.RoleAdmin)
	require.NoError(t, err)
}

func TestTicketService_List_ScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	svc := newTicketService(env)
	ctx := context.Background()

	owner := env.createUser(t, "owner", models.RoleCaregiver)
	other := env.createUser(t, "other", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)

	for _, userID := range []uint{owner.ID, other.ID} {
		_, err := svc.Create(ctx, &CreateTicketRequest{
			Subject: "Question about training modules",
			Body:    "How do I reset my progress on a module?",
		}, userID)
		require.NoError(t, err)
	}

	mine, err := svc.List(ctx, repositories.TicketFilters{Limit: 10}, owner.ID, models.RoleCaregiver)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Total)

	all, err := svc.List(ctx, repositories.TicketFilters{Limit: 10}, admin.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
}

func TestTicketService_Update_CloseSetsTimestamp(t *testing.T) {
	env := newTestEnv(t)
	svc := newTicketService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)

	ticket, err := svc.Create(ctx, &CreateTicketRequest{
		Subject: "Zone approval stuck",
		Body:    "A danger zone has been pending for a week.",
	}, caregiver.ID)
	require.NoError(t, err)

	closed := models.TicketStatusClosed
	updated, err := svc.Update(ctx, ticket.ID, &UpdateTicketRequest{
		Status:   &closed,
		Response: strPtr("Approved the zone, sorry for the delay."),
	}, admin.ID)
	require.NoError(t, err)

	assert.Equal(t, models.TicketStatusClosed, updated.Status)
	assert.Equal(t, "Approved the zone, sorry for the delay.", updated.Response)
	require.NotNil(t, updated.ClosedAt)
	firstClose := *updated.ClosedAt

	// Closing an already closed ticket keeps the original timestamp
	updated, err = svc.Update(ctx, ticket.ID, &UpdateTicketRequest{Status: &closed}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, firstClose.Unix(), updated.ClosedAt.Unix())
}

func TestTicketService_Delete(t *testing.T) {
	env := newTestEnv(t)
	svc := newTicketService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)

	ticket, err := svc.Create(ctx, &CreateTicketRequest{
		Subject: "Duplicate ticket",
		Body:    "Filed this twice by accident, please remove.",
	}, caregiver.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, ticket.ID, admin.ID))

	_, err = svc.GetByID(ctx, ticket.ID, admin.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}
