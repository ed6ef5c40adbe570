package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safestep-care/safestep-service/internal/config"
	"github.com/safestep-care/safestep-service/internal/models"
)

type stubCompleter struct {
	lastRequest openai.ChatCompletionRequest
	reply       string
	err         error
}

func (s *stubCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.lastRequest = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Model: req.Model,
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.reply}},
		},
	}, nil
}

func newStubAssistant(env *testEnv, stub *stubCompleter) *assistantService {
	return &assistantService{
		repo:      env.repo,
		db:        env.db,
		logger:    env.logger,
		validator: env.validator,
		patients:  env.patientService(),
		client:    stub,
		model:     "gpt-4o-mini",
	}
}

func TestAssistantService_DisabledWithoutAPIKey(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAssistantService(env.repo, env.db, env.logger, env.validator, env.patientService(), config.AssistantConfig{})

	assert.False(t, svc.Enabled())

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	_, err := svc.Chat(context.Background(), &ChatRequest{Message: "hello"}, caregiver.ID, models.RoleCaregiver)
	assert.ErrorIs(t, err, ErrAssistantDisabled)
}

func TestAssistantService_Chat(t *testing.T) {
	env := newTestEnv(t)
	stub := &stubCompleter{reply: "Keep the rescue medication within reach."}
	svc := newStubAssistant(env, stub)

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)

	resp, err := svc.Chat(context.Background(), &ChatRequest{
		Message: "What should I keep nearby during seizures?",
	}, caregiver.ID, models.RoleCaregiver)
	require.NoError(t, err)

	assert.Equal(t, "Keep the rescue medication within reach.", resp.Reply)
	assert.Equal(t, "gpt-4o-mini", resp.Model)

	require.Len(t, stub.lastRequest.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, stub.lastRequest.Messages[0].Role)
	assert.Equal(t, "What should I keep nearby during seizures?", stub.lastRequest.Messages[1].Content)
}

func TestAssistantService_Chat_PatientContext(t *testing.T) {
	env := newTestEnv(t)
	stub := &stubCompleter{reply: "ok"}
	svc := newStubAssistant(env, stub)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	_, err := svc.Chat(ctx, &ChatRequest{
		Message:    "How is this patient doing?",
		PatientRef: &patient.ID,
	}, caregiver.ID, models.RoleCaregiver)
	require.NoError(t, err)

	systemPrompt := stub.lastRequest.Messages[0].Content
	assert.True(t, strings.Contains(systemPrompt, patient.Name))
	assert.True(t, strings.Contains(systemPrompt, patient.PatientID))
}

func TestAssistantService_Chat_DeniedForOtherCaregiver(t *testing.T) {
	env := newTestEnv(t)
	svc := newStubAssistant(env, &stubCompleter{reply: "ok"})

	owner := env.createUser(t, "owner", models.RoleCaregiver)
	other := env.createUser(t, "other", models.RoleCaregiver)
	patient := env.createPatient(t, owner.ID)

	_, err := svc.Chat(context.Background(), &ChatRequest{
		Message:    "Tell me about this patient",
		PatientRef: &patient.ID,
	}, other.ID, models.RoleCaregiver)

	var permissionError *PermissionError
	assert.ErrorAs(t, err, &permissionError)
}

func TestAssistantService_Chat_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	svc := newStubAssistant(env, &stubCompleter{err: errors.New("rate limited")})

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)

	_, err := svc.Chat(context.Background(), &ChatRequest{Message: "hello"}, caregiver.ID, models.RoleCaregiver)
	assert.ErrorIs(t, err, ErrAssistantUnavailable)
}
