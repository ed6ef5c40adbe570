package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/config"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/validator"
)

const assistantSystemPrompt = `You are the SafeStep care assistant. You help caregivers of people with epilepsy understand seizure safety, medication routines, safety zones and incident data recorded in SafeStep. Answer concisely and practically. You are not a doctor; for medical decisions always advise consulting the patient's physician. Never reveal data about patients other than those listed in the context below.`

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type assistantService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	patients  PatientService
	client    chatCompleter
	model     string
}

func NewAssistantService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, patients PatientService, cfg config.AssistantConfig) AssistantService {
	var client chatCompleter
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		client = openai.NewClientWithConfig(clientConfig)
	}

	return &assistantService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		patients:  patients,
		client:    client,
		model:     cfg.Model,
	}
}

func (s *assistantService) Enabled() bool {
	return s.client != nil
}

// Chat sends the caregiver's question to the chat completion API with a
// system prompt scoped to what the caller is allowed to see.
func (s *assistantService) Chat(ctx context.Context, req *ChatRequest, userID uint, role models.UserRole) (*ChatResponse, error) {
	if !s.Enabled() {
		return nil, ErrAssistantDisabled
	}

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	systemPrompt, err := s.buildSystemPrompt(ctx, req, userID, role)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Message},
		},
		MaxTokens: 600,
	})
	if err != nil {
		s.logger.Error("Assistant completion failed", "user_id", userID, "error", err)
		return nil, ErrAssistantUnavailable
	}
	if len(resp.Choices) == 0 {
		return nil, ErrAssistantUnavailable
	}

	return &ChatResponse{
		Reply: resp.Choices[0].Message.Content,
		Model: resp.Model,
	}, nil
}

// buildSystemPrompt appends role-scoped patient context. Admins get the
// current high-risk population; caregivers get their requested patient
// only after the usual access check.
func (s *assistantService) buildSystemPrompt(ctx context.Context, req *ChatRequest, userID uint, role models.UserRole) (string, error) {
	var b strings.Builder
	b.WriteString(assistantSystemPrompt)

	if req.PatientRef != nil {
		canAccess, err := s.patients.CanAccess(ctx, *req.PatientRef, userID)
		if err != nil {
			return "", err
		}
		if !canAccess {
			return "", NewPermissionError(userID, *req.PatientRef, "assistant", "chat", "not the assigned caregiver")
		}

		patient, err := s.repo.Patient().GetByID(ctx, s.db, *req.PatientRef)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return "", ErrPatientNotFound
			}
			return "", fmt.Errorf("failed to get patient: %w", err)
		}

		b.WriteString("\n\nPatient context:\n")
		b.WriteString(patientSummaryLine(patient))
		return b.String(), nil
	}

	if role == models.RoleAdmin {
		high := models.RiskHigh
		patients, _, err := s.repo.Patient().List(ctx, s.db, repositories.PatientFilters{
			RiskStatus: &high,
			Limit:      10,
			SortBy:     "risk_score",
			SortOrder:  "desc",
		})
		if err == nil && len(patients) > 0 {
			b.WriteString("\n\nCurrent high-risk patients:\n")
			for _, p := range patients {
				b.WriteString(patientSummaryLine(p))
			}
		}
	}

	return b.String(), nil
}

func patientSummaryLine(p *models.PatientProfile) string {
	return fmt.Sprintf("- %s (%s): epilepsy type %s, seizure frequency %s, risk %s (%.1f), recent seizures %d\n",
		p.Name, p.PatientID, p.EpilepsyType, p.SeizureFrequency, p.RiskStatus, p.RiskScore, p.RecentSeizureCount)
}
