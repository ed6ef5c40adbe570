package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type ticketService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewTicketService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) TicketService {
	return &ticketService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

func (s *ticketService) Create(ctx context.Context, req *CreateTicketRequest, userID uint) (*models.SupportTicket, error) {
	s.logger.Info("Creating support ticket", "user_id", userID, "subject", req.Subject)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	priority := req.Priority
	if priority == "" {
		priority = models.TicketPriorityNormal
	}

	ticket := &models.SupportTicket{
		UserID:   userID,
		Subject:  req.Subject,
		Body:     req.Body,
		Status:   models.TicketStatusOpen,
		Priority: priority,
	}

	if err := s.repo.Ticket().Create(ctx, s.db, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	return ticket, nil
}

// GetByID returns a ticket. Callers see only their own tickets unless they
// are admins.
func (s *ticketService) GetByID(ctx context.Context, id uint, userID uint, role models.UserRole) (*models.SupportTicket, error) {
	ticket, err := s.repo.Ticket().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	if role != models.RoleAdmin && ticket.UserID != userID {
		return nil, NewPermissionError(userID, id, "ticket", "read", "not the ticket owner")
	}
	return ticket, nil
}

func (s *ticketService) List(ctx context.Context, filters repositories.TicketFilters, userID uint, role models.UserRole) (*TicketListResponse, error) {
	if role != models.RoleAdmin {
		filters.UserID = &userID
	}

	tickets, total, err := s.repo.Ticket().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return &TicketListResponse{Tickets: tickets, Total: total}, nil
}

func (s *ticketService) Update(ctx context.Context, id uint, req *UpdateTicketRequest, adminID uint) (*models.SupportTicket, error) {
	s.logger.Info("Updating support ticket", "ticket_id", id, "admin_id", adminID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	ticket, err := s.repo.Ticket().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	if req.Status != nil {
		ticket.Status = *req.Status
		if *req.Status == models.TicketStatusClosed && ticket.ClosedAt == nil {
			now := time.Now().UTC()
			ticket.ClosedAt = &now
		}
	}
	if req.Response != nil {
		ticket.Response = *req.Response
	}
	if req.AssignedTo != nil {
		ticket.AssignedTo = req.AssignedTo
	}

	if err := s.repo.Ticket().Update(ctx, s.db, ticket); err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}
	return ticket, nil
}

func (s *ticketService) Delete(ctx context.Context, id uint, adminID uint) error {
	s.logger.Info("Deleting support ticket", "ticket_id", id, "admin_id", adminID)

	if err := s.repo.Ticket().Delete(ctx, s.db, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTicketNotFound
		}
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	return nil
}
