package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
)

// TicketRepository interface for support ticket operations
type TicketRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ticket *models.SupportTicket) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SupportTicket, error)
	Update(ctx context.Context, tx *gorm.DB, ticket *models.SupportTicket) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters TicketFilters) ([]*models.SupportTicket, int64, error)
	CountOpen(ctx context.Context, tx *gorm.DB) (int64, error)
}
