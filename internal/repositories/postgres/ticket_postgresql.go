package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

type TicketPostgreSQL struct {
	db *gorm.DB
}

func NewTicketPostgreSQL(db *gorm.DB) repositories.TicketRepository {
	return &TicketPostgreSQL{db: db}
}

func (t *TicketPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}

func (t *TicketPostgreSQL) Create(ctx context.Context, tx *gorm.DB, ticket *models.SupportTicket) error {
	if err := t.getDB(tx).WithContext(ctx).Create(ticket).Error; err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (t *TicketPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SupportTicket, error) {
	var ticket models.SupportTicket
	err := t.getDB(tx).WithContext(ctx).
		Preload("User").
		First(&ticket, id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (t *TicketPostgreSQL) Update(ctx context.Context, tx *gorm.DB, ticket *models.SupportTicket) error {
	if err := t.getDB(tx).WithContext(ctx).Save(ticket).Error; err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	return nil
}

func (t *TicketPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := t.getDB(tx).WithContext(ctx).Delete(&models.SupportTicket{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *TicketPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TicketFilters) ([]*models.SupportTicket, int64, error) {
	var tickets []*models.SupportTicket
	var total int64

	query := t.getDB(tx).WithContext(ctx).Model(&models.SupportTicket{})
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Priority != nil {
		query = query.Where("priority = ?", *filters.Priority)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Preload("User").Find(&tickets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, total, nil
}

func (t *TicketPostgreSQL) CountOpen(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := t.getDB(tx).WithContext(ctx).
		Model(&models.SupportTicket{}).
		Where("status = ?", models.TicketStatusOpen).
		Count(&count).Error
	return count, err
}
