package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUserService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// Create provisions an account with an admin-chosen role, unlike public
// signup which always starts as caregiver.
func (s *userService) Create(ctx context.Context, req *CreateUserRequest, adminID uint) (*models.User, error) {
	s.logger.Info("Creating user", "username", req.Username, "role", req.Role, "admin_id", adminID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	taken, err := s.repo.User().ExistsByUsername(ctx, s.db, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = s.repo.User().ExistsByEmail(ctx, s.db, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.UserRole(req.Role),
		IsActive:     true,
	}
	if err := s.repo.User().Create(ctx, s.db, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error) {
	users, total, err := s.repo.User().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &UserListResponse{Users: users, Total: total}, nil
}

func (s *userService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, id uint, req *UpdateUserRequest, adminID uint) (*models.User, error) {
	s.logger.Info("Updating user", "user_id", id, "admin_id", adminID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Admins cannot demote or deactivate themselves; that path goes
	// through another administrator.
	if id == adminID {
		if req.Role != nil && models.UserRole(*req.Role) != models.RoleAdmin {
			return nil, NewBusinessRuleError("self_demotion", "administrators cannot change their own role")
		}
		if req.IsActive != nil && !*req.IsActive {
			return nil, NewBusinessRuleError("self_deactivation", "administrators cannot deactivate their own account")
		}
	}

	if req.Role != nil {
		user.Role = models.UserRole(*req.Role)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}

	if err := s.repo.User().Update(ctx, s.db, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *userService) Deactivate(ctx context.Context, id uint, adminID uint) error {
	s.logger.Info("Deactivating user", "user_id", id, "admin_id", adminID)

	if id == adminID {
		return NewBusinessRuleError("self_deactivation", "administrators cannot deactivate their own account")
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	user.IsActive = false
	if err := s.repo.User().Update(ctx, s.db, user); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}

// Delete removes an account. Self-deletion is blocked, and the last
// remaining admin cannot be deleted.
func (s *userService) Delete(ctx context.Context, id uint, adminID uint) error {
	s.logger.Info("Deleting user", "user_id", id, "admin_id", adminID)

	if id == adminID {
		return NewBusinessRuleError("self_deletion", "administrators cannot delete their own account")
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if user.Role == models.RoleAdmin {
			adminCount, err := s.repo.User().CountByRole(ctx, tx, models.RoleAdmin)
			if err != nil {
				return fmt.Errorf("failed to count admins: %w", err)
			}
			if adminCount <= 1 {
				return NewBusinessRuleError("last_admin", "the last administrator cannot be deleted")
			}
		}
		if err := s.repo.User().Delete(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}
