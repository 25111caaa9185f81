package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"townhall/internal/domain"
	"townhall/internal/validation"
)

type userService struct {
	userRepo domain.UserRepository
}

// NewUserService creates a UserService backed by userRepo.
func NewUserService(userRepo domain.UserRepository) domain.UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Update writes profile fields. Every update appends a user_history row.
func (s *userService) Update(ctx context.Context, user *domain.User) error {
	user.FirstName = strings.TrimSpace(user.FirstName)
	user.LastName = strings.TrimSpace(user.LastName)
	user.Phone = strings.TrimSpace(user.Phone)
	user.Email = domain.NormalizeEmail(user.Email)
	if user.FirstName == "" || user.LastName == "" {
		return domain.NewValidationError("name", "first and last name are required")
	}
	if !validation.Email(user.Email) {
		return domain.NewValidationError("email", "invalid email format")
	}
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
