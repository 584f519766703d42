package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/repository"
)

// UniquenessValidator answers whether a username or email is already claimed.
// Checks only read core user fields and never load authorities.
type UniquenessValidator struct {
	users repository.UserRepository
}

// NewUniquenessValidator builds the validator.
func NewUniquenessValidator(users repository.UserRepository) *UniquenessValidator {
	return &UniquenessValidator{users: users}
}

// IsUsernameTaken compares case-insensitively.
func (v *UniquenessValidator) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	user, err := v.findByUsername(ctx, username)
	return user != nil, err
}

// IsEmailTaken compares exactly.
func (v *UniquenessValidator) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	user, err := v.findByEmail(ctx, email)
	return user != nil, err
}

// UsernameTakenByOther reports whether username belongs to a user other than excludeID.
func (v *UniquenessValidator) UsernameTakenByOther(ctx context.Context, username, excludeID string) (bool, error) {
	user, err := v.findByUsername(ctx, username)
	if err != nil || user == nil {
		return false, err
	}
	return user.ID != excludeID, nil
}

// EmailTakenByOther reports whether email belongs to a user other than excludeID.
func (v *UniquenessValidator) EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error) {
	user, err := v.findByEmail(ctx, email)
	if err != nil || user == nil {
		return false, err
	}
	return user.ID != excludeID, nil
}

func (v *UniquenessValidator) findByUsername(ctx context.Context, username string) (*domain.User, error) {
	return absentAsNil(v.users.GetByUsername(ctx, domain.NormalizeUsername(username)))
}

func (v *UniquenessValidator) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	return absentAsNil(v.users.GetByEmail(ctx, strings.TrimSpace(email)))
}

func absentAsNil(user *domain.User, err error) (*domain.User, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return user, err
}
