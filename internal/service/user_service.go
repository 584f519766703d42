package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UserService owns the user lifecycle: create, update, delete and the reads
// that back the management API.
type UserService struct {
	users       repository.UserRepository
	authorities repository.AuthorityRepository
	validator   *UniquenessValidator
	dispatcher  events.Dispatcher
	bcryptCost  int
	now         func() time.Time
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo      repository.UserRepository
	AuthorityRepo repository.AuthorityRepository
	Validator     *UniquenessValidator
	Dispatcher    events.Dispatcher
}

// NewUserService builds the service.
func NewUserService(cfg config.Config, deps UserDependencies) *UserService {
	validator := deps.Validator
	if validator == nil {
		validator = NewUniquenessValidator(deps.UserRepo)
	}
	return &UserService{
		users:       deps.UserRepo,
		authorities: deps.AuthorityRepo,
		validator:   validator,
		dispatcher:  deps.Dispatcher,
		bcryptCost:  cfg.Auth.BcryptCost,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser persists a new, inactive user with a fresh activation key and a
// random password. Requested authorities outside the known set are dropped;
// none at all means ROLE_USER.
//
// Username and email are re-checked before the write. A concurrent writer that
// slips past those checks is still rejected by the store's unique constraints.
func (s *UserService) CreateUser(ctx context.Context, actor string, req *dto.ManagedUserRequest) (*domain.User, error) {
	if req.HasID() {
		return nil, apperrors.NewIDExists()
	}
	if taken, err := s.validator.IsUsernameTaken(ctx, req.Username); err != nil {
		return nil, apperrors.NewInternalError(err)
	} else if taken {
		return nil, apperrors.NewUserExists()
	}
	if taken, err := s.validator.IsEmailTaken(ctx, req.Email); err != nil {
		return nil, apperrors.NewInternalError(err)
	} else if taken {
		return nil, apperrors.NewEmailExists()
	}

	hash, err := auth.RandomPasswordHash(s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	authorities, err := s.resolveAuthorities(ctx, req.Authorities)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if len(authorities) == 0 {
		authorities = []string{domain.AuthorityUser}
	}

	user := dto.ToNewUser(req, actor, s.now())
	user.ID = uuid.NewString()
	user.PasswordHash = hash
	user.Activated = false
	key := ksuid.New().String()
	user.ActivationKey = &key

	if err := s.users.Create(ctx, user, authorities); err != nil {
		return nil, mapWriteError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventUserCreated,
		UserID: user.ID,
		Actor:  actor,
		Payload: events.UserCreatedPayload{
			Username:      user.Username,
			Email:         user.Email,
			FirstName:     user.FirstName,
			LangKey:       user.LangKey,
			ActivationKey: key,
		},
	})
	return user, nil
}

// UpdateUser applies req to the user it names. Username and email are
// re-validated against every other user before anything is written.
// Authorities are replaced only when req carries a list.
func (s *UserService) UpdateUser(ctx context.Context, actor string, req *dto.ManagedUserRequest) (*dto.UserResponse, error) {
	if !req.HasID() {
		return nil, apperrors.NewValidationError("invalid user payload", map[string]any{"id": "required"})
	}
	id := *req.ID

	if taken, err := s.validator.EmailTakenByOther(ctx, req.Email, id); err != nil {
		return nil, apperrors.NewInternalError(err)
	} else if taken {
		return nil, apperrors.NewEmailExists()
	}
	if taken, err := s.validator.UsernameTakenByOther(ctx, req.Username, id); err != nil {
		return nil, apperrors.NewInternalError(err)
	} else if taken {
		return nil, apperrors.NewUserExists()
	}

	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapReadError(err, "user", id)
	}

	var authorities []string
	if req.Authorities != nil {
		if authorities, err = s.resolveAuthorities(ctx, req.Authorities); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	updated := dto.ApplyToUser(req, *existing, actor, s.now())
	if err := s.users.Update(ctx, updated, authorities); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, mapWriteError(err)
	}

	if authorities == nil {
		if authorities, err = s.users.GetAuthorities(ctx, id); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	s.publishEvent(ctx, events.Event{Type: events.EventUserUpdated, UserID: id, Actor: actor})

	resp := dto.NewUserResponseWithAuthorities(&domain.UserWithAuthorities{User: updated, Authorities: authorities})
	return &resp, nil
}

// DeleteUser removes the user with the given username. Deleting a user that
// does not exist is not an error.
func (s *UserService) DeleteUser(ctx context.Context, actor, username string) error {
	username = domain.NormalizeUsername(username)
	err := s.users.DeleteByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserDeleted,
		Actor:   actor,
		Payload: map[string]string{"username": username},
	})
	return nil
}

// GetUserWithAuthorities loads a user by username together with its role set.
func (s *UserService) GetUserWithAuthorities(ctx context.Context, username string) (*domain.UserWithAuthorities, error) {
	username = domain.NormalizeUsername(username)
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, mapReadError(err, "user", username)
	}
	authorities, err := s.users.GetAuthorities(ctx, user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.UserWithAuthorities{User: user, Authorities: authorities}, nil
}

// GetAllManagedUsers returns one page of users, excluding the anonymous
// account. Each row carries its authorities.
func (s *UserService) GetAllManagedUsers(ctx context.Context, page repository.PageRequest) (repository.Page[dto.UserResponse], error) {
	page = page.Normalize()
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return repository.Page[dto.UserResponse]{}, apperrors.NewInternalError(err)
	}

	content := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		authorities, err := s.users.GetAuthorities(ctx, users[i].ID)
		if err != nil {
			return repository.Page[dto.UserResponse]{}, apperrors.NewInternalError(err)
		}
		content = append(content, dto.NewUserResponseWithAuthorities(&domain.UserWithAuthorities{
			User:        &users[i],
			Authorities: authorities,
		}))
	}
	return repository.Page[dto.UserResponse]{
		Content: content,
		Number:  page.Page,
		Size:    page.Size,
		Total:   total,
	}, nil
}

// GetAuthorities lists every authority name the system knows.
func (s *UserService) GetAuthorities(ctx context.Context) ([]string, error) {
	names, err := s.authorities.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return names, nil
}

// resolveAuthorities keeps the requested names that exist, preserving order
// and dropping duplicates. A nil request resolves to nil.
func (s *UserService) resolveAuthorities(ctx context.Context, requested []string) ([]string, error) {
	if requested == nil {
		return nil, nil
	}
	known, err := s.authorities.List(ctx)
	if err != nil {
		return nil, err
	}
	resolved := []string{}
	seen := map[string]bool{}
	for _, name := range requested {
		if seen[name] || !domain.HasAuthority(known, name) {
			continue
		}
		seen[name] = true
		resolved = append(resolved, name)
	}
	return resolved, nil
}

func (s *UserService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	// Handlers log their own failures; a notification problem never fails the write.
	_ = dispatcher.Publish(ctx, event)
}

// mapWriteError turns store uniqueness violations into the client codes.
func mapWriteError(err error) error {
	field, ok := repository.DuplicateField(err)
	if !ok {
		return apperrors.NewInternalError(err)
	}
	switch field {
	case repository.FieldUsername:
		return apperrors.NewUserExists()
	case repository.FieldEmail:
		return apperrors.NewEmailExists()
	case repository.FieldID:
		return apperrors.NewIDExists()
	default:
		return apperrors.NewInternalError(err)
	}
}

func mapReadError(err error, resource, key string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"key": key})
	}
	return apperrors.NewInternalError(err)
}
