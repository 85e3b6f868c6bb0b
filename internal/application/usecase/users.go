package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/repository"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
	"github.com/dreschagin/qtrack/pkg/logger"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type CreateUserCommand struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Avatar     string `json:"avatar,omitempty"`
	Department string `json:"department,omitempty"`
}

type UpdateUserCommand struct {
	Email            *string `json:"email,omitempty"`
	Name             *string `json:"name,omitempty"`
	Role             *string `json:"role,omitempty"`
	Avatar           *string `json:"avatar,omitempty"`
	Department       *string `json:"department,omitempty"`
	IsActive         *bool   `json:"isActive,omitempty"`
	TwoFactorEnabled *bool   `json:"twoFactorEnabled,omitempty"`
}

type UserFilter struct {
	Role     string
	IsActive *bool
}

type UserUseCase struct {
	users    *repository.Collection[entity.User]
	activity *ActivityLogger
	now      func() time.Time
	logger   *logger.Logger
}

func NewUserUseCase(store repository.Store, activity *ActivityLogger, logger *logger.Logger) *UserUseCase {
	return &UserUseCase{
		users:    repository.NewCollection[entity.User](store, repository.CollectionUsers),
		activity: activity,
		now:      time.Now,
		logger:   logger,
	}
}

// List возвращает пользователей, отсортированных по имени
func (uc *UserUseCase) List(ctx context.Context, filter UserFilter) ([]*entity.User, error) {
	users, err := uc.users.List(ctx, func(u *entity.User) bool {
		if filter.Role != "" && !strings.EqualFold(string(u.Role), filter.Role) {
			return false
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
	return users, nil
}

func (uc *UserUseCase) Get(ctx context.Context, id string) (*entity.User, error) {
	user, err := uc.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("User with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Authenticate возвращает активного пользователя для middleware авторизации
func (uc *UserUseCase) Authenticate(ctx context.Context, id string) (*entity.User, error) {
	user, err := uc.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Unauthorized("Unknown user")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized("User is deactivated")
	}
	return user, nil
}

func (uc *UserUseCase) Create(ctx context.Context, cmd CreateUserCommand, actorID string) (*entity.User, error) {
	if strings.TrimSpace(cmd.Email) == "" {
		return nil, apperror.Validation("Email is required")
	}
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, apperror.Validation("Name is required")
	}
	if cmd.Role == "" {
		return nil, apperror.Validation("Role is required")
	}
	if !emailPattern.MatchString(cmd.Email) {
		return nil, apperror.Validation("Invalid email format")
	}
	role, err := valueobject.ParseRole(cmd.Role)
	if err != nil {
		return nil, apperror.Validation("Invalid role")
	}

	if err := uc.ensureEmailFree(ctx, cmd.Email, ""); err != nil {
		return nil, err
	}

	user := entity.NewUser(strings.TrimSpace(cmd.Email), strings.TrimSpace(cmd.Name), role, uc.now())
	user.Avatar = cmd.Avatar
	user.Department = cmd.Department

	if err := uc.users.Put(ctx, user.ID, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	uc.activity.Record(ctx, actorID, "user_created", entity.EntityUser, user.ID, map[string]interface{}{
		"role": user.Role,
	})
	uc.logger.Info("User created", "user_id", user.ID, "role", user.Role)

	return user, nil
}

func (uc *UserUseCase) Update(ctx context.Context, id string, cmd UpdateUserCommand, actorID string) (*entity.User, error) {
	user, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if cmd.Email != nil && !strings.EqualFold(*cmd.Email, user.Email) {
		if !emailPattern.MatchString(*cmd.Email) {
			return nil, apperror.Validation("Invalid email format")
		}
		if err := uc.ensureEmailFree(ctx, *cmd.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = strings.TrimSpace(*cmd.Email)
	}
	if cmd.Name != nil {
		if strings.TrimSpace(*cmd.Name) == "" {
			return nil, apperror.Validation("Name cannot be empty")
		}
		user.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Role != nil {
		role, err := valueobject.ParseRole(*cmd.Role)
		if err != nil {
			return nil, apperror.Validation("Invalid role")
		}
		user.Role = role
	}
	if cmd.Avatar != nil {
		user.Avatar = *cmd.Avatar
	}
	if cmd.Department != nil {
		user.Department = *cmd.Department
	}
	if cmd.IsActive != nil {
		user.IsActive = *cmd.IsActive
	}
	if cmd.TwoFactorEnabled != nil {
		user.TwoFactorEnabled = *cmd.TwoFactorEnabled
	}
	user.UpdatedAt = uc.now()

	if err := uc.users.Put(ctx, user.ID, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	uc.activity.Record(ctx, actorID, "user_updated", entity.EntityUser, user.ID, nil)
	return user, nil
}

func (uc *UserUseCase) Activate(ctx context.Context, id, actorID string) (*entity.User, error) {
	active := true
	return uc.Update(ctx, id, UpdateUserCommand{IsActive: &active}, actorID)
}

func (uc *UserUseCase) Deactivate(ctx context.Context, id, actorID string) (*entity.User, error) {
	active := false
	return uc.Update(ctx, id, UpdateUserCommand{IsActive: &active}, actorID)
}

// ensureEmailFree проверяет уникальность email без учета регистра
func (uc *UserUseCase) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	email = strings.TrimSpace(email)
	existing, err := uc.users.List(ctx, func(u *entity.User) bool {
		return u.ID != exceptID && strings.EqualFold(u.Email, email)
	})
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if len(existing) > 0 {
		return apperror.Conflict("User with this email already exists")
	}
	return nil
}
