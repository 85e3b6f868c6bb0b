package usecase

import (
	"context"
	"testing"

	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		cmd      CreateUserCommand
		wantKind apperror.Kind
	}{
		{name: "missing email", cmd: CreateUserCommand{Name: "A", Role: "QA"}, wantKind: apperror.KindValidation},
		{name: "bad email", cmd: CreateUserCommand{Email: "not-an-email", Name: "A", Role: "QA"}, wantKind: apperror.KindValidation},
		{name: "missing name", cmd: CreateUserCommand{Email: "a@example.com", Role: "QA"}, wantKind: apperror.KindValidation},
		{name: "unknown role", cmd: CreateUserCommand{Email: "a@example.com", Name: "A", Role: "agent"}, wantKind: apperror.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			if _, err := env.users.Create(context.Background(), tt.cmd, "admin"); !apperror.Is(err, tt.wantKind) {
				t.Fatalf("expected %s error, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	user, err := env.users.Create(ctx, CreateUserCommand{Email: "qa@example.com", Name: "Quinn", Role: "qa"}, "admin")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.Role != valueobject.RoleQA || !user.IsActive {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := env.users.Create(ctx, CreateUserCommand{Email: "QA@example.com", Name: "Other", Role: "DEV"}, "admin"); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	other, _ := env.users.Create(ctx, CreateUserCommand{Email: "dev@example.com", Name: "Dana", Role: "DEV"}, "admin")
	if _, err := env.users.Update(ctx, other.ID, UpdateUserCommand{Email: strPtr("qa@example.com")}, "admin"); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict on update, got %v", err)
	}

	// Свой собственный email не конфликтует
	if _, err := env.users.Update(ctx, user.ID, UpdateUserCommand{Email: strPtr("qa@example.com"), Name: strPtr("Quinn Q")}, "admin"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestListUsersAndActivation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	zed, _ := env.users.Create(ctx, CreateUserCommand{Email: "z@example.com", Name: "Zed", Role: "USER"}, "")
	env.users.Create(ctx, CreateUserCommand{Email: "a@example.com", Name: "amy", Role: "ADMIN"}, "")
	env.users.Create(ctx, CreateUserCommand{Email: "m@example.com", Name: "Mo", Role: "USER"}, "")

	all, _ := env.users.List(ctx, UserFilter{})
	if len(all) != 3 || all[0].Name != "amy" || all[2].Name != "Zed" {
		t.Fatalf("expected users sorted by name, got %v", []string{all[0].Name, all[1].Name, all[2].Name})
	}

	if _, err := env.users.Deactivate(ctx, zed.ID, "admin"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	active, _ := env.users.List(ctx, UserFilter{Role: "USER", IsActive: boolPtr(true)})
	if len(active) != 1 || active[0].Name != "Mo" {
		t.Fatalf("expected only Mo as active USER, got %d", len(active))
	}

	if _, err := env.users.Authenticate(ctx, zed.ID); !apperror.Is(err, apperror.KindUnauthorized) {
		t.Fatalf("deactivated user must not authenticate, got %v", err)
	}

	if _, err := env.users.Activate(ctx, zed.ID, "admin"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if _, err := env.users.Authenticate(ctx, zed.ID); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if _, err := env.users.Authenticate(ctx, "ghost"); !apperror.Is(err, apperror.KindUnauthorized) {
		t.Fatalf("unknown user must be unauthorized, got %v", err)
	}
}
