package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

type User struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	Name             string           `json:"name"`
	Role             valueobject.Role `json:"role"`
	Avatar           string           `json:"avatar,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	IsActive         bool             `json:"isActive"`
	LastLogin        *time.Time       `json:"lastLogin,omitempty"`
	Department       string           `json:"department,omitempty"`
	TwoFactorEnabled bool             `json:"twoFactorEnabled"`
}

func NewUser(email, name string, role valueobject.Role, now time.Time) *User {
	return &User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
}

// Can проверяет право пользователя; неактивный пользователь не может ничего
func (u *User) Can(perm valueobject.Permission) bool {
	return u.IsActive && u.Role.Has(perm)
}

// Permissions возвращает имена прав роли
func (u *User) Permissions() []string {
	return u.Role.Permissions().Names()
}
