package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/qtrack/internal/application/usecase"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/interfaces/http/middleware"
	"github.com/dreschagin/qtrack/pkg/logger"
)

type UserHandler struct {
	users  *usecase.UserUseCase
	logger *logger.Logger
}

func NewUserHandler(users *usecase.UserUseCase, logger *logger.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type createUserRequest struct {
	usecase.CreateUserCommand
	CreatedBy string `json:"createdBy"`
}

type updateUserRequest struct {
	usecase.UpdateUserCommand
	UpdatedBy string `json:"updatedBy"`
}

type userActionRequest struct {
	UpdatedBy string `json:"updatedBy"`
}

// List - GET /api/users?role=&isActive=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	isActive, err := queryBool(r, "isActive")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	users, err := h.users.List(r.Context(), usecase.UserFilter{
		Role:     r.URL.Query().Get("role"),
		IsActive: isActive,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Me - GET /api/users/me, пользователь из X-User-ID с правами роли
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":        user,
		"permissions": user.Permissions(),
	})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	user, err := h.users.Create(r.Context(), req.CreateUserCommand, actorOrHeader(r, req.CreatedBy))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	user, err := h.users.Update(r.Context(), chi.URLParam(r, "id"), req.UpdateUserCommand, actorOrHeader(r, req.UpdatedBy))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Activate - POST /api/users/{id}/activate
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.users.Activate)
}

// Deactivate - POST /api/users/{id}/deactivate
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.users.Deactivate)
}

type userToggle func(ctx context.Context, id, actorID string) (*entity.User, error)

func (h *UserHandler) toggle(w http.ResponseWriter, r *http.Request, action userToggle) {
	var req userActionRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := action(r.Context(), chi.URLParam(r, "id"), actorOrHeader(r, req.UpdatedBy))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
