package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/qtrack/internal/application/usecase"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// TicketHandler - CRUD тикетов
type TicketHandler struct {
	tickets *usecase.TicketUseCase
	logger  *logger.Logger
}

func NewTicketHandler(tickets *usecase.TicketUseCase, logger *logger.Logger) *TicketHandler {
	return &TicketHandler{tickets: tickets, logger: logger}
}

// List - GET /api/tickets?status=&priority=&category=&assignedTo=&search=
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tickets, err := h.tickets.List(r.Context(), usecase.TicketFilter{
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		Category:   q.Get("category"),
		AssignedTo: q.Get("assignedTo"),
		Search:     strings.TrimSpace(q.Get("search")),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tickets": tickets,
		"total":   len(tickets),
	})
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ticket": ticket})
}

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd usecase.CreateTicketCommand
	if !decodeOrReject(w, r, &cmd) {
		return
	}
	cmd.ReportedBy = actorOrHeader(r, cmd.ReportedBy)

	ticket, err := h.tickets.Create(r.Context(), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ticket": ticket})
}

func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	var cmd usecase.UpdateTicketCommand
	if !decodeOrReject(w, r, &cmd) {
		return
	}
	cmd.UpdatedBy = actorOrHeader(r, cmd.UpdatedBy)

	ticket, err := h.tickets.Update(r.Context(), chi.URLParam(r, "id"), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ticket": ticket})
}

type deleteRequest struct {
	DeletedBy string `json:"deletedBy"`
}

// Delete - DELETE /api/tickets/{id}; deletedBy передается в теле
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDelete(w, r)
	if !ok {
		return
	}

	if err := h.tickets.Delete(r.Context(), chi.URLParam(r, "id"), req.DeletedBy); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Ticket deleted successfully"})
}

// decodeDelete допускает пустое тело, если пользователь пришел в X-User-ID
func decodeDelete(w http.ResponseWriter, r *http.Request) (deleteRequest, bool) {
	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	req.DeletedBy = actorOrHeader(r, req.DeletedBy)
	return req, true
}
