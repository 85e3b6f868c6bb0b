package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/qtrack/internal/application/usecase"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// CommentHandler - комментарии к тикетам
type CommentHandler struct {
	comments *usecase.CommentUseCase
	logger   *logger.Logger
}

func NewCommentHandler(comments *usecase.CommentUseCase, logger *logger.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// ListAll - GET /api/comments, опционально ?ticketId=
func (h *CommentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	if ticketID := r.URL.Query().Get("ticketId"); ticketID != "" {
		h.list(w, r, ticketID)
		return
	}

	comments, err := h.comments.ListAll(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// ListByTicket - GET /api/tickets/{id}/comments
func (h *CommentHandler) ListByTicket(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "id"))
}

func (h *CommentHandler) list(w http.ResponseWriter, r *http.Request, ticketID string) {
	comments, err := h.comments.ListByTicket(r.Context(), ticketID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// Create - POST /api/tickets/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd usecase.CreateCommentCommand
	if !decodeOrReject(w, r, &cmd) {
		return
	}
	cmd.TicketID = chi.URLParam(r, "id")
	cmd.UserID = actorOrHeader(r, cmd.UserID)

	comment, err := h.comments.Create(r.Context(), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"comment": comment})
}

// Update - PUT /api/comments/{id}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var cmd usecase.UpdateCommentCommand
	if !decodeOrReject(w, r, &cmd) {
		return
	}
	cmd.UpdatedBy = actorOrHeader(r, cmd.UpdatedBy)

	comment, err := h.comments.Update(r.Context(), chi.URLParam(r, "id"), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"comment": comment})
}

// Delete - DELETE /api/comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDelete(w, r)
	if !ok {
		return
	}

	if err := h.comments.Delete(r.Context(), chi.URLParam(r, "id"), req.DeletedBy); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
}
