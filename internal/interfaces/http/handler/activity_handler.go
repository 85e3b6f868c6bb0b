package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dreschagin/qtrack/internal/application/usecase"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// ActivityHandler отдает журнал действий
type ActivityHandler struct {
	activity *usecase.ActivityLogger
	logger   *logger.Logger
}

func NewActivityHandler(activity *usecase.ActivityLogger, logger *logger.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, logger: logger}
}

// List - GET /api/activity?userId=&entityType=&entityId=&limit=
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, r, h.logger, apperror.Validation("Invalid limit parameter"))
			return
		}
		limit = parsed
	}

	entries, err := h.activity.List(r.Context(), usecase.ActivityFilter{
		UserID:     q.Get("userId"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	total := len(entries)
	if limit > 0 && limit < total {
		entries = entries[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activities": entries,
		"total":      total,
	})
}
