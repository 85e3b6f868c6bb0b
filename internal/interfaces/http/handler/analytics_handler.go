package handler

import (
	"net/http"

	"github.com/dreschagin/qtrack/internal/application/usecase"
	"github.com/dreschagin/qtrack/pkg/logger"
)

type AnalyticsHandler struct {
	analytics *usecase.AnalyticsUseCase
	logger    *logger.Logger
}

func NewAnalyticsHandler(analytics *usecase.AnalyticsUseCase, logger *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// Get - GET /api/analytics?period=7d|30d|90d; неизвестный период считается 7d
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.analytics.Get(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}
