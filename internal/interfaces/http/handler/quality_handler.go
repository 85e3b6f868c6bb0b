package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/application/usecase"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/qualityrunner"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// QualityRunner - то, что handler знает о фоновом цикле
type QualityRunner interface {
	Snapshot() qualityrunner.Snapshot
	RunOnce(ctx context.Context) (*qualityrunner.CycleSummary, error)
}

// QualityHandler обслуживает /api/quality: gates, снимки метрик и состояние runner
type QualityHandler struct {
	gates   *usecase.QualityGatesUseCase
	history *usecase.MetricsHistoryUseCase
	runner  QualityRunner
	logger  *logger.Logger
}

func NewQualityHandler(
	gates *usecase.QualityGatesUseCase,
	history *usecase.MetricsHistoryUseCase,
	runner QualityRunner,
	logger *logger.Logger,
) *QualityHandler {
	return &QualityHandler{
		gates:   gates,
		history: history,
		runner:  runner,
		logger:  logger,
	}
}

// GetGates - GET /api/quality/gates
func (h *QualityHandler) GetGates(w http.ResponseWriter, r *http.Request) {
	report, err := h.gates.GetReport(r.Context())
	if err != nil {
		h.logger.Error("Failed to fetch quality gates", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to fetch quality gates")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// compatUpdateRequest - тело PUT /api/quality/gates
type compatUpdateRequest struct {
	GateID  string          `json:"gateId"`
	Updates json.RawMessage `json:"updates"`
}

// UpdateGateCompat - PUT /api/quality/gates {gateId, updates}.
// Неизвестный gateId молча игнорируется.
func (h *QualityHandler) UpdateGateCompat(w http.ResponseWriter, r *http.Request) {
	const required = "Gate ID and updates are required"

	var req compatUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, required)
		return
	}

	raw := strings.TrimSpace(string(req.Updates))
	if req.GateID == "" || raw == "" || raw == "null" {
		writeMessage(w, http.StatusBadRequest, required)
		return
	}

	var update dto.GateUpdateDTO
	if err := json.Unmarshal(req.Updates, &update); err != nil {
		writeMessage(w, http.StatusBadRequest, required)
		return
	}

	if err := h.gates.UpdateGate(r.Context(), req.GateID, update, false); err != nil {
		if apperror.Is(err, apperror.KindValidation) {
			writeError(w, r, h.logger, err)
			return
		}
		h.logger.Error("Failed to update quality gate", err, "gate_id", req.GateID)
		writeMessage(w, http.StatusInternalServerError, "Failed to update quality gate")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetGate - GET /api/quality/gates/{id}
func (h *QualityHandler) GetGate(w http.ResponseWriter, r *http.Request) {
	gate, err := h.gates.GetGate(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"gate": gate})
}

// UpdateGate - PUT /api/quality/gates/{id}; неизвестный id дает 404
func (h *QualityHandler) UpdateGate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update dto.GateUpdateDTO
	if !decodeOrReject(w, r, &update) {
		return
	}

	if err := h.gates.UpdateGate(r.Context(), id, update, true); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	gate, err := h.gates.GetGate(id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"gate": gate})
}

// LatestMetrics - GET /api/quality/metrics
func (h *QualityHandler) LatestMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.history.Latest(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// MetricsHistory - GET /api/quality/metrics/history?limit=N
func (h *QualityHandler) MetricsHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, r, h.logger, apperror.Validation("Invalid limit parameter"))
			return
		}
		limit = parsed
	}

	writeJSON(w, http.StatusOK, h.history.History(r.Context(), limit))
}

// RecordMetrics - POST /api/quality/metrics, снимок от внешнего источника (CI)
func (h *QualityHandler) RecordMetrics(w http.ResponseWriter, r *http.Request) {
	var snapshot dto.MetricsSnapshotDTO
	if !decodeOrReject(w, r, &snapshot) {
		return
	}

	recorded, err := h.history.Record(r.Context(), &snapshot)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"metrics": recorded,
		"report":  h.gates.Evaluate(recorded.ToEntity()),
	})
}

// RunnerStatus - GET /api/quality/runner
func (h *QualityHandler) RunnerStatus(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Quality runner is not running")
		return
	}
	writeJSON(w, http.StatusOK, h.runner.Snapshot())
}

// RunNow - POST /api/quality/runner/run, внеочередной цикл
func (h *QualityHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Quality runner is not running")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), qualityrunner.DefaultCycleTimeout+5*time.Second)
	defer cancel()

	summary, err := h.runner.RunOnce(ctx)
	if err != nil {
		h.logger.Error("Manual quality cycle failed", err)
		writeMessage(w, http.StatusInternalServerError, "Quality cycle failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
