package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/qtrack/internal/application/usecase"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/pkg/logger"
)

type TestSuiteHandler struct {
	suites *usecase.TestSuiteUseCase
	logger *logger.Logger
}

func NewTestSuiteHandler(suites *usecase.TestSuiteUseCase, logger *logger.Logger) *TestSuiteHandler {
	return &TestSuiteHandler{suites: suites, logger: logger}
}

// List - GET /api/test-suites, наборы со статистикой прогона
func (h *TestSuiteHandler) List(w http.ResponseWriter, r *http.Request) {
	suites, err := h.suites.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"testSuites": suites})
}

func (h *TestSuiteHandler) Get(w http.ResponseWriter, r *http.Request) {
	suite, err := h.suites.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"testSuite": suite})
}

func (h *TestSuiteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd usecase.CreateTestSuiteCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		writeError(w, r, h.logger, apperror.Validation("Missing required fields"))
		return
	}
	cmd.CreatedBy = actorOrHeader(r, cmd.CreatedBy)

	suite, err := h.suites.Create(r.Context(), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"testSuite": suite})
}

func (h *TestSuiteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var cmd usecase.UpdateTestSuiteCommand
	if !decodeOrReject(w, r, &cmd) {
		return
	}
	cmd.UpdatedBy = actorOrHeader(r, cmd.UpdatedBy)

	suite, err := h.suites.Update(r.Context(), chi.URLParam(r, "id"), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"testSuite": suite})
}

func (h *TestSuiteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDelete(w, r)
	if !ok {
		return
	}

	if err := h.suites.Delete(r.Context(), chi.URLParam(r, "id"), req.DeletedBy); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Test suite deleted successfully"})
}

// Execute - POST /api/test-suites/{id}/execute {userId, testResults: {caseId: {status, actualResult}}}
func (h *TestSuiteHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var cmd usecase.ExecuteTestSuiteCommand
	if !decodeOrReject(w, r, &cmd) {
		return
	}
	cmd.UserID = actorOrHeader(r, cmd.UserID)

	suite, results, err := h.suites.Execute(r.Context(), chi.URLParam(r, "id"), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"testSuite":        suite,
		"executionResults": results,
	})
}
