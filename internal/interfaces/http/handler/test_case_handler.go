package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/qtrack/internal/application/usecase"
	"github.com/dreschagin/qtrack/pkg/logger"
)

type TestCaseHandler struct {
	testCases *usecase.TestCaseUseCase
	logger    *logger.Logger
}

func NewTestCaseHandler(testCases *usecase.TestCaseUseCase, logger *logger.Logger) *TestCaseHandler {
	return &TestCaseHandler{testCases: testCases, logger: logger}
}

// List - GET /api/test-cases?status=&priority=&assignedTo=&linkedTicket=
func (h *TestCaseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	testCases, err := h.testCases.List(r.Context(), usecase.TestCaseFilter{
		Status:       q.Get("status"),
		Priority:     q.Get("priority"),
		AssignedTo:   q.Get("assignedTo"),
		LinkedTicket: q.Get("linkedTicket"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"testCases": testCases,
		"total":     len(testCases),
	})
}

func (h *TestCaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	testCase, err := h.testCases.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"testCase": testCase})
}

func (h *TestCaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd usecase.CreateTestCaseCommand
	if !decodeOrReject(w, r, &cmd) {
		return
	}
	cmd.CreatedBy = actorOrHeader(r, cmd.CreatedBy)

	testCase, err := h.testCases.Create(r.Context(), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"testCase": testCase})
}

func (h *TestCaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var cmd usecase.UpdateTestCaseCommand
	if !decodeOrReject(w, r, &cmd) {
		return
	}
	cmd.UpdatedBy = actorOrHeader(r, cmd.UpdatedBy)

	testCase, err := h.testCases.Update(r.Context(), chi.URLParam(r, "id"), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"testCase": testCase})
}

// Execute - POST /api/test-cases/{id}/execute {status, actualResult, executedBy}
func (h *TestCaseHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var cmd usecase.ExecuteTestCaseCommand
	if !decodeOrReject(w, r, &cmd) {
		return
	}
	cmd.ExecutedBy = actorOrHeader(r, cmd.ExecutedBy)

	testCase, err := h.testCases.Execute(r.Context(), chi.URLParam(r, "id"), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"testCase": testCase})
}
