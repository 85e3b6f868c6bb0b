package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/repository"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// maxLoggedResult - сколько символов фактического результата попадает в журнал
const maxLoggedResult = 100

type CreateTestCaseCommand struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expectedResult"`
	Priority       string   `json:"priority"`
	AssignedTo     string   `json:"assignedTo,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	LinkedTickets  []string `json:"linkedTickets,omitempty"`
	CreatedBy      string   `json:"createdBy"`
}

type UpdateTestCaseCommand struct {
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Steps          *[]string `json:"steps,omitempty"`
	ExpectedResult *string   `json:"expectedResult,omitempty"`
	ActualResult   *string   `json:"actualResult,omitempty"`
	Status         *string   `json:"status,omitempty"`
	Priority       *string   `json:"priority,omitempty"`
	AssignedTo     *string   `json:"assignedTo,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	LinkedTickets  *[]string `json:"linkedTickets,omitempty"`
	UpdatedBy      string    `json:"updatedBy"`
}

type ExecuteTestCaseCommand struct {
	ActualResult string `json:"actualResult"`
	Status       string `json:"status"`
	ExecutedBy   string `json:"executedBy"`
}

type TestCaseFilter struct {
	Status       string
	Priority     string
	AssignedTo   string
	LinkedTicket string
}

type TestCaseUseCase struct {
	testCases *repository.Collection[entity.TestCase]
	activity  *ActivityLogger
	events    *EventDispatcher
	now       func() time.Time
	logger    *logger.Logger
}

func NewTestCaseUseCase(
	store repository.Store,
	activity *ActivityLogger,
	events *EventDispatcher,
	logger *logger.Logger,
) *TestCaseUseCase {
	return &TestCaseUseCase{
		testCases: repository.NewCollection[entity.TestCase](store, repository.CollectionTestCases),
		activity:  activity,
		events:    events,
		now:       time.Now,
		logger:    logger,
	}
}

// List возвращает тест-кейсы, недавно измененные первыми
func (uc *TestCaseUseCase) List(ctx context.Context, filter TestCaseFilter) ([]*entity.TestCase, error) {
	testCases, err := uc.testCases.List(ctx, func(tc *entity.TestCase) bool {
		if filter.Status != "" && string(tc.Status) != filter.Status {
			return false
		}
		if filter.Priority != "" && string(tc.Priority) != filter.Priority {
			return false
		}
		if filter.AssignedTo != "" && tc.AssignedTo != filter.AssignedTo {
			return false
		}
		if filter.LinkedTicket != "" && !tc.LinkedTo(filter.LinkedTicket) {
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}

	service.SortByTime(testCases, func(tc *entity.TestCase) time.Time { return tc.UpdatedAt }, true)
	return testCases, nil
}

func (uc *TestCaseUseCase) Get(ctx context.Context, id string) (*entity.TestCase, error) {
	testCase, err := uc.testCases.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Test case with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get test case: %w", err)
	}
	return testCase, nil
}

func (uc *TestCaseUseCase) Create(ctx context.Context, cmd CreateTestCaseCommand) (*entity.TestCase, error) {
	switch {
	case strings.TrimSpace(cmd.Title) == "":
		return nil, apperror.Validation("Title is required")
	case strings.TrimSpace(cmd.Description) == "":
		return nil, apperror.Validation("Description is required")
	case len(cmd.Steps) == 0:
		return nil, apperror.Validation("Test steps are required")
	case strings.TrimSpace(cmd.ExpectedResult) == "":
		return nil, apperror.Validation("Expected result is required")
	case cmd.Priority == "":
		return nil, apperror.Validation("Priority is required")
	case strings.TrimSpace(cmd.CreatedBy) == "":
		return nil, apperror.Validation("createdBy is required")
	}

	priority := valueobject.Priority(cmd.Priority)
	if err := priority.Validate(); err != nil {
		return nil, apperror.Validation("Invalid priority: %s", cmd.Priority)
	}

	testCase := entity.NewTestCase(cmd.Title, cmd.Description, cmd.Steps, cmd.ExpectedResult, priority, cmd.CreatedBy, uc.now())
	testCase.AssignedTo = cmd.AssignedTo
	if cmd.Tags != nil {
		testCase.Tags = cmd.Tags
	}
	if cmd.LinkedTickets != nil {
		testCase.LinkedTickets = cmd.LinkedTickets
	}

	if err := uc.testCases.Put(ctx, testCase.ID, testCase); err != nil {
		return nil, fmt.Errorf("failed to save test case: %w", err)
	}

	uc.activity.Record(ctx, cmd.CreatedBy, "test_case_created", entity.EntityTestCase, testCase.ID, map[string]interface{}{
		"title":         testCase.Title,
		"priority":      testCase.Priority,
		"linkedTickets": testCase.LinkedTickets,
	})

	return testCase, nil
}

func (uc *TestCaseUseCase) Update(ctx context.Context, id string, cmd UpdateTestCaseCommand) (*entity.TestCase, error) {
	if strings.TrimSpace(cmd.UpdatedBy) == "" {
		return nil, apperror.Validation("updatedBy is required")
	}

	testCase, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previousStatus := testCase.Status
	now := uc.now()

	if cmd.Title != nil {
		if strings.TrimSpace(*cmd.Title) == "" {
			return nil, apperror.Validation("Title cannot be empty")
		}
		testCase.Title = *cmd.Title
	}
	if cmd.Description != nil {
		testCase.Description = *cmd.Description
	}
	if cmd.Steps != nil {
		if len(*cmd.Steps) == 0 {
			return nil, apperror.Validation("Test steps are required")
		}
		testCase.Steps = *cmd.Steps
	}
	if cmd.ExpectedResult != nil {
		testCase.ExpectedResult = *cmd.ExpectedResult
	}
	if cmd.ActualResult != nil {
		testCase.ActualResult = *cmd.ActualResult
	}
	if cmd.Priority != nil {
		priority := valueobject.Priority(*cmd.Priority)
		if err := priority.Validate(); err != nil {
			return nil, apperror.Validation("Invalid priority: %s", *cmd.Priority)
		}
		testCase.Priority = priority
	}
	if cmd.AssignedTo != nil {
		testCase.AssignedTo = *cmd.AssignedTo
	}
	if cmd.Tags != nil {
		testCase.Tags = *cmd.Tags
	}
	if cmd.LinkedTickets != nil {
		testCase.LinkedTickets = *cmd.LinkedTickets
	}
	if cmd.Status != nil {
		status := valueobject.TestCaseStatus(*cmd.Status)
		if err := status.Validate(); err != nil {
			return nil, apperror.Validation("Invalid status: %s", *cmd.Status)
		}
		testCase.Status = status
		if status.IsExecution() {
			executedAt := now
			testCase.ExecutedAt = &executedAt
		}
	}
	testCase.UpdatedAt = now

	if err := uc.testCases.Put(ctx, testCase.ID, testCase); err != nil {
		return nil, fmt.Errorf("failed to save test case: %w", err)
	}

	if testCase.Status != previousStatus {
		uc.activity.Record(ctx, cmd.UpdatedBy, "test_case_status_changed", entity.EntityTestCase, id, map[string]interface{}{
			"from": previousStatus,
			"to":   testCase.Status,
		})
	}

	return testCase, nil
}

// Execute фиксирует результат прогона тест-кейса
func (uc *TestCaseUseCase) Execute(ctx context.Context, id string, cmd ExecuteTestCaseCommand) (*entity.TestCase, error) {
	status := valueobject.TestCaseStatus(cmd.Status)
	if !status.IsExecution() {
		return nil, apperror.Validation("Invalid execution status: %s", cmd.Status)
	}
	if strings.TrimSpace(cmd.ExecutedBy) == "" {
		return nil, apperror.Validation("executedBy is required")
	}

	testCase, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	testCase.ActualResult = cmd.ActualResult
	testCase.Status = status
	testCase.ExecutedAt = &now
	testCase.UpdatedAt = now

	if err := uc.testCases.Put(ctx, testCase.ID, testCase); err != nil {
		return nil, fmt.Errorf("failed to save test case: %w", err)
	}

	uc.activity.Record(ctx, cmd.ExecutedBy, "test_case_executed", entity.EntityTestCase, id, map[string]interface{}{
		"status":       status,
		"actualResult": truncateRunes(cmd.ActualResult, maxLoggedResult),
	})
	uc.events.Dispatch(ctx, dto.NewEventDTO(dto.EventTestCaseExecuted, dto.TopicQuality, testCase))

	return testCase, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
