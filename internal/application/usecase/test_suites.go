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

type CreateTestSuiteCommand struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TestCases   []string `json:"testCases,omitempty"`
	CreatedBy   string   `json:"createdBy"`
}

type UpdateTestSuiteCommand struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	TestCases   *[]string `json:"testCases,omitempty"`
	Status      *string   `json:"status,omitempty"`
	UpdatedBy   string    `json:"updatedBy"`
}

// TestResultInput - результат одного тест-кейса в прогоне набора
type TestResultInput struct {
	Status       string `json:"status"`
	ActualResult string `json:"actualResult"`
}

// ExecuteTestSuiteCommand - результаты по id тест-кейса; кейсы вне набора игнорируются
type ExecuteTestSuiteCommand struct {
	UserID      string                     `json:"userId"`
	TestResults map[string]TestResultInput `json:"testResults"`
}

type TestSuiteUseCase struct {
	suites    *repository.Collection[entity.TestSuite]
	testCases *TestCaseUseCase
	activity  *ActivityLogger
	now       func() time.Time
	logger    *logger.Logger
}

func NewTestSuiteUseCase(
	store repository.Store,
	testCases *TestCaseUseCase,
	activity *ActivityLogger,
	logger *logger.Logger,
) *TestSuiteUseCase {
	return &TestSuiteUseCase{
		suites:    repository.NewCollection[entity.TestSuite](store, repository.CollectionTestSuites),
		testCases: testCases,
		activity:  activity,
		now:       time.Now,
		logger:    logger,
	}
}

// List возвращает наборы со статистикой, новые первыми
func (uc *TestSuiteUseCase) List(ctx context.Context) ([]dto.TestSuiteStatsDTO, error) {
	suites, err := uc.suites.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list test suites: %w", err)
	}
	service.SortByTime(suites, func(s *entity.TestSuite) time.Time { return s.CreatedAt }, true)

	result := make([]dto.TestSuiteStatsDTO, 0, len(suites))
	for _, suite := range suites {
		stats, err := uc.withStats(ctx, suite)
		if err != nil {
			return nil, err
		}
		result = append(result, stats)
	}
	return result, nil
}

func (uc *TestSuiteUseCase) Get(ctx context.Context, id string) (dto.TestSuiteStatsDTO, error) {
	suite, err := uc.get(ctx, id)
	if err != nil {
		return dto.TestSuiteStatsDTO{}, err
	}
	return uc.withStats(ctx, suite)
}

func (uc *TestSuiteUseCase) Create(ctx context.Context, cmd CreateTestSuiteCommand) (*entity.TestSuite, error) {
	if strings.TrimSpace(cmd.Name) == "" || strings.TrimSpace(cmd.Description) == "" || strings.TrimSpace(cmd.CreatedBy) == "" {
		return nil, apperror.Validation("Missing required fields")
	}

	suite := entity.NewTestSuite(cmd.Name, cmd.Description, cmd.TestCases, cmd.CreatedBy, uc.now())
	if err := uc.suites.Put(ctx, suite.ID, suite); err != nil {
		return nil, fmt.Errorf("failed to save test suite: %w", err)
	}

	uc.activity.Record(ctx, cmd.CreatedBy, "test_suite_created", entity.EntityTestSuite, suite.ID, map[string]interface{}{
		"name":          suite.Name,
		"testCaseCount": len(suite.TestCases),
	})

	return suite, nil
}

func (uc *TestSuiteUseCase) Update(ctx context.Context, id string, cmd UpdateTestSuiteCommand) (*entity.TestSuite, error) {
	if strings.TrimSpace(cmd.UpdatedBy) == "" {
		return nil, apperror.Validation("updatedBy is required")
	}

	suite, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if cmd.Name != nil {
		if strings.TrimSpace(*cmd.Name) == "" {
			return nil, apperror.Validation("Name cannot be empty")
		}
		suite.Name = *cmd.Name
	}
	if cmd.Description != nil {
		suite.Description = *cmd.Description
	}
	if cmd.TestCases != nil {
		suite.TestCases = *cmd.TestCases
	}
	if cmd.Status != nil {
		status := valueobject.SuiteStatus(*cmd.Status)
		if err := status.Validate(); err != nil {
			return nil, apperror.Validation("Invalid status: %s", *cmd.Status)
		}
		suite.Status = status
	}
	suite.UpdatedAt = uc.now()

	if err := uc.suites.Put(ctx, suite.ID, suite); err != nil {
		return nil, fmt.Errorf("failed to save test suite: %w", err)
	}

	uc.activity.Record(ctx, cmd.UpdatedBy, "test_suite_updated", entity.EntityTestSuite, suite.ID, nil)
	return suite, nil
}

func (uc *TestSuiteUseCase) Delete(ctx context.Context, id, deletedBy string) error {
	if strings.TrimSpace(deletedBy) == "" {
		return apperror.Validation("deletedBy is required")
	}

	if err := uc.suites.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Test suite with id %s not found", id)
		}
		return fmt.Errorf("failed to delete test suite: %w", err)
	}

	uc.activity.Record(ctx, deletedBy, "test_suite_deleted", entity.EntityTestSuite, id, nil)
	return nil
}

// Execute прогоняет тест-кейсы набора по переданным результатам
// и сохраняет время прогона и pass rate
func (uc *TestSuiteUseCase) Execute(ctx context.Context, id string, cmd ExecuteTestSuiteCommand) (*entity.TestSuite, dto.SuiteExecutionDTO, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return nil, dto.SuiteExecutionDTO{}, apperror.Validation("userId is required")
	}

	suite, err := uc.get(ctx, id)
	if err != nil {
		return nil, dto.SuiteExecutionDTO{}, err
	}

	// Статусы проверяем до первой записи, чтобы не получить частичный прогон
	for caseID, result := range cmd.TestResults {
		if !valueobject.TestCaseStatus(result.Status).IsExecution() {
			return nil, dto.SuiteExecutionDTO{}, apperror.Validation("Invalid execution status for test case %s: %s", caseID, result.Status)
		}
	}

	executed, passed := 0, 0
	for _, caseID := range suite.TestCases {
		result, ok := cmd.TestResults[caseID]
		if !ok {
			continue
		}

		testCase, err := uc.testCases.Execute(ctx, caseID, ExecuteTestCaseCommand{
			ActualResult: result.ActualResult,
			Status:       result.Status,
			ExecutedBy:   cmd.UserID,
		})
		if err != nil {
			if apperror.Is(err, apperror.KindNotFound) {
				uc.logger.Warn("Skipping missing test case in suite", "suite_id", id, "test_case_id", caseID)
				continue
			}
			return nil, dto.SuiteExecutionDTO{}, err
		}

		executed++
		if testCase.Status == valueobject.TestCasePassed {
			passed++
		}
	}

	now := uc.now()
	passRate := service.PassRate(passed, executed)
	suite.LastExecuted = &now
	suite.PassRate = &passRate
	suite.UpdatedAt = now

	if err := uc.suites.Put(ctx, suite.ID, suite); err != nil {
		return nil, dto.SuiteExecutionDTO{}, fmt.Errorf("failed to save test suite: %w", err)
	}

	summary := dto.SuiteExecutionDTO{
		TotalTests:    len(suite.TestCases),
		ExecutedTests: executed,
		PassedTests:   passed,
		FailedTests:   executed - passed,
		PassRate:      passRate,
	}

	uc.activity.Record(ctx, cmd.UserID, "test_suite_executed", entity.EntityTestSuite, id, map[string]interface{}{
		"testCaseCount": summary.TotalTests,
		"executedCount": summary.ExecutedTests,
		"passedCount":   summary.PassedTests,
		"passRate":      summary.PassRate,
	})

	return suite, summary, nil
}

func (uc *TestSuiteUseCase) get(ctx context.Context, id string) (*entity.TestSuite, error) {
	suite, err := uc.suites.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Test suite with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get test suite: %w", err)
	}
	return suite, nil
}

// withStats считает статистику по текущему состоянию тест-кейсов;
// удаленные кейсы не учитываются
func (uc *TestSuiteUseCase) withStats(ctx context.Context, suite *entity.TestSuite) (dto.TestSuiteStatsDTO, error) {
	total, executed, passed := 0, 0, 0
	for _, caseID := range suite.TestCases {
		testCase, err := uc.testCases.Get(ctx, caseID)
		if err != nil {
			if apperror.Is(err, apperror.KindNotFound) {
				continue
			}
			return dto.TestSuiteStatsDTO{}, err
		}

		total++
		if testCase.IsExecuted() {
			executed++
			if testCase.Status == valueobject.TestCasePassed {
				passed++
			}
		}
	}

	return dto.TestSuiteStatsDTO{
		TestSuite:         suite,
		PassRate:          service.PassRate(passed, executed),
		TotalTestCases:    total,
		ExecutedTestCases: executed,
		PassedTestCases:   passed,
	}, nil
}
