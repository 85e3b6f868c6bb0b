package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

func createTestCase(t *testing.T, env *testEnv, title string) *entity.TestCase {
	t.Helper()

	tc, err := env.testCases.Create(context.Background(), CreateTestCaseCommand{
		Title:          title,
		Description:    "Check " + title,
		Steps:          []string{"open page", "submit form"},
		ExpectedResult: "form is accepted",
		Priority:       "medium",
		CreatedBy:      "qa-1",
	})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", title, err)
	}
	return tc
}

func TestCreateTestCaseValidation(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name string
		cmd  CreateTestCaseCommand
	}{
		{name: "no steps", cmd: CreateTestCaseCommand{Title: "t", Description: "d", ExpectedResult: "e", Priority: "low", CreatedBy: "qa"}},
		{name: "no expected result", cmd: CreateTestCaseCommand{Title: "t", Description: "d", Steps: []string{"s"}, Priority: "low", CreatedBy: "qa"}},
		{name: "invalid priority", cmd: CreateTestCaseCommand{Title: "t", Description: "d", Steps: []string{"s"}, ExpectedResult: "e", Priority: "p0", CreatedBy: "qa"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.testCases.Create(context.Background(), tt.cmd); !apperror.Is(err, apperror.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestExecuteTestCase(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tc := createTestCase(t, env, "login")

	if tc.Status != valueobject.TestCasePending {
		t.Fatalf("new test case must be pending, got %s", tc.Status)
	}

	if _, err := env.testCases.Execute(ctx, tc.ID, ExecuteTestCaseCommand{Status: "pending", ExecutedBy: "qa"}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("pending is not an execution status, got %v", err)
	}

	long := strings.Repeat("x", 150)
	executed, err := env.testCases.Execute(ctx, tc.ID, ExecuteTestCaseCommand{Status: "failed", ActualResult: long, ExecutedBy: "qa"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if executed.ExecutedAt == nil || executed.Status != valueobject.TestCaseFailed {
		t.Fatalf("unexpected execution result: %+v", executed)
	}

	logs, _ := env.activity.List(ctx, ActivityFilter{EntityType: string(entity.EntityTestCase), EntityID: tc.ID})
	var found bool
	for _, l := range logs {
		if l.Action == "test_case_executed" {
			found = true
			if got := l.Details["actualResult"].(string); len(got) != maxLoggedResult {
				t.Fatalf("expected truncated result of %d chars, got %d", maxLoggedResult, len(got))
			}
		}
	}
	if !found {
		t.Fatal("expected test_case_executed activity")
	}
}

func TestUpdateTestCaseStampsExecution(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tc := createTestCase(t, env, "search")

	updated, err := env.testCases.Update(ctx, tc.ID, UpdateTestCaseCommand{Status: strPtr("blocked"), UpdatedBy: "qa"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ExecutedAt == nil {
		t.Fatal("execution status must stamp executedAt")
	}

	retitled, _ := env.testCases.Update(ctx, "missing", UpdateTestCaseCommand{Title: strPtr("x"), UpdatedBy: "qa"})
	if retitled != nil {
		t.Fatal("expected nil for missing test case")
	}
}

func TestListTestCasesByLinkedTicket(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	createTestCase(t, env, "plain")
	linked, _ := env.testCases.Create(ctx, CreateTestCaseCommand{
		Title:          "linked",
		Description:    "d",
		Steps:          []string{"s"},
		ExpectedResult: "e",
		Priority:       "high",
		LinkedTickets:  []string{"ticket-7"},
		CreatedBy:      "qa",
	})

	got, err := env.testCases.List(ctx, TestCaseFilter{LinkedTicket: "ticket-7"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != linked.ID {
		t.Fatalf("expected only the linked test case, got %d", len(got))
	}
}

func TestExecuteTestSuite(t *testing.T) {
	env := newTestEnv()
	clock := newSteppingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	env.useClock(clock.Now)
	ctx := context.Background()

	a := createTestCase(t, env, "a")
	b := createTestCase(t, env, "b")
	c := createTestCase(t, env, "c")

	suite, err := env.suites.Create(ctx, CreateTestSuiteCommand{
		Name:        "smoke",
		Description: "smoke tests",
		TestCases:   []string{a.ID, b.ID, c.ID, "deleted-case"},
		CreatedBy:   "qa",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if suite.Status != valueobject.SuiteDraft {
		t.Fatalf("new suite must be draft, got %s", suite.Status)
	}

	if _, _, err := env.suites.Execute(ctx, suite.ID, ExecuteTestSuiteCommand{
		UserID:      "qa",
		TestResults: map[string]TestResultInput{a.ID: {Status: "skipped"}},
	}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}

	executed, summary, err := env.suites.Execute(ctx, suite.ID, ExecuteTestSuiteCommand{
		UserID: "qa",
		TestResults: map[string]TestResultInput{
			a.ID:           {Status: "passed", ActualResult: "ok"},
			b.ID:           {Status: "passed", ActualResult: "ok"},
			c.ID:           {Status: "failed", ActualResult: "500"},
			"deleted-case": {Status: "passed"},
			"other-suite":  {Status: "passed"},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if summary.TotalTests != 4 || summary.ExecutedTests != 3 || summary.PassedTests != 2 || summary.FailedTests != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.PassRate != 66.67 {
		t.Fatalf("expected pass rate 66.67, got %v", summary.PassRate)
	}
	if executed.LastExecuted == nil || executed.PassRate == nil || *executed.PassRate != 66.67 {
		t.Fatalf("suite must store execution time and pass rate: %+v", executed)
	}

	stats, err := env.suites.Get(ctx, suite.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stats.TotalTestCases != 3 || stats.ExecutedTestCases != 3 || stats.PassedTestCases != 2 || stats.PassRate != 66.67 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	list, _ := env.suites.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected one suite, got %d", len(list))
	}
}

func TestTestSuiteCRUD(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.suites.Create(ctx, CreateTestSuiteCommand{Name: "x"}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	suite, _ := env.suites.Create(ctx, CreateTestSuiteCommand{Name: "regression", Description: "full", CreatedBy: "qa"})

	updated, err := env.suites.Update(ctx, suite.ID, UpdateTestSuiteCommand{Status: strPtr("active"), UpdatedBy: "qa"})
	if err != nil || updated.Status != valueobject.SuiteActive {
		t.Fatalf("Update() = %+v, %v", updated, err)
	}
	if _, err := env.suites.Update(ctx, suite.ID, UpdateTestSuiteCommand{Status: strPtr("paused"), UpdatedBy: "qa"}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}

	if err := env.suites.Delete(ctx, suite.ID, "qa"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.suites.Get(ctx, suite.ID); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
