package dto

import "github.com/dreschagin/qtrack/internal/domain/entity"

// TestSuiteStatsDTO - набор со статистикой прогона входящих тест-кейсов
type TestSuiteStatsDTO struct {
	*entity.TestSuite
	PassRate          float64 `json:"passRate"`
	TotalTestCases    int     `json:"totalTestCases"`
	ExecutedTestCases int     `json:"executedTestCases"`
	PassedTestCases   int     `json:"passedTestCases"`
}

// SuiteExecutionDTO - итоги прогона набора
type SuiteExecutionDTO struct {
	TotalTests    int     `json:"totalTests"`
	ExecutedTests int     `json:"executedTests"`
	PassedTests   int     `json:"passedTests"`
	FailedTests   int     `json:"failedTests"`
	PassRate      float64 `json:"passRate"`
}
