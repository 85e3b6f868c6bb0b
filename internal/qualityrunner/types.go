package qualityrunner

import (
	"context"
	"time"

	"github.com/dreschagin/qtrack/internal/application/dto"
)

// Cycle - один прогон сбора и оценки quality gates
type Cycle interface {
	Execute(ctx context.Context) (*dto.QualityReportDTO, error)
}

// CycleSummary - краткий итог последнего успешного цикла
type CycleSummary struct {
	GeneratedAt   time.Time `json:"generatedAt"`
	DurationMs    int64     `json:"durationMs"`
	Total         int       `json:"total"`
	Passed        int       `json:"passed"`
	Failed        int       `json:"failed"`
	OverallHealth float64   `json:"overallHealth"`
	FailedGates   []string  `json:"failedGates"`
}

type Snapshot struct {
	StartedAt   time.Time     `json:"startedAt"`
	Interval    string        `json:"interval"`
	LastRunAt   *time.Time    `json:"lastRunAt,omitempty"`
	LastError   string        `json:"lastError,omitempty"`
	Runs        int64         `json:"runs"`
	Failures    int64         `json:"failures"`
	LastSummary *CycleSummary `json:"lastSummary,omitempty"`
}

func summarize(report *dto.QualityReportDTO, at time.Time, took time.Duration) *CycleSummary {
	failed := report.FailedResults()
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		names = append(names, r.GateID)
	}

	return &CycleSummary{
		GeneratedAt:   at,
		DurationMs:    took.Milliseconds(),
		Total:         report.Summary.Total,
		Passed:        report.Summary.Passed,
		Failed:        report.Summary.Failed,
		OverallHealth: report.Summary.OverallHealth,
		FailedGates:   names,
	}
}
