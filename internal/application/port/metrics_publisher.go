package port

import (
	"context"

	"github.com/dreschagin/qtrack/internal/application/dto"
)

// MetricsPublisher defines the interface for exporting quality gate evaluations
// to external observability platforms (CloudWatch, Prometheus).
type MetricsPublisher interface {
	// PublishEvaluation publishes per-gate pass/fail values and the overall health score.
	// Implementations may buffer; see Flush.
	PublishEvaluation(ctx context.Context, report *dto.QualityReportDTO) error

	// Flush forces immediate publication of any buffered data.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}
