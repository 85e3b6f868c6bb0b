package collector

import (
	"context"
	"runtime"

	"github.com/dreschagin/qtrack/internal/application/port"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// Baseline - значения, которые сборщик отдает, пока реальные источники
// (CI, Lighthouse, аудит зависимостей) не подключены. Переопределяется
// секцией baseline в файле quality gates.
type Baseline struct {
	Coverage   entity.CoverageMetrics   `mapstructure:"coverage"`
	Lighthouse entity.LighthouseMetrics `mapstructure:"lighthouse"`
	Security   entity.SecurityMetrics   `mapstructure:"security"`
	Bundle     entity.BundleMetrics     `mapstructure:"bundle"`
	API        entity.APIMetrics        `mapstructure:"api"`
	Tests      entity.TestRunMetrics    `mapstructure:"tests"`
}

func DefaultBaseline() Baseline {
	return Baseline{
		Coverage: entity.CoverageMetrics{Percentage: 85, Lines: 1250, Functions: 180, Branches: 95},
		Lighthouse: entity.LighthouseMetrics{
			Performance: 92, Accessibility: 98, BestPractices: 95, SEO: 90,
		},
		Security: entity.SecurityMetrics{
			Vulnerabilities: entity.VulnerabilityCounts{Critical: 0, High: 0, Medium: 2, Low: 5},
		},
		Bundle: entity.BundleMetrics{Size: entity.BundleSize{KB: 450, Gzipped: 120}},
		API: entity.APIMetrics{
			Response: entity.APIResponse{Time: entity.LatencyPercentiles{P50: 85, P95: 180, P99: 350}},
			Errors:   entity.APIErrors{Rate: 0.02, Count: 3},
		},
		Tests: entity.TestRunMetrics{Total: 156, Passed: 154, Failed: 0, Skipped: 2, Duration: 45000},
	}
}

// SubCollectors связывает baseline и необязательный probe хоста с MetricsCollector.
// Без probe часть runtime остается нулевой.
func (b Baseline) SubCollectors(probe port.HostProbe, log *logger.Logger) service.SubCollectors {
	sources := service.SubCollectors{
		Coverage:   func(context.Context) entity.CoverageMetrics { return b.Coverage },
		Lighthouse: func(context.Context) entity.LighthouseMetrics { return b.Lighthouse },
		Security:   func(context.Context) entity.SecurityMetrics { return b.Security },
		Bundle:     func(context.Context) entity.BundleMetrics { return b.Bundle },
		API:        func(context.Context) entity.APIMetrics { return b.API },
		Tests:      func(context.Context) entity.TestRunMetrics { return b.Tests },
	}

	if probe != nil {
		sources.Runtime = RuntimeSource(probe, log)
	}

	return sources
}

// RuntimeSource снимает показатели хоста; при ошибке probe отдает только goroutines.
func RuntimeSource(probe port.HostProbe, log *logger.Logger) func(ctx context.Context) entity.RuntimeMetrics {
	return func(ctx context.Context) entity.RuntimeMetrics {
		metrics := entity.RuntimeMetrics{Goroutines: float64(runtime.NumGoroutine())}

		sample, err := probe.Sample(ctx)
		if err != nil {
			log.Warn("Host probe failed", "error", err)
			return metrics
		}

		metrics.CPUPercent = sample.CPUPercent
		metrics.MemoryPercent = sample.MemoryPercent
		metrics.DiskPercent = sample.DiskPercent
		return metrics
	}
}
