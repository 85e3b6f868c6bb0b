package entity

import "time"

// MetricsSnapshot - иммутабельный срез показателей качества на момент сбора.
// Все вложенные части - значения, поэтому копия снимка не разделяет состояние.
type MetricsSnapshot struct {
	Timestamp  time.Time         `json:"-"`
	Coverage   CoverageMetrics   `json:"coverage"`
	Lighthouse LighthouseMetrics `json:"lighthouse"`
	Security   SecurityMetrics   `json:"security"`
	Bundle     BundleMetrics     `json:"bundle"`
	API        APIMetrics        `json:"api"`
	Tests      TestRunMetrics    `json:"tests"`
	Runtime    RuntimeMetrics    `json:"runtime"`
}

type CoverageMetrics struct {
	Percentage float64 `json:"percentage"`
	Lines      float64 `json:"lines"`
	Functions  float64 `json:"functions"`
	Branches   float64 `json:"branches"`
}

type LighthouseMetrics struct {
	Performance   float64 `json:"performance"`
	Accessibility float64 `json:"accessibility"`
	BestPractices float64 `json:"bestPractices"`
	SEO           float64 `json:"seo"`
}

type SecurityMetrics struct {
	Vulnerabilities VulnerabilityCounts `json:"vulnerabilities"`
}

type VulnerabilityCounts struct {
	Critical float64 `json:"critical"`
	High     float64 `json:"high"`
	Medium   float64 `json:"medium"`
	Low      float64 `json:"low"`
}

type BundleMetrics struct {
	Size BundleSize `json:"size"`
}

type BundleSize struct {
	KB      float64 `json:"kb"`
	Gzipped float64 `json:"gzipped"`
}

type APIMetrics struct {
	Response APIResponse `json:"response"`
	Errors   APIErrors   `json:"errors"`
}

type APIResponse struct {
	Time LatencyPercentiles `json:"time"`
}

type LatencyPercentiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type APIErrors struct {
	Rate  float64 `json:"rate"`
	Count float64 `json:"count"`
}

type TestRunMetrics struct {
	Total    float64 `json:"total"`
	Passed   float64 `json:"passed"`
	Failed   float64 `json:"failed"`
	Skipped  float64 `json:"skipped"`
	Duration float64 `json:"duration"`
}

// RuntimeMetrics - живые показатели хоста, на котором работает сервис
type RuntimeMetrics struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
	DiskPercent   float64 `json:"diskPercent"`
	Goroutines    float64 `json:"goroutines"`
}

// Flatten разворачивает снимок в плоскую карту с ключами вида "a.b.c".
// Именно по этим ключам quality gate ссылается на метрику.
func (s MetricsSnapshot) Flatten() map[string]float64 {
	return map[string]float64{
		"coverage.percentage": s.Coverage.Percentage,
		"coverage.lines":      s.Coverage.Lines,
		"coverage.functions":  s.Coverage.Functions,
		"coverage.branches":   s.Coverage.Branches,

		"lighthouse.performance":   s.Lighthouse.Performance,
		"lighthouse.accessibility": s.Lighthouse.Accessibility,
		"lighthouse.bestPractices": s.Lighthouse.BestPractices,
		"lighthouse.seo":           s.Lighthouse.SEO,

		"security.vulnerabilities.critical": s.Security.Vulnerabilities.Critical,
		"security.vulnerabilities.high":     s.Security.Vulnerabilities.High,
		"security.vulnerabilities.medium":   s.Security.Vulnerabilities.Medium,
		"security.vulnerabilities.low":      s.Security.Vulnerabilities.Low,

		"bundle.size.kb":      s.Bundle.Size.KB,
		"bundle.size.gzipped": s.Bundle.Size.Gzipped,

		"api.response.time.p50": s.API.Response.Time.P50,
		"api.response.time.p95": s.API.Response.Time.P95,
		"api.response.time.p99": s.API.Response.Time.P99,
		"api.errors.rate":       s.API.Errors.Rate,
		"api.errors.count":      s.API.Errors.Count,

		"tests.total":    s.Tests.Total,
		"tests.passed":   s.Tests.Passed,
		"tests.failed":   s.Tests.Failed,
		"tests.skipped":  s.Tests.Skipped,
		"tests.duration": s.Tests.Duration,

		"runtime.cpu.percent":    s.Runtime.CPUPercent,
		"runtime.memory.percent": s.Runtime.MemoryPercent,
		"runtime.disk.percent":   s.Runtime.DiskPercent,
		"runtime.goroutines":     s.Runtime.Goroutines,
	}
}

// IsOlderThan проверяет, устарел ли снимок относительно момента now
func (s MetricsSnapshot) IsOlderThan(now time.Time, age time.Duration) bool {
	return s.Timestamp.Before(now.Add(-age))
}
