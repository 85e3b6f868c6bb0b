package service

import (
	"context"
	"sync"
	"time"

	"github.com/dreschagin/qtrack/internal/domain/entity"
)

const (
	DefaultRetention    = 7 * 24 * time.Hour
	DefaultHistoryLimit = 100
)

// SubCollectors - подключаемые источники частей снимка.
// nil источник дает нулевую часть.
type SubCollectors struct {
	Coverage   func(ctx context.Context) entity.CoverageMetrics
	Lighthouse func(ctx context.Context) entity.LighthouseMetrics
	Security   func(ctx context.Context) entity.SecurityMetrics
	Bundle     func(ctx context.Context) entity.BundleMetrics
	API        func(ctx context.Context) entity.APIMetrics
	Tests      func(ctx context.Context) entity.TestRunMetrics
	Runtime    func(ctx context.Context) entity.RuntimeMetrics
}

// MetricsCollector собирает снимки метрик и держит скользящую историю
type MetricsCollector struct {
	sources      SubCollectors
	now          func() time.Time
	retention    time.Duration
	defaultLimit int

	mu      sync.RWMutex
	history []entity.MetricsSnapshot
}

type CollectorOption func(*MetricsCollector)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) CollectorOption {
	return func(c *MetricsCollector) { c.now = now }
}

// WithRetention задает окно хранения истории
func WithRetention(retention time.Duration) CollectorOption {
	return func(c *MetricsCollector) {
		if retention > 0 {
			c.retention = retention
		}
	}
}

// WithDefaultLimit задает лимит History для limit <= 0
func WithDefaultLimit(limit int) CollectorOption {
	return func(c *MetricsCollector) {
		if limit > 0 {
			c.defaultLimit = limit
		}
	}
}

func NewMetricsCollector(sources SubCollectors, opts ...CollectorOption) *MetricsCollector {
	c := &MetricsCollector{
		sources:      sources,
		now:          time.Now,
		retention:    DefaultRetention,
		defaultLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect собирает снимок, добавляет его в историю и удаляет устаревшие
func (c *MetricsCollector) Collect(ctx context.Context) entity.MetricsSnapshot {
	snapshot := entity.MetricsSnapshot{Timestamp: c.now()}

	if c.sources.Coverage != nil {
		snapshot.Coverage = c.sources.Coverage(ctx)
	}
	if c.sources.Lighthouse != nil {
		snapshot.Lighthouse = c.sources.Lighthouse(ctx)
	}
	if c.sources.Security != nil {
		snapshot.Security = c.sources.Security(ctx)
	}
	if c.sources.Bundle != nil {
		snapshot.Bundle = c.sources.Bundle(ctx)
	}
	if c.sources.API != nil {
		snapshot.API = c.sources.API(ctx)
	}
	if c.sources.Tests != nil {
		snapshot.Tests = c.sources.Tests(ctx)
	}
	if c.sources.Runtime != nil {
		snapshot.Runtime = c.sources.Runtime(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, snapshot)
	c.pruneLocked()

	return snapshot
}

// Record добавляет внешний снимок (например, из CI). Нулевое время заменяется на now.
// Устаревшие записи удаляются при следующем Collect.
func (c *MetricsCollector) Record(snapshot entity.MetricsSnapshot) entity.MetricsSnapshot {
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, snapshot)
	return snapshot
}

// Latest возвращает последний снимок
func (c *MetricsCollector) Latest() (entity.MetricsSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.history) == 0 {
		return entity.MetricsSnapshot{}, false
	}
	return c.history[len(c.history)-1], true
}

// History возвращает до limit последних снимков, самый свежий - последним
func (c *MetricsCollector) History(limit int) []entity.MetricsSnapshot {
	if limit <= 0 {
		limit = c.defaultLimit
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	start := 0
	if len(c.history) > limit {
		start = len(c.history) - limit
	}

	result := make([]entity.MetricsSnapshot, len(c.history)-start)
	copy(result, c.history[start:])
	return result
}

// pruneLocked оставляет снимки не старше retention; вызывается под c.mu
func (c *MetricsCollector) pruneLocked() {
	now := c.now()
	kept := c.history[:0]
	for _, s := range c.history {
		if !s.IsOlderThan(now, c.retention) {
			kept = append(kept, s)
		}
	}
	c.history = kept
}
