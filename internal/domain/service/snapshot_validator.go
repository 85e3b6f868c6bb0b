package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/qtrack/internal/domain/entity"
)

// maxClockSkew - допустимое опережение времени внешнего снимка
const maxClockSkew = time.Minute

// SnapshotValidator проверяет снимки, присланные извне (Domain Service)
type SnapshotValidator struct {
	now func() time.Time
}

func NewSnapshotValidator() *SnapshotValidator {
	return &SnapshotValidator{now: time.Now}
}

// Validate выполняет полную валидацию снимка
func (v *SnapshotValidator) Validate(snapshot entity.MetricsSnapshot) error {
	// Проверка времени
	if !snapshot.Timestamp.IsZero() && snapshot.Timestamp.After(v.now().Add(maxClockSkew)) {
		return errors.New("timestamp cannot be in the future")
	}

	// Значения не могут быть отрицательными
	for key, value := range snapshot.Flatten() {
		if value < 0 {
			return fmt.Errorf("%s cannot be negative", key)
		}
	}

	// Проценты и оценки Lighthouse ограничены сверху
	bounded := map[string]float64{
		"coverage.percentage":      snapshot.Coverage.Percentage,
		"lighthouse.performance":   snapshot.Lighthouse.Performance,
		"lighthouse.accessibility": snapshot.Lighthouse.Accessibility,
		"lighthouse.bestPractices": snapshot.Lighthouse.BestPractices,
		"lighthouse.seo":           snapshot.Lighthouse.SEO,
		"runtime.cpu.percent":      snapshot.Runtime.CPUPercent,
		"runtime.memory.percent":   snapshot.Runtime.MemoryPercent,
		"runtime.disk.percent":     snapshot.Runtime.DiskPercent,
	}
	for key, value := range bounded {
		if value > 100 {
			return fmt.Errorf("%s cannot exceed 100", key)
		}
	}

	if snapshot.API.Errors.Rate > 1 {
		return errors.New("api.errors.rate must be a fraction between 0 and 1")
	}

	tests := snapshot.Tests
	if tests.Passed+tests.Failed+tests.Skipped > tests.Total {
		return errors.New("tests.passed + tests.failed + tests.skipped cannot exceed tests.total")
	}

	return nil
}
