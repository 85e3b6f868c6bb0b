package service

import (
	"math"

	"github.com/dreschagin/qtrack/internal/domain/entity"
)

// GateSummary - агрегат по результатам проверки
type GateSummary struct {
	Total         int
	Passed        int
	Failed        int
	OverallHealth float64
}

// HealthScore - доля прошедших gates в процентах.
// При нуле gates возвращает 100.
func HealthScore(passed, total int) float64 {
	if total <= 0 {
		return 100
	}
	return Round2(float64(passed) / float64(total) * 100)
}

// Summarize считает итог; total - полное число gates в наборе
func Summarize(results []entity.GateResult, total int) GateSummary {
	summary := GateSummary{Total: total}
	for _, r := range results {
		if r.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	summary.OverallHealth = HealthScore(summary.Passed, total)
	return summary
}

// Round2 округляет до двух знаков после запятой
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
