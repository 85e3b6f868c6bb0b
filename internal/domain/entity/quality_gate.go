package entity

import (
	"fmt"
	"strconv"

	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

// QualityGate - именованное правило порога для одной метрики
type QualityGate struct {
	id          string
	name        string
	description string
	metric      string
	operator    valueobject.Operator
	threshold   float64
	enabled     bool
}

// GateUpdate - частичное обновление gate; nil означает "не менять"
type GateUpdate struct {
	Name        *string
	Description *string
	Metric      *string
	Operator    *valueobject.Operator
	Threshold   *float64
	Enabled     *bool
}

// IsEmpty сообщает, что обновление ничего не меняет
func (u GateUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Metric == nil &&
		u.Operator == nil && u.Threshold == nil && u.Enabled == nil
}

// GateResult - результат проверки одного gate против одного снимка
type GateResult struct {
	GateID      string
	Passed      bool
	ActualValue float64
	Threshold   float64
	Message     string
}

// NewQualityGate создает gate (Factory Method)
func NewQualityGate(
	id, name, description, metric string,
	operator valueobject.Operator,
	threshold float64,
	enabled bool,
) (*QualityGate, error) {
	if id == "" {
		return nil, fmt.Errorf("gate id is required")
	}
	if metric == "" {
		return nil, fmt.Errorf("gate %s: metric is required", id)
	}
	if err := operator.Validate(); err != nil {
		return nil, fmt.Errorf("gate %s: %w", id, err)
	}

	return &QualityGate{
		id:          id,
		name:        name,
		description: description,
		metric:      metric,
		operator:    operator,
		threshold:   threshold,
		enabled:     enabled,
	}, nil
}

func (g *QualityGate) ID() string                     { return g.id }
func (g *QualityGate) Name() string                   { return g.name }
func (g *QualityGate) Description() string            { return g.description }
func (g *QualityGate) Metric() string                 { return g.metric }
func (g *QualityGate) Operator() valueobject.Operator { return g.operator }
func (g *QualityGate) Threshold() float64             { return g.threshold }
func (g *QualityGate) Enabled() bool                  { return g.enabled }

// Apply сливает заданные поля обновления в gate
func (g *QualityGate) Apply(update GateUpdate) {
	if update.Name != nil {
		g.name = *update.Name
	}
	if update.Description != nil {
		g.description = *update.Description
	}
	if update.Metric != nil {
		g.metric = *update.Metric
	}
	if update.Operator != nil {
		g.operator = *update.Operator
	}
	if update.Threshold != nil {
		g.threshold = *update.Threshold
	}
	if update.Enabled != nil {
		g.enabled = *update.Enabled
	}
}

// Evaluate сравнивает фактическое значение с порогом
func (g *QualityGate) Evaluate(actual float64) GateResult {
	passed := g.operator.Compare(actual, g.threshold)

	status := "FAILED"
	if passed {
		status = "PASSED"
	}

	return GateResult{
		GateID:      g.id,
		Passed:      passed,
		ActualValue: actual,
		Threshold:   g.threshold,
		Message: fmt.Sprintf("%s: %s (%s %s %s)",
			g.name, status, formatNumber(actual), g.operator, formatNumber(g.threshold)),
	}
}

// formatNumber печатает число в кратчайшем виде: 80, 0.02, 83.33
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
