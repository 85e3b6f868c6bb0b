package dto

import (
	"time"

	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

// QualityGateDTO - представление gate в API
type QualityGateDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Threshold   float64 `json:"threshold"`
	Operator    string  `json:"operator"`
	Metric      string  `json:"metric"`
	Enabled     bool    `json:"enabled"`
}

func FromGate(g entity.QualityGate) QualityGateDTO {
	return QualityGateDTO{
		ID:          g.ID(),
		Name:        g.Name(),
		Description: g.Description(),
		Threshold:   g.Threshold(),
		Operator:    g.Operator().String(),
		Metric:      g.Metric(),
		Enabled:     g.Enabled(),
	}
}

func FromGates(gates []entity.QualityGate) []QualityGateDTO {
	result := make([]QualityGateDTO, 0, len(gates))
	for _, g := range gates {
		result = append(result, FromGate(g))
	}
	return result
}

type GateResultDTO struct {
	GateID      string  `json:"gateId"`
	Passed      bool    `json:"passed"`
	ActualValue float64 `json:"actualValue"`
	Threshold   float64 `json:"threshold"`
	Message     string  `json:"message"`
}

func FromGateResults(results []entity.GateResult) []GateResultDTO {
	out := make([]GateResultDTO, 0, len(results))
	for _, r := range results {
		out = append(out, GateResultDTO{
			GateID:      r.GateID,
			Passed:      r.Passed,
			ActualValue: r.ActualValue,
			Threshold:   r.Threshold,
			Message:     r.Message,
		})
	}
	return out
}

type QualitySummaryDTO struct {
	Total         int     `json:"total"`
	Passed        int     `json:"passed"`
	Failed        int     `json:"failed"`
	OverallHealth float64 `json:"overallHealth"`
}

func FromSummary(s service.GateSummary) QualitySummaryDTO {
	return QualitySummaryDTO{
		Total:         s.Total,
		Passed:        s.Passed,
		Failed:        s.Failed,
		OverallHealth: s.OverallHealth,
	}
}

// QualityReportDTO - ответ GET /api/quality/gates
type QualityReportDTO struct {
	Gates   []QualityGateDTO    `json:"gates"`
	Results []GateResultDTO     `json:"results"`
	Metrics *MetricsSnapshotDTO `json:"metrics"`
	Summary QualitySummaryDTO   `json:"summary"`
}

// FailedResults возвращает только проваленные проверки
func (r *QualityReportDTO) FailedResults() []GateResultDTO {
	failed := make([]GateResultDTO, 0)
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// GateUpdateDTO - частичное обновление gate из JSON; отсутствующие поля не меняются
type GateUpdateDTO struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Threshold   *float64 `json:"threshold,omitempty"`
	Operator    *string  `json:"operator,omitempty"`
	Metric      *string  `json:"metric,omitempty"`
	Enabled     *bool    `json:"enabled,omitempty"`
}

// ToEntity проверяет оператор и строит доменное обновление
func (d GateUpdateDTO) ToEntity() (entity.GateUpdate, error) {
	update := entity.GateUpdate{
		Name:        d.Name,
		Description: d.Description,
		Threshold:   d.Threshold,
		Metric:      d.Metric,
		Enabled:     d.Enabled,
	}

	if d.Operator != nil {
		op := valueobject.Operator(*d.Operator)
		if err := op.Validate(); err != nil {
			return entity.GateUpdate{}, err
		}
		update.Operator = &op
	}

	return update, nil
}

// AlertDTO - уведомление о проваленном gate
type AlertDTO struct {
	Timestamp time.Time     `json:"timestamp"`
	Level     string        `json:"level"` // "warning", "critical"
	Result    GateResultDTO `json:"result"`
	Message   string        `json:"message"`
}

// NewGateAlertDTO создает alert; security gates считаются критичными
func NewGateAlertDTO(result GateResultDTO, at time.Time) *AlertDTO {
	level := "warning"
	if result.GateID == "security-vulnerabilities" {
		level = "critical"
	}

	return &AlertDTO{
		Timestamp: at,
		Level:     level,
		Result:    result,
		Message:   result.Message,
	}
}
