package service

import (
	"fmt"
	"sync"

	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

// QualityGateManager хранит набор quality gates и проверяет по нему метрики (Domain Service).
// Набор фиксирован после создания: gates можно менять, но не добавлять и не удалять.
type QualityGateManager struct {
	mu    sync.RWMutex
	gates []*entity.QualityGate
}

// NewQualityGateManager создает менеджер с копией начального набора
func NewQualityGateManager(initial []*entity.QualityGate) *QualityGateManager {
	gates := make([]*entity.QualityGate, 0, len(initial))
	for _, g := range initial {
		copied := *g
		gates = append(gates, &copied)
	}
	return &QualityGateManager{gates: gates}
}

// DefaultQualityGates возвращает стандартный набор из шести gates
func DefaultQualityGates() []*entity.QualityGate {
	return []*entity.QualityGate{
		mustGate("test-coverage", "Test Coverage", "Minimum test coverage percentage",
			"coverage.percentage", valueobject.OperatorGTE, 80),
		mustGate("performance-score", "Performance Score", "Lighthouse performance score",
			"lighthouse.performance", valueobject.OperatorGTE, 90),
		mustGate("accessibility-score", "Accessibility Score", "Lighthouse accessibility score",
			"lighthouse.accessibility", valueobject.OperatorGTE, 95),
		mustGate("security-vulnerabilities", "Security Vulnerabilities", "Maximum number of high/critical vulnerabilities",
			"security.vulnerabilities.high", valueobject.OperatorLTE, 0),
		mustGate("bundle-size", "Bundle Size", "Maximum bundle size in KB",
			"bundle.size.kb", valueobject.OperatorLTE, 500),
		mustGate("api-response-time", "API Response Time", "Maximum API response time in ms",
			"api.response.time.p95", valueobject.OperatorLTE, 200),
	}
}

func mustGate(id, name, description, metric string, op valueobject.Operator, threshold float64) *entity.QualityGate {
	gate, err := entity.NewQualityGate(id, name, description, metric, op, threshold, true)
	if err != nil {
		panic(fmt.Sprintf("invalid default gate %s: %v", id, err))
	}
	return gate
}

// ListGates возвращает копию текущего набора
func (m *QualityGateManager) ListGates() []entity.QualityGate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entity.QualityGate, 0, len(m.gates))
	for _, g := range m.gates {
		result = append(result, *g)
	}
	return result
}

// Get возвращает копию gate по идентификатору
func (m *QualityGateManager) Get(id string) (entity.QualityGate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, g := range m.gates {
		if g.ID() == id {
			return *g, true
		}
	}
	return entity.QualityGate{}, false
}

// UpdateGate применяет частичное обновление. Для неизвестного id ничего
// не делает и возвращает false.
func (m *QualityGateManager) UpdateGate(id string, update entity.GateUpdate) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range m.gates {
		if g.ID() == id {
			g.Apply(update)
			return true
		}
	}
	return false
}

// Evaluate проверяет включенные gates по плоской карте метрик.
// Отсутствующая метрика считается равной 0.
func (m *QualityGateManager) Evaluate(flatMetrics map[string]float64) []entity.GateResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]entity.GateResult, 0, len(m.gates))
	for _, g := range m.gates {
		if !g.Enabled() {
			continue
		}
		results = append(results, g.Evaluate(flatMetrics[g.Metric()]))
	}
	return results
}

// Count возвращает общее число gates, включая выключенные
func (m *QualityGateManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.gates)
}
