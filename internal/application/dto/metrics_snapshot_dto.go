package dto

import (
	"time"

	"github.com/dreschagin/qtrack/internal/domain/entity"
)

// MetricsSnapshotDTO - снимок метрик для API; timestamp в миллисекундах Unix
type MetricsSnapshotDTO struct {
	Timestamp  int64                    `json:"timestamp"`
	Coverage   entity.CoverageMetrics   `json:"coverage"`
	Lighthouse entity.LighthouseMetrics `json:"lighthouse"`
	Security   entity.SecurityMetrics   `json:"security"`
	Bundle     entity.BundleMetrics     `json:"bundle"`
	API        entity.APIMetrics        `json:"api"`
	Tests      entity.TestRunMetrics    `json:"tests"`
	Runtime    entity.RuntimeMetrics    `json:"runtime"`
}

// FromSnapshot конвертирует доменный снимок в DTO
func FromSnapshot(s entity.MetricsSnapshot) *MetricsSnapshotDTO {
	return &MetricsSnapshotDTO{
		Timestamp:  s.Timestamp.UnixMilli(),
		Coverage:   s.Coverage,
		Lighthouse: s.Lighthouse,
		Security:   s.Security,
		Bundle:     s.Bundle,
		API:        s.API,
		Tests:      s.Tests,
		Runtime:    s.Runtime,
	}
}

// ToEntity восстанавливает доменный снимок; нулевой timestamp остается нулевым
func (d *MetricsSnapshotDTO) ToEntity() entity.MetricsSnapshot {
	var ts time.Time
	if d.Timestamp > 0 {
		ts = time.UnixMilli(d.Timestamp)
	}

	return entity.MetricsSnapshot{
		Timestamp:  ts,
		Coverage:   d.Coverage,
		Lighthouse: d.Lighthouse,
		Security:   d.Security,
		Bundle:     d.Bundle,
		API:        d.API,
		Tests:      d.Tests,
		Runtime:    d.Runtime,
	}
}

// MetricsHistoryDTO - история снимков, самый свежий последним
type MetricsHistoryDTO struct {
	Snapshots []*MetricsSnapshotDTO `json:"snapshots"`
	Count     int                   `json:"count"`
}

func NewMetricsHistoryDTO(snapshots []entity.MetricsSnapshot) *MetricsHistoryDTO {
	items := make([]*MetricsSnapshotDTO, 0, len(snapshots))
	for _, s := range snapshots {
		items = append(items, FromSnapshot(s))
	}
	return &MetricsHistoryDTO{Snapshots: items, Count: len(items)}
}
