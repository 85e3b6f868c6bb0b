package port

import "context"

// HostSample - моментальные показатели хоста
type HostSample struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
}

// HostProbe определяет интерфейс снятия показателей хоста (Port)
// Реализация в Infrastructure слое (gopsutil)
type HostProbe interface {
	Sample(ctx context.Context) (HostSample, error)
}
