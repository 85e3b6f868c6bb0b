package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dreschagin/qtrack/internal/application/port"
)

// HostProbe снимает CPU, память и диск через gopsutil.
// Реализует интерфейс port.HostProbe
type HostProbe struct {
	cpuWindow time.Duration
	diskPath  string
}

var _ port.HostProbe = (*HostProbe)(nil)

func NewHostProbe(cpuWindow time.Duration, diskPath string) *HostProbe {
	if cpuWindow <= 0 {
		cpuWindow = 200 * time.Millisecond
	}
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostProbe{cpuWindow: cpuWindow, diskPath: diskPath}
}

// Sample собирает показатели параллельно. Ошибка возвращается, только если
// не удалось снять ни одного показателя.
func (p *HostProbe) Sample(ctx context.Context) (port.HostSample, error) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		sample port.HostSample
		errs   []error
	)

	collect := func(read func(context.Context) (float64, error), assign func(float64)) {
		defer wg.Done()
		value, err := read(ctx)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		assign(value)
	}

	wg.Add(3)
	go collect(p.cpuPercent, func(v float64) { sample.CPUPercent = v })
	go collect(memoryPercent, func(v float64) { sample.MemoryPercent = v })
	go collect(p.diskPercent, func(v float64) { sample.DiskPercent = v })
	wg.Wait()

	if len(errs) == 3 {
		return port.HostSample{}, errors.Join(errs...)
	}
	return sample, nil
}

func (p *HostProbe) cpuPercent(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, p.cpuWindow, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, errors.New("cpu percent is unavailable")
	}
	return percentages[0], nil
}

func memoryPercent(ctx context.Context) (float64, error) {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vmStat.UsedPercent, nil
}

func (p *HostProbe) diskPercent(ctx context.Context) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, p.diskPath)
	if err != nil {
		return 0, err
	}
	return usage.UsedPercent, nil
}
