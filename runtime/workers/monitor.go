package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-relay/contract"
)

// Monitor periodically logs a snapshot of the relay runtime: session and
// queue figures from the stats provider plus process memory and CPU. It is
// the only surface where unbounded queue growth becomes visible before the
// process runs out of memory.
type Monitor struct {
	log      *slog.Logger
	interval time.Duration
	stats    contract.StatsProvider
}

func NewMonitor(log *slog.Logger, interval time.Duration, stats contract.StatsProvider) *Monitor {
	return &Monitor{log: log, interval: interval, stats: stats}
}

func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Stopping worker")
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				m.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)

			attrs := []any{
				"rss_mb", rss / 1024 / 1024,
				"cpu_percent", cpu,
				"goroutines", runtime.NumGoroutine(),
				"gc_cycles", ms.NumGC,
			}
			for k, v := range m.stats() {
				attrs = append(attrs, k, v)
			}
			m.log.Info("Runtime stats", attrs...)
		}
	}
}

// selfStats retrieves memory and CPU figures for the current process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
