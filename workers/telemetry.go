package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"converse/contract"
	"converse/domain/event"
)

// TelemetryWorker periodically logs process health (CPU, RSS) next to
// the chat-level gauges: online users and event counts. One log line
// per tick is the whole observability surface.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	registry contract.IRegistry
	counter  *event.Counter
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration, registry contract.IRegistry, counter *event.Counter) *TelemetryWorker {
	return &TelemetryWorker{
		log:      log,
		interval: interval,
		registry: registry,
		counter:  counter,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			w.log.Info("telemetry",
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"goroutines", runtime.NumGoroutine(),
				"online_users", len(w.registry.OnlineUsers()),
				"events", w.counter.Snapshot())
		}
	}
}

// selfStats retrieves memory and CPU usage for the given process.
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
