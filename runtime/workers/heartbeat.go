package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-assist/dispatch"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker logs process health and queue pressure on a fixed
// interval: CPU, RSS, pending messages and running drains.
type HeartbeatWorker struct {
	log        *slog.Logger
	dispatcher *dispatch.Dispatcher
	interval   time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, dispatcher *dispatch.Dispatcher, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, dispatcher: dispatcher, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
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
			rss, cpu, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			users, pending := w.dispatcher.QueueDepth()
			w.log.Info("Heartbeat",
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"queued_users", users,
				"pending_messages", pending,
				"active_drains", w.dispatcher.ActiveDrains(),
			)
		}
	}
}

// getSelfStats retrieves memory and CPU figures for this process.
func getSelfStats(p *process.Process) (uint64, float64, error) {
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
