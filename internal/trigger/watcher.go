package trigger

import (
	"context"
	"log/slog"
	"time"

	"github.com/mathwake/wake-engine/internal/alarm"
)

// Watcher polls for due alarms. Scheduled instants are checked once per tick,
// so worst-case ring latency stays under one interval.
type Watcher struct {
	manager  alarm.Manager
	interval time.Duration
}

// NewWatcher creates a new trigger watcher
func NewWatcher(manager alarm.Manager, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}

	return &Watcher{
		manager:  manager,
		interval: interval,
	}
}

// Start begins the trigger watcher in a goroutine
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// run is the main loop for the trigger watcher
func (w *Watcher) run(ctx context.Context) {
	slog.Info("trigger watcher started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Check immediately on start
	w.check(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("trigger watcher stopped")
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check fires every alarm whose scheduled instant has passed
func (w *Watcher) check(ctx context.Context) {
	if fired := w.manager.FireDue(ctx); fired > 0 {
		slog.Info("alarms fired", "count", fired)
	}
}
