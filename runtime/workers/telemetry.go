package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// TelemetryWorker logs a diagnostics snapshot at a fixed interval.
type TelemetryWorker struct {
	log            *slog.Logger
	clock          clock.Clock
	metricInterval time.Duration
	stats          StatsProvider
}

func NewTelemetryWorker(log *slog.Logger, clk clock.Clock, metricInterval time.Duration, stats StatsProvider) *TelemetryWorker {
	if clk == nil {
		clk = clock.New()
	}
	return &TelemetryWorker{
		log:            log,
		clock:          clk,
		metricInterval: metricInterval,
		stats:          stats,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := w.clock.Ticker(w.metricInterval)
	defer ticker.Stop()

	var lastTotal uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			latest := w.stats.GetLatest()
			if latest.TotalReported == lastTotal {
				continue
			}
			lastTotal = latest.TotalReported
			w.log.Debug("Diagnostics",
				"total", latest.TotalReported,
				"warnings", latest.WarningsOrWorse,
				"goroutines", latest.NumGoroutine,
				"alloc_mb", latest.AllocMemMb,
				"cpu_percent", latest.Process.CPUPercent,
				"rss_mb", latest.Process.RSSBytes/1024/1024,
			)
		}
	}
}
