package observability

import (
	"c2c-client/domain/event"
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/shirou/gopsutil/process"
)

const maxRecentDiagnostics = 20

// RecentDiagnostic is one reported event kept for the debug view.
type RecentDiagnostic struct {
	Code      event.DiagnosticCode `json:"code"`
	Level     string               `json:"level"`
	Message   string               `json:"message"`
	Timestamp string               `json:"timestamp"`
}

// MonitoringStats is the snapshot served by the debug endpoint and /stats.
type MonitoringStats struct {
	Counts          map[event.DiagnosticCode]uint64 `json:"counts"`
	TotalReported   uint64                          `json:"total_reported"`
	WarningsOrWorse uint64                          `json:"warnings_or_worse"`
	AllocMemMb      uint64                          `json:"alloc_mem_mb"`
	NumGC           uint32                          `json:"num_gc"`
	NumGoroutine    int                             `json:"num_goroutine"`
	Process         ProcessStats                    `json:"process"`
	Recent          []RecentDiagnostic              `json:"recent"`
}

// MonitoringManager logs every diagnostic and keeps per-code counters.
// It implements contract.Diagnostics.
type MonitoringManager struct {
	log   *slog.Logger
	clock clock.Clock
	// nil when the OS refused a process handle
	self  *process.Process

	mu     sync.RWMutex
	counts map[event.DiagnosticCode]uint64
	recent []RecentDiagnostic

	total    atomic.Uint64
	warnings atomic.Uint64
}

func NewMonitoringManager(log *slog.Logger, clk clock.Clock) *MonitoringManager {
	if clk == nil {
		clk = clock.New()
	}
	self, err := SelfProcess()
	if err != nil {
		log.Warn("Process stats unavailable", "error", err)
	}
	return &MonitoringManager{
		log:    log,
		clock:  clk,
		self:   self,
		counts: make(map[event.DiagnosticCode]uint64),
		recent: make([]RecentDiagnostic, 0),
	}
}

func (mm *MonitoringManager) Report(d event.Diagnostic) {
	mm.total.Add(1)
	if d.Level >= slog.LevelWarn {
		mm.warnings.Add(1)
	}

	attrs := append([]any{"code", string(d.Code)}, d.Attrs...)
	mm.log.Log(context.Background(), d.Level, d.Message, attrs...)

	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.counts[d.Code]++

	entry := RecentDiagnostic{
		Code:      d.Code,
		Level:     d.Level.String(),
		Message:   d.Message,
		Timestamp: mm.clock.Now().Format("15:04:05"),
	}
	mm.recent = append([]RecentDiagnostic{entry}, mm.recent...)
	if len(mm.recent) > maxRecentDiagnostics {
		mm.recent = mm.recent[:maxRecentDiagnostics]
	}
}

// Count returns how many diagnostics with the given code were reported.
func (mm *MonitoringManager) Count(code event.DiagnosticCode) uint64 {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.counts[code]
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	counts := make(map[event.DiagnosticCode]uint64, len(mm.counts))
	for code, n := range mm.counts {
		counts[code] = n
	}
	recent := append([]RecentDiagnostic(nil), mm.recent...)
	mm.mu.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var proc ProcessStats
	if mm.self != nil {
		var err error
		if proc, err = sampleProcess(mm.self); err != nil {
			mm.log.Debug("Failed to collect self stats", "error", err)
		}
	}

	return MonitoringStats{
		Counts:          counts,
		TotalReported:   mm.total.Load(),
		WarningsOrWorse: mm.warnings.Load(),
		AllocMemMb:      m.Alloc / 1024 / 1024,
		NumGC:           m.NumGC,
		NumGoroutine:    runtime.NumGoroutine(),
		Process:         proc,
		Recent:          recent,
	}
}

// Codes lists the reported codes in a stable order.
func (s MonitoringStats) Codes() []event.DiagnosticCode {
	codes := make([]event.DiagnosticCode, 0, len(s.Counts))
	for code := range s.Counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
