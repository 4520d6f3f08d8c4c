package observability

import (
	"os"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats is what the OS reports about the client process.
type ProcessStats struct {
	Pid        int32   `json:"pid"`
	Status     string  `json:"status"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
}

// SelfProcess returns the handle on the running process.
func SelfProcess() (*process.Process, error) {
	return process.NewProcess(int32(os.Getpid()))
}

// sampleProcess retrieves memory, CPU and OS status for p.
func sampleProcess(p *process.Process) (ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}

	status, err := p.Status()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{Pid: p.Pid, Status: status, CPUPercent: cpuPercent, RSSBytes: memInfo.RSS}, nil
}
