package procinfo

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

const KiB uint64 = 1024
const MiB uint64 = 1024 * KiB

func BytesToMiB(bytes uint64) float64 {
	return float64(bytes) / float64(MiB)
}

type SingleProcInfo struct {
	proc *process.Process
}

// Self returns the info handle of the running process.
func Self() (*SingleProcInfo, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("opening process %d: %w", os.Getpid(), err)
	}
	return &SingleProcInfo{proc: p}, nil
}

func (p *SingleProcInfo) Pid() int32 {
	return p.proc.Pid
}

// GetTotalMem returns the resident set size in MiB.
func (p *SingleProcInfo) GetTotalMem() (float64, error) {
	info, err := p.proc.MemoryInfo()
	if err != nil {
		return 0.0, err
	}
	return BytesToMiB(info.RSS), nil
}

// GetCpuTime returns user plus system CPU seconds.
func (p *SingleProcInfo) GetCpuTime() (float64, error) {
	ts, err := p.proc.Times()
	if err != nil {
		return 0, err
	}
	return ts.User + ts.System, nil
}

type Sample struct {
	Pid        int32
	RSSMiB     float64
	CPUSeconds float64
}

func (p *SingleProcInfo) Sample() (Sample, error) {
	mem, err := p.GetTotalMem()
	if err != nil {
		return Sample{}, fmt.Errorf("reading memory info: %w", err)
	}

	cpu, err := p.GetCpuTime()
	if err != nil {
		return Sample{}, fmt.Errorf("reading cpu times: %w", err)
	}

	return Sample{Pid: p.Pid(), RSSMiB: mem, CPUSeconds: cpu}, nil
}
