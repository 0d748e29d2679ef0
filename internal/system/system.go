// Package system holds host helpers: resource limits, file discovery and
// process statistics.
package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// InitResourceLimits raises the open file limit for the HTTP server.
func InitResourceLimits(log logr.Logger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Error(err, "failed to read open file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Error(err, "failed to raise open file limit")
		return
	}
	log.V(1).Info("open file limit raised", "limit", rLimit.Cur)
}

// FindLatestFile returns the most recently modified file in dir whose name
// ends in one of exts (case-insensitive).
func FindLatestFile(dir string, exts ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files found in %s", strings.Join(exts, "/"), dir)
	}

	return latestFile, nil
}

func hasExt(name string, exts []string) bool {
	name = strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(name, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Stats is a snapshot of process and host memory.
type Stats struct {
	RSS         uint64
	HostTotal   uint64
	HostUsedPct float64
	CPUPercent  float64
}

// ReadStats samples the current process and the host. Fields that cannot be
// read are left zero.
func ReadStats() (Stats, error) {
	var s Stats

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return s, fmt.Errorf("open process: %w", err)
	}
	if mi, err := proc.MemoryInfo(); err == nil {
		s.RSS = mi.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return s, fmt.Errorf("read host memory: %w", err)
	}
	s.HostTotal = vm.Total
	s.HostUsedPct = vm.UsedPercent
	return s, nil
}

// FormatBytes renders n in binary units.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
