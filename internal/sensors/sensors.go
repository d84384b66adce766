// Package sensors samples host health for the status readout: free disk,
// free RAM and CPU utilisation. CPU figures need two samples; the first
// call after construction reports zero.
package sensors

import "fmt"

type Snapshot struct {
	DiskFreeBytes  uint64
	DiskTotalBytes uint64
	RamFreeBytes   uint64
	RamTotalBytes  uint64
	CPUUtil        float64
}

type Sampler interface {
	Sample(path string) (Snapshot, error)
}

// String renders one human-readable status line.
func (s Snapshot) String() string {
	return fmt.Sprintf("disk %s/%s free, ram %s/%s free, cpu %.0f%%",
		humanBytes(s.DiskFreeBytes), humanBytes(s.DiskTotalBytes),
		humanBytes(s.RamFreeBytes), humanBytes(s.RamTotalBytes),
		s.CPUUtil*100)
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(n)/float64(div), "KMGTPE"[exp])
}
