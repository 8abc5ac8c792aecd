package services

import (
	"context"
	"os"
	"time"

	"fitcoach-backend-go/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type HostSample struct {
	CapturedAt        time.Time `json:"capturedAt" db:"captured_at"`
	ProcessRSSBytes   int64     `json:"processRssBytes" db:"process_rss_bytes"`
	SystemMemoryTotal int64     `json:"systemMemoryTotalBytes" db:"system_memory_total_bytes"`
	SystemMemoryUsed  int64     `json:"systemMemoryUsedBytes" db:"system_memory_used_bytes"`
	DiskTotalBytes    int64     `json:"diskTotalBytes" db:"disk_total_bytes"`
	DiskUsedBytes     int64     `json:"diskUsedBytes" db:"disk_used_bytes"`
	ProcessCPULoad    float64   `json:"processCpuLoad" db:"process_cpu_load"`
	SystemCPULoad     float64   `json:"systemCpuLoad" db:"system_cpu_load"`
}

// SampleHost reads process and host usage. Probes that fail leave their fields at zero.
func SampleHost(diskPath string) HostSample {
	sample := HostSample{CapturedAt: time.Now().UTC()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfo(); err == nil && rss != nil {
			sample.ProcessRSSBytes = int64(rss.RSS)
		}
		if perc, err := proc.CPUPercent(); err == nil {
			sample.ProcessCPULoad = perc / 100.0
		}
	}
	if memStat, err := mem.VirtualMemory(); err == nil {
		sample.SystemMemoryTotal = int64(memStat.Total)
		sample.SystemMemoryUsed = int64(memStat.Total - memStat.Available)
	}
	diskStat, err := disk.Usage(diskPath)
	if err != nil {
		diskStat, err = disk.Usage("/")
	}
	if err == nil {
		sample.DiskTotalBytes = int64(diskStat.Total)
		sample.DiskUsedBytes = int64(diskStat.Used)
	}
	if sysCPU, err := cpu.Percent(0, false); err == nil && len(sysCPU) > 0 {
		sample.SystemCPULoad = sysCPU[0] / 100.0
	}
	return sample
}

func StoreHostSample(ctx context.Context, q sqlx.ExtContext, sample HostSample) error {
	_, err := db.Exec(ctx, q, `
INSERT INTO host_metric_samples (id, captured_at, process_rss_bytes, system_memory_total_bytes, system_memory_used_bytes,
  disk_total_bytes, disk_used_bytes, process_cpu_load, system_cpu_load)
VALUES (?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), sample.CapturedAt, sample.ProcessRSSBytes, sample.SystemMemoryTotal, sample.SystemMemoryUsed,
		sample.DiskTotalBytes, sample.DiskUsedBytes, sample.ProcessCPULoad, sample.SystemCPULoad)
	return err
}

// LatestHostSamples returns up to limit samples, oldest first.
func LatestHostSamples(ctx context.Context, q sqlx.ExtContext, limit int) ([]HostSample, error) {
	rows := []HostSample{}
	if err := db.Select(ctx, q, &rows, `
SELECT captured_at, process_rss_bytes, system_memory_total_bytes, system_memory_used_bytes, disk_total_bytes,
       disk_used_bytes, process_cpu_load, system_cpu_load
FROM host_metric_samples
ORDER BY captured_at DESC
LIMIT ?`, limit); err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func PurgeHostSamples(ctx context.Context, q sqlx.ExtContext, olderThan time.Time) (int64, error) {
	res, err := db.Exec(ctx, q, `DELETE FROM host_metric_samples WHERE captured_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
