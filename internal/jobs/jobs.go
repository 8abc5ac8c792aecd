// Package jobs holds the background work run on a schedule.
package jobs

import (
	"context"
	"time"

	"fitcoach-backend-go/internal/services"
	"fitcoach-backend-go/internal/telemetry/metrics"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

const (
	JobRefreshStats       = "refresh_stats"
	JobPurgeBillingEvents = "purge_billing_events"
	JobSampleHost         = "sample_host"

	hostSampleRetention = 24 * time.Hour
)

type Jobs struct {
	db               *sqlx.DB
	metrics          *metrics.Manager
	diskPath         string
	billingRetention time.Duration
	timeout          time.Duration
	now              func() time.Time
}

func NewJobs(database *sqlx.DB, m *metrics.Manager, diskPath string, billingRetentionDays int) *Jobs {
	if billingRetentionDays <= 0 {
		billingRetentionDays = 30
	}
	return &Jobs{
		db:               database,
		metrics:          m,
		diskPath:         diskPath,
		billingRetention: time.Duration(billingRetentionDays) * 24 * time.Hour,
		timeout:          20 * time.Minute,
		now:              time.Now,
	}
}

// run wraps a job body with a deadline and records its duration and result.
func (j *Jobs) run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	start := time.Now()
	err := fn(ctx)
	result := "ok"
	if err != nil {
		result = "error"
		log.Errorf("job %s: %s", name, err)
	}
	if j.metrics != nil {
		j.metrics.CounterJobRuns.WithLabelValues(name, result).Inc()
		j.metrics.HistogramJobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// RefreshStats recomputes stats and achievements for every user with activity.
func (j *Jobs) RefreshStats() {
	j.run(JobRefreshStats, func(ctx context.Context) error {
		refreshed, failed, err := services.RefreshAllUsers(ctx, j.db, j.now())
		log.Infof("job %s: refreshed %d users, %d failed", JobRefreshStats, refreshed, failed)
		return err
	})
}

// PurgeBillingEvents drops webhook ids past the retention window. Replays older
// than the window are then caught by the last_event_at check instead.
func (j *Jobs) PurgeBillingEvents() {
	j.run(JobPurgeBillingEvents, func(ctx context.Context) error {
		n, err := services.PurgeBillingEvents(ctx, j.db, j.now().Add(-j.billingRetention))
		if err != nil {
			return err
		}
		log.Infof("job %s: removed %d events", JobPurgeBillingEvents, n)
		return nil
	})
}

func (j *Jobs) SampleHost() {
	j.run(JobSampleHost, func(ctx context.Context) error {
		sample := services.SampleHost(j.diskPath)
		if j.metrics != nil {
			j.metrics.GaugeHostCPU.Set(sample.SystemCPULoad * 100)
			j.metrics.GaugeHostMemory.Set(percent(sample.SystemMemoryUsed, sample.SystemMemoryTotal))
			j.metrics.GaugeHostDisk.Set(percent(sample.DiskUsedBytes, sample.DiskTotalBytes))
		}
		if err := services.StoreHostSample(ctx, j.db, sample); err != nil {
			return err
		}
		_, err := services.PurgeHostSamples(ctx, j.db, j.now().Add(-hostSampleRetention))
		return err
	})
}

func percent(used, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}
