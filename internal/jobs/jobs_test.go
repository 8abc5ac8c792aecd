package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/migrations"
	"fitcoach-backend-go/internal/telemetry/metrics"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Apply(context.Background(), database))
	return database
}

func TestJobs_PurgeBillingEvents(t *testing.T) {
	database := newTestDB(t)
	m := metrics.NewTestManager()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for id, at := range map[string]time.Time{
		"evt_old":    now.AddDate(0, 0, -45),
		"evt_recent": now.AddDate(0, 0, -2),
	} {
		_, err := db.Exec(ctx, database, `INSERT INTO billing_events (event_id, event_type, received_at) VALUES (?,?,?)`,
			id, "invoice.payment_succeeded", at)
		require.NoError(t, err)
	}

	j := NewJobs(database, m, t.TempDir(), 30)
	j.now = func() time.Time { return now }
	j.PurgeBillingEvents()

	var ids []string
	require.NoError(t, db.Select(ctx, database, &ids, `SELECT event_id FROM billing_events`))
	assert.Equal(t, []string{"evt_recent"}, ids)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterJobRuns.WithLabelValues(JobPurgeBillingEvents, "ok")))
}

func TestJobs_SampleHostStoresSample(t *testing.T) {
	database := newTestDB(t)
	m := metrics.NewTestManager()

	j := NewJobs(database, m, t.TempDir(), 30)
	j.SampleHost()

	var n int
	require.NoError(t, db.Get(context.Background(), database, &n, `SELECT COUNT(*) FROM host_metric_samples`))
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterJobRuns.WithLabelValues(JobSampleHost, "ok")))
}

func TestJobs_RefreshStatsWithNoUsers(t *testing.T) {
	database := newTestDB(t)
	m := metrics.NewTestManager()

	NewJobs(database, m, t.TempDir(), 30).RefreshStats()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterJobRuns.WithLabelValues(JobRefreshStats, "ok")))
}

func TestScheduler_SkipsInvalidSchedules(t *testing.T) {
	s := NewScheduler(NewJobs(nil, nil, "", 0), Schedule{Stats: "not a schedule", BillingEvents: "@daily", HostSampleInterval: 5})
	s.Start()
	assert.Equal(t, 2, s.Entries())
	<-s.Stop().Done()
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 25.0, percent(1, 4))
	assert.Equal(t, 0.0, percent(1, 0))
}
