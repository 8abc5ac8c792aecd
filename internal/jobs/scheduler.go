package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type Schedule struct {
	Stats              string
	BillingEvents      string
	HostSampleInterval int
}

type entry struct {
	name string
	spec string
	fn   func()
}

type Scheduler struct {
	cron     *cron.Cron
	jobs     *Jobs
	schedule Schedule
}

func NewScheduler(jobs *Jobs, schedule Schedule) *Scheduler {
	cronLogger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &Scheduler{cron: c, jobs: jobs, schedule: schedule}
}

// Start registers the jobs and starts the cron scheduler. A job with an
// invalid schedule is logged and left out.
func (s *Scheduler) Start() {
	entries := []entry{
		{JobRefreshStats, s.schedule.Stats, s.jobs.RefreshStats},
		{JobPurgeBillingEvents, s.schedule.BillingEvents, s.jobs.PurgeBillingEvents},
	}
	if s.schedule.HostSampleInterval > 0 {
		entries = append(entries, entry{JobSampleHost, fmt.Sprintf("@every %ds", s.schedule.HostSampleInterval), s.jobs.SampleHost})
	}
	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(e.spec, e.fn); err != nil {
			log.Errorf("failed to schedule %s job: %s", e.name, err)
			continue
		}
		log.Infof("scheduled %s job: %s", e.name, e.spec)
	}
	s.cron.Start()
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Stop stops the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
