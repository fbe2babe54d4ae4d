// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger drops audit entries older than the retention window.
type Purger interface {
	Purge(ctx context.Context, retention time.Duration) (int, error)
}

// Reaper closes idle editing sessions.
type Reaper interface {
	Reap() int
}

// Sweeper forgets idle rate-limit clients.
type Sweeper interface {
	Cleanup(maxIdle time.Duration) int
}

type Config struct {
	AuditCron      string
	AuditRetention time.Duration // zero disables audit purging
	ReaperCron     string
	LimiterMaxIdle time.Duration
}

type Scheduler struct {
	cron *cron.Cron
}

// New registers every job whose dependency and schedule are set. It fails on
// an unparseable cron expression.
func New(cfg Config, audit Purger, sessions Reaper, limiter Sweeper) (*Scheduler, error) {
	c := cron.New()
	if audit != nil && cfg.AuditCron != "" && cfg.AuditRetention > 0 {
		if _, err := c.AddFunc(cfg.AuditCron, AuditRetention(audit, cfg.AuditRetention)); err != nil {
			return nil, fmt.Errorf("audit cron %q: %w", cfg.AuditCron, err)
		}
		log.Printf("jobs: audit retention scheduled (%s, keep %s)", cfg.AuditCron, cfg.AuditRetention)
	}
	if cfg.ReaperCron != "" && (sessions != nil || limiter != nil) {
		if _, err := c.AddFunc(cfg.ReaperCron, Sweep(sessions, limiter, cfg.LimiterMaxIdle)); err != nil {
			return nil, fmt.Errorf("reaper cron %q: %w", cfg.ReaperCron, err)
		}
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

func AuditRetention(audit Purger, retention time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := audit.Purge(ctx, retention)
		if err != nil {
			log.Printf("jobs: audit retention: %v", err)
			return
		}
		if n > 0 {
			log.Printf("jobs: purged %d audit entries", n)
		}
	}
}

func Sweep(sessions Reaper, limiter Sweeper, maxIdle time.Duration) func() {
	if maxIdle <= 0 {
		maxIdle = 2 * time.Hour
	}
	return func() {
		if sessions != nil {
			if n := sessions.Reap(); n > 0 {
				log.Printf("jobs: reaped %d idle editing sessions", n)
			}
		}
		if limiter != nil {
			limiter.Cleanup(maxIdle)
		}
	}
}
