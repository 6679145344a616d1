// Package scheduler runs automatic reminders for every tenant on a fixed
// interval.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticovision/reminders/internal/reminder"
	"github.com/ticovision/reminders/internal/tenant"
)

type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
}

type ReminderRunner interface {
	ProcessAutomaticReminders(ctx context.Context) (*reminder.DispatchSummary, error)
}

type Scheduler struct {
	tenants  TenantLister
	runner   ReminderRunner
	interval time.Duration
	log      logrus.FieldLogger
}

func New(tenants TenantLister, runner ReminderRunner, interval time.Duration, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		tenants:  tenants,
		runner:   runner,
		interval: interval,
		log:      log.WithField("component", "scheduler"),
	}
}

// Run blocks, running a pass on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.WithField("interval", s.interval.String()).Info("scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce processes automatic reminders for each tenant in turn. A failing
// tenant is logged and does not stop the others. It returns the number of
// tenants processed without error.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	ids, err := s.tenants.ListTenantIDs(ctx)
	if err != nil {
		s.log.WithError(err).Error("list tenants")
		return 0
	}

	ok := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.runner.ProcessAutomaticReminders(tenant.WithTenant(ctx, id)); err != nil {
			s.log.WithError(err).WithField("tenant_id", id).Error("automatic reminders failed")
			continue
		}
		ok++
	}
	return ok
}
