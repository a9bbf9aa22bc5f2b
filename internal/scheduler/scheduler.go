package scheduler

import (
	"time"

	"repair-intake/internal/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the periodic reminder sweep.
type Scheduler struct {
	cron      *cron.Cron
	reminders *services.ReminderService
	log       *zap.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(reminders *services.ReminderService, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		reminders: reminders,
		log:       log,
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Scheduler) Start(sweepInterval string) error {
	_, err := s.cron.AddFunc(sweepInterval, func() {
		if err := s.reminders.Sweep(time.Now()); err != nil {
			s.log.Error("reminder sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("scheduler started", zap.String("interval", sweepInterval))
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}
