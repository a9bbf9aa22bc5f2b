package services

import (
	"fmt"
	"sync"
	"time"

	"repair-intake/internal/models"
	"repair-intake/internal/query"

	"go.uber.org/zap"
)

// ReminderTracker holds the dismissed-reminder ids for the lifetime of one
// running process. The set is never persisted and never pruned: a dismissed
// reminder comes back after a restart if its date is still today.
type ReminderTracker struct {
	mu        sync.Mutex
	dismissed map[string]struct{}
}

// NewReminderTracker creates an empty tracker.
func NewReminderTracker() *ReminderTracker {
	return &ReminderTracker{dismissed: make(map[string]struct{})}
}

// Dismiss marks a reminder as acknowledged. Idempotent.
func (t *ReminderTracker) Dismiss(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dismissed[id] = struct{}{}
}

// Dismissed returns a snapshot of the dismissed id set.
func (t *ReminderTracker) Dismissed() map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := make(map[string]struct{}, len(t.dismissed))
	for id := range t.dismissed {
		snapshot[id] = struct{}{}
	}
	return snapshot
}

// reminderNotifier delivers a due reminder through the configured channels.
type reminderNotifier interface {
	SendReminder(record *models.RepairRecord) error
}

// ReminderService surfaces due follow-up reminders and pushes them through
// the notification channels once per day.
type ReminderService struct {
	store    *RecordStore
	tracker  *ReminderTracker
	notifier reminderNotifier
	log      *zap.Logger

	mu     sync.Mutex
	sentOn map[string]string // record id -> date last notified
}

// NewReminderService creates a reminder service. notifier may be nil when no
// notification channel is enabled.
func NewReminderService(store *RecordStore, tracker *ReminderTracker, notifier reminderNotifier, log *zap.Logger) *ReminderService {
	return &ReminderService{
		store:    store,
		tracker:  tracker,
		notifier: notifier,
		log:      log,
		sentOn:   make(map[string]string),
	}
}

// Dismiss acknowledges a reminder for the rest of this session.
func (s *ReminderService) Dismiss(id string) {
	s.tracker.Dismiss(id)
}

// Active returns the reminders due at the given instant: reminder date is
// today, the record is not DELIVERED and has not been dismissed. Order
// follows the canonical record list.
func (s *ReminderService) Active(now time.Time) ([]models.RepairRecord, error) {
	records, err := s.store.List()
	if err != nil {
		return nil, err
	}
	today := now.Format("2006-01-02")
	return query.ActiveReminders(records, today, s.tracker.Dismissed()), nil
}

// Sweep is the scheduler entrypoint: it sends every active reminder through
// the notifier channels, at most once per record per day. Delivery failures
// are logged and retried on the next sweep.
func (s *ReminderService) Sweep(now time.Time) error {
	due, err := s.Active(now)
	if err != nil {
		return fmt.Errorf("failed to collect due reminders: %w", err)
	}
	if s.notifier == nil || len(due) == 0 {
		return nil
	}

	today := now.Format("2006-01-02")
	for i := range due {
		record := &due[i]

		s.mu.Lock()
		already := s.sentOn[record.ID] == today
		s.mu.Unlock()
		if already {
			continue
		}

		if err := s.notifier.SendReminder(record); err != nil {
			s.log.Warn("reminder notification failed",
				zap.String("record_id", record.ID),
				zap.String("customer", record.Name),
				zap.Error(err))
			continue
		}

		s.mu.Lock()
		s.sentOn[record.ID] = today
		s.mu.Unlock()
		s.log.Info("reminder notification sent",
			zap.String("record_id", record.ID),
			zap.String("customer", record.Name))
	}
	return nil
}
