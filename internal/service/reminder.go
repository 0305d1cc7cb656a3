package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vkuzmin-dev/polyglot/internal/database"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const (
	minReminderDelay = 10 * time.Second
	maxReminderDelay = 30 * 24 * time.Hour
)

// ReminderScheduler persists reminders and delivers them from a
// polling loop. Pending rows survive restarts; delivery marks a row
// sent or failed, so a crash between poll and mark redelivers.
type ReminderScheduler struct {
	db        database.Database
	tg        telegram.Client
	localizer *Localizer
	logger    logger.Logger
	interval  time.Duration
}

func NewReminderScheduler(
	db database.Database,
	tg telegram.Client,
	localizer *Localizer,
	log logger.Logger,
	interval time.Duration,
) *ReminderScheduler {
	return &ReminderScheduler{
		db:        db,
		tg:        tg,
		localizer: localizer,
		logger:    log.WithField("component", "reminders"),
		interval:  interval,
	}
}

func (s *ReminderScheduler) Schedule(userID, chatID int64, delay time.Duration, text string) (database.Reminder, error) {
	if delay < minReminderDelay {
		return database.Reminder{}, fmt.Errorf("reminder delay must be at least %s", minReminderDelay)
	}
	if delay > maxReminderDelay {
		return database.Reminder{}, fmt.Errorf("reminder delay must be at most %s", maxReminderDelay)
	}
	if text == "" {
		return database.Reminder{}, fmt.Errorf("reminder text cannot be empty")
	}

	reminder := database.Reminder{
		UserID: userID,
		ChatID: chatID,
		FireAt: time.Now().Add(delay),
		Text:   text,
		Status: database.ReminderPending,
	}
	id, err := s.db.CreateReminder(reminder)
	if err != nil {
		return database.Reminder{}, err
	}
	reminder.ID = id

	s.logger.WithFields(logger.Fields{
		"reminder_id": id,
		"user_id":     userID,
		"fire_at":     reminder.FireAt,
	}).Info("Reminder scheduled")
	return reminder, nil
}

func (s *ReminderScheduler) Pending(userID int64) ([]database.Reminder, error) {
	return s.db.ListPendingReminders(userID)
}

// Start runs the polling loop until ctx is cancelled.
func (s *ReminderScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("poll_interval", s.interval.String()).Info("Reminder scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reminder scheduler stopped")
			return
		case <-ticker.C:
			s.deliverDue()
		}
	}
}

func (s *ReminderScheduler) deliverDue() {
	due, err := s.db.DueReminders(time.Now())
	if err != nil {
		s.logger.WithError(err).Error("Failed to query due reminders")
		return
	}

	for _, reminder := range due {
		text := s.localizer.Localize("reminder_fire", map[string]any{
			"Text": reminder.Text,
		})
		_, err := s.tg.SendWithRetry(telegram.NewMessage(reminder.ChatID, text, 0), 2)

		status := database.ReminderSent
		if err != nil {
			status = database.ReminderFailed
			s.logger.WithError(err).WithField("reminder_id", reminder.ID).
				Error("Failed to deliver reminder")
		}
		if err := s.db.MarkReminder(reminder.ID, status); err != nil {
			s.logger.WithError(err).WithField("reminder_id", reminder.ID).
				Error("Failed to update reminder status")
		}
	}
}
