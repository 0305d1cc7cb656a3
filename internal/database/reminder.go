package database

import (
	"database/sql"
	"time"
)

func (s *sqliteDB) CreateReminder(reminder Reminder) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO reminders (user_id, chat_id, fire_at, text, status)
		VALUES (?, ?, ?, ?, ?)
	`, reminder.UserID, reminder.ChatID, reminder.FireAt.UTC(), reminder.Text, ReminderPending)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DueReminders returns pending reminders whose fire time has passed,
// oldest first. The scheduler marks each one sent or failed after
// delivery, so a crash between poll and mark redelivers rather than
// drops.
func (s *sqliteDB) DueReminders(now time.Time) ([]Reminder, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, chat_id, fire_at, text, status, created_at
		FROM reminders
		WHERE status = ? AND fire_at <= ?
		ORDER BY fire_at
	`, ReminderPending, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (s *sqliteDB) MarkReminder(id int64, status ReminderStatus) error {
	_, err := s.db.Exec("UPDATE reminders SET status = ? WHERE id = ?", status, id)
	return err
}

func (s *sqliteDB) ListPendingReminders(userID int64) ([]Reminder, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, chat_id, fire_at, text, status, created_at
		FROM reminders
		WHERE user_id = ? AND status = ?
		ORDER BY fire_at
	`, userID, ReminderPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func scanReminders(rows *sql.Rows) ([]Reminder, error) {
	var reminders []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.UserID, &r.ChatID, &r.FireAt, &r.Text, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}
