package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkuzmin-dev/polyglot/internal/database"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

type stubReminderDB struct {
	database.Database
	created []database.Reminder
}

func (s *stubReminderDB) CreateReminder(reminder database.Reminder) (int64, error) {
	s.created = append(s.created, reminder)
	return int64(len(s.created)), nil
}

func TestScheduleReminder(t *testing.T) {
	db := &stubReminderDB{}
	s := NewReminderScheduler(db, nil, nil, logger.NewTestLogger(), time.Second)

	reminder, err := s.Schedule(1, 10, 30*time.Minute, "stretch")
	require.NoError(t, err)
	assert.EqualValues(t, 1, reminder.ID)
	assert.Equal(t, "stretch", reminder.Text)
	assert.Equal(t, database.ReminderPending, reminder.Status)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), reminder.FireAt, 5*time.Second)
}

func TestScheduleReminderBounds(t *testing.T) {
	db := &stubReminderDB{}
	s := NewReminderScheduler(db, nil, nil, logger.NewTestLogger(), time.Second)

	_, err := s.Schedule(1, 10, 5*time.Second, "too soon")
	assert.Error(t, err)

	_, err = s.Schedule(1, 10, 31*24*time.Hour, "too far")
	assert.Error(t, err)

	_, err = s.Schedule(1, 10, time.Minute, "")
	assert.Error(t, err)

	assert.Empty(t, db.created)
}
