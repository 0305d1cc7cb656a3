package database

import (
	"context"
	"database/sql"
	"time"
)

type Database interface {
	GetDB() *sql.DB

	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Close() error
	ExecWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Users and preferences
	GetUser(userID int64) (*User, error)
	SaveUser(user User) error
	SetPreferredProvider(userID int64, provider string) error
	GetPreferredProvider(userID int64) (string, error)

	// Durable conversation log (never read back into prompts)
	SaveConversation(ctx context.Context, conv Conversation) error
	PurgeOldConversations(olderThan time.Duration) (int64, error)

	// Per-user key/value memory
	SaveMemory(userID int64, key, value string) error
	GetMemory(userID int64, key string) (string, error)
	ListMemory(userID int64) ([]MemoryEntry, error)
	ClearMemory(userID int64) (int64, error)

	// Reminders
	CreateReminder(reminder Reminder) (int64, error)
	DueReminders(now time.Time) ([]Reminder, error)
	MarkReminder(id int64, status ReminderStatus) error
	ListPendingReminders(userID int64) ([]Reminder, error)

	// Analytics
	TrackEvent(ctx context.Context, event Event) error
	UserStats(userID int64) (*UserStats, error)

	// Task queue maintenance
	PurgeOldTasks(olderThan time.Duration) (int64, error)
}

type User struct {
	ID                int64     `json:"id"`
	PublicID          string    `json:"public_id"`
	FirstName         string    `json:"first_name"`
	Username          string    `json:"username"`
	Language          string    `json:"language"`
	PreferredProvider string    `json:"preferred_provider"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Equal ignores timestamps and the preferred provider: those change
// through their own paths, not the upsert-on-contact flow.
func (u User) Equal(user User) bool {
	return u.FirstName == user.FirstName &&
		u.Username == user.Username &&
		u.Language == user.Language &&
		user.PublicID != ""
}

// Conversation is one successful dispatch, recorded after the reply is
// delivered.
type Conversation struct {
	ID         int64
	UserID     int64
	Capability string
	Prompt     string
	Response   string
	Provider   string
	RequestID  string
	DurationMs int64
	CreatedAt  time.Time
}

type MemoryEntry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
)

type Reminder struct {
	ID        int64
	UserID    int64
	ChatID    int64
	FireAt    time.Time
	Text      string
	Status    ReminderStatus
	CreatedAt time.Time
}

// Event is one analytics row. ID is a UUID assigned by the caller.
type Event struct {
	ID         string
	UserID     int64
	Event      string
	Capability string
	Provider   string
	DurationMs int64
}

type UserStats struct {
	TotalRequests   int64
	ByCapability    map[string]int64
	ByProvider      map[string]int64
	AvgDurationMs   int64
	FirstActivity   time.Time
	LastActivity    time.Time
	MemoryEntries   int64
	ActiveReminders int64
}
