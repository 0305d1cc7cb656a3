package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

func newTestDB(t *testing.T) *sqliteDB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db))
	return &sqliteDB{db: db, logger: logger.NewTestLogger()}
}

func TestSaveAndGetUser(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.SaveUser(User{
		ID:        42,
		FirstName: "Alice",
		Username:  "alice",
		Language:  "en",
	}))

	user, err := db.GetUser(42)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FirstName)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, user.PublicID)

	// Upsert keeps the row, updates the mutable fields.
	require.NoError(t, db.SaveUser(User{
		ID:        42,
		FirstName: "Alice B",
		Username:  "alice",
		Language:  "ru",
	}))
	user, err = db.GetUser(42)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", user.FirstName)
	assert.Equal(t, "ru", user.Language)
}

func TestGetUserNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUser(999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPreferredProvider(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.SaveUser(User{ID: 1, FirstName: "A"}))

	// Unset preference is empty, not an error.
	provider, err := db.GetPreferredProvider(1)
	require.NoError(t, err)
	assert.Empty(t, provider)

	require.NoError(t, db.SetPreferredProvider(1, "gemini"))
	provider, err = db.GetPreferredProvider(1)
	require.NoError(t, err)
	assert.Equal(t, "gemini", provider)

	require.NoError(t, db.SetPreferredProvider(1, "openai"))
	provider, err = db.GetPreferredProvider(1)
	require.NoError(t, err)
	assert.Equal(t, "openai", provider)
}

func TestMemoryRoundTrip(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.SaveMemory(1, "city", "Berlin"))
	require.NoError(t, db.SaveMemory(1, "lang", "Go"))
	require.NoError(t, db.SaveMemory(2, "city", "Oslo"))

	value, err := db.GetMemory(1, "city")
	require.NoError(t, err)
	assert.Equal(t, "Berlin", value)

	// Same key overwrites.
	require.NoError(t, db.SaveMemory(1, "city", "Munich"))
	value, err = db.GetMemory(1, "city")
	require.NoError(t, err)
	assert.Equal(t, "Munich", value)

	entries, err := db.ListMemory(1)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	count, err := db.ClearMemory(1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// User 2 is untouched.
	value, err = db.GetMemory(2, "city")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", value)
}

func TestReminderLifecycle(t *testing.T) {
	db := newTestDB(t)

	id, err := db.CreateReminder(Reminder{
		UserID: 1,
		ChatID: 10,
		FireAt: time.Now().Add(-time.Minute),
		Text:   "stretch",
		Status: ReminderPending,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	future, err := db.CreateReminder(Reminder{
		UserID: 1,
		ChatID: 10,
		FireAt: time.Now().Add(time.Hour),
		Text:   "later",
		Status: ReminderPending,
	})
	require.NoError(t, err)

	due, err := db.DueReminders(time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "stretch", due[0].Text)

	require.NoError(t, db.MarkReminder(id, ReminderSent))

	due, err = db.DueReminders(time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)

	pending, err := db.ListPendingReminders(1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, future, pending[0].ID)
}

func TestTrackEventAndUserStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	events := []Event{
		{ID: "e1", UserID: 1, Event: "chat", Capability: "text_generation", Provider: "gemini", DurationMs: 100},
		{ID: "e2", UserID: 1, Event: "chat", Capability: "text_generation", Provider: "openai", DurationMs: 300},
		{ID: "e3", UserID: 1, Event: "image", Capability: "image_generation", Provider: "openai", DurationMs: 200},
		{ID: "e4", UserID: 2, Event: "chat", Capability: "text_generation", Provider: "gemini", DurationMs: 50},
	}
	for _, event := range events {
		require.NoError(t, db.TrackEvent(ctx, event))
	}

	stats, err := db.UserStats(1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalRequests)
	assert.EqualValues(t, 200, stats.AvgDurationMs)
	assert.EqualValues(t, 2, stats.ByCapability["text_generation"])
	assert.EqualValues(t, 1, stats.ByCapability["image_generation"])
	assert.EqualValues(t, 2, stats.ByProvider["openai"])
}

func TestSaveConversation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveConversation(ctx, Conversation{
		UserID:     1,
		Capability: "text_generation",
		Prompt:     "hello",
		Response:   "hi",
		Provider:   "gemini",
		RequestID:  "req-1",
		DurationMs: 120,
	}))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&count))
	assert.Equal(t, 1, count)

	// Fresh rows survive a purge of old ones.
	purged, err := db.PurgeOldConversations(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, purged)
}
