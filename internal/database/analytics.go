package database

import (
	"context"
)

func (s *sqliteDB) TrackEvent(ctx context.Context, event Event) error {
	_, err := s.ExecWithRetry(ctx, `
		INSERT INTO analytics (id, user_id, event, capability, provider, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, event.UserID, event.Event, event.Capability, event.Provider, event.DurationMs)
	return err
}

func (s *sqliteDB) UserStats(userID int64) (*UserStats, error) {
	stats := &UserStats{
		ByCapability: make(map[string]int64),
		ByProvider:   make(map[string]int64),
	}

	err := s.db.QueryRow(`
		SELECT COUNT(*), CAST(COALESCE(AVG(duration_ms), 0) AS INTEGER),
		       COALESCE(MIN(created_at), CURRENT_TIMESTAMP),
		       COALESCE(MAX(created_at), CURRENT_TIMESTAMP)
		FROM analytics WHERE user_id = ?
	`, userID).Scan(&stats.TotalRequests, &stats.AvgDurationMs, &stats.FirstActivity, &stats.LastActivity)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT capability, COUNT(*) FROM analytics
		WHERE user_id = ? AND capability != ''
		GROUP BY capability
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var capability string
		var count int64
		if err := rows.Scan(&capability, &count); err != nil {
			return nil, err
		}
		stats.ByCapability[capability] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	providerRows, err := s.db.Query(`
		SELECT provider, COUNT(*) FROM analytics
		WHERE user_id = ? AND provider != ''
		GROUP BY provider
	`, userID)
	if err != nil {
		return nil, err
	}
	defer providerRows.Close()
	for providerRows.Next() {
		var provider string
		var count int64
		if err := providerRows.Scan(&provider, &count); err != nil {
			return nil, err
		}
		stats.ByProvider[provider] = count
	}
	if err := providerRows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM user_memory WHERE user_id = ?", userID,
	).Scan(&stats.MemoryEntries); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM reminders WHERE user_id = ? AND status = ?",
		userID, ReminderPending,
	).Scan(&stats.ActiveReminders); err != nil {
		return nil, err
	}

	return stats, nil
}
