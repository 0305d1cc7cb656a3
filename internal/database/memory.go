package database

import (
	"database/sql"
)

func (s *sqliteDB) SaveMemory(userID int64, key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO user_memory (user_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, userID, key, value)
	return err
}

func (s *sqliteDB) GetMemory(userID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM user_memory WHERE user_id = ? AND key = ?",
		userID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *sqliteDB) ListMemory(userID int64) ([]MemoryEntry, error) {
	rows, err := s.db.Query(
		"SELECT key, value, updated_at FROM user_memory WHERE user_id = ? ORDER BY key",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		var entry MemoryEntry
		if err := rows.Scan(&entry.Key, &entry.Value, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *sqliteDB) ClearMemory(userID int64) (int64, error) {
	res, err := s.db.Exec("DELETE FROM user_memory WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
