package service

import (
	"fmt"
	"strings"

	"github.com/vkuzmin-dev/polyglot/internal/database"
)

const (
	maxMemoryKeyLength   = 64
	maxMemoryValueLength = 2048
)

// Memory is the per-user durable key/value store behind /memory.
// Entries survive restarts; conversation context does not.
type Memory struct {
	db database.Database
}

func NewMemory(db database.Database) *Memory {
	return &Memory{db: db}
}

func (m *Memory) Save(userID int64, key, value string) error {
	key = normalizeMemoryKey(key)
	if key == "" {
		return fmt.Errorf("memory key cannot be empty")
	}
	if len(key) > maxMemoryKeyLength {
		return fmt.Errorf("memory key too long (max %d characters)", maxMemoryKeyLength)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("memory value cannot be empty")
	}
	if len(value) > maxMemoryValueLength {
		return fmt.Errorf("memory value too long (max %d characters)", maxMemoryValueLength)
	}
	return m.db.SaveMemory(userID, key, value)
}

func (m *Memory) Get(userID int64, key string) (string, error) {
	return m.db.GetMemory(userID, normalizeMemoryKey(key))
}

func (m *Memory) List(userID int64) ([]database.MemoryEntry, error) {
	return m.db.ListMemory(userID)
}

func (m *Memory) Clear(userID int64) (int64, error) {
	return m.db.ClearMemory(userID)
}

func normalizeMemoryKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
