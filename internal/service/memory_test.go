package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkuzmin-dev/polyglot/internal/database"
)

// stubMemoryDB overrides only the memory methods; the embedded
// interface covers the rest of the surface.
type stubMemoryDB struct {
	database.Database
	saved map[string]string
}

func (s *stubMemoryDB) SaveMemory(userID int64, key, value string) error {
	s.saved[key] = value
	return nil
}

func (s *stubMemoryDB) GetMemory(userID int64, key string) (string, error) {
	return s.saved[key], nil
}

func TestMemorySaveNormalizesKey(t *testing.T) {
	db := &stubMemoryDB{saved: make(map[string]string)}
	m := NewMemory(db)

	require.NoError(t, m.Save(1, "  MyCity  ", "Berlin"))
	assert.Equal(t, "Berlin", db.saved["mycity"])

	value, err := m.Get(1, "MYCITY")
	require.NoError(t, err)
	assert.Equal(t, "Berlin", value)
}

func TestMemorySaveValidation(t *testing.T) {
	db := &stubMemoryDB{saved: make(map[string]string)}
	m := NewMemory(db)

	assert.Error(t, m.Save(1, "", "value"))
	assert.Error(t, m.Save(1, "key", "   "))
	assert.Error(t, m.Save(1, strings.Repeat("k", maxMemoryKeyLength+1), "value"))
	assert.Error(t, m.Save(1, "key", strings.Repeat("v", maxMemoryValueLength+1)))
	assert.Empty(t, db.saved)
}
