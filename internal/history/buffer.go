// Package history keeps the in-memory conversation windows that feed
// multi-turn text generation. One bounded FIFO per user; durable logs
// live in the database layer and are never read back into prompts.
package history

import (
	"sync"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
)

type Buffer struct {
	mu    sync.Mutex
	size  int
	turns map[int64][]ai.Turn
}

// NewBuffer builds a buffer holding at most size turns per user.
func NewBuffer(size int) *Buffer {
	return &Buffer{
		size:  size,
		turns: make(map[int64][]ai.Turn),
	}
}

// Append pushes a turn onto the user's window, evicting the oldest
// entry once the window is full. User and assistant turns share the
// same window.
func (b *Buffer) Append(user int64, turn ai.Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	turns := append(b.turns[user], turn)
	if len(turns) > b.size {
		turns = turns[len(turns)-b.size:]
	}
	b.turns[user] = turns
}

// Snapshot returns an immutable chronological copy of the user's
// window, oldest first. Later appends never mutate a returned
// snapshot. Unknown users get an empty slice.
func (b *Buffer) Snapshot(user int64) []ai.Turn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ai.Turn{}, b.turns[user]...)
}

// Clear drops the user's window. Idempotent; unknown users are a
// no-op.
func (b *Buffer) Clear(user int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.turns, user)
}

// Len returns the user's current window length.
func (b *Buffer) Len(user int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.turns[user])
}

// Size returns the configured per-user capacity.
func (b *Buffer) Size() int {
	return b.size
}
