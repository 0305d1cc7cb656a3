// Package cache is a small TTL byte cache with a memory level in
// front of a SQLite-backed level. It holds fetched page text and
// other derived data that is expensive to rebuild but fine to lose.
package cache

import "time"

type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, data []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}
