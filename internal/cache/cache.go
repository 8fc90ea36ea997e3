package cache

import "time"

// Cache - TTL-кеш, сейчас используется для страниц выдачи
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
}
