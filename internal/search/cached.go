package search

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/kitbuilder587/fetscr/internal/cache"
	"github.com/kitbuilder587/fetscr/internal/metrics"
)

// CachedFetcher кеширует непустые страницы. Пустые не кешируем:
// это может быть временный сбой провайдера.
type CachedFetcher struct {
	inner   PageFetcher
	cache   cache.Cache[Page]
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewCachedFetcher(inner PageFetcher, c cache.Cache[Page], ttl time.Duration, m *metrics.Metrics) *CachedFetcher {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedFetcher{
		inner:   inner,
		cache:   c,
		ttl:     ttl,
		metrics: m,
	}
}

func (f *CachedFetcher) FetchPage(ctx context.Context, query string, start int) Page {
	key := PageKey(query, start)

	if page, ok := f.cache.Get(key); ok {
		if f.metrics != nil {
			f.metrics.RecordCacheHit()
		}
		return page
	}
	if f.metrics != nil {
		f.metrics.RecordCacheMiss()
	}

	page := f.inner.FetchPage(ctx, query, start)
	if !page.Empty() {
		f.cache.Set(key, page, f.ttl)
	}
	return page
}

// PageKey - ключ кеша для (запрос, offset)
func PageKey(query string, start int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("page:%x:%d", hash[:8], start)
}
