package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	defaultLimit           = 10
	defaultCleanupInterval = 5 * time.Minute
)

// Limiter - скользящее окно запросов на аккаунт.
// Защищает квоту от флуда до того, как запрос дойдет до поиска.
type Limiter struct {
	mu       sync.Mutex
	requests map[int64][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

type Config struct {
	RequestsPerMinute int
	// Window по умолчанию минута
	Window time.Duration
}

// New создает лимитер без фоновой очистки, для тестов и коротких процессов
func New(cfg Config) *Limiter {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = defaultLimit
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return &Limiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// NewWithContext запускает очистку, которая живет до отмены ctx
func NewWithContext(ctx context.Context, cfg Config) *Limiter {
	l := New(cfg)
	go l.cleanup(ctx, defaultCleanupInterval)
	return l
}

func (l *Limiter) Allow(accountID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	fresh := l.freshLocked(accountID, now)

	if len(fresh) >= l.limit {
		l.requests[accountID] = fresh
		return false
	}

	l.requests[accountID] = append(fresh, now)
	return true
}

func (l *Limiter) RemainingRequests(accountID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	cnt := 0
	for _, t := range l.requests[accountID] {
		if t.After(cutoff) {
			cnt++
		}
	}

	if rem := l.limit - cnt; rem > 0 {
		return rem
	}
	return 0
}

// RetryAfter - сколько ждать до освобождения слота, 0 если слот есть
func (l *Limiter) RetryAfter(accountID int64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	fresh := l.freshLocked(accountID, now)
	l.requests[accountID] = fresh
	if len(fresh) < l.limit {
		return 0
	}

	// timestamps идут по возрастанию, первый освободится раньше всех
	return fresh[0].Add(l.window).Sub(now)
}

// ResetTime - когда окно полностью очистится
func (l *Limiter) ResetTime(accountID int64) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.requests[accountID]
	if len(ts) == 0 {
		return l.now()
	}
	return ts[len(ts)-1].Add(l.window)
}

func (l *Limiter) freshLocked(accountID int64, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	old := l.requests[accountID]
	fresh := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}

func (l *Limiter) cleanup(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			l.removeStale()
		}
	}
}

func (l *Limiter) removeStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id := range l.requests {
		fresh := l.freshLocked(id, now)
		if len(fresh) == 0 {
			delete(l.requests, id)
		} else {
			l.requests[id] = fresh
		}
	}
}

func (l *Limiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}
