package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	GetOrCompute(key string, compute func() T) (T, bool)
	Delete(key string)
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically drops expired entries from registered caches.
type Janitor struct {
	caches []Cleaner
	logger *slog.Logger
}

// NewJanitor creates a janitor for caches.
func NewJanitor(logger *slog.Logger, caches ...Cleaner) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{caches: caches, logger: logger}
}

// Sweep cleans every registered cache once and returns the number of removed entries.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run sweeps every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
