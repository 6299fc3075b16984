// Package sessions keeps per-candidate interview state in memory between requests.
package sessions

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultCleanupInterval = 5 * time.Minute

// Registry holds values per key with a sliding idle TTL. Evicted values are
// handed to the eviction callback outside the registry lock.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	ttl     time.Duration
	now     func() time.Time
	onEvict func(key string, value T)
	logger  *zap.Logger

	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

type Option[T any] func(*Registry[T])

func WithClock[T any](now func() time.Time) Option[T] {
	return func(r *Registry[T]) { r.now = now }
}

func WithCleanupInterval[T any](d time.Duration) Option[T] {
	return func(r *Registry[T]) { r.interval = d }
}

func WithEviction[T any](fn func(key string, value T)) Option[T] {
	return func(r *Registry[T]) { r.onEvict = fn }
}

// NewRegistry creates a registry and starts its background cleanup.
func NewRegistry[T any](ttl time.Duration, logger *zap.Logger, opts ...Option[T]) *Registry[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry[T]{
		entries:  make(map[string]*entry[T]),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		interval: defaultCleanupInterval,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.cleanupLoop()

	return r
}

// GetOrCreate returns the live value for key, calling create when there is
// none. Access extends the entry's lifetime.
func (r *Registry[T]) GetOrCreate(key string, create func() (T, error)) (T, error) {
	if v, ok := r.Get(key); ok {
		return v, nil
	}

	v, err := create()
	if err != nil {
		var zero T
		return zero, err
	}

	r.mu.Lock()
	if existing, ok := r.entries[key]; ok && r.now().Before(existing.expiresAt) {
		// lost a race with another creator; keep the first value
		existing.expiresAt = r.now().Add(r.ttl)
		r.mu.Unlock()
		r.evict(key, v)
		return existing.value, nil
	}
	r.entries[key] = &entry[T]{value: v, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return v, nil
}

// Get retrieves a value if it exists and hasn't expired
func (r *Registry[T]) Get(key string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[key]
	if !exists || !r.now().Before(e.expiresAt) {
		var zero T
		return zero, false
	}
	e.expiresAt = r.now().Add(r.ttl)
	return e.value, true
}

// Put stores value, evicting whatever was held under key.
func (r *Registry[T]) Put(key string, value T) {
	r.mu.Lock()
	old, had := r.entries[key]
	r.entries[key] = &entry[T]{value: value, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()

	if had {
		r.evict(key, old.value)
	}
}

// Delete removes key and evicts its value.
func (r *Registry[T]) Delete(key string) {
	r.mu.Lock()
	e, had := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if had {
		r.evict(key, e.value)
	}
}

// CompareAndDelete removes key only while it still maps to an entry for
// which match returns true.
func (r *Registry[T]) CompareAndDelete(key string, match func(T) bool) bool {
	r.mu.Lock()
	e, had := r.entries[key]
	if !had || !match(e.value) {
		r.mu.Unlock()
		return false
	}
	delete(r.entries, key)
	r.mu.Unlock()

	r.evict(key, e.value)
	return true
}

// Size returns the current number of entries, expired ones included until cleanup.
func (r *Registry[T]) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the cleanup loop and evicts every entry.
func (r *Registry[T]) Close() {
	r.stopOnce.Do(func() { close(r.stop) })

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry[T])
	r.mu.Unlock()

	for key, e := range entries {
		r.evict(key, e.value)
	}
}

func (r *Registry[T]) cleanupLoop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stop:
			return
		}
	}
}

// cleanup removes expired entries
func (r *Registry[T]) cleanup() {
	r.mu.Lock()
	now := r.now()
	var expired []string
	var values []T
	for key, e := range r.entries {
		if !now.Before(e.expiresAt) {
			expired = append(expired, key)
			values = append(values, e.value)
			delete(r.entries, key)
		}
	}
	r.mu.Unlock()

	if len(expired) > 0 {
		r.logger.Info("evicted idle sessions", zap.Int("count", len(expired)))
	}
	for i, key := range expired {
		r.evict(key, values[i])
	}
}

func (r *Registry[T]) evict(key string, value T) {
	if r.onEvict != nil {
		r.onEvict(key, value)
	}
}
