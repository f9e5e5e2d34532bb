// Package lock provides non-blocking, per-resource admission locks used to
// serialize check-then-write sequences against a single property.
package lock

import (
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when another in-flight operation already holds the
// lock for the resource. Callers surface it immediately instead of queuing.
var ErrBusy = errors.New("resource admission already in progress")

type entry struct {
	busy     bool
	lastUsed time.Time
}

// Registry maps resource IDs to admission locks. Entries are created lazily
// on first acquisition and swept once idle; an entry is never evicted while
// held, so recreation after eviction is always safe.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	stopCh  chan struct{}
	stopped sync.Once
}

func NewRegistry(idleTTL, sweepInterval time.Duration) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		ttl:     idleTTL,
		stopCh:  make(chan struct{}),
	}

	go r.sweep(sweepInterval)

	return r
}

// TryAcquire attempts a non-blocking acquisition of the resource's lock.
// It returns ErrBusy without waiting when the lock is already held.
func (r *Registry) TryAcquire(resourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[resourceID]
	if !ok {
		e = &entry{}
		r.entries[resourceID] = e
	}

	if e.busy {
		return ErrBusy
	}

	e.busy = true
	e.lastUsed = time.Now()
	return nil
}

// Release frees the resource's lock. Releasing an unheld lock is a no-op.
func (r *Registry) Release(resourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[resourceID]; ok {
		e.busy = false
		e.lastUsed = time.Now()
	}
}

// WithLock runs fn while holding the resource's admission lock, releasing it
// unconditionally afterwards. Contention returns ErrBusy before fn runs.
func (r *Registry) WithLock(resourceID string, fn func() error) error {
	if err := r.TryAcquire(resourceID); err != nil {
		return err
	}
	defer r.Release(resourceID)

	return fn()
}

func (r *Registry) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			for id, e := range r.entries {
				if !e.busy && time.Since(e.lastUsed) > r.ttl {
					delete(r.entries, id)
				}
			}
			r.mu.Unlock()
		case <-r.stopCh:
			return
		}
	}
}

// Size reports how many lock entries are currently tracked.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) Stop() {
	r.stopped.Do(func() { close(r.stopCh) })
}
