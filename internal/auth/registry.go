package auth

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/vodhub/internal/domain"
)

const defaultSweepInterval = time.Hour

// RefreshRegistry is the in-memory source of truth for which refresh tokens are honorable.
// A token is usable only while it is present here AND its signature verifies.
type RefreshRegistry struct {
	mu       sync.RWMutex
	records  map[string]domain.RefreshRecord
	now      func() time.Time
	interval time.Duration
	logger   *zap.Logger

	sweepOnce sync.Once
	closeOnce sync.Once
	closed    bool
	stop      chan struct{}
	done      chan struct{}
}

// RegistryOption customizes a RefreshRegistry.
type RegistryOption func(*RefreshRegistry)

// WithRegistryClock overrides the time source used for expiry.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *RefreshRegistry) { r.now = now }
}

// WithSweepInterval sets how often expired records are purged.
func WithSweepInterval(d time.Duration) RegistryOption {
	return func(r *RefreshRegistry) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithRegistryLogger attaches a logger for sweep results.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return func(r *RefreshRegistry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRefreshRegistry creates an empty registry. The sweeper starts with the first Store.
func NewRefreshRegistry(opts ...RegistryOption) *RefreshRegistry {
	r := &RefreshRegistry{
		records:  make(map[string]domain.RefreshRecord),
		now:      time.Now,
		interval: defaultSweepInterval,
		logger:   zap.NewNop(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store inserts a record for token, overwriting any record under the same key.
func (r *RefreshRegistry) Store(token string, id domain.Identity, ttl time.Duration) domain.RefreshRecord {
	now := r.now()
	rec := domain.RefreshRecord{
		Token:     token,
		Identity:  id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	r.mu.Lock()
	r.records[token] = rec
	closed := r.closed
	r.mu.Unlock()

	if !closed {
		r.sweepOnce.Do(func() { go r.sweepLoop() })
	}
	return rec
}

// Verify returns the record for token. Expired records are deleted on sight.
func (r *RefreshRegistry) Verify(token string) (domain.RefreshRecord, bool) {
	r.mu.RLock()
	rec, ok := r.records[token]
	r.mu.RUnlock()
	if !ok {
		return domain.RefreshRecord{}, false
	}

	if rec.Expired(r.now()) {
		r.mu.Lock()
		if cur, still := r.records[token]; still && cur.ExpiresAt.Equal(rec.ExpiresAt) {
			delete(r.records, token)
		}
		r.mu.Unlock()
		return domain.RefreshRecord{}, false
	}
	return rec, true
}

// Revoke deletes the record for token. Missing tokens are ignored.
func (r *RefreshRegistry) Revoke(token string) {
	r.mu.Lock()
	delete(r.records, token)
	r.mu.Unlock()
}

// RevokeAllForIdentity deletes every record owned by username. An empty username targets
// all local (single-password) records. It returns the number of records removed.
func (r *RefreshRegistry) RevokeAllForIdentity(username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, rec := range r.records {
		var match bool
		if username == "" {
			match = rec.Identity.Kind == domain.IdentityLocal
		} else {
			match = rec.Identity.Username == username
		}
		if match {
			delete(r.records, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored records, expired ones included until swept.
func (r *RefreshRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Close stops the sweeper and waits for it to exit. Safe to call more than once.
func (r *RefreshRegistry) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		close(r.stop)
		started := true
		r.sweepOnce.Do(func() { started = false })
		if started {
			<-r.done
		}
	})
}

func (r *RefreshRegistry) sweepLoop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if n := r.sweep(); n > 0 {
				r.logger.Debug("refresh registry sweep", zap.Int("removed", n))
			}
		}
	}
}

func (r *RefreshRegistry) sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, token)
			removed++
		}
	}
	return removed
}
