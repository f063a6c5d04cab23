package crisislink

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultFixTTL is how long a cached position fix stays fresh.
const DefaultFixTTL = 5 * time.Minute

// ErrLocationUnavailable is returned when no fix can be acquired and no
// cached fix exists to fall back on.
var ErrLocationUnavailable = errors.New("crisislink: location unavailable")

// PositionSource acquires a fresh fix from the device's positioning
// hardware. It may block and should honor the context deadline.
type PositionSource func(ctx context.Context) (Fix, error)

// Sampler caches position fixes from a PositionSource. Repeated samples
// within the TTL reuse the cached coordinates instead of waking the
// hardware, which matters on a phone running an SOS session for hours.
type Sampler struct {
	source  PositionSource
	battery func() int
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	cached *Fix
}

// NewSampler creates a sampler over the given source. A non-positive
// ttl selects DefaultFixTTL.
func NewSampler(source PositionSource, ttl time.Duration) *Sampler {
	if ttl <= 0 {
		ttl = DefaultFixTTL
	}
	return &Sampler{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetBatterySource installs a battery level reader. Battery is cheap to
// read, so it is refreshed on every sample, cache hit or not.
func (s *Sampler) SetBatterySource(f func() int) {
	s.mu.Lock()
	s.battery = f
	s.mu.Unlock()
}

// Sample returns the current position fix. A cached fix younger than
// the TTL is returned as-is with only the battery level refreshed. When
// the cache is cold or expired the source is consulted; if that fails
// and a stale fix exists, the stale fix is returned so callers always
// have a last-known position. ErrLocationUnavailable is returned only
// when there is nothing at all to report.
func (s *Sampler) Sample(ctx context.Context) (Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cached != nil && now.UnixMilli()-s.cached.Timestamp < s.ttl.Milliseconds() {
		s.refreshBatteryLocked()
		return *s.cached, nil
	}

	fix, err := s.source(ctx)
	if err != nil {
		if s.cached != nil {
			s.refreshBatteryLocked()
			return *s.cached, nil
		}
		return Fix{}, ErrLocationUnavailable
	}

	if fix.Timestamp == 0 {
		fix.Timestamp = now.UnixMilli()
	}
	if fix.TTLSeconds == 0 {
		fix.TTLSeconds = int(s.ttl.Seconds())
	}
	s.cached = &fix
	s.refreshBatteryLocked()
	return *s.cached, nil
}

func (s *Sampler) refreshBatteryLocked() {
	if s.battery != nil && s.cached != nil {
		s.cached.Battery = s.battery()
	}
}

// Last returns the most recent fix without consulting the source, even
// if it has expired.
func (s *Sampler) Last() (Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return Fix{}, false
	}
	return *s.cached, true
}

// Watch samples at the given interval and passes each fix to fn.
// Acquisition failures are skipped silently. The returned function
// stops the watcher.
func (s *Sampler) Watch(interval time.Duration, fn func(Fix)) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fix, err := s.Sample(context.Background())
				if err != nil {
					continue
				}
				fn(fix)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
