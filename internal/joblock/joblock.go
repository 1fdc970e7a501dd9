package joblock

import (
	"context"
	"sync"
	"time"
)

// Lock gates scheduled jobs that must not overlap. TryAcquire never
// blocks: a false return means another run holds the lock and the caller
// should skip its tick.
type Lock interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// LocalLock is the in-process implementation, sufficient for a
// single-instance deployment.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocalLock() *LocalLock {
	return &LocalLock{
		held: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (l *LocalLock) TryAcquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.held[name]; ok && l.now().Before(expiry) {
		return false, nil
	}

	l.held[name] = l.now().Add(ttl)
	return true, nil
}

func (l *LocalLock) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, name)
	return nil
}
