package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// DefaultInitTimeout bounds a single dial attempt.
const DefaultInitTimeout = 30 * time.Second

// Lazy holds a process-wide value created on first use. Concurrent first
// callers share one dial; a failed dial is not cached, so the next call
// tries again. Once closed it stays closed.
type Lazy[T any] struct {
	name    string
	dial    func(ctx context.Context) (T, error)
	closer  func(T) error
	timeout time.Duration

	group  singleflight.Group
	mu     sync.RWMutex
	value  T
	ready  bool
	closed bool
}

// NewLazy creates a Lazy value. closer may be nil.
func NewLazy[T any](name string, dial func(ctx context.Context) (T, error), closer func(T) error) *Lazy[T] {
	return &Lazy[T]{
		name:    name,
		dial:    dial,
		closer:  closer,
		timeout: DefaultInitTimeout,
	}
}

// Get returns the value, dialing it if needed. The dial is detached from
// ctx cancellation so one impatient caller cannot fail it for the others,
// but ctx still bounds how long this caller waits.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		var zero T
		return zero, fmt.Errorf("%w: %s: closed", domain.ErrDependencyUnavailable, l.name)
	}
	if l.ready {
		v := l.value
		l.mu.RUnlock()
		return v, nil
	}
	l.mu.RUnlock()

	ch := l.group.DoChan(l.name, func() (any, error) {
		l.mu.RLock()
		if l.ready {
			v := l.value
			l.mu.RUnlock()
			return v, nil
		}
		l.mu.RUnlock()

		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		v, err := l.dial(dialCtx)
		if err != nil {
			return v, err
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			var zero T
			if l.closer != nil {
				_ = l.closer(v)
			}
			return zero, fmt.Errorf("%w: %s: closed", domain.ErrDependencyUnavailable, l.name)
		}
		l.value = v
		l.ready = true
		l.mu.Unlock()
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, domain.ErrDependencyUnavailable) {
				return zero, fmt.Errorf("%s: %w", l.name, res.Err)
			}
			return zero, fmt.Errorf("%w: %s: %w", domain.ErrDependencyUnavailable, l.name, res.Err)
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}

// Close releases the value if it was created. A dial still in flight
// closes its own result instead of publishing it.
func (l *Lazy[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if !l.ready {
		return nil
	}
	l.ready = false

	if l.closer == nil {
		return nil
	}
	var zero T
	v := l.value
	l.value = zero
	return l.closer(v)
}
