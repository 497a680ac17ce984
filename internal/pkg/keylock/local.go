// Package keylock serializes work per key, in-process or across processes.
package keylock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrLockAcquire is returned when ctx ends before the lock is acquired.
var ErrLockAcquire = errors.New("failed to acquire lock")

// UnlockFunc releases a lock. Calling it more than once is harmless.
type UnlockFunc func(ctx context.Context) error

// Locker serializes work per key.
type Locker interface {
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

// Local is an in-process per-key mutex. Entries are reference counted and
// dropped once no holder or waiter remains.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an empty Local locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

// Lock blocks until key is free or ctx is done.
func (l *Local) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, fmt.Errorf("%w: %s: %w", ErrLockAcquire, key, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
		return nil
	}, nil
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Len reports the number of keys currently held or awaited.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
