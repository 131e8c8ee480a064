package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// sessionLocks hands out a short-lived exclusive lease per session id so
// that chat turns on the same session never interleave. Waiters queue in
// channel order; entries are dropped once the last waiter leaves.
type sessionLocks struct {
	mu sync.Mutex
	m  map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: make(map[uuid.UUID]*sessionLock)}
}

func (l *sessionLocks) acquire(ctx context.Context, id uuid.UUID) error {
	l.mu.Lock()
	lock := l.m[id]
	if lock == nil {
		lock = &sessionLock{ch: make(chan struct{}, 1)}
		l.m[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
		return ctx.Err()
	}
}

func (l *sessionLocks) release(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock := l.m[id]
	if lock == nil {
		return
	}
	<-lock.ch
	lock.refs--
	if lock.refs == 0 {
		delete(l.m, id)
	}
}
