// Package slotlock serializes check-then-write sections per event type and
// date. The storage exclusion constraint stays the authoritative guard; the
// lock keeps concurrent requests from racing into it.
package slotlock

import (
	"context"
	"sync"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

type Locker interface {
	// Acquire blocks until key is held or ctx is done. The returned release
	// func is safe to call once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func Key(eventTypeID string, date wallclock.Date) string {
	return "slot:" + eventTypeID + ":" + date.String()
}

// Local is an in-process keyed mutex.
type Local struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: map[string]*localEntry{}}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e := l.locks[key]
	if e == nil {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
	}, nil
}

func (l *Local) unref(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
