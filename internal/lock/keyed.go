// Package lock serializes structural writes per project.
//
// Two writers on the same project wait for each other; writers on different
// projects never contend. Acquisition is bounded so a stuck holder surfaces as a
// retryable conflict instead of blocking callers forever.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
)

// DefaultWait is how long Acquire waits for a busy key before giving up.
const DefaultWait = 15 * time.Second

// ErrWaitExceeded is wrapped when the wait budget runs out before the key frees up.
var ErrWaitExceeded = errors.New("lock wait exceeded")

// Locker hands out exclusive access per key.
type Locker interface {
	// Acquire blocks until key is free, ctx is done, or the wait budget runs out.
	// The returned release func must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// KeyedMutex is an in-process Locker. Each key owns a one-slot channel; the
// entry is dropped once no goroutine holds or waits for it.
type KeyedMutex struct {
	mu      sync.Mutex
	wait    time.Duration
	entries map[string]*entry
	onWait  func(key string, waited time.Duration, acquired bool)
}

type entry struct {
	slot chan struct{}
	refs int
}

// Option configures a KeyedMutex.
type Option func(*KeyedMutex)

// WithWait overrides DefaultWait. Non-positive values wait until ctx is done.
func WithWait(d time.Duration) Option {
	return func(m *KeyedMutex) { m.wait = d }
}

// WithWaitObserver registers a callback invoked after every acquisition attempt.
func WithWaitObserver(fn func(key string, waited time.Duration, acquired bool)) Option {
	return func(m *KeyedMutex) { m.onWait = fn }
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex(opts ...Option) *KeyedMutex {
	m := &KeyedMutex{
		wait:    DefaultWait,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire implements Locker.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	e := m.ref(key)
	began := time.Now()

	waitCtx := ctx
	if m.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.wait)
		defer cancel()
	}

	select {
	case e.slot <- struct{}{}:
	case <-waitCtx.Done():
		m.unref(key)
		m.observe(key, time.Since(began), false)
		err := waitCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = ErrWaitExceeded
		}
		return nil, &domain.ConcurrencyConflictError{Op: "acquire project lock", Err: err}
	}
	m.observe(key, time.Since(began), true)

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			m.unref(key)
		})
	}, nil
}

// Len reports how many keys are currently held or awaited.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *KeyedMutex) ref(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	return e
}

func (m *KeyedMutex) unref(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

func (m *KeyedMutex) observe(key string, waited time.Duration, acquired bool) {
	if m.onWait != nil {
		m.onWait(key, waited, acquired)
	}
}
