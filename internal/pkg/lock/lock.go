// Package lock provides per-key locking so that every message handler and
// timer callback touching the same chat session runs one at a time.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex wraps a mutex with reference counting for cleanup.
type keyMutex struct {
	mu   sync.Mutex
	refs int
}

// ChatLock serialises work per session key (e.g. "wcg:-100123").
// Keys that nobody holds or waits for are dropped from the table.
type ChatLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewChatLock creates a new ChatLock instance.
func NewChatLock() *ChatLock {
	return &ChatLock{
		locks: make(map[string]*keyMutex),
	}
}

// acquire returns the mutex for key, creating it if needed, and takes a reference.
func (l *ChatLock) acquire(key string) *keyMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[key]
	if !ok {
		m = &keyMutex{}
		l.locks[key] = m
	}
	m.refs++
	return m
}

// release drops a reference and forgets the mutex once unused.
func (l *ChatLock) release(key string, m *keyMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m.refs--
	if m.refs <= 0 {
		delete(l.locks, key)
	}
}

// Lock acquires the lock for key.
func (l *ChatLock) Lock(key string) {
	m := l.acquire(key)
	m.mu.Lock()
}

// Unlock releases the lock for key.
func (l *ChatLock) Unlock(key string) {
	l.mu.Lock()
	m, ok := l.locks[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	m.mu.Unlock()
	l.release(key, m)
}

// LockWithTimeout attempts to acquire the lock until timeout or ctx expires.
// Returns true if the lock was acquired.
func (l *ChatLock) LockWithTimeout(ctx context.Context, key string, timeout time.Duration) bool {
	m := l.acquire(key)

	done := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// The waiter still owns a reference; it hands the lock straight back.
		go func() {
			<-done
			m.mu.Unlock()
			l.release(key, m)
		}()
		return false
	}
}

// WithLockContext executes fn while holding the lock for key, giving up with
// ErrLockTimeout if the lock cannot be taken within timeout.
func (l *ChatLock) WithLockContext(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	if !l.LockWithTimeout(ctx, key, timeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLockTimeout
	}
	defer l.Unlock(key)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
