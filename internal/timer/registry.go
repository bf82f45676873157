// Package timer keeps the deferred lobby and turn expiry callbacks of every
// live session.
package timer

import (
	"sync"
	"time"
)

// Kind distinguishes the independent timer classes of a session.
type Kind int

const (
	Lobby Kind = iota // Closes the join window
	Turn              // Forfeits the current turn holder
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case Lobby:
		return "lobby"
	case Turn:
		return "turn"
	default:
		return "unknown"
	}
}

// Timer is a handle to one armed callback.
type Timer struct {
	key  string
	kind Kind
	t    *time.Timer
}

// Key returns the session key the timer belongs to.
func (t *Timer) Key() string {
	return t.key
}

// Kind returns the timer class.
func (t *Timer) Kind() Kind {
	return t.kind
}

type slot struct {
	key  string
	kind Kind
}

// Registry holds at most one pending timer per key and kind.
type Registry struct {
	mu     sync.Mutex
	timers map[slot]*Timer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		timers: make(map[slot]*Timer),
	}
}

// Arm schedules fn after delay, replacing any timer of the same kind for key.
// fn receives its own handle; it should Claim it before acting so a timer
// that was cancelled or replaced in the meantime does nothing.
func (r *Registry) Arm(key string, kind Kind, delay time.Duration, fn func(*Timer)) *Timer {
	h := &Timer{key: key, kind: kind}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := slot{key: key, kind: kind}
	if prev, ok := r.timers[s]; ok {
		prev.t.Stop()
	}
	h.t = time.AfterFunc(delay, func() { fn(h) })
	r.timers[s] = h
	return h
}

// Cancel stops the timer of the given kind for key. Cancelling a timer that
// is absent, already cancelled or already fired is a no-op.
func (r *Registry) Cancel(key string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := slot{key: key, kind: kind}
	if h, ok := r.timers[s]; ok {
		h.t.Stop()
		delete(r.timers, s)
	}
}

// CancelAll stops every timer of key.
func (r *Registry) CancelAll(key string) {
	r.Cancel(key, Lobby)
	r.Cancel(key, Turn)
}

// Claim removes h from the registry if it is still the registered timer for
// its slot. It returns false for stale handles, i.e. timers that were
// cancelled or replaced after they fired.
func (r *Registry) Claim(h *Timer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := slot{key: h.key, kind: h.kind}
	if cur, ok := r.timers[s]; ok && cur == h {
		delete(r.timers, s)
		return true
	}
	return false
}

// Rearm schedules fn again in place of h, provided h is still the registered
// timer for its slot. It reports whether the timer was rearmed.
func (r *Registry) Rearm(h *Timer, delay time.Duration, fn func(*Timer)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := slot{key: h.key, kind: h.kind}
	if cur, ok := r.timers[s]; !ok || cur != h {
		return false
	}
	next := &Timer{key: h.key, kind: h.kind}
	next.t = time.AfterFunc(delay, func() { fn(next) })
	r.timers[s] = next
	return true
}

// Pending reports whether a timer of the given kind is armed for key.
func (r *Registry) Pending(key string, kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[slot{key: key, kind: kind}]
	return ok
}

// Stop cancels every timer. Used on shutdown.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for s, h := range r.timers {
		h.t.Stop()
		delete(r.timers, s)
	}
}
