// Package rendezvous lets a request park until another request signals a name.
// It is best-effort: the database remains the source of truth and callers
// re-read it after Wait returns.
package rendezvous

import (
	"context"
	"sync"
	"time"
)

type waitpoint struct {
	ch      chan struct{}
	waiters int
}

// Local is an in-process Rendezvous.
type Local struct {
	mu     sync.Mutex
	points map[string]*waitpoint
}

// NewLocal returns an empty Local rendezvous.
func NewLocal() *Local {
	return &Local{points: make(map[string]*waitpoint)}
}

// Wait parks until name is notified, timeout elapses or ctx is done. The lock
// is only held to register and unregister, never while parked.
func (l *Local) Wait(ctx context.Context, name string, timeout time.Duration) bool {
	l.mu.Lock()
	p, ok := l.points[name]
	if !ok {
		p = &waitpoint{ch: make(chan struct{})}
		l.points[name] = p
	}
	p.waiters++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.ch:
		return true
	case <-timer.C:
	case <-ctx.Done():
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-p.ch:
		// Notified while we were timing out.
		return true
	default:
	}
	p.waiters--
	if p.waiters == 0 && l.points[name] == p {
		delete(l.points, name)
	}
	return false
}

// Notify wakes every current waiter on name and forgets it, so later waiters
// park afresh.
func (l *Local) Notify(name string) {
	l.mu.Lock()
	p, ok := l.points[name]
	if ok {
		delete(l.points, name)
	}
	l.mu.Unlock()
	if ok {
		close(p.ch)
	}
}

// Len reports the number of names with parked waiters.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.points)
}
