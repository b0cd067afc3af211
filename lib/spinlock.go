package lib

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is a busy-wait mutual exclusion lock over a single flag.
//
// It is not reentrant: calling Lock twice from the same goroutine without
// an Unlock in between spins forever. Unlock does not check ownership; it
// clears the flag whoever holds it. There is no fairness, a waiter can be
// overtaken indefinitely under contention. Prefer Do, which pairs the calls.
type SpinLock struct {
	held atomic.Bool
}

// Lock polls until it moves the flag from free to held.
func (l *SpinLock) Lock() {
	for !l.TryLock() {
		runtime.Gosched()
	}
}

// TryLock takes the lock if it is free and reports whether it did.
func (l *SpinLock) TryLock() bool {
	return !l.held.Load() && l.held.CompareAndSwap(false, true)
}

func (l *SpinLock) Unlock() {
	l.held.Store(false)
}

func (l *SpinLock) Held() bool {
	return l.held.Load()
}

// Do runs fn with the lock held. The lock is released however fn returns,
// panics included.
func (l *SpinLock) Do(fn func()) {
	l.Lock()
	defer l.Unlock()
	fn()
}

// Guarded holds a value that is only reachable with its lock held.
type Guarded[T any] struct {
	lock SpinLock
	v    T
}

func NewGuarded[T any](v T) *Guarded[T] {
	return &Guarded[T]{v: v}
}

func (g *Guarded[T]) Do(fn func(v *T)) {
	g.lock.Do(func() { fn(&g.v) })
}
