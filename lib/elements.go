package lib

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrUnknownLock = errors.New("spinlock is not defined")

// Output is a downstream stage. Push hands the buffer over; the receiver
// owns it from then on.
type Output interface {
	Push(p *Buffer)
}

type OutputFunc func(p *Buffer)

func (f OutputFunc) Push(p *Buffer) { f(p) }

// Discard kills everything pushed to it.
var Discard Output = OutputFunc(func(p *Buffer) { p.Kill() })

// SpinlockInfo names the spinlocks shared by the stages of one pipeline.
type SpinlockInfo struct {
	mu    sync.Mutex
	locks map[string]*SpinLock
}

func NewSpinlockInfo(names ...string) *SpinlockInfo {
	info := &SpinlockInfo{locks: make(map[string]*SpinLock)}
	for _, name := range names {
		info.Define(name)
	}
	return info
}

// Define returns the lock called name, creating it on first use.
func (s *SpinlockInfo) Define(name string) *SpinLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = new(SpinLock)
		s.locks[name] = l
	}
	return l
}

func (s *SpinlockInfo) Lookup(name string) (*SpinLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownLock, "%q", name)
	}
	return l, nil
}

// SpinlockAcquire takes a lock and forwards the packet. A SpinlockRelease
// further down the same path must give it back.
type SpinlockAcquire struct {
	lock *SpinLock
	next Output
}

func NewSpinlockAcquire(info *SpinlockInfo, name string, next Output) (*SpinlockAcquire, error) {
	l, err := info.Lookup(name)
	if err != nil {
		return nil, errors.Wrap(err, "SpinlockAcquire")
	}
	return &SpinlockAcquire{lock: l, next: next}, nil
}

func (s *SpinlockAcquire) Push(p *Buffer) {
	s.lock.Lock()
	s.next.Push(p)
}

// SpinlockRelease gives back a lock taken by an upstream SpinlockAcquire
// and forwards the packet.
type SpinlockRelease struct {
	lock *SpinLock
	next Output
}

func NewSpinlockRelease(info *SpinlockInfo, name string, next Output) (*SpinlockRelease, error) {
	l, err := info.Lookup(name)
	if err != nil {
		return nil, errors.Wrap(err, "SpinlockRelease")
	}
	return &SpinlockRelease{lock: l, next: next}, nil
}

func (s *SpinlockRelease) Push(p *Buffer) {
	s.lock.Unlock()
	s.next.Push(p)
}
