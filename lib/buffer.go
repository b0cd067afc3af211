package lib

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

var (
	ErrSharedBuffer = errors.New("buffer is shared")
	ErrNoRoom       = errors.New("not enough room in buffer")
)

// storage is the byte slab behind one or more Buffer references.
type storage struct {
	bytes   []byte
	refs    atomic.Int32
	release func()
}

func (s *storage) drop() {
	if s.refs.Add(-1) == 0 && s.release != nil {
		s.release()
	}
}

// Buffer is a packet with headroom in front of its content and tailroom
// behind it. A Buffer is either exclusive (the only reference to its
// storage, mutable) or shared (read-only until Uniqueify).
type Buffer struct {
	st    *storage
	head  int // start of content
	tail  int // end of content
	alloc Allocator
	dead  bool
}

func newBuffer(bytes []byte, headroom, length int, release func(), alloc Allocator) *Buffer {
	st := &storage{bytes: bytes, release: release}
	st.refs.Store(1)
	return &Buffer{
		st:    st,
		head:  headroom,
		tail:  headroom + length,
		alloc: alloc,
	}
}

// Data returns the content region. It must not be written while Shared.
func (b *Buffer) Data() []byte { return b.st.bytes[b.head:b.tail] }

func (b *Buffer) Length() int { return b.tail - b.head }

func (b *Buffer) Headroom() int { return b.head }

func (b *Buffer) Tailroom() int { return len(b.st.bytes) - b.tail }

// Shared reports whether another reference may be reading the storage.
func (b *Buffer) Shared() bool { return b.st.refs.Load() > 1 }

// Clone returns a second reference to the same storage. Both become shared.
func (b *Buffer) Clone() *Buffer {
	b.st.refs.Add(1)
	return &Buffer{st: b.st, head: b.head, tail: b.tail, alloc: b.alloc}
}

// Kill releases this reference. The storage is returned to its allocator
// once every reference has been killed. Killing twice is a no-op.
func (b *Buffer) Kill() {
	if b == nil || b.dead {
		return
	}
	b.dead = true
	b.st.drop()
}

// Uniqueify returns an exclusive buffer with the same content and layout.
// An exclusive buffer is returned unchanged. A shared one is copied into
// fresh storage from the same allocator and this reference is killed.
func (b *Buffer) Uniqueify() (*Buffer, error) {
	if !b.Shared() {
		return b, nil
	}
	alloc := b.alloc
	if alloc == nil {
		alloc = &HeapAllocator{}
	}
	nb, err := alloc.Alloc(b.Headroom(), b.Length(), b.Tailroom())
	if err != nil {
		return nil, errors.Wrap(err, "uniqueify")
	}
	copy(nb.Data(), b.Data())
	b.Kill()
	return nb, nil
}

// Put extends the content by n zero bytes taken from the tailroom and
// returns the new bytes.
func (b *Buffer) Put(n int) ([]byte, error) {
	if b.Shared() {
		return nil, ErrSharedBuffer
	}
	if n < 0 || n > b.Tailroom() {
		return nil, errors.Wrapf(ErrNoRoom, "put %d with %d bytes of tailroom", n, b.Tailroom())
	}
	added := b.st.bytes[b.tail : b.tail+n]
	clear(added)
	b.tail += n
	return added, nil
}

// Take drops n bytes from the end of the content.
func (b *Buffer) Take(n int) error {
	if b.Shared() {
		return ErrSharedBuffer
	}
	if n < 0 || n > b.Length() {
		return errors.Wrapf(ErrNoRoom, "take %d from %d bytes", n, b.Length())
	}
	b.tail -= n
	return nil
}

// Push extends the content by n bytes at the front, taken from the
// headroom, and returns the new bytes.
func (b *Buffer) Push(n int) ([]byte, error) {
	if b.Shared() {
		return nil, ErrSharedBuffer
	}
	if n < 0 || n > b.Headroom() {
		return nil, errors.Wrapf(ErrNoRoom, "push %d with %d bytes of headroom", n, b.Headroom())
	}
	b.head -= n
	return b.st.bytes[b.head : b.head+n], nil
}

// Pull drops n bytes from the front of the content.
func (b *Buffer) Pull(n int) error {
	if b.Shared() {
		return ErrSharedBuffer
	}
	if n < 0 || n > b.Length() {
		return errors.Wrapf(ErrNoRoom, "pull %d from %d bytes", n, b.Length())
	}
	b.head += n
	return nil
}
