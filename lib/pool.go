package lib

import (
	"fmt"
	"log"
	"sync"
	"time"

	rp "github.com/Clouded-Sabre/ringpool/lib"
	"github.com/pkg/errors"
)

// ErrNoBuffer is returned when a buffer cannot be allocated. The engine
// treats it as fatal: there is no safe way to keep emitting segments.
var ErrNoBuffer = errors.New("packet buffer allocation failed")

// Allocator hands out packet buffers with the requested layout.
type Allocator interface {
	Alloc(headroom, length, tailroom int) (*Buffer, error)
}

type PoolConfig struct {
	Name                 string // prefix used by the ring pool in its log lines
	PoolSize             int    // how many chunks the ring holds
	ChunkSize            int    // bytes per chunk, headroom and tailroom included
	Debug                bool   // ring pool debug setting
	ProcessTimeThreshold int    // ring pool element hold time threshold in ms
}

func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Name:                 "ToyTCP: ",
		PoolSize:             defaultPoolSize,
		ChunkSize:            defaultChunkSize,
		Debug:                false,
		ProcessTimeThreshold: 10,
	}
}

// chunk is the fixed-size storage unit kept in the ring pool
type chunk struct {
	bytes []byte
}

// newChunk is the ring pool constructor. Its only parameter is the chunk size.
func newChunk(params ...interface{}) rp.DataInterface {
	if len(params) != 1 {
		log.Println("newChunk: Invalid number of calling parameters. Should be only one: chunk size")
		return nil
	}
	size, ok := params[0].(int)
	if !ok {
		log.Println("newChunk: Invalid data type of chunk size. Should be of type int")
		return nil
	}
	return &chunk{bytes: make([]byte, size)}
}

func (c *chunk) SetContent(s string) {
	copy(c.bytes, s)
}

// Reset zeroes the chunk before it goes back into circulation
func (c *chunk) Reset() {
	clear(c.bytes)
}

func (c *chunk) PrintContent() {
	fmt.Println("Chunk:", len(c.bytes), "bytes")
}

// RingAllocator carves packet buffers out of ring pool chunks.
type RingAllocator struct {
	pool      *rp.RingPool
	chunkSize int
	mu        sync.Mutex
	inUse     int
}

func NewRingAllocator(cfg *PoolConfig) (*RingAllocator, error) {
	if cfg == nil {
		cfg = DefaultPoolConfig()
	}
	if cfg.PoolSize <= 0 {
		return nil, errors.Errorf("pool size must be positive, got %d", cfg.PoolSize)
	}
	if cfg.ChunkSize < DefaultHeadroom+TcpHeaderLength+1 {
		return nil, errors.Errorf("chunk size %d cannot hold a %d-byte segment behind %d bytes of headroom",
			cfg.ChunkSize, TcpHeaderLength+1, DefaultHeadroom)
	}

	rp.Debug = cfg.Debug
	pool := rp.NewRingPool(cfg.Name, cfg.PoolSize, newChunk, cfg.ChunkSize)
	pool.Debug = cfg.Debug
	pool.ProcessTimeThreshold = time.Duration(cfg.ProcessTimeThreshold) * time.Millisecond

	return &RingAllocator{
		pool:      pool,
		chunkSize: cfg.ChunkSize,
	}, nil
}

// Alloc returns an exclusive buffer backed by one pool chunk. Whatever the
// chunk has beyond headroom+length becomes tailroom, so tailroom is a lower
// bound.
func (a *RingAllocator) Alloc(headroom, length, tailroom int) (*Buffer, error) {
	if headroom < 0 || length < 0 || tailroom < 0 {
		return nil, errors.Errorf("invalid buffer layout %d/%d/%d", headroom, length, tailroom)
	}
	if headroom+length+tailroom > a.chunkSize {
		return nil, errors.Wrapf(ErrNoBuffer, "%d bytes requested, chunk holds %d", headroom+length+tailroom, a.chunkSize)
	}
	elem := a.pool.GetElement()
	if elem == nil {
		return nil, errors.Wrap(ErrNoBuffer, "ring pool exhausted")
	}
	c, ok := elem.Data.(*chunk)
	if !ok {
		a.pool.ReturnElement(elem)
		return nil, errors.Wrap(ErrNoBuffer, "ring pool returned a foreign element")
	}
	a.mu.Lock()
	a.inUse++
	a.mu.Unlock()

	return newBuffer(c.bytes, headroom, length, func() {
		a.pool.ReturnElement(elem)
		a.mu.Lock()
		a.inUse--
		a.mu.Unlock()
	}, a), nil
}

// InUse reports how many chunks are currently handed out.
func (a *RingAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// HeapAllocator allocates every buffer on the Go heap. Limit, when
// positive, caps the number of live buffers.
type HeapAllocator struct {
	Limit int

	mu    sync.Mutex
	live  int
	total int
}

func (h *HeapAllocator) Alloc(headroom, length, tailroom int) (*Buffer, error) {
	if headroom < 0 || length < 0 || tailroom < 0 {
		return nil, errors.Errorf("invalid buffer layout %d/%d/%d", headroom, length, tailroom)
	}
	h.mu.Lock()
	if h.Limit > 0 && h.live >= h.Limit {
		h.mu.Unlock()
		return nil, errors.Wrapf(ErrNoBuffer, "heap allocator limit %d reached", h.Limit)
	}
	h.live++
	h.total++
	h.mu.Unlock()

	return newBuffer(make([]byte, headroom+length+tailroom), headroom, length, func() {
		h.mu.Lock()
		h.live--
		h.mu.Unlock()
	}, h), nil
}

// Live is the number of buffers not yet released.
func (h *HeapAllocator) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

// Allocations is the number of buffers ever handed out.
func (h *HeapAllocator) Allocations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}
