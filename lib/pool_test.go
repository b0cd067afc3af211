package lib

import (
	"testing"

	"github.com/pkg/errors"
)

func TestNewRingAllocatorValidates(t *testing.T) {
	testCases := []struct {
		name string
		cfg  PoolConfig
	}{
		{name: "empty pool", cfg: PoolConfig{PoolSize: 0, ChunkSize: 2048}},
		{name: "chunk too small", cfg: PoolConfig{PoolSize: 4, ChunkSize: DefaultHeadroom + TcpHeaderLength}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRingAllocator(&tc.cfg); err == nil {
				t.Error("bad pool config accepted")
			}
		})
	}
}

func TestRingAllocator(t *testing.T) {
	cfg := DefaultPoolConfig()
	cfg.PoolSize = 4
	cfg.ChunkSize = 256
	a, err := NewRingAllocator(cfg)
	if err != nil {
		t.Fatal(err)
	}

	p, err := a.Alloc(DefaultHeadroom, TcpHeaderLength, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Headroom() != DefaultHeadroom || p.Length() != TcpHeaderLength {
		t.Errorf("layout %d/%d", p.Headroom(), p.Length())
	}
	if p.Tailroom() != 256-DefaultHeadroom-TcpHeaderLength {
		t.Errorf("tailroom = %d, want the rest of the chunk", p.Tailroom())
	}
	if a.InUse() != 1 {
		t.Errorf("in use = %d, want 1", a.InUse())
	}
	p.Kill()
	if a.InUse() != 0 {
		t.Errorf("in use = %d after Kill, want 0", a.InUse())
	}

	if _, err := a.Alloc(DefaultHeadroom, 256, 0); !errors.Is(err, ErrNoBuffer) {
		t.Errorf("oversized request: err = %v, want ErrNoBuffer", err)
	}
}

func TestHeapAllocatorLimit(t *testing.T) {
	heap := &HeapAllocator{Limit: 1}
	p := mustAlloc(t, heap, 0, 1, 0)
	if _, err := heap.Alloc(0, 1, 0); !errors.Is(err, ErrNoBuffer) {
		t.Errorf("err = %v, want ErrNoBuffer", err)
	}
	p.Kill()
	q := mustAlloc(t, heap, 0, 1, 0)
	q.Kill()
}
