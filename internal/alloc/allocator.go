package alloc

import (
	"fmt"
	"sync"
)

// Allocator is an append-only space allocator.
type Allocator struct {
	mu sync.Mutex

	baseAddr    uint64
	eofAddr     uint64
	allocations []Allocation
	stats       Stats
}

// Allocation records one allocated block.
type Allocation struct {
	Addr uint64
	Size uint64
	Tag  string
}

// Stats summarizes the allocations made so far.
type Stats struct {
	TotalAllocations uint64
	TotalBytesAlloc  uint64
	LargestAlloc     uint64
}

// New returns an allocator whose first allocation lands at eof.
func New(eof uint64) *Allocator {
	return &Allocator{baseAddr: eof, eofAddr: eof}
}

// Alloc reserves size bytes at the end of the file. tag names the structure
// for diagnostics.
func (a *Allocator) Alloc(size uint64, tag string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocLocked(size, tag)
}

// AllocAligned is Alloc with the start address rounded up to alignment.
func (a *Allocator) AllocAligned(size, alignment uint64, tag string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if alignment > 1 {
		if rem := a.eofAddr % alignment; rem != 0 {
			a.eofAddr += alignment - rem
		}
	}
	return a.allocLocked(size, tag)
}

func (a *Allocator) allocLocked(size uint64, tag string) uint64 {
	addr := a.eofAddr
	if size == 0 {
		return addr
	}
	a.eofAddr += size
	a.allocations = append(a.allocations, Allocation{Addr: addr, Size: size, Tag: tag})

	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size
	if size > a.stats.LargestAlloc {
		a.stats.LargestAlloc = size
	}
	return addr
}

// EOF returns the current end-of-file address.
func (a *Allocator) EOF() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eofAddr
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Allocations returns a copy of every allocation, in order.
func (a *Allocator) Allocations() []Allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Allocation(nil), a.allocations...)
}

// Validate checks that allocations lie in [base, eof) and do not overlap.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, x := range a.allocations {
		if x.Addr < a.baseAddr || x.Addr+x.Size > a.eofAddr {
			return fmt.Errorf("allocation %q at 0x%x size %d outside [0x%x, 0x%x)",
				x.Tag, x.Addr, x.Size, a.baseAddr, a.eofAddr)
		}
		// Append-only: each block must start at or after the previous end.
		if i > 0 {
			prev := a.allocations[i-1]
			if x.Addr < prev.Addr+prev.Size {
				return fmt.Errorf("overlapping allocations %q and %q", prev.Tag, x.Tag)
			}
		}
	}
	return nil
}
