package memory

import (
	objectcore "github.com/wippyai/objectcore"
	"github.com/wippyai/objectcore/errors"
)

// Backing is what a FreeListAllocator carves blocks from.
type Backing interface {
	objectcore.Memory
	objectcore.MemorySizer
	Grower
}

// minBlock is the allocation granule; every block size is a multiple of it.
const minBlock = 8

// AllocatorStats summarizes allocator occupancy.
type AllocatorStats struct {
	LiveBlocks int
	LiveBytes  uint64
	FreeBlocks int
	FreeBytes  uint64
	HighWater  uint32
}

// FreeListAllocator is a bump allocator with per-size free lists. Blocks are
// never coalesced; freed blocks are reused for requests of the same rounded size.
type FreeListAllocator struct {
	mem   Backing
	free  map[uint32][]uint32 // rounded size -> free block addresses
	live  map[uint32]uint32   // address -> rounded size
	top   uint32
	zeros []byte
}

// NewFreeListAllocator creates an allocator over mem. Address 0 is reserved.
func NewFreeListAllocator(mem Backing) *FreeListAllocator {
	return &FreeListAllocator{
		mem:  mem,
		free: make(map[uint32][]uint32),
		live: make(map[uint32]uint32),
		top:  minBlock,
	}
}

func blockSize(size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	return AlignTo(size, minBlock)
}

// Alloc returns a zeroed block of at least size bytes aligned to align.
func (a *FreeListAllocator) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	if !IsPowerOfTwo(align) {
		return 0, errors.InvalidInput(errors.PhaseMemory, "alignment must be a power of two")
	}
	if size > 0x7fffffff {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}
	bs := blockSize(size)

	if ptr, ok := a.reuse(bs, align); ok {
		if err := a.zero(ptr, bs); err != nil {
			return 0, err
		}
		a.live[ptr] = bs
		return ptr, nil
	}

	ptr := AlignTo(a.top, max(align, minBlock))
	end, ok := SafeAddU32(ptr, bs)
	if !ok {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}
	if err := a.ensure(end); err != nil {
		return 0, errors.New(errors.PhaseMemory, errors.KindAllocation).
			Detail("failed to allocate %d bytes (align %d)", size, align).
			Cause(err).
			Build()
	}
	a.top = end
	// bytes above top have never been handed out and are still zero
	a.live[ptr] = bs
	return ptr, nil
}

func (a *FreeListAllocator) reuse(bs, align uint32) (uint32, bool) {
	list := a.free[bs]
	for i := len(list) - 1; i >= 0; i-- {
		ptr := list[i]
		if ptr%align != 0 {
			continue
		}
		list[i] = list[len(list)-1]
		a.free[bs] = list[:len(list)-1]
		return ptr, true
	}
	return 0, false
}

func (a *FreeListAllocator) ensure(end uint32) error {
	size := a.mem.Size()
	if end <= size {
		return nil
	}
	need := end - size
	pages := (need + PageSize - 1) / PageSize
	if _, ok := a.mem.Grow(pages); !ok {
		return errors.New(errors.PhaseMemory, errors.KindAllocation).
			Detail("cannot grow memory by %d pages", pages).
			Build()
	}
	return nil
}

func (a *FreeListAllocator) zero(ptr, n uint32) error {
	if uint32(len(a.zeros)) < n {
		a.zeros = make([]byte, n)
	}
	return a.mem.Write(ptr, a.zeros[:n])
}

// Free returns a block to its size class. Freeing an address that is not a
// live block is an invariant violation.
func (a *FreeListAllocator) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	bs, ok := a.live[ptr]
	errors.Assert(ok, func() *errors.Error {
		return errors.Invariant(errors.PhaseMemory, "free of unknown block 0x%x (size %d)", ptr, size)
	})
	if !ok {
		return
	}
	errors.Assert(bs == blockSize(size), func() *errors.Error {
		return errors.Invariant(errors.PhaseMemory, "free of block 0x%x with size %d, allocated as %d", ptr, size, bs)
	})
	delete(a.live, ptr)
	a.free[bs] = append(a.free[bs], ptr)
}

// IsLive reports whether ptr is the address of a live block.
func (a *FreeListAllocator) IsLive(ptr uint32) bool {
	_, ok := a.live[ptr]
	return ok
}

// Stats returns current occupancy.
func (a *FreeListAllocator) Stats() AllocatorStats {
	s := AllocatorStats{HighWater: a.top}
	for _, bs := range a.live {
		s.LiveBlocks++
		s.LiveBytes += uint64(bs)
	}
	for bs, list := range a.free {
		s.FreeBlocks += len(list)
		s.FreeBytes += uint64(bs) * uint64(len(list))
	}
	return s
}
