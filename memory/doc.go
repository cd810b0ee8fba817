// Package memory provides the addressable byte space that object instances live in.
//
// Two Memory backends are available:
//
//	mem := memory.NewLinear(1, 0)             // Go heap, grows by 64 KiB pages
//	mem, err := memory.NewWazero(ctx, 1, 256) // wasm linear memory hosted by wazero
//
// Both implement Grower, so a FreeListAllocator can extend them on demand:
//
//	alloc := memory.NewFreeListAllocator(mem)
//	ptr, err := alloc.Alloc(24, 8)
//	defer alloc.Free(ptr, 24, 8)
//
// Address 0 is reserved as the null address and never handed out. Allocations
// are zero-filled. Neither the memories nor the allocator are safe for concurrent
// use; they follow the single-owner contract of the object registry.
package memory
