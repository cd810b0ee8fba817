// Package objectcore provides the object lifetime and garbage collection core of
// a game-engine style reflected object model.
//
// The library combines a reflected class model, a handle-based object registry
// and an incremental mark-and-sweep collector, alongside an independent atomic
// shared/weak reference counting model for data that lives outside the
// reflected universe.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	objectcore/      Root package with Memory, Allocator and Clock interfaces
//	├── runtime/     Owning context: wires every registry with explicit New/Close
//	├── gc/          Incremental mark-sweep collector with two-phase destruction
//	├── object/      Object registry, name lookup, weak object handles
//	├── class/       Class descriptors, property layout, reference token streams
//	├── name/        Case-insensitive interned names with numeric suffixes
//	├── refcount/    Lock-free shared/weak reference counting
//	├── archive/     CBOR-backed binary archive for object fields
//	├── memory/      Linear memory backends and a free-list allocator
//	├── config/      TOML configuration
//	└── errors/      Structured error types and fail-fast assertions
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, config.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	node, _ := rt.RegisterClass(class.Definition{
//	    Name:  "Node",
//	    Super: rt.ObjectClass(),
//	    Properties: []class.PropertySpec{
//	        {Name: "Next", Kind: class.KindObject},
//	    },
//	})
//
//	a, _ := rt.NewObject(node, object.NoHandle, "A", object.RootSet)
//	b, _ := rt.NewObject(node, object.NoHandle, "B", 0)
//	rt.Registry().SetRef(a, node.Property("Next").Offset, b)
//
//	rt.CollectGarbage(0, true) // a and b survive: b is reachable from a
//
// # Thread Safety
//
// The registry and the collector are single-threaded by contract: allocation,
// lookup, marking and destruction assume exclusive access from one owning
// goroutine. The name table and the refcount package are safe for concurrent use.
//
// # Memory Model
//
// Object instances are not Go values: they are blocks in a Memory, addressed by
// uint32 offsets. Object references inside an instance are stored as uint32
// handles, which is what lets the collector walk the object graph by reading
// memory at offsets described by each class's reference token stream.
package objectcore
