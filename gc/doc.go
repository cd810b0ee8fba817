// Package gc implements the object collector.
//
// A collection runs in four phases over an object.Registry:
//
//	MarkingUnreachable    flag every collectable object, seed the roots
//	TraversingReferences  interpret each reachable object's token stream
//	RoutingBeginDestroy   begin destruction of what is still flagged
//	IncrementalPurging    finish destruction and release, time-boxed
//
// Roots are objects with RootSet, Native or any of the caller's keep flags,
// plus every disregarded object. Besides the references its class
// describes, a reachable object also reaches its outer. Pending-kill objects
// are never roots, and stored references to them are cleared during
// traversal. A pending-kill outer of a reachable object is kept.
//
// Traversal is iterative. A small frame stack handles fixed arrays and
// dynamic arrays of structs, so nesting depth costs stack frames rather than
// goroutine stack.
//
// Destruction is two-phase. BeginDestroy runs during routing and the object
// is unhashed, but its memory stays valid. The purge waits for
// IsReadyForFinishDestroy, calls FinishDestroy once and releases the slot.
// IncrementalPurgeGarbage can spread the purge over several calls.
package gc
