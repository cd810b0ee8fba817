// Package object implements the object registry: a dense, slot-reusing table
// of tracked objects addressed by stable Handles, with name indices for
// lookup and accessors for the instance blocks the objects' fields live in.
//
// Objects are created in two steps, Allocate then Construct, and become
// findable once hashed; NewObject does all three. They are never destroyed
// directly: the collector moves them through BeginDestroyed and
// FinishDestroyed and finally calls Release, which frees the instance block
// and returns the slot to the reuse list. A WeakObjectHandle stays safe
// across that reuse because every slot carries a serial number.
//
// Lookup has two paths. With an outer, the (name, outer) index is used.
// Without one, the query may be a path such as "Pkg.Obj:Sub"; candidates are
// taken from the name index and filtered by walking their outer chain.
// Ambiguous matches log a warning and return the first match in insertion
// order.
//
// A Registry is not safe for concurrent use.
package object
